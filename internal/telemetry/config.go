package telemetry

import (
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Config holds configuration for the tracer
type Config struct {
	ServiceName    string
	ServiceVersion string

	// Enabled selects the SDK provider. When false every span is a noop.
	Enabled bool

	// Endpoint is the OTLP/HTTP collector as host:port. Without one spans
	// are sampled and ended but go nowhere.
	Endpoint string
	Insecure bool

	// SampleRate is the fraction of runs traced, from 0 to 1
	SampleRate float64
}

// DefaultConfig leaves tracing off until a collector is configured
func DefaultConfig() Config {
	return Config{
		ServiceName:    "codemuse",
		ServiceVersion: "dev",
		SampleRate:     1.0,
	}
}

// Sampler picks runs by trace ID. Every span of a run follows the
// decision made for its root span.
func (c Config) Sampler() sdktrace.Sampler {
	root := sdktrace.AlwaysSample()
	switch {
	case c.SampleRate <= 0:
		root = sdktrace.NeverSample()
	case c.SampleRate < 1:
		root = sdktrace.TraceIDRatioBased(c.SampleRate)
	}
	return sdktrace.ParentBased(root)
}

func (c Config) exporterOptions() []otlptracehttp.Option {
	opts := []otlptracehttp.Option{
		otlptracehttp.WithEndpoint(c.Endpoint),
		otlptracehttp.WithCompression(otlptracehttp.GzipCompression),
	}
	if c.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	return opts
}
