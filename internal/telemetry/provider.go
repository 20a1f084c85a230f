package telemetry

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// ErrCircuitOpen is returned while the exporter refuses to send after
// repeated failures
var ErrCircuitOpen = errors.New("circuit breaker open: too many export failures")

// circuitBreaker stops export attempts after repeated failures
type circuitBreaker struct {
	failureThreshold int
	resetTimeout     time.Duration
	failureCount     int
	lastFailureTime  time.Time
	state            string // "closed", "open"
	mu               sync.RWMutex
}

func newCircuitBreaker() *circuitBreaker {
	return &circuitBreaker{
		failureThreshold: 5,
		resetTimeout:     30 * time.Second,
		state:            "closed",
	}
}

func (cb *circuitBreaker) allow() bool {
	cb.mu.RLock()
	defer cb.mu.RUnlock()

	if cb.state == "closed" {
		return true
	}
	// open: let one attempt through once the timeout passed
	return time.Since(cb.lastFailureTime) > cb.resetTimeout
}

func (cb *circuitBreaker) recordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failureCount = 0
	cb.state = "closed"
}

func (cb *circuitBreaker) recordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failureCount++
	cb.lastFailureTime = time.Now()
	if cb.failureCount >= cb.failureThreshold {
		cb.state = "open"
	}
}

// backoff configures the retries of retryableExporter
type backoff struct {
	initial    time.Duration
	max        time.Duration
	maxElapsed time.Duration
	multiplier float64
	retries    int
}

var defaultBackoff = backoff{
	initial:    100 * time.Millisecond,
	max:        2 * time.Second,
	maxElapsed: 10 * time.Second,
	multiplier: 1.5,
	retries:    5,
}

// retryableExporter wraps an exporter with retry logic and circuit breaker
type retryableExporter struct {
	exporter       sdktrace.SpanExporter
	circuitBreaker *circuitBreaker
	backoff        backoff
}

func newRetryableExporter(exporter sdktrace.SpanExporter) *retryableExporter {
	return &retryableExporter{
		exporter:       exporter,
		circuitBreaker: newCircuitBreaker(),
		backoff:        defaultBackoff,
	}
}

func (re *retryableExporter) ExportSpans(ctx context.Context, spans []sdktrace.ReadOnlySpan) error {
	if !re.circuitBreaker.allow() {
		return ErrCircuitOpen
	}

	start := time.Now()
	interval := re.backoff.initial

	var lastErr error
	attempts := 0
	for attempts < re.backoff.retries {
		if time.Since(start) > re.backoff.maxElapsed {
			break
		}
		if err := ctx.Err(); err != nil {
			re.circuitBreaker.recordFailure()
			return err
		}

		attempts++
		err := re.exporter.ExportSpans(ctx, spans)
		if err == nil {
			re.circuitBreaker.recordSuccess()
			return nil
		}
		lastErr = err

		if attempts < re.backoff.retries {
			select {
			case <-time.After(interval):
			case <-ctx.Done():
				re.circuitBreaker.recordFailure()
				return ctx.Err()
			}
			interval = time.Duration(float64(interval) * re.backoff.multiplier)
			if interval > re.backoff.max {
				interval = re.backoff.max
			}
		}
	}

	re.circuitBreaker.recordFailure()
	return fmt.Errorf("export failed after %d attempts: %w", attempts, lastErr)
}

func (re *retryableExporter) Shutdown(ctx context.Context) error {
	return re.exporter.Shutdown(ctx)
}

// Provider owns the tracer provider of one process
type Provider struct {
	tracerProvider trace.TracerProvider
	shutdown       func(context.Context) error
}

// createResource describes this process to the collector
func createResource(ctx context.Context, cfg Config) (*resource.Resource, error) {
	return resource.New(
		ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(cfg.ServiceName),
			semconv.ServiceVersionKey.String(cfg.ServiceVersion),
		),
		resource.WithProcessRuntimeDescription(),
		resource.WithHost(),
		resource.WithOS(),
		resource.WithTelemetrySDK(),
	)
}

// NewProvider builds a tracer provider from cfg. A disabled config yields a
// noop provider whose Shutdown does nothing.
func NewProvider(ctx context.Context, cfg Config) (*Provider, error) {
	if !cfg.Enabled {
		return &Provider{
			tracerProvider: noop.NewTracerProvider(),
			shutdown:       func(context.Context) error { return nil },
		}, nil
	}

	res, err := createResource(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}
	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(cfg.Sampler()),
	}

	if cfg.Endpoint != "" {
		exporter, err := otlptracehttp.New(ctx, cfg.exporterOptions()...)
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
		}

		// A run is short; the batcher flushes on Shutdown.
		opts = append(opts, sdktrace.WithBatcher(
			newRetryableExporter(exporter),
			sdktrace.WithBatchTimeout(5*time.Second),
			sdktrace.WithMaxExportBatchSize(512),
		))
	}

	tp := sdktrace.NewTracerProvider(opts...)
	return &Provider{tracerProvider: tp, shutdown: tp.Shutdown}, nil
}

// NewProviderFrom wraps an existing tracer provider, such as one backed by
// an in-memory recorder
func NewProviderFrom(tp trace.TracerProvider) *Provider {
	shutdown := func(context.Context) error { return nil }
	if sdk, ok := tp.(*sdktrace.TracerProvider); ok {
		shutdown = sdk.Shutdown
	}
	return &Provider{tracerProvider: tp, shutdown: shutdown}
}

// Tracer returns the tracer spans of a run are started from
func (p *Provider) Tracer() trace.Tracer {
	return p.tracerProvider.Tracer(instrumentationName)
}

// Shutdown flushes pending spans and stops the exporter
func (p *Provider) Shutdown(ctx context.Context) error {
	return p.shutdown(ctx)
}
