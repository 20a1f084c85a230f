package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	muserr "github.com/security-union/codemuse/internal/errors"
)

// Metrics holds the Prometheus collectors of a codemuse run. A nil
// *Metrics records nothing.
type Metrics struct {
	// Run metrics
	Runs        *prometheus.CounterVec
	RunDuration *prometheus.HistogramVec

	// Backend metrics
	ProviderCalls   *prometheus.CounterVec
	ProviderLatency *prometheus.HistogramVec
	ProviderTokens  *prometheus.CounterVec

	// Plan metrics
	PlanSteps *prometheus.HistogramVec

	// Step metrics
	StepDecisions *prometheus.CounterVec
	StepDuration  prometheus.Histogram
	StepFailures  *prometheus.CounterVec

	// File metrics
	Files *prometheus.CounterVec

	// Error metrics (by error code from structured errors)
	Errors *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics registered
func NewMetrics(registry prometheus.Registerer) *Metrics {
	factory := promauto.With(registry)

	return &Metrics{
		Runs: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "codemuse_runs_total",
				Help: "Total number of runs by the stage they ended in",
			},
			[]string{"variant", "stage"},
		),
		RunDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "codemuse_run_duration_seconds",
				Help:    "Wall time of a run in seconds, operator think time included",
				Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600, 1800},
			},
			[]string{"variant"},
		),

		ProviderCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "codemuse_provider_calls_total",
				Help: "Total number of generation requests",
			},
			[]string{"backend", "model", "success"},
		),
		ProviderLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "codemuse_provider_latency_seconds",
				Help:    "Generation request latency in seconds",
				Buckets: []float64{0.1, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0, 60.0, 120.0},
			},
			[]string{"backend", "model"},
		),
		ProviderTokens: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "codemuse_provider_tokens_total",
				Help: "Total tokens reported by the backend",
			},
			[]string{"backend", "model"},
		),

		PlanSteps: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "codemuse_plan_steps",
				Help:    "Number of executable steps in decoded plans",
				Buckets: []float64{0, 1, 2, 5, 10, 20, 50},
			},
			[]string{"variant"},
		),

		StepDecisions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "codemuse_step_decisions_total",
				Help: "Operator decisions on proposed steps",
			},
			[]string{"decision"},
		),
		StepDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "codemuse_step_duration_seconds",
				Help:    "Duration of successful steps in seconds",
				Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300, 600},
			},
		),
		StepFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "codemuse_step_failures_total",
				Help: "Steps that could not be launched or exited non-zero",
			},
			[]string{"reason"},
		),

		Files: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "codemuse_files_total",
				Help: "Generated files by how they were placed",
			},
			[]string{"placement"},
		),

		Errors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "codemuse_errors_total",
				Help: "Total number of errors by error code",
			},
			[]string{"error_code"},
		),
	}
}

// RecordGeneration records one generation request
func (m *Metrics) RecordGeneration(backend, model string, latency time.Duration, tokens int, err error) {
	if m == nil {
		return
	}
	m.ProviderCalls.WithLabelValues(backend, model, boolLabel(err == nil)).Inc()
	m.ProviderLatency.WithLabelValues(backend, model).Observe(latency.Seconds())
	if tokens > 0 {
		m.ProviderTokens.WithLabelValues(backend, model).Add(float64(tokens))
	}
}

// RecordPlan records the size of a decoded plan
func (m *Metrics) RecordPlan(variant string, steps int) {
	if m == nil {
		return
	}
	m.PlanSteps.WithLabelValues(variant).Observe(float64(steps))
}

// RecordDecision records an operator decision ("accepted", "replaced", "skipped")
func (m *Metrics) RecordDecision(decision string) {
	if m == nil {
		return
	}
	m.StepDecisions.WithLabelValues(decision).Inc()
}

// RecordStep records a step that ran to a zero exit
func (m *Metrics) RecordStep(d time.Duration) {
	if m == nil {
		return
	}
	m.StepDuration.Observe(d.Seconds())
}

// RecordStepFailure records a step that failed for reason ("launch", "exit")
func (m *Metrics) RecordStepFailure(reason string) {
	if m == nil {
		return
	}
	m.StepFailures.WithLabelValues(reason).Inc()
}

// RecordFiles records how many generated files were written and how many
// were left for manual placement
func (m *Metrics) RecordFiles(written, manual int) {
	if m == nil {
		return
	}
	m.Files.WithLabelValues("written").Add(float64(written))
	m.Files.WithLabelValues("manual").Add(float64(manual))
}

// RecordRun records the end of a run and, for a failed run, its error code
func (m *Metrics) RecordRun(variant, stage string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.Runs.WithLabelValues(variant, stage).Inc()
	m.RunDuration.WithLabelValues(variant).Observe(d.Seconds())
	if err == nil {
		return
	}
	code := "UNKNOWN"
	if c, ok := muserr.CodeOf(err); ok {
		code = string(c)
	}
	m.Errors.WithLabelValues(code).Inc()
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
