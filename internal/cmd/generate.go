package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/security-union/codemuse/internal/approval"
	"github.com/security-union/codemuse/internal/config"
	muserr "github.com/security-union/codemuse/internal/errors"
	"github.com/security-union/codemuse/internal/exec"
	"github.com/security-union/codemuse/internal/log"
	"github.com/security-union/codemuse/internal/metrics"
	"github.com/security-union/codemuse/internal/orchestrator"
	"github.com/security-union/codemuse/internal/plan"
	"github.com/security-union/codemuse/internal/progress"
	"github.com/security-union/codemuse/internal/provider"
	"github.com/security-union/codemuse/internal/telemetry"
	"github.com/security-union/codemuse/internal/ux"
	"github.com/security-union/codemuse/internal/version"
)

const (
	// stepOutputPrefix marks lines written by a running step
	stepOutputPrefix = "  │ "

	traceFlushTimeout = 5 * time.Second
)

func runGenerate(cmd *cobra.Command, opts *rootOptions) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	cfg.Apply(overrides(cmd.Flags(), opts))
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := log.New(cfg.LoggerConfig(version.GetInfo().Version))
	defer logger.Close()

	req, err := plan.NewRequest(cfg.PlanVariant(), cfg.Language, opts.name, opts.description, cfg.HostOS())
	if err != nil {
		return muserr.NewConfigInvalidError(err.Error())
	}

	client, err := provider.New(cfg.ProviderConfig())
	if err != nil {
		return muserr.NewConfigInvalidError(err.Error())
	}
	defer client.Close()

	out := cmd.OutOrStdout()
	in := cmd.InOrStdin()

	runner := exec.NewRunner(
		progress.NewStreamWriter(out, stepOutputPrefix),
		progress.NewStreamWriter(cmd.ErrOrStderr(), stepOutputPrefix),
	)
	runner.Shell = cfg.Shell

	tracing, err := telemetry.NewProvider(cmd.Context(), cfg.TracingConfig(version.GetInfo().Version))
	if err != nil {
		return err
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(cmd.Context()), traceFlushTimeout)
		defer cancel()
		if err := tracing.Shutdown(ctx); err != nil {
			logger.WithError(err).Warn("failed to flush traces")
		}
	}()

	var runMetrics *metrics.Metrics
	if cfg.MetricsFile != "" {
		var registry *prometheus.Registry
		registry, runMetrics = metrics.NewRegistry()
		defer func() {
			if err := metrics.WriteTextfile(cfg.MetricsFile, registry); err != nil {
				logger.WithError(err).Warn("failed to write metrics")
			}
		}()
	}

	o, err := orchestrator.New(orchestrator.Config{
		Client:        client,
		Prompter:      newPrompter(cfg, in, out),
		Runner:        runner,
		Printer:       ux.NewPrinter(out, cfg.NoColor),
		Logger:        logger,
		Spinner:       progress.NewIndicator(progress.Config{Writer: out, ShowSpinner: isStdout(out) && ux.ShouldAnimate()}),
		Model:         cfg.Model,
		MaxTokens:     cfg.MaxTokens,
		DryRun:        opts.dryRun,
		PreviewFormat: cfg.Output,
		ManifestDir:   cfg.ManifestDir,
		Metrics:       runMetrics,
		Tracer:        tracing.Tracer(),
	})
	if err != nil {
		return err
	}

	logger.Debug("starting run",
		"backend", client.Info().Name,
		"variant", string(req.Variant()),
		"project", req.Name(),
	)
	outcome, err := o.Run(cmd.Context(), req)
	if outcome != nil && outcome.ManifestPath != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "Run manifest: %s\n", outcome.ManifestPath)
	}
	return err
}

func loadConfig(opts *rootOptions) (*config.Config, error) {
	return config.Load(config.LoadOptions{Path: opts.configPath})
}

// newPrompter picks form prompts only when asked for and a terminal is
// attached to both ends.
func newPrompter(cfg *config.Config, in io.Reader, out io.Writer) approval.Prompter {
	if cfg.UseForms && in == os.Stdin && isStdout(out) && ux.ShouldUseForms() {
		return approval.NewFormPrompter(in, out)
	}
	return approval.NewLinePrompter(in, out)
}

func isStdout(w io.Writer) bool {
	return w == os.Stdout
}

// overrides collects the flags that were set explicitly
func overrides(flags *pflag.FlagSet, opts *rootOptions) config.Overrides {
	var o config.Overrides
	if flags.Changed("backend") {
		o.Backend = &opts.backend
	}
	if flags.Changed("model") {
		o.Model = &opts.model
	}
	if flags.Changed("max-tokens") {
		o.MaxTokens = &opts.maxTokens
	}
	if flags.Changed("variant") {
		o.Variant = &opts.variant
	}
	if flags.Changed("language") {
		o.Language = &opts.language
	}
	if flags.Changed("os") {
		o.TargetOS = &opts.targetOS
	}
	if flags.Changed("shell") {
		o.Shell = &opts.shell
	}
	if flags.Changed("tui") {
		o.UseForms = &opts.tui
	}
	if flags.Changed("manifest") {
		o.ManifestDir = &opts.manifestDir
	}
	if flags.Changed("metrics-file") {
		o.MetricsFile = &opts.metricsFile
	}
	if flags.Changed("output") {
		o.Output = &opts.output
	}
	if flags.Changed("no-color") {
		o.NoColor = &opts.noColor
	}
	if flags.Changed("log-level") {
		o.LogLevel = &opts.logLevel
	}
	if flags.Changed("log-format") {
		o.LogFormat = &opts.logFormat
	}
	if flags.Changed("log-file") {
		o.LogFile = &opts.logFile
	}
	return o
}
