// Package orchestrator runs one generation from request to materialized
// project. Stages run strictly in order and the first failure ends the run:
//
//	BuildRequest -> Generate -> Decode -> ApproveAndRun -> Materialize -> Done
//
// Nothing is retried. Steps that already ran and files that were already
// written stay as they are when a later stage fails.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/security-union/codemuse/internal/approval"
	muserr "github.com/security-union/codemuse/internal/errors"
	"github.com/security-union/codemuse/internal/exec"
	"github.com/security-union/codemuse/internal/log"
	"github.com/security-union/codemuse/internal/materialize"
	"github.com/security-union/codemuse/internal/metrics"
	"github.com/security-union/codemuse/internal/plan"
	"github.com/security-union/codemuse/internal/progress"
	"github.com/security-union/codemuse/internal/prompt"
	"github.com/security-union/codemuse/internal/provider"
	"github.com/security-union/codemuse/internal/telemetry"
	"github.com/security-union/codemuse/internal/ux"
)

// Stage names a point in the run
type Stage string

// Stages in the order they are entered, followed by the terminal failures
const (
	StageBuildRequest  Stage = "build_request"
	StageGenerate      Stage = "generate"
	StageDecode        Stage = "decode"
	StageApproveAndRun Stage = "approve_and_run"
	StageMaterialize   Stage = "materialize"
	StageDone          Stage = "done"

	StageGenerationFailed    Stage = "generation_failed"
	StageDecodeFailed        Stage = "decode_failed"
	StageLaunchFailed        Stage = "launch_failed"
	StageStepExecutionFailed Stage = "step_execution_failed"
	StageScriptAbandoned     Stage = "script_abandoned"
	StageInterrupted         Stage = "interrupted"
	StageFailed              Stage = "failed"
)

// Spinner is shown while the backend call is in flight
type Spinner interface {
	Start(message string)
	Stop() time.Duration
}

// Config wires the collaborators of a run
type Config struct {
	// Client generates the plan
	Client provider.Client

	// Prompter answers the approval questions
	Prompter approval.Prompter

	// Runner executes approved steps
	Runner *exec.Runner

	// Printer receives everything the operator reads
	Printer *ux.Printer

	// Logger receives stage transitions and diagnostics
	Logger *log.Logger

	// Spinner defaults to a plain wait message on the printer
	Spinner Spinner

	// Model and MaxTokens are passed to the backend; empty uses its defaults
	Model     string
	MaxTokens int

	// WorkDir holds the project root; empty means the working directory
	WorkDir string

	// DryRun prints the decoded plan in PreviewFormat and stops
	DryRun        bool
	PreviewFormat string

	// ManifestDir receives the run manifest when set
	ManifestDir string

	// Metrics records run, backend and step metrics; nil records nothing
	Metrics *metrics.Metrics

	// Tracer starts the spans of a run; nil traces nothing
	Tracer trace.Tracer
}

// Outcome describes what a run did, including a failed one
type Outcome struct {
	RunID        string
	Stage        Stage
	Root         string
	Raw          string
	Plan         plan.Plan
	Decisions    []approval.Decision
	Results      []*exec.Result
	Report       *materialize.Report
	ManifestPath string
	Duration     time.Duration
}

// Orchestrator runs generations
type Orchestrator struct {
	config Config
}

// New creates an orchestrator. Client, Prompter and Runner are required.
func New(config Config) (*Orchestrator, error) {
	if config.Client == nil {
		return nil, errors.New("orchestrator requires a backend client")
	}
	if config.Prompter == nil {
		return nil, errors.New("orchestrator requires a prompter")
	}
	if config.Runner == nil {
		return nil, errors.New("orchestrator requires a runner")
	}
	if config.Printer == nil {
		config.Printer = ux.NewPrinter(io.Discard, true)
	}
	if config.Logger == nil {
		config.Logger = log.Nop()
	}
	return &Orchestrator{config: config}, nil
}

// run holds the state of one Run call
type run struct {
	*Orchestrator
	outcome  *Outcome
	manifest *exec.Manifest
	logger   *log.Logger
}

// Run executes every stage for req. The returned Outcome is never nil and
// records the stage the run ended in.
func (o *Orchestrator) Run(ctx context.Context, req plan.GenerationRequest) (*Outcome, error) {
	start := time.Now()
	manifest := exec.NewManifest(req.Name(), req.Variant().String())
	info := o.config.Client.Info()
	manifest.Backend = info.Name
	manifest.Model = o.config.Model
	if manifest.Model == "" {
		manifest.Model = info.Model
	}

	r := &run{
		Orchestrator: o,
		outcome: &Outcome{
			RunID: manifest.RunID,
			Root:  filepath.Join(o.workDir(), req.Name()),
		},
		manifest: manifest,
		logger:   o.config.Logger.With("run_id", manifest.RunID, "variant", req.Variant().String()),
	}

	ctx, span := telemetry.StartRunSpan(ctx, o.config.Tracer, manifest.RunID, req.Variant().String(), req.Name())
	defer span.End()

	err := r.execute(ctx, req)
	r.outcome.Duration = time.Since(start)
	if err != nil {
		if ctx.Err() != nil {
			r.outcome.Stage = StageInterrupted
		}
		r.logger.With("stage", string(r.outcome.Stage)).LogError(ctx, err)
		telemetry.RecordError(span, err)
	} else {
		telemetry.RecordSuccess(span)
	}
	span.SetAttributes(attribute.String("stage", string(r.outcome.Stage)))
	r.saveManifest()
	o.config.Metrics.RecordRun(req.Variant().String(), string(r.outcome.Stage), r.outcome.Duration, err)

	return r.outcome, err
}

func (o *Orchestrator) workDir() string {
	if o.config.WorkDir == "" {
		return "."
	}
	return o.config.WorkDir
}

func (r *run) enter(stage Stage) {
	r.outcome.Stage = stage
	r.logger.Debug("entering stage", "stage", string(stage))
}

func (r *run) fail(stage Stage, err error) error {
	r.outcome.Stage = stage
	return err
}

func (r *run) execute(ctx context.Context, req plan.GenerationRequest) error {
	printer := r.config.Printer

	r.enter(StageBuildRequest)
	messages, err := prompt.Build(req)
	if err != nil {
		return r.fail(StageFailed, err)
	}

	r.enter(StageGenerate)
	raw, err := r.generate(ctx, messages)
	if err != nil {
		return r.fail(StageGenerationFailed, err)
	}
	r.outcome.Raw = raw

	r.enter(StageDecode)
	r.logger.DebugContext(ctx, "raw response", "response", raw)
	decoded, err := plan.Decode(req.Variant(), raw)
	if err != nil {
		printer.RawResponse(raw)
		return r.fail(StageDecodeFailed, muserr.NewDecodeError(req.Variant().String(), err))
	}
	r.outcome.Plan = decoded
	r.config.Metrics.RecordPlan(decoded.Variant().String(), len(decoded.Steps()))
	printer.PlanSummary(decoded.Variant().String(), plan.Describe(decoded))
	r.logger.Info("plan decoded", "summary", plan.Describe(decoded))

	if r.config.DryRun {
		if err := r.preview(decoded); err != nil {
			return r.fail(StageFailed, err)
		}
		printer.DryRun()
		r.manifest.Finish("dry_run")
		r.enter(StageDone)
		return nil
	}

	if _, ok := decoded.(plan.BundlePlan); ok {
		if err := createRoot(r.outcome.Root); err != nil {
			return r.fail(StageFailed, err)
		}
	}

	r.enter(StageApproveAndRun)
	if err := r.approveAndRun(ctx, decoded); err != nil {
		return err
	}

	r.enter(StageMaterialize)
	if err := r.materialize(decoded); err != nil {
		return r.fail(StageFailed, err)
	}

	r.manifest.Finish("success")
	r.enter(StageDone)
	printer.Done(r.outcome.Root)
	return nil
}

func (r *run) generate(ctx context.Context, messages prompt.Messages) (string, error) {
	info := r.config.Client.Info()

	spinner := r.config.Spinner
	if spinner == nil {
		spinner = progress.NewIndicator(progress.Config{Writer: r.config.Printer.Writer()})
	}

	model := r.config.Model
	if model == "" {
		model = info.Model
	}
	ctx, span := telemetry.StartGenerateSpan(ctx, r.config.Tracer, info.Name, model)
	defer span.End()

	spinner.Start(ux.WaitingMessage(info.Name))
	resp, err := r.config.Client.Generate(ctx, &provider.GenerateRequest{
		Prompt:       messages.User,
		SystemPrompt: messages.System,
		Model:        r.config.Model,
		MaxTokens:    r.config.MaxTokens,
		JSON:         true,
	})
	elapsed := spinner.Stop()

	tokens := 0
	if resp != nil {
		tokens = resp.TokensUsed
	}
	r.config.Metrics.RecordGeneration(info.Name, model, elapsed, tokens, err)

	if err != nil {
		telemetry.RecordError(span, err)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", fmt.Errorf("generation interrupted: %w", ctxErr)
		}
		var genErr *provider.GenerationError
		if errors.As(err, &genErr) && genErr.Unauthorized() {
			return "", muserr.NewBackendRejectedError(info.Name, credentialEnv(info.Name), err)
		}
		return "", muserr.NewGenerationError(info.Name, err)
	}

	r.config.Printer.ResponseReceived(info.Name, elapsed)
	r.logger.InfoContext(ctx, "response received",
		"backend", resp.Provider,
		"model", resp.Model,
		"tokens", resp.TokensUsed,
		"finish_reason", resp.FinishReason,
		"latency", resp.Latency.String(),
	)

	if strings.TrimSpace(resp.Content) == "" {
		err := muserr.NewEmptyResponseError(info.Name)
		telemetry.RecordError(span, err)
		return "", err
	}
	telemetry.RecordSuccess(span,
		attribute.Int("tokens_used", resp.TokensUsed),
		attribute.String("finish_reason", resp.FinishReason),
	)
	return resp.Content, nil
}

func credentialEnv(backend string) string {
	if backend == provider.BackendOpenAI {
		return "OPENAI_API_KEY"
	}
	return "the backend credentials"
}

func (r *run) preview(p plan.Plan) error {
	formatter, err := ux.NewFormatter(r.config.PreviewFormat, &ux.FormatterOptions{Writer: r.config.Printer.Writer()})
	if err != nil {
		return muserr.NewConfigInvalidError(err.Error())
	}
	return formatter.Format(ux.NewPlanView(p))
}

// createRoot makes the single-level project directory of a bundle
func createRoot(root string) error {
	err := os.Mkdir(root, 0755)
	if err == nil {
		return nil
	}
	if errors.Is(err, os.ErrExist) {
		if info, statErr := os.Stat(root); statErr == nil && info.IsDir() {
			return nil
		}
	}
	return muserr.Wrap(muserr.ErrCodeDirectoryFailed, fmt.Sprintf("failed to create project directory %s", root), err).
		WithSuggestion("Choose another --name or remove the existing path")
}

func (r *run) saveManifest() {
	if r.config.ManifestDir == "" {
		return
	}
	if r.manifest.Outcome == "incomplete" {
		r.manifest.Finish(string(r.outcome.Stage))
	}
	path, err := r.manifest.Save(r.config.ManifestDir)
	if err != nil {
		r.logger.WithError(err).Warn("failed to save run manifest")
		return
	}
	r.outcome.ManifestPath = path
	r.logger.Info("run manifest saved", "path", path)
}
