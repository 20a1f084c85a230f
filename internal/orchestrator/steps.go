package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"github.com/security-union/codemuse/internal/approval"
	muserr "github.com/security-union/codemuse/internal/errors"
	"github.com/security-union/codemuse/internal/exec"
	"github.com/security-union/codemuse/internal/materialize"
	"github.com/security-union/codemuse/internal/plan"
	"github.com/security-union/codemuse/internal/telemetry"
)

// flusher is implemented by buffered output writers such as
// progress.StreamWriter
type flusher interface {
	Flush() error
}

// approveAndRun puts each step before the operator and runs what they
// approve, one at a time. The first launch failure or non-zero exit ends
// the run before any later step is shown.
func (r *run) approveAndRun(ctx context.Context, p plan.Plan) error {
	reviewer := approval.NewReviewer(r.config.Prompter)
	steps := p.Steps()

	for i, step := range steps {
		if err := r.reviewAndRun(ctx, p, reviewer, step, i+1, len(steps)); err != nil {
			return err
		}
	}

	return nil
}

// reviewAndRun handles step number n of total
func (r *run) reviewAndRun(ctx context.Context, p plan.Plan, reviewer *approval.Reviewer, step string, n, total int) (err error) {
	printer := r.config.Printer
	ctx, span := telemetry.StartStepSpan(ctx, r.config.Tracer, n, total)
	defer func() {
		if err != nil {
			telemetry.RecordError(span, err)
		}
		span.End()
	}()

	printer.StepHeader(n, total)

	decision, err := reviewer.Review(ctx, step)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return r.fail(StageInterrupted, fmt.Errorf("approval interrupted: %w", ctxErr))
		}
		return r.fail(StageFailed, muserr.NewOperatorInputError(err))
	}
	span.SetAttributes(attribute.String("decision", decision.Kind.String()))
	r.outcome.Decisions = append(r.outcome.Decisions, decision)
	r.config.Metrics.RecordDecision(decision.Kind.String())
	r.logger.InfoContext(ctx, "step reviewed", "step", n, "decision", decision.Kind.String())

	if decision.Kind == approval.Skipped {
		r.manifest.RecordStep(step, decision.Kind.String(), "", nil, 0)
		printer.StepSkipped(step)
		if p.SkipAborts() {
			return r.fail(StageScriptAbandoned, muserr.NewScriptAbandonedError(approval.ErrScriptAbandoned))
		}
		return nil
	}

	printer.Running(decision.Command)
	result, err := r.config.Runner.Run(ctx, decision.Command)
	r.flushOutput()
	if err != nil {
		return r.stepFailed(ctx, step, decision, err)
	}

	code := result.ExitCode
	r.manifest.RecordStep(step, decision.Kind.String(), decision.Command, &code, result.Duration)
	r.outcome.Results = append(r.outcome.Results, result)
	r.config.Metrics.RecordStep(result.Duration)
	printer.StepSucceeded(decision.Command, result.Duration)
	telemetry.RecordSuccess(span, attribute.Int("exit_code", code))
	return nil
}

func (r *run) stepFailed(ctx context.Context, step string, decision approval.Decision, err error) error {
	var stepErr *exec.StepExecutionError
	if errors.As(err, &stepErr) {
		code := stepErr.ExitCode
		r.manifest.RecordStep(step, decision.Kind.String(), decision.Command, &code, stepErr.Duration)
		r.config.Metrics.RecordStepFailure("exit")
		return r.fail(StageStepExecutionFailed, muserr.NewStepExecutionError(err))
	}

	r.manifest.RecordStep(step, decision.Kind.String(), decision.Command, nil, 0)

	var launchErr *exec.LaunchError
	if errors.As(err, &launchErr) {
		r.config.Metrics.RecordStepFailure("launch")
		return r.fail(StageLaunchFailed, muserr.NewLaunchError(err))
	}
	if ctx.Err() != nil {
		return r.fail(StageInterrupted, err)
	}
	return r.fail(StageFailed, err)
}

func (r *run) flushOutput() {
	for _, w := range []any{r.config.Runner.Stdout, r.config.Runner.Stderr} {
		if f, ok := w.(flusher); ok {
			if err := f.Flush(); err != nil {
				r.logger.WithError(err).Debug("failed to flush step output")
			}
		}
	}
}

// materialize writes the generated files of p into the project root
func (r *run) materialize(p plan.Plan) error {
	m := materialize.New(r.outcome.Root)

	var (
		report *materialize.Report
		err    error
		files  plan.FileSet
	)
	switch v := p.(type) {
	case plan.StepFilePlan:
		files = v.Files
		report, err = m.WriteFiles(v.Files)
	case plan.BundlePlan:
		files = bundleFiles(v)
		report, err = m.WriteBundle(v)
	default:
		return nil
	}

	r.outcome.Report = report
	r.config.Printer.Report(report)
	r.recordFiles(files, report)

	if report != nil {
		r.config.Metrics.RecordFiles(len(report.Written), len(report.Notices))
		r.logger.Info("files materialized", "written", len(report.Written), "manual", len(report.Notices))
	}
	return err
}

func (r *run) recordFiles(files plan.FileSet, report *materialize.Report) {
	if report == nil {
		return
	}
	for _, c := range report.Written {
		contents, _ := files.Lookup(c.Path)
		r.manifest.RecordFile(c.Path, "written", contents)
	}
	for _, n := range report.Notices {
		r.manifest.RecordFile(n.Path, "manual: "+n.Reason, n.Contents)
	}
}

func bundleFiles(b plan.BundlePlan) plan.FileSet {
	files := plan.FileSet{
		{Path: materialize.DockerfileName, Contents: b.Dockerfile},
		{Path: materialize.MakefileName, Contents: b.Makefile},
		{Path: materialize.ReadmeName, Contents: b.Readme},
	}
	for _, f := range b.SourceFiles {
		files = append(files, plan.File{Path: f.Name, Contents: f.Contents})
	}
	return files
}
