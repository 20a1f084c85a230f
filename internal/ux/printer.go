// Package ux renders everything the operator reads on stdout: banners,
// step results, manual placement notices, plan previews and errors.
package ux

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"

	muserr "github.com/security-union/codemuse/internal/errors"
	"github.com/security-union/codemuse/internal/materialize"
)

// Styles holds the lipgloss styles of the printer
type Styles struct {
	Title   lipgloss.Style
	Status  lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Muted   lipgloss.Style
}

// DefaultStyles returns the colored styles, bound to the renderer of the
// output so that colors are dropped when it is not a terminal.
func DefaultStyles(r *lipgloss.Renderer) Styles {
	return Styles{
		Title:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("63")),
		Status:  r.NewStyle().Bold(true).Foreground(lipgloss.Color("86")),
		Success: r.NewStyle().Bold(true).Foreground(lipgloss.Color("46")),
		Warning: r.NewStyle().Bold(true).Foreground(lipgloss.Color("226")),
		Error:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("196")),
		Muted:   r.NewStyle().Foreground(lipgloss.Color("241")),
	}
}

// PlainStyles renders every string unchanged
func PlainStyles() Styles {
	plain := lipgloss.NewStyle()
	return Styles{
		Title:   plain,
		Status:  plain,
		Success: plain,
		Warning: plain,
		Error:   plain,
		Muted:   plain,
	}
}

// Printer writes operator-facing messages
type Printer struct {
	out    io.Writer
	styles Styles
}

// NewPrinter creates a printer for out. noColor disables all styling.
func NewPrinter(out io.Writer, noColor bool) *Printer {
	if out == nil {
		out = os.Stdout
	}
	styles := PlainStyles()
	if !noColor {
		styles = DefaultStyles(lipgloss.NewRenderer(out))
	}
	return &Printer{out: out, styles: styles}
}

// Writer returns the underlying output
func (p *Printer) Writer() io.Writer {
	return p.out
}

func (p *Printer) println(s string) {
	_, _ = fmt.Fprintln(p.out, s)
}

// WaitingMessage is shown while the backend call is in flight
func WaitingMessage(backend string) string {
	return fmt.Sprintf("Sending prompt to %s, please wait...", backend)
}

// ResponseReceived reports a completed backend call
func (p *Printer) ResponseReceived(backend string, elapsed time.Duration) {
	p.println(p.styles.Status.Render(fmt.Sprintf("Response received from %s", backend)) +
		p.styles.Muted.Render(fmt.Sprintf(" (%s)", elapsed.Round(time.Millisecond))))
}

// RawResponse echoes a backend response exactly as received
func (p *Printer) RawResponse(raw string) {
	p.println(p.styles.Muted.Render("Raw response:"))
	p.println(raw)
}

// PlanSummary announces the decoded plan
func (p *Printer) PlanSummary(variant, summary string) {
	p.println(p.styles.Title.Render(fmt.Sprintf("Generated %s plan: %s", variant, summary)))
}

// StepHeader marks the start of step n of total
func (p *Printer) StepHeader(n, total int) {
	p.println("")
	p.println(p.styles.Title.Render(fmt.Sprintf("Step %d/%d", n, total)))
}

// Running announces the command about to run
func (p *Printer) Running(command string) {
	p.println(p.styles.Status.Render("Running:") + " " + command)
}

// StepSucceeded reports a command that exited zero
func (p *Printer) StepSucceeded(command string, elapsed time.Duration) {
	p.println(p.styles.Success.Render("✓") + " " + command + p.styles.Muted.Render(fmt.Sprintf(" (%s)", elapsed.Round(time.Millisecond))))
}

// StepSkipped reports a step the operator left out
func (p *Printer) StepSkipped(step string) {
	p.println(p.styles.Warning.Render("Skipped:") + " " + step)
}

// FileWritten reports one overwritten file with its line counts
func (p *Printer) FileWritten(c materialize.Change) {
	p.println(p.styles.Success.Render("Wrote") + " " + c.Path +
		p.styles.Muted.Render(fmt.Sprintf(" (+%d -%d)", c.Added, c.Removed)))
}

// Notice prints a file the operator has to create, with its full contents
func (p *Printer) Notice(n materialize.ManualPlacementNotice) {
	p.println("")
	p.println(p.styles.Warning.Render("Unable to determine exactly where to put files. Please create this project file:"))
	p.println(fmt.Sprintf("File path: %s", n.Path))
	if n.Reason != "" {
		p.println(p.styles.Muted.Render(fmt.Sprintf("Reason: %s", n.Reason)))
	}
	p.println("File Contents:")
	p.println(n.Contents)
}

// Report prints every change and notice of a materialization
func (p *Printer) Report(r *materialize.Report) {
	if r == nil {
		return
	}
	for _, c := range r.Written {
		p.FileWritten(c)
	}
	for _, n := range r.Notices {
		p.Notice(n)
	}
}

// Done closes a successful run
func (p *Printer) Done(root string) {
	p.println("")
	p.println(p.styles.Success.Render(fmt.Sprintf("Project %s is ready.", root)))
}

// DryRun explains that nothing was executed
func (p *Printer) DryRun() {
	p.println(p.styles.Muted.Render("Dry run: no commands were executed and no files were written."))
}

// Error prints err with its code and suggestions
func (p *Printer) Error(err error) {
	if err == nil {
		return
	}

	var coded *muserr.Error
	if !errors.As(err, &coded) {
		enhanced := EnhanceError(err)
		var withSuggestion *ErrorWithSuggestion
		if errors.As(enhanced, &withSuggestion) {
			p.println(p.styles.Error.Render("Error:") + " " + withSuggestion.Err.Error())
			p.println(p.styles.Muted.Render("Suggestion:") + " " + withSuggestion.Suggestion)
			return
		}
		p.println(p.styles.Error.Render("Error:") + " " + err.Error())
		return
	}

	headline := coded.Message
	if coded.Cause != nil {
		headline = fmt.Sprintf("%s: %v", coded.Message, coded.Cause)
	}
	p.println(p.styles.Error.Render(fmt.Sprintf("Error [%s]:", coded.Code)) + " " + headline)
	if len(coded.Suggestions) > 0 {
		p.println(p.styles.Muted.Render("Suggestions:"))
		for _, s := range coded.Suggestions {
			p.println("  • " + s)
		}
	}
	if coded.DocsURL != "" {
		p.println(p.styles.Muted.Render("Documentation:") + " " + coded.DocsURL)
	}
}
