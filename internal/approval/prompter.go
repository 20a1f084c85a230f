package approval

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/huh"
)

// ErrNoInput is returned when the operator's input ends before a question
// is answered. The run cannot continue without an answer.
var ErrNoInput = errors.New("operator input closed")

// Prompter asks the operator one question and returns one line of input
// without its line terminator.
type Prompter interface {
	Ask(ctx context.Context, question string) (string, error)
}

// LinePrompter reads answers line by line from any reader, normally stdin
type LinePrompter struct {
	in  *bufio.Reader
	out io.Writer
}

// NewLinePrompter writes questions to out and reads answers from in
func NewLinePrompter(in io.Reader, out io.Writer) *LinePrompter {
	return &LinePrompter{in: bufio.NewReader(in), out: out}
}

// Ask implements Prompter
func (p *LinePrompter) Ask(ctx context.Context, question string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if _, err := fmt.Fprintln(p.out, question); err != nil {
		return "", fmt.Errorf("write prompt: %w", err)
	}

	line, err := p.in.ReadString('\n')
	if err != nil {
		// A final line without a terminator still counts as an answer.
		if errors.Is(err, io.EOF) && line != "" {
			return trimEOL(line), nil
		}
		if errors.Is(err, io.EOF) {
			return "", ErrNoInput
		}
		return "", fmt.Errorf("read answer: %w", err)
	}
	return trimEOL(line), nil
}

func trimEOL(s string) string {
	s = strings.TrimSuffix(s, "\n")
	return strings.TrimSuffix(s, "\r")
}

// FormPrompter asks through a huh input field. It needs a terminal.
type FormPrompter struct {
	in  io.Reader
	out io.Writer
}

// NewFormPrompter creates a form prompter; nil in/out use the terminal
func NewFormPrompter(in io.Reader, out io.Writer) *FormPrompter {
	return &FormPrompter{in: in, out: out}
}

// Ask implements Prompter
func (p *FormPrompter) Ask(ctx context.Context, question string) (string, error) {
	var value string

	input := huh.NewInput().
		Title(question).
		Value(&value)

	form := huh.NewForm(huh.NewGroup(input))
	if p.in != nil {
		form = form.WithInput(p.in)
	}
	if p.out != nil {
		form = form.WithOutput(p.out)
	}

	if err := form.RunWithContext(ctx); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return "", ErrNoInput
		}
		return "", fmt.Errorf("prompt failed: %w", err)
	}
	return value, nil
}
