// Package progress shows that something is happening while the backend
// call is in flight, and prefixes streamed command output.
package progress

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Indicator displays a wait message. On a terminal it animates a spinner;
// elsewhere it prints the message once.
type Indicator struct {
	writer      io.Writer
	showSpinner bool
	startTime   time.Time

	mu       sync.Mutex
	program  *tea.Program
	done     chan struct{}
	stopOnce sync.Once
}

// Config holds configuration for the indicator
type Config struct {
	Writer      io.Writer
	ShowSpinner bool
	IsCI        bool // Set in CI/CD environments to disable animation
}

// NewIndicator creates a new indicator
func NewIndicator(cfg Config) *Indicator {
	if cfg.Writer == nil {
		cfg.Writer = os.Stdout
	}
	if !cfg.IsCI {
		cfg.IsCI = os.Getenv("CI") == "true" || os.Getenv("GITHUB_ACTIONS") == "true"
	}

	return &Indicator{
		writer:      cfg.Writer,
		showSpinner: cfg.ShowSpinner && !cfg.IsCI,
	}
}

// Start shows message until Stop is called
func (p *Indicator) Start(message string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.startTime = time.Now()
	if !p.showSpinner {
		fmt.Fprintln(p.writer, message)
		return
	}

	p.program = tea.NewProgram(newSpinnerModel(message),
		tea.WithOutput(p.writer),
		tea.WithInput(nil),
		tea.WithoutSignalHandler(),
	)
	p.done = make(chan struct{})
	go func(program *tea.Program, done chan struct{}) {
		defer close(done)
		_, _ = program.Run()
	}(p.program, p.done)
}

// Stop removes the spinner and returns how long the indicator ran. It is
// safe to call more than once.
func (p *Indicator) Stop() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stopOnce.Do(func() {
		if p.program != nil {
			p.program.Send(stopMsg{})
			<-p.done
		}
	})
	if p.startTime.IsZero() {
		return 0
	}
	return time.Since(p.startTime)
}

type stopMsg struct{}

type spinnerModel struct {
	spinner spinner.Model
	message string
	done    bool
}

func newSpinnerModel(message string) spinnerModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("63"))
	return spinnerModel{spinner: s, message: message}
}

func (m spinnerModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m spinnerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case stopMsg:
		m.done = true
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m spinnerModel) View() string {
	if m.done {
		return ""
	}
	return m.spinner.View() + " " + m.message
}
