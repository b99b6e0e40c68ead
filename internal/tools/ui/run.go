package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const tickInterval = 120 * time.Millisecond

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	okStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	failStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	detailStyle = lipgloss.NewStyle().PaddingLeft(2)

	spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
)

type doneMsg struct {
	details []string
	err     error
}

type tickMsg time.Time

type model struct {
	title   string
	started time.Time
	elapsed time.Duration
	frame   int
	details []string
	err     error
	done    bool
	run     func() tea.Msg
}

func newModel(ctx context.Context, title string, timeout time.Duration, action func(context.Context) ([]string, error)) model {
	return model{
		title:   title,
		started: time.Now(),
		run: func() tea.Msg {
			actx, cancel := ctx, context.CancelFunc(func() {})
			if timeout > 0 {
				actx, cancel = context.WithTimeout(ctx, timeout)
			}
			defer cancel()
			details, err := action(actx)
			return doneMsg{details: details, err: err}
		},
	}
}

func tick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m model) Init() tea.Cmd {
	return tea.Batch(m.run, tick())
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.err = context.Canceled
			m.done = true
			return m, tea.Quit
		}
	case tickMsg:
		if m.done {
			return m, nil
		}
		m.frame = (m.frame + 1) % len(spinnerFrames)
		m.elapsed = time.Time(msg).Sub(m.started)
		return m, tick()
	case doneMsg:
		m.details = msg.details
		m.err = msg.err
		m.done = true
		m.elapsed = time.Since(m.started)
		return m, tea.Quit
	}
	return m, nil
}

func (m model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(m.title))
	b.WriteString("\n\n")
	elapsed := mutedStyle.Render(m.elapsed.Round(10 * time.Millisecond).String())
	switch {
	case !m.done:
		fmt.Fprintf(&b, "%s running %s\n", spinnerFrames[m.frame], elapsed)
		return b.String()
	case m.err != nil:
		fmt.Fprintf(&b, "%s %v %s\n", failStyle.Render("FAILED"), m.err, elapsed)
	default:
		fmt.Fprintf(&b, "%s %s\n", okStyle.Render("OK"), elapsed)
	}
	for _, d := range m.details {
		b.WriteString(detailStyle.Render("• "+d) + "\n")
	}
	return b.String()
}

// Run executes action behind a progress view and returns its result once the
// program exits. timeout bounds the action when positive.
func Run(ctx context.Context, title string, timeout time.Duration, action func(context.Context) ([]string, error)) ([]string, error) {
	p := tea.NewProgram(newModel(ctx, title, timeout, action), tea.WithContext(ctx))
	final, err := p.Run()
	if err != nil {
		return nil, err
	}
	res := final.(model)
	return res.details, res.err
}
