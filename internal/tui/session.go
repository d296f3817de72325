// Package tui renders the live session view for a replay run.
//
// While a run is active the view doubles as the lock screen: it tells the
// operator to keep hands off mouse and keyboard, and keeps the abort keys
// armed the whole time.
package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/KevymLuccas/hbmxml/internal/domain/key"
	"github.com/KevymLuccas/hbmxml/internal/domain/model"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#1E6F50")).
			Padding(0, 1)

	lockStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#B33A3A")).
			Padding(0, 1)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#3A7CA5")).
			Padding(0, 2)

	okStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575")).Bold(true)
	failStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true)
	dimStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#777777"))
)

const progressWidth = 40

// eventMsg wraps one session event.
type eventMsg model.Event

// streamClosedMsg signals the end of the event stream.
type streamClosedMsg struct{}

// SessionModel is the bubbletea model for one replay run.
type SessionModel struct {
	events <-chan model.Event
	abort  func()

	total     int
	processed int
	succeeded int
	failed    int

	currentKey     string
	currentStep    int
	currentAttempt int
	lastMessage    string

	aborting bool
	width    int
}

// NewSession creates the session view. abort is invoked when the operator
// presses an abort key; the run winding down closes events and ends the
// program.
func NewSession(total int, events <-chan model.Event, abort func()) SessionModel {
	return SessionModel{events: events, abort: abort, total: total}
}

func (m SessionModel) Init() tea.Cmd {
	return m.waitForEvent()
}

func (m SessionModel) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		e, ok := <-m.events
		if !ok {
			return streamClosedMsg{}
		}
		return eventMsg(e)
	}
}

func (m SessionModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "esc", "ctrl+c", "q":
			if !m.aborting {
				m.aborting = true
				if m.abort != nil {
					m.abort()
				}
			}
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width

	case eventMsg:
		m.apply(model.Event(msg))
		return m, m.waitForEvent()

	case streamClosedMsg:
		return m, tea.Quit
	}
	return m, nil
}

// apply folds one event into the view state.
func (m *SessionModel) apply(e model.Event) {
	switch e.Kind {
	case model.EventClick:
		m.currentKey = e.Key
		m.currentStep = e.Step
		m.currentAttempt = e.Attempt
	case model.EventAttempt:
		m.currentAttempt = e.Attempt
	case model.EventKeyDone:
		m.processed++
		m.currentStep = 0
		switch e.Outcome {
		case model.OutcomeSuccess:
			m.succeeded++
		case model.OutcomeFailure:
			m.failed++
		}
	case model.EventRunState:
		m.lastMessage = e.Message
	}
}

func (m SessionModel) View() string {
	var b strings.Builder

	b.WriteString(headerStyle.Render("NFe XML retrieval"))
	b.WriteString("\n")
	if m.aborting {
		b.WriteString(lockStyle.Render("ABORTING - finishing current step"))
	} else {
		b.WriteString(lockStyle.Render("SCREEN LOCKED - hands off mouse and keyboard | abort: esc"))
	}
	b.WriteString("\n\n")

	status := fmt.Sprintf("%s\n%s  %d/%d keys\n\n%s %s\n%s %s\n",
		m.progressBar(),
		dimStyle.Render("progress:"),
		m.processed, m.total,
		okStyle.Render(fmt.Sprintf("%d ok", m.succeeded)),
		failStyle.Render(fmt.Sprintf("%d failed", m.failed)),
		dimStyle.Render("current:"),
		m.currentLine(),
	)
	b.WriteString(boxStyle.Render(status))
	b.WriteString("\n")

	if m.lastMessage != "" {
		b.WriteString(dimStyle.Render(m.lastMessage))
		b.WriteString("\n")
	}
	return b.String()
}

// currentLine describes the key being worked on.
func (m SessionModel) currentLine() string {
	if m.currentKey == "" {
		return "waiting"
	}
	line := key.Key(m.currentKey).Masked()
	if m.currentStep > 0 {
		line += fmt.Sprintf("  step %d/%d (%s)  attempt %d",
			m.currentStep, model.StepCount, model.StepLabel(m.currentStep), m.currentAttempt)
	}
	return line
}

func (m SessionModel) progressBar() string {
	filled := 0
	if m.total > 0 {
		filled = m.processed * progressWidth / m.total
	}
	if filled > progressWidth {
		filled = progressWidth
	}
	return okStyle.Render(strings.Repeat("█", filled)) +
		dimStyle.Render(strings.Repeat("░", progressWidth-filled))
}
