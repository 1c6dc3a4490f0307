// Package ui renders session status: a Bubble Tea view for interactive use
// and a plain line renderer for headless runs.
package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/chaz8081/bluno-link/internal/session"
)

// Actions are the user commands the view can issue. Each reports whether
// the command was accepted.
type Actions interface {
	Send() bool
	Rescan() bool
}

// StatusMsg carries one status from the controller into the program.
type StatusMsg struct {
	Status session.Status
}

// ClosedMsg signals that the status stream ended.
type ClosedMsg struct{}

// Model is the root Bubble Tea model.
type Model struct {
	actions Actions
	title   string
	spinner spinner.Model

	status    session.Status
	lastValue uint16
	hasValue  bool
	sent      int
	notice    string
	quitting  bool
}

// NewModel creates the view. title is shown in the header.
func NewModel(title string, actions Actions) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = spinnerStyle
	return Model{
		actions: actions,
		title:   title,
		spinner: s,
	}
}

// Init starts the spinner.
func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update handles status updates and key presses.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case StatusMsg:
		m.status = msg.Status
		if msg.Status.HasValue {
			m.lastValue = msg.Status.Value
			m.hasValue = true
		}
		if !msg.Status.State.InSession() {
			m.hasValue = false
		}
		return m, nil

	case ClosedMsg:
		m.quitting = true
		return m, tea.Quit

	case tea.KeyMsg:
		return m.handleKey(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		m.quitting = true
		return m, tea.Quit
	case " ", "space", "s", "enter":
		if m.actions == nil {
			return m, nil
		}
		if m.actions.Send() {
			m.sent++
			m.notice = fmt.Sprintf("command queued (%d sent)", m.sent)
		} else {
			m.notice = "command not queued"
		}
	case "r":
		if m.actions == nil {
			return m, nil
		}
		if m.actions.Rescan() {
			m.notice = "rescan requested"
		} else {
			m.notice = "rescan not queued"
		}
	}
	return m, nil
}

// View renders the status panel.
func (m Model) View() string {
	if m.quitting {
		return "Goodbye!\n"
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(m.title))
	b.WriteString("\n\n")

	line := m.statusLine()
	if busy(m.status.State) {
		line = m.spinner.View() + " " + line
	}
	b.WriteString(line)
	b.WriteString("\n")

	if m.status.Device.ID != "" && m.status.State.InSession() {
		b.WriteString(mutedStyle.Render("device  " + m.status.Device.ID))
		b.WriteString("\n")
	}
	if m.status.SessionID != "" {
		b.WriteString(mutedStyle.Render("session " + m.status.SessionID))
		b.WriteString("\n")
	}
	if m.hasValue {
		b.WriteString("reading " + valueStyle.Render(fmt.Sprintf("%d", m.lastValue)))
		b.WriteString("\n")
	}
	if m.notice != "" {
		b.WriteString(mutedStyle.Render(m.notice))
		b.WriteString("\n")
	}

	panel := panelStyle.Render(strings.TrimRight(b.String(), "\n"))
	return panel + "\n" + hints() + "\n"
}

func (m Model) statusLine() string {
	text := m.status.Text()
	switch {
	case m.status.State == session.Unavailable:
		return errorStyle.Render(text)
	case m.status.Err != nil:
		return warnStyle.Render(text)
	case m.status.State == session.Ready:
		return okStyle.Render(text)
	default:
		return text
	}
}

func busy(s session.State) bool {
	switch s {
	case session.Scanning, session.Connecting, session.DiscoveringServices,
		session.DiscoveringCharacteristics, session.SubscribingNotifications:
		return true
	}
	return false
}

func hints() string {
	keys := []struct{ key, desc string }{
		{"space", "send"},
		{"r", "rescan"},
		{"q", "quit"},
	}
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, keyStyle.Render(k.key)+": "+k.desc)
	}
	return mutedStyle.Render("  ") + strings.Join(parts, "  |  ")
}
