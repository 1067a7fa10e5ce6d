package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/muurk/softap/internal/portal"
)

// maxHistory is the number of past events the watch view keeps
const maxHistory = 8

// EventSource yields portal state events
type EventSource interface {
	Next() (portal.EventMessage, error)
}

// EventMsg carries one event into the model
type EventMsg struct {
	Event portal.EventMessage
}

// StreamErrMsg reports that the event stream ended
type StreamErrMsg struct {
	Err error
}

// WatchModel follows a portal's state until it is configured
type WatchModel struct {
	Source  EventSource
	URL     string
	Spinner spinner.Model

	Current  *portal.StatusResponse
	History  []portal.EventMessage
	Err      error
	Done     bool
	Quitting bool
	Width    int
}

// NewWatchModel creates a watch model reading from src
func NewWatchModel(src EventSource, url string) WatchModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	return WatchModel{
		Source:  src,
		URL:     url,
		Spinner: s,
		Width:   GetTerminalWidth(),
	}
}

// waitForEvent reads the next event in a command goroutine
func waitForEvent(src EventSource) tea.Cmd {
	return func() tea.Msg {
		ev, err := src.Next()
		if err != nil {
			return StreamErrMsg{Err: err}
		}
		return EventMsg{Event: ev}
	}
}

// Init implements tea.Model
func (m WatchModel) Init() tea.Cmd {
	return tea.Batch(m.Spinner.Tick, waitForEvent(m.Source))
}

// Update implements tea.Model
func (m WatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			m.Quitting = true
			return m, tea.Quit
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.Width = clampWidth(msg.Width)
		return m, nil

	case EventMsg:
		status := msg.Event.Status
		m.Current = &status
		m.History = append(m.History, msg.Event)
		if len(m.History) > maxHistory {
			m.History = m.History[len(m.History)-maxHistory:]
		}
		if status.Configured {
			m.Done = true
			return m, tea.Quit
		}
		return m, waitForEvent(m.Source)

	case StreamErrMsg:
		m.Err = msg.Err
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.Spinner, cmd = m.Spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View implements tea.Model
func (m WatchModel) View() string {
	var b strings.Builder

	b.WriteString(HeaderTitleStyle.Render("WATCHING "+m.URL) + "\n\n")

	switch {
	case m.Current == nil:
		b.WriteString("  " + m.Spinner.View() + " waiting for portal state\n")
	case m.Done:
		b.WriteString("  " + SuccessTitleStyle.Render(SuccessMarker+" configured"))
		if m.Current.SSID != "" {
			b.WriteString(fmt.Sprintf(" on %s", m.Current.SSID))
		}
		if m.Current.ClientAddress != "" {
			b.WriteString(fmt.Sprintf(" as %s", m.Current.ClientAddress))
		}
		b.WriteString("\n")
	default:
		marker := RunningMarker
		if m.Current.State == "connecting" {
			marker = m.Spinner.View()
		}
		b.WriteString("  " + marker + " " + StateStyle(m.Current.State).Render(m.Current.State))
		if m.Current.State == "connecting" && m.Current.SSID != "" {
			b.WriteString(" to " + m.Current.SSID)
		}
		b.WriteString("\n")
	}

	if len(m.History) > 0 {
		b.WriteString("\n")
		for _, ev := range m.History {
			b.WriteString(HintStyle.Render(formatEvent(ev)) + "\n")
		}
	}

	if m.Err != nil {
		b.WriteString("\n" + ErrorMessageStyle.Render("  stream closed: "+m.Err.Error()) + "\n")
	}
	if !m.Done && m.Err == nil {
		b.WriteString("\n" + HintStyle.Render("  q to quit") + "\n")
	}
	return b.String()
}

// formatEvent renders one history line
func formatEvent(ev portal.EventMessage) string {
	if ev.From == "" {
		return fmt.Sprintf("  #%-3d %s", ev.Seq, ev.Status.State)
	}
	line := fmt.Sprintf("  #%-3d %s → %s", ev.Seq, ev.From, ev.Status.State)
	if ev.Detail != "" {
		line += "  " + ev.Detail
	}
	return line
}
