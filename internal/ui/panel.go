// internal/ui/panel.go
package ui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"tunnins-service/internal/driver/tunnins"
	"tunnins-service/internal/model"
	"tunnins-service/internal/service"
)

// Styles for the panel
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170")).
			MarginBottom(1)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			MarginTop(1)

	okStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("42"))

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	actionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("170")).
			Bold(true)
)

const (
	DefaultPollInterval = time.Second
	maxColumn           = 99
)

// PanelAction is one entry of the action menu
type PanelAction struct {
	Key      string
	Label    string
	ActionID string
	UsesCell bool
}

// StatusFunc returns the current instance status
type StatusFunc func() *service.StatusResponse

// ActionFunc executes an action on the device
type ActionFunc func(actionID string, options map[string]string) (*model.CommandRecord, error)

// Model is the Bubble Tea model of the control panel
type Model struct {
	status       *service.StatusResponse
	statusFunc   StatusFunc
	actionFunc   ActionFunc
	pollInterval time.Duration

	row    byte
	column int

	actions  []PanelAction
	selected int

	message    string
	messageErr bool
	width      int
	height     int
	quitting   bool
}

// NewModel creates a new panel model
func NewModel(statusFunc StatusFunc, actionFunc ActionFunc, pollInterval time.Duration) Model {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}

	m := Model{
		statusFunc:   statusFunc,
		actionFunc:   actionFunc,
		pollInterval: pollInterval,
		row:          tunnins.DefaultRow[0],
		column:       1,
		message:      "Ready",
		actions: []PanelAction{
			{Key: "s", Label: "Start", ActionID: tunnins.ActionStart, UsesCell: true},
			{Key: "x", Label: "Stop", ActionID: tunnins.ActionStop, UsesCell: true},
			{Key: "c", Label: "Cut", ActionID: tunnins.ActionCut, UsesCell: true},
			{Key: "1", Label: "Global Start", ActionID: tunnins.ActionGlobalStart},
			{Key: "2", Label: "Global Stop", ActionID: tunnins.ActionGlobalStop},
			{Key: "3", Label: "Global Cut", ActionID: tunnins.ActionGlobalCut},
			{Key: "4", Label: "Status Reply", ActionID: tunnins.ActionGlobalStatusReply},
		},
	}
	if statusFunc != nil {
		m.status = statusFunc()
	}
	return m
}

// Message types
type tickMsg time.Time

type statusMsg struct {
	status *service.StatusResponse
}

type actionResultMsg struct {
	label  string
	record *model.CommandRecord
	err    error
}

// Init starts status polling
func (m Model) Init() tea.Cmd {
	return tick(m.pollInterval)
}

func tick(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// pollStatus creates a command that reads the instance status
func pollStatus(fn StatusFunc) tea.Cmd {
	return func() tea.Msg {
		if fn == nil {
			return nil
		}
		return statusMsg{status: fn()}
	}
}

// doAction creates a command that executes an action
func doAction(fn ActionFunc, action PanelAction, options map[string]string) tea.Cmd {
	return func() tea.Msg {
		if fn == nil {
			return actionResultMsg{label: action.Label, err: fmt.Errorf("actions not available")}
		}
		record, err := fn(action.ActionID, options)
		return actionResultMsg{label: action.Label, record: record, err: err}
	}
}

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		key := msg.String()
		switch key {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit

		case "up", "k":
			if m.selected > 0 {
				m.selected--
			}
			return m, nil

		case "down", "j":
			if m.selected < len(m.actions)-1 {
				m.selected++
			}
			return m, nil

		case "left", "h":
			if m.column > 1 {
				m.column--
			}
			return m, nil

		case "right", "l":
			if m.column < maxColumn {
				m.column++
			}
			return m, nil

		case "pgup", "[":
			if m.row > 'A' {
				m.row--
			}
			return m, nil

		case "pgdown", "]":
			if m.row < 'Z' {
				m.row++
			}
			return m, nil

		case "enter", " ":
			if m.selected < len(m.actions) {
				return m.execute(m.actions[m.selected])
			}
			return m, nil
		}

		for _, action := range m.actions {
			if action.Key == key {
				return m.execute(action)
			}
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tickMsg:
		return m, tea.Batch(pollStatus(m.statusFunc), tick(m.pollInterval))

	case statusMsg:
		m.status = msg.status
		return m, nil

	case actionResultMsg:
		switch {
		case msg.err != nil:
			m.message = formatActionError(msg.label, msg.err)
			m.messageErr = true
		case msg.record != nil && msg.record.Status == model.CommandStatusSkipped:
			m.message = fmt.Sprintf("%s: nothing to send", msg.label)
			m.messageErr = false
		case msg.record != nil:
			m.message = fmt.Sprintf("Sent %s", msg.record.Command)
			m.messageErr = false
		default:
			m.message = fmt.Sprintf("%s done", msg.label)
			m.messageErr = false
		}
		return m, pollStatus(m.statusFunc)
	}

	return m, nil
}

// execute runs an action with the selected cell when it needs one
func (m Model) execute(action PanelAction) (tea.Model, tea.Cmd) {
	var options map[string]string
	if action.UsesCell {
		options = map[string]string{
			tunnins.OptionRow:    string(m.row),
			tunnins.OptionColumn: strconv.Itoa(m.column),
		}
	}

	m.message = fmt.Sprintf("%s...", action.Label)
	m.messageErr = false
	return m, doAction(m.actionFunc, action, options)
}

// formatActionError keeps the innermost error message short enough for the status line
func formatActionError(label string, err error) string {
	errStr := err.Error()
	if idx := strings.LastIndex(errStr, ": "); idx != -1 {
		errStr = strings.TrimSpace(errStr[idx+2:])
	}

	maxLen := 60
	if len(errStr) > maxLen {
		errStr = errStr[:maxLen-3] + "..."
	}

	return fmt.Sprintf("%s failed: %s", label, errStr)
}

// View renders the panel
func (m Model) View() string {
	if m.quitting {
		return "Goodbye!\n"
	}

	title := titleStyle.Render("TunninS Control Panel")

	var message string
	if m.messageErr {
		message = errorStyle.Render(m.message)
	} else {
		message = okStyle.Render(m.message)
	}

	help := helpStyle.Render("q: quit • ↑/↓: navigate • enter: run • ←/→: column • [/]: row")

	return fmt.Sprintf("%s\n\n%s\n%s\n%s\n\n%s", title, m.renderStatus(), m.renderActions(), message, help)
}

// renderStatus renders the connection block
func (m Model) renderStatus() string {
	lines := []string{}

	if m.status == nil {
		lines = append(lines, infoStyle.Render("Status:      unknown"))
	} else {
		level := m.status.Status.Level
		text := string(level)
		if m.status.Status.Message != "" {
			text += " (" + m.status.Status.Message + ")"
		}
		lines = append(lines, infoStyle.Render("Status:      ")+levelStyle(level).Render(text))

		address := m.status.Address
		if address == "" || strings.HasPrefix(address, ":") {
			address = "(not set)"
		}
		lines = append(lines, infoStyle.Render(fmt.Sprintf("Device:      %s %s", m.status.Transport, address)))
		lines = append(lines, infoStyle.Render(fmt.Sprintf("Line ending: %s", m.status.LineEnding)))
		lines = append(lines, infoStyle.Render(fmt.Sprintf("Sent:        %d bytes", m.status.Stats.BytesWritten)))
	}

	lines = append(lines, infoStyle.Render(fmt.Sprintf("Cell:        [%c%d]", m.row, m.column)))

	return strings.Join(lines, "\n") + "\n"
}

func levelStyle(level model.StatusLevel) lipgloss.Style {
	switch level {
	case model.StatusOK:
		return okStyle
	case model.StatusWarning:
		return warnStyle
	case model.StatusError:
		return errorStyle
	default:
		return infoStyle
	}
}

// renderActions renders the action menu
func (m Model) renderActions() string {
	var b strings.Builder
	b.WriteString(actionStyle.Render("Actions:") + "\n")

	for i, action := range m.actions {
		prefix := "  "
		style := infoStyle
		if i == m.selected {
			prefix = "> "
			style = selectedStyle
		}
		label := action.Label
		if action.UsesCell {
			label = fmt.Sprintf("%s [%c%d]", action.Label, m.row, m.column)
		}
		b.WriteString(style.Render(fmt.Sprintf("%s[%s] %s", prefix, action.Key, label)) + "\n")
	}

	return b.String()
}

// RunPanel starts the Bubble Tea program
func RunPanel(statusFunc StatusFunc, actionFunc ActionFunc, pollInterval time.Duration) error {
	p := tea.NewProgram(
		NewModel(statusFunc, actionFunc, pollInterval),
		tea.WithAltScreen(),
	)

	_, err := p.Run()
	return err
}
