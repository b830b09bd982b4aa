// Package tui holds the interactive pieces of the CLI.
package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	promptStyle = lipgloss.NewStyle().Bold(true)
	detailStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	inputStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

// ConfirmModel is a yes/no prompt shown before the upload phase.
type ConfirmModel struct {
	prompt   string
	details  []string
	input    textinput.Model
	accepted bool
	done     bool
}

// NewConfirm creates a confirmation prompt with optional detail lines
// rendered under the question.
func NewConfirm(prompt string, details ...string) ConfirmModel {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "yes / no"
	ti.Focus()
	ti.CharLimit = 8
	return ConfirmModel{prompt: prompt, details: details, input: ti}
}

// Init starts the text input cursor blink.
func (m ConfirmModel) Init() tea.Cmd { return textinput.Blink }

// Update handles keys; enter resolves the answer, ctrl+c declines.
func (m ConfirmModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			m.done = true
			m.accepted = false
			return m, tea.Quit
		}
		if msg.String() == "enter" {
			answer := strings.ToLower(strings.TrimSpace(m.input.Value()))
			m.accepted = answer == "yes" || answer == "y"
			m.done = true
			return m, tea.Quit
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the prompt, details, and input box.
func (m ConfirmModel) View() string {
	if m.done {
		return ""
	}
	var b strings.Builder
	b.WriteString(promptStyle.Render(m.prompt))
	b.WriteString("\n")
	for _, d := range m.details {
		b.WriteString(detailStyle.Render("  " + d))
		b.WriteString("\n")
	}
	b.WriteString(inputStyle.Render(m.input.View()))
	b.WriteString("\n")
	return b.String()
}

// Accepted reports the user's answer after the program finished.
func (m ConfirmModel) Accepted() bool { return m.accepted }

// Confirm runs the prompt and returns whether the user accepted.
func Confirm(prompt string, details ...string) (bool, error) {
	res, err := tea.NewProgram(NewConfirm(prompt, details...)).Run()
	if err != nil {
		return false, err
	}
	m, ok := res.(ConfirmModel)
	if !ok {
		return false, nil
	}
	return m.Accepted(), nil
}
