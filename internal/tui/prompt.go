// Package tui provides the interactive question prompt.
package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ErrQuit is returned when the user asks to leave the prompt.
var ErrQuit = errors.New("quit requested")

var (
	labelStyle   = lipgloss.NewStyle().Bold(true)
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	hintStyle    = lipgloss.NewStyle().Faint(true)
)

// IsQuitWord reports whether the input ends the session.
func IsQuitWord(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "quit", "exit", "q":
		return true
	default:
		return false
	}
}

type questionModel struct {
	input   textinput.Model
	value   string
	quit    bool
	warning string
}

func newQuestionModel() questionModel {
	ti := textinput.New()
	ti.Placeholder = "What would you like to research?"
	ti.Prompt = "> "
	ti.CharLimit = 4000
	ti.Width = 80
	ti.Focus()
	return questionModel{input: ti}
}

func (m questionModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m questionModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.quit = true
			return m, tea.Quit
		case tea.KeyEnter:
			value := strings.TrimSpace(m.input.Value())
			if value == "" {
				m.warning = "Please enter a question."
				return m, nil
			}
			if IsQuitWord(value) {
				m.quit = true
				return m, tea.Quit
			}
			m.value = value
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m questionModel) View() string {
	if m.value != "" || m.quit {
		return ""
	}
	var b strings.Builder
	b.WriteString(labelStyle.Render("Research question"))
	b.WriteString(" ")
	b.WriteString(hintStyle.Render("(quit, exit or q to leave)"))
	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n")
	if m.warning != "" {
		b.WriteString(warningStyle.Render(m.warning))
		b.WriteString("\n")
	}
	return b.String()
}

// PromptQuestion reads one question from the terminal.
// It returns ErrQuit when the user leaves.
func PromptQuestion(ctx context.Context, in io.Reader, out io.Writer) (string, error) {
	p := tea.NewProgram(newQuestionModel(),
		tea.WithContext(ctx),
		tea.WithInput(in),
		tea.WithOutput(out),
	)
	final, err := p.Run()
	if err != nil {
		return "", fmt.Errorf("run question prompt: %w", err)
	}
	m, ok := final.(questionModel)
	if !ok {
		return "", fmt.Errorf("unexpected prompt model %T", final)
	}
	if m.quit {
		return "", ErrQuit
	}
	return m.value, nil
}
