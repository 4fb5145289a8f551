package tui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func typeText(t *testing.T, m questionModel, text string) questionModel {
	t.Helper()
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
	qm, ok := next.(questionModel)
	require.True(t, ok)
	return qm
}

func pressEnter(t *testing.T, m questionModel) (questionModel, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	qm, ok := next.(questionModel)
	require.True(t, ok)
	return qm, cmd
}

func TestQuestionModel_SubmitsTrimmedQuestion(t *testing.T) {
	t.Parallel()

	m := typeText(t, newQuestionModel(), "  How do LSM trees work?  ")
	m, cmd := pressEnter(t, m)

	assert.Equal(t, "How do LSM trees work?", m.value)
	assert.False(t, m.quit)
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestQuestionModel_EmptyInputWarns(t *testing.T) {
	t.Parallel()

	m, cmd := pressEnter(t, newQuestionModel())
	assert.Nil(t, cmd)
	assert.Empty(t, m.value)
	assert.Equal(t, "Please enter a question.", m.warning)
	assert.Contains(t, m.View(), "Please enter a question.")
}

func TestQuestionModel_QuitWords(t *testing.T) {
	t.Parallel()

	for _, word := range []string{"quit", "EXIT", "q"} {
		m := typeText(t, newQuestionModel(), word)
		m, _ = pressEnter(t, m)
		assert.True(t, m.quit, word)
		assert.Empty(t, m.value)
	}
}

func TestQuestionModel_EscQuits(t *testing.T) {
	t.Parallel()

	next, _ := newQuestionModel().Update(tea.KeyMsg{Type: tea.KeyEsc})
	m, ok := next.(questionModel)
	require.True(t, ok)
	assert.True(t, m.quit)
}

func TestIsQuitWord(t *testing.T) {
	t.Parallel()

	assert.True(t, IsQuitWord(" Quit "))
	assert.False(t, IsQuitWord("quitting time"))
}
