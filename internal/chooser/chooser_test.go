package chooser

import (
	"os"
	"path/filepath"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// load runs the picker's directory read so the listing is populated.
func load(t *testing.T, m Model) Model {
	t.Helper()
	cmd := m.Init()
	require.NotNil(t, cmd)
	next, _ := m.Update(cmd())
	return next.(Model)
}

func TestPickCurrentDirectory(t *testing.T) {
	dir := t.TempDir()
	m := load(t, NewModel(dir))

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("s")})
	require.NotNil(t, cmd)
	chosen, ok := next.(Model).Chosen()
	require.True(t, ok)
	assert.Equal(t, dir, chosen)
	assert.Empty(t, next.View())
}

func TestPickHighlightedSubdirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "alpha"), 0755))
	m := load(t, NewModel(dir))
	assert.Contains(t, m.View(), "alpha")

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	chosen, ok := next.(Model).Chosen()
	require.True(t, ok)
	assert.Equal(t, filepath.Join(dir, "alpha"), chosen)
}

func TestCancel(t *testing.T) {
	m := load(t, NewModel(t.TempDir()))

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	_, ok := next.(Model).Chosen()
	assert.False(t, ok)
}
