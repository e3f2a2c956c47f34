// Package chooser is the interactive directory picker used by
// "sentinel register" when no path is given.
package chooser

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/charmbracelet/bubbles/filepicker"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ErrCancelled is returned when the operator quits without choosing.
var ErrCancelled = errors.New("no directory chosen")

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4"))
	pathStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575"))
	helpStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// Model wraps a directory-only file picker.
type Model struct {
	picker    filepicker.Model
	chosen    string
	cancelled bool
}

// NewModel starts the picker at dir.
func NewModel(dir string) Model {
	fp := filepicker.New()
	fp.CurrentDirectory = dir
	fp.DirAllowed = true
	fp.FileAllowed = false
	fp.AutoHeight = false
	fp.Height = 15
	return Model{picker: fp}
}

func (m Model) Init() tea.Cmd {
	return m.picker.Init()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "ctrl+c", "q":
			m.cancelled = true
			return m, tea.Quit
		case "s", ".":
			m.chosen = m.picker.CurrentDirectory
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.picker, cmd = m.picker.Update(msg)
	if ok, path := m.picker.DidSelectFile(msg); ok {
		m.chosen = path
		return m, tea.Quit
	}
	return m, cmd
}

func (m Model) View() string {
	if m.chosen != "" || m.cancelled {
		return ""
	}
	return fmt.Sprintf("%s\n%s\n\n%s\n%s\n",
		titleStyle.Render("Choose a project directory"),
		pathStyle.Render(m.picker.CurrentDirectory),
		m.picker.View(),
		helpStyle.Render("enter: pick highlighted  s: pick current  h: up  q: cancel"))
}

// Chosen returns the selected directory, if any.
func (m Model) Chosen() (string, bool) {
	return m.chosen, m.chosen != ""
}

// ChooseDirectory runs the picker on in/out starting at start and returns
// the absolute directory the operator chose.
func ChooseDirectory(ctx context.Context, start string, in io.Reader, out io.Writer) (string, error) {
	abs, err := filepath.Abs(start)
	if err != nil {
		return "", err
	}

	opts := []tea.ProgramOption{tea.WithContext(ctx), tea.WithOutput(out)}
	if in != nil {
		opts = append(opts, tea.WithInput(in))
	}
	final, err := tea.NewProgram(NewModel(abs), opts...).Run()
	if err != nil {
		if ctx.Err() != nil {
			return "", ErrCancelled
		}
		return "", fmt.Errorf("directory chooser: %w", err)
	}

	m, ok := final.(Model)
	if !ok {
		return "", ErrCancelled
	}
	dir, ok := m.Chosen()
	if !ok {
		return "", ErrCancelled
	}
	return dir, nil
}
