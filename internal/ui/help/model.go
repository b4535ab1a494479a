package help

import (
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/studytrack/internal/keys"
	"github.com/nhle/studytrack/internal/model"
	"github.com/nhle/studytrack/internal/theme"
)

// Model is the help overlay: every key binding plus a legend of the
// tracked categories.
type Model struct {
	keys  *keys.KeyMap
	help  help.Model
	width int
}

// New creates a new help overlay.
func New(k *keys.KeyMap, width int) Model {
	h := help.New()
	h.ShowAll = true
	m := Model{keys: k, help: h}
	m.SetWidth(width)
	return m
}

// SetWidth updates the overlay width.
func (m *Model) SetWidth(width int) {
	m.width = width
	m.help.Width = max(width-4, 0)
}

// View renders the overlay.
func (m Model) View() string {
	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		Render("Keyboard Shortcuts")

	var legend strings.Builder
	for i, c := range model.Categories {
		if i > 0 {
			legend.WriteString("  ")
		}
		legend.WriteString(theme.CategoryStyle(c).Render("■ " + c.Label()))
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		title,
		"",
		m.help.View(m.keys),
		"",
		theme.HelpStyle.Render("Daily goals count tasks completed today. Streaks marked (estimated) are computed locally."),
		legend.String(),
	)

	return theme.PanelStyle.
		Width(max(m.width-2, 0)).
		Render(content)
}
