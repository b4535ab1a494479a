package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/studytrack/internal/model"
	"github.com/nhle/studytrack/internal/theme"
)

// Layout manages the dashboard layout dimensions.
type Layout struct {
	Width           int
	Height          int
	HeaderHeight    int
	TabsHeight      int
	StatusBarHeight int
}

// NewLayout creates a Layout with the given terminal dimensions.
// Header, tab row and status bar take one line each.
func NewLayout(width, height int) Layout {
	return Layout{
		Width:           width,
		Height:          height,
		HeaderHeight:    1,
		TabsHeight:      1,
		StatusBarHeight: 1,
	}
}

// ContentWidth returns the full available width.
func (l Layout) ContentWidth() int {
	return l.Width
}

// ContentHeight returns the height available for the main content area.
func (l Layout) ContentHeight() int {
	h := l.Height - l.HeaderHeight - l.TabsHeight - l.StatusBarHeight
	if h < 0 {
		return 0
	}
	return h
}

// fill pads rendered to the full width using style's background.
func (l Layout) fill(rendered string, style lipgloss.Style) string {
	gap := l.Width - lipgloss.Width(rendered)
	if gap <= 0 {
		return rendered
	}
	filler := lipgloss.NewStyle().
		Width(gap).
		Background(style.GetBackground()).
		Render("")
	return lipgloss.JoinHorizontal(lipgloss.Top, rendered, filler)
}

// RenderHeader renders the top header bar with a title and sync status.
func (l Layout) RenderHeader(title string, syncStatus string) string {
	titleRendered := theme.HeaderStyle.Render(title)

	statusRendered := theme.HeaderStyle.
		Align(lipgloss.Right).
		Render(syncStatus)

	gap := l.Width -
		lipgloss.Width(titleRendered) -
		lipgloss.Width(statusRendered)
	if gap < 0 {
		gap = 0
	}

	filler := theme.HeaderStyle.Render(
		lipgloss.NewStyle().
			Width(gap).
			Background(theme.HeaderStyle.GetBackground()).
			Render(""),
	)

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		titleRendered,
		filler,
		statusRendered,
	)
}

// RenderTabs renders one tab per category with its completion count.
func (l Layout) RenderTabs(active model.Category, label func(model.Category) string) string {
	tabs := make([]string, 0, len(model.Categories))
	for _, c := range model.Categories {
		text := label(c)
		if c == active {
			tabs = append(tabs, theme.ActiveTabStyle.Render(text))
			continue
		}
		tabs = append(tabs, theme.TabStyle.Render(text))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

// RenderStatusBar renders the bottom status bar. A notification, when
// present, takes precedence over the key hints.
func (l Layout) RenderStatusBar(hints string, note *model.Notification) string {
	if note != nil {
		text := note.Title
		if note.Message != "" {
			text += ": " + note.Message
		}
		text = strings.ReplaceAll(text, "\n", " ")
		return l.fill(theme.NotificationStyle(note.Level).Render(text), theme.StatusBarStyle)
	}
	return l.fill(theme.StatusBarStyle.Render(hints), theme.StatusBarStyle)
}

// RenderWithFrame composes a full terminal view by vertically joining
// the header, tabs, content area and status bar.
func (l Layout) RenderWithFrame(
	header string,
	tabs string,
	content string,
	statusBar string,
) string {
	content = lipgloss.NewStyle().
		Height(l.ContentHeight()).
		MaxHeight(l.ContentHeight()).
		Render(content)

	return lipgloss.JoinVertical(
		lipgloss.Left,
		header,
		tabs,
		content,
		statusBar,
	)
}
