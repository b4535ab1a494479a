package app

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/studytrack/internal/model"
	"github.com/nhle/studytrack/internal/store"
	"github.com/nhle/studytrack/internal/theme"
)

// goalPanelHeight is the rendered height of the goal panel, borders included.
const goalPanelHeight = 4

var weekdayLabels = [7]string{"M", "T", "W", "T", "F", "S", "S"}

// renderGoalPanel shows today's progress against the daily goal, the
// weekly strip and the streak of the active category.
func (m Model) renderGoalPanel() string {
	c := m.activeCategory()
	g := m.currentGoal()
	now := m.now()
	history := m.tasks.CompletionHistory(c, now.Location())
	streak := m.sess.Goals.Streak(c, history, now)

	today := history[model.DateOf(now)]
	progress := fmt.Sprintf("%s  %d/%d today", theme.CategoryStyle(c).Render(c.Label()), today, g.DailyTarget)

	line2 := renderWeek(streak.DaysCompleted, model.WeekdayIndex(now)) + "  " + renderStreak(streak)

	return theme.PanelStyle.
		Width(m.layout.ContentWidth() - 2).
		Render(lipgloss.JoinVertical(lipgloss.Left, progress, line2))
}

// renderWeek draws Monday to Sunday, highlighting days that met the goal
// and underlining today.
func renderWeek(done []int, today int) string {
	met := make(map[int]bool, len(done))
	for _, d := range done {
		met[d] = true
	}

	cells := make([]string, len(weekdayLabels))
	for i, label := range weekdayLabels {
		style := theme.WeekdayStyle(met[i])
		if i == today {
			style = style.Underline(true)
		}
		cells[i] = style.Render(label)
	}
	return strings.Join(cells, " ")
}

func renderStreak(s store.StreakView) string {
	unit := "weeks"
	if s.Value == 1 {
		unit = "week"
	}
	text := fmt.Sprintf("streak %d %s", s.Value, unit)
	if s.Source == store.StreakPlaceholder {
		text += " (estimated)"
	}
	return theme.StreakStyle(s.Source == store.StreakServer).Render(text)
}
