package model

import "sort"

// DefaultDailyTarget is the number of tasks per day a goal asks for when
// the user has not set one.
const DefaultDailyTarget = 3

// Goal tracks a per-category daily target and its weekly streak.
type Goal struct {
	// ID is empty while the goal has not been created on the server.
	ID string `json:"id"`

	Category    Category `json:"category"`
	DailyTarget int      `json:"daily_target"`

	// WeeklyStreak counts consecutive completed weeks. It is computed by
	// the server and only surfaced here.
	WeeklyStreak int `json:"weekly_streak"`

	// CurrentWeekDaysCompleted holds Monday-based weekday indices (0-6)
	// that already met the daily target this week.
	CurrentWeekDaysCompleted []int `json:"current_week_days_completed"`

	LastCompletedDate *Date `json:"last_completed_date"`
	StreakStartedAt   *Date `json:"streak_started_at"`
}

// DefaultGoal returns the goal synthesized for a category with no stored goal.
func DefaultGoal(c Category) Goal {
	return Goal{
		Category:                 c,
		DailyTarget:              DefaultDailyTarget,
		CurrentWeekDaysCompleted: []int{},
	}
}

// Persisted reports whether the goal exists on the server.
func (g *Goal) Persisted() bool {
	return g.ID != ""
}

// Clone returns a deep copy of g.
func (g Goal) Clone() Goal {
	c := g
	c.CurrentWeekDaysCompleted = NormalizeWeekdays(g.CurrentWeekDaysCompleted)
	if g.LastCompletedDate != nil {
		d := *g.LastCompletedDate
		c.LastCompletedDate = &d
	}
	if g.StreakStartedAt != nil {
		d := *g.StreakStartedAt
		c.StreakStartedAt = &d
	}
	return c
}

// NormalizeWeekdays returns the valid (0-6), deduplicated weekday indices
// of days in ascending order. It never returns nil.
func NormalizeWeekdays(days []int) []int {
	seen := make(map[int]bool, len(days))
	out := make([]int, 0, len(days))
	for _, d := range days {
		if d < 0 || d > 6 || seen[d] {
			continue
		}
		seen[d] = true
		out = append(out, d)
	}
	sort.Ints(out)
	return out
}
