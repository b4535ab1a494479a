package store

import (
	"time"

	"github.com/nhle/studytrack/internal/model"
)

// WeekProgress returns the Monday-based weekday indices of now's calendar
// week, up to and including today, on which at least target tasks were
// completed according to history.
func WeekProgress(target int, history map[model.Date]int, now time.Time) []int {
	days := []int{}
	if target <= 0 {
		return days
	}
	today := model.DateOf(now)
	start := today.WeekStart()
	for i := 0; i < 7; i++ {
		day := start.AddDays(i)
		if today.Before(day) {
			break
		}
		if history[day] >= target {
			days = append(days, i)
		}
	}
	return days
}

// ComputeStreak counts consecutive calendar weeks in which every day met
// target. Counting starts at the last finished week and walks backwards
// until the first week that falls short; the current week is added when
// it is already fully satisfied.
func ComputeStreak(target int, history map[model.Date]int, now time.Time) int {
	if target <= 0 {
		return 0
	}
	current := model.DateOf(now).WeekStart()

	streak := 0
	for week := current.AddDays(-7); weekSatisfied(target, history, week); week = week.AddDays(-7) {
		streak++
	}
	if weekSatisfied(target, history, current) {
		streak++
	}
	return streak
}

func weekSatisfied(target int, history map[model.Date]int, monday model.Date) bool {
	for i := 0; i < 7; i++ {
		if history[monday.AddDays(i)] < target {
			return false
		}
	}
	return true
}
