package store

import (
	"time"

	"github.com/nhle/studytrack/internal/model"
)

// Find returns a copy of task id from the snapshot.
func (st TaskState) Find(id string) (model.Task, bool) {
	for _, t := range st.Tasks {
		if t.ID == id {
			return t.Clone(), true
		}
	}
	return model.Task{}, false
}

// ByCategory returns the snapshot's tasks of category c in order.
func (st TaskState) ByCategory(c model.Category) []model.Task {
	return byCategory(st.Tasks, c)
}

// CompletedCount returns how many of the snapshot's tasks of category c
// are completed.
func (st TaskState) CompletedCount(c model.Category) int {
	return countTasks(st.Tasks, c, true)
}

// TotalCount returns how many of the snapshot's tasks belong to c.
func (st TaskState) TotalCount(c model.Category) int {
	return countTasks(st.Tasks, c, false)
}

// CompletionHistory counts the snapshot's completed tasks of category c
// per calendar day in loc.
func (st TaskState) CompletionHistory(c model.Category, loc *time.Location) map[model.Date]int {
	return completionHistory(st.Tasks, c, loc)
}

// Goal returns the snapshot's goal for c, or the default when the user
// has none.
func (st GoalState) Goal(c model.Category) model.Goal {
	for _, g := range st.Goals {
		if g.Category == c {
			return g.Clone()
		}
	}
	return model.DefaultGoal(c)
}

func byCategory(tasks []model.Task, c model.Category) []model.Task {
	out := []model.Task{}
	for _, t := range tasks {
		if t.Category == c {
			out = append(out, t.Clone())
		}
	}
	return out
}

func countTasks(tasks []model.Task, c model.Category, completedOnly bool) int {
	n := 0
	for _, t := range tasks {
		if t.Category == c && (!completedOnly || t.Completed) {
			n++
		}
	}
	return n
}

func completionHistory(tasks []model.Task, c model.Category, loc *time.Location) map[model.Date]int {
	history := make(map[model.Date]int)
	for _, t := range tasks {
		if t.Category == c && t.Completed {
			history[model.DateOf(t.UpdatedAt.In(loc))]++
		}
	}
	return history
}
