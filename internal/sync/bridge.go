package sync

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/studytrack/internal/model"
	"github.com/nhle/studytrack/internal/store"
)

// TasksMsg carries a task snapshot into a Bubble Tea program.
type TasksMsg store.TaskState

// GoalsMsg carries a goal snapshot into a Bubble Tea program.
type GoalsMsg store.GoalState

// NotificationMsg carries an action outcome into a Bubble Tea program.
type NotificationMsg model.Notification

// WatchTasks returns a tea.Cmd that waits for the next task snapshot.
// Re-issue it after each TasksMsg. It yields nil once ch is closed.
func WatchTasks(ch <-chan store.TaskState) tea.Cmd {
	return func() tea.Msg {
		st, ok := <-ch
		if !ok {
			return nil
		}
		return TasksMsg(st)
	}
}

// WatchGoals returns a tea.Cmd that waits for the next goal snapshot.
func WatchGoals(ch <-chan store.GoalState) tea.Cmd {
	return func() tea.Msg {
		st, ok := <-ch
		if !ok {
			return nil
		}
		return GoalsMsg(st)
	}
}

// WatchNotifications returns a tea.Cmd that waits for the next notification.
func WatchNotifications(ch <-chan model.Notification) tea.Cmd {
	return func() tea.Msg {
		n, ok := <-ch
		if !ok {
			return nil
		}
		return NotificationMsg(n)
	}
}
