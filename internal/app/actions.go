package app

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/studytrack/internal/logger"
	"github.com/nhle/studytrack/internal/model"
)

// actionTimeout bounds one store action started from the dashboard.
const actionTimeout = 30 * time.Second

// actionDoneMsg is sent after a store action has settled.
type actionDoneMsg struct {
	action string
	err    error
}

// clearNoteMsg hides notification id once it has been shown long enough.
type clearNoteMsg struct{ id string }

func clearNoteAfter(id string, d time.Duration) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg { return clearNoteMsg{id: id} })
}

// run performs a store action off the UI goroutine. The store publishes
// the optimistic state immediately, so the dashboard redraws before the
// server answers.
func run(action string, fn func(ctx context.Context) error) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()

		err := fn(ctx)
		if err != nil {
			logger.Debug("Dashboard action failed",
				logger.F("action", action),
				logger.F("error", err.Error()))
		}
		return actionDoneMsg{action: action, err: err}
	}
}

func (m Model) addTask(title string, c model.Category) tea.Cmd {
	tasks := m.sess.Tasks
	return run("add", func(ctx context.Context) error {
		_, err := tasks.Add(ctx, title, c)
		return err
	})
}

func (m Model) toggleTask(id string) tea.Cmd {
	tasks := m.sess.Tasks
	return run("toggle", func(ctx context.Context) error {
		return tasks.Toggle(ctx, id)
	})
}

func (m Model) editTask(id, title string) tea.Cmd {
	tasks := m.sess.Tasks
	return run("edit", func(ctx context.Context) error {
		return tasks.Edit(ctx, id, title)
	})
}

func (m Model) deleteTask(id string) tea.Cmd {
	tasks := m.sess.Tasks
	return run("delete", func(ctx context.Context) error {
		return tasks.Delete(ctx, id)
	})
}

func (m Model) setTarget(c model.Category, target int) tea.Cmd {
	goals := m.sess.Goals
	return run("goal", func(ctx context.Context) error {
		_, err := goals.Update(ctx, c, target)
		return err
	})
}
