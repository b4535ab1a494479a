package tasklist

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/studytrack/internal/keys"
	"github.com/nhle/studytrack/internal/model"
)

var now = time.Date(2024, 3, 6, 12, 0, 0, 0, time.UTC)

func task(id, title string) model.Task {
	return model.NewTask(id, title, model.CategoryDSA, now)
}

func TestSelectionFollowsTaskID(t *testing.T) {
	m := New(keys.DefaultKeyMap(), 80, 20)
	m.SetTasks([]model.Task{task("1", "a"), task("2", "b"), task("3", "c")})

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	sel, ok := m.SelectedTask()
	require.True(t, ok)
	require.Equal(t, "2", sel.ID)

	// A new task at the front shifts the selected one down.
	m.SetTasks([]model.Task{task("0", "z"), task("1", "a"), task("2", "b"), task("3", "c")})
	sel, _ = m.SelectedTask()
	assert.Equal(t, "2", sel.ID)
}

func TestSelectionClampsWhenListShrinks(t *testing.T) {
	m := New(keys.DefaultKeyMap(), 80, 20)
	m.SetTasks([]model.Task{task("1", "a"), task("2", "b")})
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})

	m.SetTasks([]model.Task{task("1", "a")})
	sel, ok := m.SelectedTask()
	require.True(t, ok)
	assert.Equal(t, "1", sel.ID)
}

func TestEmptyList(t *testing.T) {
	m := New(keys.DefaultKeyMap(), 80, 20)
	_, ok := m.SelectedTask()
	assert.False(t, ok)
	assert.Equal(t, 0, m.Len())
	assert.Contains(t, m.View(), "No tasks in this category.")
}

func TestRenderTask(t *testing.T) {
	pending := task(model.ProvisionalPrefix+"x", "Read CLRS")
	pending.Tags = []string{"graphs", "bfs", "dfs"}

	line := renderTask(pending, false, now.Add(2*time.Hour))
	assert.Contains(t, line, "Read CLRS")
	assert.Contains(t, line, "saving")
	assert.Contains(t, line, "graphs,bfs")
	assert.Contains(t, line, "2h ago")

	done := task("7", "Mock interview")
	done.Completed = true
	assert.Contains(t, renderTask(done, true, now), "✓")
	assert.NotContains(t, renderTask(done, true, now), "saving")
}

func TestRelativeTime(t *testing.T) {
	assert.Equal(t, "", relativeTime(time.Time{}, now))
	assert.Equal(t, "just now", relativeTime(now, now))
	assert.Equal(t, "5m ago", relativeTime(now.Add(-5*time.Minute), now))
	assert.Equal(t, "3d ago", relativeTime(now.Add(-72*time.Hour), now))
	assert.Equal(t, "2w ago", relativeTime(now.Add(-15*24*time.Hour), now))
}
