package session_test

import (
	"context"
	"net/http"
	gosync "sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/studytrack/internal/api"
	"github.com/nhle/studytrack/internal/cache"
	"github.com/nhle/studytrack/internal/model"
	"github.com/nhle/studytrack/internal/session"
	"github.com/nhle/studytrack/internal/testutil"
)

// spyKV runs a hook before every read.
type spyKV struct {
	cache.KV
	mu    gosync.Mutex
	onGet func(key string)
}

func (s *spyKV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	hook := s.onGet
	s.mu.Unlock()
	if hook != nil {
		hook(key)
	}
	return s.KV.Get(ctx, key)
}

func (s *spyKV) setHook(fn func(key string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onGet = fn
}

type fixture struct {
	sess  *session.Session
	fake  *testutil.FakeAPI
	cache *cache.Cache
	kv    *spyKV
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	fake := testutil.NewFakeAPI(t)
	client, err := api.NewClient(api.Config{BaseURL: fake.URL(), Timeout: 5 * time.Second})
	require.NoError(t, err)
	client.SetSession("sess", "csrf")

	kv := &spyKV{KV: testutil.NewTestKV(t)}
	c := cache.New(kv, "")
	sess := session.New(client, c)
	t.Cleanup(sess.Close)
	return &fixture{sess: sess, fake: fake, cache: c, kv: kv}
}

func titles(tasks []model.Task) []string {
	out := make([]string, len(tasks))
	for i, t := range tasks {
		out[i] = t.Title
	}
	return out
}

func TestSwitchUserRevalidatesFromServer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fake.SeedTask("Two Sum", "dsa", false)
	f.fake.SeedGoal("dsa", 4, 2)
	require.NoError(t, f.cache.SaveTasks(ctx, "alice", []model.Task{
		model.NewTask("old", "Stale", model.CategoryDSA, time.Now()),
	}))

	require.NoError(t, f.sess.SwitchUser(ctx, "alice"))
	assert.Equal(t, "alice", f.sess.UserID())
	assert.Equal(t, []string{"Two Sum"}, titles(f.sess.Tasks.Tasks()))
	assert.Equal(t, 4, f.sess.Goals.Get(model.CategoryDSA).DailyTarget)

	f.sess.Close()
	cached, ok, err := f.cache.LoadTasks(ctx, "alice")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []string{"Two Sum"}, titles(cached))
}

func TestSwitchUserClearsBeforeHydration(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fake.Fail("GET /api/tasks/", http.StatusServiceUnavailable)
	f.fake.Fail("GET /api/goals/", http.StatusServiceUnavailable)

	now := time.Now()
	require.NoError(t, f.cache.SaveTasks(ctx, "alice", []model.Task{model.NewTask("a1", "Alice task", model.CategoryDSA, now)}))
	require.NoError(t, f.cache.SaveSummaries(ctx, "alice", []model.Summary{{ID: "as", Title: "Alice notes"}}))
	require.NoError(t, f.cache.SaveGoals(ctx, "alice", []model.Goal{{ID: "ag", Category: model.CategoryDSA, DailyTarget: 7}}))
	require.NoError(t, f.cache.SaveTasks(ctx, "bob", []model.Task{model.NewTask("b1", "Bob task", model.CategoryDevelopment, now)}))

	for _, user := range []string{"alice", "bob", "alice"} {
		var (
			mu      gosync.Mutex
			checked bool
		)
		f.kv.setHook(func(key string) {
			mu.Lock()
			defer mu.Unlock()
			if checked {
				return
			}
			checked = true
			assert.Equal(t, user, f.sess.Tasks.UserID())
			assert.Empty(t, f.sess.Tasks.Tasks(), "tasks cleared before reading %s", key)
			assert.Empty(t, f.sess.Goals.State().Goals, "goals cleared before reading %s", key)
			assert.Empty(t, f.sess.Summaries.Summaries(), "summaries cleared before reading %s", key)
		})

		err := f.sess.SwitchUser(ctx, user)
		require.Error(t, err)
		assert.True(t, checked)

		switch user {
		case "alice":
			assert.Equal(t, []string{"Alice task"}, titles(f.sess.Tasks.Tasks()))
			assert.Len(t, f.sess.Summaries.Summaries(), 1)
			assert.Equal(t, 7, f.sess.Goals.Get(model.CategoryDSA).DailyTarget)
		case "bob":
			assert.Equal(t, []string{"Bob task"}, titles(f.sess.Tasks.Tasks()))
			assert.Empty(t, f.sess.Summaries.Summaries())
			assert.Equal(t, 3, f.sess.Goals.Get(model.CategoryDSA).DailyTarget)
		}
	}
	f.kv.setHook(nil)
}

func TestSwitchUserJoinsRevalidationErrors(t *testing.T) {
	f := newFixture(t)
	f.fake.Fail("GET /api/tasks/", http.StatusForbidden)
	f.fake.Fail("GET /api/goals/", http.StatusInternalServerError)

	err := f.sess.SwitchUser(context.Background(), "alice")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetching tasks")
	assert.Contains(t, err.Error(), "fetching goals")
	assert.True(t, api.IsAuthError(err))
}

func TestLogoutLeavesCollectionsEmpty(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fake.SeedTask("Two Sum", "dsa", false)
	require.NoError(t, f.sess.SwitchUser(ctx, "alice"))
	require.NotEmpty(t, f.sess.Tasks.Tasks())

	require.NoError(t, f.sess.SwitchUser(ctx, ""))
	assert.Equal(t, "", f.sess.UserID())
	assert.Empty(t, f.sess.Tasks.Tasks())
	assert.Empty(t, f.sess.Summaries.Summaries())
	assert.False(t, f.sess.Tasks.State().Ready)
}

func TestForgetPurgesCache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.cache.SaveTasks(ctx, "alice", []model.Task{}))

	require.NoError(t, f.sess.Forget(ctx, "alice"))
	_, ok, err := f.cache.LoadTasks(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestActionNotifications(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.sess.SwitchUser(ctx, "alice"))

	ch, cancel := f.sess.Notifications()
	defer cancel()

	_, err := f.sess.Tasks.Add(ctx, "Graphs", model.CategoryDSA)
	require.NoError(t, err)
	n := <-ch
	assert.Equal(t, "Task added", n.Title)

	f.fake.Fail("POST /api/tasks/", http.StatusInternalServerError)
	_, err = f.sess.Tasks.Add(ctx, "Heaps", model.CategoryDSA)
	require.Error(t, err)
	n = <-ch
	assert.True(t, n.IsError())
	assert.Contains(t, n.Message, "Failed to save task")

	assert.Len(t, f.sess.RecentNotifications(), 2)
	assert.Equal(t, 1, f.fake.TaskCount())
}
