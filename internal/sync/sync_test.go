package sync_test

import (
	"context"
	"errors"
	"net/http"
	gosync "sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/studytrack/internal/api"
	"github.com/nhle/studytrack/internal/model"
	"github.com/nhle/studytrack/internal/store"
	"github.com/nhle/studytrack/internal/sync"
	"github.com/nhle/studytrack/internal/testutil"
)

type stores struct {
	tasks     *store.TaskStore
	goals     *store.GoalStore
	summaries *store.SummaryStore
}

func newStores(t *testing.T, fake *testutil.FakeAPI) stores {
	t.Helper()
	client, err := api.NewClient(api.Config{BaseURL: fake.URL(), Timeout: 5 * time.Second})
	require.NoError(t, err)
	return stores{
		tasks:     store.NewTaskStore(client, nil),
		goals:     store.NewGoalStore(client, nil),
		summaries: store.NewSummaryStore(nil),
	}
}

func TestCacheWriterPersistsReadySnapshots(t *testing.T) {
	ctx := context.Background()
	fake := testutil.NewFakeAPI(t)
	fake.SeedTask("Two Sum", "dsa", true)
	fake.SeedGoal("development", 2, 1)
	c := testutil.NewTestCache(t)
	s := newStores(t, fake)

	w := sync.NewCacheWriter(c, s.tasks, s.goals, s.summaries)
	s.tasks.Reset("alice")
	s.goals.Reset("alice")
	s.summaries.Reset("alice")
	require.NoError(t, s.tasks.Refresh(ctx))
	require.NoError(t, s.goals.Refresh(ctx))
	_, err := s.summaries.Add("Week 1", "arrays")
	require.NoError(t, err)
	w.Close()

	tasks, ok, err := c.LoadTasks(ctx, "alice")
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, tasks, 1)
	assert.Equal(t, "Two Sum", tasks[0].Title)

	goals, ok, err := c.LoadGoals(ctx, "alice")
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, goals, 1)
	assert.Equal(t, model.CategoryDevelopment, goals[0].Category)

	summaries, ok, err := c.LoadSummaries(ctx, "alice")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Len(t, summaries, 1)
}

func TestCacheWriterSkipsUnreadySnapshots(t *testing.T) {
	ctx := context.Background()
	fake := testutil.NewFakeAPI(t)
	fake.Fail("GET /api/tasks/", http.StatusBadGateway)
	c := testutil.NewTestCache(t)
	s := newStores(t, fake)

	w := sync.NewCacheWriter(c, s.tasks, s.goals, s.summaries)
	s.tasks.Reset("alice")
	require.Error(t, s.tasks.Refresh(ctx))
	w.Close()

	_, ok, err := c.LoadTasks(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, ok, "a failed first load must not write an empty snapshot")
}

func TestCacheWriterKeepsUsersApart(t *testing.T) {
	ctx := context.Background()
	fake := testutil.NewFakeAPI(t)
	fake.SeedTask("Two Sum", "dsa", false)
	c := testutil.NewTestCache(t)
	s := newStores(t, fake)

	w := sync.NewCacheWriter(c, s.tasks, s.goals, s.summaries)
	s.tasks.Reset("alice")
	require.NoError(t, s.tasks.Refresh(ctx))
	s.tasks.Reset("bob")
	w.Close()

	_, ok, err := c.LoadTasks(ctx, "bob")
	require.NoError(t, err)
	assert.False(t, ok)
}

// countingRefresher records calls and returns the configured error.
type countingRefresher struct {
	mu    gosync.Mutex
	calls int
	err   error
}

func (r *countingRefresher) Refresh(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	return r.err
}

func TestPollerRefreshAll(t *testing.T) {
	tasks := &countingRefresher{}
	goals := &countingRefresher{err: errors.New("boom")}

	p := sync.New(time.Hour)
	p.Register(sync.ResourceTasks, tasks)
	p.Register(sync.ResourceGoals, goals)

	wait := p.Start()
	require.NotNil(t, wait)
	defer p.Stop()

	p.RefreshAll()

	results := map[sync.Resource]sync.SyncResultMsg{}
	for len(results) < 2 {
		msg, ok := wait().(sync.SyncResultMsg)
		require.True(t, ok)
		results[msg.Resource] = msg
		wait = p.WaitForNextResult()
	}

	assert.NoError(t, results[sync.ResourceTasks].Error)
	assert.EqualError(t, results[sync.ResourceGoals].Error, "boom")
	assert.Nil(t, results[sync.ResourceGoals].AuthError)

	statuses := p.GetStatuses()
	require.Len(t, statuses, 2)
	assert.Equal(t, sync.ResourceTasks, statuses[0].Resource)
	assert.Equal(t, sync.SyncIdle, statuses[0].State)
	assert.False(t, statuses[0].LastSync.IsZero())
	assert.Equal(t, sync.SyncError, statuses[1].State)
	assert.Equal(t, "error", statuses[1].State.String())
}

func TestPollerReportsAuthErrors(t *testing.T) {
	r := &countingRefresher{err: &api.StatusError{Method: "GET", Path: "/api/tasks/", StatusCode: http.StatusUnauthorized}}

	p := sync.New(time.Hour)
	p.Register(sync.ResourceTasks, r)
	wait := p.Start()
	defer p.Stop()

	p.Refresh(sync.ResourceTasks)
	msg := wait().(sync.SyncResultMsg)
	require.NotNil(t, msg.AuthError)
	assert.Contains(t, msg.AuthError.Message, "session expired")
}

func TestPollerTicks(t *testing.T) {
	r := &countingRefresher{}
	p := sync.New(10 * time.Millisecond)
	p.Register(sync.ResourceGoals, r)
	wait := p.Start()

	msg := wait().(sync.SyncResultMsg)
	assert.Equal(t, sync.ResourceGoals, msg.Resource)
	p.Stop()

	r.mu.Lock()
	defer r.mu.Unlock()
	assert.GreaterOrEqual(t, r.calls, 1)
}

func TestWatchTasksBridge(t *testing.T) {
	ts := store.NewTaskStore(nil, nil)
	ch, cancel := ts.Subscribe()

	msg := sync.WatchTasks(ch)()
	st, ok := msg.(sync.TasksMsg)
	require.True(t, ok)
	assert.Empty(t, st.Tasks)

	ts.Reset("alice")
	st = sync.WatchTasks(ch)().(sync.TasksMsg)
	assert.Equal(t, "alice", st.UserID)

	cancel()
	assert.Nil(t, sync.WatchTasks(ch)())
}

// parkedCreateAPI holds every create request until release is closed.
type parkedCreateAPI struct {
	mu      gosync.Mutex
	tasks   []model.Task
	parked  chan struct{}
	release chan struct{}
}

func (a *parkedCreateAPI) ListTasks(ctx context.Context) ([]model.Task, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]model.Task(nil), a.tasks...), nil
}

func (a *parkedCreateAPI) CreateTask(ctx context.Context, draft model.TaskDraft) (model.Task, error) {
	a.parked <- struct{}{}
	<-a.release
	a.mu.Lock()
	defer a.mu.Unlock()
	t := model.NewTask("42", draft.Title, draft.Category, time.Now())
	a.tasks = append([]model.Task{t}, a.tasks...)
	return t, nil
}

func (a *parkedCreateAPI) UpdateTask(ctx context.Context, id string, patch model.TaskPatch) (model.Task, error) {
	return model.Task{}, errors.New("not supported")
}

func (a *parkedCreateAPI) DeleteTask(ctx context.Context, id string) error {
	return errors.New("not supported")
}

func TestPollerRefreshDuringAddKeepsTask(t *testing.T) {
	remote := &parkedCreateAPI{parked: make(chan struct{}, 1), release: make(chan struct{})}
	ts := store.NewTaskStore(remote, nil)
	ts.Reset("alice")

	p := sync.New(time.Hour)
	p.Register(sync.ResourceTasks, ts)
	wait := p.Start()
	defer p.Stop()

	errs := make(chan error, 1)
	go func() {
		_, err := ts.Add(context.Background(), "Graphs", model.CategoryDSA)
		errs <- err
	}()
	<-remote.parked

	p.Refresh(sync.ResourceTasks)
	msg := wait().(sync.SyncResultMsg)
	require.NoError(t, msg.Error)
	tasks := ts.Tasks()
	require.Len(t, tasks, 1)
	assert.True(t, tasks[0].Provisional())

	close(remote.release)
	require.NoError(t, <-errs)
	tasks = ts.Tasks()
	require.Len(t, tasks, 1)
	assert.Equal(t, "42", tasks[0].ID)
}

// fixedTaskFeed publishes a single snapshot.
type fixedTaskFeed struct{ st store.TaskState }

func (f fixedTaskFeed) Subscribe() (<-chan store.TaskState, func()) {
	ch := make(chan store.TaskState, 1)
	ch <- f.st
	var once gosync.Once
	return ch, func() { once.Do(func() { close(ch) }) }
}

func TestCacheWriterSkipsProvisionalTasks(t *testing.T) {
	ctx := context.Background()
	c := testutil.NewTestCache(t)
	s := newStores(t, testutil.NewFakeAPI(t))
	at := time.Date(2024, 3, 6, 9, 0, 0, 0, time.UTC)

	feed := fixedTaskFeed{st: store.TaskState{
		UserID: "alice",
		Ready:  true,
		Tasks: []model.Task{
			model.NewTask(model.ProvisionalPrefix+"abc", "Saving", model.CategoryDSA, at),
			model.NewTask("7", "Saved", model.CategoryDSA, at),
		},
	}}
	w := sync.NewCacheWriter(c, feed, s.goals, s.summaries)
	w.Close()

	tasks, ok, err := c.LoadTasks(ctx, "alice")
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, tasks, 1)
	assert.Equal(t, "7", tasks[0].ID)
}
