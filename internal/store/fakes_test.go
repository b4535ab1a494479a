package store_test

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/nhle/studytrack/internal/model"
)

var errNetwork = errors.New("network down")

// stepClock returns a time one minute later on every call.
type stepClock struct {
	mu sync.Mutex
	t  time.Time
}

func newStepClock() *stepClock {
	return &stepClock{t: time.Date(2024, 3, 6, 9, 0, 0, 0, time.UTC)}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Minute)
	return c.t
}

// call is a remote call parked until the test answers it.
type call struct {
	op   string
	id   string
	done chan error
}

// fakeTaskAPI keeps tasks in memory. When gate is set every mutating call
// is parked on it until the test replies on call.done. When listGate is
// set, ListTasks takes its snapshot and then parks before returning it.
type fakeTaskAPI struct {
	mu       sync.Mutex
	tasks    []model.Task
	nextID   int
	fail     error
	calls    int
	idFor    func(n int) string
	gate     chan *call
	listGate chan *call
	created  time.Time
}

func newFakeTaskAPI(seed ...model.Task) *fakeTaskAPI {
	return &fakeTaskAPI{
		tasks:   append([]model.Task(nil), seed...),
		nextID:  1,
		idFor:   func(n int) string { return "srv-" + strconv.Itoa(n) },
		created: time.Date(2024, 3, 6, 12, 0, 0, 0, time.UTC),
	}
}

func (f *fakeTaskAPI) setFail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail = err
}

func (f *fakeTaskAPI) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeTaskAPI) enter(op, id string) error {
	f.mu.Lock()
	f.calls++
	gate, fail := f.gate, f.fail
	f.mu.Unlock()

	if gate != nil {
		c := &call{op: op, id: id, done: make(chan error, 1)}
		gate <- c
		if err := <-c.done; err != nil {
			return err
		}
	}
	return fail
}

func (f *fakeTaskAPI) ListTasks(ctx context.Context) ([]model.Task, error) {
	f.mu.Lock()
	f.calls++
	if f.fail != nil {
		f.mu.Unlock()
		return nil, f.fail
	}
	out := make([]model.Task, len(f.tasks))
	for i, t := range f.tasks {
		out[i] = t.Clone()
	}
	gate := f.listGate
	f.mu.Unlock()

	if gate != nil {
		c := &call{op: "list", done: make(chan error, 1)}
		gate <- c
		if err := <-c.done; err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (f *fakeTaskAPI) CreateTask(ctx context.Context, draft model.TaskDraft) (model.Task, error) {
	if err := f.enter("create", ""); err != nil {
		return model.Task{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.idFor(f.nextID)
	f.nextID++
	t := model.NewTask(id, draft.Title, draft.Category, f.created)
	f.tasks = append([]model.Task{t}, f.tasks...)
	return t, nil
}

func (f *fakeTaskAPI) UpdateTask(ctx context.Context, id string, patch model.TaskPatch) (model.Task, error) {
	if err := f.enter("update", id); err != nil {
		return model.Task{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.tasks {
		if f.tasks[i].ID != id {
			continue
		}
		if patch.Title != nil {
			f.tasks[i].Title = *patch.Title
		}
		if patch.Completed != nil {
			f.tasks[i].Completed = *patch.Completed
		}
		f.tasks[i].UpdatedAt = f.created.Add(time.Hour)
		return f.tasks[i].Clone(), nil
	}
	return model.Task{}, fmt.Errorf("task %s: 404", id)
}

func (f *fakeTaskAPI) DeleteTask(ctx context.Context, id string) error {
	if err := f.enter("delete", id); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.tasks {
		if f.tasks[i].ID == id {
			f.tasks = append(f.tasks[:i], f.tasks[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("task %s: 404", id)
}

// fakeGoalAPI keeps goals in memory and records which endpoint was used.
type fakeGoalAPI struct {
	mu     sync.Mutex
	goals  []model.Goal
	fail   error
	ops    []string
	nextID int
}

func (f *fakeGoalAPI) ListGoals(ctx context.Context) ([]model.Goal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ops = append(f.ops, "list")
	if f.fail != nil {
		return nil, f.fail
	}
	out := make([]model.Goal, len(f.goals))
	for i, g := range f.goals {
		out[i] = g.Clone()
	}
	return out, nil
}

func (f *fakeGoalAPI) CreateGoal(ctx context.Context, c model.Category, target int) (model.Goal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ops = append(f.ops, "create")
	if f.fail != nil {
		return model.Goal{}, f.fail
	}
	f.nextID++
	g := model.DefaultGoal(c)
	g.ID = "g" + strconv.Itoa(f.nextID)
	g.DailyTarget = target
	f.goals = append(f.goals, g)
	return g, nil
}

func (f *fakeGoalAPI) UpdateGoal(ctx context.Context, id string, target int) (model.Goal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ops = append(f.ops, "update:"+id)
	if f.fail != nil {
		return model.Goal{}, f.fail
	}
	for i := range f.goals {
		if f.goals[i].ID == id {
			f.goals[i].DailyTarget = target
			return f.goals[i].Clone(), nil
		}
	}
	return model.Goal{}, fmt.Errorf("goal %s: 404", id)
}

func (f *fakeGoalAPI) setFail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail = err
}

func (f *fakeGoalAPI) operations() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.ops...)
}

// recorder collects notifications.
type recorder struct {
	mu  sync.Mutex
	got []model.Notification
}

func (r *recorder) Notify(n model.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, n)
}

func (r *recorder) last() model.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.got) == 0 {
		return model.Notification{}
	}
	return r.got[len(r.got)-1]
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.got)
}
