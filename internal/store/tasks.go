package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/nhle/studytrack/internal/logger"
	"github.com/nhle/studytrack/internal/model"
)

// TaskAPI is the remote side of the task collection.
type TaskAPI interface {
	ListTasks(ctx context.Context) ([]model.Task, error)
	CreateTask(ctx context.Context, draft model.TaskDraft) (model.Task, error)
	UpdateTask(ctx context.Context, id string, patch model.TaskPatch) (model.Task, error)
	DeleteTask(ctx context.Context, id string) error
}

// TaskCache reads the warm-start snapshot of a user's tasks.
type TaskCache interface {
	LoadTasks(ctx context.Context, userID string) ([]model.Task, bool, error)
}

// TaskState is a published snapshot of the task collection.
type TaskState struct {
	UserID string
	Tasks  []model.Task

	// Ready is true once the collection reflects the user's data, either
	// from the cache or from the server.
	Ready   bool
	Loading bool

	// Err is the last load failure, cleared by a successful load.
	Err error
}

// TaskStore owns the in-memory task collection of the active user. Every
// action mutates the collection first, publishes, then confirms with the
// server and rolls back to the captured previous value on failure.
//
// All methods are safe for concurrent use. Network calls run without the
// lock held, so other actions proceed while one is in flight.
type TaskStore struct {
	api   TaskAPI
	cache TaskCache
	opts  options

	mu      sync.Mutex
	userID  string
	epoch   uint64
	tasks   []model.Task
	ready   bool
	loading bool
	err     error
	pending pendingOps
	feed    feed[TaskState]
}

// NewTaskStore creates an empty store with no active user.
func NewTaskStore(api TaskAPI, cache TaskCache, opts ...Option) *TaskStore {
	return &TaskStore{
		api:   api,
		cache: cache,
		opts:  buildOptions(opts),
		tasks: []model.Task{},
	}
}

// Reset clears the collection and makes userID the active user. Actions
// still in flight for the previous user are discarded when they complete.
func (s *TaskStore) Reset(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.userID = userID
	s.epoch++
	s.tasks = []model.Task{}
	s.ready = false
	s.loading = false
	s.err = nil
	s.pending.reset()
	s.publishLocked()
}

// UserID returns the active user, or "" when logged out.
func (s *TaskStore) UserID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID
}

// Load hydrates from the cache and then revalidates against the server.
func (s *TaskStore) Load(ctx context.Context) error {
	s.Hydrate(ctx)
	return s.Refresh(ctx)
}

// Hydrate publishes the cached snapshot for the active user, if any.
// Provisional tasks left behind by an interrupted add are skipped. Cache
// failures are logged and ignored. It reports whether a snapshot was
// applied.
func (s *TaskStore) Hydrate(ctx context.Context) bool {
	s.mu.Lock()
	userID, epoch := s.userID, s.epoch
	s.mu.Unlock()

	if userID == "" || s.cache == nil {
		return false
	}

	cached, ok, err := s.cache.LoadTasks(ctx, userID)
	if err != nil {
		logger.Warn("Reading task cache failed", logger.F("user", userID), logger.F("error", err.Error()))
		return false
	}
	if !ok {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch {
		return false
	}
	s.tasks = withoutProvisional(knownCategories(cached))
	s.ready = true
	s.publishLocked()

	logger.Debug("Hydrated tasks from cache", logger.F("user", userID), logger.F("count", len(s.tasks)))
	return true
}

// Refresh replaces the collection with the server's. Actions still in
// flight, and those confirmed after the fetch was issued, are applied on
// top of the fetched list. On failure the current collection is kept and
// the error is recorded in the state.
func (s *TaskStore) Refresh(ctx context.Context) error {
	s.mu.Lock()
	if s.userID == "" {
		s.mu.Unlock()
		return ErrNoUser
	}
	userID, epoch := s.userID, s.epoch
	start := s.pending.startRefresh()
	s.loading = true
	s.publishLocked()
	s.mu.Unlock()

	fetched, err := s.api.ListTasks(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch {
		return nil
	}
	defer s.pending.finishRefresh(start)
	s.loading = false
	if err != nil {
		s.err = err
		s.publishLocked()
		logger.Warn("Fetching tasks failed", logger.F("user", userID), logger.F("error", err.Error()))
		return fmt.Errorf("fetching tasks: %w", err)
	}

	s.tasks = s.pending.replay(knownCategories(fetched), start)
	s.ready = true
	s.err = nil
	s.publishLocked()

	logger.Debug("Fetched tasks", logger.F("user", userID), logger.F("count", len(s.tasks)))
	return nil
}

// Add prepends a provisional task and creates it on the server. On
// success the provisional id and timestamps are replaced in place; on
// failure the task is removed.
func (s *TaskStore) Add(ctx context.Context, title string, category model.Category) (model.Task, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return model.Task{}, fmt.Errorf("%w: title is required", ErrValidation)
	}
	if !category.Valid() {
		return model.Task{}, fmt.Errorf("%w: unknown category %q", ErrValidation, category)
	}

	s.mu.Lock()
	if s.userID == "" {
		s.mu.Unlock()
		return model.Task{}, ErrNoUser
	}
	task := model.NewTask(model.ProvisionalPrefix+s.opts.newID(), title, category, s.opts.now())
	s.tasks = append([]model.Task{task}, s.tasks...)
	op := &taskOp{kind: opAdd, id: task.ID, task: task}
	s.pending.begin(op)
	epoch := s.epoch
	s.publishLocked()
	s.mu.Unlock()

	created, err := s.api.CreateTask(ctx, model.DraftFrom(task))
	if err == nil && created.ID == "" {
		err = errors.New("server returned a task without an id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch {
		if err != nil {
			return model.Task{}, fmt.Errorf("adding task: %w", err)
		}
		return created, nil
	}

	idx := s.indexLocked(task.ID)
	if err != nil {
		if idx >= 0 {
			s.removeLocked(idx)
		}
		s.pending.drop(op)
		s.publishLocked()
		s.opts.notifier.Notify(failure("Failed to save task: " + err.Error()))
		return model.Task{}, fmt.Errorf("adding task: %w", err)
	}

	result := task
	result.ID = created.ID
	if !created.CreatedAt.IsZero() {
		result.CreatedAt = created.CreatedAt
	}
	if !created.UpdatedAt.IsZero() {
		result.UpdatedAt = created.UpdatedAt
	}

	switch {
	case s.indexLocked(created.ID) >= 0:
		// A refresh already brought in the server copy.
		if idx >= 0 {
			s.removeLocked(idx)
		}
	case idx < 0:
		s.tasks = append([]model.Task{result}, s.tasks...)
	default:
		s.tasks[idx].ID = result.ID
		s.tasks[idx].CreatedAt = result.CreatedAt
		s.tasks[idx].UpdatedAt = result.UpdatedAt
		result = s.tasks[idx]
	}
	op.id, op.task = result.ID, result.Clone()
	s.pending.settle(op)
	s.ready = true
	s.publishLocked()

	s.opts.notifier.Notify(success("Task added", fmt.Sprintf("%q has been added to your tasks.", title)))
	return result.Clone(), nil
}

// Toggle flips the completed flag of task id.
func (s *TaskStore) Toggle(ctx context.Context, id string) error {
	s.mu.Lock()
	idx, err := s.mutableLocked(id)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	prevCompleted, prevUpdated := s.tasks[idx].Completed, s.tasks[idx].UpdatedAt
	completed := !prevCompleted
	stamp := s.opts.now()
	s.tasks[idx].Completed = completed
	s.tasks[idx].UpdatedAt = stamp
	op := &taskOp{kind: opToggle, id: id, completed: completed, stamp: stamp}
	s.pending.begin(op)
	epoch := s.epoch
	s.publishLocked()
	s.mu.Unlock()

	updated, err := s.api.UpdateTask(ctx, id, model.TaskPatch{Completed: &completed})

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch {
		return wrapTaskErr("toggling", id, err)
	}

	idx = s.indexLocked(id)
	if err != nil {
		if idx >= 0 {
			s.tasks[idx].Completed = prevCompleted
			s.tasks[idx].UpdatedAt = prevUpdated
		}
		s.pending.drop(op)
		s.publishLocked()
		s.opts.notifier.Notify(failure("Failed to update task: " + err.Error()))
		return wrapTaskErr("toggling", id, err)
	}

	s.confirmLocked(idx, op, updated)
	return nil
}

// Edit replaces the title of task id.
func (s *TaskStore) Edit(ctx context.Context, id, newTitle string) error {
	newTitle = strings.TrimSpace(newTitle)
	if newTitle == "" {
		return fmt.Errorf("%w: title is required", ErrValidation)
	}

	s.mu.Lock()
	idx, err := s.mutableLocked(id)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	prevTitle, prevUpdated := s.tasks[idx].Title, s.tasks[idx].UpdatedAt
	stamp := s.opts.now()
	s.tasks[idx].Title = newTitle
	s.tasks[idx].UpdatedAt = stamp
	op := &taskOp{kind: opEdit, id: id, title: newTitle, stamp: stamp}
	s.pending.begin(op)
	epoch := s.epoch
	s.publishLocked()
	s.mu.Unlock()

	updated, err := s.api.UpdateTask(ctx, id, model.TaskPatch{Title: &newTitle})

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch {
		return wrapTaskErr("editing", id, err)
	}

	idx = s.indexLocked(id)
	if err != nil {
		if idx >= 0 {
			s.tasks[idx].Title = prevTitle
			s.tasks[idx].UpdatedAt = prevUpdated
		}
		s.pending.drop(op)
		s.publishLocked()
		s.opts.notifier.Notify(failure("Failed to update task: " + err.Error()))
		return wrapTaskErr("editing", id, err)
	}

	s.confirmLocked(idx, op, updated)
	s.opts.notifier.Notify(success("Task updated", "Your task has been updated successfully."))
	return nil
}

// Delete removes task id. On failure the task is put back where it was.
func (s *TaskStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	idx, err := s.mutableLocked(id)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	captured := s.tasks[idx]
	var successor string
	if idx+1 < len(s.tasks) {
		successor = s.tasks[idx+1].ID
	}
	wasLast := idx == len(s.tasks)-1
	s.removeLocked(idx)
	op := &taskOp{kind: opDelete, id: id}
	s.pending.begin(op)
	epoch := s.epoch
	s.publishLocked()
	s.mu.Unlock()

	err = s.api.DeleteTask(ctx, id)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch {
		return wrapTaskErr("deleting", id, err)
	}

	if err != nil {
		if s.indexLocked(id) < 0 {
			s.reinsertLocked(captured, successor, wasLast)
		}
		s.pending.drop(op)
		s.publishLocked()
		s.opts.notifier.Notify(failure("Failed to delete task: " + err.Error()))
		return wrapTaskErr("deleting", id, err)
	}

	if idx := s.indexLocked(id); idx >= 0 {
		s.removeLocked(idx)
	}
	s.pending.settle(op)
	s.ready = true
	s.publishLocked()
	s.opts.notifier.Notify(success("Task deleted", "Your task has been deleted successfully."))
	return nil
}

// Tasks returns a copy of the collection, most recent first.
func (s *TaskStore) Tasks() []model.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneTasks(s.tasks)
}

// Get returns a copy of task id.
func (s *TaskStore) Get(id string) (model.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.indexLocked(id)
	if idx < 0 {
		return model.Task{}, false
	}
	return s.tasks[idx].Clone(), true
}

// ByCategory returns the tasks of category c in collection order.
func (s *TaskStore) ByCategory(c model.Category) []model.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return byCategory(s.tasks, c)
}

// CompletedCount returns how many tasks of category c are completed.
func (s *TaskStore) CompletedCount(c model.Category) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return countTasks(s.tasks, c, true)
}

// TotalCount returns how many tasks belong to category c.
func (s *TaskStore) TotalCount(c model.Category) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return countTasks(s.tasks, c, false)
}

// CompletionHistory counts completed tasks of category c per calendar day,
// using the day each task was last updated in the store clock's zone.
func (s *TaskStore) CompletionHistory(c model.Category) map[model.Date]int {
	loc := s.opts.now().Location()

	s.mu.Lock()
	defer s.mu.Unlock()
	return completionHistory(s.tasks, c, loc)
}

// State returns the current snapshot.
func (s *TaskStore) State() TaskState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

// Subscribe returns a channel that always holds the latest snapshot,
// primed with the current one, and a func to unsubscribe.
func (s *TaskStore) Subscribe() (<-chan TaskState, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.feed.subscribe(s.stateLocked())
}

// Close closes every subscription.
func (s *TaskStore) Close() {
	s.feed.close()
}

func (s *TaskStore) stateLocked() TaskState {
	return TaskState{
		UserID:  s.userID,
		Tasks:   cloneTasks(s.tasks),
		Ready:   s.ready,
		Loading: s.loading,
		Err:     s.err,
	}
}

func (s *TaskStore) publishLocked() {
	s.feed.publish(s.stateLocked())
}

func (s *TaskStore) indexLocked(id string) int {
	return indexOf(s.tasks, id)
}

// mutableLocked finds a task that may be toggled, edited or deleted.
func (s *TaskStore) mutableLocked(id string) (int, error) {
	idx := s.indexLocked(id)
	if idx < 0 {
		return -1, fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	if s.tasks[idx].Provisional() {
		return -1, fmt.Errorf("task %s: %w", id, ErrPending)
	}
	return idx, nil
}

func (s *TaskStore) removeLocked(idx int) {
	s.tasks = append(s.tasks[:idx:idx], s.tasks[idx+1:]...)
}

// reinsertLocked puts t back before its former successor, at the end if it
// used to be last, or at the front when neither position can be found.
func (s *TaskStore) reinsertLocked(t model.Task, successor string, wasLast bool) {
	pos := 0
	switch {
	case successor != "" && s.indexLocked(successor) >= 0:
		pos = s.indexLocked(successor)
	case wasLast:
		pos = len(s.tasks)
	}
	s.tasks = append(s.tasks[:pos:pos], append([]model.Task{t}, s.tasks[pos:]...)...)
}

// confirmLocked adopts the server's updated_at when no later local change
// has touched the task since op was applied, then settles op.
func (s *TaskStore) confirmLocked(idx int, op *taskOp, updated model.Task) {
	if idx >= 0 && !updated.UpdatedAt.IsZero() && s.tasks[idx].UpdatedAt.Equal(op.stamp) {
		s.tasks[idx].UpdatedAt = updated.UpdatedAt
		op.stamp = updated.UpdatedAt
	}
	s.pending.settle(op)
	s.ready = true
	s.publishLocked()
}

func wrapTaskErr(action, id string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s task %s: %w", action, id, err)
}

func cloneTasks(tasks []model.Task) []model.Task {
	out := make([]model.Task, len(tasks))
	for i, t := range tasks {
		out[i] = t.Clone()
	}
	return out
}

func withoutProvisional(tasks []model.Task) []model.Task {
	out := tasks[:0]
	for _, t := range tasks {
		if !t.Provisional() {
			out = append(out, t)
		}
	}
	return out
}

// knownCategories drops tasks whose category is outside the closed set.
func knownCategories(tasks []model.Task) []model.Task {
	out := make([]model.Task, 0, len(tasks))
	for _, t := range tasks {
		if !t.Category.Valid() {
			logger.Warn("Skipping task with unknown category",
				logger.F("id", t.ID), logger.F("category", string(t.Category)))
			continue
		}
		out = append(out, t.Clone())
	}
	return out
}
