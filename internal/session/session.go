// Package session ties the stores of one signed-in user together and
// switches them atomically when the user changes.
package session

import (
	"context"
	"errors"
	gosync "sync"

	"github.com/nhle/studytrack/internal/cache"
	"github.com/nhle/studytrack/internal/logger"
	"github.com/nhle/studytrack/internal/model"
	"github.com/nhle/studytrack/internal/store"
	"github.com/nhle/studytrack/internal/sync"
)

// API is the remote service the stores reconcile against.
type API interface {
	store.TaskAPI
	store.GoalAPI
}

// Session is the single authority over the Task, Goal and Summary
// collections of the active user.
type Session struct {
	Tasks     *store.TaskStore
	Goals     *store.GoalStore
	Summaries *store.SummaryStore

	cache  *cache.Cache
	notes  *store.Notifications
	writer *sync.CacheWriter

	mu     gosync.Mutex
	userID string
}

// New builds the stores around api and c. Store snapshots are written
// back to c as they change. No user is active until SwitchUser.
func New(api API, c *cache.Cache, opts ...store.Option) *Session {
	notes := store.NewNotifications()
	opts = append([]store.Option{store.WithNotifier(notes)}, opts...)

	s := &Session{
		Tasks:     store.NewTaskStore(api, c, opts...),
		Goals:     store.NewGoalStore(api, c, opts...),
		Summaries: store.NewSummaryStore(c, opts...),
		cache:     c,
		notes:     notes,
	}
	s.writer = sync.NewCacheWriter(c, s.Tasks, s.Goals, s.Summaries)
	return s
}

// SwitchUser makes userID the active user. All collections are cleared
// before anything is read for the new user; then the cached snapshots are
// applied and tasks and goals are revalidated against the server. An
// empty userID logs out and leaves the collections empty.
//
// The returned error joins the revalidation failures; cached data stays
// in place when they occur.
func (s *Session) SwitchUser(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.userID != userID {
		logger.Info("Switching user", logger.F("from", s.userID), logger.F("to", userID))
	}
	s.userID = userID

	s.Tasks.Reset(userID)
	s.Goals.Reset(userID)
	s.Summaries.Reset(userID)

	if userID == "" {
		return nil
	}

	s.Tasks.Hydrate(ctx)
	s.Goals.Hydrate(ctx)
	s.Summaries.Hydrate(ctx)

	var (
		wg      gosync.WaitGroup
		taskErr error
		goalErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		taskErr = s.Tasks.Refresh(ctx)
	}()
	go func() {
		defer wg.Done()
		goalErr = s.Goals.Refresh(ctx)
	}()
	wg.Wait()

	return errors.Join(taskErr, goalErr)
}

// UserID returns the active user, or "" when logged out.
func (s *Session) UserID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID
}

// Forget logs out and removes userID's cached snapshots.
func (s *Session) Forget(ctx context.Context, userID string) error {
	if err := s.SwitchUser(ctx, ""); err != nil {
		return err
	}
	if userID == "" {
		return nil
	}
	return s.cache.Purge(ctx, userID)
}

// Notifications subscribes to action outcomes.
func (s *Session) Notifications() (<-chan model.Notification, func()) {
	return s.notes.Subscribe()
}

// RecentNotifications returns the latest action outcomes, oldest first.
func (s *Session) RecentNotifications() []model.Notification {
	return s.notes.Recent()
}

// Close flushes pending cache writes and closes every store feed.
func (s *Session) Close() {
	s.writer.Close()
	s.Tasks.Close()
	s.Goals.Close()
	s.Summaries.Close()
}
