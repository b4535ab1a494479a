package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nhle/studytrack/internal/logger"
	"github.com/nhle/studytrack/internal/model"
)

// GoalAPI is the remote side of the goal collection.
type GoalAPI interface {
	ListGoals(ctx context.Context) ([]model.Goal, error)
	CreateGoal(ctx context.Context, category model.Category, dailyTarget int) (model.Goal, error)
	UpdateGoal(ctx context.Context, id string, dailyTarget int) (model.Goal, error)
}

// GoalCache reads the warm-start snapshot of a user's goals.
type GoalCache interface {
	LoadGoals(ctx context.Context, userID string) ([]model.Goal, bool, error)
}

// GoalState is a published snapshot of the goal collection. Goals holds
// only goals known to the server, in category order.
type GoalState struct {
	UserID  string
	Goals   []model.Goal
	Ready   bool
	Loading bool
	Err     error
}

// StreakSource tells whether a streak came from the server or was derived
// locally.
type StreakSource int

const (
	StreakPlaceholder StreakSource = iota
	StreakServer
)

func (s StreakSource) String() string {
	if s == StreakServer {
		return "server"
	}
	return "placeholder"
}

// StreakView is the streak shown for a category.
type StreakView struct {
	Value         int
	DaysCompleted []int
	Source        StreakSource
}

// GoalStore owns the per-category goals of the active user. Unlike tasks,
// goal updates are applied only after the server confirms them.
type GoalStore struct {
	api   GoalAPI
	cache GoalCache
	opts  options

	mu      sync.Mutex
	userID  string
	epoch   uint64
	goals   map[model.Category]model.Goal
	server  map[model.Category]bool
	ready   bool
	loading bool
	err     error
	feed    feed[GoalState]
}

// NewGoalStore creates an empty store with no active user.
func NewGoalStore(api GoalAPI, cache GoalCache, opts ...Option) *GoalStore {
	return &GoalStore{
		api:    api,
		cache:  cache,
		opts:   buildOptions(opts),
		goals:  make(map[model.Category]model.Goal),
		server: make(map[model.Category]bool),
	}
}

// Reset clears the collection and makes userID the active user.
func (s *GoalStore) Reset(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.userID = userID
	s.epoch++
	s.goals = make(map[model.Category]model.Goal)
	s.server = make(map[model.Category]bool)
	s.ready = false
	s.loading = false
	s.err = nil
	s.publishLocked()
}

// Load fetches every goal from the server. On failure it falls back to the
// cached snapshot when the store holds nothing yet.
func (s *GoalStore) Load(ctx context.Context) error {
	err := s.Refresh(ctx)
	if err != nil && !s.State().Ready {
		s.Hydrate(ctx)
	}
	return err
}

// Hydrate applies the cached snapshot for the active user, if any.
func (s *GoalStore) Hydrate(ctx context.Context) bool {
	s.mu.Lock()
	userID, epoch := s.userID, s.epoch
	s.mu.Unlock()

	if userID == "" || s.cache == nil {
		return false
	}

	cached, ok, err := s.cache.LoadGoals(ctx, userID)
	if err != nil {
		logger.Warn("Reading goal cache failed", logger.F("user", userID), logger.F("error", err.Error()))
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
	s.replaceLocked(cached)
	s.ready = true
	s.publishLocked()
	return true
}

// Refresh replaces the collection with the server's goals.
func (s *GoalStore) Refresh(ctx context.Context) error {
	s.mu.Lock()
	if s.userID == "" {
		s.mu.Unlock()
		return ErrNoUser
	}
	userID, epoch := s.userID, s.epoch
	s.loading = true
	s.publishLocked()
	s.mu.Unlock()

	fetched, err := s.api.ListGoals(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch {
		return nil
	}
	s.loading = false
	if err != nil {
		s.err = err
		s.publishLocked()
		logger.Warn("Fetching goals failed", logger.F("user", userID), logger.F("error", err.Error()))
		return fmt.Errorf("fetching goals: %w", err)
	}

	s.replaceLocked(fetched)
	s.ready = true
	s.err = nil
	s.publishLocked()
	return nil
}

// Get returns the goal of category c, or a default goal when none exists.
func (s *GoalStore) Get(c model.Category) model.Goal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getLocked(c)
}

// Goals returns one goal per known category, defaults included.
func (s *GoalStore) Goals() []model.Goal {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Goal, 0, len(model.Categories))
	for _, c := range model.Categories {
		out = append(out, s.getLocked(c))
	}
	return out
}

// Update sets the daily target of category c. The goal is created on the
// server when it does not exist there yet. The collection only changes
// after the server confirms.
func (s *GoalStore) Update(ctx context.Context, c model.Category, dailyTarget int) (model.Goal, error) {
	if !c.Valid() {
		return model.Goal{}, fmt.Errorf("%w: unknown category %q", ErrValidation, c)
	}
	if dailyTarget <= 0 {
		return model.Goal{}, fmt.Errorf("%w: daily target must be positive", ErrValidation)
	}

	s.mu.Lock()
	if s.userID == "" {
		s.mu.Unlock()
		return model.Goal{}, ErrNoUser
	}
	existing, ok := s.goals[c]
	epoch := s.epoch
	s.mu.Unlock()

	var (
		saved model.Goal
		err   error
	)
	if ok && existing.Persisted() {
		saved, err = s.api.UpdateGoal(ctx, existing.ID, dailyTarget)
	} else {
		saved, err = s.api.CreateGoal(ctx, c, dailyTarget)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		if s.epoch == epoch {
			s.opts.notifier.Notify(failure("Failed to update goal: " + err.Error()))
		}
		return model.Goal{}, fmt.Errorf("updating %s goal: %w", c, err)
	}
	if saved.Category == "" {
		saved.Category = c
	}
	saved = saved.Clone()
	if s.epoch != epoch {
		return saved, nil
	}

	s.goals[c] = saved
	if saved.Persisted() {
		s.server[c] = true
	}
	s.ready = true
	s.publishLocked()

	s.opts.notifier.Notify(success("Goal updated",
		fmt.Sprintf("%s daily goal set to %d tasks", c.Label(), dailyTarget)))
	return saved.Clone(), nil
}

// Streak returns the streak to display for category c. Once a server goal
// has been seen for c the server's values are shown and never replaced by
// the local derivation; before that the streak is derived from history.
func (s *GoalStore) Streak(c model.Category, history map[model.Date]int, now time.Time) StreakView {
	s.mu.Lock()
	defer s.mu.Unlock()

	g := s.getLocked(c)
	if s.server[c] {
		return StreakView{
			Value:         g.WeeklyStreak,
			DaysCompleted: model.NormalizeWeekdays(g.CurrentWeekDaysCompleted),
			Source:        StreakServer,
		}
	}
	return StreakView{
		Value:         ComputeStreak(g.DailyTarget, history, now),
		DaysCompleted: WeekProgress(g.DailyTarget, history, now),
		Source:        StreakPlaceholder,
	}
}

// State returns the current snapshot.
func (s *GoalStore) State() GoalState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

// Subscribe returns a latest-wins channel of snapshots and a func to
// unsubscribe.
func (s *GoalStore) Subscribe() (<-chan GoalState, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.feed.subscribe(s.stateLocked())
}

// Close closes every subscription.
func (s *GoalStore) Close() {
	s.feed.close()
}

func (s *GoalStore) getLocked(c model.Category) model.Goal {
	if g, ok := s.goals[c]; ok {
		return g.Clone()
	}
	return model.DefaultGoal(c)
}

// replaceLocked indexes goals by category. Server values are sticky: a
// category seen from the server stays marked for the rest of the session.
func (s *GoalStore) replaceLocked(goals []model.Goal) {
	s.goals = make(map[model.Category]model.Goal, len(goals))
	for _, g := range goals {
		if !g.Category.Valid() {
			continue
		}
		s.goals[g.Category] = g.Clone()
		if g.Persisted() {
			s.server[g.Category] = true
		}
	}
}

func (s *GoalStore) stateLocked() GoalState {
	goals := make([]model.Goal, 0, len(s.goals))
	for _, c := range model.Categories {
		if g, ok := s.goals[c]; ok {
			goals = append(goals, g.Clone())
		}
	}
	return GoalState{
		UserID:  s.userID,
		Goals:   goals,
		Ready:   s.ready,
		Loading: s.loading,
		Err:     s.err,
	}
}

func (s *GoalStore) publishLocked() {
	s.feed.publish(s.stateLocked())
}
