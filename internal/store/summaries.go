package store

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/nhle/studytrack/internal/logger"
	"github.com/nhle/studytrack/internal/model"
)

// SummaryCache reads the snapshot of a user's summaries.
type SummaryCache interface {
	LoadSummaries(ctx context.Context, userID string) ([]model.Summary, bool, error)
}

// SummaryState is a published snapshot of the summary collection.
type SummaryState struct {
	UserID    string
	Summaries []model.Summary
	Ready     bool
}

// SummaryStore owns the study session notes of the active user. Summaries
// never leave the device; the cache is their only persistence.
type SummaryStore struct {
	cache SummaryCache
	opts  options

	mu        sync.Mutex
	userID    string
	epoch     uint64
	summaries []model.Summary
	ready     bool
	feed      feed[SummaryState]
}

// NewSummaryStore creates an empty store with no active user.
func NewSummaryStore(cache SummaryCache, opts ...Option) *SummaryStore {
	return &SummaryStore{
		cache:     cache,
		opts:      buildOptions(opts),
		summaries: []model.Summary{},
	}
}

// Reset clears the collection and makes userID the active user.
func (s *SummaryStore) Reset(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userID = userID
	s.epoch++
	s.summaries = []model.Summary{}
	s.ready = false
	s.publishLocked()
}

// Hydrate loads the user's summaries from the cache. A missing snapshot
// means the user has none yet.
func (s *SummaryStore) Hydrate(ctx context.Context) bool {
	s.mu.Lock()
	userID, epoch := s.userID, s.epoch
	s.mu.Unlock()

	if userID == "" || s.cache == nil {
		return false
	}

	cached, ok, err := s.cache.LoadSummaries(ctx, userID)
	if err != nil {
		logger.Warn("Reading summary cache failed", logger.F("user", userID), logger.F("error", err.Error()))
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch {
		return false
	}
	if ok {
		s.summaries = append([]model.Summary(nil), cached...)
	}
	s.ready = true
	s.publishLocked()
	return ok
}

// Add prepends a new summary.
func (s *SummaryStore) Add(title, content string) (model.Summary, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return model.Summary{}, fmt.Errorf("%w: title is required", ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.userID == "" {
		return model.Summary{}, ErrNoUser
	}

	summary := model.Summary{
		ID:        s.opts.newID(),
		Title:     title,
		Content:   content,
		CreatedAt: s.opts.now(),
	}
	s.summaries = append([]model.Summary{summary}, s.summaries...)
	s.ready = true
	s.publishLocked()

	s.opts.notifier.Notify(success("Summary saved", fmt.Sprintf("%q has been saved.", title)))
	return summary, nil
}

// Delete removes summary id.
func (s *SummaryStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, sum := range s.summaries {
		if sum.ID == id {
			s.summaries = append(s.summaries[:i:i], s.summaries[i+1:]...)
			s.ready = true
			s.publishLocked()
			s.opts.notifier.Notify(success("Summary deleted", "Your summary has been deleted successfully."))
			return nil
		}
	}
	return fmt.Errorf("summary %s: %w", id, ErrNotFound)
}

// Get returns summary id.
func (s *SummaryStore) Get(id string) (model.Summary, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sum := range s.summaries {
		if sum.ID == id {
			return sum, true
		}
	}
	return model.Summary{}, false
}

// Summaries returns a copy of the collection, newest first.
func (s *SummaryStore) Summaries() []model.Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Summary{}, s.summaries...)
}

// State returns the current snapshot.
func (s *SummaryStore) State() SummaryState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

// Subscribe returns a latest-wins channel of snapshots and a func to
// unsubscribe.
func (s *SummaryStore) Subscribe() (<-chan SummaryState, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.feed.subscribe(s.stateLocked())
}

// Close closes every subscription.
func (s *SummaryStore) Close() {
	s.feed.close()
}

func (s *SummaryStore) stateLocked() SummaryState {
	return SummaryState{
		UserID:    s.userID,
		Summaries: append([]model.Summary{}, s.summaries...),
		Ready:     s.ready,
	}
}

func (s *SummaryStore) publishLocked() {
	s.feed.publish(s.stateLocked())
}
