package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nhle/studytrack/internal/model"
)

// Kind names an entity collection stored per user.
type Kind string

const (
	KindTasks     Kind = "tasks"
	KindGoals     Kind = "goals"
	KindSummaries Kind = "summaries"
)

// DefaultPrefix namespaces every key written by the application.
const DefaultPrefix = "studytrack"

// ErrNoUser is returned when a cache operation is attempted without a user.
var ErrNoUser = errors.New("cache: no user")

// Cache reads and writes JSON snapshots of entity collections, one key per
// (user, kind) pair: "<prefix>-<kind>-<userID>".
type Cache struct {
	kv     KV
	prefix string
}

// New wraps kv. An empty prefix falls back to DefaultPrefix.
func New(kv KV, prefix string) *Cache {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Cache{kv: kv, prefix: prefix}
}

// Key returns the storage key for userID's collection of kind.
func (c *Cache) Key(kind Kind, userID string) string {
	return fmt.Sprintf("%s-%s-%s", c.prefix, kind, userID)
}

func (c *Cache) load(ctx context.Context, kind Kind, userID string, dst interface{}) (bool, error) {
	if userID == "" {
		return false, ErrNoUser
	}
	payload, ok, err := c.kv.Get(ctx, c.Key(kind, userID))
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(payload, dst); err != nil {
		return false, fmt.Errorf("decoding %s snapshot for %s: %w", kind, userID, err)
	}
	return true, nil
}

func (c *Cache) save(ctx context.Context, kind Kind, userID string, v interface{}) error {
	if userID == "" {
		return ErrNoUser
	}
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s snapshot for %s: %w", kind, userID, err)
	}
	return c.kv.Put(ctx, c.Key(kind, userID), payload)
}

// LoadTasks returns the cached tasks for userID. ok is false when nothing
// has been cached yet.
func (c *Cache) LoadTasks(ctx context.Context, userID string) (tasks []model.Task, ok bool, err error) {
	ok, err = c.load(ctx, KindTasks, userID, &tasks)
	if !ok {
		return nil, ok, err
	}
	if tasks == nil {
		tasks = []model.Task{}
	}
	return tasks, true, nil
}

// SaveTasks replaces the cached tasks for userID.
func (c *Cache) SaveTasks(ctx context.Context, userID string, tasks []model.Task) error {
	if tasks == nil {
		tasks = []model.Task{}
	}
	return c.save(ctx, KindTasks, userID, tasks)
}

// LoadGoals returns the cached goals for userID, skipping entries with an
// unknown category.
func (c *Cache) LoadGoals(ctx context.Context, userID string) (goals []model.Goal, ok bool, err error) {
	var raw []model.Goal
	ok, err = c.load(ctx, KindGoals, userID, &raw)
	if !ok {
		return nil, ok, err
	}
	goals = make([]model.Goal, 0, len(raw))
	for _, g := range raw {
		if g.Category.Valid() {
			goals = append(goals, g)
		}
	}
	return goals, true, nil
}

// SaveGoals replaces the cached goals for userID.
func (c *Cache) SaveGoals(ctx context.Context, userID string, goals []model.Goal) error {
	if goals == nil {
		goals = []model.Goal{}
	}
	return c.save(ctx, KindGoals, userID, goals)
}

// LoadSummaries returns the cached summaries for userID.
func (c *Cache) LoadSummaries(ctx context.Context, userID string) (summaries []model.Summary, ok bool, err error) {
	ok, err = c.load(ctx, KindSummaries, userID, &summaries)
	if !ok {
		return nil, ok, err
	}
	if summaries == nil {
		summaries = []model.Summary{}
	}
	return summaries, true, nil
}

// SaveSummaries replaces the cached summaries for userID.
func (c *Cache) SaveSummaries(ctx context.Context, userID string, summaries []model.Summary) error {
	if summaries == nil {
		summaries = []model.Summary{}
	}
	return c.save(ctx, KindSummaries, userID, summaries)
}

// Purge removes every collection cached for userID.
func (c *Cache) Purge(ctx context.Context, userID string) error {
	if userID == "" {
		return ErrNoUser
	}
	var errs []error
	for _, kind := range []Kind{KindTasks, KindGoals, KindSummaries} {
		if err := c.kv.Delete(ctx, c.Key(kind, userID)); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
