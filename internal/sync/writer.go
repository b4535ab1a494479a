package sync

import (
	"context"
	gosync "sync"
	"time"

	"github.com/nhle/studytrack/internal/logger"
	"github.com/nhle/studytrack/internal/model"
	"github.com/nhle/studytrack/internal/store"
)

// SnapshotWriter persists collections per user.
type SnapshotWriter interface {
	SaveTasks(ctx context.Context, userID string, tasks []model.Task) error
	SaveGoals(ctx context.Context, userID string, goals []model.Goal) error
	SaveSummaries(ctx context.Context, userID string, summaries []model.Summary) error
}

// Store feeds the writer subscribes to.
type (
	TaskFeed    interface{ Subscribe() (<-chan store.TaskState, func()) }
	GoalFeed    interface{ Subscribe() (<-chan store.GoalState, func()) }
	SummaryFeed interface{ Subscribe() (<-chan store.SummaryState, func()) }
)

// writeTimeout bounds a single snapshot write.
const writeTimeout = 5 * time.Second

// CacheWriter persists every ready snapshot published by the stores into
// the snapshot owner's namespace. Writes happen on the writer's own
// goroutines; failures are logged and dropped.
type CacheWriter struct {
	cache   SnapshotWriter
	cancels []func()
	wg      gosync.WaitGroup
	once    gosync.Once
}

// NewCacheWriter subscribes to the three store feeds.
func NewCacheWriter(cache SnapshotWriter, tasks TaskFeed, goals GoalFeed, summaries SummaryFeed) *CacheWriter {
	w := &CacheWriter{cache: cache}

	taskCh, cancel := tasks.Subscribe()
	w.cancels = append(w.cancels, cancel)
	w.run(func() {
		for st := range taskCh {
			if st.Ready && st.UserID != "" {
				w.save("tasks", st.UserID, func(ctx context.Context) error {
					return w.cache.SaveTasks(ctx, st.UserID, savedTasks(st.Tasks))
				})
			}
		}
	})

	goalCh, cancel := goals.Subscribe()
	w.cancels = append(w.cancels, cancel)
	w.run(func() {
		for st := range goalCh {
			if st.Ready && st.UserID != "" {
				w.save("goals", st.UserID, func(ctx context.Context) error {
					return w.cache.SaveGoals(ctx, st.UserID, st.Goals)
				})
			}
		}
	})

	summaryCh, cancel := summaries.Subscribe()
	w.cancels = append(w.cancels, cancel)
	w.run(func() {
		for st := range summaryCh {
			if st.Ready && st.UserID != "" {
				w.save("summaries", st.UserID, func(ctx context.Context) error {
					return w.cache.SaveSummaries(ctx, st.UserID, st.Summaries)
				})
			}
		}
	})

	return w
}

// savedTasks drops provisional tasks, which do not outlive the process
// that created them.
func savedTasks(tasks []model.Task) []model.Task {
	out := make([]model.Task, 0, len(tasks))
	for _, t := range tasks {
		if !t.Provisional() {
			out = append(out, t)
		}
	}
	return out
}

func (w *CacheWriter) run(loop func()) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		loop()
	}()
}

func (w *CacheWriter) save(kind, userID string, write func(ctx context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	if err := write(ctx); err != nil {
		logger.Warn("Cache write failed",
			logger.F("kind", kind),
			logger.F("user", userID),
			logger.F("error", err.Error()))
	}
}

// Close unsubscribes, writes any snapshot still pending and waits for the
// writer goroutines to finish.
func (w *CacheWriter) Close() {
	w.once.Do(func() {
		for _, cancel := range w.cancels {
			cancel()
		}
		w.wg.Wait()
	})
}
