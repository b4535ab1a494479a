package testutil

import (
	"testing"

	"github.com/nhle/studytrack/internal/cache"
)

// NewTestKV creates an in-memory SQLiteKV with all migrations applied.
// It automatically closes the database when the test completes.
func NewTestKV(t *testing.T) *cache.SQLiteKV {
	t.Helper()

	kv, err := cache.NewSQLiteKV(":memory:")
	if err != nil {
		t.Fatalf("creating test kv: %v", err)
	}

	t.Cleanup(func() {
		if err := kv.Close(); err != nil {
			t.Errorf("closing test kv: %v", err)
		}
	})

	return kv
}

// NewTestCache wraps a fresh in-memory KV with the default key prefix.
func NewTestCache(t *testing.T) *cache.Cache {
	t.Helper()
	return cache.New(NewTestKV(t), cache.DefaultPrefix)
}
