package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/nhle/studytrack/internal/api"
	"github.com/nhle/studytrack/internal/cache"
	"github.com/nhle/studytrack/internal/credential"
	"github.com/nhle/studytrack/internal/logger"
	"github.com/nhle/studytrack/internal/session"
)

// ErrNotLoggedIn is returned by commands that need an active user.
var ErrNotLoggedIn = errors.New("not logged in; run 'studytrack login' first")

// env is an opened session for the configured user.
type env struct {
	user     string
	interval int
	client   *api.Client
	kv       *cache.SQLiteKV
	sess     *session.Session

	// syncErr is the revalidation failure of the initial load, if any.
	// Cached data is still available when it is set.
	syncErr error
}

// newClient builds the API client from the configuration.
func (r *runner) newClient() (*api.Client, error) {
	return api.NewClient(api.Config{
		BaseURL:    r.cfg.API.BaseURL,
		Timeout:    time.Duration(r.cfg.API.TimeoutSec) * time.Second,
		MaxRetries: r.cfg.API.MaxRetries,
		CSRFCookie: r.cfg.API.CSRFCookie,
	})
}

// openCache opens the durable cache, creating its directory.
func (r *runner) openCache() (*cache.SQLiteKV, error) {
	path := r.cfg.Cache.Path
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating cache directory: %w", err)
		}
	}
	return cache.NewSQLiteKV(path)
}

// open loads the session of the configured user: cached data first, then
// a revalidation against the server.
func (r *runner) open(ctx context.Context) (*env, error) {
	userID := r.cfg.User.ID
	if userID == "" {
		return nil, ErrNotLoggedIn
	}

	creds, err := credential.LoadSession(userID)
	if errors.Is(err, credential.ErrNoSession) {
		return nil, ErrNotLoggedIn
	}
	if err != nil {
		return nil, err
	}

	client, err := r.newClient()
	if err != nil {
		return nil, err
	}
	client.SetSession(creds.SessionID, creds.CSRFToken)

	kv, err := r.openCache()
	if err != nil {
		return nil, err
	}

	e := &env{
		user:     userID,
		interval: r.cfg.Sync.IntervalSec,
		client:   client,
		kv:       kv,
		sess:     session.New(client, cache.New(kv, r.cfg.Cache.Prefix)),
	}

	if err := e.sess.SwitchUser(ctx, userID); err != nil {
		logger.Warn("Revalidation failed, using cached data",
			logger.F("user", userID),
			logger.F("error", err.Error()))
		e.syncErr = err
	}
	return e, nil
}

// warnIfStale tells the user when the data shown came from the cache only.
func (e *env) warnIfStale(w io.Writer) {
	if e.syncErr == nil {
		return
	}
	if api.IsAuthError(e.syncErr) {
		printf(w, "⚠ Session expired; showing cached data. Run 'studytrack login' again.\n")
		return
	}
	printf(w, "⚠ Could not refresh from the server; showing cached data.\n")
}

// Close flushes pending cache writes and closes the cache.
func (e *env) Close() {
	e.sess.Close()
	if err := e.kv.Close(); err != nil {
		logger.Warn("Failed to close cache", logger.F("error", err.Error()))
	}
}
