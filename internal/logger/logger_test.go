package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Config{Level: WARN, Output: &buf})
	require.NoError(t, err)

	l.Info("hidden")
	l.Warn("shown", F("key", "value"))

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "WARN")
	assert.Contains(t, out, "shown | key=value")
}

func TestWithAddsFields(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Config{Level: DEBUG, Output: &buf})
	require.NoError(t, err)

	l.With(F("user", "u1")).Debug("hello", F("n", 2))
	assert.Contains(t, buf.String(), "user=u1 n=2")
	assert.Contains(t, buf.String(), "logger_test.go")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, DEBUG, ParseLevel("debug"))
	assert.Equal(t, WARN, ParseLevel("WARNING"))
	assert.Equal(t, ERROR, ParseLevel("ERROR"))
	assert.Equal(t, INFO, ParseLevel("nonsense"))
}

func TestRotation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	l, err := New(Config{Level: DEBUG, FilePath: path, MaxSize: 200, MaxBackups: 2})
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })

	for i := 0; i < 10; i++ {
		l.Info(strings.Repeat("x", 60))
	}

	_, err = os.Stat(path + ".1")
	assert.NoError(t, err)
	_, err = os.Stat(path + ".3")
	assert.True(t, os.IsNotExist(err))
}

func TestGlobalHelpersBeforeInit(t *testing.T) {
	globalMu.Lock()
	saved := global
	global = nil
	globalMu.Unlock()
	t.Cleanup(func() {
		globalMu.Lock()
		global = saved
		globalMu.Unlock()
	})

	assert.NotPanics(t, func() {
		Info("no logger yet")
		assert.Nil(t, With(F("a", 1)))
	})
}
