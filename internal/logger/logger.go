package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"
)

// Level represents log severity.
type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
)

func (l Level) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel converts a level name to a Level. Unknown names map to INFO.
func ParseLevel(s string) Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return DEBUG
	case "WARN", "WARNING":
		return WARN
	case "ERROR":
		return ERROR
	default:
		return INFO
	}
}

// Field is a key-value pair attached to a log entry.
type Field struct {
	Key   string
	Value interface{}
}

// F is a shorthand for creating a Field.
func F(key string, value interface{}) Field {
	return Field{Key: key, Value: value}
}

// Config holds logger configuration.
type Config struct {
	Level      Level
	FilePath   string // empty disables file output
	MaxSize    int64  // bytes before rotation
	MaxBackups int
	Console    bool // also write to stderr

	// Output overrides all other sinks when set. Used by tests.
	Output io.Writer
}

// Logger writes leveled entries with structured fields.
type Logger struct {
	cfg    Config
	out    *output
	fields []Field
}

// output is shared by a logger and all loggers derived via With.
type output struct {
	mu      sync.Mutex
	file    *os.File
	size    int64
	writers []io.Writer
}

var (
	global   *Logger
	globalMu sync.RWMutex
)

// New creates a logger. The log directory is created if needed.
func New(cfg Config) (*Logger, error) {
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = 10 * 1024 * 1024
	}
	if cfg.MaxBackups <= 0 {
		cfg.MaxBackups = 5
	}

	out := &output{}
	switch {
	case cfg.Output != nil:
		out.writers = []io.Writer{cfg.Output}
	default:
		if cfg.FilePath != "" {
			if err := out.openFile(cfg.FilePath); err != nil {
				return nil, err
			}
		}
		if cfg.Console {
			out.writers = append(out.writers, os.Stderr)
		}
	}

	return &Logger{cfg: cfg, out: out}, nil
}

func (o *output) openFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("stat log file: %w", err)
	}
	o.file = f
	o.size = info.Size()
	o.writers = append([]io.Writer{f}, o.writers...)
	return nil
}

// rotate shifts path.N to path.N+1 and reopens a fresh file.
// Callers hold o.mu.
func (o *output) rotate(path string, backups int) {
	if o.file == nil {
		return
	}
	o.file.Close()
	for i := backups - 1; i >= 1; i-- {
		_ = os.Rename(fmt.Sprintf("%s.%d", path, i), fmt.Sprintf("%s.%d", path, i+1))
	}
	_ = os.Rename(path, path+".1")

	rest := o.writers[1:]
	o.writers = rest
	o.file = nil
	if err := o.openFile(path); err != nil {
		fmt.Fprintf(os.Stderr, "log rotation failed: %v\n", err)
	}
}

func (l *Logger) log(level Level, msg string, fields []Field) {
	if l == nil || level < l.cfg.Level {
		return
	}

	_, file, line, ok := runtime.Caller(3)
	caller := "???"
	if ok {
		caller = fmt.Sprintf("%s:%d", filepath.Base(file), line)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s %s: %s",
		time.Now().Format("2006-01-02 15:04:05.000"), level, caller, msg)

	all := append(append([]Field{}, l.fields...), fields...)
	if len(all) > 0 {
		b.WriteString(" |")
		for _, f := range all {
			fmt.Fprintf(&b, " %s=%v", f.Key, f.Value)
		}
	}
	b.WriteByte('\n')
	entry := b.String()

	l.out.mu.Lock()
	defer l.out.mu.Unlock()

	if l.out.file != nil && l.out.size+int64(len(entry)) > l.cfg.MaxSize {
		l.out.rotate(l.cfg.FilePath, l.cfg.MaxBackups)
	}
	for _, w := range l.out.writers {
		n, _ := io.WriteString(w, entry)
		if w == l.out.file {
			l.out.size += int64(n)
		}
	}
}

func (l *Logger) emit(level Level, msg string, fields []Field) { l.log(level, msg, fields) }

// With returns a logger that attaches fields to every entry.
func (l *Logger) With(fields ...Field) *Logger {
	if l == nil {
		return nil
	}
	return &Logger{
		cfg:    l.cfg,
		out:    l.out,
		fields: append(append([]Field{}, l.fields...), fields...),
	}
}

func (l *Logger) Debug(msg string, fields ...Field) { l.emit(DEBUG, msg, fields) }
func (l *Logger) Info(msg string, fields ...Field)  { l.emit(INFO, msg, fields) }
func (l *Logger) Warn(msg string, fields ...Field)  { l.emit(WARN, msg, fields) }
func (l *Logger) Error(msg string, fields ...Field) { l.emit(ERROR, msg, fields) }

// Close closes the log file, if any.
func (l *Logger) Close() error {
	if l == nil {
		return nil
	}
	l.out.mu.Lock()
	defer l.out.mu.Unlock()
	if l.out.file != nil {
		err := l.out.file.Close()
		l.out.file = nil
		return err
	}
	return nil
}

// Init installs the global logger used by the package-level helpers.
func Init(cfg Config) error {
	l, err := New(cfg)
	if err != nil {
		return err
	}
	globalMu.Lock()
	old := global
	global = l
	globalMu.Unlock()
	if old != nil {
		_ = old.Close()
	}
	return nil
}

func current() *Logger {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return global
}

// Package-level helpers are no-ops until Init is called.

func Debug(msg string, fields ...Field) { current().emit(DEBUG, msg, fields) }
func Info(msg string, fields ...Field)  { current().emit(INFO, msg, fields) }
func Warn(msg string, fields ...Field)  { current().emit(WARN, msg, fields) }
func Error(msg string, fields ...Field) { current().emit(ERROR, msg, fields) }

// With returns a child of the global logger, or nil before Init.
func With(fields ...Field) *Logger {
	return current().With(fields...)
}

// Close closes the global logger.
func Close() error {
	return current().Close()
}
