// Package debug provides opt-in debug logging on log/slog.
package debug

import (
	"log/slog"
	"os"
	"sync"
)

var (
	mu      sync.RWMutex
	enabled bool
	logger  = discard()
)

// Init enables or disables debug logging. When enabled, records are written
// as text to stderr; when disabled, they are silently dropped. Init may be
// called at any time, including from tests.
func Init(enable bool) {
	mu.Lock()
	defer mu.Unlock()
	enabled = enable
	if enable {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
	} else {
		logger = discard()
	}
}

// Enabled reports whether debug logging is on.
func Enabled() bool {
	mu.RLock()
	defer mu.RUnlock()
	return enabled
}

// Debug logs a debug-level record.
func Debug(msg string, args ...any) {
	get().Debug(msg, args...)
}

// Info logs an info-level record.
func Info(msg string, args ...any) {
	get().Info(msg, args...)
}

// Warn logs a warning record.
func Warn(msg string, args ...any) {
	get().Warn(msg, args...)
}

// Error logs an error record.
func Error(msg string, args ...any) {
	get().Error(msg, args...)
}

func get() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError + 1,
	}))
}
