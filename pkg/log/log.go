// Package log provides the channelled logging sink for the Blocks runtime.
//
// Runtime events (hook firings, watcher attachment, destroy teardown) are
// emitted on named channels such as "component:hook:mounted". The sink is
// backed by zap and defaults to a no-op logger, so embedding applications
// opt in by installing their own logger with SetLogger.
package log

import (
	"sync"

	"go.uber.org/zap"
)

var (
	mu     sync.RWMutex
	logger *zap.Logger
)

// Logger returns the runtime's logger instance.
// It uses a no-op logger by default.
func Logger() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

// SetLogger configures the runtime's logger.
// Pass nil to restore the no-op default.
func SetLogger(l *zap.Logger) {
	mu.Lock()
	logger = l
	mu.Unlock()
}

// Channel returns a sugared logger named after the given channel.
func Channel(name string) *zap.SugaredLogger {
	return Logger().Sugar().Named(name)
}

// Emit logs an event on the given channel. Failure to log is never fatal:
// the default logger is a no-op and zap never panics on emission.
func Emit(channel string, args ...any) {
	Channel(channel).Debugw("event", "args", args)
}
