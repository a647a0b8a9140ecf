// Package logging provides the category-threshold logger backing the
// shell's "log <category> <level>" and "logpoint ... category=<name>
// level=<n>" contracts (see spec.md §6). It wraps log/slog the way
// rcornwell-S370's util/logger wraps it: a stock slog text handler
// plus a registry of per-category integer thresholds.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
)

// Logger is a category-threshold logger. Each category has its own
// integer threshold (higher = more verbose); a line logged at a level
// above the category's threshold is dropped without formatting its
// arguments.
type Logger struct {
	mu         sync.Mutex
	out        io.Writer
	base       *slog.Logger
	thresholds map[string]int
}

// Default is the package-level logger every core component logs
// through unless a machine profile installs its own.
var Default = New(os.Stderr)

// New creates a Logger writing to w.
func New(w io.Writer) *Logger {
	h := slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug})
	return &Logger{
		out:        w,
		base:       slog.New(h),
		thresholds: make(map[string]int),
	}
}

// SetThreshold sets the highest level at which lines in category are
// emitted. Categories default to threshold 0 (errors/info always
// shown, debug-level logpoints suppressed) until raised.
func (l *Logger) SetThreshold(category string, level int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.thresholds[category] = level
}

func (l *Logger) threshold(category string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.thresholds[category]
}

// Logf emits a formatted message in category at level if level does
// not exceed the category's threshold.
func (l *Logger) Logf(category string, level int, format string, args ...any) {
	if level > l.threshold(category) {
		return
	}
	msg := fmt.Sprintf(format, args...)
	l.base.Log(context.Background(), slog.LevelDebug, msg, slog.String("category", category), slog.Int("level", level))
}

// Errorf always logs regardless of category threshold; used for
// host-mediated operation failures (checkpoint I/O, storage errors)
// per spec.md §7 propagation policy.
func (l *Logger) Errorf(format string, args ...any) {
	l.base.Error(fmt.Sprintf(format, args...))
}
