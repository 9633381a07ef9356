// Package slogobs implements observability.Provider on top of the standard
// library's log/slog, so the engine's structured events flow into whatever
// slog handler the host application configured.
package slogobs

import (
	"context"
	"log/slog"
	"sync"

	"github.com/eli0s78/Universal-Academic-Workflow/providers/observability"
)

// Observer implements observability.Provider using log/slog.
type Observer struct {
	logger   *slog.Logger
	mu       sync.Mutex
	counters map[string]*slogCounter
}

var _ observability.Provider = (*Observer)(nil)

// New creates a new slog-based observer. A nil logger falls back to
// slog.Default().
func New(logger *slog.Logger) *Observer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Observer{
		logger:   logger,
		counters: make(map[string]*slogCounter),
	}
}

func (o *Observer) log(level slog.Level, msg string, attrs []observability.Attribute) {
	logAttrs := make([]slog.Attr, 0, len(attrs))
	for _, attr := range attrs {
		logAttrs = append(logAttrs, slog.Any(attr.Key, attr.Value))
	}
	o.logger.LogAttrs(context.Background(), level, msg, logAttrs...)
}

func (o *Observer) Debug(msg string, attrs ...observability.Attribute) {
	o.log(slog.LevelDebug, msg, attrs)
}

func (o *Observer) Info(msg string, attrs ...observability.Attribute) {
	o.log(slog.LevelInfo, msg, attrs)
}

func (o *Observer) Warn(msg string, attrs ...observability.Attribute) {
	o.log(slog.LevelWarn, msg, attrs)
}

func (o *Observer) Error(msg string, attrs ...observability.Attribute) {
	o.log(slog.LevelError, msg, attrs)
}

// Counter creates or retrieves a counter that logs each increment at debug
// level alongside its running total.
func (o *Observer) Counter(name string) observability.Counter {
	o.mu.Lock()
	defer o.mu.Unlock()

	if counter, exists := o.counters[name]; exists {
		return counter
	}
	counter := &slogCounter{name: name, logger: o.logger}
	o.counters[name] = counter
	return counter
}

type slogCounter struct {
	name   string
	logger *slog.Logger
	mu     sync.Mutex
	value  int64
}

func (c *slogCounter) Add(value int64, attrs ...observability.Attribute) {
	c.mu.Lock()
	c.value += value
	currentValue := c.value
	c.mu.Unlock()

	logAttrs := []slog.Attr{
		slog.String("metric", c.name),
		slog.Int64("value", currentValue),
		slog.Int64("delta", value),
	}
	for _, attr := range attrs {
		logAttrs = append(logAttrs, slog.Any(attr.Key, attr.Value))
	}
	c.logger.LogAttrs(context.Background(), slog.LevelDebug, "Counter", logAttrs...)
}
