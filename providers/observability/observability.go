// Package observability defines the logging and metrics abstraction used
// across the engine. Components accept a Provider optionally; a nil provider
// disables observability with zero overhead.
package observability

import (
	"fmt"
	"time"
)

// Provider is the main interface for observability (logging and metrics).
type Provider interface {
	Logger
	Metrics
}

// Logger provides structured logging capabilities.
type Logger interface {
	Debug(msg string, attrs ...Attribute)
	Info(msg string, attrs ...Attribute)
	Warn(msg string, attrs ...Attribute)
	Error(msg string, attrs ...Attribute)
}

// Metrics provides metrics collection capabilities.
type Metrics interface {
	// Counter creates or retrieves a monotonically increasing counter metric.
	Counter(name string) Counter
}

// Counter is a monotonically increasing metric.
type Counter interface {
	Add(value int64, attrs ...Attribute)
}

// Attribute represents a key-value pair for metadata.
type Attribute struct {
	Key   string
	Value any
}

// String creates a string attribute.
func String(key, value string) Attribute {
	return Attribute{Key: key, Value: value}
}

// Int creates an integer attribute.
func Int(key string, value int) Attribute {
	return Attribute{Key: key, Value: value}
}

// Duration creates a duration attribute.
func Duration(key string, value time.Duration) Attribute {
	return Attribute{Key: key, Value: value}
}

// Error creates an error attribute.
func Error(err error) Attribute {
	if err == nil {
		return Attribute{Key: "error", Value: ""}
	}
	return Attribute{Key: "error", Value: err.Error()}
}

// TruncateString truncates a string to maxLen characters, adding a suffix with
// the original length, so large prompt payloads stay readable in log output.
func TruncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return fmt.Sprintf("%s... (truncated, total: %d chars)", s[:maxLen], len(s))
}
