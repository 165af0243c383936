// Package logging provides structured logging for audit runs
// with console, JSON Lines and multi-destination output.
package logging

import (
	"fmt"
	"strings"
)

// Logger is the structured logger used across the engine,
// providers and sinks.
type Logger interface {
	// Info logs an informational message.
	Info(msg string, fields ...Field)

	// Warn logs a warning message.
	Warn(msg string, fields ...Field)

	// Error logs an error message.
	Error(msg string, fields ...Field)

	// Debug logs a debug-level message.
	Debug(msg string, fields ...Field)

	// WithFields returns a Logger that attaches fields to
	// every subsequent entry.
	WithFields(fields ...Field) Logger

	// LogAPIRequest records an outbound source-control API
	// request.
	LogAPIRequest(request APIRequestLog)

	// LogAPIResponse records the matching response.
	LogAPIResponse(response APIResponseLog)

	// Close flushes buffers and releases resources.
	Close() error
}

// Field is a key-value pair attached to a log entry.
type Field struct {
	Key   string
	Value any
}

// APIRequestLog captures an outbound API request.
type APIRequestLog struct {
	Timestamp string            `json:"timestamp"`
	RequestID string            `json:"request_id"`
	Method    string            `json:"method"`
	URL       string            `json:"url"`
	Headers   map[string]string `json:"headers,omitempty"`
}

// APIResponseLog captures an API response.
type APIResponseLog struct {
	Timestamp      string            `json:"timestamp"`
	RequestID      string            `json:"request_id"`
	StatusCode     int               `json:"status_code"`
	Headers        map[string]string `json:"headers,omitempty"`
	RateRemaining  string            `json:"rate_remaining,omitempty"`
	ResponseTimeMs int64             `json:"response_time_ms"`
}

// LogLevel is a logging severity.
type LogLevel int

const (
	// LevelDebug is the most verbose level.
	LevelDebug LogLevel = iota
	// LevelInfo is the default level.
	LevelInfo
	// LevelWarn indicates potential issues.
	LevelWarn
	// LevelError indicates failures.
	LevelError
)

// String returns the upper-case level name.
func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel parses a case-insensitive level name. An empty
// string yields LevelInfo.
func ParseLevel(s string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "", "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	}
	return LevelInfo, fmt.Errorf("unknown log level %q", s)
}

func mergeFields(base map[string]any, fields []Field) map[string]any {
	out := make(map[string]any, len(base)+len(fields))
	for k, v := range base {
		out[k] = v
	}
	for _, f := range fields {
		out[f.Key] = f.Value
	}
	return out
}
