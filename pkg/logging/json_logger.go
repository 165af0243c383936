package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// LogEntry is a single JSON Lines entry.
type LogEntry struct {
	Timestamp string          `json:"timestamp"`
	Level     string          `json:"level"`
	Kind      string          `json:"kind,omitempty"`
	Message   string          `json:"message,omitempty"`
	Fields    map[string]any  `json:"fields,omitempty"`
	Request   *APIRequestLog  `json:"request,omitempty"`
	Response  *APIResponseLog `json:"response,omitempty"`
}

// jsonSink is shared between a JSONLogger and the loggers
// derived from it with WithFields.
type jsonSink struct {
	mu     sync.Mutex
	output io.Writer
	closer io.Closer
	closed bool
}

// JSONLogger writes JSON Lines entries, including API traffic,
// to a single stream.
type JSONLogger struct {
	sink   *jsonSink
	level  LogLevel
	fields map[string]any
}

// NewJSONLogger creates a JSON logger writing to w.
func NewJSONLogger(w io.Writer, level LogLevel) *JSONLogger {
	return &JSONLogger{
		sink:   &jsonSink{output: w},
		level:  level,
		fields: make(map[string]any),
	}
}

// OpenJSONLogger creates a JSON logger appending to the file at
// path, creating parent directories as needed.
func OpenJSONLogger(path string, level LogLevel) (*JSONLogger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf(
			"failed to create log directory: %w", err,
		)
	}
	file, err := os.OpenFile(
		path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	l := NewJSONLogger(file, level)
	l.sink.closer = file
	return l, nil
}

func (l *JSONLogger) write(entry LogEntry) {
	entry.Timestamp = time.Now().UTC().Format(time.RFC3339Nano)
	data, err := json.Marshal(entry)
	if err != nil {
		return
	}

	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	if l.sink.closed {
		return
	}
	fmt.Fprintln(l.sink.output, string(data))
}

func (l *JSONLogger) log(level LogLevel, msg string, fields []Field) {
	if level < l.level {
		return
	}
	entry := LogEntry{Level: level.String(), Message: msg}
	if all := mergeFields(l.fields, fields); len(all) > 0 {
		entry.Fields = all
	}
	l.write(entry)
}

// Info logs an informational message.
func (l *JSONLogger) Info(msg string, fields ...Field) {
	l.log(LevelInfo, msg, fields)
}

// Warn logs a warning message.
func (l *JSONLogger) Warn(msg string, fields ...Field) {
	l.log(LevelWarn, msg, fields)
}

// Error logs an error message.
func (l *JSONLogger) Error(msg string, fields ...Field) {
	l.log(LevelError, msg, fields)
}

// Debug logs a debug message.
func (l *JSONLogger) Debug(msg string, fields ...Field) {
	l.log(LevelDebug, msg, fields)
}

// WithFields returns a JSONLogger sharing the stream with
// additional default fields.
func (l *JSONLogger) WithFields(fields ...Field) Logger {
	return &JSONLogger{
		sink:   l.sink,
		level:  l.level,
		fields: mergeFields(l.fields, fields),
	}
}

// LogAPIRequest writes an api_request entry.
func (l *JSONLogger) LogAPIRequest(request APIRequestLog) {
	l.write(LogEntry{
		Level: LevelDebug.String(), Kind: "api_request",
		Request: &request,
	})
}

// LogAPIResponse writes an api_response entry.
func (l *JSONLogger) LogAPIResponse(response APIResponseLog) {
	l.write(LogEntry{
		Level: LevelDebug.String(), Kind: "api_response",
		Response: &response,
	})
}

// Close stops writing and closes the file opened by
// OpenJSONLogger.
func (l *JSONLogger) Close() error {
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	if l.sink.closed {
		return nil
	}
	l.sink.closed = true
	if l.sink.closer != nil {
		return l.sink.closer.Close()
	}
	return nil
}
