package logging

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
)

// ANSI color codes.
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorBlue   = "\033[34m"
	colorGray   = "\033[90m"
)

// ConsoleLogger writes human-readable, optionally coloured
// entries. It writes to stderr so it never interleaves with the
// console report on stdout.
type ConsoleLogger struct {
	mu     *sync.Mutex
	output io.Writer
	level  LogLevel
	color  bool
	fields map[string]any
}

// NewConsoleLogger creates a console logger on stderr that
// drops entries below level.
func NewConsoleLogger(level LogLevel, color bool) *ConsoleLogger {
	return NewConsoleLoggerTo(os.Stderr, level, color)
}

// NewConsoleLoggerTo creates a console logger on w.
func NewConsoleLoggerTo(
	w io.Writer, level LogLevel, color bool,
) *ConsoleLogger {
	return &ConsoleLogger{
		mu:     &sync.Mutex{},
		output: w,
		level:  level,
		color:  color,
		fields: make(map[string]any),
	}
}

func (c *ConsoleLogger) paint(color, s string) string {
	if !c.color {
		return s
	}
	return color + s + colorReset
}

func (c *ConsoleLogger) log(
	level LogLevel, color, msg string, fields ...Field,
) {
	if level < c.level {
		return
	}

	all := mergeFields(c.fields, fields)
	keys := make([]string, 0, len(all))
	for k := range all {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var fieldStr string
	if len(keys) > 0 {
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%s=%v", k, all[k]))
		}
		fieldStr = " " + c.paint(
			colorGray, "{"+strings.Join(parts, ", ")+"}",
		)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(
		c.output, "%s [%s] %s%s\n",
		c.paint(colorGray, time.Now().Format("15:04:05")),
		c.paint(color, fmt.Sprintf("%-5s", level.String())),
		msg, fieldStr,
	)
}

// Info logs an informational message.
func (c *ConsoleLogger) Info(msg string, fields ...Field) {
	c.log(LevelInfo, colorBlue, msg, fields...)
}

// Warn logs a warning message.
func (c *ConsoleLogger) Warn(msg string, fields ...Field) {
	c.log(LevelWarn, colorYellow, msg, fields...)
}

// Error logs an error message.
func (c *ConsoleLogger) Error(msg string, fields ...Field) {
	c.log(LevelError, colorRed, msg, fields...)
}

// Debug logs a debug message.
func (c *ConsoleLogger) Debug(msg string, fields ...Field) {
	c.log(LevelDebug, colorGray, msg, fields...)
}

// WithFields returns a ConsoleLogger sharing the output with
// additional default fields.
func (c *ConsoleLogger) WithFields(fields ...Field) Logger {
	return &ConsoleLogger{
		mu:     c.mu,
		output: c.output,
		level:  c.level,
		color:  c.color,
		fields: mergeFields(c.fields, fields),
	}
}

// LogAPIRequest logs a request summary at debug level.
func (c *ConsoleLogger) LogAPIRequest(request APIRequestLog) {
	c.Debug("api request",
		StringField("request_id", request.RequestID),
		StringField("method", request.Method),
		StringField("url", request.URL),
	)
}

// LogAPIResponse logs a response summary at debug level.
func (c *ConsoleLogger) LogAPIResponse(response APIResponseLog) {
	c.Debug("api response",
		StringField("request_id", response.RequestID),
		IntField("status", response.StatusCode),
		Field{Key: "time_ms", Value: response.ResponseTimeMs},
	)
}

// Close is a no-op.
func (c *ConsoleLogger) Close() error {
	return nil
}
