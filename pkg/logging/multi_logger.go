package logging

import "errors"

// MultiLogger writes every entry to a list of loggers. The
// console and the optional JSON log file are combined this way.
type MultiLogger struct {
	loggers []Logger
}

// NewMultiLogger combines loggers. Nil and NullLogger entries are
// skipped and nested MultiLoggers are flattened, so the result
// never calls through an empty branch.
func NewMultiLogger(loggers ...Logger) *MultiLogger {
	m := &MultiLogger{}
	for _, l := range loggers {
		switch v := l.(type) {
		case nil, NullLogger, *NullLogger:
		case *MultiLogger:
			m.loggers = append(m.loggers, v.loggers...)
		default:
			m.loggers = append(m.loggers, l)
		}
	}
	return m
}

// Len reports how many loggers receive entries.
func (m *MultiLogger) Len() int { return len(m.loggers) }

func (m *MultiLogger) each(fn func(Logger)) {
	for _, l := range m.loggers {
		fn(l)
	}
}

func (m *MultiLogger) Info(msg string, fields ...Field) {
	m.each(func(l Logger) { l.Info(msg, fields...) })
}

func (m *MultiLogger) Warn(msg string, fields ...Field) {
	m.each(func(l Logger) { l.Warn(msg, fields...) })
}

func (m *MultiLogger) Error(msg string, fields ...Field) {
	m.each(func(l Logger) { l.Error(msg, fields...) })
}

func (m *MultiLogger) Debug(msg string, fields ...Field) {
	m.each(func(l Logger) { l.Debug(msg, fields...) })
}

func (m *MultiLogger) LogAPIRequest(request APIRequestLog) {
	m.each(func(l Logger) { l.LogAPIRequest(request) })
}

func (m *MultiLogger) LogAPIResponse(response APIResponseLog) {
	m.each(func(l Logger) { l.LogAPIResponse(response) })
}

// WithFields returns a MultiLogger over the derived loggers.
func (m *MultiLogger) WithFields(fields ...Field) Logger {
	derived := &MultiLogger{loggers: make([]Logger, 0, len(m.loggers))}
	m.each(func(l Logger) {
		derived.loggers = append(derived.loggers, l.WithFields(fields...))
	})
	return derived
}

// Close closes every logger, including those after a failing
// one, and joins their errors.
func (m *MultiLogger) Close() error {
	var errs []error
	m.each(func(l Logger) {
		errs = append(errs, l.Close())
	})
	return errors.Join(errs...)
}
