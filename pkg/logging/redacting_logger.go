package logging

import "strings"

// RedactingLogger masks secrets, such as the source-control
// token, in messages, string fields and API headers before
// passing entries to the inner logger.
type RedactingLogger struct {
	inner   Logger
	secrets []string
}

// NewRedactingLogger wraps inner. Secrets of four characters
// or fewer are ignored.
func NewRedactingLogger(inner Logger, secrets ...string) *RedactingLogger {
	var kept []string
	for _, s := range secrets {
		if len(s) > 4 {
			kept = append(kept, s)
		}
	}
	return &RedactingLogger{inner: inner, secrets: kept}
}

func (r *RedactingLogger) redact(s string) string {
	for _, secret := range r.secrets {
		s = strings.ReplaceAll(s, secret, mask(secret))
	}
	return s
}

// mask keeps the first four characters.
func mask(s string) string {
	if len(s) <= 4 {
		return strings.Repeat("*", len(s))
	}
	return s[:4] + strings.Repeat("*", len(s)-4)
}

func (r *RedactingLogger) redactFields(fields []Field) []Field {
	out := make([]Field, len(fields))
	for i, f := range fields {
		if s, ok := f.Value.(string); ok {
			f.Value = r.redact(s)
		}
		out[i] = f
	}
	return out
}

func (r *RedactingLogger) Info(msg string, fields ...Field) {
	r.inner.Info(r.redact(msg), r.redactFields(fields)...)
}

func (r *RedactingLogger) Warn(msg string, fields ...Field) {
	r.inner.Warn(r.redact(msg), r.redactFields(fields)...)
}

func (r *RedactingLogger) Error(msg string, fields ...Field) {
	r.inner.Error(r.redact(msg), r.redactFields(fields)...)
}

func (r *RedactingLogger) Debug(msg string, fields ...Field) {
	r.inner.Debug(r.redact(msg), r.redactFields(fields)...)
}

// WithFields redacts fields before attaching them.
func (r *RedactingLogger) WithFields(fields ...Field) Logger {
	return &RedactingLogger{
		inner:   r.inner.WithFields(r.redactFields(fields)...),
		secrets: r.secrets,
	}
}

// LogAPIRequest masks sensitive headers and the URL.
func (r *RedactingLogger) LogAPIRequest(request APIRequestLog) {
	request.URL = r.redact(request.URL)
	request.Headers = redactHeaders(request.Headers)
	r.inner.LogAPIRequest(request)
}

// LogAPIResponse masks sensitive headers.
func (r *RedactingLogger) LogAPIResponse(response APIResponseLog) {
	response.Headers = redactHeaders(response.Headers)
	r.inner.LogAPIResponse(response)
}

// Close closes the inner logger.
func (r *RedactingLogger) Close() error {
	return r.inner.Close()
}

var sensitiveHeaders = map[string]bool{
	"authorization":  true,
	"x-api-key":      true,
	"x-auth-token":   true,
	"x-access-token": true,
	"cookie":         true,
	"set-cookie":     true,
}

func redactHeaders(headers map[string]string) map[string]string {
	if headers == nil {
		return nil
	}
	out := make(map[string]string, len(headers))
	for k, v := range headers {
		if sensitiveHeaders[strings.ToLower(k)] {
			v = "****"
		}
		out[k] = v
	}
	return out
}
