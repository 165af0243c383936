// Package httpclient builds the HTTP clients snapshot providers
// use to reach hosting APIs: bearer authentication, a user
// agent and request/response logging.
package httpclient

import (
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"digital.vasic.repoaudit/pkg/logging"
)

// DefaultUserAgent is sent when no other user agent is set.
const DefaultUserAgent = "repoaudit"

// ClientOption configures a client built by New.
type ClientOption func(*Transport, *http.Client)

// WithToken authenticates every request with a bearer token.
func WithToken(token string) ClientOption {
	return func(t *Transport, _ *http.Client) { t.token = token }
}

// WithLogger logs every request and response through logger.
func WithLogger(logger logging.Logger) ClientOption {
	return func(t *Transport, _ *http.Client) { t.logger = logger }
}

// WithUserAgent overrides DefaultUserAgent.
func WithUserAgent(ua string) ClientOption {
	return func(t *Transport, _ *http.Client) { t.userAgent = ua }
}

// WithBase sets the transport that performs the requests.
func WithBase(rt http.RoundTripper) ClientOption {
	return func(t *Transport, _ *http.Client) { t.base = rt }
}

// WithTimeout overrides the default client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(_ *Transport, c *http.Client) { c.Timeout = d }
}

// New creates an *http.Client whose transport is a Transport
// configured by opts.
func New(opts ...ClientOption) *http.Client {
	t := &Transport{
		base:      http.DefaultTransport,
		userAgent: DefaultUserAgent,
		logger:    logging.NullLogger{},
	}
	c := &http.Client{Transport: t, Timeout: 30 * time.Second}
	for _, o := range opts {
		o(t, c)
	}
	return c
}

// Transport decorates a base RoundTripper with authentication
// and API logging. Requests are cloned, never modified.
type Transport struct {
	base      http.RoundTripper
	token     string
	userAgent string
	logger    logging.Logger
	seq       atomic.Uint64
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	if t.token != "" && req.Header.Get("Authorization") == "" {
		req.Header.Set("Authorization", "Bearer "+t.token)
	}
	if t.userAgent != "" && req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", t.userAgent)
	}

	id := fmt.Sprintf("req-%d", t.seq.Add(1))
	start := time.Now()
	t.logger.LogAPIRequest(logging.APIRequestLog{
		Timestamp: start.UTC().Format(time.RFC3339Nano),
		RequestID: id,
		Method:    req.Method,
		URL:       req.URL.String(),
		Headers:   flatten(req.Header),
	})

	resp, err := t.base.RoundTrip(req)
	if err != nil {
		t.logger.Warn("api request failed",
			logging.StringField("request_id", id),
			logging.StringField("url", req.URL.String()),
			logging.ErrorField(err),
		)
		return nil, err
	}

	t.logger.LogAPIResponse(logging.APIResponseLog{
		Timestamp:      time.Now().UTC().Format(time.RFC3339Nano),
		RequestID:      id,
		StatusCode:     resp.StatusCode,
		Headers:        flatten(resp.Header),
		RateRemaining:  resp.Header.Get("X-RateLimit-Remaining"),
		ResponseTimeMs: time.Since(start).Milliseconds(),
	})
	return resp, nil
}

func flatten(h http.Header) map[string]string {
	if len(h) == 0 {
		return nil
	}
	out := make(map[string]string, len(h))
	for k, v := range h {
		if len(v) > 0 {
			out[k] = v[0]
		}
	}
	return out
}
