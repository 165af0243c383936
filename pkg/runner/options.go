package runner

import (
	"time"

	"digital.vasic.repoaudit/pkg/logging"
	"digital.vasic.repoaudit/pkg/report"
)

// Option configures a Checker.
type Option func(*options)

type options struct {
	reporter  report.Reporter
	logger    logging.Logger
	ruleIDs   []string
	slowAfter time.Duration
	now       func() time.Time
}

// WithReporter sets the reporter that receives run events.
// Pass a *report.Fanout to reach several sinks.
func WithReporter(r report.Reporter) Option {
	return func(o *options) {
		o.reporter = r
	}
}

// WithLogger sets the logger used by the checker.
func WithLogger(logger logging.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithRules restricts runs to the rules with the given IDs.
// Rules keep their catalogue order.
func WithRules(ids ...string) Option {
	return func(o *options) {
		o.ruleIDs = append(o.ruleIDs, ids...)
	}
}

// WithSlowCheckWarning logs a warning each time a single check
// has been running for another d. Checks are never cancelled.
// Zero disables the warning.
func WithSlowCheckWarning(d time.Duration) Option {
	return func(o *options) {
		o.slowAfter = d
	}
}

func withClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}
