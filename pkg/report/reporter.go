// Package report delivers run lifecycle and outcome events to
// reporting sinks: the console, CSV files, run summaries and,
// through the Fanout, any number of them at once.
package report

import (
	"digital.vasic.repoaudit/pkg/outcome"
	"digital.vasic.repoaudit/pkg/rule"
)

// Reporter receives the lifecycle events of one audit run, in
// the order StartRun, then per rule StartRule, per check
// StartCheck and ReportCheck, then ReportRule, and finally
// ReportRun. ReportMetric is emitted by the metric pass.
//
// Errors returned by a Reporter are logged by the caller and
// never change the outcome of a run.
type Reporter interface {
	StartRun(subject rule.Subject) error
	StartRule(ruleName string) error
	StartCheck(ruleName, checkName string) error
	ReportCheck(
		ruleName, checkName string,
		opts rule.Options,
		o outcome.Outcome,
		message string,
	) error
	ReportMetric(ruleName, metricName string, value float64) error
	ReportRule(ruleName string, verdict outcome.Verdict) error
	ReportRun(subject rule.Subject, verdict outcome.Verdict) error
}

// Base implements every Reporter method as a no-op. Embed it
// and override only the events a sink needs.
type Base struct{}

func (Base) StartRun(rule.Subject) error { return nil }

func (Base) StartRule(string) error { return nil }

func (Base) StartCheck(string, string) error { return nil }

func (Base) ReportCheck(
	string, string, rule.Options, outcome.Outcome, string,
) error {
	return nil
}

func (Base) ReportMetric(string, string, float64) error { return nil }

func (Base) ReportRule(string, outcome.Verdict) error { return nil }

func (Base) ReportRun(rule.Subject, outcome.Verdict) error { return nil }

// Named is implemented by sinks that want a stable name in
// fan-out log entries.
type Named interface {
	Name() string
}
