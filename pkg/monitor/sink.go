package monitor

import (
	"digital.vasic.repoaudit/pkg/outcome"
	"digital.vasic.repoaudit/pkg/rule"
)

// Sink is a report.Reporter that emits every event into an
// EventCollector.
type Sink struct {
	collector *EventCollector
}

// NewSink creates a Sink feeding collector.
func NewSink(collector *EventCollector) *Sink {
	return &Sink{collector: collector}
}

func (s *Sink) Name() string { return "monitor" }

func (s *Sink) StartRun(subject rule.Subject) error {
	s.collector.Emit(AuditEvent{
		Type:    EventRunStarted,
		Subject: subject.ID(),
		Product: subject.Product(),
	})
	return nil
}

func (s *Sink) StartRule(ruleName string) error {
	s.collector.Emit(AuditEvent{Type: EventRuleStarted, Rule: ruleName})
	return nil
}

func (s *Sink) StartCheck(ruleName, checkName string) error {
	s.collector.Emit(AuditEvent{
		Type: EventCheckStarted, Rule: ruleName, Check: checkName,
	})
	return nil
}

func (s *Sink) ReportCheck(
	ruleName, checkName string,
	opts rule.Options,
	o outcome.Outcome,
	message string,
) error {
	s.collector.Emit(AuditEvent{
		Type:      EventCheckReported,
		Rule:      ruleName,
		Check:     checkName,
		Mandatory: opts.Mandatory,
		Outcome:   o.String(),
		Message:   message,
	})
	return nil
}

func (s *Sink) ReportMetric(
	ruleName, metricName string, value float64,
) error {
	s.collector.Emit(AuditEvent{
		Type: EventMetric, Rule: ruleName,
		Metric: metricName, Value: value,
	})
	return nil
}

func (s *Sink) ReportRule(ruleName string, verdict outcome.Verdict) error {
	s.collector.Emit(AuditEvent{
		Type: EventRuleReported, Rule: ruleName,
		Verdict: verdict.String(),
	})
	return nil
}

func (s *Sink) ReportRun(subject rule.Subject, verdict outcome.Verdict) error {
	s.collector.Emit(AuditEvent{
		Type:    EventRunReported,
		Subject: subject.ID(),
		Verdict: verdict.String(),
	})
	return nil
}
