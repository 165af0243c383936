// Package monitor streams audit run events to live observers
// over WebSocket and keeps an aggregated view of the run.
package monitor

import (
	"time"
)

// EventType represents the type of audit event.
type EventType string

const (
	EventRunStarted    EventType = "run_started"
	EventRuleStarted   EventType = "rule_started"
	EventCheckStarted  EventType = "check_started"
	EventCheckReported EventType = "check_reported"
	EventMetric        EventType = "metric"
	EventRuleReported  EventType = "rule_reported"
	EventRunReported   EventType = "run_reported"
)

// AuditEvent represents a lifecycle event during an audit run.
type AuditEvent struct {
	Type      EventType `json:"type"`
	Subject   string    `json:"subject,omitempty"`
	Product   string    `json:"product,omitempty"`
	Rule      string    `json:"rule,omitempty"`
	Check     string    `json:"check,omitempty"`
	Mandatory bool      `json:"mandatory,omitempty"`
	Outcome   string    `json:"outcome,omitempty"`
	Message   string    `json:"message,omitempty"`
	Metric    string    `json:"metric,omitempty"`
	Value     float64   `json:"value,omitempty"`
	Verdict   string    `json:"verdict,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
