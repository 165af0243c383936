package monitor

import (
	"sync"
	"time"
)

// EventCollector captures audit events and keeps counters.
type EventCollector struct {
	mu       sync.RWMutex
	events   []AuditEvent
	handlers []func(AuditEvent)
	stats    CollectorStats
	now      func() time.Time
}

// CollectorStats holds aggregate statistics.
type CollectorStats struct {
	Events      int           `json:"events"`
	Checks      int           `json:"checks"`
	Passed      int           `json:"passed"`
	Failed      int           `json:"failed"`
	Warned      int           `json:"warned"`
	Errored     int           `json:"errored"`
	Rules       int           `json:"rules"`
	RulesFailed int           `json:"rules_failed"`
	Verdict     string        `json:"verdict,omitempty"`
	StartTime   time.Time     `json:"start_time"`
	Duration    time.Duration `json:"duration"`
}

// NewEventCollector creates a new event collector.
func NewEventCollector() *EventCollector {
	return &EventCollector{
		events: make([]AuditEvent, 0, 64),
		stats:  CollectorStats{StartTime: time.Now()},
		now:    time.Now,
	}
}

// OnEvent registers a handler to be called for each event.
// Handlers run synchronously on the emitting goroutine.
func (c *EventCollector) OnEvent(handler func(AuditEvent)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers = append(c.handlers, handler)
}

// Emit records an event and notifies all handlers.
func (c *EventCollector) Emit(event AuditEvent) {
	c.mu.Lock()
	if event.Timestamp.IsZero() {
		event.Timestamp = c.now()
	}
	if event.Type == EventRunStarted {
		c.events = c.events[:0]
		c.stats = CollectorStats{StartTime: event.Timestamp}
	}
	c.events = append(c.events, event)
	c.count(event)
	c.stats.Duration = event.Timestamp.Sub(c.stats.StartTime)
	handlers := make([]func(AuditEvent), len(c.handlers))
	copy(handlers, c.handlers)
	c.mu.Unlock()

	for _, h := range handlers {
		h(event)
	}
}

func (c *EventCollector) count(event AuditEvent) {
	c.stats.Events++
	switch event.Type {
	case EventCheckReported:
		c.stats.Checks++
		switch event.Outcome {
		case "PASS":
			c.stats.Passed++
		case "FAIL":
			c.stats.Failed++
		case "WARN":
			c.stats.Warned++
		default:
			c.stats.Errored++
		}
	case EventRuleReported:
		c.stats.Rules++
		if event.Verdict == "FAIL" {
			c.stats.RulesFailed++
		}
	case EventRunReported:
		c.stats.Verdict = event.Verdict
	}
}

// Events returns a copy of the events of the current run.
func (c *EventCollector) Events() []AuditEvent {
	c.mu.RLock()
	defer c.mu.RUnlock()
	result := make([]AuditEvent, len(c.events))
	copy(result, c.events)
	return result
}

// Stats returns the current aggregate statistics.
func (c *EventCollector) Stats() CollectorStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stats
}

// Reset clears all collected events and statistics.
func (c *EventCollector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = c.events[:0]
	c.stats = CollectorStats{StartTime: c.now()}
}
