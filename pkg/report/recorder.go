package report

import (
	"sync"

	"digital.vasic.repoaudit/pkg/outcome"
	"digital.vasic.repoaudit/pkg/rule"
)

// Event is one call received by a Recorder.
type Event struct {
	Method  string
	Subject string
	Rule    string
	Check   string
	Options rule.Options
	Outcome outcome.Outcome
	Message string
	Metric  string
	Value   float64
	Verdict outcome.Verdict
}

// Recorder keeps every event it receives in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder { return &Recorder{} }

func (r *Recorder) Name() string { return "recorder" }

func (r *Recorder) add(e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Methods returns the method names of the recorded events.
func (r *Recorder) Methods() []string {
	events := r.Events()
	out := make([]string, len(events))
	for i, e := range events {
		out[i] = e.Method
	}
	return out
}

// Reset discards all recorded events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

func (r *Recorder) StartRun(subject rule.Subject) error {
	return r.add(Event{Method: "StartRun", Subject: subject.ID()})
}

func (r *Recorder) StartRule(ruleName string) error {
	return r.add(Event{Method: "StartRule", Rule: ruleName})
}

func (r *Recorder) StartCheck(ruleName, checkName string) error {
	return r.add(Event{
		Method: "StartCheck", Rule: ruleName, Check: checkName,
	})
}

func (r *Recorder) ReportCheck(
	ruleName, checkName string,
	opts rule.Options,
	o outcome.Outcome,
	message string,
) error {
	return r.add(Event{
		Method: "ReportCheck", Rule: ruleName, Check: checkName,
		Options: opts, Outcome: o, Message: message,
	})
}

func (r *Recorder) ReportMetric(
	ruleName, metricName string, value float64,
) error {
	return r.add(Event{
		Method: "ReportMetric", Rule: ruleName,
		Metric: metricName, Value: value,
	})
}

func (r *Recorder) ReportRule(ruleName string, verdict outcome.Verdict) error {
	return r.add(Event{
		Method: "ReportRule", Rule: ruleName, Verdict: verdict,
	})
}

func (r *Recorder) ReportRun(
	subject rule.Subject, verdict outcome.Verdict,
) error {
	return r.add(Event{
		Method: "ReportRun", Subject: subject.ID(), Verdict: verdict,
	})
}
