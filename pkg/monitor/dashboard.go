package monitor

import (
	"sync"
	"time"
)

// Dashboard run statuses.
const (
	StatusIdle    = "idle"
	StatusRunning = "running"
)

// DashboardData is a real-time view of the audit run in
// progress, rebuilt from the event stream.
type DashboardData struct {
	mu        sync.RWMutex
	Subject   string           `json:"subject,omitempty"`
	Product   string           `json:"product,omitempty"`
	StartTime time.Time        `json:"start_time"`
	Status    string           `json:"status"`
	Rules     []RuleState      `json:"rules"`
	Summary   DashboardSummary `json:"summary"`
}

// RuleState is the state of one rule in the dashboard.
type RuleState struct {
	Name   string       `json:"name"`
	Status string       `json:"status"`
	Checks []CheckState `json:"checks"`
}

// CheckState is the state of one check in the dashboard.
type CheckState struct {
	Name      string `json:"name"`
	Mandatory bool   `json:"mandatory"`
	Status    string `json:"status"`
	Message   string `json:"message,omitempty"`
}

// DashboardSummary holds aggregate stats for the dashboard.
type DashboardSummary struct {
	Checks   int     `json:"checks"`
	Passed   int     `json:"passed"`
	Failed   int     `json:"failed"`
	Errored  int     `json:"errored"`
	Running  int     `json:"running"`
	PassRate float64 `json:"pass_rate"`
}

// NewDashboardData creates an idle dashboard.
func NewDashboardData() *DashboardData {
	return &DashboardData{Status: StatusIdle}
}

// UpdateFromEvent updates dashboard state from an audit event.
func (d *DashboardData) UpdateFromEvent(event AuditEvent) {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch event.Type {
	case EventRunStarted:
		d.Subject = event.Subject
		d.Product = event.Product
		d.StartTime = event.Timestamp
		d.Status = StatusRunning
		d.Rules = nil
	case EventRuleStarted:
		d.Rules = append(d.Rules, RuleState{
			Name: event.Rule, Status: StatusRunning,
		})
	case EventCheckStarted:
		if r := d.rule(event.Rule); r != nil {
			r.Checks = append(r.Checks, CheckState{
				Name: event.Check, Status: StatusRunning,
			})
		}
	case EventCheckReported:
		if c := d.check(event.Rule, event.Check); c != nil {
			c.Status = event.Outcome
			c.Mandatory = event.Mandatory
			c.Message = event.Message
		}
	case EventRuleReported:
		if r := d.rule(event.Rule); r != nil {
			r.Status = event.Verdict
		}
	case EventRunReported:
		d.Status = event.Verdict
	}
	d.recalcSummary()
}

func (d *DashboardData) rule(name string) *RuleState {
	for i := len(d.Rules) - 1; i >= 0; i-- {
		if d.Rules[i].Name == name {
			return &d.Rules[i]
		}
	}
	return nil
}

func (d *DashboardData) check(ruleName, name string) *CheckState {
	r := d.rule(ruleName)
	if r == nil {
		return nil
	}
	for i := len(r.Checks) - 1; i >= 0; i-- {
		if r.Checks[i].Name == name {
			return &r.Checks[i]
		}
	}
	return nil
}

func (d *DashboardData) recalcSummary() {
	s := DashboardSummary{}
	for _, r := range d.Rules {
		for _, c := range r.Checks {
			s.Checks++
			switch c.Status {
			case "PASS":
				s.Passed++
			case "FAIL":
				s.Failed++
			case StatusRunning:
				s.Running++
			case "ERROR":
				s.Errored++
			}
		}
	}
	if completed := s.Checks - s.Running; completed > 0 {
		s.PassRate = float64(s.Passed) / float64(completed) * 100
	}
	d.Summary = s
}

// Snapshot returns a deep copy of the current dashboard state.
func (d *DashboardData) Snapshot() *DashboardData {
	d.mu.RLock()
	defer d.mu.RUnlock()
	snap := &DashboardData{
		Subject:   d.Subject,
		Product:   d.Product,
		StartTime: d.StartTime,
		Status:    d.Status,
		Summary:   d.Summary,
		Rules:     make([]RuleState, len(d.Rules)),
	}
	for i, r := range d.Rules {
		r.Checks = append([]CheckState(nil), r.Checks...)
		snap.Rules[i] = r
	}
	return snap
}

// BuildDashboardData creates a DashboardData by replaying the
// events held by collector.
func BuildDashboardData(collector *EventCollector) *DashboardData {
	data := NewDashboardData()
	for _, event := range collector.Events() {
		data.UpdateFromEvent(event)
	}
	return data
}
