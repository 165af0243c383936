package runner

import (
	"time"

	"digital.vasic.repoaudit/pkg/outcome"
	"digital.vasic.repoaudit/pkg/rule"
)

// Report is the in-memory result of one audit run.
type Report struct {
	Subject   string          `json:"subject"`
	Verdict   outcome.Verdict `json:"verdict"`
	Rules     []RuleReport    `json:"rules"`
	StartTime time.Time       `json:"start_time"`
	Duration  time.Duration   `json:"duration"`
}

// RuleReport is the result of one rule.
type RuleReport struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Verdict outcome.Verdict `json:"verdict"`
	Checks  []CheckReport   `json:"checks"`
}

// CheckReport is the result of one check.
type CheckReport struct {
	Name     string          `json:"name"`
	Display  string          `json:"display"`
	Options  rule.Options    `json:"options"`
	Outcome  outcome.Outcome `json:"outcome"`
	Message  string          `json:"message,omitempty"`
	Duration time.Duration   `json:"duration"`
}

// Count returns how many checks of the run ended with o.
func (r *Report) Count(o outcome.Outcome) int {
	n := 0
	for _, rr := range r.Rules {
		for _, c := range rr.Checks {
			if c.Outcome == o {
				n++
			}
		}
	}
	return n
}

// Rule returns the report of the rule with the given ID.
func (r *Report) Rule(id string) (RuleReport, bool) {
	for _, rr := range r.Rules {
		if rr.ID == id {
			return rr, true
		}
	}
	return RuleReport{}, false
}
