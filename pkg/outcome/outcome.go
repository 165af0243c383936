// Package outcome classifies check executions and aggregates
// them into rule and run verdicts.
package outcome

import (
	"encoding/json"
	"fmt"
)

// Outcome is the classification of one check execution.
type Outcome int

const (
	// Pass means the check completed without a failure.
	Pass Outcome = iota
	// Fail means the check reported an expected violation.
	Fail
	// Warn is reserved; no current rule produces it but every
	// sink must render it.
	Warn
	// Error means the check raised an unexpected fault.
	Error
)

var outcomeNames = map[Outcome]string{
	Pass:  "PASS",
	Fail:  "FAIL",
	Warn:  "WARN",
	Error: "ERROR",
}

// String returns the upper-case outcome name.
func (o Outcome) String() string {
	if s, ok := outcomeNames[o]; ok {
		return s
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}

// Failed reports whether the outcome counts against a verdict.
func (o Outcome) Failed() bool {
	return o == Fail || o == Error
}

// MarshalJSON encodes the outcome as its name.
func (o Outcome) MarshalJSON() ([]byte, error) {
	return json.Marshal(o.String())
}

// Verdict is the aggregate of a rule or a run.
type Verdict int

const (
	// VerdictPass means no mandatory check failed.
	VerdictPass Verdict = iota
	// VerdictFail means at least one mandatory check failed
	// or errored.
	VerdictFail
)

// String returns "PASS" or "FAIL".
func (v Verdict) String() string {
	if v == VerdictFail {
		return "FAIL"
	}
	return "PASS"
}

// MarshalJSON encodes the verdict as its name.
func (v Verdict) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.String())
}

// Passed reports whether the verdict is PASS.
func (v Verdict) Passed() bool { return v == VerdictPass }

// Fold combines two verdicts; any FAIL wins.
func (v Verdict) Fold(other Verdict) Verdict {
	if v == VerdictFail || other == VerdictFail {
		return VerdictFail
	}
	return VerdictPass
}

// ExitCode maps the verdict to a process exit status.
func (v Verdict) ExitCode() int {
	if v == VerdictFail {
		return 1
	}
	return 0
}
