package rule

import (
	"errors"
	"fmt"
)

type resultKind int

const (
	kindPass resultKind = iota
	kindViolation
	kindFault
)

// Result is the outcome of a check operation. A check either
// passes, reports an expected violation of the audited policy,
// or reports an unexpected fault.
type Result struct {
	kind    resultKind
	message string
	err     error
}

// Pass reports that the check held.
func Pass() Result {
	return Result{kind: kindPass}
}

// Fail reports an expected, user-actionable violation.
func Fail(message string) Result {
	return Result{kind: kindViolation, message: message}
}

// Failf is Fail with a format string.
func Failf(format string, args ...any) Result {
	return Fail(fmt.Sprintf(format, args...))
}

// Fault reports an unexpected error raised while checking. A
// nil error is treated as a fault with an unknown cause.
func Fault(err error) Result {
	if err == nil {
		err = errors.New("unknown fault")
	}
	return Result{kind: kindFault, err: err}
}

// Expect converts an error returned by a collaborator: nil
// passes, a *Violation anywhere in the chain fails with the
// violation's message, anything else is a fault.
func Expect(err error) Result {
	if err == nil {
		return Pass()
	}
	var v *Violation
	if errors.As(err, &v) {
		return Fail(v.Message)
	}
	return Fault(err)
}

// Passed reports whether the check held.
func (r Result) Passed() bool { return r.kind == kindPass }

// Violated reports whether the check found a violation.
func (r Result) Violated() bool { return r.kind == kindViolation }

// Faulted reports whether the check raised a fault.
func (r Result) Faulted() bool { return r.kind == kindFault }

// Message returns the violation message, or the fault's error
// text.
func (r Result) Message() string {
	if r.kind == kindFault {
		return r.err.Error()
	}
	return r.message
}

// Err returns the fault, or nil.
func (r Result) Err() error { return r.err }

// Violation is an error type collaborators may return to signal
// an expected policy violation through an error chain.
type Violation struct {
	Message string
}

// Violationf creates a *Violation with a formatted message.
func Violationf(format string, args ...any) *Violation {
	return &Violation{Message: fmt.Sprintf(format, args...)}
}

func (v *Violation) Error() string { return v.Message }
