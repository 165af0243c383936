// Package rule defines the contracts between the audit engine
// and the rules it executes: subjects, rules, checks, options
// and the typed check result.
package rule

import "context"

// Reserved operation name prefixes. An operation whose name is
// exactly a prefix is never discovered.
const (
	CheckPrefix  = "check"
	FixPrefix    = "fix"
	MetricPrefix = "metric"
)

// Subject is the opaque value a run audits. The engine only
// needs its identity for logging and reporting.
type Subject interface {
	// ID returns the identifier of the audited product.
	ID() string

	// Product returns the human-readable product name.
	Product() string

	// Repo returns the repository slug, or "" if the subject
	// is not bound to a repository.
	Repo() string
}

// CheckFunc asserts one property of the subject.
type CheckFunc[S any] func(ctx context.Context, subject S) Result

// FixFunc repairs a violation on the subject's upstream source.
type FixFunc[S any] func(ctx context.Context, subject S) error

// MetricFunc emits numeric measurements of the subject.
type MetricFunc[S any] func(
	ctx context.Context, subject S, w MetricWriter,
) error

// MetricWriter receives the measurements of a MetricFunc.
type MetricWriter interface {
	WriteMetric(name string, value float64) error
}

// Operation is a named operation registered on a rule. Exactly
// one of Check, Fix or Metric is set.
type Operation[S any] struct {
	Name   string
	Check  CheckFunc[S]
	Fix    FixFunc[S]
	Metric MetricFunc[S]
}

// Rule is a named policy area bundling related operations.
// Rules are created once at process start and hold no state
// across runs.
type Rule[S any] interface {
	// ID returns the stable rule identifier.
	ID() string

	// Name returns the display name derived from the rule's
	// type name.
	Name() string

	// Operations returns the rule's own operations in
	// declaration order.
	Operations() []Operation[S]

	// Options returns the options declared for the named
	// operation, and whether any were declared.
	Options(name string) (Options, bool)
}

// Options qualify a single check.
type Options struct {
	// Mandatory checks flip the rule verdict when they fail.
	Mandatory bool `json:"mandatory" yaml:"mandatory"`
}

// DefaultOptions are applied to checks without declared
// options.
func DefaultOptions() Options {
	return Options{Mandatory: true}
}

// Advisory declares a non-mandatory check.
func Advisory() Options {
	return Options{Mandatory: false}
}

// Mandatory declares a mandatory check explicitly.
func Mandatory() Options {
	return Options{Mandatory: true}
}
