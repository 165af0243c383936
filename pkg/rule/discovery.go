package rule

import (
	"fmt"
	"strings"
)

// Check is a discovered check operation bound to its rule.
type Check[S any] struct {
	// Name is the registered operation name, e.g.
	// "checkDefaultBranchIsMain".
	Name string

	// DisplayName is Name without the prefix, spaced.
	DisplayName string

	// Options are the declared options, or DefaultOptions.
	Options Options

	// Run executes the check.
	Run CheckFunc[S]
}

// Metric is a discovered metric operation bound to its rule.
type Metric[S any] struct {
	Name        string
	DisplayName string
	Run         MetricFunc[S]
}

// Discover returns the rule's check operations in declaration
// order. It inspects names only and never invokes an operation.
// A rule without checks yields an empty slice. Registering the
// same check name twice on one rule is an error.
func Discover[S any](r Rule[S]) ([]Check[S], error) {
	var out []Check[S]
	seen := make(map[string]struct{})
	for _, op := range r.Operations() {
		if !qualifies(op.Name, CheckPrefix) || op.Check == nil {
			continue
		}
		if _, dup := seen[op.Name]; dup {
			return nil, fmt.Errorf(
				"rule %s: duplicate check %q", r.ID(), op.Name,
			)
		}
		seen[op.Name] = struct{}{}

		opts, ok := r.Options(op.Name)
		if !ok {
			opts = DefaultOptions()
		}
		out = append(out, Check[S]{
			Name:        op.Name,
			DisplayName: OperationDisplayName(CheckPrefix, op.Name),
			Options:     opts,
			Run:         op.Check,
		})
	}
	return out, nil
}

// DiscoverMetrics returns the rule's metric operations in
// declaration order.
func DiscoverMetrics[S any](r Rule[S]) []Metric[S] {
	var out []Metric[S]
	for _, op := range r.Operations() {
		if !qualifies(op.Name, MetricPrefix) || op.Metric == nil {
			continue
		}
		out = append(out, Metric[S]{
			Name:        op.Name,
			DisplayName: OperationDisplayName(MetricPrefix, op.Name),
			Run:         op.Metric,
		})
	}
	return out
}

func qualifies(name, prefix string) bool {
	return strings.HasPrefix(name, prefix) && name != prefix
}
