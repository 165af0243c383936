// Package assertion provides the helpers rule checks use to
// turn repository facts into rule.Result values.
package assertion

import (
	"fmt"
	"strings"

	"digital.vasic.repoaudit/pkg/rule"
)

// That passes when cond holds and otherwise fails with the
// formatted message.
func That(cond bool, format string, args ...any) rule.Result {
	if cond {
		return rule.Pass()
	}
	return rule.Failf(format, args...)
}

// Equal passes when got equals want. The message may use %v
// twice: first for want, then for got.
func Equal[T comparable](got, want T, format string) rule.Result {
	if got == want {
		return rule.Pass()
	}
	return rule.Failf(format, want, got)
}

// NotEmpty passes when items has at least one element.
func NotEmpty[T any](items []T, format string, args ...any) rule.Result {
	return That(len(items) > 0, format, args...)
}

// AtLeast passes when got >= min. The message may use %d twice:
// first for min, then for got.
func AtLeast(got, min int, format string) rule.Result {
	if got >= min {
		return rule.Pass()
	}
	return rule.Failf(format, min, got)
}

// Contains passes when items holds v.
func Contains[T comparable](
	items []T, v T, format string, args ...any,
) rule.Result {
	for _, item := range items {
		if item == v {
			return rule.Pass()
		}
	}
	return rule.Failf(format, args...)
}

// AnyMatch passes when at least one item satisfies match.
func AnyMatch[T any](
	items []T, match func(T) bool, format string, args ...any,
) rule.Result {
	for _, item := range items {
		if match(item) {
			return rule.Pass()
		}
	}
	return rule.Failf(format, args...)
}

// NoneMatch passes when no item satisfies match. Otherwise it
// fails with prefix followed by the names of the offending
// items, comma separated.
func NoneMatch[T any](
	items []T, match func(T) bool, name func(T) string, prefix string,
) rule.Result {
	var offenders []string
	for _, item := range items {
		if match(item) {
			offenders = append(offenders, name(item))
		}
	}
	if len(offenders) == 0 {
		return rule.Pass()
	}
	return rule.Fail(prefix + strings.Join(offenders, ", "))
}

// All combines results. A fault anywhere wins, then every
// violation message joined by "; ", then pass.
func All(results ...rule.Result) rule.Result {
	var violations []string
	for _, r := range results {
		switch {
		case r.Faulted():
			return r
		case r.Violated():
			violations = append(violations, r.Message())
		}
	}
	if len(violations) > 0 {
		return rule.Fail(strings.Join(violations, "; "))
	}
	return rule.Pass()
}

// Any passes when at least one result passes. Otherwise it
// behaves like All.
func Any(results ...rule.Result) rule.Result {
	for _, r := range results {
		if r.Passed() {
			return rule.Pass()
		}
	}
	if len(results) == 0 {
		return rule.Fault(fmt.Errorf("assertion.Any: no results"))
	}
	return All(results...)
}

// Plural returns n followed by singular or plural.
func Plural(n int, singular, plural string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, singular)
	}
	return fmt.Sprintf("%d %s", n, plural)
}
