// Package registry provides the ordered rule catalogue an audit
// run iterates.
package registry

import (
	"fmt"
	"strings"
	"sync"

	"digital.vasic.repoaudit/pkg/rule"
)

// Catalogue is an ordered set of rules keyed by ID. Rules are
// returned in registration order. It is safe for concurrent
// use.
type Catalogue[S rule.Subject] struct {
	mu    sync.RWMutex
	order []rule.Rule[S]
	byID  map[string]int
}

// New creates a catalogue holding rules, in order.
func New[S rule.Subject](rules ...rule.Rule[S]) (*Catalogue[S], error) {
	c := &Catalogue[S]{byID: make(map[string]int)}
	for _, r := range rules {
		if err := c.Register(r); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Register appends r to the catalogue. Returns an error if r
// has an empty ID or one that is already registered.
func (c *Catalogue[S]) Register(r rule.Rule[S]) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := r.ID()
	if id == "" {
		return fmt.Errorf("rule %q has an empty id", r.Name())
	}
	if _, exists := c.byID[id]; exists {
		return fmt.Errorf("rule already registered: %s", id)
	}
	c.byID[id] = len(c.order)
	c.order = append(c.order, r)
	return nil
}

// Get retrieves a rule by ID.
func (c *Catalogue[S]) Get(id string) (rule.Rule[S], error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	i, ok := c.byID[id]
	if !ok {
		return nil, fmt.Errorf("rule not found: %s", id)
	}
	return c.order[i], nil
}

// Rules returns all rules in registration order.
func (c *Catalogue[S]) Rules() []rule.Rule[S] {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]rule.Rule[S], len(c.order))
	copy(out, c.order)
	return out
}

// IDs returns the rule IDs in registration order.
func (c *Catalogue[S]) IDs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]string, len(c.order))
	for i, r := range c.order {
		out[i] = r.ID()
	}
	return out
}

// Select returns the rules named by ids, in catalogue order
// regardless of the order of ids. IDs are matched case
// insensitively. No ids selects every rule.
func (c *Catalogue[S]) Select(ids ...string) ([]rule.Rule[S], error) {
	if len(ids) == 0 {
		return c.Rules(), nil
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[strings.ToLower(id)] = true
	}
	var out []rule.Rule[S]
	for _, r := range c.order {
		key := strings.ToLower(r.ID())
		if want[key] {
			out = append(out, r)
			delete(want, key)
		}
	}
	if len(want) > 0 {
		var unknown []string
		for _, id := range ids {
			if want[strings.ToLower(id)] {
				unknown = append(unknown, id)
				delete(want, strings.ToLower(id))
			}
		}
		return nil, fmt.Errorf(
			"unknown rules: %s", strings.Join(unknown, ", "),
		)
	}
	return out, nil
}

// Count returns the number of registered rules.
func (c *Catalogue[S]) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.order)
}
