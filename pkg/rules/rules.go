// Package rules holds the engineering-standard rules audited
// against a repository snapshot.
package rules

import (
	"fmt"
	"strings"

	"digital.vasic.repoaudit/pkg/registry"
	"digital.vasic.repoaudit/pkg/rule"
	"digital.vasic.repoaudit/pkg/snapshot"
)

// Snapshot is the subject every rule in this package audits.
type Snapshot = *snapshot.Snapshot

// Catalogue returns the standard rules in audit order.
func Catalogue() (*registry.Catalogue[Snapshot], error) {
	return registry.New[Snapshot](
		NewBranching(),
		NewBuilding(),
		NewDeploying(),
		NewTesting(),
		NewReviewing(),
	)
}

// parsedWorkflow is a workflow together with its decoded
// definition.
type parsedWorkflow struct {
	snapshot.Workflow
	spec *snapshot.WorkflowSpec
}

// activeWorkflows parses every enabled workflow. A workflow that
// cannot be parsed fails the whole set: a check cannot tell what
// an unreadable workflow does.
func activeWorkflows(s Snapshot) ([]parsedWorkflow, error) {
	var out []parsedWorkflow
	for _, w := range s.Workflows {
		if !w.Active() {
			continue
		}
		spec, err := w.Parse()
		if err != nil {
			return nil, err
		}
		out = append(out, parsedWorkflow{Workflow: w, spec: spec})
	}
	return out, nil
}

// defaultProtection reads the protection of the default branch.
// A non-nil Result means the check must return it as is.
func defaultProtection(s Snapshot) (snapshot.Protection, *rule.Result) {
	p, ok, err := s.ProtectionFor(s.DefaultBranch)
	if err != nil {
		r := rule.Fault(err)
		return p, &r
	}
	if !ok {
		r := rule.Failf("default branch %s is not protected", s.DefaultBranch)
		return p, &r
	}
	return p, nil
}

func workflowNames(ws []parsedWorkflow) string {
	names := make([]string, len(ws))
	for i, w := range ws {
		names[i] = w.label()
	}
	return strings.Join(names, ", ")
}

func (w parsedWorkflow) label() string {
	if w.Name != "" {
		return w.Name
	}
	return w.Path
}

func containsAny(s string, needles ...string) bool {
	s = strings.ToLower(s)
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

func days(hours float64) string {
	return fmt.Sprintf("%.0f days", hours/24)
}
