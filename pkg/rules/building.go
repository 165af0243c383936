package rules

import (
	"context"

	"digital.vasic.repoaudit/pkg/assertion"
	"digital.vasic.repoaudit/pkg/rule"
)

// Building audits the continuous integration pipeline.
type Building struct {
	*rule.Base[Snapshot]
}

// NewBuilding creates the building rule.
func NewBuilding() *Building {
	r := &Building{}
	r.Base = rule.NewBase[Snapshot]("building", r)
	r.Check("checkBuildsOnPush", r.checkBuildsOnPush, rule.Mandatory()).
		Check("checkBuildsPullRequests", r.checkBuildsPullRequests, rule.Mandatory()).
		Check("checkRequiresStatusChecks", r.checkRequiresStatusChecks, rule.Advisory())
	return r
}

func (r *Building) checkBuildsOnPush(_ context.Context, s Snapshot) rule.Result {
	return triggeredBy(s, "push")
}

func (r *Building) checkBuildsPullRequests(_ context.Context, s Snapshot) rule.Result {
	return triggeredBy(s, "pull_request")
}

func (r *Building) checkRequiresStatusChecks(_ context.Context, s Snapshot) rule.Result {
	p, res := defaultProtection(s)
	if res != nil {
		return *res
	}
	var contexts []string
	if p.StatusChecks != nil {
		contexts = p.StatusChecks.Contexts
	}
	return assertion.NotEmpty(contexts,
		"default branch %s requires no status checks", s.DefaultBranch)
}

func triggeredBy(s Snapshot, event string) rule.Result {
	ws, err := activeWorkflows(s)
	if err != nil {
		return rule.Fault(err)
	}
	return assertion.AnyMatch(ws, func(w parsedWorkflow) bool {
		return w.spec.TriggeredBy(event)
	}, "no active workflow is triggered by %s", event)
}
