package rules

import (
	"context"

	"digital.vasic.repoaudit/pkg/assertion"
	"digital.vasic.repoaudit/pkg/rule"
	"digital.vasic.repoaudit/pkg/snapshot"
)

// Deploying audits the deployment pipeline.
type Deploying struct {
	*rule.Base[Snapshot]
}

// NewDeploying creates the deploying rule.
func NewDeploying() *Deploying {
	r := &Deploying{}
	r.Base = rule.NewBase[Snapshot]("deploying", r)
	r.Check("checkDeploymentWorkflow", r.checkDeploymentWorkflow, rule.Mandatory()).
		Check("checkDeploysFromDefaultBranch", r.checkDeploysFromDefaultBranch, rule.Advisory()).
		Check("checkNoDisabledWorkflows", r.checkNoDisabledWorkflows, rule.Advisory()).
		Metric("metricWorkflowCount", r.metricWorkflowCount)
	return r
}

func (r *Deploying) checkDeploymentWorkflow(_ context.Context, s Snapshot) rule.Result {
	deploys, err := deployments(s)
	if err != nil {
		return rule.Fault(err)
	}
	return assertion.NotEmpty(deploys, "no deployment workflow found")
}

func (r *Deploying) checkDeploysFromDefaultBranch(_ context.Context, s Snapshot) rule.Result {
	deploys, err := deployments(s)
	if err != nil {
		return rule.Fault(err)
	}
	if len(deploys) == 0 {
		return rule.Fail("no deployment workflow found")
	}
	return assertion.AnyMatch(deploys, func(w parsedWorkflow) bool {
		return w.spec.RunsOnBranch("push", s.DefaultBranch) ||
			w.spec.TriggeredBy("workflow_dispatch")
	}, "deployment workflows %s run neither from %s nor manually",
		workflowNames(deploys), s.DefaultBranch)
}

func (r *Deploying) checkNoDisabledWorkflows(_ context.Context, s Snapshot) rule.Result {
	return assertion.NoneMatch(s.Workflows,
		func(w snapshot.Workflow) bool { return !w.Active() },
		func(w snapshot.Workflow) string { return w.Path },
		"disabled workflows: ")
}

func (r *Deploying) metricWorkflowCount(
	_ context.Context, s Snapshot, w rule.MetricWriter,
) error {
	return w.WriteMetric("workflow_count", float64(len(s.Workflows)))
}

// deployments returns the active workflows that deploy: those
// targeting an environment or named after deployment.
func deployments(s Snapshot) ([]parsedWorkflow, error) {
	ws, err := activeWorkflows(s)
	if err != nil {
		return nil, err
	}
	var out []parsedWorkflow
	for _, w := range ws {
		if w.spec.HasEnvironment() ||
			containsAny(w.Name, "deploy", "release") ||
			containsAny(w.Path, "deploy", "release") {
			out = append(out, w)
		}
	}
	return out, nil
}
