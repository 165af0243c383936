package rules

import (
	"context"
	"strings"
	"time"

	"digital.vasic.repoaudit/pkg/assertion"
	"digital.vasic.repoaudit/pkg/rule"
	"digital.vasic.repoaudit/pkg/snapshot"
)

// DefaultMaxBranchAge is the age after which a branch other than
// the default counts as stale.
const DefaultMaxBranchAge = 7 * 24 * time.Hour

// Branching audits the trunk-based branching model.
type Branching struct {
	*rule.Base[Snapshot]
	MaxBranchAge time.Duration
}

// NewBranching creates the branching rule.
func NewBranching() *Branching {
	r := &Branching{MaxBranchAge: DefaultMaxBranchAge}
	r.Base = rule.NewBase[Snapshot]("branching", r)
	r.Check("checkDefaultBranchIsMain", r.checkDefaultBranchIsMain, rule.Mandatory()).
		Check("checkDefaultBranchProtected", r.checkDefaultBranchProtected, rule.Mandatory()).
		Check("checkNoStaleBranches", r.checkNoStaleBranches, rule.Advisory()).
		Check("checkBranchesDeletedOnMerge", r.checkBranchesDeletedOnMerge, rule.Advisory()).
		Check("checkLinearHistory", r.checkLinearHistory, rule.Advisory()).
		Metric("metricBranchCount", r.metricBranchCount).
		Metric("metricOldestBranchAgeDays", r.metricOldestBranchAgeDays)
	return r
}

func (r *Branching) checkDefaultBranchIsMain(_ context.Context, s Snapshot) rule.Result {
	return assertion.Equal(s.DefaultBranch, "main",
		"default branch should be %q, found %q")
}

func (r *Branching) checkDefaultBranchProtected(_ context.Context, s Snapshot) rule.Result {
	if _, res := defaultProtection(s); res != nil {
		return *res
	}
	return rule.Pass()
}

func (r *Branching) checkNoStaleBranches(_ context.Context, s Snapshot) rule.Result {
	stale := s.StaleBranches(r.MaxBranchAge)
	if len(stale) == 0 {
		return rule.Pass()
	}
	names := make([]string, len(stale))
	for i, b := range stale {
		names[i] = b.Name
	}
	return rule.Failf("%s older than %s: %s",
		assertion.Plural(len(stale), "branch", "branches"),
		days(r.MaxBranchAge.Hours()), strings.Join(names, ", "))
}

func (r *Branching) checkBranchesDeletedOnMerge(_ context.Context, s Snapshot) rule.Result {
	return assertion.That(s.Settings.DeleteBranchOnMerge,
		"merged branches are not deleted automatically")
}

func (r *Branching) checkLinearHistory(_ context.Context, s Snapshot) rule.Result {
	p, res := defaultProtection(s)
	if res != nil {
		return *res
	}
	return assertion.That(p.RequireLinearHistory,
		"linear history is not required on %s", s.DefaultBranch)
}

func (r *Branching) metricBranchCount(
	_ context.Context, s Snapshot, w rule.MetricWriter,
) error {
	return w.WriteMetric("branch_count", float64(len(s.Branches)))
}

func (r *Branching) metricOldestBranchAgeDays(
	_ context.Context, s Snapshot, w rule.MetricWriter,
) error {
	return w.WriteMetric("oldest_branch_age_days", oldestBranchAge(s).Hours()/24)
}

func oldestBranchAge(s Snapshot) time.Duration {
	var oldest time.Duration
	for _, b := range s.Branches {
		if b.Name == s.DefaultBranch || b.LastCommit.IsZero() {
			continue
		}
		if age := s.LoadedAt.Sub(b.LastCommit); age > oldest {
			oldest = age
		}
	}
	return oldest
}

var _ rule.Rule[*snapshot.Snapshot] = (*Branching)(nil)
