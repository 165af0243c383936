package rules

import (
	"context"

	"digital.vasic.repoaudit/pkg/assertion"
	"digital.vasic.repoaudit/pkg/rule"
)

// CodeOwnersPaths are the locations GitHub reads CODEOWNERS from.
var CodeOwnersPaths = []string{
	"CODEOWNERS", ".github/CODEOWNERS", "docs/CODEOWNERS",
}

// Reviewing audits the code review policy of the default branch.
type Reviewing struct {
	*rule.Base[Snapshot]
}

// NewReviewing creates the reviewing rule.
func NewReviewing() *Reviewing {
	r := &Reviewing{}
	r.Base = rule.NewBase[Snapshot]("reviewing", r)
	r.Check("checkReviewsRequired", r.checkReviewsRequired, rule.Mandatory()).
		Check("checkApprovingReview", r.checkApprovingReview, rule.Mandatory()).
		Check("checkStaleReviewsDismissed", r.checkStaleReviewsDismissed, rule.Advisory()).
		Check("checkCodeOwners", r.checkCodeOwners, rule.Advisory()).
		Check("checkAdminsIncluded", r.checkAdminsIncluded, rule.Advisory())
	return r
}

func (r *Reviewing) checkReviewsRequired(_ context.Context, s Snapshot) rule.Result {
	p, res := defaultProtection(s)
	if res != nil {
		return *res
	}
	return assertion.That(p.Reviews != nil,
		"pull request reviews are not required on %s", s.DefaultBranch)
}

func (r *Reviewing) checkApprovingReview(_ context.Context, s Snapshot) rule.Result {
	p, res := defaultProtection(s)
	if res != nil {
		return *res
	}
	approvals := 0
	if p.Reviews != nil {
		approvals = p.Reviews.RequiredApprovals
	}
	return assertion.AtLeast(approvals, 1,
		"at least %d approving review required, found %d")
}

func (r *Reviewing) checkStaleReviewsDismissed(_ context.Context, s Snapshot) rule.Result {
	p, res := defaultProtection(s)
	if res != nil {
		return *res
	}
	return assertion.That(p.Reviews != nil && p.Reviews.DismissStale,
		"stale reviews are not dismissed on new commits")
}

func (r *Reviewing) checkCodeOwners(_ context.Context, s Snapshot) rule.Result {
	return assertion.AnyMatch(CodeOwnersPaths, s.HasFile,
		"no CODEOWNERS file found")
}

func (r *Reviewing) checkAdminsIncluded(_ context.Context, s Snapshot) rule.Result {
	p, res := defaultProtection(s)
	if res != nil {
		return *res
	}
	return assertion.That(p.EnforceAdmins,
		"branch protection of %s does not apply to administrators", s.DefaultBranch)
}
