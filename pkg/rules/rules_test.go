package rules

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"digital.vasic.repoaudit/pkg/outcome"
	"digital.vasic.repoaudit/pkg/report"
	"digital.vasic.repoaudit/pkg/rule"
	"digital.vasic.repoaudit/pkg/runner"
	"digital.vasic.repoaudit/pkg/snapshot"
)

var loadedAt = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

const ciWorkflow = `
name: CI
on:
  push:
    branches: [main]
  pull_request:
jobs:
  build:
    steps:
      - uses: actions/checkout@v4
      - run: |
          go build ./...
          go test -coverprofile=cover.out ./...
`

const deployWorkflow = `
name: Deploy
on: [workflow_dispatch]
jobs:
  deploy:
    environment: production
    steps:
      - run: ./deploy.sh
`

// healthy returns a snapshot every rule passes.
func healthy() *snapshot.Snapshot {
	return &snapshot.Snapshot{
		ProductID:     "p-42",
		ProductName:   "Payments",
		Owner:         "acme",
		Name:          "payments",
		DefaultBranch: "main",
		LoadedAt:      loadedAt,
		Settings:      snapshot.Settings{DeleteBranchOnMerge: true},
		Branches: []snapshot.Branch{
			{Name: "main", Protected: true, LastCommit: loadedAt.Add(-time.Hour)},
			{Name: "feature", LastCommit: loadedAt.Add(-48 * time.Hour)},
		},
		Protections: map[string]snapshot.Protection{
			"main": {
				Reviews: &snapshot.ReviewPolicy{
					RequiredApprovals: 1, DismissStale: true,
				},
				StatusChecks:         &snapshot.StatusChecks{Contexts: []string{"build"}},
				EnforceAdmins:        true,
				RequireLinearHistory: true,
			},
		},
		Workflows: []snapshot.Workflow{
			{Name: "CI", Path: ".github/workflows/ci.yml", State: snapshot.WorkflowActive, Content: ciWorkflow},
			{Name: "Deploy", Path: ".github/workflows/deploy.yml", State: snapshot.WorkflowActive, Content: deployWorkflow},
		},
		Files: []string{
			"go.mod", ".github/CODEOWNERS", "pkg/pay/pay.go", "pkg/pay/pay_test.go",
		},
	}
}

// run executes one check of r by name.
func run(t *testing.T, r rule.Rule[Snapshot], name string, s Snapshot) (outcome.Outcome, string) {
	t.Helper()
	checks, err := rule.Discover(r)
	require.NoError(t, err)
	for _, c := range checks {
		if c.Name == name {
			return outcome.Classify(context.Background(), c, s)
		}
	}
	t.Fatalf("rule %s has no check %s", r.ID(), name)
	return 0, ""
}

func TestCatalogue(t *testing.T) {
	cat, err := Catalogue()
	require.NoError(t, err)
	assert.Equal(t,
		[]string{"branching", "building", "deploying", "testing", "reviewing"},
		cat.IDs())

	names := make([]string, 0, cat.Count())
	for _, r := range cat.Rules() {
		names = append(names, r.Name())
	}
	assert.Equal(t,
		[]string{"Branching", "Building", "Deploying", "Testing", "Reviewing"},
		names)
}

func TestCatalogue_Options(t *testing.T) {
	cat, err := Catalogue()
	require.NoError(t, err)

	mandatory := map[string]bool{}
	for _, r := range cat.Rules() {
		checks, err := rule.Discover(r)
		require.NoError(t, err)
		for _, c := range checks {
			mandatory[c.Name] = c.Options.Mandatory
		}
	}
	assert.Len(t, mandatory, 19)
	assert.True(t, mandatory["checkDefaultBranchIsMain"])
	assert.False(t, mandatory["checkNoStaleBranches"])
	assert.True(t, mandatory["checkBuildsPullRequests"])
	assert.False(t, mandatory["checkRequiresStatusChecks"])
	assert.True(t, mandatory["checkDeploymentWorkflow"])
	assert.False(t, mandatory["checkNoDisabledWorkflows"])
	assert.True(t, mandatory["checkWorkflowRunsTests"])
	assert.False(t, mandatory["checkCoverageReported"])
	assert.True(t, mandatory["checkApprovingReview"])
	assert.False(t, mandatory["checkAdminsIncluded"])
}

func TestCatalogue_HealthySnapshotPasses(t *testing.T) {
	cat, err := Catalogue()
	require.NoError(t, err)

	rep, err := runner.NewChecker(cat.Rules()).Run(context.Background(), healthy())
	require.NoError(t, err)

	assert.Equal(t, outcome.VerdictPass, rep.Verdict)
	assert.Equal(t, 19, rep.Count(outcome.Pass))
	for _, rr := range rep.Rules {
		for _, c := range rr.Checks {
			assert.Equal(t, outcome.Pass, c.Outcome, "%s: %s", c.Name, c.Message)
		}
	}
}

func TestCatalogue_FixtureSnapshot(t *testing.T) {
	s, err := snapshot.NewFile("../snapshot/testdata/payments.yaml").
		Load(context.Background(), snapshot.Target{})
	require.NoError(t, err)
	cat, err := Catalogue()
	require.NoError(t, err)

	rep, err := runner.NewChecker(cat.Rules()).Run(context.Background(), s)
	require.NoError(t, err)

	assert.Equal(t, outcome.VerdictPass, rep.Verdict)
	branching, ok := rep.Rule("branching")
	require.True(t, ok)
	var stale runner.CheckReport
	for _, c := range branching.Checks {
		if c.Name == "checkNoStaleBranches" {
			stale = c
		}
	}
	assert.Equal(t, outcome.Fail, stale.Outcome)
	assert.Equal(t, "1 branch older than 7 days: spike-old", stale.Message)
	assert.Equal(t, outcome.VerdictPass, branching.Verdict)
}

func TestCatalogue_Metrics(t *testing.T) {
	cat, err := Catalogue()
	require.NoError(t, err)
	rec := report.NewRecorder()

	err = runner.NewChecker(cat.Rules(), runner.WithReporter(rec)).
		RunMetrics(context.Background(), healthy())
	require.NoError(t, err)

	got := map[string]float64{}
	for _, e := range rec.Events() {
		got[e.Rule+"/"+e.Metric] = e.Value
	}
	assert.Equal(t, map[string]float64{
		"Branching/branch_count":           2,
		"Branching/oldest_branch_age_days": 2,
		"Deploying/workflow_count":         2,
		"Testing/test_file_count":          1,
	}, got)
}

func TestBranching(t *testing.T) {
	r := NewBranching()

	s := healthy()
	s.DefaultBranch = "master"
	o, msg := run(t, r, "checkDefaultBranchIsMain", s)
	assert.Equal(t, outcome.Fail, o)
	assert.Equal(t, `default branch should be "main", found "master"`, msg)

	s = healthy()
	delete(s.Protections, "main")
	o, msg = run(t, r, "checkDefaultBranchProtected", s)
	assert.Equal(t, outcome.Fail, o)
	assert.Equal(t, "default branch main is not protected", msg)

	s = healthy()
	s.ProtectionErrors = map[string]string{"main": "403 Forbidden"}
	o, msg = run(t, r, "checkDefaultBranchProtected", s)
	assert.Equal(t, outcome.Error, o)
	assert.Equal(t,
		"Default Branch Protected: branch protection of main unavailable: 403 Forbidden",
		msg)

	s = healthy()
	s.Branches = append(s.Branches,
		snapshot.Branch{Name: "old-a", LastCommit: loadedAt.AddDate(0, 0, -30)},
		snapshot.Branch{Name: "old-b", LastCommit: loadedAt.AddDate(0, 0, -8)},
	)
	o, msg = run(t, r, "checkNoStaleBranches", s)
	assert.Equal(t, outcome.Fail, o)
	assert.Equal(t, "2 branches older than 7 days: old-a, old-b", msg)

	s = healthy()
	s.Settings.DeleteBranchOnMerge = false
	o, _ = run(t, r, "checkBranchesDeletedOnMerge", s)
	assert.Equal(t, outcome.Fail, o)

	s = healthy()
	p := s.Protections["main"]
	p.RequireLinearHistory = false
	s.Protections["main"] = p
	o, msg = run(t, r, "checkLinearHistory", s)
	assert.Equal(t, outcome.Fail, o)
	assert.Equal(t, "linear history is not required on main", msg)
}

func TestBranching_OldestBranchAge(t *testing.T) {
	s := healthy()
	assert.Equal(t, 48*time.Hour, oldestBranchAge(s))

	s.Branches = s.Branches[:1]
	assert.Zero(t, oldestBranchAge(s))
}

func TestBuilding(t *testing.T) {
	r := NewBuilding()

	s := healthy()
	s.Workflows = s.Workflows[1:]
	o, msg := run(t, r, "checkBuildsOnPush", s)
	assert.Equal(t, outcome.Fail, o)
	assert.Equal(t, "no active workflow is triggered by push", msg)
	o, _ = run(t, r, "checkBuildsPullRequests", s)
	assert.Equal(t, outcome.Fail, o)

	s = healthy()
	s.Workflows[0].State = "disabled_manually"
	o, _ = run(t, r, "checkBuildsOnPush", s)
	assert.Equal(t, outcome.Fail, o, "disabled workflows do not count")

	s = healthy()
	s.Workflows[0].Content = "on: [push"
	o, msg = run(t, r, "checkBuildsOnPush", s)
	assert.Equal(t, outcome.Error, o)
	assert.Contains(t, msg, "Builds On Push: failed to parse workflow .github/workflows/ci.yml")

	s = healthy()
	p := s.Protections["main"]
	p.StatusChecks = nil
	s.Protections["main"] = p
	o, msg = run(t, r, "checkRequiresStatusChecks", s)
	assert.Equal(t, outcome.Fail, o)
	assert.Equal(t, "default branch main requires no status checks", msg)
}

func TestDeploying(t *testing.T) {
	r := NewDeploying()

	s := healthy()
	s.Workflows = s.Workflows[:1]
	o, msg := run(t, r, "checkDeploymentWorkflow", s)
	assert.Equal(t, outcome.Fail, o)
	assert.Equal(t, "no deployment workflow found", msg)
	o, _ = run(t, r, "checkDeploysFromDefaultBranch", s)
	assert.Equal(t, outcome.Fail, o)

	s = healthy()
	s.Workflows[1].Content = "on:\n  push:\n    tags: ['v*']\n    branches: [release]\njobs: {}\n"
	o, msg = run(t, r, "checkDeploymentWorkflow", s)
	assert.Equal(t, outcome.Pass, o, "named after deployment")
	o, msg = run(t, r, "checkDeploysFromDefaultBranch", s)
	assert.Equal(t, outcome.Fail, o)
	assert.Equal(t, "deployment workflows Deploy run neither from main nor manually", msg)

	s = healthy()
	s.Workflows[1].Content = "on:\n  push:\n    branches: [main]\njobs: {}\n"
	o, _ = run(t, r, "checkDeploysFromDefaultBranch", s)
	assert.Equal(t, outcome.Pass, o)

	s = healthy()
	s.Workflows = append(s.Workflows, snapshot.Workflow{
		Name: "Nightly", Path: ".github/workflows/nightly.yml", State: "disabled_inactivity",
	})
	o, msg = run(t, r, "checkNoDisabledWorkflows", s)
	assert.Equal(t, outcome.Fail, o)
	assert.Equal(t, "disabled workflows: .github/workflows/nightly.yml", msg)
}

func TestTesting(t *testing.T) {
	r := NewTesting()

	s := healthy()
	s.Files = []string{"go.mod", "main.go"}
	o, msg := run(t, r, "checkTestFilesExist", s)
	assert.Equal(t, outcome.Fail, o)
	assert.Equal(t, "no test files found", msg)

	for _, f := range []string{
		"tests/test_api.py", "src/app.spec.ts", "src/FooTest.java", "spec/foo_spec.rb",
	} {
		s.Files = []string{f}
		o, _ = run(t, r, "checkTestFilesExist", s)
		assert.Equal(t, outcome.Pass, o, f)
	}

	s = healthy()
	s.Workflows[0].Content = "on: push\njobs:\n  b:\n    steps:\n      - run: go build ./...\n"
	o, msg = run(t, r, "checkWorkflowRunsTests", s)
	assert.Equal(t, outcome.Fail, o)
	assert.Equal(t, "no active workflow runs tests", msg)
	o, msg = run(t, r, "checkCoverageReported", s)
	assert.Equal(t, outcome.Fail, o)
	assert.Equal(t, "no workflow reports test coverage", msg)

	for _, cmd := range []string{"npm test", "pytest -q", "./gradlew clean test", "make test"} {
		s.Workflows[0].Content = "on: push\njobs:\n  b:\n    steps:\n      - run: " + cmd + "\n"
		o, _ = run(t, r, "checkWorkflowRunsTests", s)
		assert.Equal(t, outcome.Pass, o, cmd)
	}

	s.Workflows[0].Content = "on: push\njobs:\n  b:\n    steps:\n      - uses: codecov/codecov-action@v4\n"
	o, _ = run(t, r, "checkCoverageReported", s)
	assert.Equal(t, outcome.Pass, o)
}

func TestReviewing(t *testing.T) {
	r := NewReviewing()

	s := healthy()
	p := s.Protections["main"]
	p.Reviews = nil
	p.EnforceAdmins = false
	s.Protections["main"] = p
	o, msg := run(t, r, "checkReviewsRequired", s)
	assert.Equal(t, outcome.Fail, o)
	assert.Equal(t, "pull request reviews are not required on main", msg)
	o, msg = run(t, r, "checkApprovingReview", s)
	assert.Equal(t, outcome.Fail, o)
	assert.Equal(t, "at least 1 approving review required, found 0", msg)
	o, _ = run(t, r, "checkStaleReviewsDismissed", s)
	assert.Equal(t, outcome.Fail, o)
	o, msg = run(t, r, "checkAdminsIncluded", s)
	assert.Equal(t, outcome.Fail, o)
	assert.Equal(t, "branch protection of main does not apply to administrators", msg)

	s = healthy()
	s.Files = []string{"docs/CODEOWNERS"}
	o, _ = run(t, r, "checkCodeOwners", s)
	assert.Equal(t, outcome.Pass, o)
	s.Files = []string{"src/CODEOWNERS"}
	o, msg = run(t, r, "checkCodeOwners", s)
	assert.Equal(t, outcome.Fail, o)
	assert.Equal(t, "no CODEOWNERS file found", msg)
}

func TestReviewing_UnprotectedDefaultBranchFailsEveryPolicyCheck(t *testing.T) {
	cat, err := Catalogue()
	require.NoError(t, err)
	s := healthy()
	s.Protections = nil

	rep, err := runner.NewChecker(cat.Rules(), runner.WithRules("reviewing")).
		Run(context.Background(), s)
	require.NoError(t, err)

	assert.Equal(t, outcome.VerdictFail, rep.Verdict)
	assert.Equal(t, 4, rep.Count(outcome.Fail))
	assert.Equal(t, 1, rep.Count(outcome.Pass))
}
