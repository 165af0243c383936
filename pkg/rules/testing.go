package rules

import (
	"context"
	"regexp"

	"digital.vasic.repoaudit/pkg/assertion"
	"digital.vasic.repoaudit/pkg/rule"
)

// TestFilePatterns match the base names of test sources.
var TestFilePatterns = []string{
	"*_test.go",
	"test_*.py", "*_test.py",
	"*.test.js", "*.spec.js", "*.test.ts", "*.spec.ts",
	"*Test.java", "*Tests.java",
	"*_spec.rb",
}

var (
	testCommand = regexp.MustCompile(
		`\b(go test|npm (run )?test|yarn test|pnpm test|pytest|tox|` +
			`mvn .*\b(test|verify)|gradlew? .*\btest|cargo test|make test|rspec)\b`)
	coverageCommand = regexp.MustCompile(`(?i)cover`)
	coverageAction  = regexp.MustCompile(`(?i)(codecov|coveralls)`)
)

// Testing audits automated testing.
type Testing struct {
	*rule.Base[Snapshot]
}

// NewTesting creates the testing rule.
func NewTesting() *Testing {
	r := &Testing{}
	r.Base = rule.NewBase[Snapshot]("testing", r)
	r.Check("checkTestFilesExist", r.checkTestFilesExist, rule.Mandatory()).
		Check("checkWorkflowRunsTests", r.checkWorkflowRunsTests, rule.Mandatory()).
		Check("checkCoverageReported", r.checkCoverageReported, rule.Advisory()).
		Metric("metricTestFileCount", r.metricTestFileCount)
	return r
}

func (r *Testing) checkTestFilesExist(_ context.Context, s Snapshot) rule.Result {
	return assertion.NotEmpty(testFiles(s), "no test files found")
}

func (r *Testing) checkWorkflowRunsTests(_ context.Context, s Snapshot) rule.Result {
	ws, err := activeWorkflows(s)
	if err != nil {
		return rule.Fault(err)
	}
	return assertion.AnyMatch(ws, func(w parsedWorkflow) bool {
		return anyMatches(w.spec.Commands(), testCommand)
	}, "no active workflow runs tests")
}

func (r *Testing) checkCoverageReported(_ context.Context, s Snapshot) rule.Result {
	ws, err := activeWorkflows(s)
	if err != nil {
		return rule.Fault(err)
	}
	return assertion.AnyMatch(ws, func(w parsedWorkflow) bool {
		return anyMatches(w.spec.Actions(), coverageAction) ||
			anyMatches(w.spec.Commands(), coverageCommand)
	}, "no workflow reports test coverage")
}

func (r *Testing) metricTestFileCount(
	_ context.Context, s Snapshot, w rule.MetricWriter,
) error {
	return w.WriteMetric("test_file_count", float64(len(testFiles(s))))
}

func testFiles(s Snapshot) []string {
	var out []string
	for _, p := range TestFilePatterns {
		out = append(out, s.MatchFiles(p)...)
	}
	return out
}

func anyMatches(lines []string, re *regexp.Regexp) bool {
	for _, l := range lines {
		if re.MatchString(l) {
			return true
		}
	}
	return false
}
