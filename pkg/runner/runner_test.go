package runner

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"digital.vasic.repoaudit/pkg/logging"
	"digital.vasic.repoaudit/pkg/metrics"
	"digital.vasic.repoaudit/pkg/outcome"
	"digital.vasic.repoaudit/pkg/report"
	"digital.vasic.repoaudit/pkg/rule"
)

type repo struct{ id string }

func (r repo) ID() string      { return r.id }
func (r repo) Product() string { return "Product " + r.id }
func (r repo) Repo() string    { return "acme/" + r.id }

// RuleA mirrors the two documented example scenarios: checkX
// is mandatory, checkY advisory.
type RuleA struct {
	*rule.Base[repo]
	xErr  error
	calls int
}

func newRuleA(xErr error) *RuleA {
	r := &RuleA{xErr: xErr}
	r.Base = rule.NewBase[repo]("rule-a", r)
	r.Check("checkX", r.checkX)
	r.Check("checkY", r.checkY, rule.Advisory())
	r.Fix("fixY", func(context.Context, repo) error {
		panic("fix must never run during an audit")
	})
	r.Metric("metricChecks", func(
		_ context.Context, _ repo, w rule.MetricWriter,
	) error {
		return w.WriteMetric("Checks", 2)
	})
	return r
}

func (r *RuleA) checkX(context.Context, repo) rule.Result {
	r.calls++
	if r.xErr != nil {
		return rule.Fault(r.xErr)
	}
	return rule.Pass()
}

func (r *RuleA) checkY(context.Context, repo) rule.Result {
	r.calls++
	return rule.Fail("fix Y")
}

type stubRule struct {
	*rule.Base[repo]
}

func newStubRule(id string, results ...rule.Result) *stubRule {
	r := &stubRule{Base: rule.NewNamedBase[repo](id, "Stub "+id)}
	for i, res := range results {
		res := res
		name := "check" + string(rune('A'+i))
		r.Check(name, func(context.Context, repo) rule.Result {
			return res
		})
	}
	return r
}

func rules(rs ...rule.Rule[repo]) []rule.Rule[repo] { return rs }

func TestChecker_AdvisoryFailureKeepsPass(t *testing.T) {
	var out bytes.Buffer
	rec := report.NewRecorder()
	c := NewChecker(rules(newRuleA(nil)), WithReporter(
		report.NewFanout(nil, report.NewConsole(&out, false), rec),
	))

	rep, err := c.Run(context.Background(), repo{id: "svc"})
	require.NoError(t, err)

	assert.Equal(t, outcome.VerdictPass, rep.Verdict)
	assert.Equal(t, 0, rep.Verdict.ExitCode())
	require.Len(t, rep.Rules, 1)
	assert.Equal(t, "Rule A", rep.Rules[0].Name)
	assert.Equal(t, outcome.VerdictPass, rep.Rules[0].Verdict)
	assert.Equal(t, outcome.Pass, rep.Rules[0].Checks[0].Outcome)
	assert.Equal(t, outcome.Fail, rep.Rules[0].Checks[1].Outcome)
	assert.Equal(t, "fix Y", rep.Rules[0].Checks[1].Message)

	assert.Equal(t, "\nRule A\n✓ X\n✗ fix Y\n\nResult: PASS\n", out.String())
	assert.Equal(t, []string{
		"StartRun", "StartRule",
		"StartCheck", "ReportCheck",
		"StartCheck", "ReportCheck",
		"ReportRule", "ReportRun",
	}, rec.Methods())
}

func TestChecker_FaultFailsRule(t *testing.T) {
	var out bytes.Buffer
	c := NewChecker(rules(newRuleA(errors.New("network down"))),
		WithReporter(report.NewConsole(&out, false)))

	rep, err := c.Run(context.Background(), repo{id: "svc"})
	require.NoError(t, err)

	x := rep.Rules[0].Checks[0]
	assert.Equal(t, outcome.Error, x.Outcome)
	assert.Equal(t, "X: network down", x.Message)
	assert.Equal(t, outcome.VerdictFail, rep.Rules[0].Verdict)
	assert.Equal(t, outcome.VerdictFail, rep.Verdict)
	assert.Equal(t, 1, rep.Verdict.ExitCode())
	assert.Contains(t, out.String(), "! X: network down\n")
	assert.True(t, strings.HasSuffix(out.String(), "Result: FAIL\n"))
}

func TestChecker_AllChecksRunAfterFailures(t *testing.T) {
	ruleA := newRuleA(errors.New("boom"))
	failing := newStubRule("b",
		rule.Fail("one"), rule.Fault(errors.New("two")), rule.Pass())
	c := NewChecker(rules(ruleA, failing))

	rep, err := c.Run(context.Background(), repo{id: "svc"})
	require.NoError(t, err)
	assert.Equal(t, 2, ruleA.calls)
	require.Len(t, rep.Rules, 2)
	assert.Len(t, rep.Rules[1].Checks, 3)
	assert.Equal(t, 1, rep.Count(outcome.Pass))
	assert.Equal(t, 2, rep.Count(outcome.Fail))
	assert.Equal(t, 2, rep.Count(outcome.Error))
}

func TestChecker_RunVerdictIsFoldOfRules(t *testing.T) {
	tests := []struct {
		name  string
		rules []rule.Rule[repo]
		want  outcome.Verdict
	}{
		{"all pass", rules(
			newStubRule("a", rule.Pass()),
			newStubRule("b", rule.Pass()),
		), outcome.VerdictPass},
		{"one mandatory fail", rules(
			newStubRule("a", rule.Pass()),
			newStubRule("b", rule.Fail("no")),
		), outcome.VerdictFail},
		{"rule without checks passes", rules(
			newStubRule("a"),
		), outcome.VerdictPass},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rep, err := NewChecker(tc.rules).Run(
				context.Background(), repo{id: "svc"})
			require.NoError(t, err)
			assert.Equal(t, tc.want, rep.Verdict)
		})
	}
}

func TestChecker_Idempotent(t *testing.T) {
	c := NewChecker(rules(
		newRuleA(errors.New("down")),
		newStubRule("b", rule.Pass(), rule.Fail("x")),
	))
	subject := repo{id: "svc"}

	first, err := c.Run(context.Background(), subject)
	require.NoError(t, err)
	second, err := c.Run(context.Background(), subject)
	require.NoError(t, err)

	strip := func(r *Report) []RuleReport {
		out := make([]RuleReport, len(r.Rules))
		for i, rr := range r.Rules {
			checks := make([]CheckReport, len(rr.Checks))
			for j, c := range rr.Checks {
				c.Duration = 0
				checks[j] = c
			}
			rr.Checks = checks
			out[i] = rr
		}
		return out
	}
	assert.Equal(t, first.Verdict, second.Verdict)
	assert.Equal(t, strip(first), strip(second))
}

func TestChecker_ReporterFailuresNeverEscalate(t *testing.T) {
	var logs bytes.Buffer
	logger := logging.NewJSONLogger(&logs, logging.LevelDebug)
	c := NewChecker(rules(newRuleA(nil)),
		WithReporter(panickingReporter{}),
		WithLogger(logger))

	rep, err := c.Run(context.Background(), repo{id: "svc"})
	require.NoError(t, err)
	assert.Equal(t, outcome.VerdictPass, rep.Verdict)
	assert.Equal(t, 8, strings.Count(logs.String(), "reporter failed"))
}

type panickingReporter struct{ report.Base }

func (panickingReporter) StartRun(rule.Subject) error { panic("down") }

func (panickingReporter) StartRule(string) error { return errors.New("x") }

func (panickingReporter) StartCheck(string, string) error {
	return errors.New("x")
}

func (panickingReporter) ReportCheck(
	string, string, rule.Options, outcome.Outcome, string,
) error {
	panic("down")
}

func (panickingReporter) ReportRule(string, outcome.Verdict) error {
	return errors.New("x")
}

func (panickingReporter) ReportRun(rule.Subject, outcome.Verdict) error {
	return errors.New("x")
}

func TestChecker_PanickingCheckIsError(t *testing.T) {
	r := &stubRule{Base: rule.NewNamedBase[repo]("p", "Panics")}
	r.Check("checkBoom", func(context.Context, repo) rule.Result {
		panic("nil map")
	})
	rep, err := NewChecker(rules(r)).Run(context.Background(), repo{id: "svc"})
	require.NoError(t, err)
	assert.Equal(t, outcome.Error, rep.Rules[0].Checks[0].Outcome)
	assert.Equal(t, "Boom: nil map", rep.Rules[0].Checks[0].Message)
}

func TestChecker_EngineFaults(t *testing.T) {
	dup := &stubRule{Base: rule.NewNamedBase[repo]("dup", "Dup")}
	dup.Check("checkSame", func(context.Context, repo) rule.Result {
		return rule.Pass()
	})
	dup.Check("checkSame", func(context.Context, repo) rule.Result {
		return rule.Pass()
	})

	tests := []struct {
		name    string
		checker *Checker[repo]
		wantErr string
	}{
		{"no rules", NewChecker[repo](nil), "no rules"},
		{"unknown rule id", NewChecker(rules(newStubRule("a")),
			WithRules("zzz")), "unknown rules: zzz"},
		{"duplicate rule id", NewChecker(rules(
			newStubRule("a"), newStubRule("a"))), "already registered"},
		{"duplicate check", NewChecker(rules(dup)), "Same"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := report.NewRecorder()
			tc.checker.opts.reporter = rec
			_, err := tc.checker.Run(context.Background(), repo{id: "svc"})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
			assert.Empty(t, rec.Events())
		})
	}
	_, err := NewChecker[repo](nil).Run(context.Background(), repo{})
	assert.ErrorIs(t, err, ErrNoRules)
}

func TestChecker_CancelledContextAbortsWithoutReportRun(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := &stubRule{Base: rule.NewNamedBase[repo]("c", "Cancel")}
	r.Check("checkFirst", func(context.Context, repo) rule.Result {
		cancel()
		return rule.Pass()
	})
	r.Check("checkSecond", func(context.Context, repo) rule.Result {
		t.Fatal("must not run after cancellation")
		return rule.Pass()
	})

	rec := report.NewRecorder()
	rep, err := NewChecker(rules(r), WithReporter(rec)).Run(ctx, repo{id: "svc"})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, rep)
	assert.Len(t, rep.Rules[0].Checks, 1)
	assert.NotContains(t, rec.Methods(), "ReportRun")
	assert.NotContains(t, rec.Methods(), "ReportRule")
}

func TestChecker_AbortedRunLeavesMetricsStoreEmpty(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	one := &stubRule{Base: rule.NewNamedBase[repo]("one", "One")}
	one.Check("checkCancels", func(context.Context, repo) rule.Result {
		cancel()
		return rule.Fail("stopped")
	})
	two := newStubRule("two", rule.Pass())

	store := metrics.NewMemoryStore()
	sink := metrics.NewSink(store)
	fan := report.NewFanout(nil, sink)

	_, err := NewChecker(rules(one, two), WithReporter(fan)).Run(ctx, repo{id: "svc"})
	require.ErrorIs(t, err, context.Canceled)
	require.NoError(t, fan.Close())

	assert.True(t, store.Closed())
	assert.Empty(t, store.Records())
}

func TestChecker_WithRulesKeepsCatalogueOrder(t *testing.T) {
	rec := report.NewRecorder()
	c := NewChecker(rules(
		newStubRule("a", rule.Pass()),
		newStubRule("b", rule.Pass()),
		newStubRule("c", rule.Pass()),
	), WithRules("c", "A"), WithReporter(rec))

	rep, err := c.Run(context.Background(), repo{id: "svc"})
	require.NoError(t, err)
	require.Len(t, rep.Rules, 2)
	assert.Equal(t, "a", rep.Rules[0].ID)
	assert.Equal(t, "c", rep.Rules[1].ID)
	r, ok := rep.Rule("c")
	assert.True(t, ok)
	assert.Equal(t, "Stub c", r.Name)
}

func TestChecker_RunMetrics(t *testing.T) {
	rec := report.NewRecorder()
	broken := &stubRule{Base: rule.NewNamedBase[repo]("m", "Metrics")}
	broken.Metric("metricBroken", func(
		context.Context, repo, rule.MetricWriter,
	) error {
		return errors.New("api down")
	})
	broken.Metric("metricPanics", func(
		context.Context, repo, rule.MetricWriter,
	) error {
		panic("bad")
	})
	broken.Metric("metricCount", func(
		_ context.Context, _ repo, w rule.MetricWriter,
	) error {
		return w.WriteMetric("Count", 5)
	})

	var logs bytes.Buffer
	c := NewChecker(rules(newRuleA(nil), broken), WithReporter(rec),
		WithLogger(logging.NewJSONLogger(&logs, logging.LevelDebug)))
	require.NoError(t, c.RunMetrics(context.Background(), repo{id: "svc"}))

	events := rec.Events()
	require.Len(t, events, 2)
	assert.Equal(t, "Rule A", events[0].Rule)
	assert.Equal(t, "Checks", events[0].Metric)
	assert.Equal(t, 2.0, events[0].Value)
	assert.Equal(t, "Metrics", events[1].Rule)
	assert.Equal(t, 5.0, events[1].Value)
	assert.Equal(t, 2, strings.Count(logs.String(), "metric failed"))
}

func TestChecker_RecordsDurations(t *testing.T) {
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewChecker(rules(newStubRule("a", rule.Pass())),
		withClock(func() time.Time {
			clock = clock.Add(time.Second)
			return clock
		}))

	rep, err := c.Run(context.Background(), repo{id: "svc"})
	require.NoError(t, err)
	assert.Equal(t, time.Second, rep.Rules[0].Checks[0].Duration)
	assert.Equal(t, 3*time.Second, rep.Duration)
}

func TestWatchdog(t *testing.T) {
	var logs safeBuffer
	logger := logging.NewJSONLogger(&logs, logging.LevelDebug)

	stop := startWatchdog(10*time.Millisecond, logger, "R", "C")
	assert.Eventually(t, func() bool {
		return strings.Contains(logs.String(), "check still running")
	}, time.Second, 5*time.Millisecond)
	stop()
	stop()

	startWatchdog(0, logger, "R", "C")()
}

type safeBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *safeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *safeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
