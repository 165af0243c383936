// Package runner provides the audit engine. A Checker runs the
// checks of every rule in its catalogue against one subject,
// classifies each result, folds outcomes into rule and run
// verdicts and reports every step to a Reporter.
package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"digital.vasic.repoaudit/pkg/logging"
	"digital.vasic.repoaudit/pkg/outcome"
	"digital.vasic.repoaudit/pkg/registry"
	"digital.vasic.repoaudit/pkg/report"
	"digital.vasic.repoaudit/pkg/rule"
)

// ErrNoRules is returned when a run has no rule to execute.
var ErrNoRules = errors.New("no rules to run")

// Checker runs a rule catalogue against subjects of type S.
// Checks run strictly one after another. A Checker holds no
// per-run state and may be reused.
type Checker[S rule.Subject] struct {
	rules []rule.Rule[S]
	opts  options
}

// NewChecker creates a Checker over rules, in order.
func NewChecker[S rule.Subject](
	rules []rule.Rule[S], opts ...Option,
) *Checker[S] {
	o := options{
		reporter: report.Base{},
		logger:   logging.NullLogger{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &Checker[S]{rules: rules, opts: o}
}

type plannedRule[S rule.Subject] struct {
	rule    rule.Rule[S]
	checks  []rule.Check[S]
	metrics []rule.Metric[S]
}

// plan selects the rules to run and discovers their operations
// before anything is reported.
func (c *Checker[S]) plan() ([]plannedRule[S], error) {
	catalogue, err := registry.New(c.rules...)
	if err != nil {
		return nil, err
	}
	selected, err := catalogue.Select(c.opts.ruleIDs...)
	if err != nil {
		return nil, err
	}
	if len(selected) == 0 {
		return nil, ErrNoRules
	}

	plan := make([]plannedRule[S], 0, len(selected))
	for _, r := range selected {
		checks, err := rule.Discover(r)
		if err != nil {
			return nil, fmt.Errorf(
				"failed to discover checks of %s: %w", r.Name(), err,
			)
		}
		plan = append(plan, plannedRule[S]{
			rule:    r,
			checks:  checks,
			metrics: rule.DiscoverMetrics(r),
		})
	}
	return plan, nil
}

// Run audits subject. Every discovered check runs even when
// earlier ones fail; failures are data in the returned Report.
// An error is returned only for engine faults: unknown or
// duplicate rule IDs, discovery errors or a cancelled context. A run that
// stops on an engine fault emits no ReportRun event.
func (c *Checker[S]) Run(ctx context.Context, subject S) (*Report, error) {
	plan, err := c.plan()
	if err != nil {
		return nil, err
	}

	log := c.opts.logger.WithFields(logging.SubjectField(subject.ID()))
	rep := &Report{
		Subject:   subject.ID(),
		Verdict:   outcome.VerdictPass,
		StartTime: c.opts.now(),
	}

	log.Info("audit started", logging.IntField("rules", len(plan)))
	c.emit(log, "start_run", func(r report.Reporter) error {
		return r.StartRun(subject)
	})

	for _, p := range plan {
		ruleRep, err := c.runRule(ctx, log, p, subject)
		rep.Rules = append(rep.Rules, ruleRep)
		if err != nil {
			rep.Duration = c.opts.now().Sub(rep.StartTime)
			log.Error("audit aborted", logging.ErrorField(err))
			return rep, err
		}
		rep.Verdict = rep.Verdict.Fold(ruleRep.Verdict)
	}

	rep.Duration = c.opts.now().Sub(rep.StartTime)
	c.emit(log, "report_run", func(r report.Reporter) error {
		return r.ReportRun(subject, rep.Verdict)
	})
	log.Info("audit finished",
		logging.StringField("verdict", rep.Verdict.String()),
		logging.IntField("failed", rep.Count(outcome.Fail)),
		logging.IntField("errors", rep.Count(outcome.Error)),
	)
	return rep, nil
}

func (c *Checker[S]) runRule(
	ctx context.Context,
	log logging.Logger,
	p plannedRule[S],
	subject S,
) (RuleReport, error) {
	name := p.rule.Name()
	rr := RuleReport{
		ID:      p.rule.ID(),
		Name:    name,
		Verdict: outcome.VerdictPass,
	}

	c.emit(log, "start_rule", func(r report.Reporter) error {
		return r.StartRule(name)
	})

	for _, check := range p.checks {
		if err := ctx.Err(); err != nil {
			return rr, fmt.Errorf("audit cancelled: %w", err)
		}

		c.emit(log, "start_check", func(r report.Reporter) error {
			return r.StartCheck(name, check.DisplayName)
		})

		start := c.opts.now()
		stop := startWatchdog(c.opts.slowAfter, log, name, check.DisplayName)
		o, msg := outcome.Classify(ctx, check, subject)
		stop()
		elapsed := c.opts.now().Sub(start)

		c.logCheck(log, name, check.DisplayName, o, msg, elapsed)
		c.emit(log, "report_check", func(r report.Reporter) error {
			return r.ReportCheck(name, check.DisplayName, check.Options, o, msg)
		})

		rr.Checks = append(rr.Checks, CheckReport{
			Name:     check.Name,
			Display:  check.DisplayName,
			Options:  check.Options,
			Outcome:  o,
			Message:  msg,
			Duration: elapsed,
		})
		rr.Verdict = outcome.RuleVerdict(rr.Verdict, o, check.Options)
	}

	c.emit(log, "report_rule", func(r report.Reporter) error {
		return r.ReportRule(name, rr.Verdict)
	})
	return rr, nil
}

func (c *Checker[S]) logCheck(
	log logging.Logger,
	ruleName, checkName string,
	o outcome.Outcome,
	msg string,
	elapsed time.Duration,
) {
	fields := []logging.Field{
		logging.RuleField(ruleName),
		logging.CheckField(checkName),
		logging.StringField("outcome", o.String()),
		logging.StringField("duration", elapsed.String()),
	}
	if msg != "" {
		fields = append(fields, logging.StringField("message", msg))
	}
	if o == outcome.Error {
		log.Warn("check raised an error", fields...)
		return
	}
	log.Debug("check completed", fields...)
}

// RunMetrics runs every metric operation of the selected rules
// against subject and forwards each written value to the
// reporter as ReportMetric. A failing metric operation is
// logged and skipped. Only selection errors and a cancelled
// context are returned.
func (c *Checker[S]) RunMetrics(ctx context.Context, subject S) error {
	plan, err := c.plan()
	if err != nil {
		return err
	}
	log := c.opts.logger.WithFields(logging.SubjectField(subject.ID()))

	for _, p := range plan {
		for _, m := range p.metrics {
			if err := ctx.Err(); err != nil {
				return fmt.Errorf("metric pass cancelled: %w", err)
			}
			w := &metricWriter{
				emit: func(name string, value float64) {
					c.emit(log, "report_metric", func(r report.Reporter) error {
						return r.ReportMetric(p.rule.Name(), name, value)
					})
				},
			}
			if err := runMetric(ctx, m, subject, w); err != nil {
				log.Warn("metric failed",
					logging.RuleField(p.rule.Name()),
					logging.StringField("metric", m.DisplayName),
					logging.ErrorField(err),
				)
			}
		}
	}
	return nil
}

func runMetric[S any](
	ctx context.Context, m rule.Metric[S], subject S, w rule.MetricWriter,
) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return m.Run(ctx, subject, w)
}

type metricWriter struct {
	emit func(name string, value float64)
}

func (w *metricWriter) WriteMetric(name string, value float64) error {
	w.emit(name, value)
	return nil
}

// emit delivers one event to the reporter. Reporter errors and
// panics are logged and never change the run.
func (c *Checker[S]) emit(
	log logging.Logger, event string, call func(report.Reporter) error,
) {
	err := func() (err error) {
		defer func() {
			if p := recover(); p != nil {
				err = fmt.Errorf("panic: %v", p)
			}
		}()
		return call(c.opts.reporter)
	}()
	if err != nil {
		log.Warn("reporter failed",
			logging.StringField("event", event),
			logging.ErrorField(err),
		)
	}
}
