package report

import (
	"errors"
	"fmt"
	"io"

	"digital.vasic.repoaudit/pkg/logging"
	"digital.vasic.repoaudit/pkg/outcome"
	"digital.vasic.repoaudit/pkg/rule"
)

// Fanout is a Reporter that delivers every event to an ordered,
// fixed list of sinks. Each event reaches every sink before the
// call returns. A sink that returns an error or panics is logged
// and skipped; the Fanout itself never returns an error.
type Fanout struct {
	sinks  []Reporter
	logger logging.Logger
}

// NewFanout creates a Fanout over sinks. A nil logger discards
// sink failures.
func NewFanout(logger logging.Logger, sinks ...Reporter) *Fanout {
	if logger == nil {
		logger = logging.NullLogger{}
	}
	return &Fanout{sinks: sinks, logger: logger}
}

// Sinks returns the number of sinks.
func (f *Fanout) Sinks() int { return len(f.sinks) }

func (f *Fanout) each(event string, call func(Reporter) error) error {
	for _, s := range f.sinks {
		if err := deliver(s, call); err != nil {
			f.logger.Warn("reporter delivery failed",
				logging.StringField("sink", sinkName(s)),
				logging.StringField("event", event),
				logging.ErrorField(err),
			)
		}
	}
	return nil
}

func deliver(s Reporter, call func(Reporter) error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return call(s)
}

func sinkName(s Reporter) string {
	if n, ok := s.(Named); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", s)
}

func (f *Fanout) StartRun(subject rule.Subject) error {
	return f.each("start_run", func(r Reporter) error {
		return r.StartRun(subject)
	})
}

func (f *Fanout) StartRule(ruleName string) error {
	return f.each("start_rule", func(r Reporter) error {
		return r.StartRule(ruleName)
	})
}

func (f *Fanout) StartCheck(ruleName, checkName string) error {
	return f.each("start_check", func(r Reporter) error {
		return r.StartCheck(ruleName, checkName)
	})
}

func (f *Fanout) ReportCheck(
	ruleName, checkName string,
	opts rule.Options,
	o outcome.Outcome,
	message string,
) error {
	return f.each("report_check", func(r Reporter) error {
		return r.ReportCheck(ruleName, checkName, opts, o, message)
	})
}

func (f *Fanout) ReportMetric(
	ruleName, metricName string, value float64,
) error {
	return f.each("report_metric", func(r Reporter) error {
		return r.ReportMetric(ruleName, metricName, value)
	})
}

func (f *Fanout) ReportRule(ruleName string, verdict outcome.Verdict) error {
	return f.each("report_rule", func(r Reporter) error {
		return r.ReportRule(ruleName, verdict)
	})
}

func (f *Fanout) ReportRun(
	subject rule.Subject, verdict outcome.Verdict,
) error {
	return f.each("report_run", func(r Reporter) error {
		return r.ReportRun(subject, verdict)
	})
}

// Close closes every sink implementing io.Closer, waiting for
// any background delivery they still run, and joins the errors.
func (f *Fanout) Close() error {
	var errs []error
	for _, s := range f.sinks {
		c, ok := s.(io.Closer)
		if !ok {
			continue
		}
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", sinkName(s), err))
		}
	}
	return errors.Join(errs...)
}
