package metrics

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"digital.vasic.repoaudit/pkg/logging"
	"digital.vasic.repoaudit/pkg/outcome"
	"digital.vasic.repoaudit/pkg/report"
	"digital.vasic.repoaudit/pkg/rule"
)

// Measure names of outcome records.
const (
	MeasureOutcome = "outcome"
	MeasureVerdict = "verdict"
)

// SinkOption configures a Sink.
type SinkOption func(*Sink)

// WithClock overrides the time source.
func WithClock(now func() time.Time) SinkOption {
	return func(s *Sink) { s.now = now }
}

// WithLogger sets the logger that receives flush failures.
func WithLogger(l logging.Logger) SinkOption {
	return func(s *Sink) { s.logger = l }
}

// WithFlushTimeout bounds each background write to the store.
func WithFlushTimeout(d time.Duration) SinkOption {
	return func(s *Sink) { s.timeout = d }
}

// Sink is a report.Reporter that converts run events into
// Records. Check, rule and run records share the run timestamp
// taken at StartRun; metric records carry their own. On
// ReportRun the batch is written to the Store in the background;
// Close flushes what is left, waits for pending writes and
// closes the Store. A run that never reached ReportRun was
// aborted and its records are discarded on Close.
type Sink struct {
	report.Base

	store   Store
	logger  logging.Logger
	now     func() time.Time
	timeout time.Duration
	group   errgroup.Group

	mu      sync.Mutex
	common  map[string]string
	runTime time.Time
	open    bool
	records []Record
}

// NewSink creates a Sink writing to store.
func NewSink(store Store, opts ...SinkOption) *Sink {
	s := &Sink{
		store:   store,
		logger:  logging.NullLogger{},
		now:     time.Now,
		timeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Sink) Name() string { return "metrics" }

func (s *Sink) dims(extra ...string) map[string]string {
	d := make(map[string]string, len(s.common)+len(extra)/2)
	for k, v := range s.common {
		d[k] = v
	}
	for i := 0; i+1 < len(extra); i += 2 {
		d[extra[i]] = extra[i+1]
	}
	return d
}

func (s *Sink) StartRun(subject rule.Subject) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.common = map[string]string{
		DimProductID: subject.ID(),
		"product":    subject.Product(),
	}
	if repo := subject.Repo(); repo != "" {
		s.common["repo"] = repo
	}
	s.runTime = s.now()
	s.open = true
	s.records = nil
	return nil
}

func (s *Sink) ReportCheck(
	ruleName, checkName string,
	opts rule.Options,
	o outcome.Outcome,
	message string,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.dims(
		"level", LevelCheck,
		"rule", ruleName,
		"check", checkName,
		"mandatory", strconv.FormatBool(opts.Mandatory),
	)
	if message != "" {
		d["reason"] = message
	}
	s.records = append(s.records,
		textRecord(MeasureOutcome, o.String(), d, s.runTime))
	return nil
}

func (s *Sink) ReportMetric(
	ruleName, metricName string, value float64,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, numberRecord(
		MeasureName(ruleName, metricName), value,
		s.dims("level", "metric", "rule", ruleName), s.now(),
	))
	return nil
}

func (s *Sink) ReportRule(ruleName string, verdict outcome.Verdict) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, textRecord(
		MeasureVerdict, verdict.String(),
		s.dims("level", LevelRule, "rule", ruleName), s.runTime,
	))
	return nil
}

func (s *Sink) ReportRun(_ rule.Subject, verdict outcome.Verdict) error {
	s.mu.Lock()
	s.records = append(s.records, textRecord(
		MeasureVerdict, verdict.String(),
		s.dims("level", LevelRepo), s.runTime,
	))
	s.open = false
	s.mu.Unlock()

	s.Flush()
	return nil
}

// Flush hands the records collected so far to a background
// writer.
func (s *Sink) Flush() {
	s.mu.Lock()
	batch := s.records
	s.records = nil
	s.mu.Unlock()
	if len(batch) == 0 {
		return
	}

	s.group.Go(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		if err := s.store.Write(ctx, batch); err != nil {
			s.logger.Error("failed to write metrics",
				logging.IntField("records", len(batch)),
				logging.ErrorField(err),
			)
			return err
		}
		s.logger.Debug("metrics written",
			logging.IntField("records", len(batch)))
		return nil
	})
}

// Close flushes records still held, waits for pending writes
// and closes the store. Records of an unfinished run are
// dropped.
func (s *Sink) Close() error {
	s.mu.Lock()
	if s.open && len(s.records) > 0 {
		s.logger.Warn("discarding metrics of unfinished run",
			logging.IntField("records", len(s.records)))
		s.records = nil
	}
	s.mu.Unlock()
	s.Flush()
	return errors.Join(s.group.Wait(), s.store.Close())
}

// MeasureName builds the measure of a numeric metric from the
// rule and metric display names: "Branching", "Branch Count"
// gives "branching.branch_count".
func MeasureName(ruleName, metricName string) string {
	return slug(ruleName) + "." + slug(metricName)
}

func slug(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), " ", "_")
}
