package metrics

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// Metric family names written by TextfileStore.
const (
	FamilyOutcome = "repoaudit_outcome"
	FamilyMetric  = "repoaudit_metric"
	FamilyLastRun = "repoaudit_last_run_timestamp_seconds"
)

// Dimensions never exported as labels.
var skippedLabels = map[string]bool{"reason": true}

// TextfileStore renders records in the Prometheus text
// exposition format, for the node_exporter textfile collector.
// It keeps the latest record of every series written so far;
// every Write re-renders them and replaces the file atomically.
type TextfileStore struct {
	mu     sync.Mutex
	path   string
	series map[string]Record
	order  []string
}

// NewTextfileStore creates a store writing to path. The file is
// only created on the first Write.
func NewTextfileStore(path string) *TextfileStore {
	return &TextfileStore{path: path, series: make(map[string]Record)}
}

// merge records each record under its series key, replacing an
// earlier record of the same series.
func (s *TextfileStore) merge(records []Record) []Record {
	for _, r := range records {
		key := r.Measure + "|" + strings.Join(labelSet(r.Dimensions), ",")
		if _, seen := s.series[key]; !seen {
			s.order = append(s.order, key)
		}
		s.series[key] = r
	}
	out := make([]Record, len(s.order))
	for i, key := range s.order {
		out[i] = s.series[key]
	}
	return out
}

func (s *TextfileStore) Write(ctx context.Context, records []Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf(
			"failed to create textfile directory: %w", err,
		)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".repoaudit-*.prom")
	if err != nil {
		return fmt.Errorf("failed to create temp textfile: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.WriteString(Exposition(s.merge(records))); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write textfile: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to replace textfile: %w", err)
	}
	return nil
}

func (s *TextfileStore) Close() error { return nil }

// Exposition renders records as Prometheus text format. Text
// records become a FamilyOutcome sample with value 1 and the
// outcome as a label, number records a FamilyMetric sample and
// every repo level record a FamilyLastRun sample.
func Exposition(records []Record) string {
	var outcomes, numbers, runs []string
	for _, r := range records {
		labels := labelSet(r.Dimensions)
		switch r.Kind {
		case KindNumber:
			labels = append(labels, label("measure", r.Measure))
			numbers = append(numbers,
				sample(FamilyMetric, labels, r.Value))
		default:
			labels = append(labels, label("value", r.Value))
			outcomes = append(outcomes,
				sample(FamilyOutcome, labels, "1"))
			if r.Dimensions["level"] == LevelRepo {
				runs = append(runs, sample(
					FamilyLastRun,
					labelSet(r.Dimensions),
					fmt.Sprintf("%d", r.Time.Unix()),
				))
			}
		}
	}

	var sb strings.Builder
	family(&sb, FamilyOutcome,
		"Outcome of each audited check, rule and repository.", outcomes)
	family(&sb, FamilyMetric,
		"Numeric measurement reported by a rule.", numbers)
	family(&sb, FamilyLastRun,
		"Unix time of the last completed audit run.", runs)
	return sb.String()
}

func family(sb *strings.Builder, name, help string, samples []string) {
	if len(samples) == 0 {
		return
	}
	sort.Strings(samples)
	fmt.Fprintf(sb, "# HELP %s %s\n", name, help)
	fmt.Fprintf(sb, "# TYPE %s gauge\n", name)
	for _, s := range samples {
		sb.WriteString(s)
		sb.WriteByte('\n')
	}
}

func labelSet(dims map[string]string) []string {
	keys := make([]string, 0, len(dims))
	for k := range dims {
		if !skippedLabels[k] {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys)+1)
	for _, k := range keys {
		out = append(out, label(k, dims[k]))
	}
	return out
}

var labelEscaper = strings.NewReplacer(
	`\`, `\\`, `"`, `\"`, "\n", `\n`,
)

func label(name, value string) string {
	return name + `="` + labelEscaper.Replace(value) + `"`
}

func sample(name string, labels []string, value string) string {
	return name + "{" + strings.Join(labels, ",") + "} " + value
}
