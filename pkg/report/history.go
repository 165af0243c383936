package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"digital.vasic.repoaudit/pkg/outcome"
)

// HistoricalEntry is one run in the history log.
type HistoricalEntry struct {
	Timestamp time.Time       `json:"timestamp"`
	RunID     string          `json:"run_id"`
	ProductID string          `json:"product_id"`
	Repo      string          `json:"repo,omitempty"`
	Verdict   outcome.Verdict `json:"verdict"`
	Passed    int             `json:"passed"`
	Failed    int             `json:"failed"`
	Errored   int             `json:"errored"`
	Duration  string          `json:"duration"`
}

// AppendToHistory appends one JSON line describing summary to
// the log at historyPath.
func AppendToHistory(historyPath string, summary *RunSummary) error {
	entry := HistoricalEntry{
		Timestamp: summary.GeneratedAt,
		RunID:     summary.ID,
		ProductID: summary.ProductID,
		Repo:      summary.Repo,
		Verdict:   summary.Verdict,
		Passed:    summary.Passed,
		Failed:    summary.Failed,
		Errored:   summary.Errored,
		Duration:  summary.Duration.String(),
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal history entry: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(historyPath), 0755); err != nil {
		return fmt.Errorf(
			"failed to create history directory: %w", err,
		)
	}
	file, err := os.OpenFile(
		historyPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644,
	)
	if err != nil {
		return fmt.Errorf("failed to open history file: %w", err)
	}
	defer func() { _ = file.Close() }()

	_, err = fmt.Fprintln(file, string(data))
	return err
}
