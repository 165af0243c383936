package report

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"digital.vasic.repoaudit/pkg/outcome"
	"digital.vasic.repoaudit/pkg/rule"
)

// CSVHeader is the first row written by the CSV sink.
var CSVHeader = []string{
	"product_id", "product", "repo", "rule", "check",
	"mandatory", "outcome", "message",
}

// CSV writes one row per check, advisory checks included.
type CSV struct {
	Base
	w       *csv.Writer
	closer  io.Closer
	subject rule.Subject
	header  bool
}

// NewCSV creates a CSV sink writing to w.
func NewCSV(w io.Writer) *CSV {
	return &CSV{w: csv.NewWriter(w)}
}

// OpenCSV creates a CSV sink writing to a new file at path.
func OpenCSV(path string) (*CSV, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf(
			"failed to create CSV directory: %w", err,
		)
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create CSV file: %w", err)
	}
	c := NewCSV(file)
	c.closer = file
	return c, nil
}

func (c *CSV) Name() string { return "csv" }

func (c *CSV) StartRun(subject rule.Subject) error {
	c.subject = subject
	if c.header {
		return nil
	}
	c.header = true
	return c.w.Write(CSVHeader)
}

func (c *CSV) ReportCheck(
	ruleName, checkName string,
	opts rule.Options,
	o outcome.Outcome,
	message string,
) error {
	var id, product, repo string
	if c.subject != nil {
		id, product, repo = c.subject.ID(), c.subject.Product(), c.subject.Repo()
	}
	return c.w.Write([]string{
		id, product, repo, ruleName, checkName,
		strconv.FormatBool(opts.Mandatory), o.String(), message,
	})
}

func (c *CSV) ReportRun(rule.Subject, outcome.Verdict) error {
	c.w.Flush()
	return c.w.Error()
}

// Close flushes pending rows and closes the file opened by
// OpenCSV.
func (c *CSV) Close() error {
	c.w.Flush()
	err := c.w.Error()
	if c.closer != nil {
		err = errors.Join(err, c.closer.Close())
	}
	return err
}
