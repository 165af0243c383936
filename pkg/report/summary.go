package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"digital.vasic.repoaudit/pkg/outcome"
	"digital.vasic.repoaudit/pkg/rule"
)

// RunSummary is the aggregated result of one audit run.
type RunSummary struct {
	ID          string          `json:"id"`
	GeneratedAt time.Time       `json:"generated_at"`
	ProductID   string          `json:"product_id"`
	Product     string          `json:"product"`
	Repo        string          `json:"repo,omitempty"`
	Verdict     outcome.Verdict `json:"verdict"`
	Rules       []RuleSummary   `json:"rules"`
	TotalChecks int             `json:"total_checks"`
	Passed      int             `json:"passed"`
	Failed      int             `json:"failed"`
	Warned      int             `json:"warned"`
	Errored     int             `json:"errored"`
	Duration    time.Duration   `json:"duration"`
}

// RuleSummary summarises one rule.
type RuleSummary struct {
	Name    string          `json:"name"`
	Verdict outcome.Verdict `json:"verdict"`
	Checks  []CheckSummary  `json:"checks"`
}

// CheckSummary records one check outcome.
type CheckSummary struct {
	Name      string          `json:"name"`
	Mandatory bool            `json:"mandatory"`
	Outcome   outcome.Outcome `json:"outcome"`
	Message   string          `json:"message,omitempty"`
	Duration  time.Duration   `json:"duration"`
}

// Summary collects a RunSummary during the run and, on
// ReportRun, saves it as JSON and Markdown to its output
// directory and appends a line to the history log.
type Summary struct {
	Base
	mu         sync.Mutex
	outputDir  string
	historyLog string
	now        func() time.Time

	current    *RunSummary
	checkStart time.Time
	last       *RunSummary
}

// NewSummary creates a Summary sink writing into outputDir. The
// history log is outputDir/history.jsonl.
func NewSummary(outputDir string) *Summary {
	return &Summary{
		outputDir:  outputDir,
		historyLog: filepath.Join(outputDir, "history.jsonl"),
		now:        time.Now,
	}
}

func (s *Summary) Name() string { return "summary" }

// Last returns the most recently completed run summary, or nil.
func (s *Summary) Last() *RunSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

func (s *Summary) StartRun(subject rule.Subject) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	s.current = &RunSummary{
		ID:          "run_" + now.Format("20060102_150405"),
		GeneratedAt: now,
		ProductID:   subject.ID(),
		Product:     subject.Product(),
		Repo:        subject.Repo(),
	}
	return nil
}

func (s *Summary) StartRule(ruleName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return errNoRun
	}
	s.current.Rules = append(s.current.Rules, RuleSummary{Name: ruleName})
	return nil
}

func (s *Summary) StartCheck(string, string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checkStart = s.now()
	return nil
}

func (s *Summary) ReportCheck(
	_, checkName string,
	opts rule.Options,
	o outcome.Outcome,
	message string,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, err := s.currentRule()
	if err != nil {
		return err
	}
	r.Checks = append(r.Checks, CheckSummary{
		Name:      checkName,
		Mandatory: opts.Mandatory,
		Outcome:   o,
		Message:   message,
		Duration:  s.now().Sub(s.checkStart),
	})

	s.current.TotalChecks++
	switch o {
	case outcome.Pass:
		s.current.Passed++
	case outcome.Fail:
		s.current.Failed++
	case outcome.Warn:
		s.current.Warned++
	case outcome.Error:
		s.current.Errored++
	}
	return nil
}

func (s *Summary) ReportRule(_ string, verdict outcome.Verdict) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, err := s.currentRule()
	if err != nil {
		return err
	}
	r.Verdict = verdict
	return nil
}

func (s *Summary) ReportRun(_ rule.Subject, verdict outcome.Verdict) error {
	s.mu.Lock()
	run := s.current
	if run == nil {
		s.mu.Unlock()
		return errNoRun
	}
	run.Verdict = verdict
	run.Duration = s.now().Sub(run.GeneratedAt)
	s.last, s.current = run, nil
	s.mu.Unlock()

	if err := SaveRunSummary(run, s.outputDir); err != nil {
		return err
	}
	return AppendToHistory(s.historyLog, run)
}

func (s *Summary) currentRule() (*RuleSummary, error) {
	if s.current == nil || len(s.current.Rules) == 0 {
		return nil, errNoRule
	}
	return &s.current.Rules[len(s.current.Rules)-1], nil
}

var (
	errNoRun  = fmt.Errorf("summary: event outside of a run")
	errNoRule = fmt.Errorf("summary: event outside of a rule")
)

// SaveRunSummary writes summary as <id>.json and <id>.md into
// outputDir and points latest_summary.json/.md at them.
func SaveRunSummary(summary *RunSummary, outputDir string) error {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf(
			"failed to create output directory: %w", err,
		)
	}

	jsonPath := filepath.Join(outputDir, summary.ID+".json")
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal summary: %w", err)
	}
	if err := os.WriteFile(jsonPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write JSON summary: %w", err)
	}

	mdPath := filepath.Join(outputDir, summary.ID+".md")
	md := []byte(GenerateSummaryMarkdown(summary))
	if err := os.WriteFile(mdPath, md, 0644); err != nil {
		return fmt.Errorf(
			"failed to write Markdown summary: %w", err,
		)
	}

	latestJSON := filepath.Join(outputDir, "latest_summary.json")
	latestMD := filepath.Join(outputDir, "latest_summary.md")
	_ = os.Remove(latestJSON)
	_ = os.Remove(latestMD)
	_ = os.Symlink(filepath.Base(jsonPath), latestJSON)
	_ = os.Symlink(filepath.Base(mdPath), latestMD)
	return nil
}

// GenerateSummaryMarkdown renders summary as Markdown.
func GenerateSummaryMarkdown(summary *RunSummary) string {
	var sb strings.Builder

	title := summary.Product
	if summary.Repo != "" {
		title += " (" + summary.Repo + ")"
	}
	fmt.Fprintf(&sb, "# Repository Audit - %s\n\n", title)
	fmt.Fprintf(&sb, "**Run:** %s\n\n", summary.ID)
	fmt.Fprintf(&sb, "**Generated:** %s\n\n",
		summary.GeneratedAt.Format(time.RFC3339))
	fmt.Fprintf(&sb, "**Result:** %s\n\n", summary.Verdict)

	for _, r := range summary.Rules {
		fmt.Fprintf(&sb, "## %s - %s\n\n", r.Name, r.Verdict)
		sb.WriteString("| Check | Mandatory | Outcome | Message |\n")
		sb.WriteString("|-------|-----------|---------|---------|\n")
		for _, c := range r.Checks {
			fmt.Fprintf(&sb, "| %s | %t | %s | %s |\n",
				c.Name, c.Mandatory, c.Outcome,
				strings.ReplaceAll(c.Message, "|", `\|`))
		}
		sb.WriteString("\n")
	}

	sb.WriteString("## Statistics\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	fmt.Fprintf(&sb, "| Checks | %d |\n", summary.TotalChecks)
	fmt.Fprintf(&sb, "| Passed | %d |\n", summary.Passed)
	fmt.Fprintf(&sb, "| Failed | %d |\n", summary.Failed)
	fmt.Fprintf(&sb, "| Warned | %d |\n", summary.Warned)
	fmt.Fprintf(&sb, "| Errored | %d |\n", summary.Errored)
	fmt.Fprintf(&sb, "| Duration | %v |\n", summary.Duration)

	return sb.String()
}
