package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"digital.vasic.repoaudit/pkg/logging"
	"digital.vasic.repoaudit/pkg/monitor"
	"digital.vasic.repoaudit/pkg/outcome"
	"digital.vasic.repoaudit/pkg/rules"
	"digital.vasic.repoaudit/pkg/runner"
	"digital.vasic.repoaudit/pkg/snapshot"
)

type checkOptions struct {
	snapshot        string
	rules           []string
	metrics         bool
	product         string
	productID       string
	csv             string
	reportDir       string
	metricsDB       string
	metricsTextfile string
	monitor         string
	monitorLinger   time.Duration
	color           string
	apiURL          string
}

func newCheckCommand(g *globalOptions) *cobra.Command {
	opts := &checkOptions{}
	cmd := &cobra.Command{
		Use:   "check [owner/name]",
		Short: "Audit a repository",
		Long: `Audit a repository against the rule catalogue.

The repository is read from the GitHub API, or from a YAML snapshot recorded
with "repoaudit snapshot" when --snapshot is given. Every check is reported to
the console and to each enabled sink:

  --csv               one row per check
  --report-dir        JSON and Markdown run summaries plus a history log
  --metrics-db        metric records in a bbolt database
  --metrics-textfile  Prometheus textfile-collector exposition
  --monitor           live WebSocket event stream`,
		Example: `  repoaudit check acme/payments
  repoaudit check --snapshot payments.yaml --rule branching,reviewing
  repoaudit check acme/payments --metrics --metrics-db metrics.db`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, g, opts, args)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.snapshot, "snapshot", "", "Read the repository from a YAML snapshot file")
	f.StringSliceVarP(&opts.rules, "rule", "r", nil, "Run only these rule IDs (repeatable or comma separated)")
	f.BoolVar(&opts.metrics, "metrics", false, "Also run the metric pass after the checks")
	f.StringVar(&opts.product, "product", "", "Product name reported with every result")
	f.StringVar(&opts.productID, "product-id", "", "Product identifier reported with every result")
	f.StringVar(&opts.csv, "csv", "", "Write check results to this CSV file")
	f.StringVar(&opts.reportDir, "report-dir", "", "Write run summaries into this directory")
	f.StringVar(&opts.metricsDB, "metrics-db", "", "Store metric records in this bbolt database")
	f.StringVar(&opts.metricsTextfile, "metrics-textfile", "", "Write metric records as a Prometheus textfile")
	f.StringVar(&opts.monitor, "monitor", "", "Serve the live event stream on this address, e.g. :8088")
	f.DurationVar(&opts.monitorLinger, "monitor-linger", 0, "Keep the monitor serving this long after the run")
	f.StringVar(&opts.color, "color", "", "Console colours: auto, always or never")
	f.StringVar(&opts.apiURL, "api-url", "", "GitHub API root for GitHub Enterprise")
	return cmd
}

// apply overrides the configuration with the flags that were
// set.
func (o *checkOptions) apply(a *app) {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	cfg := a.cfg
	set(&cfg.Product.Name, o.product)
	set(&cfg.Product.ID, o.productID)
	set(&cfg.Report.CSV, o.csv)
	set(&cfg.Report.Dir, o.reportDir)
	set(&cfg.Metrics.DB, o.metricsDB)
	set(&cfg.Metrics.Textfile, o.metricsTextfile)
	set(&cfg.Monitor.Addr, o.monitor)
	set(&cfg.Console.Color, o.color)
	set(&cfg.GitHub.APIURL, o.apiURL)
	if len(o.rules) > 0 {
		cfg.Rules = o.rules
	}
}

func runCheck(cmd *cobra.Command, g *globalOptions, opts *checkOptions, args []string) error {
	a, err := newApp(cmd, g)
	if err != nil {
		return err
	}
	defer a.close()
	opts.apply(a)
	if err := a.cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	target := snapshot.Target{}
	switch {
	case len(args) == 1:
		if target, err = snapshot.ParseTarget(args[0]); err != nil {
			return err
		}
	case opts.snapshot == "":
		return fmt.Errorf("a repository (owner/name) or --snapshot is required")
	}
	target.ProductID = a.cfg.Product.ID
	target.Product = a.cfg.Product.Name

	ctx := cmd.Context()
	provider, err := a.provider(opts.snapshot)
	if err != nil {
		return err
	}
	subject, err := provider.Load(ctx, target)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", describe(target, opts.snapshot), err)
	}

	catalogue, err := rules.Catalogue()
	if err != nil {
		return err
	}
	fanout, server, err := a.reporter()
	if err != nil {
		return err
	}
	defer func() {
		if err := fanout.Close(); err != nil {
			a.logger.Warn("failed to close reporters", logging.ErrorField(err))
		}
	}()
	if server != nil {
		stop := serveMonitor(ctx, a.logger, server)
		defer stop(opts.monitorLinger)
	}

	checker := runner.NewChecker(catalogue.Rules(),
		runner.WithReporter(fanout),
		runner.WithLogger(a.logger),
		runner.WithRules(a.cfg.Rules...),
		runner.WithSlowCheckWarning(a.cfg.SlowCheckWarning),
	)
	rep, err := checker.Run(ctx, subject)
	if err != nil {
		return err
	}
	if opts.metrics {
		if err := checker.RunMetrics(ctx, subject); err != nil {
			return err
		}
	}

	if !rep.Verdict.Passed() {
		return &VerdictError{
			Verdict: rep.Verdict,
			Failed:  rep.Count(outcome.Fail) + rep.Count(outcome.Error),
		}
	}
	return nil
}

// serveMonitor starts server in the background. The returned
// function keeps it serving for linger, then shuts it down.
func serveMonitor(
	ctx context.Context, logger logging.Logger, server *monitor.Server,
) func(linger time.Duration) {
	serveCtx, stopServing := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := server.Start(serveCtx); err != nil {
			logger.Error("monitor stopped", logging.ErrorField(err))
		}
	}()
	return func(linger time.Duration) {
		if linger > 0 {
			logger.Info("monitor lingering", logging.StringField("for", linger.String()))
			select {
			case <-time.After(linger):
			case <-ctx.Done():
			case <-done:
			}
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Stop(shutdownCtx); err != nil {
			logger.Warn("monitor shutdown failed", logging.ErrorField(err))
		}
		stopServing()
		<-done
	}
}

func describe(target snapshot.Target, fixture string) string {
	if fixture != "" {
		return "snapshot " + fixture
	}
	return target.String()
}
