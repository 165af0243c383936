package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"digital.vasic.repoaudit/pkg/config"
	"digital.vasic.repoaudit/pkg/env"
	"digital.vasic.repoaudit/pkg/httpclient"
	"digital.vasic.repoaudit/pkg/logging"
	"digital.vasic.repoaudit/pkg/metrics"
	"digital.vasic.repoaudit/pkg/monitor"
	"digital.vasic.repoaudit/pkg/report"
	"digital.vasic.repoaudit/pkg/snapshot"
)

// app is the composition root of one command invocation.
type app struct {
	cfg    *config.Config
	logger logging.Logger
	stdout io.Writer
	stderr io.Writer
}

// newApp loads the configuration and builds the logger.
// Precedence is flags, then environment, then the config file,
// then defaults; flags are applied by each command.
func newApp(cmd *cobra.Command, g *globalOptions) (*app, error) {
	loader := env.NewLoader()
	switch {
	case g.envFile != "":
		if err := loader.Load(g.envFile); err != nil {
			return nil, err
		}
	default:
		if err := loader.Load(".env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	cfg, err := config.Load(g.configPath)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv(loader)
	if g.verbose {
		cfg.Log.Level = "debug"
	}
	if g.logFile != "" {
		cfg.Log.File = g.logFile
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	a := &app{cfg: cfg, stdout: cmd.OutOrStdout(), stderr: cmd.ErrOrStderr()}
	if a.logger, err = a.newLogger(); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *app) newLogger() (logging.Logger, error) {
	level, err := logging.ParseLevel(a.cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	var logger logging.Logger = logging.NewConsoleLoggerTo(
		a.stderr, level, isTerminal(a.stderr),
	)
	if a.cfg.Log.File != "" {
		file, err := logging.OpenJSONLogger(a.cfg.Log.File, level)
		if err != nil {
			return nil, err
		}
		logger = logging.NewMultiLogger(logger, file)
	}
	return logging.NewRedactingLogger(logger, a.cfg.GitHub.Token), nil
}

// provider returns the fixture provider when fixture is set and
// the GitHub provider otherwise.
func (a *app) provider(fixture string) (snapshot.Provider, error) {
	if fixture != "" {
		return snapshot.NewFile(fixture), nil
	}
	token := a.cfg.GitHub.Token
	switch {
	case token == "":
		a.logger.Warn("no GitHub token set, requests are unauthenticated")
	case !env.LooksLikeGitHubToken(token):
		a.logger.Warn("GitHub token has an unknown format",
			logging.StringField("token", env.RedactToken(token)))
	default:
		a.logger.Debug("GitHub token loaded",
			logging.StringField("token", env.RedactToken(token)))
	}
	if a.cfg.GitHub.APIURL != "" {
		a.logger.Debug("using GitHub API",
			logging.StringField("url", env.RedactURL(a.cfg.GitHub.APIURL)))
	}
	client := httpclient.New(
		httpclient.WithToken(a.cfg.GitHub.Token),
		httpclient.WithLogger(a.logger),
		httpclient.WithUserAgent("repoaudit/"+version),
	)
	return snapshot.NewGitHub(client, a.cfg.GitHub.APIURL, a.logger)
}

// reporter builds the fan-out over every enabled sink. The
// monitor server is returned unstarted, or nil when disabled.
func (a *app) reporter() (*report.Fanout, *monitor.Server, error) {
	var (
		sinks  []report.Reporter
		server *monitor.Server
	)
	fail := func(err error) (*report.Fanout, *monitor.Server, error) {
		if cerr := report.NewFanout(a.logger, sinks...).Close(); cerr != nil {
			a.logger.Warn("failed to close sinks", logging.ErrorField(cerr))
		}
		return nil, nil, err
	}

	cfg := a.cfg
	if !cfg.Console.Disabled {
		sinks = append(sinks, report.NewConsole(a.stdout, cfg.UseColor(isTerminal(a.stdout))))
	}
	if cfg.Report.CSV != "" {
		csv, err := report.OpenCSV(cfg.Report.CSV)
		if err != nil {
			return fail(err)
		}
		sinks = append(sinks, csv)
	}
	if cfg.Report.Dir != "" {
		sinks = append(sinks, report.NewSummary(cfg.Report.Dir))
	}

	sinkOpts := []metrics.SinkOption{
		metrics.WithLogger(a.logger),
		metrics.WithFlushTimeout(cfg.Metrics.FlushTimeout),
	}
	if cfg.Metrics.DB != "" {
		store, err := metrics.OpenBoltStore(cfg.Metrics.DB)
		if err != nil {
			return fail(err)
		}
		sinks = append(sinks, metrics.NewSink(store, sinkOpts...))
	}
	if cfg.Metrics.Textfile != "" {
		store := metrics.NewTextfileStore(cfg.Metrics.Textfile)
		sinks = append(sinks, metrics.NewSink(store, sinkOpts...))
	}

	if cfg.Monitor.Addr != "" {
		collector := monitor.NewEventCollector()
		server = monitor.NewServer(cfg.Monitor.Addr, collector, a.logger)
		sinks = append(sinks, monitor.NewSink(collector))
	}

	a.logger.Debug("reporters configured", logging.IntField("sinks", len(sinks)))
	return report.NewFanout(a.logger, sinks...), server, nil
}

func (a *app) close() {
	if err := a.logger.Close(); err != nil {
		fmt.Fprintln(a.stderr, "failed to close logger:", err)
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
