package main

import (
	"context"

	"github.com/spf13/cobra"
)

var version = "dev"

// globalOptions are the persistent flags shared by every
// command.
type globalOptions struct {
	configPath string
	envFile    string
	logFile    string
	verbose    bool
}

func newRootCommand() *cobra.Command {
	g := &globalOptions{}
	cmd := &cobra.Command{
		Use:   "repoaudit",
		Short: "Audit repositories against engineering standards",
		Long: `repoaudit checks a source repository against a catalogue of
engineering-standard rules (branching, building, deploying, testing and
reviewing) and reports every check to the console and the configured sinks.

The exit code is 0 when every mandatory check passes and 1 otherwise.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&g.configPath, "config", "c", "", "Path to a YAML config file")
	flags.StringVar(&g.envFile, "env-file", "", "Path to a .env file (default: ./.env when present)")
	flags.StringVar(&g.logFile, "log-file", "", "Also write JSON Lines logs to this file")
	flags.BoolVarP(&g.verbose, "verbose", "v", false, "Enable debug logging")

	cmd.AddCommand(newCheckCommand(g))
	cmd.AddCommand(newRulesCommand(g))
	cmd.AddCommand(newSnapshotCommand(g))
	return cmd
}

func execute(ctx context.Context) error {
	return newRootCommand().ExecuteContext(ctx)
}
