package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"digital.vasic.repoaudit/pkg/logging"
	"digital.vasic.repoaudit/pkg/snapshot"
)

func newSnapshotCommand(g *globalOptions) *cobra.Command {
	var output, apiURL string
	cmd := &cobra.Command{
		Use:   "snapshot owner/name",
		Short: "Record a repository snapshot for offline audits",
		Long: `Read a repository from the GitHub API and write it as YAML.

The file can be audited later with "repoaudit check --snapshot FILE" and is
the fixture format used by rule tests.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, g)
			if err != nil {
				return err
			}
			defer a.close()
			if apiURL != "" {
				a.cfg.GitHub.APIURL = apiURL
			}

			target, err := snapshot.ParseTarget(args[0])
			if err != nil {
				return err
			}
			target.ProductID = a.cfg.Product.ID
			target.Product = a.cfg.Product.Name

			provider, err := a.provider("")
			if err != nil {
				return err
			}
			s, err := provider.Load(cmd.Context(), target)
			if err != nil {
				return fmt.Errorf("failed to load %s: %w", target, err)
			}
			data, err := snapshot.Encode(s)
			if err != nil {
				return err
			}
			if output == "" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(output, data, 0644); err != nil {
				return fmt.Errorf("failed to write snapshot: %w", err)
			}
			a.logger.Info("snapshot written",
				logging.StringField("repo", target.String()),
				logging.StringField("path", output),
			)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the snapshot to this file instead of stdout")
	cmd.Flags().StringVar(&apiURL, "api-url", "", "GitHub API root for GitHub Enterprise")
	return cmd
}
