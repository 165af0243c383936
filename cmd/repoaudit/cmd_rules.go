package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"digital.vasic.repoaudit/pkg/rule"
	"digital.vasic.repoaudit/pkg/rules"
)

type ruleJSON struct {
	ID      string      `json:"id"`
	Name    string      `json:"name"`
	Checks  []checkJSON `json:"checks"`
	Metrics []string    `json:"metrics,omitempty"`
}

type checkJSON struct {
	Name      string `json:"name"`
	Display   string `json:"display"`
	Mandatory bool   `json:"mandatory"`
}

func newRulesCommand(_ *globalOptions) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "List the rule catalogue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			list, err := describeRules()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			switch format {
			case "json":
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(list)
			case "text":
				tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				for _, r := range list {
					fmt.Fprintf(tw, "%s\t%s\n", r.ID, r.Name)
					for _, c := range r.Checks {
						kind := "mandatory"
						if !c.Mandatory {
							kind = "advisory"
						}
						fmt.Fprintf(tw, "  %s\t%s\n", c.Display, kind)
					}
					for _, m := range r.Metrics {
						fmt.Fprintf(tw, "  %s\tmetric\n", m)
					}
				}
				return tw.Flush()
			default:
				return fmt.Errorf("unknown format %q, expected text or json", format)
			}
		},
	}
	cmd.Flags().StringVar(&format, "format", "text", "Output format: text | json")
	return cmd
}

func describeRules() ([]ruleJSON, error) {
	catalogue, err := rules.Catalogue()
	if err != nil {
		return nil, err
	}
	var out []ruleJSON
	for _, r := range catalogue.Rules() {
		checks, err := rule.Discover(r)
		if err != nil {
			return nil, err
		}
		rj := ruleJSON{ID: r.ID(), Name: r.Name()}
		for _, c := range checks {
			rj.Checks = append(rj.Checks, checkJSON{
				Name: c.Name, Display: c.DisplayName, Mandatory: c.Options.Mandatory,
			})
		}
		for _, m := range rule.DiscoverMetrics(r) {
			rj.Metrics = append(rj.Metrics, m.DisplayName)
		}
		out = append(out, rj)
	}
	return out, nil
}
