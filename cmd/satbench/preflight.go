package main

import (
	"github.com/spf13/cobra"

	"github.com/satbench-ai/satbench/pkg/config"
	"github.com/satbench-ai/satbench/pkg/pricing"
	"github.com/satbench-ai/satbench/pkg/runner"
)

func newPreflightCmd() *cobra.Command {
	var (
		suitePath string
		limit     int
		caseLimit int
		idsSpec   string
		maxVars   string
		maxLen    string
	)

	cmd := &cobra.Command{
		Use:   "preflight",
		Short: "Report expected rows, prompt token estimate, and upper-bound cost",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadSuite(suitePath)
			if err != nil {
				return err
			}
			rows, err := loadRows(cfg, limit, caseLimit, idsSpec, maxVars, maxLen)
			if err != nil {
				return err
			}

			var table *pricing.Table
			if cfg.PricingTable != "" {
				table, err = pricing.Load(cfg.Resolve(cfg.PricingTable))
				if err != nil {
					return err
				}
			}

			rep, err := runner.Preflight(cfg, rows, table)
			if err != nil {
				return err
			}
			printPreflight(rep, table != nil)
			return nil
		},
	}

	cmd.Flags().StringVarP(&suitePath, "suite", "s", "", "path to suite YAML (required)")
	cmd.Flags().IntVar(&limit, "limit", 0, "global row limit")
	cmd.Flags().IntVar(&caseLimit, "case-limit", 0, "rows per (maxvars,maxlen,horn) case")
	cmd.Flags().StringVar(&idsSpec, "ids", "", "id spec: comma list and ranges")
	cmd.Flags().StringVar(&maxVars, "maxvars", "", "maxvars spec")
	cmd.Flags().StringVar(&maxLen, "maxlen", "", "maxlen spec")
	_ = cmd.MarkFlagRequired("suite")

	return cmd
}
