package main

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/satbench-ai/satbench/pkg/tracker"
)

func newCostCmd() *cobra.Command {
	var (
		usageDBPath string
		suite       string
		since       string
	)

	cmd := &cobra.Command{
		Use:   "cost",
		Short: "Show recorded costs by suite, provider, and model",
		RunE: func(cmd *cobra.Command, args []string) error {
			tr, err := tracker.New(usageDBPath)
			if err != nil {
				return err
			}
			defer func() { _ = tr.Close() }()

			sinceTime := beginningOfMonth()
			if since != "" {
				t, err := time.Parse("2006-01-02", since)
				if err != nil {
					return fmt.Errorf("invalid --since date (use YYYY-MM-DD): %w", err)
				}
				sinceTime = t
			}

			reports, err := tr.Report(context.Background(), sinceTime, suite)
			if err != nil {
				return err
			}
			fmt.Print(formatCostTable(reports))
			return nil
		},
	}

	cmd.Flags().StringVar(&usageDBPath, "usage-db", "satbench.db", "usage database path")
	cmd.Flags().StringVar(&suite, "suite", "", "filter by suite name")
	cmd.Flags().StringVar(&since, "since", "", "start date (YYYY-MM-DD, default: start of month)")

	return cmd
}

func beginningOfMonth() time.Time {
	now := time.Now().UTC()
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
}

func formatCostTable(reports []tracker.CostReport) string {
	if len(reports) == 0 {
		return "No cost data found.\n"
	}
	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SUITE\tPROVIDER\tMODEL\tTHINKING\tCALLS\tIN TOKENS\tOUT TOKENS\tCOST USD")

	var total float64
	for _, r := range reports {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%d\t$%.4f\n",
			r.Suite, r.Provider, r.Model, r.ThinkingMode,
			r.Calls, r.InputTokens, r.OutputTokens, r.CostUSD)
		total += r.CostUSD
	}
	w.Flush()
	fmt.Fprintf(&b, "TOTAL: $%.4f\n", total)
	return b.String()
}
