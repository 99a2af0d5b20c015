package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/rs/xid"
	"github.com/spf13/cobra"

	"github.com/satbench-ai/satbench/pkg/config"
	"github.com/satbench-ai/satbench/pkg/dataset"
	"github.com/satbench-ai/satbench/pkg/ledger"
	"github.com/satbench-ai/satbench/pkg/models"
	"github.com/satbench-ai/satbench/pkg/pricing"
	"github.com/satbench-ai/satbench/pkg/provider"
	"github.com/satbench-ai/satbench/pkg/runner"
	"github.com/satbench-ai/satbench/pkg/tracker"
)

func newRunCmd() *cobra.Command {
	var (
		suitePath   string
		runID       string
		secretsPath string
		usageDBPath string

		limit     int
		caseLimit int
		only      string
		idsSpec   string
		maxVars   string
		maxLen    string

		resume       bool
		lockstep     bool
		rerunErrors  bool
		rerunUnclear bool

		preflight     bool
		preflightOnly bool
		estimateCost  bool
		maxTotalUSD   float64
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute a suite against its targets",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadSuite(suitePath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("resume") {
				cfg.Resume = resume
			}
			if cmd.Flags().Changed("lockstep") {
				cfg.Concurrency.Lockstep = lockstep
			}
			if only != "" {
				cfg.Targets = filterTargets(cfg.Targets, strings.Split(only, ","))
				if len(cfg.Targets) == 0 {
					return fmt.Errorf("no targets left after --only %s", only)
				}
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

			if preflight || preflightOnly || estimateCost || maxTotalUSD > 0 {
				rep, err := runner.Preflight(cfg, rows, table)
				if err != nil {
					return err
				}
				printPreflight(rep, estimateCost || maxTotalUSD > 0)
				if err := rep.CheckThreshold(maxTotalUSD); err != nil {
					return err
				}
				if preflightOnly {
					return nil
				}
			}

			secrets, err := config.LoadSecrets(secretsPath)
			if err != nil {
				return err
			}

			var usageDB *tracker.Tracker
			if usageDBPath != "" {
				usageDB, err = tracker.New(usageDBPath)
				if err != nil {
					return err
				}
				defer func() { _ = usageDB.Close() }()
			}

			if runID == "" {
				runID = xid.New().String()
			}

			r, err := runner.New(cfg, runID, provider.NewRouter(secrets), table, usageDB,
				ledger.ResumeOptions{RerunErrors: rerunErrors, RerunUnclear: rerunUnclear})
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			fmt.Printf("suite %s run %s: %d rows, %d targets\n", cfg.Name, runID, len(rows), len(cfg.Targets))
			if err := r.Execute(ctx, rows); err != nil {
				return err
			}
			printStats(r.Stats())
			return nil
		},
	}

	cmd.Flags().StringVarP(&suitePath, "suite", "s", "", "path to suite YAML (required)")
	cmd.Flags().StringVar(&runID, "run", "", "run id (default: generated)")
	cmd.Flags().StringVar(&secretsPath, "secrets", "secrets.yaml", "path to provider secrets file")
	cmd.Flags().StringVar(&usageDBPath, "usage-db", "satbench.db", "usage database path (empty disables)")
	cmd.Flags().IntVar(&limit, "limit", 0, "global row limit")
	cmd.Flags().IntVar(&caseLimit, "case-limit", 0, "rows per (maxvars,maxlen,horn) case")
	cmd.Flags().StringVar(&only, "only", "", "comma-separated provider filter")
	cmd.Flags().StringVar(&idsSpec, "ids", "", "id spec: comma list and ranges, e.g. 1,5-9")
	cmd.Flags().StringVar(&maxVars, "maxvars", "", "maxvars spec: comma list and ranges")
	cmd.Flags().StringVar(&maxLen, "maxlen", "", "maxlen spec: comma list and ranges")
	cmd.Flags().BoolVar(&resume, "resume", true, "skip ids with a final latest row")
	cmd.Flags().BoolVar(&lockstep, "lockstep", true, "finish all targets per row before the next row")
	cmd.Flags().BoolVar(&rerunErrors, "rerun-errors", false, "re-dispatch ids whose latest row errored")
	cmd.Flags().BoolVar(&rerunUnclear, "rerun-unclear", false, "re-dispatch ids whose latest row was unclear")
	cmd.Flags().BoolVar(&preflight, "preflight", false, "print a preflight report before running")
	cmd.Flags().BoolVar(&preflightOnly, "preflight-only", false, "print the preflight report and exit")
	cmd.Flags().BoolVar(&estimateCost, "estimate-cost", false, "include upper-bound cost in the preflight report")
	cmd.Flags().Float64Var(&maxTotalUSD, "max-estimated-total-usd", 0, "abort when the upper-bound cost exceeds this")
	_ = cmd.MarkFlagRequired("suite")

	return cmd
}

// loadRows reads the dataset and applies the filter pipeline in its fixed
// order: subset, ids, maxvars, maxlen, per-case limiter, global limit.
func loadRows(cfg *config.Suite, limit, caseLimit int, idsSpec, maxVarsSpec, maxLenSpec string) ([]models.ProblemRow, error) {
	rows, err := dataset.Open(cfg.Resolve(cfg.Dataset.Path), cfg.Dataset.SkipRows)
	if err != nil {
		return nil, err
	}

	subset, err := dataset.Subset(cfg.Subset)
	if err != nil {
		return nil, err
	}
	ids, err := parseInt64Spec(idsSpec)
	if err != nil {
		return nil, fmt.Errorf("invalid --ids: %w", err)
	}
	maxVars, err := parseIntSpec(maxVarsSpec)
	if err != nil {
		return nil, fmt.Errorf("invalid --maxvars: %w", err)
	}
	maxLen, err := parseIntSpec(maxLenSpec)
	if err != nil {
		return nil, fmt.Errorf("invalid --maxlen: %w", err)
	}
	if limit == 0 && cfg.Dataset.LimitRows != nil {
		limit = *cfg.Dataset.LimitRows
	}

	return dataset.Apply(rows,
		subset,
		dataset.ByID(ids),
		dataset.ByMaxVars(maxVars),
		dataset.ByMaxLen(maxLen),
		dataset.PerCaseLimit(caseLimit),
		dataset.Limit(limit),
	), nil
}

func filterTargets(targets []models.Target, providers []string) []models.Target {
	keep := make(map[string]bool, len(providers))
	for _, p := range providers {
		keep[strings.TrimSpace(p)] = true
	}
	var out []models.Target
	for _, t := range targets {
		if keep[t.Provider] {
			out = append(out, t)
		}
	}
	return out
}

// parseIntSpec parses "1,3-5,9" into [1 3 4 5 9].
func parseIntSpec(spec string) ([]int, error) {
	if spec == "" {
		return nil, nil
	}
	var out []int
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if lo, hi, ok := strings.Cut(part, "-"); ok {
			a, err := strconv.Atoi(lo)
			if err != nil {
				return nil, fmt.Errorf("bad range %q", part)
			}
			b, err := strconv.Atoi(hi)
			if err != nil || b < a {
				return nil, fmt.Errorf("bad range %q", part)
			}
			for v := a; v <= b; v++ {
				out = append(out, v)
			}
			continue
		}
		v, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("bad value %q", part)
		}
		out = append(out, v)
	}
	return out, nil
}

func parseInt64Spec(spec string) ([]int64, error) {
	vals, err := parseIntSpec(spec)
	if err != nil {
		return nil, err
	}
	out := make([]int64, len(vals))
	for i, v := range vals {
		out[i] = int64(v)
	}
	return out, nil
}

func printStats(stats map[string]models.Stats) {
	fmt.Print(formatStatsTable(stats))
}

func formatStatsTable(stats map[string]models.Stats) string {
	keys := make([]string, 0, len(stats))
	for key := range stats {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TARGET\tTOTAL\tANSWERED\tCORRECT\tUNCLEAR\tERRORS\tACCURACY\tCOST USD")
	for _, key := range keys {
		s := stats[key]
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\t%d\t%.3f\t$%.4f\n",
			key, s.Total, s.Answered, s.Correct, s.Unclear, s.Errors, s.Accuracy(), s.CostTotalUSD)
	}
	w.Flush()
	return b.String()
}

func printPreflight(rep *runner.Report, withCost bool) {
	fmt.Printf("preflight: %d rows, avg prompt ~%d tokens (%d sampled)\n",
		rep.Rows, rep.AvgPromptTokens, rep.SampledPrompts)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	if withCost {
		fmt.Fprintln(w, "PROVIDER\tMODEL\tTHINKING\tMAX TOKENS\tUPPER BOUND USD")
	} else {
		fmt.Fprintln(w, "PROVIDER\tMODEL\tTHINKING\tMAX TOKENS")
	}
	for _, t := range rep.Targets {
		maxTok := "-"
		if t.MaxTokens != nil {
			maxTok = strconv.Itoa(*t.MaxTokens)
		}
		if withCost {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t$%.4f\n", t.Provider, t.Model, t.ThinkingMode, maxTok, t.UpperBoundUSD)
		} else {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", t.Provider, t.Model, t.ThinkingMode, maxTok)
		}
	}
	w.Flush()
	if withCost {
		fmt.Printf("total upper bound: $%.4f\n", rep.TotalUpperBoundUSD)
	}
}
