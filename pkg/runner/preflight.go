package runner

import (
	"errors"
	"fmt"

	"github.com/satbench-ai/satbench/pkg/config"
	"github.com/satbench-ai/satbench/pkg/models"
	"github.com/satbench-ai/satbench/pkg/pricing"
	"github.com/satbench-ai/satbench/pkg/prompt"
)

// ErrCostThreshold aborts a run whose estimated upper-bound cost exceeds the
// configured maximum.
var ErrCostThreshold = errors.New("estimated cost exceeds threshold")

// Output tokens assumed for targets without an explicit max_tokens when
// bounding cost.
const defaultMaxTokensEstimate = 4096

// promptSamples is how many rendered prompts the estimate averages over.
const promptSamples = 5

// TargetPlan is the preflight view of one target.
type TargetPlan struct {
	Provider      string       `json:"provider"`
	Model         string       `json:"model"`
	ThinkingMode  string       `json:"thinking_mode"`
	MaxTokens     *int         `json:"max_tokens,omitempty"`
	PricingRate   *models.Rate `json:"pricing_rate,omitempty"`
	UpperBoundUSD float64      `json:"upper_bound_usd"`
}

// Report is the result of a preflight pass: expected row count, a sampled
// prompt token estimate, and per-target upper-bound cost. No provider is
// called.
type Report struct {
	Rows               int          `json:"rows"`
	SampledPrompts     int          `json:"sampled_prompts"`
	AvgPromptTokens    int          `json:"avg_prompt_tokens"`
	Targets            []TargetPlan `json:"targets"`
	TotalUpperBoundUSD float64      `json:"total_upper_bound_usd"`
}

// Preflight renders up to five prompts from the filtered rows, estimates
// tokens as ceil(chars/4), and bounds the run cost per target as
// rows*avg_prompt_tokens*input_rate + rows*max_tokens*output_rate.
func Preflight(cfg *config.Suite, rows []models.ProblemRow, table *pricing.Table) (*Report, error) {
	rep := &Report{Rows: len(rows)}

	var totalTokens int
	for _, row := range rows {
		if rep.SampledPrompts >= promptSamples {
			break
		}
		branch, err := cfg.Prompting.Branch(row)
		if err != nil {
			return nil, err
		}
		text, err := prompt.Render(row, branch, cfg.Prompting.Templates)
		if err != nil {
			return nil, fmt.Errorf("render row %d: %w", row.ID, err)
		}
		totalTokens += (len(text) + 3) / 4
		rep.SampledPrompts++
	}
	if rep.SampledPrompts > 0 {
		rep.AvgPromptTokens = totalTokens / rep.SampledPrompts
	}

	for _, t := range cfg.Targets {
		plan := TargetPlan{
			Provider:     t.Provider,
			Model:        t.Model,
			ThinkingMode: t.ThinkingMode(),
			MaxTokens:    t.MaxTokens,
			PricingRate:  table.Lookup(t.Provider, t.Model),
		}
		if plan.PricingRate != nil {
			maxOut := defaultMaxTokensEstimate
			if t.MaxTokens != nil {
				maxOut = *t.MaxTokens
			}
			n := float64(rep.Rows)
			plan.UpperBoundUSD = n*float64(rep.AvgPromptTokens)/1e6*plan.PricingRate.InputPerMillionUSD +
				n*float64(maxOut)/1e6*plan.PricingRate.OutputPerMillionUSD
		}
		rep.TotalUpperBoundUSD += plan.UpperBoundUSD
		rep.Targets = append(rep.Targets, plan)
	}
	return rep, nil
}

// CheckThreshold returns ErrCostThreshold when the total upper bound exceeds
// maxUSD. A non-positive maxUSD disables the check.
func (r *Report) CheckThreshold(maxUSD float64) error {
	if maxUSD > 0 && r.TotalUpperBoundUSD > maxUSD {
		return fmt.Errorf("%w: upper bound $%.4f > limit $%.4f", ErrCostThreshold, r.TotalUpperBoundUSD, maxUSD)
	}
	return nil
}
