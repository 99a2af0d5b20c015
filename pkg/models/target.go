package models

import "fmt"

// Thinking effort grades accepted by effort-style providers.
const (
	EffortLow    = "low"
	EffortMedium = "medium"
	EffortHigh   = "high"
)

// Thinking configures a target's reasoning budget. At most one of Effort and
// BudgetTokens may be set; a nil *Thinking means reasoning is disabled.
type Thinking struct {
	Effort       string `yaml:"effort,omitempty" json:"effort,omitempty"`
	BudgetTokens *int   `yaml:"budget_tokens,omitempty" json:"budget_tokens,omitempty"`
}

// Validate checks that effort and budget are not both set and that the effort
// grade, if present, is one of low, medium, high.
func (th *Thinking) Validate() error {
	if th == nil {
		return nil
	}
	if th.Effort != "" && th.BudgetTokens != nil {
		return fmt.Errorf("thinking: effort and budget_tokens are mutually exclusive")
	}
	switch th.Effort {
	case "", EffortLow, EffortMedium, EffortHigh:
	default:
		return fmt.Errorf("thinking: unknown effort %q", th.Effort)
	}
	if th.BudgetTokens != nil && *th.BudgetTokens < 0 {
		return fmt.Errorf("thinking: budget_tokens must be >= 0")
	}
	return nil
}

// Target identifies one execution target: a provider, a model, and the
// sampling and reasoning parameters sent with every call.
type Target struct {
	Provider    string    `yaml:"provider" json:"provider"`
	Model       string    `yaml:"model" json:"model"`
	Temperature *float64  `yaml:"temperature,omitempty" json:"temperature,omitempty"`
	Seed        *int      `yaml:"seed,omitempty" json:"seed,omitempty"`
	MaxTokens   *int      `yaml:"max_tokens,omitempty" json:"max_tokens,omitempty"`
	Thinking    *Thinking `yaml:"thinking,omitempty" json:"thinking,omitempty"`
}

// ThinkingMode returns the canonical reasoning label for this target. The
// label is part of output paths and ledger keys, so its form is stable:
// "nothink" when disabled, "think_<effort>" for effort grades, "think_<n>"
// for token budgets, and "think" when enabled without a parameter.
func (t Target) ThinkingMode() string {
	th := t.Thinking
	if th == nil {
		return "nothink"
	}
	if th.Effort != "" {
		return "think_" + th.Effort
	}
	if th.BudgetTokens != nil {
		return fmt.Sprintf("think_%d", *th.BudgetTokens)
	}
	return "think"
}

// Key returns a stable identifier for the target within a suite.
func (t Target) Key() string {
	return t.Provider + "/" + t.Model + "/" + t.ThinkingMode()
}
