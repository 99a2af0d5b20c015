package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/satbench-ai/satbench/pkg/models"
	"gopkg.in/yaml.v3"
)

// Dataset subsets.
const (
	SubsetHornOnly    = "hornonly"
	SubsetNonHornOnly = "nonhornonly"
	SubsetMixed       = "mixed"
)

// Prompting policy modes.
const (
	PromptingFixed        = "fixed"
	PromptingMatchFormula = "match_formula"
)

// Suite is the declarative configuration for one evaluation suite.
type Suite struct {
	Name   string `yaml:"name"`
	Task   string `yaml:"task"`
	Subset string `yaml:"subset"`

	Dataset   DatasetConfig   `yaml:"dataset"`
	Prompting PromptingConfig `yaml:"prompting"`
	Parse     ParseConfig     `yaml:"parse"`

	Targets    []models.Target `yaml:"targets"`
	TargetsRef []string        `yaml:"targets_ref"`

	OutputPattern string            `yaml:"output_pattern"`
	Resume        bool              `yaml:"resume"`
	Outputs       OutputsConfig     `yaml:"outputs"`
	Concurrency   ConcurrencyConfig `yaml:"concurrency"`

	PricingTable string `yaml:"pricing_table"`

	// Dir is the directory the suite file was loaded from. Relative paths
	// in the suite resolve against it.
	Dir string `yaml:"-"`
}

// DatasetConfig points at the JSONL problem dataset.
type DatasetConfig struct {
	Path      string `yaml:"path"`
	SkipRows  int    `yaml:"skip_rows"`
	LimitRows *int   `yaml:"limit_rows"`
}

// PromptBranch selects one representation, template, and answer format,
// plus fixed template variables merged into every rendering.
type PromptBranch struct {
	Representation string            `yaml:"representation"`
	Template       string            `yaml:"template"`
	AnswerFormat   string            `yaml:"answer_format"`
	Variables      map[string]string `yaml:"variables"`
}

// PromptingConfig is a tagged union: mode "fixed" uses the Fixed branch for
// every row, mode "match_formula" picks Horn or NonHorn by the row's horn flag.
type PromptingConfig struct {
	Mode    string        `yaml:"mode"`
	Fixed   *PromptBranch `yaml:"fixed"`
	Horn    *PromptBranch `yaml:"horn"`
	NonHorn *PromptBranch `yaml:"non_horn"`

	// Templates defines suite-local named templates, overlaying the built-ins.
	Templates map[string]string `yaml:"templates"`
}

// Branch returns the prompting branch for a row.
func (p PromptingConfig) Branch(row models.ProblemRow) (*PromptBranch, error) {
	switch p.Mode {
	case PromptingFixed:
		if p.Fixed == nil {
			return nil, fmt.Errorf("prompting: mode fixed requires a fixed branch")
		}
		return p.Fixed, nil
	case PromptingMatchFormula:
		if p.Horn == nil || p.NonHorn == nil {
			return nil, fmt.Errorf("prompting: mode match_formula requires horn and non_horn branches")
		}
		if row.IsHorn() {
			return p.Horn, nil
		}
		return p.NonHorn, nil
	default:
		return nil, fmt.Errorf("prompting: unknown mode %q", p.Mode)
	}
}

// ParseConfig overrides the decisive token sets for the yes_no family.
type ParseConfig struct {
	YesTokens []string `yaml:"yes_tokens"`
	NoTokens  []string `yaml:"no_tokens"`
}

// OutputToggle controls one ledger file.
type OutputToggle struct {
	Enabled         bool `yaml:"enabled"`
	IncludePrompt   bool `yaml:"include_prompt"`
	IncludeRaw      bool `yaml:"include_raw"`
	IncludeThinking bool `yaml:"include_thinking"`
	IncludeUsage    bool `yaml:"include_usage"`
}

// OutputsConfig toggles the ledger files and their optional fields.
type OutputsConfig struct {
	Results    OutputToggle `yaml:"results"`
	Provenance OutputToggle `yaml:"provenance"`
}

// RetryConfig bounds per-call retries. BackoffSeconds is indexed by attempt
// number and clamped to its last value.
type RetryConfig struct {
	MaxAttempts    int       `yaml:"max_attempts"`
	BackoffSeconds []float64 `yaml:"backoff_seconds"`
}

// Backoff returns the sleep before re-dispatching after the given failed
// attempt (1-based).
func (r RetryConfig) Backoff(attempt int) float64 {
	if len(r.BackoffSeconds) == 0 {
		return 0
	}
	i := attempt - 1
	if i >= len(r.BackoffSeconds) {
		i = len(r.BackoffSeconds) - 1
	}
	if i < 0 {
		i = 0
	}
	return r.BackoffSeconds[i]
}

// ConcurrencyConfig controls scheduling.
type ConcurrencyConfig struct {
	Workers        int         `yaml:"workers"`
	TargetsWorkers int         `yaml:"targets_workers"`
	Lockstep       bool        `yaml:"lockstep"`
	RateLimitPerMin *float64   `yaml:"rate_limit_per_min"`
	Retry          RetryConfig `yaml:"retry"`
}

// TargetSet is an external file of shared targets referenced by targets_ref.
type TargetSet struct {
	Name    string          `yaml:"name"`
	Targets []models.Target `yaml:"targets"`
}

// Default returns a Suite with the defaults applied before unmarshalling.
func Default() *Suite {
	return &Suite{
		Task:          "sat_decision",
		Subset:        SubsetMixed,
		OutputPattern: "runs/${name}/${run}/${provider}/${model}/${thinking_mode}",
		Resume:        true,
		Outputs: OutputsConfig{
			Results:    OutputToggle{Enabled: true},
			Provenance: OutputToggle{Enabled: true, IncludePrompt: true, IncludeUsage: true},
		},
		Concurrency: ConcurrencyConfig{
			Workers:        4,
			TargetsWorkers: 2,
			Lockstep:       true,
			Retry:          RetryConfig{MaxAttempts: 3, BackoffSeconds: []float64{1, 5, 15}},
		},
	}
}

// LoadSuite reads a suite YAML file, expands environment variables, resolves
// targets_ref files against the suite directory, and validates the result.
func LoadSuite(path string) (*Suite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read suite: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse suite: %w", err)
	}
	cfg.Dir = filepath.Dir(path)

	if len(cfg.TargetsRef) > 0 {
		inline := cfg.Targets
		cfg.Targets = nil
		for _, ref := range cfg.TargetsRef {
			set, err := LoadTargetSet(cfg.Resolve(ref))
			if err != nil {
				return nil, err
			}
			cfg.Targets = append(cfg.Targets, set.Targets...)
		}
		cfg.Targets = append(cfg.Targets, inline...)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadTargetSet reads an external target-set file.
func LoadTargetSet(path string) (*TargetSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read target set: %w", err)
	}
	var set TargetSet
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &set); err != nil {
		return nil, fmt.Errorf("parse target set: %w", err)
	}
	return &set, nil
}

// Resolve turns a suite-relative path into an absolute-ish path.
func (s *Suite) Resolve(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(s.Dir, path)
}

// Validate checks the invariants the runner depends on.
func (s *Suite) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("suite: name is required")
	}
	if s.Task != "sat_decision" {
		return fmt.Errorf("suite: unsupported task %q", s.Task)
	}
	switch s.Subset {
	case SubsetHornOnly, SubsetNonHornOnly, SubsetMixed:
	default:
		return fmt.Errorf("suite: unknown subset %q", s.Subset)
	}
	if s.Dataset.Path == "" {
		return fmt.Errorf("suite: dataset.path is required")
	}
	if len(s.Targets) == 0 {
		return fmt.Errorf("suite: no targets configured")
	}
	for i, t := range s.Targets {
		if t.Provider == "" || t.Model == "" {
			return fmt.Errorf("suite: target %d missing provider or model", i)
		}
		if err := t.Thinking.Validate(); err != nil {
			return fmt.Errorf("suite: target %s: %w", t.Key(), err)
		}
	}
	if s.Concurrency.Workers < 1 {
		return fmt.Errorf("suite: concurrency.workers must be >= 1")
	}
	if s.Concurrency.Retry.MaxAttempts < 1 {
		return fmt.Errorf("suite: retry.max_attempts must be >= 1")
	}
	return nil
}
