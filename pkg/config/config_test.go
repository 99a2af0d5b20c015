package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/satbench-ai/satbench/pkg/models"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

const minimalSuite = `
name: smoke
dataset:
  path: data/problems.jsonl
prompting:
  mode: fixed
  fixed:
    representation: cnf_compact
    template: sat_decide_v1
    answer_format: contradiction_satisfiable
targets:
  - provider: stub
    model: stub-small
`

func TestLoadSuiteDefaults(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "suite.yaml", minimalSuite)

	cfg, err := LoadSuite(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Task != "sat_decision" {
		t.Errorf("task = %q", cfg.Task)
	}
	if cfg.Subset != SubsetMixed {
		t.Errorf("subset = %q", cfg.Subset)
	}
	if !cfg.Resume {
		t.Error("resume should default to true")
	}
	if cfg.Concurrency.Workers != 4 || !cfg.Concurrency.Lockstep {
		t.Errorf("concurrency defaults = %+v", cfg.Concurrency)
	}
	if cfg.Concurrency.Retry.MaxAttempts != 3 {
		t.Errorf("retry defaults = %+v", cfg.Concurrency.Retry)
	}
	if !strings.Contains(cfg.OutputPattern, "${thinking_mode}") {
		t.Errorf("output pattern = %q", cfg.OutputPattern)
	}
	if cfg.Dir != dir {
		t.Errorf("dir = %q, want %q", cfg.Dir, dir)
	}
	if !cfg.Outputs.Provenance.IncludePrompt {
		t.Error("provenance should include prompts by default")
	}
}

func TestLoadSuiteExpandsEnv(t *testing.T) {
	t.Setenv("SB_DATASET", "/data/problems.jsonl")
	dir := t.TempDir()
	path := writeFile(t, dir, "suite.yaml", strings.Replace(
		minimalSuite, "data/problems.jsonl", "${SB_DATASET}", 1))

	cfg, err := LoadSuite(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Dataset.Path != "/data/problems.jsonl" {
		t.Errorf("dataset path = %q", cfg.Dataset.Path)
	}
}

func TestLoadSuiteTargetsRef(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "shared.yaml", `
name: shared
targets:
  - provider: openai
    model: gpt-5.1
  - provider: anthropic
    model: claude-sonnet-4-5
    thinking:
      budget_tokens: 4096
`)
	path := writeFile(t, dir, "suite.yaml", minimalSuite+`
targets_ref:
  - shared.yaml
`)

	cfg, err := LoadSuite(path)
	if err != nil {
		t.Fatal(err)
	}
	// Referenced targets come first, inline targets are appended after.
	if len(cfg.Targets) != 3 {
		t.Fatalf("got %d targets", len(cfg.Targets))
	}
	if cfg.Targets[0].Model != "gpt-5.1" || cfg.Targets[2].Provider != "stub" {
		t.Errorf("target order wrong: %+v", cfg.Targets)
	}
	if cfg.Targets[1].ThinkingMode() != "think_4096" {
		t.Errorf("thinking mode = %q", cfg.Targets[1].ThinkingMode())
	}
}

func TestLoadSuiteValidation(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{"no name", strings.Replace(minimalSuite, "name: smoke", "name: \"\"", 1)},
		{"no dataset", strings.Replace(minimalSuite, "path: data/problems.jsonl", "path: \"\"", 1)},
		{"no targets", strings.Replace(minimalSuite, "provider: stub", "provider: \"\"", 1)},
		{"bad subset", minimalSuite + "subset: easy_only\n"},
		{"bad task", minimalSuite + "task: entailment\n"},
	}
	for _, tc := range cases {
		dir := t.TempDir()
		path := writeFile(t, dir, "suite.yaml", tc.yaml)
		if _, err := LoadSuite(path); err == nil {
			t.Errorf("%s: expected validation error", tc.name)
		}
	}
}

func TestLoadSuiteMissingFile(t *testing.T) {
	if _, err := LoadSuite(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected error for missing suite file")
	}
}

func TestResolve(t *testing.T) {
	s := &Suite{Dir: "/suites/horn"}
	if got := s.Resolve("pricing.yaml"); got != filepath.Join("/suites/horn", "pricing.yaml") {
		t.Errorf("relative resolve = %q", got)
	}
	if got := s.Resolve("/abs/pricing.yaml"); got != "/abs/pricing.yaml" {
		t.Errorf("absolute resolve = %q", got)
	}
	if got := s.Resolve(""); got != "" {
		t.Errorf("empty resolve = %q", got)
	}
}

func TestBranchFixed(t *testing.T) {
	fixed := &PromptBranch{Representation: "cnf_nl"}
	p := PromptingConfig{Mode: PromptingFixed, Fixed: fixed}

	b, err := p.Branch(models.ProblemRow{})
	if err != nil {
		t.Fatal(err)
	}
	if b != fixed {
		t.Error("fixed mode should return the fixed branch")
	}

	p.Fixed = nil
	if _, err := p.Branch(models.ProblemRow{}); err == nil {
		t.Error("fixed mode without a branch should error")
	}
}

func TestBranchMatchFormula(t *testing.T) {
	horn := &PromptBranch{Representation: "horn_rules"}
	nonHorn := &PromptBranch{Representation: "cnf_compact"}
	p := PromptingConfig{Mode: PromptingMatchFormula, Horn: horn, NonHorn: nonHorn}

	one := 1
	zero := 0
	if b, err := p.Branch(models.ProblemRow{Horn: &one}); err != nil || b != horn {
		t.Errorf("horn row: branch=%v err=%v", b, err)
	}
	if b, err := p.Branch(models.ProblemRow{Horn: &zero}); err != nil || b != nonHorn {
		t.Errorf("non-horn row: branch=%v err=%v", b, err)
	}
	// Missing horn flag falls through to the non-horn branch.
	if b, err := p.Branch(models.ProblemRow{}); err != nil || b != nonHorn {
		t.Errorf("flagless row: branch=%v err=%v", b, err)
	}

	p.NonHorn = nil
	if _, err := p.Branch(models.ProblemRow{Horn: &one}); err == nil {
		t.Error("match_formula requires both branches")
	}
}

func TestRetryBackoffClamps(t *testing.T) {
	r := RetryConfig{BackoffSeconds: []float64{1, 5, 15}}
	for attempt, want := range map[int]float64{1: 1, 2: 5, 3: 15, 7: 15} {
		if got := r.Backoff(attempt); got != want {
			t.Errorf("backoff(%d) = %v, want %v", attempt, got, want)
		}
	}
	if got := (RetryConfig{}).Backoff(1); got != 0 {
		t.Errorf("empty schedule backoff = %v", got)
	}
}
