package models

import "testing"

func TestThinkingMode(t *testing.T) {
	zero, budget := 0, 8192
	cases := []struct {
		th   *Thinking
		want string
	}{
		{nil, "nothink"},
		{&Thinking{Effort: EffortHigh}, "think_high"},
		{&Thinking{BudgetTokens: &budget}, "think_8192"},
		{&Thinking{BudgetTokens: &zero}, "think_0"},
		{&Thinking{}, "think"},
	}
	for i, tc := range cases {
		target := Target{Provider: "p", Model: "m", Thinking: tc.th}
		if got := target.ThinkingMode(); got != tc.want {
			t.Errorf("case %d: mode = %q, want %q", i, got, tc.want)
		}
	}
}

func TestTargetKey(t *testing.T) {
	target := Target{Provider: "anthropic", Model: "claude-sonnet-4-5", Thinking: &Thinking{Effort: EffortLow}}
	if got := target.Key(); got != "anthropic/claude-sonnet-4-5/think_low" {
		t.Errorf("key = %q", got)
	}
}

func TestThinkingValidate(t *testing.T) {
	budget := 1024
	if err := (*Thinking)(nil).Validate(); err != nil {
		t.Errorf("nil thinking: %v", err)
	}
	if err := (&Thinking{Effort: EffortMedium}).Validate(); err != nil {
		t.Errorf("effort only: %v", err)
	}
	if err := (&Thinking{BudgetTokens: &budget}).Validate(); err != nil {
		t.Errorf("budget only: %v", err)
	}
	if err := (&Thinking{Effort: EffortLow, BudgetTokens: &budget}).Validate(); err == nil {
		t.Error("effort and budget together should fail")
	}
	if err := (&Thinking{Effort: "maximal"}).Validate(); err == nil {
		t.Error("unknown effort should fail")
	}
	neg := -1
	if err := (&Thinking{BudgetTokens: &neg}).Validate(); err == nil {
		t.Error("negative budget should fail")
	}
}

func TestStatsAccuracy(t *testing.T) {
	s := Stats{Answered: 4, Correct: 3}
	if got := s.Accuracy(); got != 0.75 {
		t.Errorf("accuracy = %v", got)
	}
	if got := (Stats{}).Accuracy(); got != 0 {
		t.Errorf("empty accuracy = %v", got)
	}
}

func TestResultRowPending(t *testing.T) {
	verdict := AnswerUnclear
	if (ResultRow{ParsedAnswer: &verdict, OpenAIResponseID: "resp_1"}).Pending() {
		t.Error("parsed row is never pending")
	}
	if !(ResultRow{OpenAIResponseID: "resp_1"}).Pending() {
		t.Error("unparsed row with a response id is pending")
	}
	if (ResultRow{}).Pending() {
		t.Error("empty row is not pending")
	}
}
