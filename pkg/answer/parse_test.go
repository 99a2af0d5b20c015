package answer

import (
	"testing"

	"github.com/satbench-ai/satbench/pkg/models"
)

func TestParseYesNoEarliestYesWins(t *testing.T) {
	if got := ParseYesNo("yes ... no", nil, nil); got != models.AnswerAffirmative {
		t.Errorf("expected affirmative, got %d", got)
	}
	if got := ParseYesNo("no, then later yes", nil, nil); got != models.AnswerAffirmative {
		t.Errorf("yes anywhere should win, got %d", got)
	}
}

func TestParseYesNoNegative(t *testing.T) {
	if got := ParseYesNo("No.", nil, nil); got != models.AnswerNegative {
		t.Errorf("expected negative, got %d", got)
	}
}

func TestParseYesNoUnclear(t *testing.T) {
	if got := ParseYesNo("I cannot decide this.", nil, nil); got != models.AnswerUnclear {
		t.Errorf("expected unclear, got %d", got)
	}
}

func TestParseYesNoCustomTokens(t *testing.T) {
	yes := []string{"derivable"}
	no := []string{"underivable"}
	if got := ParseYesNo("the goal is derivable", yes, no); got != models.AnswerAffirmative {
		t.Errorf("expected affirmative, got %d", got)
	}
	if got := ParseYesNo("clearly underivable", yes, no); got != models.AnswerNegative {
		t.Errorf("expected negative, got %d", got)
	}
}

func TestParseContradictionSatisfiableTailWindow(t *testing.T) {
	cases := []struct {
		text string
		want int
	}{
		{"No contradiction was found.\n\nsatisfiable", models.AnswerNegative},
		{"Therefore the formula is a CONTRADICTION.", models.AnswerAffirmative},
		{"The set of clauses is satisfiable.", models.AnswerNegative},
		{"...reasoning... the answer is false", models.AnswerAffirmative},
		{"I think it is satisfied", models.AnswerNegative},
		{"no decisive words here at all", models.AnswerUnclear},
		{"", models.AnswerUnclear},
	}
	for _, tc := range cases {
		if got := ParseContradictionSatisfiable(tc.text); got != tc.want {
			t.Errorf("parse(%q) = %d, want %d", tc.text, got, tc.want)
		}
	}
}

func TestParseContradictionSatisfiableReverseScanOrder(t *testing.T) {
	// The token nearest the end of the text decides.
	if got := ParseContradictionSatisfiable("satisfiable? no: contradiction"); got != models.AnswerAffirmative {
		t.Errorf("expected affirmative, got %d", got)
	}
	if got := ParseContradictionSatisfiable("contradiction? no: satisfiable"); got != models.AnswerNegative {
		t.Errorf("expected negative, got %d", got)
	}
}

func TestParseContradictionSatisfiableWindowLimit(t *testing.T) {
	// A decisive token more than ten tokens from the end is out of scope.
	text := "contradiction a b c d e f g h i j k"
	if got := ParseContradictionSatisfiable(text); got != models.AnswerUnclear {
		t.Errorf("expected unclear for out-of-window token, got %d", got)
	}
}

func TestTokensNormalization(t *testing.T) {
	toks := Tokens("Yes, it's TRUE!\n(probably)")
	want := []string{"yes", "it", "s", "true", "probably"}
	if len(toks) != len(want) {
		t.Fatalf("got %v, want %v", toks, want)
	}
	for i := range want {
		if toks[i] != want[i] {
			t.Errorf("token %d = %q, want %q", i, toks[i], want[i])
		}
	}
}

func TestCorrect(t *testing.T) {
	sat := 1
	unsat := 0

	if c := Correct(models.AnswerNegative, &sat); c == nil || !*c {
		t.Error("negative verdict on satisfiable row should be correct")
	}
	if c := Correct(models.AnswerAffirmative, &sat); c == nil || *c {
		t.Error("affirmative verdict on satisfiable row should be incorrect")
	}
	if c := Correct(models.AnswerAffirmative, &unsat); c == nil || !*c {
		t.Error("affirmative verdict on unsatisfiable row should be correct")
	}
	if c := Correct(models.AnswerUnclear, &sat); c != nil {
		t.Error("unclear verdict leaves correctness undefined")
	}
	if c := Correct(models.AnswerNegative, nil); c != nil {
		t.Error("nil satflag leaves correctness undefined")
	}
}

func TestValidFormat(t *testing.T) {
	if !ValidFormat(FormatYesNo) || !ValidFormat(FormatContradictionSatisfiable) {
		t.Error("known formats rejected")
	}
	if ValidFormat("contradiction_satisfiab1e") || ValidFormat("") {
		t.Error("unknown format accepted")
	}
}

func TestParseUnknownFormat(t *testing.T) {
	if _, err := Parse("free_text", "yes", nil, nil); err == nil {
		t.Error("expected error for unknown format")
	}
}
