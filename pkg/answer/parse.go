package answer

import (
	"fmt"
	"strings"

	"github.com/satbench-ai/satbench/pkg/models"
)

// Answer format families.
const (
	FormatYesNo                    = "yes_no"
	FormatContradictionSatisfiable = "contradiction_satisfiable"
)

// Default decisive token sets for the yes_no family.
var (
	DefaultYesTokens = []string{"yes"}
	DefaultNoTokens  = []string{"no"}
)

// contradiction_satisfiable token mapping. Contradiction means UNSAT, which
// is the affirmative verdict for the sat_decision task.
var (
	contradictionTokens = map[string]bool{
		"contradiction": true, "contradictory": true, "false": true, "wrong": true,
	}
	satisfiableTokens = map[string]bool{
		"satisfiable": true, "true": true, "satisfied": true, "unknown": true, "uncertain": true,
	}
)

const punctuation = "\n\r\t,.:;!?()[]{}'\"`*_"

// Tokens normalizes model output: lowercase, punctuation replaced by spaces,
// split on whitespace.
func Tokens(text string) []string {
	lower := strings.ToLower(text)
	mapped := strings.Map(func(r rune) rune {
		if strings.ContainsRune(punctuation, r) {
			return ' '
		}
		return r
	}, lower)
	return strings.Fields(mapped)
}

// ValidFormat reports whether format names a known answer format.
func ValidFormat(format string) bool {
	switch format {
	case FormatYesNo, FormatContradictionSatisfiable:
		return true
	}
	return false
}

// Parse maps model output to a verdict under the named answer format.
func Parse(format, text string, yes, no []string) (int, error) {
	switch format {
	case FormatYesNo:
		return ParseYesNo(text, yes, no), nil
	case FormatContradictionSatisfiable:
		return ParseContradictionSatisfiable(text), nil
	default:
		return models.AnswerUnclear, fmt.Errorf("unknown answer format %q", format)
	}
}

// ParseYesNo scans tokens left to right. Any yes-token makes the verdict
// affirmative; otherwise any no-token makes it negative; else unclear.
// Empty token sets fall back to the defaults.
func ParseYesNo(text string, yes, no []string) int {
	if len(yes) == 0 {
		yes = DefaultYesTokens
	}
	if len(no) == 0 {
		no = DefaultNoTokens
	}
	yesSet := toSet(yes)
	noSet := toSet(no)

	sawNo := false
	for _, tok := range Tokens(text) {
		if yesSet[tok] {
			return models.AnswerAffirmative
		}
		if noSet[tok] {
			sawNo = true
		}
	}
	if sawNo {
		return models.AnswerNegative
	}
	return models.AnswerUnclear
}

// ParseContradictionSatisfiable inspects the last ten tokens in reverse and
// returns the first decisive match: contradiction-tokens mean affirmative
// (UNSAT), satisfiable-tokens mean negative (SAT). A satisfiable hit is only
// tentative against a contradiction-token appearing later in the text, but
// later tokens are visited first in the reverse scan, so the first decisive
// match is final. Without a decisive token in the window, the last token
// alone is consulted; otherwise the verdict is unclear.
func ParseContradictionSatisfiable(text string) int {
	toks := Tokens(text)
	n := len(toks)
	if n == 0 {
		return models.AnswerUnclear
	}

	lo := n - 10
	if lo < 0 {
		lo = 0
	}
	for i := n - 1; i >= lo; i-- {
		if v, ok := decisive(toks[i]); ok {
			return v
		}
	}

	if v, ok := decisive(toks[n-1]); ok {
		return v
	}
	return models.AnswerUnclear
}

func decisive(tok string) (int, bool) {
	if contradictionTokens[tok] {
		return models.AnswerAffirmative, true
	}
	if satisfiableTokens[tok] {
		return models.AnswerNegative, true
	}
	return 0, false
}

// Correct applies the correctness rule: a decisive verdict is correct iff
// it is negative (satisfiable) exactly when the row is satisfiable. A nil
// satflag leaves correctness undefined.
func Correct(verdict int, satflag *int) *bool {
	if satflag == nil || verdict == models.AnswerUnclear {
		return nil
	}
	ok := (verdict == models.AnswerNegative) == (*satflag == 1)
	return &ok
}

func toSet(tokens []string) map[string]bool {
	set := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		set[strings.ToLower(t)] = true
	}
	return set
}
