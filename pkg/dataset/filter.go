package dataset

import (
	"fmt"

	"github.com/satbench-ai/satbench/pkg/config"
	"github.com/satbench-ai/satbench/pkg/models"
)

// Filter decides whether a row passes. Stateful filters (limiters) carry
// their state in the closure, so a Filter value must not be reused across
// Apply calls.
type Filter func(models.ProblemRow) bool

// Apply runs the filters in order over rows, preserving stream order.
func Apply(rows []models.ProblemRow, filters ...Filter) []models.ProblemRow {
	out := make([]models.ProblemRow, 0, len(rows))
rows:
	for _, row := range rows {
		for _, f := range filters {
			if f != nil && !f(row) {
				continue rows
			}
		}
		out = append(out, row)
	}
	return out
}

// Subset keeps Horn rows, non-Horn rows, or everything.
func Subset(subset string) (Filter, error) {
	switch subset {
	case config.SubsetHornOnly:
		return func(r models.ProblemRow) bool { return r.Horn != nil && *r.Horn == 1 }, nil
	case config.SubsetNonHornOnly:
		return func(r models.ProblemRow) bool { return r.Horn != nil && *r.Horn == 0 }, nil
	case config.SubsetMixed, "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown subset %q", subset)
	}
}

// ByID keeps rows whose id is in the set. An empty set keeps everything.
func ByID(ids []int64) Filter {
	if len(ids) == 0 {
		return nil
	}
	set := make(map[int64]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return func(r models.ProblemRow) bool { return set[r.ID] }
}

// ByMaxVars keeps rows whose maxvars is in the set.
func ByMaxVars(vals []int) Filter {
	return byIntAttr(vals, func(r models.ProblemRow) *int { return r.MaxVars })
}

// ByMaxLen keeps rows whose maxlen is in the set.
func ByMaxLen(vals []int) Filter {
	return byIntAttr(vals, func(r models.ProblemRow) *int { return r.MaxLen })
}

func byIntAttr(vals []int, attr func(models.ProblemRow) *int) Filter {
	if len(vals) == 0 {
		return nil
	}
	set := make(map[int]bool, len(vals))
	for _, v := range vals {
		set[v] = true
	}
	return func(r models.ProblemRow) bool {
		v := attr(r)
		return v != nil && set[*v]
	}
}

// caseKey groups rows for the per-case limiter. Nil attributes form their
// own group.
type caseKey struct {
	maxVars, maxLen, horn int
	hasVars, hasLen, hasHorn bool
}

func keyOf(r models.ProblemRow) caseKey {
	var k caseKey
	if r.MaxVars != nil {
		k.maxVars, k.hasVars = *r.MaxVars, true
	}
	if r.MaxLen != nil {
		k.maxLen, k.hasLen = *r.MaxLen, true
	}
	if r.Horn != nil {
		k.horn, k.hasHorn = *r.Horn, true
	}
	return k
}

// PerCaseLimit yields at most n rows per (maxvars, maxlen, horn) group in
// stream order, so ordered datasets get balanced coverage. n <= 0 disables
// the limiter.
func PerCaseLimit(n int) Filter {
	if n <= 0 {
		return nil
	}
	seen := make(map[caseKey]int)
	return func(r models.ProblemRow) bool {
		k := keyOf(r)
		if seen[k] >= n {
			return false
		}
		seen[k]++
		return true
	}
}

// Limit keeps the first n rows that reach it. n <= 0 disables the limit.
func Limit(n int) Filter {
	if n <= 0 {
		return nil
	}
	kept := 0
	return func(models.ProblemRow) bool {
		if kept >= n {
			return false
		}
		kept++
		return true
	}
}
