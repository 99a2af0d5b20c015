package dataset

import (
	"testing"

	"github.com/satbench-ai/satbench/pkg/config"
	"github.com/satbench-ai/satbench/pkg/models"
)

func mkRow(id int64, maxVars, maxLen, horn int) models.ProblemRow {
	return models.ProblemRow{ID: id, MaxVars: &maxVars, MaxLen: &maxLen, Horn: &horn}
}

func ids(rows []models.ProblemRow) []int64 {
	out := make([]int64, len(rows))
	for i, r := range rows {
		out[i] = r.ID
	}
	return out
}

func sameIDs(a []int64, b ...int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestSubsetFilters(t *testing.T) {
	rows := []models.ProblemRow{
		mkRow(1, 2, 2, 1),
		mkRow(2, 2, 2, 0),
		mkRow(3, 3, 2, 1),
	}

	hornOnly, err := Subset(config.SubsetHornOnly)
	if err != nil {
		t.Fatal(err)
	}
	if got := ids(Apply(rows, hornOnly)); !sameIDs(got, 1, 3) {
		t.Errorf("horn_only = %v", got)
	}

	nonHorn, err := Subset(config.SubsetNonHornOnly)
	if err != nil {
		t.Fatal(err)
	}
	if got := ids(Apply(rows, nonHorn)); !sameIDs(got, 2) {
		t.Errorf("non_horn_only = %v", got)
	}

	mixed, err := Subset(config.SubsetMixed)
	if err != nil {
		t.Fatal(err)
	}
	if mixed != nil {
		t.Error("mixed subset should be a nil filter")
	}

	if _, err := Subset("satisfiable_only"); err == nil {
		t.Error("expected error for unknown subset")
	}
}

func TestSubsetRequiresHornFlag(t *testing.T) {
	noFlag := models.ProblemRow{ID: 5}
	hornOnly, _ := Subset(config.SubsetHornOnly)
	if got := Apply([]models.ProblemRow{noFlag}, hornOnly); len(got) != 0 {
		t.Error("rows without a horn flag must not pass horn_only")
	}
}

func TestByIDAndIntAttrs(t *testing.T) {
	rows := []models.ProblemRow{
		mkRow(1, 2, 2, 1),
		mkRow(2, 3, 2, 1),
		mkRow(3, 3, 4, 1),
	}

	if got := ids(Apply(rows, ByID([]int64{3, 1}))); !sameIDs(got, 1, 3) {
		t.Errorf("ByID = %v", got)
	}
	if ByID(nil) != nil {
		t.Error("empty id set should be a nil filter")
	}
	if got := ids(Apply(rows, ByMaxVars([]int{3}))); !sameIDs(got, 2, 3) {
		t.Errorf("ByMaxVars = %v", got)
	}
	if got := ids(Apply(rows, ByMaxLen([]int{2}))); !sameIDs(got, 1, 2) {
		t.Errorf("ByMaxLen = %v", got)
	}
}

func TestPerCaseLimit(t *testing.T) {
	rows := []models.ProblemRow{
		mkRow(1, 2, 2, 1),
		mkRow(2, 2, 2, 1),
		mkRow(3, 2, 2, 1),
		mkRow(4, 3, 2, 1),
		mkRow(5, 3, 2, 0),
	}
	got := ids(Apply(rows, PerCaseLimit(2)))
	if !sameIDs(got, 1, 2, 4, 5) {
		t.Errorf("PerCaseLimit(2) = %v", got)
	}
	if PerCaseLimit(0) != nil {
		t.Error("non-positive per-case limit should be a nil filter")
	}
}

func TestLimit(t *testing.T) {
	rows := []models.ProblemRow{mkRow(1, 2, 2, 1), mkRow(2, 2, 2, 1), mkRow(3, 2, 2, 1)}
	if got := ids(Apply(rows, Limit(2))); !sameIDs(got, 1, 2) {
		t.Errorf("Limit(2) = %v", got)
	}
	if Limit(-1) != nil {
		t.Error("non-positive limit should be a nil filter")
	}
}

func TestFilterOrderMatters(t *testing.T) {
	// Limit applied after the attribute filter counts only surviving rows.
	rows := []models.ProblemRow{
		mkRow(1, 2, 2, 1),
		mkRow(2, 3, 2, 1),
		mkRow(3, 3, 2, 1),
		mkRow(4, 3, 2, 1),
	}
	got := ids(Apply(rows, ByMaxVars([]int{3}), Limit(2)))
	if !sameIDs(got, 2, 3) {
		t.Errorf("maxvars then limit = %v", got)
	}
}

func TestSetFiltersCommute(t *testing.T) {
	rows := []models.ProblemRow{
		mkRow(1, 2, 2, 1),
		mkRow(2, 3, 2, 0),
		mkRow(3, 3, 4, 1),
		mkRow(4, 2, 4, 0),
	}
	hornOnly, _ := Subset(config.SubsetHornOnly)
	a := ids(Apply(rows, hornOnly, ByMaxVars([]int{3})))
	b := ids(Apply(rows, ByMaxVars([]int{3}), hornOnly))
	if !sameIDs(a, b...) {
		t.Errorf("set filters do not commute: %v vs %v", a, b)
	}
}
