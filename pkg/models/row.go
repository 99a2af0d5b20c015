package models

// ProblemRow is an immutable view of one dataset record. Rows are produced
// by the dataset reader and never mutated afterwards.
type ProblemRow struct {
	ID      int64   `json:"id"`
	MaxVars *int    `json:"maxvars"`
	MaxLen  *int    `json:"maxlen"`
	Horn    *int    `json:"horn"`
	SatFlag *int    `json:"satflag"`
	CNF     [][]int `json:"cnf"`

	// ProofOrModel and HornUnits are carried through opaquely.
	ProofOrModel any `json:"proof_or_model,omitempty"`
	HornUnits    any `json:"horn_units,omitempty"`
}

// Meta is the subset of row attributes echoed into every result row.
type Meta struct {
	MaxVars *int `json:"maxvars"`
	MaxLen  *int `json:"maxlen"`
	Horn    *int `json:"horn"`
	SatFlag *int `json:"satflag"`
}

// Meta returns the result-row metadata for this problem.
func (r ProblemRow) Meta() Meta {
	return Meta{MaxVars: r.MaxVars, MaxLen: r.MaxLen, Horn: r.Horn, SatFlag: r.SatFlag}
}

// IsHorn reports whether the row is flagged as Horn. A nil flag counts as false.
func (r ProblemRow) IsHorn() bool {
	return r.Horn != nil && *r.Horn == 1
}
