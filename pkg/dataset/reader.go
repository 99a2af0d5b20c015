package dataset

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/satbench-ai/satbench/pkg/models"
)

// Open reads the JSONL dataset at path. skipRows data rows are dropped after
// header handling.
func Open(path string, skipRows int) ([]models.ProblemRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()
	return Read(f, skipRows)
}

// Read parses one problem row per non-empty line. The first line is treated
// as a header and skipped when it is not JSON or is an array of column names.
// Malformed lines after the first are skipped silently; rows whose clause
// lists do not parse are skipped as well.
func Read(r io.Reader, skipRows int) ([]models.ProblemRow, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 1<<16), 1<<24)

	var rows []models.ProblemRow
	first := true
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		if first {
			first = false
			if isHeader(line) {
				continue
			}
		}
		row, err := parseRow(line)
		if err != nil {
			continue
		}
		if skipRows > 0 {
			skipRows--
			continue
		}
		rows = append(rows, row)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan dataset: %w", err)
	}
	return rows, nil
}

// isHeader reports whether the first line is a column-name header: either
// not valid JSON at all, or a JSON array whose first element is a string.
func isHeader(line []byte) bool {
	var cols []any
	if err := json.Unmarshal(line, &cols); err != nil {
		return true
	}
	if len(cols) == 0 {
		return false
	}
	_, isString := cols[0].(string)
	return isString
}

// parseRow decodes one data line:
// [id, maxvars, maxlen, mustbehorn, issatisfiable, problem, proof_or_model, horn_units]
func parseRow(line []byte) (models.ProblemRow, error) {
	dec := json.NewDecoder(bytes.NewReader(line))
	dec.UseNumber()

	var fields []any
	if err := dec.Decode(&fields); err != nil {
		return models.ProblemRow{}, fmt.Errorf("decode row: %w", err)
	}
	if len(fields) < 8 {
		return models.ProblemRow{}, fmt.Errorf("row has %d fields, want >= 8", len(fields))
	}

	id, ok := coerceInt64(fields[0])
	if !ok {
		return models.ProblemRow{}, fmt.Errorf("row id %v is not an integer", fields[0])
	}

	cnf, err := parseClauses(fields[5])
	if err != nil {
		return models.ProblemRow{}, err
	}

	return models.ProblemRow{
		ID:           id,
		MaxVars:      coerceIntPtr(fields[1]),
		MaxLen:       coerceIntPtr(fields[2]),
		Horn:         coerceIntPtr(fields[3]),
		SatFlag:      coerceIntPtr(fields[4]),
		CNF:          cnf,
		ProofOrModel: fields[6],
		HornUnits:    fields[7],
	}, nil
}

// parseClauses normalizes the problem field into ordered clauses of nonzero
// signed integer literals.
func parseClauses(v any) ([][]int, error) {
	outer, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("problem field is not a clause list")
	}
	cnf := make([][]int, 0, len(outer))
	for _, c := range outer {
		inner, ok := c.([]any)
		if !ok || len(inner) == 0 {
			return nil, fmt.Errorf("clause %v is not a non-empty literal list", c)
		}
		clause := make([]int, 0, len(inner))
		for _, l := range inner {
			lit, ok := coerceInt64(l)
			if !ok || lit == 0 {
				return nil, fmt.Errorf("literal %v is not a nonzero integer", l)
			}
			clause = append(clause, int(lit))
		}
		cnf = append(cnf, clause)
	}
	return cnf, nil
}

func coerceInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return i, true
	case float64:
		return int64(n), true
	case int:
		return int64(n), true
	default:
		return 0, false
	}
}

func coerceIntPtr(v any) *int {
	if v == nil {
		return nil
	}
	i, ok := coerceInt64(v)
	if !ok {
		return nil
	}
	out := int(i)
	return &out
}
