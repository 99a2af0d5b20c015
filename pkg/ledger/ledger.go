package ledger

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/satbench-ai/satbench/pkg/models"
)

// Ledger file names within a target directory.
const (
	ResultsFile    = "results.jsonl"
	ProvenanceFile = "results.provenance.jsonl"
	SummaryFile    = "results.summary.json"
)

// PathFor expands the output pattern for one target. Tokens: ${name},
// ${run}, ${provider}, ${model}, ${thinking_mode}.
func PathFor(pattern, suite, run string, target models.Target) string {
	r := strings.NewReplacer(
		"${name}", suite,
		"${run}", run,
		"${provider}", target.Provider,
		"${model}", target.Model,
		"${thinking_mode}", target.ThinkingMode(),
	)
	return r.Replace(pattern)
}

// Ledger owns the three files of one target path. Appends open the file per
// write and emit a single newline-terminated JSON object, so a crash can
// lose at most the row being written. Earlier rows are never edited.
type Ledger struct {
	dir string
}

// Open ensures the target directory exists and returns its ledger.
func Open(dir string) (*Ledger, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create ledger dir: %w", err)
	}
	return &Ledger{dir: dir}, nil
}

// Dir returns the target directory.
func (l *Ledger) Dir() string { return l.dir }

// AppendResult appends one attempt to results.jsonl.
func (l *Ledger) AppendResult(row models.ResultRow) error {
	return appendJSON(filepath.Join(l.dir, ResultsFile), row)
}

// AppendProvenance appends one extended attempt to results.provenance.jsonl.
func (l *Ledger) AppendProvenance(row models.ProvenanceRow) error {
	return appendJSON(filepath.Join(l.dir, ProvenanceFile), row)
}

// WriteSummary rewrites results.summary.json with the current snapshot.
func (l *Ledger) WriteSummary(s models.Summary) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}
	path := filepath.Join(l.dir, SummaryFile)
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	return nil
}

func appendJSON(path string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal row: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}
	defer f.Close()
	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("append %s: %w", filepath.Base(path), err)
	}
	return nil
}

// LoadLatest folds results.jsonl into the latest-per-id view. A missing
// file yields an empty view; malformed lines are skipped.
func (l *Ledger) LoadLatest() (map[int64]models.ResultRow, error) {
	latest := make(map[int64]models.ResultRow)

	f, err := os.Open(filepath.Join(l.dir, ResultsFile))
	if err != nil {
		if os.IsNotExist(err) {
			return latest, nil
		}
		return nil, fmt.Errorf("open results: %w", err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 1<<16), 1<<24)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var row models.ResultRow
		if err := json.Unmarshal(line, &row); err != nil {
			continue
		}
		latest[row.ID] = row
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan results: %w", err)
	}
	return latest, nil
}

// ResumeOptions configures which finished rows are dispatched again.
type ResumeOptions struct {
	RerunErrors  bool
	RerunUnclear bool
}

// Done reports whether the latest row for an id is final under the resume
// rules. Submit-only placeholder rows are always pending.
func Done(row models.ResultRow, opts ResumeOptions) bool {
	if row.Pending() {
		return false
	}
	if opts.RerunErrors && row.Error != nil {
		return false
	}
	if opts.RerunUnclear && row.Error == nil &&
		row.ParsedAnswer != nil && *row.ParsedAnswer == models.AnswerUnclear {
		return false
	}
	return true
}
