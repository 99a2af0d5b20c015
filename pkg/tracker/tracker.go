package tracker

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// CallRecord is one completed provider call, recorded alongside the JSONL
// ledger so costs can be reported across suites and runs.
type CallRecord struct {
	ID              int64     `json:"id"`
	Suite           string    `json:"suite"`
	Run             string    `json:"run"`
	Provider        string    `json:"provider"`
	Model           string    `json:"model"`
	ThinkingMode    string    `json:"thinking_mode"`
	ProblemID       int64     `json:"problem_id"`
	InputTokens     int64     `json:"input_tokens"`
	OutputTokens    int64     `json:"output_tokens"`
	ReasoningTokens int64     `json:"reasoning_tokens"`
	CostUSD         float64   `json:"cost_usd"`
	CreatedAt       time.Time `json:"created_at"`
}

// CostReport aggregates calls per suite, provider, model, and thinking mode.
type CostReport struct {
	Suite        string  `json:"suite"`
	Provider     string  `json:"provider"`
	Model        string  `json:"model"`
	ThinkingMode string  `json:"thinking_mode"`
	Calls        int64   `json:"calls"`
	InputTokens  int64   `json:"input_tokens"`
	OutputTokens int64   `json:"output_tokens"`
	CostUSD      float64 `json:"cost_usd"`
}

// Tracker records and queries provider-call usage in a SQLite database.
type Tracker struct {
	db *sql.DB
}

const createCallsTable = `
CREATE TABLE IF NOT EXISTS call_records (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	suite TEXT NOT NULL,
	run TEXT NOT NULL,
	provider TEXT NOT NULL,
	model TEXT NOT NULL,
	thinking_mode TEXT NOT NULL,
	problem_id INTEGER NOT NULL,
	input_tokens INTEGER NOT NULL,
	output_tokens INTEGER NOT NULL,
	reasoning_tokens INTEGER NOT NULL,
	cost_usd REAL NOT NULL,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_calls_suite_time ON call_records(suite, created_at);
CREATE INDEX IF NOT EXISTS idx_calls_model ON call_records(provider, model);
`

// New opens the usage database and runs auto-migration.
func New(dbPath string) (*Tracker, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open usage db: %w", err)
	}
	if _, err := db.Exec(createCallsTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate usage db: %w", err)
	}
	return &Tracker{db: db}, nil
}

// Record stores one call record.
func (t *Tracker) Record(ctx context.Context, rec CallRecord) error {
	_, err := t.db.ExecContext(ctx,
		`INSERT INTO call_records
		 (suite, run, provider, model, thinking_mode, problem_id,
		  input_tokens, output_tokens, reasoning_tokens, cost_usd, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Suite, rec.Run, rec.Provider, rec.Model, rec.ThinkingMode, rec.ProblemID,
		rec.InputTokens, rec.OutputTokens, rec.ReasoningTokens, rec.CostUSD, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("record call: %w", err)
	}
	return nil
}

// Report aggregates cost since a point in time, optionally filtered by suite.
func (t *Tracker) Report(ctx context.Context, since time.Time, suite string) ([]CostReport, error) {
	query := `SELECT suite, provider, model, thinking_mode, COUNT(*),
	          SUM(input_tokens), SUM(output_tokens), SUM(cost_usd)
	          FROM call_records WHERE created_at >= ?`
	args := []any{since}
	if suite != "" {
		query += ` AND suite = ?`
		args = append(args, suite)
	}
	query += ` GROUP BY suite, provider, model, thinking_mode
	           ORDER BY suite, provider, model, thinking_mode`

	rows, err := t.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("cost report: %w", err)
	}
	defer rows.Close()

	var reports []CostReport
	for rows.Next() {
		var r CostReport
		if err := rows.Scan(&r.Suite, &r.Provider, &r.Model, &r.ThinkingMode,
			&r.Calls, &r.InputTokens, &r.OutputTokens, &r.CostUSD); err != nil {
			return nil, fmt.Errorf("scan cost report: %w", err)
		}
		reports = append(reports, r)
	}
	return reports, rows.Err()
}

// TotalSince returns the summed USD cost since a point in time.
func (t *Tracker) TotalSince(ctx context.Context, since time.Time) (float64, error) {
	var total float64
	err := t.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(cost_usd), 0) FROM call_records WHERE created_at >= ?`,
		since,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("total cost: %w", err)
	}
	return total, nil
}

// Close releases the database connection.
func (t *Tracker) Close() error {
	return t.db.Close()
}
