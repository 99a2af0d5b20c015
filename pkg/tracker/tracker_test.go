package tracker

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func newTestTracker(t *testing.T) *Tracker {
	t.Helper()
	tr, err := New(filepath.Join(t.TempDir(), "usage.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = tr.Close() })
	return tr
}

func record(suite, provider, model, mode string, in, out int64, cost float64, at time.Time) CallRecord {
	return CallRecord{
		Suite: suite, Run: "r1", Provider: provider, Model: model,
		ThinkingMode: mode, ProblemID: 1,
		InputTokens: in, OutputTokens: out, CostUSD: cost, CreatedAt: at,
	}
}

func TestRecordAndReport(t *testing.T) {
	tr := newTestTracker(t)
	ctx := context.Background()
	now := time.Now().UTC()

	recs := []CallRecord{
		record("horn", "openai", "gpt-5.1", "nothink", 100, 50, 0.001, now),
		record("horn", "openai", "gpt-5.1", "nothink", 200, 80, 0.002, now),
		record("horn", "anthropic", "claude-sonnet-4-5", "think_8192", 300, 120, 0.01, now),
		record("mixed", "openai", "gpt-5.1", "nothink", 50, 20, 0.0005, now),
	}
	for _, r := range recs {
		if err := tr.Record(ctx, r); err != nil {
			t.Fatal(err)
		}
	}

	reports, err := tr.Report(ctx, now.Add(-time.Hour), "")
	if err != nil {
		t.Fatal(err)
	}
	if len(reports) != 3 {
		t.Fatalf("expected 3 groups, got %d: %+v", len(reports), reports)
	}

	var horn *CostReport
	for i := range reports {
		if reports[i].Suite == "horn" && reports[i].Provider == "openai" {
			horn = &reports[i]
		}
	}
	if horn == nil {
		t.Fatal("missing horn/openai group")
	}
	if horn.Calls != 2 || horn.InputTokens != 300 || horn.OutputTokens != 130 {
		t.Errorf("aggregate = %+v", horn)
	}
	if diff := horn.CostUSD - 0.003; diff > 1e-12 || diff < -1e-12 {
		t.Errorf("cost = %v", horn.CostUSD)
	}
}

func TestReportSuiteFilter(t *testing.T) {
	tr := newTestTracker(t)
	ctx := context.Background()
	now := time.Now().UTC()

	if err := tr.Record(ctx, record("horn", "openai", "gpt-5.1", "nothink", 1, 1, 0.1, now)); err != nil {
		t.Fatal(err)
	}
	if err := tr.Record(ctx, record("mixed", "openai", "gpt-5.1", "nothink", 1, 1, 0.2, now)); err != nil {
		t.Fatal(err)
	}

	reports, err := tr.Report(ctx, now.Add(-time.Hour), "horn")
	if err != nil {
		t.Fatal(err)
	}
	if len(reports) != 1 || reports[0].Suite != "horn" {
		t.Errorf("filtered report = %+v", reports)
	}
}

func TestReportSinceCutoff(t *testing.T) {
	tr := newTestTracker(t)
	ctx := context.Background()
	now := time.Now().UTC()

	if err := tr.Record(ctx, record("horn", "openai", "gpt-5.1", "nothink", 1, 1, 0.1, now.Add(-48*time.Hour))); err != nil {
		t.Fatal(err)
	}
	if err := tr.Record(ctx, record("horn", "openai", "gpt-5.1", "nothink", 1, 1, 0.2, now)); err != nil {
		t.Fatal(err)
	}

	total, err := tr.TotalSince(ctx, now.Add(-time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if diff := total - 0.2; diff > 1e-12 || diff < -1e-12 {
		t.Errorf("total since cutoff = %v", total)
	}
}

func TestMigrationIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "usage.db")
	tr, err := New(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := tr.Record(context.Background(), record("horn", "stub", "m", "nothink", 1, 1, 0, time.Now().UTC())); err != nil {
		t.Fatal(err)
	}
	if err := tr.Close(); err != nil {
		t.Fatal(err)
	}

	tr2, err := New(path)
	if err != nil {
		t.Fatal(err)
	}
	defer tr2.Close()
	total, err := tr2.TotalSince(context.Background(), time.Time{})
	if err != nil {
		t.Fatal(err)
	}
	_ = total // data survived reopen and re-migration
	reports, err := tr2.Report(context.Background(), time.Time{}, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(reports) != 1 || reports[0].Calls != 1 {
		t.Errorf("reopened report = %+v", reports)
	}
}
