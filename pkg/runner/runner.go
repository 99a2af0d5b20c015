package runner

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/rs/xid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/satbench-ai/satbench/pkg/answer"
	"github.com/satbench-ai/satbench/pkg/config"
	"github.com/satbench-ai/satbench/pkg/ledger"
	"github.com/satbench-ai/satbench/pkg/models"
	"github.com/satbench-ai/satbench/pkg/pricing"
	"github.com/satbench-ai/satbench/pkg/prompt"
	"github.com/satbench-ai/satbench/pkg/provider"
	"github.com/satbench-ai/satbench/pkg/tracker"
)

// targetState carries everything one target accumulates during a run. Its
// stats and resume view are mutated only between dispatches, never by two
// goroutines at once.
type targetState struct {
	target models.Target
	led    *ledger.Ledger
	latest map[int64]models.ResultRow
	stats  models.Stats
	rate   *models.Rate
}

// Runner executes a suite against its targets.
type Runner struct {
	cfg     *config.Suite
	run     string
	caller  provider.Caller
	pricing *pricing.Table
	usageDB *tracker.Tracker
	resume  ledger.ResumeOptions

	invocationID string
	targets      []*targetState
	limiters     map[string]*rate.Limiter
}

// New prepares a Runner: one ledger per target, resume views loaded when the
// suite enables resume, pricing rates resolved, and per-provider token
// buckets built when rate limiting is configured. usageDB may be nil.
func New(cfg *config.Suite, run string, caller provider.Caller, table *pricing.Table, usageDB *tracker.Tracker, resume ledger.ResumeOptions) (*Runner, error) {
	if err := validatePrompting(&cfg.Prompting); err != nil {
		return nil, err
	}

	r := &Runner{
		cfg:          cfg,
		run:          run,
		caller:       caller,
		pricing:      table,
		usageDB:      usageDB,
		resume:       resume,
		invocationID: xid.New().String(),
		limiters:     make(map[string]*rate.Limiter),
	}

	for _, t := range cfg.Targets {
		dir := ledger.PathFor(cfg.OutputPattern, cfg.Name, run, t)
		led, err := ledger.Open(dir)
		if err != nil {
			return nil, err
		}
		ts := &targetState{
			target: t,
			led:    led,
			latest: map[int64]models.ResultRow{},
			rate:   table.Lookup(t.Provider, t.Model),
		}
		if cfg.Resume {
			latest, err := led.LoadLatest()
			if err != nil {
				return nil, fmt.Errorf("resume %s: %w", t.Key(), err)
			}
			ts.latest = latest
		}
		r.targets = append(r.targets, ts)

		if per := cfg.Concurrency.RateLimitPerMin; per != nil && *per > 0 {
			if _, ok := r.limiters[t.Provider]; !ok {
				burst := cfg.Concurrency.Workers
				if burst < 1 {
					burst = 1
				}
				r.limiters[t.Provider] = rate.NewLimiter(rate.Limit(*per/60.0), burst)
			}
		}
	}
	return r, nil
}

// validatePrompting rejects unknown representations, templates, and answer
// formats up front, so a misconfigured suite fails before any provider call.
func validatePrompting(p *config.PromptingConfig) error {
	var branches map[string]*config.PromptBranch
	switch p.Mode {
	case config.PromptingFixed:
		branches = map[string]*config.PromptBranch{"fixed": p.Fixed}
	case config.PromptingMatchFormula:
		branches = map[string]*config.PromptBranch{"horn": p.Horn, "non_horn": p.NonHorn}
	default:
		return fmt.Errorf("prompting: unknown mode %q", p.Mode)
	}
	for name, b := range branches {
		if b == nil {
			return fmt.Errorf("prompting: mode %s requires a %s branch", p.Mode, name)
		}
		if !prompt.ValidRepresentation(b.Representation) {
			return fmt.Errorf("prompting: %s branch: unknown representation %q", name, b.Representation)
		}
		if _, err := prompt.Lookup(b.Template, p.Templates); err != nil {
			return fmt.Errorf("prompting: %s branch: %w", name, err)
		}
		if !answer.ValidFormat(b.AnswerFormat) {
			return fmt.Errorf("prompting: %s branch: unknown answer format %q", name, b.AnswerFormat)
		}
	}
	return nil
}

// Execute runs every row against every pending target and writes summaries.
// Lockstep mode finishes all dispatches for a row before starting the next;
// otherwise targets run independent sequential loops.
func (r *Runner) Execute(ctx context.Context, rows []models.ProblemRow) error {
	var err error
	if r.cfg.Concurrency.Lockstep {
		err = r.executeLockstep(ctx, rows)
	} else {
		err = r.executeIndependent(ctx, rows)
	}
	if serr := r.writeSummaries(); serr != nil && err == nil {
		err = serr
	}
	return err
}

func (r *Runner) executeLockstep(ctx context.Context, rows []models.ProblemRow) error {
	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return err
		}

		pending := r.pendingTargets(row.ID)
		if len(pending) == 0 {
			continue
		}

		branch, err := r.cfg.Prompting.Branch(row)
		if err != nil {
			return err
		}
		text, err := prompt.Render(row, branch, r.cfg.Prompting.Templates)
		if err != nil {
			return fmt.Errorf("render row %d: %w", row.ID, err)
		}

		workers := r.cfg.Concurrency.Workers
		if workers > len(pending) {
			workers = len(pending)
		}

		outcomes := make([]outcome, len(pending))
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(workers)
		for i, ts := range pending {
			i, ts := i, ts
			g.Go(func() error {
				outcomes[i] = r.runOne(gctx, row, ts, branch, text)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		canceled := false
		for i, ts := range pending {
			if outcomes[i].canceled {
				canceled = true
				continue
			}
			r.apply(ctx, ts, outcomes[i])
		}
		if canceled {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *Runner) executeIndependent(ctx context.Context, rows []models.ProblemRow) error {
	workers := r.cfg.Concurrency.TargetsWorkers
	if workers < 1 {
		workers = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, ts := range r.targets {
		ts := ts
		g.Go(func() error {
			for _, row := range rows {
				if err := gctx.Err(); err != nil {
					return err
				}
				if latest, ok := ts.latest[row.ID]; ok && ledger.Done(latest, r.resume) {
					continue
				}
				branch, err := r.cfg.Prompting.Branch(row)
				if err != nil {
					return err
				}
				text, err := prompt.Render(row, branch, r.cfg.Prompting.Templates)
				if err != nil {
					return fmt.Errorf("render row %d: %w", row.ID, err)
				}
				o := r.runOne(gctx, row, ts, branch, text)
				if o.canceled {
					if err := gctx.Err(); err != nil {
						return err
					}
					continue
				}
				r.apply(gctx, ts, o)
			}
			return nil
		})
	}
	return g.Wait()
}

// pendingTargets returns the targets whose latest row for id is not final.
func (r *Runner) pendingTargets(id int64) []*targetState {
	var pending []*targetState
	for _, ts := range r.targets {
		if latest, ok := ts.latest[id]; ok && ledger.Done(latest, r.resume) {
			continue
		}
		pending = append(pending, ts)
	}
	return pending
}

// outcome is what a worker hands back to the scheduler for stats accounting.
// A cancelled outcome carries nothing: the attempt was never persisted and
// must not be folded into stats, so resume completes the row next run.
type outcome struct {
	row      models.ResultRow
	usage    *models.Usage
	cost     pricing.Cost
	errored  bool
	unclear  bool
	correct  bool
	canceled bool
}

// runOne performs the call-retry-parse-persist cycle for one (row, target).
// Provider errors are retried on the configured schedule; after exhaustion
// the attempt is persisted with the error message and an unclear verdict.
// A cancelled call persists nothing, leaving the row pending for resume.
func (r *Runner) runOne(ctx context.Context, row models.ProblemRow, ts *targetState, branch *config.PromptBranch, promptText string) outcome {
	start := time.Now()

	req := provider.Request{
		Provider:    ts.target.Provider,
		Model:       ts.target.Model,
		Prompt:      promptText,
		MaxTokens:   ts.target.MaxTokens,
		Temperature: ts.target.Temperature,
		Seed:        ts.target.Seed,
		Thinking:    ts.target.Thinking,
	}

	resp, attempts, callErr := r.callWithRetry(ctx, ts, req)
	if callErr != nil && (errors.Is(callErr, context.Canceled) || errors.Is(callErr, context.DeadlineExceeded)) {
		return outcome{canceled: true}
	}

	result := models.ResultRow{
		ID:           row.ID,
		Meta:         row.Meta(),
		Provider:     ts.target.Provider,
		Model:        ts.target.Model,
		TS:           time.Now().UTC().Format(time.RFC3339),
		InvocationID: r.invocationID,
	}
	prov := models.ProvenanceRow{
		PromptTemplate: branch.Template,
		Representation: branch.Representation,
		AnswerFormat:   branch.AnswerFormat,
		TimingMs:       time.Since(start).Milliseconds(),
		Attempts:       attempts,
	}

	o := outcome{}
	if callErr != nil {
		msg := callErr.Error()
		result.Error = &msg
		verdict := models.AnswerUnclear
		result.ParsedAnswer = &verdict
		o.errored = true
	} else {
		verdict, perr := answer.Parse(branch.AnswerFormat, resp.Text, r.cfg.Parse.YesTokens, r.cfg.Parse.NoTokens)
		if perr != nil {
			msg := perr.Error()
			result.Error = &msg
			o.errored = true
		}
		result.ParsedAnswer = &verdict
		result.Correct = answer.Correct(verdict, row.SatFlag)
		o.unclear = !o.errored && verdict == models.AnswerUnclear
		o.correct = result.Correct != nil && *result.Correct

		prov.CompletionText = resp.Text
		prov.FinishReason = resp.FinishReason
		o.usage = resp.Usage
		if r.cfg.Outputs.Provenance.IncludeThinking {
			prov.ThinkingText = resp.ThinkingText
		}
		if r.cfg.Outputs.Provenance.IncludeRaw {
			prov.RawResponse = resp.Raw
		}
	}
	prov.ResultRow = result
	if r.cfg.Outputs.Provenance.IncludePrompt {
		prov.Prompt = promptText
	}
	if r.cfg.Outputs.Provenance.IncludeUsage {
		prov.Usage = o.usage
	}

	prov.TimingMs = time.Since(start).Milliseconds()
	o.row = result
	o.cost = pricing.Compute(o.usage, ts.rate)

	if r.cfg.Outputs.Results.Enabled {
		if err := ts.led.AppendResult(result); err != nil {
			log.Printf("append result %s id %d: %v", ts.target.Key(), row.ID, err)
		}
	}
	if r.cfg.Outputs.Provenance.Enabled {
		if err := ts.led.AppendProvenance(prov); err != nil {
			log.Printf("append provenance %s id %d: %v", ts.target.Key(), row.ID, err)
		}
	}
	return o
}

// callWithRetry waits on the provider's token bucket, then retries transport
// errors on the suite's backoff schedule. Terminal provider failures and
// unknown providers are not retried.
func (r *Runner) callWithRetry(ctx context.Context, ts *targetState, req provider.Request) (*provider.Response, int, error) {
	retry := r.cfg.Concurrency.Retry

	var lastErr error
	for attempt := 1; attempt <= retry.MaxAttempts; attempt++ {
		if lim := r.limiters[ts.target.Provider]; lim != nil {
			if err := lim.Wait(ctx); err != nil {
				return nil, attempt, err
			}
		}

		resp, err := r.caller.Call(ctx, req)
		if err == nil {
			return resp, attempt, nil
		}
		lastErr = err

		var terminal *provider.TerminalError
		if errors.Is(err, provider.ErrNotSupported) || errors.As(err, &terminal) || ctx.Err() != nil {
			return nil, attempt, err
		}
		if attempt == retry.MaxAttempts {
			break
		}

		backoff := time.Duration(retry.Backoff(attempt) * float64(time.Second))
		log.Printf("call %s attempt %d failed: %v (retrying in %s)", ts.target.Key(), attempt, err, backoff)
		select {
		case <-ctx.Done():
			return nil, attempt, ctx.Err()
		case <-time.After(backoff):
		}
	}
	return nil, retry.MaxAttempts, lastErr
}

// apply folds a completed outcome into the target's stats, resume view, and
// the usage database. Only the scheduler calls it.
func (r *Runner) apply(ctx context.Context, ts *targetState, o outcome) {
	ts.latest[o.row.ID] = o.row

	s := &ts.stats
	s.Total++
	switch {
	case o.errored:
		s.Errors++
	case o.unclear:
		s.Unclear++
	default:
		s.Answered++
		if o.correct {
			s.Correct++
		}
	}
	s.InputTokens += o.usage.Input()
	s.OutputTokens += o.usage.Output()
	s.ReasoningTokens += o.usage.Reasoning()
	s.CacheCreationInputTokens += o.usage.CacheCreation()
	s.CacheReadInputTokens += o.usage.CacheRead()
	s.CostInputUSD += o.cost.InputUSD
	s.CostOutputUSD += o.cost.OutputUSD
	s.CostTotalUSD += o.cost.TotalUSD

	if r.usageDB != nil {
		rec := tracker.CallRecord{
			Suite:        r.cfg.Name,
			Run:          r.run,
			Provider:     ts.target.Provider,
			Model:        ts.target.Model,
			ThinkingMode: ts.target.ThinkingMode(),
			ProblemID:    o.row.ID,
			InputTokens:  o.usage.Input(),
			OutputTokens: o.usage.Output(),
			ReasoningTokens: o.usage.Reasoning(),
			CostUSD:      o.cost.TotalUSD,
			CreatedAt:    time.Now().UTC(),
		}
		if err := r.usageDB.Record(ctx, rec); err != nil {
			log.Printf("record usage %s id %d: %v", ts.target.Key(), o.row.ID, err)
		}
	}
}

// writeSummaries rewrites each target's summary from its current stats.
func (r *Runner) writeSummaries() error {
	var firstErr error
	for _, ts := range r.targets {
		sum := models.Summary{
			Suite:        r.cfg.Name,
			Run:          r.run,
			Provider:     ts.target.Provider,
			Model:        ts.target.Model,
			ThinkingMode: ts.target.ThinkingMode(),
			Stats:        ts.stats,
			Accuracy:     ts.stats.Accuracy(),
			PricingRate:  ts.rate,
		}
		if err := ts.led.WriteSummary(sum); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Stats returns the current stats for every target, keyed by target key.
func (r *Runner) Stats() map[string]models.Stats {
	out := make(map[string]models.Stats, len(r.targets))
	for _, ts := range r.targets {
		out[ts.target.Key()] = ts.stats
	}
	return out
}
