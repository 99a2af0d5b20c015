package models

import "encoding/json"

// Parsed answer encoding. The verdict values are part of the on-disk format.
const (
	AnswerAffirmative = 0 // YES / CONTRADICTION / UNSAT
	AnswerNegative    = 1 // NO / SATISFIABLE / SAT
	AnswerUnclear     = 2
)

// ResultRow is the minimal append-only record written to results.jsonl.
// ParsedAnswer is nil only for OpenAI submit-only rows that are still
// awaiting collection.
type ResultRow struct {
	ID           int64   `json:"id"`
	Meta         Meta    `json:"meta"`
	Provider     string  `json:"provider"`
	Model        string  `json:"model"`
	ParsedAnswer *int    `json:"parsed_answer"`
	Correct      *bool   `json:"correct"`
	Error        *string `json:"error"`

	// Submit-only flow fields.
	OpenAIResponseID     string `json:"openai_response_id,omitempty"`
	OpenAIResponseStatus string `json:"openai_response_status,omitempty"`
	TS                   string `json:"ts,omitempty"`
	SubmitTS             string `json:"submit_ts,omitempty"`
	InvocationID         string `json:"invocation_id,omitempty"`
}

// Pending reports whether the row is a submit-only placeholder that a
// collector has not yet resolved into a terminal row.
func (r ResultRow) Pending() bool {
	return r.ParsedAnswer == nil && r.OpenAIResponseID != ""
}

// ProvenanceRow is the extended record written to results.provenance.jsonl.
type ProvenanceRow struct {
	ResultRow

	PromptTemplate string          `json:"prompt_template"`
	Representation string          `json:"representation"`
	AnswerFormat   string          `json:"answer_format"`
	Prompt         string          `json:"prompt,omitempty"`
	CompletionText string          `json:"completion_text"`
	ThinkingText   string          `json:"thinking_text,omitempty"`
	FinishReason   string          `json:"finish_reason"`
	Usage          *Usage          `json:"usage,omitempty"`
	RawResponse    json.RawMessage `json:"raw_response,omitempty"`
	TimingMs       int64           `json:"timing_ms"`
	Attempts       int             `json:"attempts"`
}

// Stats aggregates one target's results. All fields grow monotonically
// within a run.
type Stats struct {
	Total           int64 `json:"total"`
	Answered        int64 `json:"answered"`
	Correct         int64 `json:"correct"`
	Unclear         int64 `json:"unclear"`
	Errors          int64 `json:"errors"`
	InputTokens     int64 `json:"input_tokens"`
	OutputTokens    int64 `json:"output_tokens"`
	ReasoningTokens int64 `json:"reasoning_tokens"`

	CacheCreationInputTokens int64 `json:"cache_creation_input_tokens"`
	CacheReadInputTokens     int64 `json:"cache_read_input_tokens"`

	CostInputUSD  float64 `json:"cost_input_usd"`
	CostOutputUSD float64 `json:"cost_output_usd"`
	CostTotalUSD  float64 `json:"cost_total_usd"`
}

// Accuracy returns correct/answered, or zero when nothing was answered.
func (s Stats) Accuracy() float64 {
	if s.Answered == 0 {
		return 0
	}
	return float64(s.Correct) / float64(s.Answered)
}

// Summary is the per-target aggregate rewritten into results.summary.json.
type Summary struct {
	Suite        string   `json:"suite"`
	Run          string   `json:"run"`
	Provider     string   `json:"provider"`
	Model        string   `json:"model"`
	ThinkingMode string   `json:"thinking_mode"`
	Stats        Stats    `json:"stats"`
	Accuracy     float64  `json:"accuracy"`
	PricingRate  *Rate    `json:"pricing_rate,omitempty"`
}
