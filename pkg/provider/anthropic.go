package provider

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/satbench-ai/satbench/pkg/models"
)

const (
	anthropicDefaultURL = "https://api.anthropic.com"
	anthropicVersion    = "2023-06-01"

	// Extended thinking requires at least this budget.
	anthropicMinBudget = 1024

	anthropicDefaultMaxTokens = 4096
)

// Anthropic calls the Anthropic messages API over plain HTTP. Reasoning is
// budget-style: effort grades are translated to token budgets and budgets
// below the documented minimum are clamped up.
type Anthropic struct {
	apiKey  string
	baseURL string
}

// NewAnthropic creates an Anthropic caller.
func NewAnthropic(apiKey, baseURL string) *Anthropic {
	if baseURL == "" {
		baseURL = anthropicDefaultURL
	}
	return &Anthropic{apiKey: apiKey, baseURL: baseURL}
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicThinking struct {
	Type         string `json:"type"`
	BudgetTokens int    `json:"budget_tokens,omitempty"`
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	Messages    []anthropicMessage `json:"messages"`
	System      string             `json:"system,omitempty"`
	Temperature *float64           `json:"temperature,omitempty"`
	Thinking    *anthropicThinking `json:"thinking,omitempty"`
}

type anthropicContent struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	Thinking string `json:"thinking,omitempty"`
}

type anthropicUsage struct {
	InputTokens              int64 `json:"input_tokens"`
	OutputTokens             int64 `json:"output_tokens"`
	CacheCreationInputTokens int64 `json:"cache_creation_input_tokens"`
	CacheReadInputTokens     int64 `json:"cache_read_input_tokens"`
}

type anthropicResponse struct {
	ID         string             `json:"id"`
	Type       string             `json:"type"`
	Content    []anthropicContent `json:"content"`
	StopReason string             `json:"stop_reason"`
	Usage      *anthropicUsage    `json:"usage"`
	Error      *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Call implements Caller.
func (a *Anthropic) Call(ctx context.Context, req Request) (*Response, error) {
	maxTokens := anthropicDefaultMaxTokens
	if req.MaxTokens != nil {
		maxTokens = *req.MaxTokens
	}
	creq := anthropicRequest{
		Model:       req.Model,
		MaxTokens:   maxTokens,
		Messages:    []anthropicMessage{{Role: "user", Content: req.Prompt}},
		System:      req.System,
		Temperature: req.Temperature,
		Thinking:    anthropicBudget(req.Thinking),
	}

	body, err := json.Marshal(creq)
	if err != nil {
		return nil, fmt.Errorf("anthropic marshal: %w", err)
	}
	headers := map[string]string{
		"x-api-key":         a.apiKey,
		"anthropic-version": anthropicVersion,
	}
	status, respBody, err := postJSON(ctx, a.baseURL+"/v1/messages", headers, body)
	if err != nil {
		return nil, fmt.Errorf("anthropic call: %w", err)
	}

	var aresp anthropicResponse
	if err := json.Unmarshal(respBody, &aresp); err != nil {
		return nil, fmt.Errorf("anthropic decode: %w", err)
	}
	if status != 200 || aresp.Type == "error" {
		msg := "unknown error"
		if aresp.Error != nil {
			msg = aresp.Error.Message
		}
		return nil, fmt.Errorf("anthropic status %d: %s", status, msg)
	}

	out := &Response{
		FinishReason: aresp.StopReason,
		Raw:          json.RawMessage(respBody),
	}
	for _, block := range aresp.Content {
		switch block.Type {
		case "text":
			out.Text += block.Text
		case "thinking":
			out.ThinkingText += block.Thinking
		}
	}
	if u := aresp.Usage; u != nil {
		out.Usage = &models.Usage{
			InputTokens:              models.Int64(u.InputTokens),
			OutputTokens:             models.Int64(u.OutputTokens),
			CacheCreationInputTokens: models.Int64(u.CacheCreationInputTokens),
			CacheReadInputTokens:     models.Int64(u.CacheReadInputTokens),
		}
	}
	return out, nil
}

// anthropicBudget maps the thinking parameter to an extended-thinking block.
// Nil or a zero budget disables thinking; sub-minimum budgets are clamped.
func anthropicBudget(th *models.Thinking) *anthropicThinking {
	if th == nil {
		return nil
	}
	budget := 8192
	switch {
	case th.BudgetTokens != nil:
		budget = *th.BudgetTokens
	case th.Effort == models.EffortLow:
		budget = anthropicMinBudget
	case th.Effort == models.EffortHigh:
		budget = 32768
	}
	if budget == 0 {
		return nil
	}
	if budget < anthropicMinBudget {
		budget = anthropicMinBudget
	}
	return &anthropicThinking{Type: "enabled", BudgetTokens: budget}
}
