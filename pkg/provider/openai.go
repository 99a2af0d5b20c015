package provider

import (
	"context"
	"encoding/json"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
	"github.com/satbench-ai/satbench/pkg/models"
)

// OpenAI calls the OpenAI chat completions API. Reasoning is effort-style:
// the thinking effort grade is forwarded as reasoning_effort, and a token
// budget degrades to the nearest grade.
type OpenAI struct {
	client *openai.Client
}

// NewOpenAI creates an OpenAI caller. baseURL overrides the default endpoint
// when non-empty.
func NewOpenAI(apiKey, baseURL string) *OpenAI {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAI{client: openai.NewClientWithConfig(cfg)}
}

// Call implements Caller.
func (o *OpenAI) Call(ctx context.Context, req Request) (*Response, error) {
	creq := openai.ChatCompletionRequest{
		Model: req.Model,
	}
	if req.System != "" {
		creq.Messages = append(creq.Messages, openai.ChatCompletionMessage{
			Role: openai.ChatMessageRoleSystem, Content: req.System,
		})
	}
	creq.Messages = append(creq.Messages, openai.ChatCompletionMessage{
		Role: openai.ChatMessageRoleUser, Content: req.Prompt,
	})
	if req.MaxTokens != nil {
		creq.MaxCompletionTokens = *req.MaxTokens
	}
	if req.Temperature != nil {
		creq.Temperature = float32(*req.Temperature)
	}
	if req.Seed != nil {
		creq.Seed = req.Seed
	}
	if effort := openaiEffort(req.Thinking); effort != "" {
		creq.ReasoningEffort = effort
	}

	resp, err := o.client.CreateChatCompletion(ctx, creq)
	if err != nil {
		return nil, fmt.Errorf("openai call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai returned no choices")
	}

	raw, _ := json.Marshal(resp)
	return &Response{
		Text:         resp.Choices[0].Message.Content,
		FinishReason: string(resp.Choices[0].FinishReason),
		Usage:        openaiUsage(resp.Usage),
		Raw:          raw,
	}, nil
}

// openaiEffort maps the thinking parameter to a reasoning_effort value.
// Absence means minimal effort, which is expressed by omitting the field.
func openaiEffort(th *models.Thinking) string {
	if th == nil {
		return ""
	}
	if th.Effort != "" {
		return th.Effort
	}
	if th.BudgetTokens != nil {
		switch b := *th.BudgetTokens; {
		case b == 0:
			return ""
		case b <= 4096:
			return models.EffortLow
		case b <= 16384:
			return models.EffortMedium
		default:
			return models.EffortHigh
		}
	}
	return models.EffortMedium
}

// openaiUsage normalizes OpenAI usage fields. OpenAI bills reasoning inside
// completion tokens; the detail block surfaces them separately.
func openaiUsage(u openai.Usage) *models.Usage {
	out := &models.Usage{
		InputTokens:  models.Int64(int64(u.PromptTokens)),
		OutputTokens: models.Int64(int64(u.CompletionTokens)),
	}
	if u.CompletionTokensDetails != nil && u.CompletionTokensDetails.ReasoningTokens > 0 {
		out.ReasoningTokens = models.Int64(int64(u.CompletionTokensDetails.ReasoningTokens))
	}
	if u.PromptTokensDetails != nil && u.PromptTokensDetails.CachedTokens > 0 {
		out.CacheReadInputTokens = models.Int64(int64(u.PromptTokensDetails.CachedTokens))
	}
	return out
}
