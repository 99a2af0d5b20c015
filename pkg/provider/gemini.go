package provider

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/satbench-ai/satbench/pkg/models"
)

const geminiDefaultURL = "https://generativelanguage.googleapis.com"

// Gemini calls the generateContent API over plain HTTP. Reasoning is
// budget-style: a budget of 0 disables thinking where the model permits and
// -1 requests a dynamic budget, which is what effort grades without an
// explicit budget map to.
type Gemini struct {
	apiKey  string
	baseURL string
}

// NewGemini creates a Gemini caller.
func NewGemini(apiKey, baseURL string) *Gemini {
	if baseURL == "" {
		baseURL = geminiDefaultURL
	}
	return &Gemini{apiKey: apiKey, baseURL: baseURL}
}

type geminiPart struct {
	Text    string `json:"text,omitempty"`
	Thought bool   `json:"thought,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiThinkingConfig struct {
	ThinkingBudget int `json:"thinkingBudget"`
}

type geminiGenerationConfig struct {
	Temperature     *float64              `json:"temperature,omitempty"`
	MaxOutputTokens *int                  `json:"maxOutputTokens,omitempty"`
	Seed            *int                  `json:"seed,omitempty"`
	ThinkingConfig  *geminiThinkingConfig `json:"thinkingConfig,omitempty"`
}

type geminiRequest struct {
	Contents          []geminiContent         `json:"contents"`
	SystemInstruction *geminiContent          `json:"systemInstruction,omitempty"`
	GenerationConfig  *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiUsage struct {
	PromptTokenCount        int64 `json:"promptTokenCount"`
	CandidatesTokenCount    int64 `json:"candidatesTokenCount"`
	ThoughtsTokenCount      int64 `json:"thoughtsTokenCount"`
	CachedContentTokenCount int64 `json:"cachedContentTokenCount"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	UsageMetadata *geminiUsage `json:"usageMetadata"`
	Error         *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Call implements Caller.
func (g *Gemini) Call(ctx context.Context, req Request) (*Response, error) {
	greq := geminiRequest{
		Contents: []geminiContent{{Role: "user", Parts: []geminiPart{{Text: req.Prompt}}}},
		GenerationConfig: &geminiGenerationConfig{
			Temperature:     req.Temperature,
			MaxOutputTokens: req.MaxTokens,
			Seed:            req.Seed,
			ThinkingConfig:  geminiThinking(req.Thinking),
		},
	}
	if req.System != "" {
		greq.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: req.System}}}
	}

	body, err := json.Marshal(greq)
	if err != nil {
		return nil, fmt.Errorf("gemini marshal: %w", err)
	}
	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", g.baseURL, req.Model)
	headers := map[string]string{"x-goog-api-key": g.apiKey}

	status, respBody, err := postJSON(ctx, url, headers, body)
	if err != nil {
		return nil, fmt.Errorf("gemini call: %w", err)
	}

	var gresp geminiResponse
	if err := json.Unmarshal(respBody, &gresp); err != nil {
		return nil, fmt.Errorf("gemini decode: %w", err)
	}
	if status != 200 || gresp.Error != nil {
		msg := "unknown error"
		if gresp.Error != nil {
			msg = gresp.Error.Message
		}
		return nil, fmt.Errorf("gemini status %d: %s", status, msg)
	}
	if len(gresp.Candidates) == 0 {
		return nil, fmt.Errorf("gemini returned no candidates")
	}

	out := &Response{
		FinishReason: gresp.Candidates[0].FinishReason,
		Raw:          json.RawMessage(respBody),
	}
	for _, part := range gresp.Candidates[0].Content.Parts {
		if part.Thought {
			out.ThinkingText += part.Text
		} else {
			out.Text += part.Text
		}
	}
	if u := gresp.UsageMetadata; u != nil {
		out.Usage = &models.Usage{
			InputTokens:          models.Int64(u.PromptTokenCount),
			OutputTokens:         models.Int64(u.CandidatesTokenCount),
			CacheReadInputTokens: models.Int64(u.CachedContentTokenCount),
		}
		if u.ThoughtsTokenCount > 0 {
			out.Usage.ReasoningTokens = models.Int64(u.ThoughtsTokenCount)
		}
	}
	return out, nil
}

func geminiThinking(th *models.Thinking) *geminiThinkingConfig {
	if th == nil {
		return nil
	}
	if th.BudgetTokens != nil {
		return &geminiThinkingConfig{ThinkingBudget: *th.BudgetTokens}
	}
	// Effort grades without a budget request a dynamic budget.
	return &geminiThinkingConfig{ThinkingBudget: -1}
}
