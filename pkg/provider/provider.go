package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/satbench-ai/satbench/pkg/config"
	"github.com/satbench-ai/satbench/pkg/models"
)

// ErrNotSupported is returned when a request names an unknown provider.
var ErrNotSupported = errors.New("provider not supported")

// Request is the single provider-call capability consumed by the runner.
type Request struct {
	Provider    string
	Model       string
	Prompt      string
	System      string
	MaxTokens   *int
	Temperature *float64
	Seed        *int
	Thinking    *models.Thinking
}

// Response is the normalized result of a provider call.
type Response struct {
	Text         string
	ThinkingText string
	FinishReason string
	Usage        *models.Usage
	Raw          json.RawMessage
}

// Caller performs one provider call.
type Caller interface {
	Call(ctx context.Context, req Request) (*Response, error)
}

// Router dispatches requests to per-provider callers by the request's
// provider name.
type Router struct {
	callers map[string]Caller
}

// NewRouter builds a Router with callers for every provider that has
// credentials, plus the stub provider.
func NewRouter(secrets config.Secrets) *Router {
	r := &Router{callers: map[string]Caller{
		"stub": NewStub(""),
	}}
	if key := secrets.APIKey("openai"); key != "" {
		r.callers["openai"] = NewOpenAI(key, secrets["openai"].BaseURL)
	}
	if key := secrets.APIKey("anthropic"); key != "" {
		r.callers["anthropic"] = NewAnthropic(key, secrets["anthropic"].BaseURL)
	}
	if key := secrets.APIKey("gemini"); key != "" {
		r.callers["gemini"] = NewGemini(key, secrets["gemini"].BaseURL)
	}
	return r
}

// Register installs or replaces the caller for a provider name.
func (r *Router) Register(name string, c Caller) {
	r.callers[name] = c
}

// Call dispatches to the provider named in the request.
func (r *Router) Call(ctx context.Context, req Request) (*Response, error) {
	c, ok := r.callers[req.Provider]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotSupported, req.Provider)
	}
	return c.Call(ctx, req)
}

// TerminalError marks a provider response that reached a failed, cancelled,
// or incomplete state. It is not retried.
type TerminalError struct {
	Provider   string
	ResponseID string
	State      string
}

func (e *TerminalError) Error() string {
	if e.ResponseID != "" {
		return fmt.Sprintf("%s response %s terminal state %s", e.Provider, e.ResponseID, e.State)
	}
	return fmt.Sprintf("%s response terminal state %s", e.Provider, e.State)
}
