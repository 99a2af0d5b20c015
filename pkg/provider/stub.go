package provider

import (
	"context"
	"encoding/json"
	"sync"
)

// Stub is an offline caller that returns canned text. It backs the "stub"
// provider for smoke runs and is the workhorse of the runner tests.
type Stub struct {
	mu    sync.Mutex
	text  string
	calls int

	// Reply, when set, overrides the fixed text per request.
	Reply func(req Request) (*Response, error)
}

// NewStub creates a Stub answering every call with text. An empty text
// defaults to "satisfiable".
func NewStub(text string) *Stub {
	if text == "" {
		text = "satisfiable"
	}
	return &Stub{text: text}
}

// Call implements Caller.
func (s *Stub) Call(ctx context.Context, req Request) (*Response, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()

	if s.Reply != nil {
		return s.Reply(req)
	}
	raw, _ := json.Marshal(map[string]string{"stub": s.text})
	return &Response{
		Text:         s.text,
		FinishReason: "stop",
		Usage:        nil,
		Raw:          raw,
	}, nil
}

// Calls returns how many requests the stub has served.
func (s *Stub) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}
