package models

// Usage holds normalized token counts from a provider response. Providers
// that do not report a field leave it nil.
type Usage struct {
	InputTokens              *int64 `json:"input_tokens"`
	OutputTokens             *int64 `json:"output_tokens"`
	ReasoningTokens          *int64 `json:"reasoning_tokens"`
	CacheCreationInputTokens *int64 `json:"cache_creation_input_tokens"`
	CacheReadInputTokens     *int64 `json:"cache_read_input_tokens"`
}

// Int64 returns a pointer to v, for building Usage literals.
func Int64(v int64) *int64 { return &v }

// Input returns the input token count, zero when unreported.
func (u *Usage) Input() int64 {
	if u == nil {
		return 0
	}
	return derefVal(u.InputTokens)
}

// Output returns the output token count, zero when unreported.
func (u *Usage) Output() int64 {
	if u == nil {
		return 0
	}
	return derefVal(u.OutputTokens)
}

// Reasoning returns the reasoning token count, zero when unreported.
func (u *Usage) Reasoning() int64 {
	if u == nil {
		return 0
	}
	return derefVal(u.ReasoningTokens)
}

// CacheCreation returns the cache-creation input token count, zero when unreported.
func (u *Usage) CacheCreation() int64 {
	if u == nil {
		return 0
	}
	return derefVal(u.CacheCreationInputTokens)
}

// CacheRead returns the cache-read input token count, zero when unreported.
func (u *Usage) CacheRead() int64 {
	if u == nil {
		return 0
	}
	return derefVal(u.CacheReadInputTokens)
}

func derefVal(p *int64) int64 {
	if p == nil {
		return 0
	}
	return *p
}
