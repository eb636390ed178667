package llm

import "time"

// Usage contains token counters for one completed exchange.
type Usage struct {
	PromptTokens     int `json:"promptTokens"`
	CompletionTokens int `json:"completionTokens"`
	TotalTokens      int `json:"totalTokens"`
}

// Response is the normalized result of one gateway send: either the fully
// accumulated streamed answer or the single JSON body of a non-streaming
// call.
type Response struct {
	Content  string        `json:"content"`
	Usage    Usage         `json:"usage"`
	Provider string        `json:"provider"`
	Latency  time.Duration `json:"latency"`

	// WasStreamed reports whether the content arrived incrementally over
	// SSE (false for the JSON fallback and the non-streaming path).
	WasStreamed bool `json:"wasStreamed"`

	// Blocked reports that the safety gate answered locally and no
	// network call was made.
	Blocked bool `json:"blocked,omitempty"`

	// Citations are grounding sources supplied by the backend, appended
	// to the content as a plain-text suffix by the gateway.
	Citations []string `json:"citations,omitempty"`
}
