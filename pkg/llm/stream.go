package llm

// StreamFrame is one decoded `data:` payload from the backend's SSE stream.
// Exactly one field group is populated per frame:
//
//   - Chunk: visible answer text, appended in wire order
//   - Thinking: model-internal scratch content, never shown to the user
//   - Usage / Provider: accumulator metadata, emitted without UI output
//   - Error: server-side failure that aborts the whole stream
type StreamFrame struct {
	Chunk     string       `json:"chunk,omitempty"`
	Thinking  string       `json:"thinking,omitempty"`
	Usage     *Usage       `json:"usage,omitempty"`
	Provider  string       `json:"provider,omitempty"`
	Error     *StreamError `json:"error,omitempty"`
	Citations []string     `json:"citations,omitempty"`
}

// StreamError is the server-supplied error payload inside a stream.
type StreamError struct {
	Message     string `json:"message"`
	UserMessage string `json:"userMessage"`
}
