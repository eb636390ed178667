package llm

// ChatRequest is the outbound wire payload for the backend chat endpoint.
type ChatRequest struct {
	Messages       []Message  `json:"messages"`
	Provider       string     `json:"provider"`
	Grounding      bool       `json:"grounding"`
	Stream         bool       `json:"stream"`
	ImageData      *ImageData `json:"imageData,omitempty"`
	ConversationID string     `json:"conversationId,omitempty"`
}
