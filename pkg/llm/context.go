package llm

// ImageData is a base64-encoded image attachment for vision-capable
// providers.
type ImageData struct {
	Base64    string `json:"base64"`
	MediaType string `json:"mediaType"`
}

// Context is the per-send configuration for a gateway call. Constructed
// fresh per call; never persisted by the gateway itself.
type Context struct {
	// RequiresGrounding requests live-search augmentation of the answer.
	RequiresGrounding bool

	// EstimatedTokens is a rough size estimate for the conversation,
	// used for long-context routing.
	EstimatedTokens int

	// ImageData is an optional image attachment.
	ImageData *ImageData

	// IsCrisis forces routing to the safest provider regardless of
	// message content.
	IsCrisis bool

	// ConversationID identifies the conversation for backend persistence.
	ConversationID string

	// PreferredProvider is honored only when no safety or feature
	// override applies.
	PreferredProvider string
}
