// Package llm defines the provider-agnostic conversation types exchanged
// between the gateway and the NathIA backend.
package llm

// Message roles. The ordered message sequence is replayed verbatim to the
// backend, so order is semantically significant.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single message in a conversation. Immutable once sent.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// UserMessage creates a user-role message.
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// AssistantMessage creates an assistant-role message.
func AssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// LastUserMessage returns the most recent user-role message, or false when
// the conversation has none.
func LastUserMessage(messages []Message) (Message, bool) {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == RoleUser {
			return messages[i], true
		}
	}
	return Message{}, false
}
