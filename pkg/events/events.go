// Package events defines the transport-neutral seam for turn-completed
// events emitted by the gateway after each successful send. Broker-backed
// publishers plug in behind the Publisher interface; the gateway itself
// only knows the nop implementation by default.
package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/nossamaternidade/nathia/pkg/llm"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeTurnCompleted is emitted after a send finishes.
	EventTypeTurnCompleted = "nathia.turn.completed"
)

// TurnCompletedEvent is a transport-neutral event payload for one
// completed conversation turn.
type TurnCompletedEvent struct {
	SchemaVersion  int           `json:"schema_version"`
	EventType      string        `json:"event_type"`
	EventID        string        `json:"event_id"`
	EmittedAt      time.Time     `json:"emitted_at"`
	ConversationID string        `json:"conversation_id,omitempty"`
	Provider       string        `json:"provider"`
	Streamed       bool          `json:"streamed"`
	Blocked        bool          `json:"blocked"`
	Latency        time.Duration `json:"latency_ns"`
	Usage          llm.Usage     `json:"usage"`
}

// NewTurnCompleted builds a v1 event from one gateway response.
func NewTurnCompleted(conversationID string, resp *llm.Response) *TurnCompletedEvent {
	return &TurnCompletedEvent{
		SchemaVersion:  SchemaVersionV1,
		EventType:      EventTypeTurnCompleted,
		EventID:        uuid.NewString(),
		EmittedAt:      time.Now().UTC(),
		ConversationID: conversationID,
		Provider:       resp.Provider,
		Streamed:       resp.WasStreamed,
		Blocked:        resp.Blocked,
		Latency:        resp.Latency,
		Usage:          resp.Usage,
	}
}
