// Package history is the local conversation persistence collaborator. The
// gateway only appends through the Store interface; it never reads its own
// writes and works fine with the nop store.
package history

import (
	"context"

	"github.com/nossamaternidade/nathia/pkg/llm"
)

// Store persists conversation messages keyed by conversation ID.
type Store interface {
	// Append records one message at the end of the conversation.
	Append(ctx context.Context, conversationID string, msg llm.Message) error

	// Messages returns the conversation in insertion order.
	Messages(ctx context.Context, conversationID string) ([]llm.Message, error)

	// Close releases the underlying resources.
	Close() error
}

// Nop is a Store that records nothing.
type Nop struct{}

// Append implements Store.
func (Nop) Append(context.Context, string, llm.Message) error { return nil }

// Messages implements Store.
func (Nop) Messages(context.Context, string) ([]llm.Message, error) { return nil, nil }

// Close implements Store.
func (Nop) Close() error { return nil }
