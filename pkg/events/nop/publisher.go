package nop

import (
	"context"

	"github.com/nossamaternidade/nathia/pkg/events"
)

// Publisher is a no-op event publisher used for tests and disabled mode.
type Publisher struct{}

// NewPublisher creates a new no-op event publisher.
func NewPublisher() *Publisher {
	return &Publisher{}
}

// PublishTurn validates input and otherwise does nothing.
func (p *Publisher) PublishTurn(_ context.Context, event *events.TurnCompletedEvent) error {
	if event == nil {
		return events.ErrNilTurnEvent
	}

	return nil
}

// Close is a no-op.
func (p *Publisher) Close() error {
	return nil
}
