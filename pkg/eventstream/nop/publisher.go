package nop

import (
	"context"

	"github.com/sheeehy/lena/pkg/eventstream"
)

// Publisher is a no-op eventstream publisher used for tests and disabled mode.
type Publisher struct{}

// NewPublisher creates a new no-op eventstream publisher.
func NewPublisher() *Publisher {
	return &Publisher{}
}

// PublishMemoryCreated validates input and otherwise does nothing.
func (p *Publisher) PublishMemoryCreated(_ context.Context, event *eventstream.MemoryCreatedEvent) error {
	if event == nil {
		return eventstream.ErrNilMemoryEvent
	}

	return nil
}

// Close is a no-op.
func (p *Publisher) Close() error {
	return nil
}
