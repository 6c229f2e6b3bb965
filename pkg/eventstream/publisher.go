package eventstream

import (
	"context"
	"errors"
)

// Publisher publishes memory events to an event stream backend.
type Publisher interface {
	PublishMemoryCreated(ctx context.Context, event *MemoryCreatedEvent) error
	Close() error
}

// Fanout publishes every event to all publishers in order. Every publisher
// is attempted; the returned error joins their failures.
type Fanout []Publisher

// PublishMemoryCreated publishes event to each publisher.
func (f Fanout) PublishMemoryCreated(ctx context.Context, event *MemoryCreatedEvent) error {
	if event == nil {
		return ErrNilMemoryEvent
	}

	var errs []error
	for _, p := range f {
		if err := p.PublishMemoryCreated(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes each publisher.
func (f Fanout) Close() error {
	var errs []error
	for _, p := range f {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
