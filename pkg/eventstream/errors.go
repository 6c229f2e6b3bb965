package eventstream

import "errors"

// ErrNilMemoryEvent indicates a nil memory event was provided to a publisher.
var ErrNilMemoryEvent = errors.New("nil memory event")

// ErrBusClosed is returned when publishing to a closed bus.
var ErrBusClosed = errors.New("event bus closed")
