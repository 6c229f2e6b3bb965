package eventstream

import (
	"time"

	"github.com/google/uuid"

	"github.com/sheeehy/lena/pkg/day"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeMemoryCreated is emitted after a memory is persisted.
	EventTypeMemoryCreated = "lena.memory.created"
)

// Origins of a created memory.
const (
	OriginTimeline = "timeline"
	OriginCLI      = "cli"
	OriginAPI      = "api"
)

// MemoryCreatedEvent is a transport-neutral payload for a persisted memory.
type MemoryCreatedEvent struct {
	SchemaVersion int         `json:"schema_version"`
	EventType     string      `json:"event_type"`
	EventID       string      `json:"event_id"`
	EmittedAt     time.Time   `json:"emitted_at"`
	Source        EventSource `json:"source"`
	Memory        day.Memory  `json:"memory"`
}

// EventSource identifies where the memory was created.
type EventSource struct {
	Origin   string `json:"origin"`
	Hostname string `json:"hostname,omitempty"`
}

// NewMemoryCreated builds a v1 event for m stamped with the current time.
func NewMemoryCreated(m day.Memory, origin string) *MemoryCreatedEvent {
	return &MemoryCreatedEvent{
		SchemaVersion: SchemaVersionV1,
		EventType:     EventTypeMemoryCreated,
		EventID:       uuid.NewString(),
		EmittedAt:     time.Now().UTC(),
		Source:        EventSource{Origin: origin},
		Memory:        m,
	}
}
