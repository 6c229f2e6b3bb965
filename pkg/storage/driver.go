// Package storage defines the persistence contract for memories.
//
// Drivers back the memory store's fetch and the wizard's create call. List
// returns memories in timeline order: ascending by date and, within a day,
// most recently created first.
package storage

import (
	"context"

	"github.com/sheeehy/lena/pkg/day"
)

// Driver persists and retrieves memories in a storage backend.
type Driver interface {
	// Create stores a new memory. Returns DuplicateError when a memory with
	// the same id already exists.
	Create(ctx context.Context, m day.Memory) error

	// Get retrieves a memory by its id.
	Get(ctx context.Context, id string) (day.Memory, error)

	// List returns all memories in timeline order.
	List(ctx context.Context) ([]day.Memory, error)

	// Close releases any resources held by the driver.
	Close() error
}

// FilterYear returns the memories dated within year, preserving order.
func FilterYear(memories []day.Memory, year int) []day.Memory {
	out := make([]day.Memory, 0)
	for _, m := range memories {
		if m.Year() == year {
			out = append(out, m)
		}
	}
	return out
}

// FilterDate returns the memories dated on date, preserving order.
func FilterDate(memories []day.Memory, date string) []day.Memory {
	out := make([]day.Memory, 0)
	for _, m := range memories {
		if m.Date == date {
			out = append(out, m)
		}
	}
	return out
}
