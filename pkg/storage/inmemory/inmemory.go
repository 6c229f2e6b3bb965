// Package inmemory provides a map-backed storage driver for tests and
// ephemeral runs.
package inmemory

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/sheeehy/lena/pkg/day"
	"github.com/sheeehy/lena/pkg/storage"
)

// Driver implements storage.Driver using an in-memory map.
type Driver struct {
	// mu is a read write sync mutex for locking the memory map
	mu sync.RWMutex

	// memories is keyed by memory id
	memories map[string]day.Memory

	// seq records creation order per id
	seq  map[string]int
	next int
}

// NewDriver creates a new in-memory driver.
func NewDriver() *Driver {
	return &Driver{
		memories: make(map[string]day.Memory),
		seq:      make(map[string]int),
	}
}

// Create stores a memory.
func (d *Driver) Create(_ context.Context, m day.Memory) error {
	if m.ID == "" {
		return errors.New("cannot store memory without id")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.memories[m.ID]; ok {
		return storage.DuplicateError{ID: m.ID}
	}

	d.memories[m.ID] = m
	d.seq[m.ID] = d.next
	d.next++
	return nil
}

// Get retrieves a memory by its id.
func (d *Driver) Get(_ context.Context, id string) (day.Memory, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	m, ok := d.memories[id]
	if !ok {
		return day.Memory{}, storage.NotFoundError{ID: id}
	}

	return m, nil
}

// List returns all memories by date, newest first within a day.
func (d *Driver) List(_ context.Context) ([]day.Memory, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]day.Memory, 0, len(d.memories))
	for _, m := range d.memories {
		out = append(out, m)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return d.seq[out[i].ID] > d.seq[out[j].ID]
	})

	return out, nil
}

// Close is a no-op for the in-memory driver.
func (d *Driver) Close() error {
	return nil
}
