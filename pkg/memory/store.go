// Package memory holds the process-wide Memory Store: every day record from
// the configured start year through the current year, plus a version counter
// consumers poll to detect change.
//
// The store is the only shared mutable state between the timeline and the
// wizard. It is mutated through Load, Append and Discard only and hands out
// copies.
package memory

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/sheeehy/lena/pkg/day"
	"github.com/sheeehy/lena/pkg/eventstream"
	"github.com/sheeehy/lena/pkg/logger"
)

// DefaultStartYear is the first materialized year.
const DefaultStartYear = 2003

// Fetcher returns every known memory. storage.Driver satisfies it.
type Fetcher interface {
	List(ctx context.Context) ([]day.Memory, error)
}

// Options configures a Store.
type Options struct {
	// StartYear is the first materialized year. Defaults to DefaultStartYear.
	StartYear int

	// Clock returns the current time. Defaults to time.Now.
	Clock func() time.Time

	// Logger receives append anomalies. Defaults to a no-op logger.
	Logger *slog.Logger
}

// Store holds day records for all supported years.
type Store struct {
	mu sync.RWMutex

	fetcher   Fetcher
	startYear int
	endYear   int
	clock     func() time.Time
	log       *slog.Logger

	days    []day.Record
	index   map[string]int
	ids     map[string]struct{}
	pending map[string]struct{}
	version uint64
}

// New creates a store whose day sequence is materialized empty until Load.
func New(fetcher Fetcher, opts Options) *Store {
	if opts.StartYear == 0 {
		opts.StartYear = DefaultStartYear
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}

	s := &Store{
		fetcher:   fetcher,
		startYear: opts.StartYear,
		clock:     opts.Clock,
		log:       opts.Logger,
		pending:   make(map[string]struct{}),
	}
	s.rebuild(nil)
	return s
}

// Load fetches all memories and rebuilds the day sequence. On failure the
// previous state is kept and a *LoadError is returned.
func (s *Store) Load(ctx context.Context) error {
	memories, err := s.fetcher.List(ctx)
	if err != nil {
		return &LoadError{Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// memories appended locally but not yet confirmed survive a reload and
	// stay at the head of their day
	var unconfirmed []day.Memory
	for _, d := range s.days {
		for _, m := range d.Memories {
			if _, ok := s.pending[m.ID]; ok && !containsID(memories, m.ID) {
				unconfirmed = append(unconfirmed, m)
			}
		}
	}
	if len(unconfirmed) > 0 {
		memories = append(unconfirmed, memories...)
	}

	s.rebuild(memories)
	s.version++
	return nil
}

// rebuild materializes the range ending at the clock's current year.
// Callers hold mu, except New.
func (s *Store) rebuild(memories []day.Memory) {
	end := s.clock().Year()
	if end < s.startYear {
		end = s.startYear
	}

	s.endYear = end
	s.days = day.BuildRange(s.startYear, end, memories)
	s.index = make(map[string]int, len(s.days))
	s.ids = make(map[string]struct{}, len(memories))
	for i, d := range s.days {
		s.index[d.Date] = i
		for _, m := range d.Memories {
			s.ids[m.ID] = struct{}{}
		}
	}
	for id := range s.pending {
		if _, ok := s.ids[id]; !ok {
			delete(s.pending, id)
		}
	}
}

// Append inserts m at the head of its day and bumps the version. A date
// outside the materialized range is logged and ignored. Reports whether the
// memory was applied.
func (s *Store) Append(m day.Memory) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.appendLocked(m)
}

// AppendPending appends m and marks it as awaiting persistence.
func (s *Store) AppendPending(m day.Memory) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.appendLocked(m) {
		return false
	}
	s.pending[m.ID] = struct{}{}
	return true
}

func (s *Store) appendLocked(m day.Memory) bool {
	i, ok := s.index[m.Date]
	if !ok {
		s.log.Warn("no day record for memory, ignoring append",
			"memory_id", m.ID,
			"date", m.Date,
			"range_start", s.startYear,
			"range_end", s.endYear,
		)
		return false
	}

	memories := make([]day.Memory, 0, len(s.days[i].Memories)+1)
	memories = append(memories, m)
	memories = append(memories, s.days[i].Memories...)
	s.days[i].Memories = memories
	s.ids[m.ID] = struct{}{}
	s.version++
	return true
}

// Confirm clears the pending flag of a persisted memory.
func (s *Store) Confirm(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.pending, id)
}

// Pending reports whether the memory was appended but not yet confirmed.
func (s *Store) Pending(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.pending[id]
	return ok
}

// Discard removes a memory that is still awaiting persistence and bumps the
// version. Confirmed memories are never removed. Reports whether anything
// was removed.
func (s *Store) Discard(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.pending[id]; !ok {
		return false
	}
	delete(s.pending, id)
	delete(s.ids, id)
	for i, d := range s.days {
		for j, m := range d.Memories {
			if m.ID != id {
				continue
			}
			memories := make([]day.Memory, 0, len(d.Memories)-1)
			memories = append(memories, d.Memories[:j]...)
			memories = append(memories, d.Memories[j+1:]...)
			s.days[i].Memories = memories
			s.version++
			return true
		}
	}
	return false
}

// PendingCount returns how many memories await persistence.
func (s *Store) PendingCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.pending)
}

// Has reports whether a memory with id is present.
func (s *Store) Has(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.ids[id]
	return ok
}

// Version strictly increases on every successful Load or Append.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.version
}

// Range returns the first and last materialized years.
func (s *Store) Range() (start, end int) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.startYear, s.endYear
}

// Covers reports whether date falls inside the materialized range.
func (s *Store) Covers(date string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.index[date]
	return ok
}

// Days returns a copy of the full day sequence.
func (s *Store) Days() []day.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return cloneRecords(s.days)
}

// Year returns a copy of the day records of year, or nil when year is out of
// range.
func (s *Store) Year(year int) []day.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if year < s.startYear || year > s.endYear {
		return nil
	}
	first := s.index[day.Key(time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC))]
	return cloneRecords(s.days[first : first+day.DaysIn(year)])
}

// Day returns a copy of the record for date.
func (s *Store) Day(date string) (day.Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.index[date]
	if !ok {
		return day.Record{}, false
	}
	return s.days[i].Clone(), true
}

// MemoryCount returns the number of memories on date. Dates outside the
// range count as empty.
func (s *Store) MemoryCount(date string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.index[date]
	if !ok {
		return 0
	}
	return len(s.days[i].Memories)
}

// Subscribe appends every memory broadcast on bus unless a memory with the
// same id is already present. Returns the unsubscribe function.
func (s *Store) Subscribe(bus *eventstream.Bus) func() {
	return bus.Subscribe(func(event *eventstream.MemoryCreatedEvent) {
		s.mu.Lock()
		defer s.mu.Unlock()

		if _, ok := s.ids[event.Memory.ID]; ok {
			return
		}
		s.appendLocked(event.Memory)
	})
}

func cloneRecords(records []day.Record) []day.Record {
	out := make([]day.Record, len(records))
	for i, r := range records {
		out[i] = r.Clone()
	}
	return out
}

func containsID(memories []day.Memory, id string) bool {
	for _, m := range memories {
		if m.ID == id {
			return true
		}
	}
	return false
}
