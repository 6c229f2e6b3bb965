// Package years tracks which year the timeline shows and which years hold
// at least one memory.
package years

import (
	"sync"

	"github.com/samber/lo"

	"github.com/sheeehy/lena/pkg/day"
)

// Source is the read side of the memory store the controller needs.
type Source interface {
	Version() uint64
	Range() (start, end int)
	Days() []day.Record
}

// Controller holds the selected year.
type Controller struct {
	mu sync.Mutex

	source   Source
	selected int

	// cached years-with-memories and the store version they came from
	withMemories []int
	seenVersion  uint64
	computed     bool

	// OnChange is called with the old and new year after a selection change.
	OnChange func(from, to int)
}

// New creates a controller selecting the most recent year.
func New(source Source) *Controller {
	_, end := source.Range()
	return &Controller{source: source, selected: end}
}

// Selected returns the current year.
func (c *Controller) Selected() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.selected
}

// Select changes the year, clamped to the store range. Reports whether the
// selection changed.
func (c *Controller) Select(year int) bool {
	c.mu.Lock()
	start, end := c.source.Range()
	year = clampYear(year, start, end)
	from := c.selected
	if year == from {
		c.mu.Unlock()
		return false
	}
	c.selected = year
	onChange := c.OnChange
	c.mu.Unlock()

	if onChange != nil {
		onChange(from, year)
	}
	return true
}

// Next moves to the following year. Reports whether it moved.
func (c *Controller) Next() bool {
	return c.Select(c.Selected() + 1)
}

// Prev moves to the preceding year. Reports whether it moved.
func (c *Controller) Prev() bool {
	return c.Select(c.Selected() - 1)
}

// All returns every selectable year, most recent first.
func (c *Controller) All() []int {
	start, end := c.source.Range()
	return lo.Reverse(lo.RangeFrom(start, end-start+1))
}

// WithMemories returns the years holding at least one memory, most recent
// first. Recomputed only when the store version changes.
func (c *Controller) WithMemories() []int {
	c.mu.Lock()
	defer c.mu.Unlock()

	version := c.source.Version()
	if c.computed && version == c.seenVersion {
		return append([]int(nil), c.withMemories...)
	}

	filled := lo.Filter(c.source.Days(), func(r day.Record, _ int) bool {
		return r.Count() > 0
	})
	years := lo.Uniq(lo.Map(filled, func(r day.Record, _ int) int {
		return yearOf(r.Date)
	}))
	years = lo.Reverse(years)

	c.withMemories = years
	c.seenVersion = version
	c.computed = true
	return append([]int(nil), years...)
}

// HasMemories reports whether year holds at least one memory.
func (c *Controller) HasMemories(year int) bool {
	return lo.Contains(c.WithMemories(), year)
}

// Revalidate clamps the selection after the store range moved, e.g. across
// New Year.
func (c *Controller) Revalidate() {
	c.Select(c.Selected())
}

func clampYear(year, start, end int) int {
	switch {
	case year < start:
		return start
	case year > end:
		return end
	default:
		return year
	}
}

func yearOf(date string) int {
	t, err := day.ParseKey(date)
	if err != nil {
		return 0
	}
	return t.Year()
}
