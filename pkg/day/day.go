// Package day holds the memory timeline data model: memories and the
// per-day records that bucket them.
//
// A year is always materialized eagerly, one Record per calendar day, so a
// timeline never has to reason about missing days.
package day

import (
	"fmt"
	"time"
)

const (
	// KeyLayout is the ISO calendar day layout used as the key of a Record.
	KeyLayout = "2006-01-02"

	// MaxMemoriesPerDay is the capacity of a single day.
	MaxMemoriesPerDay = 8
)

// Memory is a single dated note with an optional image and location.
type Memory struct {
	ID          string `json:"id"`
	Date        string `json:"date"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Location    string `json:"location,omitempty"`
	Image       string `json:"image,omitempty"`
}

// Year returns the calendar year of the memory date, or 0 when the date is
// malformed.
func (m Memory) Year() int {
	t, err := ParseKey(m.Date)
	if err != nil {
		return 0
	}
	return t.Year()
}

// Record is a calendar day plus its memories, most recently added first.
type Record struct {
	Date     string   `json:"date"`
	Memories []Memory `json:"memories"`
}

// Count returns the number of memories held by the day.
func (r Record) Count() int {
	return len(r.Memories)
}

// Clone returns a copy of the record that shares no memory slice with r.
func (r Record) Clone() Record {
	out := Record{Date: r.Date}
	if len(r.Memories) > 0 {
		out.Memories = make([]Memory, len(r.Memories))
		copy(out.Memories, r.Memories)
	}
	return out
}

// Key formats t as a day key.
func Key(t time.Time) string {
	return t.Format(KeyLayout)
}

// ParseKey parses a day key into a UTC midnight time.
func ParseKey(key string) (time.Time, error) {
	t, err := time.ParseInLocation(KeyLayout, key, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid day key %q: %w", key, err)
	}
	return t, nil
}

// IsLeap reports whether year is a Gregorian leap year.
func IsLeap(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

// DaysIn returns the number of days in year.
func DaysIn(year int) int {
	if IsLeap(year) {
		return 366
	}
	return 365
}

// Bucket groups memories by date, preserving their input order.
func Bucket(memories []Memory) map[string][]Memory {
	buckets := make(map[string][]Memory)
	for _, m := range memories {
		buckets[m.Date] = append(buckets[m.Date], m)
	}
	return buckets
}

// BuildYear materializes every day of year, attaching the bucketed memories.
func BuildYear(year int, buckets map[string][]Memory) []Record {
	days := make([]Record, 0, DaysIn(year))
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	for i := range DaysIn(year) {
		key := Key(start.AddDate(0, 0, i))
		rec := Record{Date: key}
		if ms := buckets[key]; len(ms) > 0 {
			rec.Memories = make([]Memory, len(ms))
			copy(rec.Memories, ms)
		}
		days = append(days, rec)
	}
	return days
}

// BuildRange materializes every day from January 1 of startYear through
// December 31 of endYear. Memories outside the range are dropped.
func BuildRange(startYear, endYear int, memories []Memory) []Record {
	if endYear < startYear {
		return nil
	}

	buckets := Bucket(memories)
	total := 0
	for y := startYear; y <= endYear; y++ {
		total += DaysIn(y)
	}

	days := make([]Record, 0, total)
	for y := startYear; y <= endYear; y++ {
		days = append(days, BuildYear(y, buckets)...)
	}
	return days
}
