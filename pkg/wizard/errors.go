package wizard

import (
	"errors"
	"fmt"
)

var (
	// ErrSubmitting is returned while a submission is already in flight.
	ErrSubmitting = errors.New("a submission is already in progress")

	// ErrClosed is returned when the wizard is closed, including when it was
	// closed while a submission was in flight.
	ErrClosed = errors.New("wizard is closed")
)

// FormatError is returned when the date is not a real DD MM YYYY date.
type FormatError struct {
	Input string
}

func (e *FormatError) Error() string {
	return "Please enter a valid date in DD MM YYYY format."
}

// RangeReason distinguishes the two bounds of a memory date.
type RangeReason int

const (
	BeforeBirth RangeReason = iota
	InFuture
	BeforeTimeline
)

func (r RangeReason) String() string {
	switch r {
	case InFuture:
		return "future"
	case BeforeTimeline:
		return "before_timeline"
	default:
		return "before_birth"
	}
}

// RangeError is returned when the date falls outside birth date..today or
// before the first year the timeline shows.
type RangeError struct {
	Date   string
	Reason RangeReason
}

func (e *RangeError) Error() string {
	switch e.Reason {
	case InFuture:
		return "Memory date cannot be in the future"
	case BeforeTimeline:
		return "Memory date is before the start of your timeline"
	default:
		return "Memory date cannot be before your birthday"
	}
}

// CapacityError is returned when the chosen day is full.
type CapacityError struct {
	Date  string
	Count int
}

func (e *CapacityError) Error() string {
	return "This date has the maximum number of memories."
}

// RequiredError is returned when a required text step is blank.
type RequiredError struct {
	Step Step
}

func (e *RequiredError) Error() string {
	return fmt.Sprintf("Please add a %s.", e.Step)
}

// UploadError wraps a failed image upload.
type UploadError struct {
	Path string
	Err  error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("uploading %s: %v", e.Path, e.Err)
}

func (e *UploadError) Unwrap() error {
	return e.Err
}

// PersistError wraps a failed persistence call. The memory stays in the
// store as an optimistic entry.
type PersistError struct {
	MemoryID string
	Err      error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("persisting memory %s: %v", e.MemoryID, e.Err)
}

func (e *PersistError) Unwrap() error {
	return e.Err
}
