// Package sse reads and writes Server-Sent Events. The API server streams
// memory events with Write and the remote storage driver consumes them with
// Reader.
//
// See https://html.spec.whatwg.org/multipage/server-sent-events.html
package sse

import (
	"fmt"
	"io"
	"strings"
)

// Event represents a single SSE event, delimited by a blank line in the
// byte stream.
type Event struct {
	// Type is the "event:" field. Empty means the default "message" type.
	Type string

	// Data is the contents of all "data:" lines joined with "\n".
	Data string

	// ID is the "id:" field, if present.
	ID string
}

// Write encodes ev onto w, splitting multi-line data into one "data:" line
// per line, and terminates it with a blank line.
func Write(w io.Writer, ev Event) error {
	var b strings.Builder
	if ev.ID != "" {
		fmt.Fprintf(&b, "id: %s\n", oneLine(ev.ID))
	}
	if ev.Type != "" {
		fmt.Fprintf(&b, "event: %s\n", oneLine(ev.Type))
	}
	for _, line := range strings.Split(ev.Data, "\n") {
		fmt.Fprintf(&b, "data: %s\n", line)
	}
	b.WriteString("\n")

	_, err := io.WriteString(w, b.String())
	return err
}

// WriteComment writes a comment line, used as a keep-alive. Readers skip it.
func WriteComment(w io.Writer, text string) error {
	_, err := io.WriteString(w, ": "+oneLine(text)+"\n\n")
	return err
}

func oneLine(s string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(s)
}
