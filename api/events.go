package api

import (
	"bufio"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/sheeehy/lena/pkg/eventstream"
	"github.com/sheeehy/lena/pkg/sse"
)

const (
	eventsBuffer      = 16
	eventsKeepAlive   = 15 * time.Second
	eventsStreamReady = "connected"
)

// handleEvents streams memoryCreated events as Server-Sent Events until the
// client disconnects or the server shuts down. Slow clients drop events
// rather than stall the publisher.
func (s *Server) handleEvents(c *fiber.Ctx) error {
	if s.events == nil {
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: "event stream not enabled"})
	}

	events := make(chan *eventstream.MemoryCreatedEvent, eventsBuffer)
	unsubscribe := s.events.Subscribe(func(e *eventstream.MemoryCreatedEvent) {
		select {
		case events <- e:
		default:
			s.logger.Warn("event stream client too slow, event dropped", slog.String("event_id", e.EventID))
		}
	})

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer unsubscribe()
		s.metrics.streams.Inc()
		defer s.metrics.streams.Dec()

		// flushed immediately so clients know they are subscribed
		if err := sse.WriteComment(w, eventsStreamReady); err != nil || w.Flush() != nil {
			return
		}

		ticker := time.NewTicker(eventsKeepAlive)
		defer ticker.Stop()

		for {
			select {
			case <-s.done:
				return
			case e := <-events:
				data, err := json.Marshal(e)
				if err != nil {
					s.logger.Error("failed to encode event", slog.Any("error", err))
					continue
				}
				if err := sse.Write(w, sse.Event{ID: e.EventID, Type: e.EventType, Data: string(data)}); err != nil {
					return
				}
			case <-ticker.C:
				if err := sse.WriteComment(w, "keep-alive"); err != nil {
					return
				}
			}
			if err := w.Flush(); err != nil {
				return
			}
		}
	})
	return nil
}
