package api

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/sheeehy/lena/pkg/day"
	"github.com/sheeehy/lena/pkg/eventstream"
	"github.com/sheeehy/lena/pkg/storage"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// MemoryResponse wraps a single memory.
type MemoryResponse struct {
	Memory day.Memory `json:"memory"`
}

// MemoriesResponse wraps a list of memories in timeline order.
type MemoriesResponse struct {
	Memories []day.Memory `json:"memories"`
}

// ImageResponse carries the public URL of an uploaded image.
type ImageResponse struct {
	URL string `json:"url"`
}

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

// handleListMemories returns every memory, optionally filtered by ?year=.
func (s *Server) handleListMemories(c *fiber.Ctx) error {
	year := 0
	if raw := c.Query("year"); raw != "" {
		y, err := strconv.Atoi(raw)
		if err != nil || y <= 0 {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "year must be a positive integer"})
		}
		year = y
	}

	memories, err := s.storer.List(c.Context())
	if err != nil {
		s.logger.Error("failed to list memories", slog.Any("error", err))
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to list memories"})
	}

	if year != 0 {
		memories = storage.FilterYear(memories, year)
	}
	if memories == nil {
		memories = []day.Memory{}
	}
	return c.JSON(MemoriesResponse{Memories: memories})
}

// handleGetMemory returns a single memory by its id.
func (s *Server) handleGetMemory(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "id parameter required"})
	}

	m, err := s.storer.Get(c.Context(), id)
	if err != nil {
		var notFound storage.NotFoundError
		if errors.As(err, &notFound) {
			return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: "memory not found"})
		}
		s.logger.Error("failed to get memory", slog.String("id", id), slog.Any("error", err))
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to get memory"})
	}

	return c.JSON(MemoryResponse{Memory: m})
}

// handleCreateMemory validates and stores a memory, then publishes a
// memoryCreated event. Full days are rejected with 422.
func (s *Server) handleCreateMemory(c *fiber.Ctx) error {
	var req createMemoryRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
	}
	req.trim()
	if err := validateStruct(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: err.Error()})
	}

	ctx := c.Context()
	s.createMu.Lock()
	defer s.createMu.Unlock()

	memories, err := s.storer.List(ctx)
	if err != nil {
		s.logger.Error("failed to list memories", slog.Any("error", err))
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to create memory"})
	}
	if len(storage.FilterDate(memories, req.Date)) >= day.MaxMemoriesPerDay {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(ErrorResponse{Error: "This date has the maximum number of memories."})
	}

	m := day.Memory{
		ID:          req.ID,
		Date:        req.Date,
		Title:       req.Title,
		Description: req.Description,
		Location:    req.Location,
		Image:       req.Image,
	}
	if m.ID == "" {
		m.ID = uuid.NewString()
	}

	if err := s.storer.Create(ctx, m); err != nil {
		var dup storage.DuplicateError
		if errors.As(err, &dup) {
			return c.Status(fiber.StatusConflict).JSON(ErrorResponse{Error: dup.Error()})
		}
		s.logger.Error("failed to create memory", slog.String("id", m.ID), slog.Any("error", err))
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to create memory"})
	}

	s.metrics.memoriesCreated.Inc()
	s.publish(ctx, m)

	s.logger.Info("memory created",
		slog.String("id", m.ID),
		slog.String("date", m.Date),
	)
	return c.Status(fiber.StatusCreated).JSON(MemoryResponse{Memory: m})
}

// handleUploadImage stores the multipart "image" file and returns its URL.
func (s *Server) handleUploadImage(c *fiber.Ctx) error {
	if s.uploader == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(ErrorResponse{Error: "image uploads are not configured"})
	}

	fh, err := c.FormFile("image")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "image file is required"})
	}

	f, err := fh.Open()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "could not read image"})
	}
	defer f.Close()

	url, err := s.uploader.Upload(c.Context(), fh.Filename, f)
	if err != nil {
		s.logger.Error("failed to upload image", slog.String("name", fh.Filename), slog.Any("error", err))
		return c.Status(fiber.StatusBadGateway).JSON(ErrorResponse{Error: "We couldn't upload your image. Please try again."})
	}

	s.metrics.imagesUploaded.Inc()
	return c.Status(fiber.StatusCreated).JSON(ImageResponse{URL: url})
}

// publish broadcasts a memoryCreated event. Failures are logged only: the
// memory is already persisted.
func (s *Server) publish(ctx context.Context, m day.Memory) {
	event := eventstream.NewMemoryCreated(m, eventstream.OriginAPI)
	if err := s.publisher.PublishMemoryCreated(ctx, event); err != nil {
		s.metrics.eventsFailed.Inc()
		s.logger.Warn("failed to publish memory event",
			slog.String("id", m.ID),
			slog.Any("error", err),
		)
	}
}
