package api

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sheeehy/lena/api/mcp"
	"github.com/sheeehy/lena/pkg/blob"
	"github.com/sheeehy/lena/pkg/eventstream"
	"github.com/sheeehy/lena/pkg/eventstream/nop"
	"github.com/sheeehy/lena/pkg/logger"
	"github.com/sheeehy/lena/pkg/storage"
)

// Server is the API server for reading and recording memories.
type Server struct {
	config    Config
	storer    storage.Driver
	publisher eventstream.Publisher
	uploader  blob.Uploader
	events    *eventstream.Bus
	logger    *slog.Logger
	metrics   *metrics
	app       *fiber.App

	// createMu serializes the capacity check and insert of memory creation.
	createMu sync.Mutex

	// done ends open event streams on Shutdown.
	done     chan struct{}
	doneOnce sync.Once
}

// Option customizes a Server.
type Option func(*Server)

// WithPublisher broadcasts memoryCreated events for memories created
// through the API.
func WithPublisher(p eventstream.Publisher) Option {
	return func(s *Server) {
		s.publisher = p
	}
}

// WithUploader enables POST /api/images.
func WithUploader(u blob.Uploader) Option {
	return func(s *Server) {
		s.uploader = u
	}
}

// WithEvents enables GET /api/events, streaming every memoryCreated event
// delivered on bus.
func WithEvents(bus *eventstream.Bus) Option {
	return func(s *Server) {
		s.events = bus
	}
}

// NewServer creates a new API server.
// The storer is injected to allow sharing with other components
// (e.g., the timeline when run in the same process).
func NewServer(config Config, storer storage.Driver, log *slog.Logger, opts ...Option) (*Server, error) {
	if storer == nil {
		return nil, errors.New("storage driver is required")
	}
	if log == nil {
		log = logger.Nop()
	}
	if config.MaxImageBytes <= 0 {
		config.MaxImageBytes = DefaultMaxImageBytes
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		BodyLimit:             config.MaxImageBytes,
	})

	s := &Server{
		config:    config,
		storer:    storer,
		publisher: nop.NewPublisher(),
		logger:    log,
		metrics:   newMetrics(),
		app:       app,
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	mcpServer, err := mcp.NewServer(mcp.Config{
		Storer: storer,
		Logger: log,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create MCP server: %w", err)
	}

	app.Use(s.metrics.middleware)

	app.Get("/ping", s.handlePing)
	app.Get("/api/memories", s.handleListMemories)
	app.Get("/api/memories/:id", s.handleGetMemory)
	app.Post("/api/memories", s.handleCreateMemory)
	app.Post("/api/images", s.handleUploadImage)
	app.Get("/api/events", s.handleEvents)
	app.All("/mcp", adaptor.HTTPHandler(mcpServer.Handler()))
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(s.metrics.registry, promhttp.HandlerOpts{})))

	return s, nil
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting API server",
		slog.String("listen", s.config.ListenAddr),
	)
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown() error {
	s.doneOnce.Do(func() { close(s.done) })
	return s.app.Shutdown()
}
