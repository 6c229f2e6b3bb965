// Package remote provides a storage driver that talks to a lena API server
// over HTTP. Calls go through a circuit breaker so a dead server fails fast.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/sheeehy/lena/pkg/day"
	"github.com/sheeehy/lena/pkg/eventstream"
	"github.com/sheeehy/lena/pkg/logger"
	"github.com/sheeehy/lena/pkg/sse"
	"github.com/sheeehy/lena/pkg/storage"
)

// Config configures the remote driver.
type Config struct {
	// Target is the API base URL, e.g. "http://localhost:8081".
	Target string

	// Timeout bounds each HTTP request. Defaults to 10s.
	Timeout time.Duration

	// HTTPClient overrides the default client.
	HTTPClient *http.Client

	// Logger receives breaker state changes.
	Logger *slog.Logger
}

// Driver implements storage.Driver against the lena HTTP API.
type Driver struct {
	base    *url.URL
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
	logger  *slog.Logger
}

type memoryResponse struct {
	Memory day.Memory `json:"memory"`
}

type listResponse struct {
	Memories []day.Memory `json:"memories"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// NewDriver creates a remote driver for cfg.Target.
func NewDriver(cfg Config) (*Driver, error) {
	if cfg.Target == "" {
		return nil, errors.New("remote target is required")
	}
	base, err := url.Parse(strings.TrimRight(cfg.Target, "/"))
	if err != nil {
		return nil, fmt.Errorf("parsing remote target: %w", err)
	}

	client := cfg.HTTPClient
	if client == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = 10 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}

	log := cfg.Logger
	if log == nil {
		log = logger.Nop()
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "lena-remote",
		MaxRequests: 1,
		Interval:    30 * time.Second,
		Timeout:     15 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
		},
		// client errors are answers, not outages
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			var notFound storage.NotFoundError
			var dup storage.DuplicateError
			return errors.As(err, &notFound) || errors.As(err, &dup)
		},
	})

	return &Driver{base: base, client: client, breaker: breaker, logger: log}, nil
}

// Create posts the memory to the API.
func (d *Driver) Create(ctx context.Context, m day.Memory) error {
	body, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("encoding memory: %w", err)
	}

	_, err = d.breaker.Execute(func() (any, error) {
		var out memoryResponse
		return nil, d.do(ctx, http.MethodPost, "/api/memories", body, http.StatusCreated, &out, m.ID)
	})
	return err
}

// Get fetches a memory by id.
func (d *Driver) Get(ctx context.Context, id string) (day.Memory, error) {
	res, err := d.breaker.Execute(func() (any, error) {
		var out memoryResponse
		if err := d.do(ctx, http.MethodGet, "/api/memories/"+url.PathEscape(id), nil, http.StatusOK, &out, id); err != nil {
			return nil, err
		}
		return out.Memory, nil
	})
	if err != nil {
		return day.Memory{}, err
	}
	return res.(day.Memory), nil
}

// List fetches every memory.
func (d *Driver) List(ctx context.Context) ([]day.Memory, error) {
	res, err := d.breaker.Execute(func() (any, error) {
		var out listResponse
		if err := d.do(ctx, http.MethodGet, "/api/memories", nil, http.StatusOK, &out, ""); err != nil {
			return nil, err
		}
		return out.Memories, nil
	})
	if err != nil {
		return nil, err
	}
	return res.([]day.Memory), nil
}

// Watch subscribes to the server's event stream and signals on the returned
// channel whenever a memory is created. Signals coalesce while the receiver
// is busy. The channel closes when ctx ends or the stream drops.
func (d *Driver) Watch(ctx context.Context) (<-chan struct{}, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.base.String()+"/api/events", nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")

	// the request timeout would cut the stream
	stream := &http.Client{Transport: d.client.Transport}
	resp, err := stream.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET /api/events: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("GET /api/events: unexpected status %d", resp.StatusCode)
	}

	changes := make(chan struct{}, 1)
	go func() {
		defer close(changes)
		defer resp.Body.Close()

		r := sse.NewReader(resp.Body)
		for {
			ev, err := r.Next()
			if err != nil {
				if ctx.Err() == nil {
					d.logger.Warn("event stream ended", "error", err)
				}
				return
			}
			if ev == nil {
				return
			}
			if ev.Type != eventstream.EventTypeMemoryCreated {
				continue
			}
			select {
			case changes <- struct{}{}:
			default:
			}
		}
	}()

	return changes, nil
}

// Close releases idle connections.
func (d *Driver) Close() error {
	d.client.CloseIdleConnections()
	return nil
}

func (d *Driver) do(ctx context.Context, method, path string, body []byte, want int, out any, id string) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, d.base.String()+path, reader)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case want:
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
		return nil
	case http.StatusNotFound:
		return storage.NotFoundError{ID: id}
	case http.StatusConflict:
		return storage.DuplicateError{ID: id}
	}

	var apiErr errorResponse
	_ = json.NewDecoder(resp.Body).Decode(&apiErr)
	if apiErr.Error != "" {
		return fmt.Errorf("%s %s: %d: %s", method, path, resp.StatusCode, apiErr.Error)
	}
	return fmt.Errorf("%s %s: unexpected status %d", method, path, resp.StatusCode)
}
