// Package api provides an HTTP API server for reading and recording memories.
package api

// Config is the API server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8081")
	ListenAddr string

	// MaxImageBytes bounds request bodies, and with them image uploads.
	// Defaults to DefaultMaxImageBytes.
	MaxImageBytes int
}

// DefaultMaxImageBytes is the default request body limit.
const DefaultMaxImageBytes = 10 << 20
