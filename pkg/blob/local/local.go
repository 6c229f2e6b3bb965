// Package local stores image blobs on disk with diskv and serves them from a
// configured base URL.
package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/peterbourgon/diskv/v3"

	"github.com/sheeehy/lena/pkg/blob"
)

// Store implements blob.Uploader on a diskv directory.
type Store struct {
	d       *diskv.Diskv
	baseURL string
}

// New creates a store rooted at basePath. Uploaded objects resolve to
// baseURL/<object>; when baseURL is empty a file:// URI is returned.
func New(basePath, baseURL string) (*Store, error) {
	if basePath == "" {
		return nil, errors.New("blob base path is required")
	}

	d := diskv.New(diskv.Options{
		BasePath: basePath,
		// two levels of fan-out from the object's first four characters
		Transform: func(key string) []string {
			if len(key) < 4 {
				return []string{}
			}
			return []string{key[0:2], key[2:4]}
		},
		CacheSizeMax: 4 * 1024 * 1024,
	})

	return &Store{d: d, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Upload writes r under a unique object name derived from name.
func (s *Store) Upload(ctx context.Context, name string, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	key := blob.ObjectName(name)
	if err := s.d.WriteStream(key, r, true); err != nil {
		return "", fmt.Errorf("writing blob %s: %w", key, err)
	}

	return s.URL(key), nil
}

// URL returns the public URI of an object key.
func (s *Store) URL(key string) string {
	if s.baseURL == "" {
		return (&url.URL{Scheme: "file", Path: s.Path(key)}).String()
	}
	return s.baseURL + "/" + url.PathEscape(key)
}

// Path returns the on-disk location of an object key.
func (s *Store) Path(key string) string {
	parts := append([]string{s.d.BasePath}, s.d.Transform(key)...)
	return filepath.Join(append(parts, key)...)
}

// Open returns a reader over a stored object.
func (s *Store) Open(key string) (io.ReadCloser, error) {
	if !s.d.Has(key) {
		return nil, fmt.Errorf("blob %s: not found", key)
	}
	return s.d.ReadStream(key, false)
}
