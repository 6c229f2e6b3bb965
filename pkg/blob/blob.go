// Package blob uploads memory images and returns a durable URI for them.
package blob

import (
	"context"
	"io"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// Uploader stores a blob under a unique name and returns its public URI.
type Uploader interface {
	Upload(ctx context.Context, name string, r io.Reader) (string, error)
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// ObjectName prefixes the base of name with a fresh uuid so uploads never
// collide: "<uuid>-<name>".
func ObjectName(name string) string {
	base := filepath.Base(name)
	base = unsafeChars.ReplaceAllString(base, "_")
	base = strings.Trim(base, "_")
	if base == "" || base == "." {
		base = "image"
	}
	return uuid.NewString() + "-" + base
}

// ContentType guesses an image content type from the file extension.
func ContentType(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	case ".heic":
		return "image/heic"
	default:
		return "application/octet-stream"
	}
}
