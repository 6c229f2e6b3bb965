// Package supabase uploads image blobs to a Supabase Storage bucket.
package supabase

import (
	"context"
	"errors"
	"fmt"
	"io"

	storage_go "github.com/supabase-community/storage-go"
	supa "github.com/supabase-community/supabase-go"

	"github.com/sheeehy/lena/pkg/blob"
)

// DefaultBucket is the bucket memory images are uploaded to.
const DefaultBucket = "memories"

// Uploader implements blob.Uploader with Supabase Storage.
type Uploader struct {
	client *supa.Client
	bucket string
}

// New creates an uploader for bucket. client may be shared with the
// supabase storage driver.
func New(client *supa.Client, bucket string) (*Uploader, error) {
	if client == nil {
		return nil, errors.New("supabase client is required")
	}
	if bucket == "" {
		bucket = DefaultBucket
	}
	return &Uploader{client: client, bucket: bucket}, nil
}

// Upload stores r as "<uuid>-<name>" and returns the object's public URL.
func (u *Uploader) Upload(ctx context.Context, name string, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	path := blob.ObjectName(name)
	contentType := blob.ContentType(name)
	if _, err := u.client.Storage.UploadFile(u.bucket, path, r, storage_go.FileOptions{
		ContentType: &contentType,
	}); err != nil {
		return "", fmt.Errorf("uploading %s: %w", path, err)
	}

	res := u.client.Storage.GetPublicUrl(u.bucket, path)
	if res.SignedURL == "" {
		return "", fmt.Errorf("no public url for %s", path)
	}
	return res.SignedURL, nil
}
