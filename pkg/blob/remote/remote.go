// Package remote uploads image blobs through a lena API server.
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

// Uploader implements blob.Uploader by posting to /api/images.
type Uploader struct {
	target string
	client *http.Client
}

type imageResponse struct {
	URL   string `json:"url"`
	Error string `json:"error"`
}

// New creates an uploader for the API at target, e.g. "http://localhost:8081".
// A nil client gets a 60s timeout.
func New(target string, client *http.Client) (*Uploader, error) {
	if target == "" {
		return nil, errors.New("remote target is required")
	}
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	return &Uploader{target: strings.TrimRight(target, "/"), client: client}, nil
}

// Upload streams r as the multipart "image" field and returns the URL the
// server stored it under. The server names the object.
func (u *Uploader) Upload(ctx context.Context, name string, r io.Reader) (string, error) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		part, err := mw.CreateFormFile("image", name)
		if err == nil {
			_, err = io.Copy(part, r)
		}
		if err == nil {
			err = mw.Close()
		}
		pw.CloseWithError(err)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.target+"/api/images", pr)
	if err != nil {
		pr.Close()
		return "", fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := u.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("uploading %s: %w", name, err)
	}
	defer resp.Body.Close()

	var out imageResponse
	_ = json.NewDecoder(resp.Body).Decode(&out)
	if resp.StatusCode != http.StatusCreated {
		if out.Error != "" {
			return "", fmt.Errorf("uploading %s: %d: %s", name, resp.StatusCode, out.Error)
		}
		return "", fmt.Errorf("uploading %s: unexpected status %d", name, resp.StatusCode)
	}
	if out.URL == "" {
		return "", fmt.Errorf("uploading %s: server returned no url", name)
	}
	return out.URL, nil
}
