package testutils

import (
	"context"
	"io"
	"sync"

	"github.com/sheeehy/lena/pkg/day"
)

// FakeFetcher returns configurable memories or an error from List.
type FakeFetcher struct {
	mu       sync.Mutex
	Memories []day.Memory
	Err      error
	Calls    int
}

func (f *FakeFetcher) List(_ context.Context) ([]day.Memory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Calls++
	if f.Err != nil {
		return nil, f.Err
	}
	out := make([]day.Memory, len(f.Memories))
	copy(out, f.Memories)
	return out, nil
}

// FakePersister records created memories. Err fails every call; Block, when
// set, holds each call until it is closed.
type FakePersister struct {
	mu      sync.Mutex
	Created []day.Memory
	Err     error
	Block   chan struct{}

	// OnCreate runs before the call returns, with the memory being created.
	OnCreate func(m day.Memory)
}

func (p *FakePersister) Create(ctx context.Context, m day.Memory) error {
	if p.Block != nil {
		select {
		case <-p.Block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if p.OnCreate != nil {
		p.OnCreate(m)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return p.Err
	}
	p.Created = append(p.Created, m)
	return nil
}

// Calls returns a copy of the memories created so far.
func (p *FakePersister) Calls() []day.Memory {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]day.Memory, len(p.Created))
	copy(out, p.Created)
	return out
}

// FakeUploader records uploaded names and returns URI for each.
type FakeUploader struct {
	mu    sync.Mutex
	Names []string
	URI   string
	Err   error
	Block chan struct{}
}

func (u *FakeUploader) Upload(ctx context.Context, name string, r io.Reader) (string, error) {
	if u.Block != nil {
		select {
		case <-u.Block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if _, err := io.Copy(io.Discard, r); err != nil {
		return "", err
	}

	u.mu.Lock()
	defer u.mu.Unlock()
	if u.Err != nil {
		return "", u.Err
	}
	u.Names = append(u.Names, name)
	if u.URI == "" {
		return "https://blobs.example.com/" + name, nil
	}
	return u.URI, nil
}

// Uploads returns a copy of the uploaded names.
func (u *FakeUploader) Uploads() []string {
	u.mu.Lock()
	defer u.mu.Unlock()

	out := make([]string, len(u.Names))
	copy(out, u.Names)
	return out
}
