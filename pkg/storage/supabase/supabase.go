// Package supabase provides a storage driver over a Supabase (PostgREST)
// table.
package supabase

import (
	"context"
	"errors"
	"fmt"
	"sort"

	supa "github.com/supabase-community/supabase-go"

	"github.com/sheeehy/lena/pkg/day"
	"github.com/sheeehy/lena/pkg/storage"
)

// DefaultTable is the table memories live in.
const DefaultTable = "memories"

// row mirrors the memories table. created_at is filled by the database.
type row struct {
	ID          string `json:"id"`
	Date        string `json:"date"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Location    string `json:"location,omitempty"`
	Image       string `json:"image,omitempty"`
	CreatedAt   string `json:"created_at,omitempty"`
}

func (r row) memory() day.Memory {
	return day.Memory{
		ID:          r.ID,
		Date:        r.Date,
		Title:       r.Title,
		Description: r.Description,
		Location:    r.Location,
		Image:       r.Image,
	}
}

// Driver implements storage.Driver using supabase-go.
type Driver struct {
	client *supa.Client
	table  string
}

// NewDriver creates a client for the project at url authenticated with key.
func NewDriver(url, key, table string) (*Driver, error) {
	if url == "" || key == "" {
		return nil, errors.New("supabase url and key are required")
	}
	if table == "" {
		table = DefaultTable
	}

	client, err := supa.NewClient(url, key, nil)
	if err != nil {
		return nil, fmt.Errorf("creating supabase client: %w", err)
	}

	return &Driver{client: client, table: table}, nil
}

// Client exposes the underlying client so the blob uploader can share it.
func (d *Driver) Client() *supa.Client {
	return d.client
}

// Create inserts a memory row.
func (d *Driver) Create(ctx context.Context, m day.Memory) error {
	if m.ID == "" {
		return errors.New("cannot store memory without id")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if _, err := d.Get(ctx, m.ID); err == nil {
		return storage.DuplicateError{ID: m.ID}
	}

	var inserted []row
	r := row{
		ID:          m.ID,
		Date:        m.Date,
		Title:       m.Title,
		Description: m.Description,
		Location:    m.Location,
		Image:       m.Image,
	}
	if _, err := d.client.From(d.table).Insert(r, false, "", "representation", "").ExecuteTo(&inserted); err != nil {
		return fmt.Errorf("inserting memory %s: %w", m.ID, err)
	}
	return nil
}

// Get retrieves a memory by id.
func (d *Driver) Get(ctx context.Context, id string) (day.Memory, error) {
	if err := ctx.Err(); err != nil {
		return day.Memory{}, err
	}

	var rows []row
	if _, err := d.client.From(d.table).Select("*", "", false).Eq("id", id).ExecuteTo(&rows); err != nil {
		return day.Memory{}, fmt.Errorf("fetching memory %s: %w", id, err)
	}
	if len(rows) == 0 {
		return day.Memory{}, storage.NotFoundError{ID: id}
	}
	return rows[0].memory(), nil
}

// List returns all memories by date, newest first within a day.
func (d *Driver) List(ctx context.Context) ([]day.Memory, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var rows []row
	if _, err := d.client.From(d.table).Select("*", "", false).ExecuteTo(&rows); err != nil {
		return nil, fmt.Errorf("listing memories: %w", err)
	}

	return sortRows(rows), nil
}

// Close is a no-op; the client holds no persistent connection.
func (d *Driver) Close() error {
	return nil
}

func sortRows(rows []row) []day.Memory {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Date != rows[j].Date {
			return rows[i].Date < rows[j].Date
		}
		return rows[i].CreatedAt > rows[j].CreatedAt
	})

	out := make([]day.Memory, len(rows))
	for i, r := range rows {
		out[i] = r.memory()
	}
	return out
}
