// Package sqldriver implements storage.Driver over database/sql using ent's
// dialect-aware SQL builder. The sqlite and postgres packages open a
// connection and hand it to New.
package sqldriver

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"

	"github.com/sheeehy/lena/pkg/day"
	"github.com/sheeehy/lena/pkg/storage"
)

const table = "memories"

var columns = []string{"id", "date", "title", "description", "location", "image", "created_at"}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS memories (
		id TEXT PRIMARY KEY,
		date TEXT NOT NULL,
		title TEXT NOT NULL,
		description TEXT NOT NULL,
		location TEXT NOT NULL DEFAULT '',
		image TEXT NOT NULL DEFAULT '',
		created_at BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS memories_date_idx ON memories (date)`,
}

// Driver implements storage.Driver for any SQL dialect ent supports.
type Driver struct {
	drv     *entsql.Driver
	dialect string

	// mu guards last so created_at is strictly increasing per process.
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

// New wraps db with ent's SQL driver for the given dialect and creates the
// memories table when missing.
func New(ctx context.Context, dialectName string, db *sql.DB) (*Driver, error) {
	switch dialectName {
	case dialect.SQLite, dialect.Postgres, dialect.MySQL:
	default:
		return nil, fmt.Errorf("unsupported dialect %q", dialectName)
	}

	d := &Driver{
		drv:     entsql.OpenDB(dialectName, db),
		dialect: dialectName,
		now:     time.Now,
	}

	if err := d.migrate(ctx); err != nil {
		d.drv.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return d, nil
}

// Dialect returns the SQL dialect the driver speaks.
func (d *Driver) Dialect() string {
	return d.dialect
}

func (d *Driver) migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if err := d.drv.Exec(ctx, stmt, []any{}, nil); err != nil {
			return err
		}
	}
	return nil
}

// Create inserts a memory row.
func (d *Driver) Create(ctx context.Context, m day.Memory) error {
	if m.ID == "" {
		return errors.New("cannot store memory without id")
	}

	_, err := d.Get(ctx, m.ID)
	if err == nil {
		return storage.DuplicateError{ID: m.ID}
	}
	var notFound storage.NotFoundError
	if !errors.As(err, &notFound) {
		return err
	}

	query, args := entsql.Dialect(d.dialect).
		Insert(table).
		Columns(columns...).
		Values(m.ID, m.Date, m.Title, m.Description, m.Location, m.Image, d.stamp()).
		Query()

	if err := d.drv.Exec(ctx, query, args, nil); err != nil {
		return fmt.Errorf("inserting memory %s: %w", m.ID, err)
	}
	return nil
}

// Get retrieves a memory by id.
func (d *Driver) Get(ctx context.Context, id string) (day.Memory, error) {
	query, args := entsql.Dialect(d.dialect).
		Select(columns...).
		From(entsql.Table(table)).
		Where(entsql.EQ("id", id)).
		Limit(1).
		Query()

	memories, err := d.query(ctx, query, args)
	if err != nil {
		return day.Memory{}, err
	}
	if len(memories) == 0 {
		return day.Memory{}, storage.NotFoundError{ID: id}
	}
	return memories[0], nil
}

// List returns all memories by date, newest first within a day.
func (d *Driver) List(ctx context.Context) ([]day.Memory, error) {
	query, args := entsql.Dialect(d.dialect).
		Select(columns...).
		From(entsql.Table(table)).
		OrderBy(entsql.Asc("date"), entsql.Desc("created_at")).
		Query()

	return d.query(ctx, query, args)
}

// Close closes the underlying database.
func (d *Driver) Close() error {
	return d.drv.Close()
}

func (d *Driver) query(ctx context.Context, query string, args []any) ([]day.Memory, error) {
	var rows entsql.Rows
	if err := d.drv.Query(ctx, query, args, &rows); err != nil {
		return nil, fmt.Errorf("querying memories: %w", err)
	}
	defer rows.Close()

	out := make([]day.Memory, 0)
	for rows.Next() {
		var (
			m       day.Memory
			created int64
		)
		if err := rows.Scan(&m.ID, &m.Date, &m.Title, &m.Description, &m.Location, &m.Image, &created); err != nil {
			return nil, fmt.Errorf("scanning memory: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating memories: %w", err)
	}
	return out, nil
}

// stamp returns a creation timestamp in nanoseconds that never repeats
// within this driver.
func (d *Driver) stamp() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()

	ts := d.now().UnixNano()
	if ts <= d.last {
		ts = d.last + 1
	}
	d.last = ts
	return ts
}
