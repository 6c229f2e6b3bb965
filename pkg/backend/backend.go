// Package backend opens the storage driver, image uploader and event
// publisher selected by a lena config.
package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sheeehy/lena/pkg/blob"
	bloblocal "github.com/sheeehy/lena/pkg/blob/local"
	blobremote "github.com/sheeehy/lena/pkg/blob/remote"
	blobsupabase "github.com/sheeehy/lena/pkg/blob/supabase"
	"github.com/sheeehy/lena/pkg/config"
	"github.com/sheeehy/lena/pkg/dotdir"
	"github.com/sheeehy/lena/pkg/eventstream"
	"github.com/sheeehy/lena/pkg/eventstream/kafka"
	"github.com/sheeehy/lena/pkg/eventstream/worker"
	"github.com/sheeehy/lena/pkg/logger"
	"github.com/sheeehy/lena/pkg/storage"
	"github.com/sheeehy/lena/pkg/storage/inmemory"
	"github.com/sheeehy/lena/pkg/storage/postgres"
	"github.com/sheeehy/lena/pkg/storage/remote"
	"github.com/sheeehy/lena/pkg/storage/sqlite"
	"github.com/sheeehy/lena/pkg/storage/supabase"
)

// Storage driver names accepted by storage.driver.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverSupabase = "supabase"
	DriverRemote   = "remote"
	DriverMemory   = "memory"
)

// Blob provider names accepted by blob.provider.
const (
	BlobLocal    = "local"
	BlobSupabase = "supabase"
	BlobRemote   = "remote"
	BlobNone     = "none"
)

const (
	defaultSQLiteName = "lena.db"
	defaultImagesDir  = "images"
)

// Backend bundles the collaborators a lena process talks to.
type Backend struct {
	Driver   storage.Driver
	Uploader blob.Uploader

	// Bus delivers memoryCreated in process. Publisher fans out to the bus
	// and any external sink.
	Bus       *eventstream.Bus
	Publisher eventstream.Publisher

	// SQLitePath is the database file when Driver is sqlite, empty otherwise.
	SQLitePath string
}

// Open builds every collaborator cfg selects. Relative defaults resolve
// inside the .lena directory for configDir.
func Open(ctx context.Context, cfg *config.Config, configDir string, log *slog.Logger) (*Backend, error) {
	if cfg == nil {
		cfg = config.NewDefaultConfig()
	}
	if log == nil {
		log = logger.Nop()
	}

	b := &Backend{}
	dm := dotdir.NewManager()

	driver, err := b.newStorageDriver(ctx, cfg, configDir, dm, log)
	if err != nil {
		return nil, err
	}
	b.Driver = driver

	b.Uploader, err = newUploader(cfg, configDir, dm, driver)
	if err != nil {
		driver.Close()
		return nil, err
	}

	b.Bus = eventstream.NewBus()
	publishers := eventstream.Fanout{b.Bus}
	if brokers := splitList(cfg.Events.KafkaBrokers); len(brokers) > 0 {
		kp, err := kafka.NewPublisher(kafka.Config{
			Brokers: brokers,
			Topic:   cfg.Events.KafkaTopic,
		})
		if err != nil {
			driver.Close()
			return nil, fmt.Errorf("creating kafka publisher: %w", err)
		}
		pool, err := worker.NewPool(&worker.Config{Publisher: kp, Logger: log})
		if err != nil {
			kp.Close()
			driver.Close()
			return nil, fmt.Errorf("creating event worker pool: %w", err)
		}
		log.Info("publishing memory events to kafka", "brokers", brokers, "topic", cfg.Events.KafkaTopic)
		publishers = append(publishers, pool)
	}
	b.Publisher = publishers

	return b, nil
}

// Close shuts down the publishers and the storage driver.
func (b *Backend) Close() error {
	var errs []error
	if b.Publisher != nil {
		errs = append(errs, b.Publisher.Close())
	}
	if b.Driver != nil {
		errs = append(errs, b.Driver.Close())
	}
	return errors.Join(errs...)
}

func (b *Backend) newStorageDriver(ctx context.Context, cfg *config.Config, configDir string, dm *dotdir.Manager, log *slog.Logger) (storage.Driver, error) {
	switch name := strings.ToLower(cfg.Storage.Driver); name {
	case DriverSQLite, "":
		path := cfg.Storage.SQLitePath
		if path == "" {
			var err error
			path, err = dm.Path(configDir, defaultSQLiteName)
			if err != nil {
				return nil, err
			}
		}
		driver, err := sqlite.NewDriver(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite storer: %w", err)
		}
		b.SQLitePath = path
		log.Info("using SQLite storage", "path", path)
		return driver, nil

	case DriverPostgres:
		if cfg.Storage.PostgresDSN == "" {
			return nil, errors.New("storage.postgres_dsn is required for the postgres driver")
		}
		driver, err := postgres.NewDriver(ctx, cfg.Storage.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("failed to create PostgreSQL storer: %w", err)
		}
		log.Info("using PostgreSQL storage")
		return driver, nil

	case DriverSupabase:
		driver, err := supabase.NewDriver(cfg.Supabase.URL, cfg.Supabase.Key, cfg.Supabase.Table)
		if err != nil {
			return nil, fmt.Errorf("failed to create Supabase storer: %w", err)
		}
		log.Info("using Supabase storage", "url", cfg.Supabase.URL)
		return driver, nil

	case DriverRemote:
		driver, err := remote.NewDriver(remote.Config{
			Target: cfg.Client.APITarget,
			Logger: log,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create remote storer: %w", err)
		}
		log.Info("using remote storage", "target", cfg.Client.APITarget)
		return driver, nil

	case DriverMemory:
		log.Info("using in-memory storage")
		return inmemory.NewDriver(), nil

	default:
		return nil, fmt.Errorf("unknown storage driver %q (available: %s)", name,
			strings.Join([]string{DriverSQLite, DriverPostgres, DriverSupabase, DriverRemote, DriverMemory}, ", "))
	}
}

func newUploader(cfg *config.Config, configDir string, dm *dotdir.Manager, driver storage.Driver) (blob.Uploader, error) {
	switch name := strings.ToLower(cfg.Blob.Provider); name {
	case BlobLocal, "":
		path := cfg.Blob.Path
		if path == "" {
			var err error
			path, err = dm.Path(configDir, defaultImagesDir)
			if err != nil {
				return nil, err
			}
		}
		return bloblocal.New(path, cfg.Blob.BaseURL)

	case BlobSupabase:
		sd, ok := driver.(*supabase.Driver)
		if !ok {
			var err error
			sd, err = supabase.NewDriver(cfg.Supabase.URL, cfg.Supabase.Key, cfg.Supabase.Table)
			if err != nil {
				return nil, fmt.Errorf("failed to create Supabase uploader: %w", err)
			}
		}
		return blobsupabase.New(sd.Client(), cfg.Blob.Bucket)

	case BlobRemote:
		return blobremote.New(cfg.Client.APITarget, nil)

	case BlobNone:
		return nil, nil

	default:
		return nil, fmt.Errorf("unknown blob provider %q (available: %s)", name,
			strings.Join([]string{BlobLocal, BlobSupabase, BlobRemote, BlobNone}, ", "))
	}
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
