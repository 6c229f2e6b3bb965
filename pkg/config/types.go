package config

import (
	"fmt"
	"strconv"
	"time"

	"github.com/sheeehy/lena/pkg/day"
)

// Config represents the persistent lena configuration stored as config.toml
// in the .lena/ directory. The TOML layout uses sections for logical grouping.
type Config struct {
	Version  int            `toml:"version"`
	Storage  StorageConfig  `toml:"storage"`
	Supabase SupabaseConfig `toml:"supabase"`
	Blob     BlobConfig     `toml:"blob"`
	API      APIConfig      `toml:"api"`
	Client   ClientConfig   `toml:"client"`
	Profile  ProfileConfig  `toml:"profile"`
	Events   EventsConfig   `toml:"events"`
	Timeline TimelineConfig `toml:"timeline"`
}

// StorageConfig selects the memory persistence backend.
type StorageConfig struct {
	// Driver is one of sqlite, postgres, supabase, remote or memory.
	Driver      string `toml:"driver,omitempty"`
	SQLitePath  string `toml:"sqlite_path,omitempty"`
	PostgresDSN string `toml:"postgres_dsn,omitempty"`
}

// SupabaseConfig holds the project credentials shared by the supabase
// storage driver and the supabase blob uploader.
type SupabaseConfig struct {
	URL   string `toml:"url,omitempty"`
	Key   string `toml:"key,omitempty"`
	Table string `toml:"table,omitempty"`
}

// BlobConfig selects where memory images are uploaded.
type BlobConfig struct {
	// Provider is local, supabase, remote or none.
	Provider string `toml:"provider,omitempty"`
	Path     string `toml:"path,omitempty"`
	BaseURL  string `toml:"base_url,omitempty"`
	Bucket   string `toml:"bucket,omitempty"`
}

// APIConfig holds API server settings.
type APIConfig struct {
	Listen string `toml:"listen,omitempty"`
}

// ClientConfig holds settings for commands that talk to a running API
// server. Values are full URLs (scheme + host + port).
type ClientConfig struct {
	APITarget string `toml:"api_target,omitempty"`
}

// ProfileConfig holds per-user timeline bounds.
type ProfileConfig struct {
	// BirthDate is the earliest accepted memory date, as YYYY-MM-DD.
	BirthDate string `toml:"birth_date,omitempty"`
	StartYear int    `toml:"start_year,omitempty"`
}

// Birth parses BirthDate. An empty value yields the zero time.
func (p ProfileConfig) Birth() (time.Time, error) {
	if p.BirthDate == "" {
		return time.Time{}, nil
	}
	t, err := day.ParseKey(p.BirthDate)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid profile.birth_date: %w", err)
	}
	return t, nil
}

// FirstYear returns the first year the timeline materializes: StartYear,
// pulled back to the birth year so every acceptable memory date has a day.
func (p ProfileConfig) FirstYear(birth time.Time) int {
	start := p.StartYear
	if start <= 0 {
		start = defaultStartYear
	}
	if !birth.IsZero() && birth.Year() < start {
		start = birth.Year()
	}
	return start
}

// EventsConfig configures where memoryCreated events are published in
// addition to the in-process bus.
type EventsConfig struct {
	// KafkaBrokers is a comma separated broker list. Empty disables Kafka.
	KafkaBrokers string `toml:"kafka_brokers,omitempty"`
	KafkaTopic   string `toml:"kafka_topic,omitempty"`
}

// TimelineConfig tunes the timeline reveal animation.
type TimelineConfig struct {
	StaggerMillis  uint `toml:"stagger_ms,omitempty"`
	DurationMillis uint `toml:"duration_ms,omitempty"`
	AnimatedBars   uint `toml:"animated_bars,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

func stringKey(field func(c *Config) *string) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return *field(c) },
		set: func(c *Config, v string) error { *field(c) = v; return nil },
	}
}

func uintKey(name string, field func(c *Config) *uint) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string {
			if *field(c) == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(*field(c)), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*field(c) = uint(n)
			return nil
		},
	}
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"storage.driver":       stringKey(func(c *Config) *string { return &c.Storage.Driver }),
	"storage.sqlite_path":  stringKey(func(c *Config) *string { return &c.Storage.SQLitePath }),
	"storage.postgres_dsn": stringKey(func(c *Config) *string { return &c.Storage.PostgresDSN }),
	"supabase.url":         stringKey(func(c *Config) *string { return &c.Supabase.URL }),
	"supabase.key":         stringKey(func(c *Config) *string { return &c.Supabase.Key }),
	"supabase.table":       stringKey(func(c *Config) *string { return &c.Supabase.Table }),
	"blob.provider":        stringKey(func(c *Config) *string { return &c.Blob.Provider }),
	"blob.path":            stringKey(func(c *Config) *string { return &c.Blob.Path }),
	"blob.base_url":        stringKey(func(c *Config) *string { return &c.Blob.BaseURL }),
	"blob.bucket":          stringKey(func(c *Config) *string { return &c.Blob.Bucket }),
	"api.listen":           stringKey(func(c *Config) *string { return &c.API.Listen }),
	"client.api_target":    stringKey(func(c *Config) *string { return &c.Client.APITarget }),
	"profile.birth_date": {
		get: func(c *Config) string { return c.Profile.BirthDate },
		set: func(c *Config, v string) error {
			if _, err := day.ParseKey(v); err != nil {
				return fmt.Errorf("invalid value for profile.birth_date: %w", err)
			}
			c.Profile.BirthDate = v
			return nil
		},
	},
	"profile.start_year": {
		get: func(c *Config) string {
			if c.Profile.StartYear == 0 {
				return ""
			}
			return strconv.Itoa(c.Profile.StartYear)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				return fmt.Errorf("invalid value for profile.start_year: %q", v)
			}
			c.Profile.StartYear = n
			return nil
		},
	},
	"events.kafka_brokers":   stringKey(func(c *Config) *string { return &c.Events.KafkaBrokers }),
	"events.kafka_topic":     stringKey(func(c *Config) *string { return &c.Events.KafkaTopic }),
	"timeline.stagger_ms":    uintKey("timeline.stagger_ms", func(c *Config) *uint { return &c.Timeline.StaggerMillis }),
	"timeline.duration_ms":   uintKey("timeline.duration_ms", func(c *Config) *uint { return &c.Timeline.DurationMillis }),
	"timeline.animated_bars": uintKey("timeline.animated_bars", func(c *Config) *uint { return &c.Timeline.AnimatedBars }),
}

// orderedKeys lists the keys in TOML section order.
var orderedKeys = []string{
	"storage.driver",
	"storage.sqlite_path",
	"storage.postgres_dsn",
	"supabase.url",
	"supabase.key",
	"supabase.table",
	"blob.provider",
	"blob.path",
	"blob.base_url",
	"blob.bucket",
	"api.listen",
	"client.api_target",
	"profile.birth_date",
	"profile.start_year",
	"events.kafka_brokers",
	"events.kafka_topic",
	"timeline.stagger_ms",
	"timeline.duration_ms",
	"timeline.animated_bars",
}
