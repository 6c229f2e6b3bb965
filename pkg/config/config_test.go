package config_test

import (
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/cobra"

	"github.com/sheeehy/lena/pkg/config"
)

var _ = Describe("Configer config", func() {
	var tmpDir string

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "config-test-*")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	Describe("LoadConfig", func() {
		It("returns default config when no config file exists", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			cfg, err := c.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg).To(Equal(config.NewDefaultConfig()))
		})

		It("loads a valid config file", func() {
			data := `version = 0

[storage]
driver = "postgres"
postgres_dsn = "postgres://lena@localhost/lena"

[profile]
birth_date = "1990-04-02"
`
			err := os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(data), 0o600)
			Expect(err).NotTo(HaveOccurred())

			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			cfg, err := c.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Storage.Driver).To(Equal("postgres"))
			Expect(cfg.Storage.PostgresDSN).To(Equal("postgres://lena@localhost/lena"))
			Expect(cfg.Profile.BirthDate).To(Equal("1990-04-02"))
			Expect(cfg.Profile.StartYear).To(Equal(2003))
		})

		It("loads all config fields", func() {
			data := `version = 0

[storage]
driver = "supabase"
sqlite_path = "/tmp/lena.db"
postgres_dsn = "postgres://localhost/lena"

[supabase]
url = "https://project.supabase.co"
key = "anon"
table = "moments"

[blob]
provider = "supabase"
path = "/tmp/images"
base_url = "http://localhost:8081/images"
bucket = "photos"

[api]
listen = ":9091"

[client]
api_target = "http://myhost:9091"

[profile]
birth_date = "1999-12-31"
start_year = 1999

[events]
kafka_brokers = "localhost:9092,localhost:9093"
kafka_topic = "memories"

[timeline]
stagger_ms = 20
duration_ms = 250
animated_bars = 30
`
			err := os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(data), 0o600)
			Expect(err).NotTo(HaveOccurred())

			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			cfg, err := c.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Storage).To(Equal(config.StorageConfig{Driver: "supabase", SQLitePath: "/tmp/lena.db", PostgresDSN: "postgres://localhost/lena"}))
			Expect(cfg.Supabase).To(Equal(config.SupabaseConfig{URL: "https://project.supabase.co", Key: "anon", Table: "moments"}))
			Expect(cfg.Blob).To(Equal(config.BlobConfig{Provider: "supabase", Path: "/tmp/images", BaseURL: "http://localhost:8081/images", Bucket: "photos"}))
			Expect(cfg.API.Listen).To(Equal(":9091"))
			Expect(cfg.Client.APITarget).To(Equal("http://myhost:9091"))
			Expect(cfg.Profile).To(Equal(config.ProfileConfig{BirthDate: "1999-12-31", StartYear: 1999}))
			Expect(cfg.Events).To(Equal(config.EventsConfig{KafkaBrokers: "localhost:9092,localhost:9093", KafkaTopic: "memories"}))
			Expect(cfg.Timeline).To(Equal(config.TimelineConfig{StaggerMillis: 20, DurationMillis: 250, AnimatedBars: 30}))
		})

		It("returns error for malformed TOML", func() {
			err := os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte("not valid toml [[["), 0o600)
			Expect(err).NotTo(HaveOccurred())

			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			cfg, err := c.LoadConfig()
			Expect(err).To(HaveOccurred())
			Expect(cfg).To(BeNil())
		})

		It("returns error for unsupported config version", func() {
			err := os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte("version = 99\n"), 0o600)
			Expect(err).NotTo(HaveOccurred())

			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			cfg, err := c.LoadConfig()
			Expect(err).To(MatchError(ContainSubstring("unsupported config version")))
			Expect(cfg).To(BeNil())
		})
	})

	Describe("SaveConfig", func() {
		It("persists config to disk", func() {
			cfg := config.NewDefaultConfig()
			cfg.Storage.Driver = "remote"
			cfg.Client.APITarget = "http://remote:8081"

			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(c.SaveConfig(cfg)).To(Succeed())

			_, err = os.Stat(filepath.Join(tmpDir, "config.toml"))
			Expect(err).NotTo(HaveOccurred())

			loaded, err := c.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded).To(Equal(cfg))
		})

		It("returns error for nil config", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(c.SaveConfig(nil)).NotTo(Succeed())
		})
	})

	Describe("SetConfigValue", func() {
		It("sets a string config key", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			Expect(c.SetConfigValue("storage.driver", "postgres")).To(Succeed())

			cfg, err := c.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Storage.Driver).To(Equal("postgres"))
		})

		It("sets a uint config key", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			Expect(c.SetConfigValue("timeline.animated_bars", "45")).To(Succeed())

			val, err := c.GetConfigValue("timeline.animated_bars")
			Expect(err).NotTo(HaveOccurred())
			Expect(val).To(Equal("45"))
		})

		It("validates the birth date", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			Expect(c.SetConfigValue("profile.birth_date", "15 01 2003")).To(MatchError(ContainSubstring("invalid value")))
			Expect(c.SetConfigValue("profile.birth_date", "1995-07-20")).To(Succeed())

			val, err := c.GetConfigValue("profile.birth_date")
			Expect(err).NotTo(HaveOccurred())
			Expect(val).To(Equal("1995-07-20"))
		})

		It("rejects a non-positive start year", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(c.SetConfigValue("profile.start_year", "0")).NotTo(Succeed())
			Expect(c.SetConfigValue("profile.start_year", "year")).NotTo(Succeed())
		})

		It("returns error for unknown key", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(c.SetConfigValue("nonexistent_key", "value")).To(MatchError(ContainSubstring("unknown config key")))
		})

		It("returns error for invalid uint value", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(c.SetConfigValue("timeline.stagger_ms", "fast")).To(MatchError(ContainSubstring("invalid value")))
		})

		It("preserves existing values when setting a new key", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			Expect(c.SetConfigValue("supabase.url", "https://project.supabase.co")).To(Succeed())
			Expect(c.SetConfigValue("supabase.key", "anon")).To(Succeed())

			cfg, err := c.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Supabase.URL).To(Equal("https://project.supabase.co"))
			Expect(cfg.Supabase.Key).To(Equal("anon"))
		})
	})

	Describe("GetConfigValue", func() {
		It("returns default value when no config file exists", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			val, err := c.GetConfigValue("profile.birth_date")
			Expect(err).NotTo(HaveOccurred())
			Expect(val).To(Equal("2003-01-15"))
		})

		It("returns empty string for key with no default", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			val, err := c.GetConfigValue("storage.sqlite_path")
			Expect(err).NotTo(HaveOccurred())
			Expect(val).To(BeEmpty())
		})

		It("returns error for unknown key", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			_, err = c.GetConfigValue("nonexistent_key")
			Expect(err).To(MatchError(ContainSubstring("unknown config key")))
		})
	})

	Describe("ProfileConfig", func() {
		It("starts the timeline at the configured year", func() {
			p := config.ProfileConfig{StartYear: 2003}
			birth := time.Date(2005, time.March, 1, 0, 0, 0, 0, time.UTC)
			Expect(p.FirstYear(birth)).To(Equal(2003))
		})

		It("pulls the first year back to an earlier birth year", func() {
			p := config.ProfileConfig{BirthDate: "1995-07-20", StartYear: 2003}
			birth, err := p.Birth()
			Expect(err).NotTo(HaveOccurred())
			Expect(p.FirstYear(birth)).To(Equal(1995))
		})

		It("falls back to the default start year", func() {
			Expect(config.ProfileConfig{}.FirstYear(time.Time{})).To(Equal(2003))
		})
	})

	Describe("ValidConfigKeys", func() {
		It("lists every key once in section order", func() {
			keys := config.ValidConfigKeys()
			Expect(keys[0]).To(Equal("storage.driver"))
			Expect(keys).To(ContainElements("profile.birth_date", "events.kafka_brokers", "timeline.animated_bars"))

			seen := map[string]bool{}
			for _, k := range keys {
				Expect(seen[k]).To(BeFalse(), k)
				seen[k] = true
				Expect(config.IsValidConfigKey(k)).To(BeTrue())
			}
		})

		It("rejects unknown keys", func() {
			Expect(config.IsValidConfigKey("")).To(BeFalse())
			Expect(config.IsValidConfigKey("driver")).To(BeFalse())
		})
	})

	Describe("round-trip", func() {
		It("saves and loads config correctly with all fields", func() {
			cfg := &config.Config{
				Version:  config.CurrentV,
				Storage:  config.StorageConfig{Driver: "sqlite", SQLitePath: "/tmp/test.db", PostgresDSN: "postgres://x"},
				Supabase: config.SupabaseConfig{URL: "https://p.supabase.co", Key: "k", Table: "t"},
				Blob:     config.BlobConfig{Provider: "local", Path: "/tmp/img", BaseURL: "http://h/img", Bucket: "b"},
				API:      config.APIConfig{Listen: ":9091"},
				Client:   config.ClientConfig{APITarget: "http://myhost:9091"},
				Profile:  config.ProfileConfig{BirthDate: "2001-02-03", StartYear: 2001},
				Events:   config.EventsConfig{KafkaBrokers: "k:9092", KafkaTopic: "t"},
				Timeline: config.TimelineConfig{StaggerMillis: 5, DurationMillis: 100, AnimatedBars: 10},
			}

			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(c.SaveConfig(cfg)).To(Succeed())

			loaded, err := c.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded).To(Equal(cfg))
		})
	})
})

var _ = Describe("ProfileConfig", func() {
	It("parses the birth date", func() {
		t, err := config.ProfileConfig{BirthDate: "2003-01-15"}.Birth()
		Expect(err).NotTo(HaveOccurred())
		Expect(t).To(Equal(time.Date(2003, time.January, 15, 0, 0, 0, 0, time.UTC)))
	})

	It("leaves an empty birth date unbounded", func() {
		t, err := config.ProfileConfig{}.Birth()
		Expect(err).NotTo(HaveOccurred())
		Expect(t.IsZero()).To(BeTrue())
	})

	It("rejects a malformed birth date", func() {
		_, err := config.ProfileConfig{BirthDate: "yesterday"}.Birth()
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("PresetConfig", func() {
	It("returns the local preset as the defaults", func() {
		cfg, err := config.PresetConfig("local")
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg).To(Equal(config.NewDefaultConfig()))
	})

	It("points storage and images at supabase", func() {
		cfg, err := config.PresetConfig("Supabase")
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Storage.Driver).To(Equal("supabase"))
		Expect(cfg.Blob.Provider).To(Equal("supabase"))
	})

	It("sends storage and images through the API for remote", func() {
		cfg, err := config.PresetConfig("remote")
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Storage.Driver).To(Equal("remote"))
		Expect(cfg.Blob.Provider).To(Equal("remote"))
	})

	It("returns error for unknown preset", func() {
		_, err := config.PresetConfig("mainframe")
		Expect(err).To(MatchError(ContainSubstring("unknown preset")))
	})

	It("names every preset", func() {
		Expect(config.ValidPresetNames()).To(Equal([]string{"local", "supabase", "remote"}))
	})
})

var _ = Describe("InitViper", func() {
	var tmpDir string

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "viper-test-*")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	It("returns viper with defaults when no config file exists", func() {
		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		Expect(v.GetString("storage.driver")).To(Equal("sqlite"))
		Expect(v.GetString("api.listen")).To(Equal(":8081"))
		Expect(v.GetInt("profile.start_year")).To(Equal(2003))
		Expect(v.GetUint("timeline.animated_bars")).To(Equal(uint(90)))
	})

	It("reads config file values over defaults", func() {
		data := `[api]
listen = ":5555"
`
		Expect(os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(data), 0o600)).To(Succeed())

		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(v.GetString("api.listen")).To(Equal(":5555"))
		Expect(v.GetString("storage.driver")).To(Equal("sqlite"))
	})

	It("env vars take precedence over config file values", func() {
		data := `[storage]
driver = "postgres"
`
		Expect(os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(data), 0o600)).To(Succeed())
		GinkgoT().Setenv("LENA_STORAGE_DRIVER", "memory")

		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(v.GetString("storage.driver")).To(Equal("memory"))
	})

	It("resolves a full Config through FromViper", func() {
		GinkgoT().Setenv("LENA_PROFILE_BIRTH_DATE", "1988-08-08")

		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		cfg, err := config.FromViper(v)
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Profile.BirthDate).To(Equal("1988-08-08"))
		Expect(cfg.Timeline.StaggerMillis).To(Equal(uint(10)))
		Expect(cfg.Storage.Driver).To(Equal("sqlite"))
	})

	It("rejects an invalid value surfaced through viper", func() {
		GinkgoT().Setenv("LENA_PROFILE_BIRTH_DATE", "soon")

		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		_, err = config.FromViper(v)
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("BindFlags", func() {
	var tmpDir string

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "bindflag-test-*")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	It("binds cobra flags to viper keys via registry", func() {
		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		cmd := &cobra.Command{Use: "test"}
		var listen string
		config.AddStringFlag(cmd, config.Flags, config.FlagAPIListen, &listen)

		Expect(cmd.Flags().Set("listen", ":7777")).To(Succeed())
		config.BindRegisteredFlags(v, cmd, config.Flags, []string{config.FlagAPIListen})

		Expect(v.GetString("api.listen")).To(Equal(":7777"))
	})

	It("falls through to config when flag not set", func() {
		data := `[api]
listen = ":5555"
`
		Expect(os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(data), 0o600)).To(Succeed())

		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		cmd := &cobra.Command{Use: "test"}
		var listen string
		config.AddStringFlag(cmd, config.Flags, config.FlagAPIListen, &listen)
		config.BindRegisteredFlags(v, cmd, config.Flags, []string{config.FlagAPIListen})

		Expect(v.GetString("api.listen")).To(Equal(":5555"))
	})

	It("skips bindings for nonexistent registry keys", func() {
		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		cmd := &cobra.Command{Use: "test"}
		config.BindRegisteredFlags(v, cmd, config.FlagSet{}, []string{"nonexistent"})

		Expect(v.GetString("api.listen")).To(Equal(":8081"))
	})

	It("AddStringFlag pulls name, shorthand, and description from FlagSet", func() {
		cmd := &cobra.Command{Use: "test"}
		var target string
		config.AddStringFlag(cmd, config.Flags, config.FlagAPITarget, &target)

		f := cmd.Flags().Lookup("api-target")
		Expect(f).NotTo(BeNil())
		Expect(f.Shorthand).To(Equal("a"))
		Expect(f.Usage).To(Equal(config.Flags[config.FlagAPITarget].Description))
		Expect(f.DefValue).To(Equal("http://localhost:8081"))
	})

	It("ResolveCommand layers changed flags over the config-dir file", func() {
		data := `[storage]
driver = "postgres"

[api]
listen = ":5555"
`
		Expect(os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(data), 0o600)).To(Succeed())

		cmd := &cobra.Command{Use: "test"}
		cmd.Flags().String("config-dir", "", "")
		var listen, driver string
		config.AddStringFlag(cmd, config.Flags, config.FlagAPIListen, &listen)
		config.AddStringFlag(cmd, config.Flags, config.FlagStorageDriver, &driver)
		Expect(cmd.Flags().Set("config-dir", tmpDir)).To(Succeed())
		Expect(cmd.Flags().Set("storage", "memory")).To(Succeed())

		cfg, err := config.ResolveCommand(cmd, config.FlagAPIListen, config.FlagStorageDriver)
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Storage.Driver).To(Equal("memory"))
		Expect(cfg.API.Listen).To(Equal(":5555"))
	})

	It("AddUintFlag works for animated-bars", func() {
		cmd := &cobra.Command{Use: "test"}
		var bars uint
		config.AddUintFlag(cmd, config.Flags, config.FlagAnimatedBars, &bars)

		f := cmd.Flags().Lookup("animated-bars")
		Expect(f).NotTo(BeNil())
		Expect(f.DefValue).To(Equal("90"))
	})
})
