package config

const (
	defaultStorageDriver = "sqlite"
	defaultSupabaseTable = "memories"

	defaultBlobProvider = "local"
	defaultBlobBucket   = "memories"

	defaultAPIListen       = ":8081"
	defaultClientAPITarget = "http://localhost:8081"

	defaultBirthDate = "2003-01-15"
	defaultStartYear = 2003

	defaultKafkaTopic = "lena.memories"

	defaultStaggerMillis  = 10
	defaultDurationMillis = 500
	defaultAnimatedBars   = 90
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Storage: StorageConfig{
			Driver: defaultStorageDriver,
		},
		Supabase: SupabaseConfig{
			Table: defaultSupabaseTable,
		},
		Blob: BlobConfig{
			Provider: defaultBlobProvider,
			Bucket:   defaultBlobBucket,
		},
		API: APIConfig{
			Listen: defaultAPIListen,
		},
		Client: ClientConfig{
			APITarget: defaultClientAPITarget,
		},
		Profile: ProfileConfig{
			BirthDate: defaultBirthDate,
			StartYear: defaultStartYear,
		},
		Events: EventsConfig{
			KafkaTopic: defaultKafkaTopic,
		},
		Timeline: TimelineConfig{
			StaggerMillis:  defaultStaggerMillis,
			DurationMillis: defaultDurationMillis,
			AnimatedBars:   defaultAnimatedBars,
		},
	}
}
