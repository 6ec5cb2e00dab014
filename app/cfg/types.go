package cfg

type Cfg struct {
	// Storage configuration
	DBPath string

	// Application configuration
	SourcesDir        string
	Port              string
	WorkerCount       int
	SchedulerInterval int
	APIAccessKey      string

	// Pipeline defaults, per-collection configs may override
	DefaultMaxItems    int
	PurgeRetentionDays int

	// External collaborators
	SearchIndexURL string
	SearchIndexKey string
	NATSURL        string
	GeminiAPIKey   string
	GeminiModel    string

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}
