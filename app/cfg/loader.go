package cfg

import (
	"cmp"
	"fmt"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Storage configuration
	DBPath string `long:"db-path" env:"DB_PATH" default:"./tidal.db" description:"SQLite database file path"`

	// Application configuration
	SourcesDir        string `long:"sources-dir" env:"SOURCES_DIR" default:"./sources" description:"Directory containing collection source configuration files"`
	Port              string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	WorkerCount       int    `long:"worker-count" env:"WORKER_COUNT" default:"5" description:"Number of background workers for ingestion tasks"`
	SchedulerInterval int    `long:"scheduler-interval" env:"SCHEDULER_INTERVAL" default:"60" description:"Scheduler tick interval in seconds"`
	APIAccessKey      string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for operational endpoints (optional)"`

	// Pipeline defaults
	DefaultMaxItems    int `long:"default-max-items" env:"DEFAULT_MAX_ITEMS" default:"50" description:"Fallback rolling window size when a collection config omits max_items"`
	PurgeRetentionDays int `long:"purge-retention-days" env:"PURGE_RETENTION_DAYS" default:"7" description:"Days to keep rejected and quarantined records before purge"`

	// External collaborators
	SearchIndexURL string `long:"search-index-url" env:"SEARCH_INDEX_URL" description:"Search index endpoint URL (optional, disabled when empty)"`
	SearchIndexKey string `long:"search-index-key" env:"SEARCH_INDEX_KEY" description:"Search index API key"`
	NATSURL        string `long:"nats-url" env:"NATS_URL" description:"NATS server URL for mention notifications (optional, disabled when empty)"`
	GeminiAPIKey   string `long:"gemini-api-key" env:"GEMINI_API_KEY" description:"Gemini API key for content classification (optional, heuristic classifier used when empty)"`
	GeminiModel    string `long:"gemini-model" env:"GEMINI_MODEL" default:"gemini-2.0-flash" description:"Gemini model used for content classification"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"Tidal/1.0" description:"User agent string for HTTP requests"`
	Timezone  string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, Asia/Bangkok)"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

func Load() (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		DBPath:             raw.DBPath,
		SourcesDir:         raw.SourcesDir,
		Port:               raw.Port,
		WorkerCount:        raw.WorkerCount,
		SchedulerInterval:  raw.SchedulerInterval,
		APIAccessKey:       raw.APIAccessKey,
		DefaultMaxItems:    raw.DefaultMaxItems,
		PurgeRetentionDays: raw.PurgeRetentionDays,
		SearchIndexURL:     raw.SearchIndexURL,
		SearchIndexKey:     raw.SearchIndexKey,
		NATSURL:            raw.NATSURL,
		GeminiAPIKey:       raw.GeminiAPIKey,
		GeminiModel:        raw.GeminiModel,
		UserAgent:          raw.UserAgent,
		Timezone:           raw.Timezone,
		Debug:              raw.Debug,
		Version:            GetVersion(),
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
		}
	}
	return nil
}
