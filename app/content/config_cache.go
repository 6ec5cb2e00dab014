package content

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

var validSourceTypes = map[string]bool{
	"rss":     true,
	"youtube": true,
	"social":  true,
}

// ConfigCache loads per-collection YAML configuration files from a
// directory and keeps them behind a RW mutex. Reload replaces the whole
// cache, so the orchestrator always sees the current max_items value at
// the start of a cycle.
type ConfigCache struct {
	sourcesDir      string
	defaultMaxItems int
	cache           map[string]*Config
	mu              sync.RWMutex
}

func NewConfigCache(sourcesDir string, defaultMaxItems int) *ConfigCache {
	return &ConfigCache{
		sourcesDir:      sourcesDir,
		defaultMaxItems: defaultMaxItems,
		cache:           make(map[string]*Config),
	}
}

func (cc *ConfigCache) Run() error {
	if _, err := os.Stat(cc.sourcesDir); os.IsNotExist(err) {
		return nil
	}

	files, err := filepath.Glob(filepath.Join(cc.sourcesDir, "*.yml"))
	if err != nil {
		return fmt.Errorf("failed to find YML files: %w", err)
	}

	for _, file := range files {
		fileName := filepath.Base(file)
		collection := strings.TrimSuffix(fileName, ".yml")

		config, err := cc.LoadConfig(collection)
		if err != nil {
			return fmt.Errorf("error loading %s: %w", file, err)
		}

		slog.Debug("Configuration loaded", "collection", collection,
			"enabled", config.Settings.Enabled, "max_items", config.Settings.MaxItems,
			"sources", len(config.Sources))
	}

	return nil
}

func (cc *ConfigCache) LoadConfig(collection string) (*Config, error) {
	configFile := filepath.Join(cc.sourcesDir, collection+".yml")
	config, err := cc.parseConfig(configFile)
	if err != nil {
		return nil, err
	}

	config.Collection = collection

	if err := cc.validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", configFile, err)
	}

	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.cache[config.Collection] = config

	return config, nil
}

func (cc *ConfigCache) GetConfig(collection string) (*Config, error) {
	cc.mu.RLock()
	defer cc.mu.RUnlock()

	config, ok := cc.cache[collection]
	if !ok {
		return nil, fmt.Errorf("collection config '%s' not found", collection)
	}
	return config, nil
}

func (cc *ConfigCache) GetConfigs() map[string]*Config {
	cc.mu.RLock()
	defer cc.mu.RUnlock()

	configsCopy := make(map[string]*Config, len(cc.cache))
	for k, v := range cc.cache {
		configsCopy[k] = v
	}
	return configsCopy
}

func (cc *ConfigCache) GetEnabledConfigs() map[string]*Config {
	cc.mu.RLock()
	defer cc.mu.RUnlock()

	enabled := make(map[string]*Config)
	for k, v := range cc.cache {
		if v.Settings.Enabled {
			enabled[k] = v
		}
	}
	return enabled
}

func (cc *ConfigCache) GetConfigCount() int {
	cc.mu.RLock()
	defer cc.mu.RUnlock()
	return len(cc.cache)
}

func (cc *ConfigCache) parseConfig(configFile string) (*Config, error) {
	data, err := os.ReadFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if config.Settings.RefreshInterval == 0 {
		config.Settings.RefreshInterval = 900
	}
	if config.Settings.MaxItems == 0 {
		config.Settings.MaxItems = cc.defaultMaxItems
	}
	if config.Settings.Timeout == 0 {
		config.Settings.Timeout = 10
	}

	return &config, nil
}

func (cc *ConfigCache) validateConfig(config *Config) error {
	if config == nil {
		return fmt.Errorf("config is nil")
	}

	if config.Collection == "" {
		return fmt.Errorf("collection name is required")
	}
	if len(config.Sources) == 0 {
		return fmt.Errorf("at least one source is required")
	}

	nonNegativeFields := map[string]int{
		"refresh interval": config.Settings.RefreshInterval,
		"max items":        config.Settings.MaxItems,
		"timeout":          config.Settings.Timeout,
	}

	for fieldName, fieldValue := range nonNegativeFields {
		if fieldValue < 0 {
			return fmt.Errorf("%s must be non-negative", fieldName)
		}
	}

	for i, src := range config.Sources {
		if src.Name == "" {
			return fmt.Errorf("source at index %d: name is required", i)
		}
		if !validSourceTypes[src.Type] {
			return fmt.Errorf("source %s: invalid type: %s", src.Name, src.Type)
		}
		if src.URL == "" {
			return fmt.Errorf("source %s: URL is required", src.Name)
		}
	}

	return nil
}
