package cfg

import (
	"testing"
)

func TestGetVersion(t *testing.T) {
	if GetVersion() == "" {
		t.Error("GetVersion should never return empty string")
	}

	version := GetVersion()
	if version != "dev" && version != "unknown" {
		// This is fine, version could be set at build time
		t.Logf("Version: %s", version)
	}
}

func TestConfigFields(t *testing.T) {
	cfg := &Cfg{
		DBPath:             "./test.db",
		SourcesDir:         "./sources",
		Port:               "8080",
		WorkerCount:        5,
		SchedulerInterval:  60,
		APIAccessKey:       "test-key",
		DefaultMaxItems:    50,
		PurgeRetentionDays: 7,
		UserAgent:          "Test Agent",
		Timezone:           "UTC",
		Debug:              true,
		Version:            "test-version",
	}

	if cfg.DBPath != "./test.db" {
		t.Errorf("Expected DB path './test.db', got '%s'", cfg.DBPath)
	}
	if cfg.SourcesDir != "./sources" {
		t.Errorf("Expected sources dir './sources', got '%s'", cfg.SourcesDir)
	}
	if cfg.Port != "8080" {
		t.Errorf("Expected port '8080', got '%s'", cfg.Port)
	}
	if cfg.WorkerCount != 5 {
		t.Errorf("Expected worker count 5, got %d", cfg.WorkerCount)
	}
	if cfg.SchedulerInterval != 60 {
		t.Errorf("Expected scheduler interval 60, got %d", cfg.SchedulerInterval)
	}
	if cfg.APIAccessKey != "test-key" {
		t.Errorf("Expected API key 'test-key', got '%s'", cfg.APIAccessKey)
	}
	if cfg.DefaultMaxItems != 50 {
		t.Errorf("Expected default max items 50, got %d", cfg.DefaultMaxItems)
	}
	if cfg.PurgeRetentionDays != 7 {
		t.Errorf("Expected purge retention 7 days, got %d", cfg.PurgeRetentionDays)
	}
	if cfg.UserAgent != "Test Agent" {
		t.Errorf("Expected user agent 'Test Agent', got '%s'", cfg.UserAgent)
	}
	if cfg.Timezone != "UTC" {
		t.Errorf("Expected timezone 'UTC', got '%s'", cfg.Timezone)
	}
	if !cfg.Debug {
		t.Error("Expected debug to be enabled")
	}
	if cfg.Version != "test-version" {
		t.Errorf("Expected version 'test-version', got '%s'", cfg.Version)
	}
}
