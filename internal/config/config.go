// Package config provides configuration management for memkeep.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"sync"

	json "github.com/goccy/go-json"
)

const (
	// DefaultWorkerPort is the port the worker listens on unless
	// MEMKEEP_WORKER_PORT overrides it.
	DefaultWorkerPort = 37651

	// DefaultModel is the inference model used to distill tool
	// transcripts into observations.
	DefaultModel = "claude-haiku-4-5"

	dataDirName  = ".memkeep"
	dbFileName   = "memkeep.db"
	settingsFile = "settings.json"
)

// Config holds worker settings. Values come from Default(), overridden
// by settings.json, overridden by environment variables.
type Config struct {
	WorkerPort          int    `json:"worker_port"`
	Model               string `json:"model"`
	ContextObservations int    `json:"context_observations"`
	ContextSummaries    int    `json:"context_summaries"`
	DedupWindowMinutes  int    `json:"dedup_window_minutes"`
	ShutdownGraceSecs   int    `json:"shutdown_grace_seconds"`
	LogLevel            string `json:"log_level"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		WorkerPort:          DefaultWorkerPort,
		Model:               DefaultModel,
		ContextObservations: 10,
		ContextSummaries:    10,
		DedupWindowMinutes:  60,
		ShutdownGraceSecs:   30,
		LogLevel:            "info",
	}
}

var (
	loaded   *Config
	loadOnce sync.Once
)

// Get returns the process configuration, loading it on first use.
func Get() *Config {
	loadOnce.Do(func() {
		loaded = load()
	})
	return loaded
}

// load layers settings.json and environment variables over defaults.
func load() *Config {
	cfg := Default()

	if data, err := os.ReadFile(SettingsPath()); err == nil {
		// Invalid settings fall back to defaults silently; the file
		// is user-edited and must never prevent startup.
		_ = json.Unmarshal(data, cfg)
	}

	if port := os.Getenv("MEMKEEP_WORKER_PORT"); port != "" {
		if parsed, err := strconv.Atoi(port); err == nil && parsed > 0 {
			cfg.WorkerPort = parsed
		}
	}
	if level := os.Getenv("MEMKEEP_LOG_LEVEL"); level != "" {
		cfg.LogLevel = level
	}

	return cfg
}

// DataDir returns the data directory (~/.memkeep).
func DataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, dataDirName)
}

// DBPath returns the store file path.
func DBPath() string {
	return filepath.Join(DataDir(), dbFileName)
}

// SettingsPath returns the settings file path.
func SettingsPath() string {
	return filepath.Join(DataDir(), settingsFile)
}

// EnsureDataDir creates the data directory if missing.
func EnsureDataDir() error {
	return os.MkdirAll(DataDir(), 0o755)
}
