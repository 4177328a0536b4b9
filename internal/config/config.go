// Package config provides the session configuration for imagecompare.
// Precedence, lowest to highest: hardcoded defaults, user config
// (~/.config/imagecompare/config.yaml), project config
// (.imagecompare.yaml next to the first modality directory), then
// IMAGECOMPARE_* environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete imagecompare configuration.
type Config struct {
	// Extensions are the recognized image file extensions (with dot).
	Extensions []string `yaml:"extensions"`

	Sync  SyncConfig  `yaml:"sync"`
	Cache CacheConfig `yaml:"cache"`
	Log   LogConfig   `yaml:"log"`
}

// SyncConfig holds the live-synchronization timings.
type SyncConfig struct {
	// PollInterval is the re-stat sweep period; it bounds worst-case
	// delete-detection latency where push notifications never fire.
	PollInterval time.Duration `yaml:"poll_interval"`

	// GraceWindow is how long a delete waits for a matching create
	// before being treated as a real removal.
	GraceWindow time.Duration `yaml:"grace_window"`

	// DeletedTTL caps the age of unresolved pending deletes.
	DeletedTTL time.Duration `yaml:"deleted_ttl"`
}

// CacheConfig bounds the model's caches.
type CacheConfig struct {
	// Images is the loaded-full-image cache capacity (entries).
	Images int `yaml:"images"`
	// Thumbs is the thumbnail cache-key set capacity (entries).
	Thumbs int `yaml:"thumbs"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string `yaml:"level"`
	// File is the log file path; empty uses the default location.
	File string `yaml:"file"`
}

// New returns a Config with defaults.
func New() *Config {
	return &Config{
		Extensions: []string{
			".png", ".jpg", ".jpeg", ".bmp", ".gif", ".webp", ".tif", ".tiff",
		},
		Sync: SyncConfig{
			PollInterval: 2 * time.Second,
			GraceWindow:  500 * time.Millisecond,
			DeletedTTL:   2 * time.Second,
		},
		Cache: CacheConfig{
			Images: 64,
			Thumbs: 1024,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// UserConfigPath returns the user configuration file path, following
// XDG conventions.
func UserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "imagecompare", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "imagecompare", "config.yaml")
	}
	return filepath.Join(home, ".config", "imagecompare", "config.yaml")
}

// Load builds the effective configuration for a session rooted at dir.
func Load(dir string) (*Config, error) {
	cfg := New()

	if path := UserConfigPath(); fileExists(path) {
		if err := cfg.loadYAML(path); err != nil {
			return nil, err
		}
	}

	projectPath := filepath.Join(dir, ".imagecompare.yaml")
	if fileExists(projectPath) {
		if err := cfg.loadYAML(projectPath); err != nil {
			return nil, err
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// loadYAML merges non-zero values from a YAML file into c.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	c.mergeWith(&parsed)
	return nil
}

func (c *Config) mergeWith(other *Config) {
	if len(other.Extensions) > 0 {
		c.Extensions = other.Extensions
	}
	if other.Sync.PollInterval != 0 {
		c.Sync.PollInterval = other.Sync.PollInterval
	}
	if other.Sync.GraceWindow != 0 {
		c.Sync.GraceWindow = other.Sync.GraceWindow
	}
	if other.Sync.DeletedTTL != 0 {
		c.Sync.DeletedTTL = other.Sync.DeletedTTL
	}
	if other.Cache.Images != 0 {
		c.Cache.Images = other.Cache.Images
	}
	if other.Cache.Thumbs != 0 {
		c.Cache.Thumbs = other.Cache.Thumbs
	}
	if other.Log.Level != "" {
		c.Log.Level = other.Log.Level
	}
	if other.Log.File != "" {
		c.Log.File = other.Log.File
	}
}

// applyEnvOverrides applies IMAGECOMPARE_* environment variables, the
// highest-precedence configuration source.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("IMAGECOMPARE_POLL_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Sync.PollInterval = d
		}
	}
	if v := os.Getenv("IMAGECOMPARE_GRACE_WINDOW"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Sync.GraceWindow = d
		}
	}
	if v := os.Getenv("IMAGECOMPARE_CACHE_IMAGES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Cache.Images = n
		}
	}
	if v := os.Getenv("IMAGECOMPARE_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
}

// Validate checks the configuration for contradictions.
func (c *Config) Validate() error {
	for _, ext := range c.Extensions {
		if !strings.HasPrefix(ext, ".") {
			return fmt.Errorf("extension %q must start with a dot", ext)
		}
	}
	if c.Sync.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive, got %s", c.Sync.PollInterval)
	}
	if c.Sync.GraceWindow <= 0 {
		return fmt.Errorf("grace_window must be positive, got %s", c.Sync.GraceWindow)
	}
	if c.Sync.DeletedTTL < c.Sync.GraceWindow {
		return fmt.Errorf("deleted_ttl (%s) must not be shorter than grace_window (%s)",
			c.Sync.DeletedTTL, c.Sync.GraceWindow)
	}
	if c.Cache.Images <= 0 || c.Cache.Thumbs <= 0 {
		return fmt.Errorf("cache sizes must be positive")
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.Log.Level)
	}
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
