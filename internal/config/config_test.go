package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Defaults(t *testing.T) {
	cfg := New()
	assert.Equal(t, 2*time.Second, cfg.Sync.PollInterval)
	assert.Equal(t, 500*time.Millisecond, cfg.Sync.GraceWindow)
	assert.Equal(t, 2*time.Second, cfg.Sync.DeletedTTL)
	assert.Contains(t, cfg.Extensions, ".png")
	require.NoError(t, cfg.Validate())
}

func TestLoad_ProjectFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	content := []byte("sync:\n  poll_interval: 5s\nlog:\n  level: debug\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".imagecompare.yaml"), content, 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, 5*time.Second, cfg.Sync.PollInterval)
	assert.Equal(t, "debug", cfg.Log.Level)
	// Untouched values keep their defaults.
	assert.Equal(t, 500*time.Millisecond, cfg.Sync.GraceWindow)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	content := []byte("sync:\n  poll_interval: 5s\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".imagecompare.yaml"), content, 0o644))
	t.Setenv("IMAGECOMPARE_POLL_INTERVAL", "9s")

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 9*time.Second, cfg.Sync.PollInterval)
}

func TestLoad_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".imagecompare.yaml"), []byte("::"), 0o644))

	_, err := Load(dir)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(*Config) {}, true},
		{"extension without dot", func(c *Config) { c.Extensions = []string{"png"} }, false},
		{"negative poll", func(c *Config) { c.Sync.PollInterval = -time.Second }, false},
		{"ttl shorter than grace", func(c *Config) { c.Sync.DeletedTTL = time.Millisecond }, false},
		{"zero cache", func(c *Config) { c.Cache.Images = 0 }, false},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := New()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
