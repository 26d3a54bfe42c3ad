package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "stovetop", cfg.StorageID)
	assert.Equal(t, "default", cfg.SessionKey)
	assert.Empty(t, cfg.Server.BaseURL) // reconciliation off by default
	assert.Equal(t, 30*time.Second, cfg.Server.PingInterval)
	assert.Equal(t, time.Second, cfg.Server.BackoffBase)
	assert.Equal(t, 30*time.Second, cfg.Server.BackoffMax)
	assert.Equal(t, 5, cfg.Server.MaxAttempts)
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadOverlaysFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
logLevel: debug
dataDir: /var/lib/stovetop
storageId: widget-9
server:
  baseUrl: https://timers.example.com
  maxAttempts: 8
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "/var/lib/stovetop", cfg.DataDir)
	assert.Equal(t, "widget-9", cfg.StorageID)
	assert.Equal(t, "https://timers.example.com", cfg.Server.BaseURL)
	assert.Equal(t, 8, cfg.Server.MaxAttempts)

	// Unset keys keep their defaults.
	assert.Equal(t, "default", cfg.SessionKey)
	assert.Equal(t, 30*time.Second, cfg.Server.PingInterval)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load("/does/not/exist.yaml")
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("logLevel: [unclosed"), 0644))
	_, err = Load(path)
	assert.Error(t, err)
}