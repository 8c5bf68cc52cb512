package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestValidate checks defaults and format validations for Config.
func TestValidate(t *testing.T) {
	t.Parallel()

	require.Error(t, Validate(nil))

	// Empty config gets defaults.
	cfg := new(Config)
	require.NoError(t, Validate(cfg))
	require.Equal(t, DefaultTimeout, cfg.Timeout)
	require.Equal(t, DefaultConcurrency, cfg.Concurrency)
	require.Equal(t, DefaultRuntimesDir, cfg.RuntimesDir)
	require.Equal(t, DefaultCurseForgeAPIURL, cfg.CurseForge.APIURL)

	// Bad download server.
	cfg = &Config{DownloadServer: "not a url"}
	require.Error(t, Validate(cfg))

	// Concurrency above limit.
	cfg = &Config{Concurrency: 100000}
	require.Error(t, Validate(cfg))

	// Bad health address.
	cfg = &Config{HealthAddress: "nope"}
	require.Error(t, Validate(cfg))

	cfg = &Config{HealthAddress: "127.0.0.1:9090"}
	require.NoError(t, Validate(cfg))
}

// TestSaveLoadRoundtrip ensures settings are persisted and loaded back correctly.
func TestSaveLoadRoundtrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "settings.yaml")

	cfg := &Config{
		InstancesDir:   filepath.Join(dir, "instances"),
		RuntimesDir:    filepath.Join(dir, "runtimes"),
		DownloadServer: "https://mirror.local/atl",
		Concurrency:    3,
		Timeout:        2 * time.Second,
		CurseForge: CurseForgeConfig{
			Enabled: true,
			APIKey:  "secret",
		},
	}

	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg.InstancesDir, loaded.InstancesDir)
	require.Equal(t, cfg.DownloadServer, loaded.DownloadServer)
	require.Equal(t, 3, loaded.Concurrency)
	require.Equal(t, 2*time.Second, loaded.Timeout)
	require.Equal(t, "secret", loaded.CurseForge.APIKey)
	require.False(t, loaded.Technic.Enabled)

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(DefaultFilePermissions), info.Mode().Perm())
}

// TestLoad_MissingFile verifies a read error is reported for absent files.
func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
