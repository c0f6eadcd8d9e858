package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("MINDATLAS_CONFIG", "")
	t.Setenv("MINDATLAS_PLATFORM", "")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "auto", cfg.Storage.Platform)
	assert.Equal(t, "mindatlas.db", cfg.Storage.Database)
	assert.False(t, cfg.Storage.Encrypted)
	assert.Equal(t, "file", cfg.Prefs.Backend)
	assert.Equal(t, "slot", cfg.Analytics.Sink)
	assert.Equal(t, "2s", cfg.Redis.DialTimeout.String())
}

func TestLoadFileAndEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mindatlas.yaml")
	yaml := `
storage:
  platform: web
  data_dir: ${JOURNAL_HOME:/tmp/fallback}
analytics:
  sink: store
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))
	t.Setenv("JOURNAL_HOME", dir)
	t.Setenv("MINDATLAS_LOG_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "web", cfg.Storage.Platform)
	assert.Equal(t, dir, cfg.Storage.DataDir)
	assert.Equal(t, "store", cfg.Analytics.Sink)
	assert.Equal(t, "debug", cfg.Logging.Level)

	dbPath, err := cfg.Storage.DatabasePath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "mindatlas.db"), dbPath)

	prefsDir, err := cfg.PrefsDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "prefs"), prefsDir)
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{
			Storage:   StorageConfig{Platform: "native", Database: "x.db"},
			Prefs:     PrefsConfig{Backend: "memory"},
			Analytics: AnalyticsConfig{Sink: "slot"},
		}
	}

	cfg := base()
	assert.NoError(t, cfg.Validate())

	cfg = base()
	cfg.Storage.Encrypted = true
	assert.ErrorContains(t, cfg.Validate(), "encryption")

	cfg = base()
	cfg.Storage.Platform = "ios"
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Prefs.Backend = "etcd"
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Analytics.Sink = "cloud"
	assert.Error(t, cfg.Validate())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
