package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chdirTemp(t *testing.T) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestLoad_Defaults(t *testing.T) {
	chdirTemp(t)
	t.Setenv("MONGO_URI", "")
	t.Setenv("DB_NAME", "")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "mongo", cfg.Storage.Type)
	assert.Equal(t, "IoT", cfg.Storage.Database)
	assert.Equal(t, 5, cfg.Storage.RetryAttempts)
	assert.Equal(t, 2*time.Second, cfg.Storage.RetryDelay)
	assert.Equal(t, 100, cfg.Storage.ListLimit)
	assert.Equal(t, "0.0.0.0:5000", cfg.Server.Address())
	assert.Equal(t, int64(1<<20), cfg.Server.MaxBodyBytes)
	assert.False(t, cfg.MQTT.Enabled)

	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MONGO_URI")
}

func TestLoad_LegacyEnvironment(t *testing.T) {
	chdirTemp(t)
	t.Setenv("MONGO_URI", "mongodb://db:27017")
	t.Setenv("DB_NAME", "Sensores")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "mongodb://db:27017", cfg.Storage.URI)
	assert.Equal(t, "Sensores", cfg.Storage.Database)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_PrefixedEnvironment(t *testing.T) {
	chdirTemp(t)
	t.Setenv("MONGO_URI", "")
	t.Setenv("INGEST_SERVER_PORT", "8080")
	t.Setenv("INGEST_STORAGE_TYPE", "memory")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "memory", cfg.Storage.Type)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_File(t *testing.T) {
	t.Setenv("MONGO_URI", "")
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
storage:
  type: sqlite
  uri: ./data/leituras.db
mqtt:
  enabled: true
  broker: tcp://broker:1883
  qos: 3
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Storage.Type)
	assert.Equal(t, "./data/leituras.db", cfg.Storage.URI)
	assert.Equal(t, "leituras/+", cfg.MQTT.Topic)

	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "qos")
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidate_ListLimitCapped(t *testing.T) {
	t.Setenv("MONGO_URI", "")
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
storage:
  type: memory
  list_limit: 500
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 500, cfg.Storage.ListLimit)

	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list limit")

	cfg.Storage.ListLimit = MaxListLimit
	assert.NoError(t, cfg.Validate())
}
