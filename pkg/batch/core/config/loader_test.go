package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/greentaxi/pkg/batch/core/config"
)

const embedded = `
surfin:
  batch:
    chunk_size: 100
    bulk_size: ${TEST_BULK_SIZE:-50}
  system:
    timezone: America/New_York
    logging:
      level: DEBUG
  adaptor:
    database:
      default:
        type: sqlite
        database: ${TEST_DB_PATH:-greentaxi.db}
greentaxi:
  year: "2019"
`

func TestLoadConfig_Embedded(t *testing.T) {
	cfg, err := config.LoadConfig("", config.EmbeddedConfig(embedded), "", nil)
	require.NoError(t, err)

	assert.Equal(t, "embedded", cfg.Source)
	assert.Equal(t, 100, cfg.Surfin.Batch.ChunkSize)
	assert.Equal(t, 50, cfg.Surfin.Batch.BulkSize)
	assert.Equal(t, "America/New_York", cfg.Surfin.System.Timezone)
	assert.Equal(t, "DEBUG", cfg.Surfin.System.Logging.Level)
	// Defaults survive when the document does not mention them.
	assert.Equal(t, "prometheus", cfg.Surfin.Observability.Metrics.Type)
	assert.Equal(t, "2019", cfg.App["year"])

	db := cfg.AdaptorSection("database")
	require.NotNil(t, db)
	assert.Contains(t, db, "default")
	assert.Nil(t, cfg.AdaptorSection("storage"))
}

func TestLoadConfig_EnvironmentOverrides(t *testing.T) {
	t.Setenv("TEST_BULK_SIZE", "25")
	t.Setenv("GREENTAXI_BATCH_CHUNK_SIZE", "7")
	t.Setenv("GREENTAXI_SYSTEM_LOGGING_LEVEL", "WARN")

	cfg, err := config.LoadConfig("", config.EmbeddedConfig(embedded), "", nil)
	require.NoError(t, err)
	assert.Equal(t, 25, cfg.Surfin.Batch.BulkSize)
	assert.Equal(t, 7, cfg.Surfin.Batch.ChunkSize)
	assert.Equal(t, "WARN", cfg.Surfin.System.Logging.Level)
}

func TestLoadConfig_BadEnvironmentOverride(t *testing.T) {
	t.Setenv("GREENTAXI_BATCH_CHUNK_SIZE", "many")
	_, err := config.LoadConfig("", config.EmbeddedConfig(embedded), "", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GREENTAXI_BATCH_CHUNK_SIZE")
}

func TestLoadConfig_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("surfin:\n  batch:\n    chunk_size: 3\n"), 0o600))

	cfg, err := config.LoadConfig("", config.EmbeddedConfig(embedded), path, nil)
	require.NoError(t, err)
	assert.Equal(t, path, cfg.Source)
	assert.Equal(t, 3, cfg.Surfin.Batch.ChunkSize)
	assert.Equal(t, 1000, cfg.Surfin.Batch.BulkSize)

	cfg, err = config.LoadConfig("", config.EmbeddedConfig(embedded), filepath.Join(dir, "missing.yaml"), nil)
	require.NoError(t, err)
	assert.Equal(t, "embedded", cfg.Source)
	assert.Equal(t, 100, cfg.Surfin.Batch.ChunkSize)
}

func TestLoadConfig_EnvFile(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("TEST_DB_PATH=/data/trips.db\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("TEST_DB_PATH") })

	cfg, err := config.LoadConfig(envFile, config.EmbeddedConfig(embedded), "", nil)
	require.NoError(t, err)
	def := cfg.AdaptorSection("database")["default"].(map[string]interface{})
	assert.Equal(t, "/data/trips.db", def["database"])
}

func TestLoadConfig_Invalid(t *testing.T) {
	_, err := config.LoadConfig("", config.EmbeddedConfig("surfin: [unterminated"), "", nil)
	require.Error(t, err)

	_, err = config.LoadConfig("", config.EmbeddedConfig("surfin:\n  batch:\n    chunk_size: 0\n"), "", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chunk_size")
}

func TestResolveConfigPath(t *testing.T) {
	t.Setenv("CONFIG", "")
	assert.Equal(t, "prod.yaml", config.ResolveConfigPath([]string{"prod.yaml"}))
	assert.Equal(t, "a/b.yml", config.ResolveConfigPath([]string{"x", "a/b.yml"}))
	assert.Equal(t, "", config.ResolveConfigPath([]string{"notes.txt"}))

	t.Setenv("CONFIG", "/etc/greentaxi.yaml")
	assert.Equal(t, "/etc/greentaxi.yaml", config.ResolveConfigPath(nil))
}

func TestOsEnvironmentExpander(t *testing.T) {
	t.Setenv("TEST_SET", "value")
	t.Setenv("TEST_EMPTY", "")
	out, err := config.NewOsEnvironmentExpander().Expand([]byte("a=${TEST_SET} b=${TEST_EMPTY:-fallback} c=${TEST_SET:-unused} d=$TEST_SET e=${TEST_UNSET_VAR}"))
	require.NoError(t, err)
	assert.Equal(t, "a=value b=fallback c=value d=value e=", string(out))
}
