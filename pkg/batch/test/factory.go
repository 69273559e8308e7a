// Package test provides mocks and fixtures shared by greentaxi's tests.
package test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tigerroll/greentaxi/pkg/batch/adapter/database"
	dbconfig "github.com/tigerroll/greentaxi/pkg/batch/adapter/database/config"
	gormadapter "github.com/tigerroll/greentaxi/pkg/batch/adapter/database/gorm"
	_ "github.com/tigerroll/greentaxi/pkg/batch/adapter/database/gorm/sqlite"
	"github.com/tigerroll/greentaxi/pkg/batch/adapter/storage"
	storageconfig "github.com/tigerroll/greentaxi/pkg/batch/adapter/storage/config"
	"github.com/tigerroll/greentaxi/pkg/batch/adapter/storage/local"
)

// SQLiteConfig describes a file database inside the test's temp dir. A single open
// connection keeps every statement on the same SQLite handle.
func SQLiteConfig(t *testing.T) dbconfig.DatabaseConfig {
	t.Helper()
	return dbconfig.DatabaseConfig{
		Type:     "sqlite",
		Database: filepath.Join(t.TempDir(), "greentaxi.db"),
		LogLevel: "SILENT",
		Pool:     dbconfig.PoolConfig{MaxOpenConns: 1},
	}
}

// NewSQLiteConnection opens cfg and closes it when the test ends.
// models are created with gorm's AutoMigrate.
func NewSQLiteConnection(t *testing.T, cfg dbconfig.DatabaseConfig, models ...interface{}) *gormadapter.GormDBAdapter {
	t.Helper()
	db, err := gormadapter.Open(cfg)
	require.NoError(t, err)
	if len(models) > 0 {
		require.NoError(t, db.AutoMigrate(models...))
	}
	conn := gormadapter.NewGormDBAdapter(db, cfg, "test")
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

var _ database.DBConnection = (*gormadapter.GormDBAdapter)(nil)

// NewLocalStorage returns a local storage connection rooted in a fresh temp dir,
// and the directory itself.
func NewLocalStorage(t *testing.T) (storage.StorageConnection, string) {
	t.Helper()
	dir := t.TempDir()
	conn, err := local.NewLocalAdapter(storageconfig.StorageConfig{Type: local.ProviderType, BaseDir: dir}, "test")
	require.NoError(t, err)
	return conn, dir
}
