// Package migration applies embedded SQL migrations with golang-migrate.
package migration

import (
	"context"
	"io/fs"
)

// DefaultMigrationsTable tracks applied versions of the application schema.
const DefaultMigrationsTable = "greentaxi_migrations"

// Migrator applies or reverts migrations read from an fs.FS directory.
type Migrator interface {
	// Up applies all pending migrations. tableName records the applied versions.
	Up(ctx context.Context, migrationFS fs.FS, path string, tableName string) error
	// Down reverts all applied migrations.
	Down(ctx context.Context, migrationFS fs.FS, path string, tableName string) error
	Close() error
}
