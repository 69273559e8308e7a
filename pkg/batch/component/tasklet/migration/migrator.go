package migration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	dbconfig "github.com/tigerroll/greentaxi/pkg/batch/adapter/database/config"
	gormadapter "github.com/tigerroll/greentaxi/pkg/batch/adapter/database/gorm"
	"github.com/tigerroll/greentaxi/pkg/batch/support/util/logger"
)

type migrator struct {
	cfg    dbconfig.DatabaseConfig
	dbType string
	log    *logger.Logger
}

// NewMigrator creates a Migrator for the database described by cfg.
// Every run opens a dedicated handle, since golang-migrate closes the database it migrated.
func NewMigrator(cfg dbconfig.DatabaseConfig) Migrator {
	return &migrator{cfg: cfg, dbType: cfg.Type, log: logger.Named("migration")}
}

func (m *migrator) databaseDriver(sqlDB *sql.DB, tableName string) (migratedb.Driver, error) {
	switch m.dbType {
	case "postgres", "redshift":
		return postgres.WithInstance(sqlDB, &postgres.Config{
			MigrationsTable: tableName,
			SchemaName:      m.cfg.Schema,
		})
	case "mysql":
		return mysql.WithInstance(sqlDB, &mysql.Config{MigrationsTable: tableName})
	case "sqlite", "sqlite3":
		return sqlite3.WithInstance(sqlDB, &sqlite3.Config{MigrationsTable: tableName})
	}
	return nil, fmt.Errorf("unsupported database type for migration: %s", m.dbType)
}

func (m *migrator) instance(migrationFS fs.FS, path string, tableName string) (*migrate.Migrate, error) {
	gdb, err := gormadapter.Open(m.cfg)
	if err != nil {
		return nil, err
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	src, err := iofs.New(migrationFS, path)
	if err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to open migrations at %s: %w", path, err)
	}
	drv, err := m.databaseDriver(sqlDB, tableName)
	if err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to create migration driver: %w", err)
	}
	mi, err := migrate.NewWithInstance("iofs", src, m.dbType, drv)
	if err != nil {
		drv.Close()
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	return mi, nil
}

func (m *migrator) run(ctx context.Context, migrationFS fs.FS, path, command, tableName string) error {
	m.log.Infof("Running migration '%s' from %s (table %s).", command, path, tableName)
	mi, err := m.instance(migrationFS, path, tableName)
	if err != nil {
		return err
	}
	defer func() {
		if serr, derr := mi.Close(); serr != nil || derr != nil {
			m.log.Warnf("Failed to close migration resources: source=%v database=%v", serr, derr)
		}
	}()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			mi.GracefulStop <- true
		case <-done:
		}
	}()

	switch command {
	case "up":
		err = mi.Up()
	case "down":
		err = mi.Down()
	default:
		return fmt.Errorf("unsupported migration command: %s", command)
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		if version, dirty, verr := mi.Version(); verr == nil {
			m.log.Errorf("Migration stopped at version %d (dirty=%t).", version, dirty)
		}
		return fmt.Errorf("migration '%s' failed (db %s, path %s): %w", command, m.dbType, path, err)
	}
	version, _, verr := mi.Version()
	if verr != nil && !errors.Is(verr, migrate.ErrNilVersion) {
		return verr
	}
	m.log.Infof("Migration '%s' completed at version %d.", command, version)
	return nil
}

func (m *migrator) Up(ctx context.Context, migrationFS fs.FS, path string, tableName string) error {
	return m.run(ctx, migrationFS, path, "up", tableName)
}

func (m *migrator) Down(ctx context.Context, migrationFS fs.FS, path string, tableName string) error {
	return m.run(ctx, migrationFS, path, "down", tableName)
}

func (m *migrator) Close() error {
	return nil
}
