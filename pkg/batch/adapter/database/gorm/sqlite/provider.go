// Package sqlite registers the SQLite dialect with the gorm adapter.
package sqlite

import (
	"errors"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	dbconfig "github.com/tigerroll/greentaxi/pkg/batch/adapter/database/config"
	gormadapter "github.com/tigerroll/greentaxi/pkg/batch/adapter/database/gorm"
)

func init() {
	gormadapter.RegisterDialector("sqlite", func(cfg dbconfig.DatabaseConfig) (gorm.Dialector, error) {
		if cfg.Database == "" {
			return nil, errors.New("SQLite database path cannot be empty")
		}
		return sqlite.Open(ConnectionString(cfg)), nil
	}, ConnectionString)
}

// ConnectionString returns the database file path; ":memory:" opens an in-memory database.
func ConnectionString(c dbconfig.DatabaseConfig) string {
	return c.Database
}
