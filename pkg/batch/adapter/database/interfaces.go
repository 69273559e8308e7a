// Package database declares the connection contracts used by repositories, independent of the ORM.
package database

import (
	"context"
	"database/sql"

	dbconfig "github.com/tigerroll/greentaxi/pkg/batch/adapter/database/config"
)

// DBExecutor defines the read operations repositories run outside a chunk transaction.
type DBExecutor interface {
	// ExecuteQuery loads every row matching query (column -> value, AND-combined) into target.
	ExecuteQuery(ctx context.Context, target interface{}, query map[string]interface{}) error

	// ExecuteQueryAdvanced loads rows matching query into target, ordered by orderBy.
	// limit <= 0 means no limit; offset <= 0 means no offset.
	ExecuteQueryAdvanced(ctx context.Context, target interface{}, query map[string]interface{}, orderBy string, limit, offset int) error

	// Count returns the number of rows of model matching query.
	Count(ctx context.Context, model interface{}, query map[string]interface{}) (int64, error)
}

// DBConnection is a named, configured database connection.
type DBConnection interface {
	DBExecutor // Embeds the read operations

	// Name is the key of the connection under surfin.adaptor.database.
	Name() string
	// Type is the dialect: "postgres", "mysql" or "sqlite".
	Type() string
	// Config returns the settings the connection was opened with.
	Config() dbconfig.DatabaseConfig
	// GetSQLDB returns the underlying *sql.DB, e.g. for golang-migrate.
	GetSQLDB() (*sql.DB, error)
	// Close closes the connection pool.
	Close() error
}

// DBProvider opens and caches connections by name.
type DBProvider interface {
	// GetConnection returns the connection configured under name, opening it on first use.
	//
	// name: The key under surfin.adaptor.database.
	// Returns: The cached [DBConnection], or an error for an unknown name or dialect.
	GetConnection(name string) (DBConnection, error)

	// CloseAll closes every opened connection. Returns: The aggregated close errors.
	CloseAll() error
}
