// Package tx provides an abstraction for the transactions a chunk is written in.
// Writers depend only on these interfaces, so the same writer runs unchanged against every
// database backend the gorm adapter supports.
package tx

import (
	"context"
	"database/sql"
)

// TxExecutor is an interface that defines the write operations executable within a transaction.
// It is implemented by the gorm transaction and by the test doubles in pkg/batch/test.
type TxExecutor interface {
	// ExecuteInsert inserts model into the database.
	// This operation is executed within the current transaction context.
	//
	// ctx: The context for the operation.
	// model: A slice of Go structs to insert.
	// tableName: The name of the target database table.
	// bulkSize: The number of rows per INSERT statement. Zero or less inserts everything in one statement.
	// Returns: The number of affected rows and any error that occurred during the operation.
	ExecuteInsert(ctx context.Context, model interface{}, tableName string, bulkSize int) (rowsAffected int64, err error)

	// ExecuteUpsert performs an UPSERT operation (INSERT ... ON CONFLICT DO UPDATE) on the database.
	// This operation is executed within the current transaction context.
	//
	// ctx: The context for the operation.
	// model: A slice of Go structs to insert or update.
	// tableName: The name of the target database table.
	// conflictColumns: The columns whose duplication triggers the update path (e.g. the primary key).
	// updateColumns: The columns overwritten on conflict. If this list is nil or empty,
	//                conflicts are treated as DO NOTHING.
	// Returns: The number of affected rows and any error that occurred during the operation.
	ExecuteUpsert(ctx context.Context, model interface{}, tableName string, conflictColumns []string, updateColumns []string) (rowsAffected int64, err error)
}

// Tx represents an ongoing database transaction.
type Tx interface {
	TxExecutor // Embeds write operations executable within a transaction
}

// TransactionManager is an interface that manages the lifecycle of a [Tx].
type TransactionManager interface {
	// Begin starts a new transaction.
	// opts: Optional isolation level and read-only settings; only the first element is used.
	// Returns: The started [Tx] and any error that occurred.
	Begin(ctx context.Context, opts ...*sql.TxOptions) (Tx, error)

	// Commit commits tx. Returns: An error if the commit failed.
	Commit(tx Tx) error

	// Rollback rolls back tx. Returns: An error if the rollback failed.
	Rollback(tx Tx) error
}
