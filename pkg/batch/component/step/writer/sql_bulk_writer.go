// Package writer provides implementations for the item writers used by chunk steps,
// persisting chunks to a database table or to Parquet files in object storage.
package writer

import (
	"context"
	"fmt"

	"github.com/tigerroll/greentaxi/pkg/batch/core/application/port"
	"github.com/tigerroll/greentaxi/pkg/batch/core/tx"
	"github.com/tigerroll/greentaxi/pkg/batch/support/util/exception"
	"github.com/tigerroll/greentaxi/pkg/batch/support/util/logger"
)

// SqlBulkWriter is an implementation of [port.ItemWriter] that performs bulk writes to a database.
// It participates in the transaction the chunk step passes to [SqlBulkWriter.Write].
// With conflict columns it uses [tx.TxExecutor.ExecuteUpsert]; without, it plain-inserts through
// [tx.TxExecutor.ExecuteInsert].
type SqlBulkWriter[T any] struct {
	name            string         // name is the unique name of the writer instance, used for logging.
	bulkSize        int            // bulkSize is the maximum number of rows sent in one statement.
	tableName       string         // tableName is the target database table.
	conflictColumns []string       // conflictColumns detect duplicates for the upsert (e.g. the primary key).
	updateColumns   []string       // updateColumns are overwritten on conflict (empty for DO NOTHING).
	log             *logger.Logger // log is the writer's named logger.
}

// NewSqlBulkWriter creates a new instance of [SqlBulkWriter].
//
// Parameters:
//
//	name: A unique name for this writer instance.
//	bulkSize: The maximum number of rows per statement. Zero or less defaults to 1000.
//	tableName: The name of the target database table.
//	conflictColumns: The columns used for conflict resolution. Empty means plain INSERT.
//	updateColumns: The columns to update on conflict (empty for DO NOTHING).
//	               Ignored when conflictColumns is empty.
//
// Returns:
//
//	A new [SqlBulkWriter] instance.
func NewSqlBulkWriter[T any](name string, bulkSize int, tableName string, conflictColumns, updateColumns []string) *SqlBulkWriter[T] {
	if bulkSize <= 0 {
		bulkSize = 1000
	}
	return &SqlBulkWriter[T]{
		name:            name,
		bulkSize:        bulkSize,
		tableName:       tableName,
		conflictColumns: conflictColumns,
		updateColumns:   updateColumns,
		log:             logger.Named(name),
	}
}

// Verify that [SqlBulkWriter] implements the [port.ItemWriter] interface at compile time.
var _ port.ItemWriter[any] = (*SqlBulkWriter[any])(nil)

// Open initializes the writer. The transaction carries all statement state, so nothing is
// prepared here.
func (w *SqlBulkWriter[T]) Open(ctx context.Context) error {
	w.log.Debugf("Writing to table '%s' (bulk size %d).", w.tableName, w.bulkSize)
	return nil
}

// Write writes items to the database inside t.
// Upserts are split into slices of bulkSize so one statement never exceeds the driver's
// placeholder limit.
//
// Parameters:
//
//	ctx: The context for the operation.
//	t: The chunk's transaction. The caller commits or rolls it back.
//	items: The chunk to persist. An empty chunk is a no-op.
//
// Returns:
//
//	A [exception.BatchError] wrapping the database error, or nil.
func (w *SqlBulkWriter[T]) Write(ctx context.Context, t tx.Tx, items []T) error {
	if len(items) == 0 {
		return nil
	}
	if len(w.conflictColumns) == 0 {
		if _, err := t.ExecuteInsert(ctx, items, w.tableName, w.bulkSize); err != nil {
			return exception.NewBatchError(w.name, fmt.Sprintf("bulk insert of %d rows into '%s' failed", len(items), w.tableName), err, false, false)
		}
		w.log.Debugf("Inserted %d rows into '%s'.", len(items), w.tableName)
		return nil
	}

	for start := 0; start < len(items); start += w.bulkSize {
		end := start + w.bulkSize
		if end > len(items) {
			end = len(items)
		}
		if _, err := t.ExecuteUpsert(ctx, items[start:end], w.tableName, w.conflictColumns, w.updateColumns); err != nil {
			return exception.NewBatchError(w.name, fmt.Sprintf("bulk upsert into '%s' failed at offset %d", w.tableName, start), err, false, false)
		}
	}
	w.log.Debugf("Upserted %d rows into '%s'.", len(items), w.tableName)
	return nil
}

// Close releases nothing; it exists to satisfy [port.ItemWriter].
func (w *SqlBulkWriter[T]) Close(ctx context.Context) error {
	return nil
}
