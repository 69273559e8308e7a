// Package writer provides the ItemWriter of the load step.
package writer

import (
	"github.com/tigerroll/greentaxi/internal/domain/entity"
	"github.com/tigerroll/greentaxi/internal/domain/schema"
	batchwriter "github.com/tigerroll/greentaxi/pkg/batch/component/step/writer"
)

const moduleName = "TripWriter"

// NewTripWriter returns a writer that upserts trips on id, rewriting every schema column
// when the id already exists. Reloading a month therefore replaces its rows.
func NewTripWriter(desc *schema.Descriptor, bulkSize int) *batchwriter.SqlBulkWriter[entity.TripRecord] {
	return batchwriter.NewSqlBulkWriter[entity.TripRecord](
		moduleName,
		bulkSize,
		entity.TableName,
		[]string{desc.IDColumn},
		desc.DataColumns(),
	)
}
