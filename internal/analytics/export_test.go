package analytics

import "github.com/tigerroll/greentaxi/internal/domain/entity"

// SetAggregate replaces the aggregation function of e.
func SetAggregate(e *Engine, fn func([]entity.AnalyticalRow, *entity.ZoneTable, FilterState) ChartData) {
	e.aggregate = fn
}
