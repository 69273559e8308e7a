package analytics

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/tigerroll/greentaxi/internal/domain/entity"
	"github.com/tigerroll/greentaxi/pkg/batch/core/metrics"
	"github.com/tigerroll/greentaxi/pkg/batch/support/util/logger"
)

// FilterState is one dashboard selection.
type FilterState struct {
	Hours HourRange `json:"hours"`
	// Days holds weekdays 0 (Monday) to 6 (Sunday); empty means every day.
	Days []int `json:"days"`
	// FlowSource is the flow source borough; empty means DefaultFlowSource.
	FlowSource string `json:"flow_source,omitempty"`
}

// DefaultFilterState selects every hour of every day.
func DefaultFilterState() FilterState {
	return FilterState{Hours: AllHours, Days: []int{}}
}

// ChartData holds every aggregate of one FilterState. When Error is set the aggregates
// are empty.
type ChartData struct {
	HierarchyPU   []BoroughNode `json:"hierarchy_pu"`
	HierarchyDO   []BoroughNode `json:"hierarchy_do"`
	Flow          Flow          `json:"flow"`
	SeriesPU      []Series      `json:"series_pu"`
	SeriesDO      []Series      `json:"series_do"`
	PaymentSeries []Series      `json:"payment_series"`
	KPIs          KPIs          `json:"kpis"`
	Error         string        `json:"error,omitempty"`
}

// ErrorChartData returns empty aggregates carrying msg.
func ErrorChartData(msg string) ChartData {
	return ChartData{
		HierarchyPU:   []BoroughNode{},
		HierarchyDO:   []BoroughNode{},
		Flow:          Flow{Labels: []string{}, Links: []FlowLink{}},
		SeriesPU:      []Series{},
		SeriesDO:      []Series{},
		PaymentSeries: []Series{},
		Error:         msg,
	}
}

// Aggregate computes ChartData from rows. Hierarchies, flow and KPIs use the hour and day
// selection; the weekday series use the hour selection only so every weekday stays visible.
func Aggregate(rows []entity.AnalyticalRow, zones *entity.ZoneTable, state FilterState) ChartData {
	byHourAndDay := Filter(rows, state.Hours, state.Days)
	byHour := FilterHours(rows, state.Hours)
	return ChartData{
		HierarchyPU:   PickupHierarchy(byHourAndDay),
		HierarchyDO:   DropoffHierarchy(byHourAndDay),
		Flow:          CrossBoroughFlow(byHourAndDay, zones, state.FlowSource),
		SeriesPU:      PickupWeekdaySeries(byHour),
		SeriesDO:      DropoffWeekdaySeries(byHour),
		PaymentSeries: PaymentSeries(byHour),
		KPIs:          ComputeKPIs(byHourAndDay),
	}
}

// Engine answers compute requests against the current snapshot.
type Engine struct {
	store             *SnapshotStore
	defaultFlowSource string
	recorder          metrics.MetricRecorder
	tracer            metrics.Tracer
	log               *logger.Logger
	aggregate         func([]entity.AnalyticalRow, *entity.ZoneTable, FilterState) ChartData
}

// NewEngine creates an engine reading from store.
func NewEngine(store *SnapshotStore, defaultFlowSource string, recorder metrics.MetricRecorder, tracer metrics.Tracer) *Engine {
	if recorder == nil {
		recorder = metrics.NewNoOpMetricRecorder()
	}
	if tracer == nil {
		tracer = metrics.NewNoOpTracer()
	}
	return &Engine{
		store:             store,
		defaultFlowSource: defaultFlowSource,
		recorder:          recorder,
		tracer:            tracer,
		log:               logger.Named("compute"),
		aggregate:         Aggregate,
	}
}

// Compute recomputes every aggregate for state. It never panics: any failure, including
// a missing snapshot, is reported through ChartData.Error.
func (e *Engine) Compute(ctx context.Context, state FilterState) (data ChartData) {
	if state.FlowSource == "" {
		state.FlowSource = e.defaultFlowSource
	}
	ctx, end := e.tracer.StartSpan(ctx, "compute", map[string]interface{}{
		"hours": fmt.Sprint(state.Hours), "days": fmt.Sprint(state.Days), "flow_source": state.FlowSource,
	})
	defer end()
	start := time.Now()

	defer func() {
		outcome := "success"
		if r := recover(); r != nil {
			e.log.Errorf("Aggregation panicked: %v\n%s", r, debug.Stack())
			data = ErrorChartData(fmt.Sprintf("aggregation failed: %v", r))
		}
		if data.Error != "" {
			outcome = "failure"
			e.tracer.RecordError(ctx, "compute", fmt.Errorf("%s", data.Error))
		}
		e.recorder.RecordDuration(ctx, "compute", time.Since(start), map[string]string{"outcome": outcome})
	}()

	snap := e.store.Current()
	if snap == nil {
		return ErrorChartData("analytical snapshot is not loaded")
	}
	return e.aggregate(snap.Rows, snap.Zones, state)
}
