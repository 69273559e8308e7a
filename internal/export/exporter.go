// Package export writes stored trips of one month to a Parquet file in storage.
package export

import (
	"context"
	"fmt"

	"github.com/tigerroll/greentaxi/internal/config"
	"github.com/tigerroll/greentaxi/internal/domain/entity"
	"github.com/tigerroll/greentaxi/internal/repository"
	"github.com/tigerroll/greentaxi/pkg/batch/adapter/storage"
	"github.com/tigerroll/greentaxi/pkg/batch/component/step/writer"
	"github.com/tigerroll/greentaxi/pkg/batch/core/metrics"
	"github.com/tigerroll/greentaxi/pkg/batch/support/util/exception"
	"github.com/tigerroll/greentaxi/pkg/batch/support/util/logger"
)

const moduleName = "export"

// ParquetTrip is the Parquet row layout of a trip. Timestamps are epoch milliseconds.
type ParquetTrip struct {
	ID                   int64    `parquet:"name=id, type=INT64"`
	VendorID             *int64   `parquet:"name=VendorID, type=INT64, repetitiontype=OPTIONAL"`
	PickupDatetime       *int64   `parquet:"name=lpep_pickup_datetime, type=INT64, convertedtype=TIMESTAMP_MILLIS, repetitiontype=OPTIONAL"`
	DropoffDatetime      *int64   `parquet:"name=lpep_dropoff_datetime, type=INT64, convertedtype=TIMESTAMP_MILLIS, repetitiontype=OPTIONAL"`
	StoreAndFwdFlag      *string  `parquet:"name=store_and_fwd_flag, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
	RatecodeID           *int64   `parquet:"name=RatecodeID, type=INT64, repetitiontype=OPTIONAL"`
	PULocationID         *int64   `parquet:"name=PULocationID, type=INT64, repetitiontype=OPTIONAL"`
	DOLocationID         *int64   `parquet:"name=DOLocationID, type=INT64, repetitiontype=OPTIONAL"`
	PassengerCount       *int64   `parquet:"name=passenger_count, type=INT64, repetitiontype=OPTIONAL"`
	TripDistance         *float64 `parquet:"name=trip_distance, type=DOUBLE, repetitiontype=OPTIONAL"`
	FareAmount           *float64 `parquet:"name=fare_amount, type=DOUBLE, repetitiontype=OPTIONAL"`
	Extra                *float64 `parquet:"name=extra, type=DOUBLE, repetitiontype=OPTIONAL"`
	MtaTax               *float64 `parquet:"name=mta_tax, type=DOUBLE, repetitiontype=OPTIONAL"`
	TipAmount            *float64 `parquet:"name=tip_amount, type=DOUBLE, repetitiontype=OPTIONAL"`
	TollsAmount          *float64 `parquet:"name=tolls_amount, type=DOUBLE, repetitiontype=OPTIONAL"`
	EhailFee             *float64 `parquet:"name=ehail_fee, type=DOUBLE, repetitiontype=OPTIONAL"`
	ImprovementSurcharge *float64 `parquet:"name=improvement_surcharge, type=DOUBLE, repetitiontype=OPTIONAL"`
	TotalAmount          *float64 `parquet:"name=total_amount, type=DOUBLE, repetitiontype=OPTIONAL"`
	PaymentType          *int64   `parquet:"name=payment_type, type=INT64, repetitiontype=OPTIONAL"`
	TripType             *int64   `parquet:"name=trip_type, type=INT64, repetitiontype=OPTIONAL"`
	CongestionSurcharge  *float64 `parquet:"name=congestion_surcharge, type=DOUBLE, repetitiontype=OPTIONAL"`
	Month                string   `parquet:"name=month, type=BYTE_ARRAY, convertedtype=UTF8"`
	Year                 string   `parquet:"name=year, type=BYTE_ARRAY, convertedtype=UTF8"`
}

// FromTrip converts a stored trip to its Parquet row.
func FromTrip(t entity.TripRecord) ParquetTrip {
	row := ParquetTrip{
		ID:                   t.ID,
		VendorID:             t.VendorID,
		StoreAndFwdFlag:      t.StoreAndFwdFlag,
		RatecodeID:           t.RatecodeID,
		PULocationID:         t.PULocationID,
		DOLocationID:         t.DOLocationID,
		PassengerCount:       t.PassengerCount,
		TripDistance:         t.TripDistance,
		FareAmount:           t.FareAmount,
		Extra:                t.Extra,
		MtaTax:               t.MtaTax,
		TipAmount:            t.TipAmount,
		TollsAmount:          t.TollsAmount,
		EhailFee:             t.EhailFee,
		ImprovementSurcharge: t.ImprovementSurcharge,
		TotalAmount:          t.TotalAmount,
		PaymentType:          t.PaymentType,
		TripType:             t.TripType,
		CongestionSurcharge:  t.CongestionSurcharge,
		Month:                t.Month,
		Year:                 t.Year,
	}
	if t.PickupDatetime != nil {
		ms := t.PickupDatetime.UnixMilli()
		row.PickupDatetime = &ms
	}
	if t.DropoffDatetime != nil {
		ms := t.DropoffDatetime.UnixMilli()
		row.DropoffDatetime = &ms
	}
	return row
}

// MonthSource scopes stored trips to one month.
type MonthSource interface {
	Month(year, month string) repository.DataSource
}

// Exporter writes a month of stored trips to export storage.
type Exporter struct {
	src      MonthSource
	conn     storage.StorageConnection
	cfg      config.ExportConfig
	pageSize int
	tracer   metrics.Tracer
	log      *logger.Logger
}

// NewExporter creates an exporter reading src in pages of pageSize.
func NewExporter(src MonthSource, conn storage.StorageConnection, cfg config.ExportConfig, pageSize int, tracer metrics.Tracer) *Exporter {
	if tracer == nil {
		tracer = metrics.NewNoOpTracer()
	}
	return &Exporter{src: src, conn: conn, cfg: cfg, pageSize: pageSize, tracer: tracer, log: logger.Named(moduleName)}
}

// ObjectName is the object a month is exported to.
func (e *Exporter) ObjectName(year, month string) string {
	return e.cfg.Prefix + fmt.Sprintf("green_tripdata_%s-%s.parquet", year, month)
}

// Export writes the trips of year/month and returns the object name and row count.
// A month with no stored trips writes nothing and returns an empty object name.
func (e *Exporter) Export(ctx context.Context, year, month string) (string, int, error) {
	ctx, end := e.tracer.StartSpan(ctx, "export", map[string]interface{}{"year": year, "month": month})
	defer end()

	objectName := e.ObjectName(year, month)
	w, err := writer.NewParquetWriter[ParquetTrip]("ParquetTripWriter", e.conn, writer.ParquetWriterConfig{
		CompressionType: "SNAPPY",
		Parallel:        e.cfg.Parallel,
		RowGroupSize:    e.cfg.RowGroupSize,
	}, writer.WithObjectNamer[ParquetTrip](func(string) string { return objectName }))
	if err != nil {
		return "", 0, err
	}
	if err := w.Open(ctx); err != nil {
		return "", 0, err
	}

	rows := 0
	pages, err := repository.Pages(ctx, e.src.Month(year, month), e.pageSize, func(page []entity.TripRecord) error {
		out := make([]ParquetTrip, len(page))
		for i := range page {
			out[i] = FromTrip(page[i])
		}
		rows += len(out)
		return w.Write(ctx, nil, out)
	})
	if err != nil {
		e.tracer.RecordError(ctx, moduleName, err)
		return "", rows, exception.NewBatchError(moduleName, fmt.Sprintf("failed to read trips of %s-%s", year, month), err, false, false)
	}
	if err := w.Close(ctx); err != nil {
		e.tracer.RecordError(ctx, moduleName, err)
		return "", rows, err
	}
	if rows == 0 {
		e.log.Warnf("No trips stored for %s-%s, nothing exported.", year, month)
		return "", 0, nil
	}
	e.log.Infof("Exported %d trips of %s-%s in %d pages to %s.", rows, year, month, pages, e.conn.URI("", objectName))
	return objectName, rows, nil
}
