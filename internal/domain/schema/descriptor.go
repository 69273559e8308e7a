// Package schema describes the green taxi CSV layout and its mapping onto TripRecord.
// The same ordered descriptor drives positional casting in the processor and the column
// list of the upsert in the writer.
package schema

import (
	"fmt"
	"strings"
	"time"

	"github.com/tigerroll/greentaxi/internal/caster"
	"github.com/tigerroll/greentaxi/internal/domain/entity"
)

// Column describes one positional CSV field.
type Column struct {
	// Name is the header text in the source file.
	Name string
	// Column is the storage column name.
	Column   string
	Kind     caster.Kind
	Nullable bool

	assign func(r *entity.TripRecord, v interface{})
}

// Descriptor is an ordered list of CSV columns plus the provenance columns
// appended by the loader.
type Descriptor struct {
	Columns    []Column
	Provenance []string
	// IDColumn is the synthesized primary key column.
	IDColumn string
}

func intField(set func(*entity.TripRecord, *int64)) func(*entity.TripRecord, interface{}) {
	return func(r *entity.TripRecord, v interface{}) {
		if v == nil {
			set(r, nil)
			return
		}
		n := v.(int64)
		set(r, &n)
	}
}

func floatField(set func(*entity.TripRecord, *float64)) func(*entity.TripRecord, interface{}) {
	return func(r *entity.TripRecord, v interface{}) {
		if v == nil {
			set(r, nil)
			return
		}
		f := v.(float64)
		set(r, &f)
	}
}

func stringField(set func(*entity.TripRecord, *string)) func(*entity.TripRecord, interface{}) {
	return func(r *entity.TripRecord, v interface{}) {
		if v == nil {
			set(r, nil)
			return
		}
		s := v.(string)
		set(r, &s)
	}
}

func timeField(set func(*entity.TripRecord, *time.Time)) func(*entity.TripRecord, interface{}) {
	return func(r *entity.TripRecord, v interface{}) {
		if v == nil {
			set(r, nil)
			return
		}
		t := v.(time.Time)
		set(r, &t)
	}
}

// GreenTaxi returns the descriptor of the TLC green taxi trip files.
func GreenTaxi() *Descriptor {
	return &Descriptor{
		IDColumn:   "id",
		Provenance: []string{"month", "year"},
		Columns: []Column{
			{"VendorID", "VendorID", caster.KindInt, true, intField(func(r *entity.TripRecord, v *int64) { r.VendorID = v })},
			{"lpep_pickup_datetime", "lpep_pickup_datetime", caster.KindTimestamp, false, timeField(func(r *entity.TripRecord, v *time.Time) { r.PickupDatetime = v })},
			{"lpep_dropoff_datetime", "lpep_dropoff_datetime", caster.KindTimestamp, false, timeField(func(r *entity.TripRecord, v *time.Time) { r.DropoffDatetime = v })},
			{"store_and_fwd_flag", "store_and_fwd_flag", caster.KindString, true, stringField(func(r *entity.TripRecord, v *string) { r.StoreAndFwdFlag = v })},
			{"RatecodeID", "RatecodeID", caster.KindInt, true, intField(func(r *entity.TripRecord, v *int64) { r.RatecodeID = v })},
			{"PULocationID", "PULocationID", caster.KindInt, true, intField(func(r *entity.TripRecord, v *int64) { r.PULocationID = v })},
			{"DOLocationID", "DOLocationID", caster.KindInt, true, intField(func(r *entity.TripRecord, v *int64) { r.DOLocationID = v })},
			{"passenger_count", "passenger_count", caster.KindInt, true, intField(func(r *entity.TripRecord, v *int64) { r.PassengerCount = v })},
			{"trip_distance", "trip_distance", caster.KindFloat, true, floatField(func(r *entity.TripRecord, v *float64) { r.TripDistance = v })},
			{"fare_amount", "fare_amount", caster.KindFloat, true, floatField(func(r *entity.TripRecord, v *float64) { r.FareAmount = v })},
			{"extra", "extra", caster.KindFloat, true, floatField(func(r *entity.TripRecord, v *float64) { r.Extra = v })},
			{"mta_tax", "mta_tax", caster.KindFloat, true, floatField(func(r *entity.TripRecord, v *float64) { r.MtaTax = v })},
			{"tip_amount", "tip_amount", caster.KindFloat, true, floatField(func(r *entity.TripRecord, v *float64) { r.TipAmount = v })},
			{"tolls_amount", "tolls_amount", caster.KindFloat, true, floatField(func(r *entity.TripRecord, v *float64) { r.TollsAmount = v })},
			{"ehail_fee", "ehail_fee", caster.KindFloat, true, floatField(func(r *entity.TripRecord, v *float64) { r.EhailFee = v })},
			{"improvement_surcharge", "improvement_surcharge", caster.KindFloat, true, floatField(func(r *entity.TripRecord, v *float64) { r.ImprovementSurcharge = v })},
			{"total_amount", "total_amount", caster.KindFloat, true, floatField(func(r *entity.TripRecord, v *float64) { r.TotalAmount = v })},
			{"payment_type", "payment_type", caster.KindInt, true, intField(func(r *entity.TripRecord, v *int64) { r.PaymentType = v })},
			{"trip_type", "trip_type", caster.KindInt, true, intField(func(r *entity.TripRecord, v *int64) { r.TripType = v })},
			{"congestion_surcharge", "congestion_surcharge", caster.KindFloat, true, floatField(func(r *entity.TripRecord, v *float64) { r.CongestionSurcharge = v })},
		},
	}
}

// Validate checks the descriptor itself: non-empty, unique names and columns, known kinds.
func (d *Descriptor) Validate() error {
	if d == nil || len(d.Columns) == 0 {
		return fmt.Errorf("schema has no columns")
	}
	names := make(map[string]struct{}, len(d.Columns))
	cols := map[string]struct{}{d.IDColumn: {}}
	for _, p := range d.Provenance {
		if _, dup := cols[p]; dup {
			return fmt.Errorf("duplicate storage column '%s'", p)
		}
		cols[p] = struct{}{}
	}
	for i, c := range d.Columns {
		if c.Name == "" || c.Column == "" {
			return fmt.Errorf("column %d has an empty name", i)
		}
		if !c.Kind.Valid() {
			return fmt.Errorf("column '%s' has unknown kind %v", c.Name, c.Kind)
		}
		if c.assign == nil {
			return fmt.Errorf("column '%s' is not mapped to a record field", c.Name)
		}
		if _, dup := names[c.Name]; dup {
			return fmt.Errorf("duplicate column name '%s'", c.Name)
		}
		names[c.Name] = struct{}{}
		if _, dup := cols[c.Column]; dup {
			return fmt.Errorf("duplicate storage column '%s'", c.Column)
		}
		cols[c.Column] = struct{}{}
	}
	return nil
}

// CheckHeader verifies that header matches the descriptor column for column.
// Names are compared case-insensitively after trimming spaces and a UTF-8 BOM.
func (d *Descriptor) CheckHeader(header []string) error {
	if len(header) != len(d.Columns) {
		return fmt.Errorf("header has %d columns, schema expects %d", len(header), len(d.Columns))
	}
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if !strings.EqualFold(h, d.Columns[i].Name) {
			return fmt.Errorf("header column %d is '%s', schema expects '%s'", i, h, d.Columns[i].Name)
		}
	}
	return nil
}

// StorageColumns returns every storage column: id, the CSV columns in order, then provenance.
func (d *Descriptor) StorageColumns() []string {
	out := make([]string, 0, len(d.Columns)+len(d.Provenance)+1)
	out = append(out, d.IDColumn)
	out = append(out, d.DataColumns()...)
	return out
}

// DataColumns returns the storage columns excluding the id. These are the columns an
// upsert overwrites when the id already exists.
func (d *Descriptor) DataColumns() []string {
	out := make([]string, 0, len(d.Columns)+len(d.Provenance))
	for _, c := range d.Columns {
		out = append(out, c.Column)
	}
	return append(out, d.Provenance...)
}

// Assign casts fields positionally and stores them on r.
// fields must have exactly one entry per column.
func (d *Descriptor) Assign(r *entity.TripRecord, fields []string, loc *time.Location) error {
	if len(fields) != len(d.Columns) {
		return fmt.Errorf("record has %d fields, schema expects %d", len(fields), len(d.Columns))
	}
	for i, c := range d.Columns {
		v, err := caster.CastField(c.Name, fields[i], c.Kind, loc)
		if err != nil {
			return err
		}
		if v == nil && !c.Nullable {
			return caster.NullError(c.Name)
		}
		c.assign(r, v)
	}
	return nil
}
