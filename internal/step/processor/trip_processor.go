// Package processor turns CSV lines into TripRecords.
package processor

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/tigerroll/greentaxi/internal/domain/entity"
	"github.com/tigerroll/greentaxi/internal/domain/schema"
	"github.com/tigerroll/greentaxi/internal/step/reader"
	"github.com/tigerroll/greentaxi/pkg/batch/core/application/port"
	"github.com/tigerroll/greentaxi/pkg/batch/support/util/exception"
)

const moduleName = "TripProcessor"

// TripProcessor casts the positional fields of a line and stamps id, month and year.
type TripProcessor struct {
	schema   *schema.Descriptor
	year     string
	month    string
	idPrefix string
	loc      *time.Location
}

var _ port.ItemProcessor[reader.Line, entity.TripRecord] = (*TripProcessor)(nil)

// NewTripProcessor creates a processor for one month of data.
// year must have at least two digits; timestamps are read in loc.
func NewTripProcessor(desc *schema.Descriptor, year, month string, loc *time.Location) (*TripProcessor, error) {
	if err := ValidatePeriod(year, month); err != nil {
		return nil, err
	}
	if loc == nil {
		loc = time.UTC
	}
	return &TripProcessor{
		schema:   desc,
		year:     year,
		month:    month,
		idPrefix: year[len(year)-2:] + month,
		loc:      loc,
	}, nil
}

// ValidatePeriod checks that year and month are digit strings usable in a record id.
func ValidatePeriod(year, month string) error {
	if len(year) < 2 || !isDigits(year) {
		return fmt.Errorf("year must be numeric with at least two digits, got %q", year)
	}
	if !isDigits(month) {
		return fmt.Errorf("month must be numeric, got %q", month)
	}
	if m, _ := strconv.Atoi(month); m < 1 || m > 12 {
		return fmt.Errorf("month must be between 01 and 12, got %q", month)
	}
	return nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// RecordID returns the id of the data line at index: the decimal concatenation of the last two
// year digits, the month and the index.
func (p *TripProcessor) RecordID(index int) (int64, error) {
	id, err := strconv.ParseInt(p.idPrefix+strconv.Itoa(index), 10, 64)
	if err != nil {
		return 0, exception.NewParseError(moduleName, "id", p.idPrefix+strconv.Itoa(index), err)
	}
	return id, nil
}

// Process builds the record for line.
func (p *TripProcessor) Process(ctx context.Context, line reader.Line) (entity.TripRecord, error) {
	id, err := p.RecordID(line.Index)
	if err != nil {
		return entity.TripRecord{}, err
	}
	rec := entity.TripRecord{ID: id, Month: p.month, Year: p.year}
	if err := p.schema.Assign(&rec, line.Fields, p.loc); err != nil {
		if be, ok := exception.AsBatchError(err); ok {
			return entity.TripRecord{}, fmt.Errorf("data line %d: %w", line.Index, be)
		}
		return entity.TripRecord{}, exception.NewParseError(moduleName, fmt.Sprintf("line %d", line.Index), "", err)
	}
	return rec, nil
}
