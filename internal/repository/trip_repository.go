// Package repository reads trip records and zone reference data.
package repository

import (
	"context"
	"fmt"

	"github.com/tigerroll/greentaxi/internal/domain/entity"
	"github.com/tigerroll/greentaxi/pkg/batch/adapter/database"
	"github.com/tigerroll/greentaxi/pkg/batch/support/util/exception"
	"github.com/tigerroll/greentaxi/pkg/batch/support/util/logger"
)

const moduleName = "repository"

// DataSource reads stored trips ordered by id.
type DataSource interface {
	GetAll(ctx context.Context) ([]entity.TripRecord, error)
	// GetPage returns page (1-based) of size records, i.e. offset (page-1)*size.
	GetPage(ctx context.Context, page, size int) ([]entity.TripRecord, error)
}

// TripRepository implements DataSource over a database connection.
type TripRepository struct {
	db  database.DBExecutor
	log *logger.Logger
}

var _ DataSource = (*TripRepository)(nil)

// NewTripRepository creates a repository on db.
func NewTripRepository(db database.DBExecutor) *TripRepository {
	return &TripRepository{db: db, log: logger.Named(moduleName)}
}

func (r *TripRepository) GetAll(ctx context.Context) ([]entity.TripRecord, error) {
	var trips []entity.TripRecord
	if err := r.db.ExecuteQueryAdvanced(ctx, &trips, nil, "id", 0, 0); err != nil {
		return nil, exception.NewBatchError(moduleName, "failed to read trips", err, false, false)
	}
	return trips, nil
}

func (r *TripRepository) GetPage(ctx context.Context, page, size int) ([]entity.TripRecord, error) {
	if page < 1 || size < 1 {
		return nil, exception.NewBatchError(moduleName, fmt.Sprintf("invalid page %d of size %d", page, size), nil, false, false)
	}
	var trips []entity.TripRecord
	if err := r.db.ExecuteQueryAdvanced(ctx, &trips, nil, "id", size, (page-1)*size); err != nil {
		return nil, exception.NewBatchError(moduleName, fmt.Sprintf("failed to read trip page %d", page), err, false, false)
	}
	return trips, nil
}

// GetMonth returns the trips loaded for year/month ordered by id.
func (r *TripRepository) GetMonth(ctx context.Context, year, month string) ([]entity.TripRecord, error) {
	var trips []entity.TripRecord
	query := map[string]interface{}{"year": year, "month": month}
	if err := r.db.ExecuteQueryAdvanced(ctx, &trips, query, "id", 0, 0); err != nil {
		return nil, exception.NewBatchError(moduleName, fmt.Sprintf("failed to read trips of %s-%s", year, month), err, false, false)
	}
	return trips, nil
}

// Month returns a DataSource restricted to the trips loaded for year/month.
func (r *TripRepository) Month(year, month string) DataSource {
	return &monthView{repo: r, year: year, month: month}
}

type monthView struct {
	repo        *TripRepository
	year, month string
}

func (v *monthView) GetAll(ctx context.Context) ([]entity.TripRecord, error) {
	return v.repo.GetMonth(ctx, v.year, v.month)
}

func (v *monthView) GetPage(ctx context.Context, page, size int) ([]entity.TripRecord, error) {
	if page < 1 || size < 1 {
		return nil, exception.NewBatchError(moduleName, fmt.Sprintf("invalid page %d of size %d", page, size), nil, false, false)
	}
	var trips []entity.TripRecord
	query := map[string]interface{}{"year": v.year, "month": v.month}
	if err := v.repo.db.ExecuteQueryAdvanced(ctx, &trips, query, "id", size, (page-1)*size); err != nil {
		return nil, exception.NewBatchError(moduleName, fmt.Sprintf("failed to read page %d of %s-%s", page, v.year, v.month), err, false, false)
	}
	return trips, nil
}

// Count returns the number of stored trips.
func (r *TripRepository) Count(ctx context.Context) (int64, error) {
	n, err := r.db.Count(ctx, &entity.TripRecord{}, nil)
	if err != nil {
		return 0, exception.NewBatchError(moduleName, "failed to count trips", err, false, false)
	}
	return n, nil
}

// Pages calls fn with consecutive pages of size records until a page shorter than size
// (possibly empty) is returned. It returns the number of pages fetched.
func Pages(ctx context.Context, src DataSource, size int, fn func(page []entity.TripRecord) error) (int, error) {
	if size < 1 {
		return 0, fmt.Errorf("page size must be positive, got %d", size)
	}
	for page := 1; ; page++ {
		if err := ctx.Err(); err != nil {
			return page - 1, err
		}
		trips, err := src.GetPage(ctx, page, size)
		if err != nil {
			return page - 1, err
		}
		if len(trips) > 0 {
			if err := fn(trips); err != nil {
				return page, err
			}
		}
		if len(trips) < size {
			return page, nil
		}
	}
}
