package export_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/greentaxi/internal/config"
	"github.com/tigerroll/greentaxi/internal/domain/entity"
	"github.com/tigerroll/greentaxi/internal/export"
	"github.com/tigerroll/greentaxi/internal/repository"
	testutil "github.com/tigerroll/greentaxi/pkg/batch/test"
)

func exportConfig() config.ExportConfig {
	return config.ExportConfig{Prefix: "export/", Parallel: 1}
}

func TestExporter_WritesMonth(t *testing.T) {
	conn := testutil.NewSQLiteConnection(t, testutil.SQLiteConfig(t), &entity.TripRecord{})
	pickup := time.Date(2019, 1, 1, 0, 10, 0, 0, time.UTC)
	fare := 6.5
	trips := []entity.TripRecord{
		{ID: 19010, Year: "2019", Month: "01", PickupDatetime: &pickup, FareAmount: &fare},
		{ID: 19011, Year: "2019", Month: "01"},
		{ID: 19012, Year: "2019", Month: "01"},
		{ID: 19020, Year: "2019", Month: "02"},
	}
	require.NoError(t, conn.GormDB().Create(&trips).Error)

	store, dir := testutil.NewLocalStorage(t)
	ex := export.NewExporter(repository.NewTripRepository(conn), store, exportConfig(), 2, nil)

	object, rows, err := ex.Export(context.Background(), "2019", "01")
	require.NoError(t, err)
	assert.Equal(t, "export/green_tripdata_2019-01.parquet", object)
	assert.Equal(t, 3, rows)

	b, err := os.ReadFile(filepath.Join(dir, "export", "green_tripdata_2019-01.parquet"))
	require.NoError(t, err)
	assert.Equal(t, "PAR1", string(b[:4]))
}

func TestExporter_EmptyMonth(t *testing.T) {
	conn := testutil.NewSQLiteConnection(t, testutil.SQLiteConfig(t), &entity.TripRecord{})
	store, dir := testutil.NewLocalStorage(t)
	ex := export.NewExporter(repository.NewTripRepository(conn), store, exportConfig(), 10, nil)

	object, rows, err := ex.Export(context.Background(), "2019", "03")
	require.NoError(t, err)
	assert.Empty(t, object)
	assert.Zero(t, rows)
	_, err = os.Stat(filepath.Join(dir, "export"))
	assert.True(t, os.IsNotExist(err))
}

type brokenSource struct{ err error }

func (b brokenSource) Month(year, month string) repository.DataSource { return b }

func (b brokenSource) GetAll(context.Context) ([]entity.TripRecord, error) { return nil, b.err }

func (b brokenSource) GetPage(context.Context, int, int) ([]entity.TripRecord, error) {
	return nil, b.err
}

func TestExporter_ReadFailure(t *testing.T) {
	store, _ := testutil.NewLocalStorage(t)
	cause := errors.New("database is locked")
	ex := export.NewExporter(brokenSource{err: cause}, store, exportConfig(), 10, nil)

	_, _, err := ex.Export(context.Background(), "2019", "01")
	require.Error(t, err)
	assert.ErrorIs(t, err, cause)
}

func TestFromTrip(t *testing.T) {
	pickup := time.Date(2019, 1, 1, 0, 10, 0, 0, time.UTC)
	vendor := int64(2)
	row := export.FromTrip(entity.TripRecord{ID: 19010, VendorID: &vendor, PickupDatetime: &pickup, Year: "2019", Month: "01"})

	assert.Equal(t, int64(19010), row.ID)
	assert.Equal(t, &vendor, row.VendorID)
	require.NotNil(t, row.PickupDatetime)
	assert.Equal(t, pickup.UnixMilli(), *row.PickupDatetime)
	assert.Nil(t, row.DropoffDatetime)
	assert.Equal(t, "2019", row.Year)
}
