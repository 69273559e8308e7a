package repository_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/greentaxi/internal/domain/entity"
	"github.com/tigerroll/greentaxi/internal/repository"
	"github.com/tigerroll/greentaxi/pkg/batch/support/util/exception"
	testutil "github.com/tigerroll/greentaxi/pkg/batch/test"
)

func seedTrips(t *testing.T) *repository.TripRepository {
	t.Helper()
	conn := testutil.NewSQLiteConnection(t, testutil.SQLiteConfig(t), &entity.TripRecord{})
	// Inserted out of id order so ordering is observable.
	trips := []entity.TripRecord{
		{ID: 19013, Year: "2019", Month: "01"},
		{ID: 19010, Year: "2019", Month: "01"},
		{ID: 190210, Year: "2019", Month: "02"},
		{ID: 19012, Year: "2019", Month: "01"},
		{ID: 19011, Year: "2019", Month: "01"},
		{ID: 19021, Year: "2019", Month: "02"},
	}
	require.NoError(t, conn.GormDB().Create(&trips).Error)
	return repository.NewTripRepository(conn)
}

func ids(trips []entity.TripRecord) []int64 {
	out := make([]int64, len(trips))
	for i, tr := range trips {
		out[i] = tr.ID
	}
	return out
}

func TestTripRepository_GetAllOrdersByID(t *testing.T) {
	repo := seedTrips(t)
	trips, err := repo.GetAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int64{19010, 19011, 19012, 19013, 19021, 190210}, ids(trips))

	n, err := repo.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(6), n)
}

func TestTripRepository_GetPage(t *testing.T) {
	repo := seedTrips(t)
	ctx := context.Background()

	p1, err := repo.GetPage(ctx, 1, 4)
	require.NoError(t, err)
	assert.Equal(t, []int64{19010, 19011, 19012, 19013}, ids(p1))

	p2, err := repo.GetPage(ctx, 2, 4)
	require.NoError(t, err)
	assert.Equal(t, []int64{19021, 190210}, ids(p2))

	p3, err := repo.GetPage(ctx, 3, 4)
	require.NoError(t, err)
	assert.Empty(t, p3)

	_, err = repo.GetPage(ctx, 0, 4)
	require.Error(t, err)
	_, err = repo.GetPage(ctx, 1, 0)
	require.Error(t, err)
}

func TestTripRepository_Month(t *testing.T) {
	repo := seedTrips(t)
	ctx := context.Background()

	jan, err := repo.GetMonth(ctx, "2019", "01")
	require.NoError(t, err)
	assert.Equal(t, []int64{19010, 19011, 19012, 19013}, ids(jan))

	feb := repo.Month("2019", "02")
	all, err := feb.GetAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{19021, 190210}, ids(all))

	page, err := feb.GetPage(ctx, 2, 1)
	require.NoError(t, err)
	assert.Equal(t, []int64{190210}, ids(page))

	none, err := repo.Month("2020", "01").GetAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestTripRepository_MissingTable(t *testing.T) {
	conn := testutil.NewSQLiteConnection(t, testutil.SQLiteConfig(t))
	repo := repository.NewTripRepository(conn)

	_, err := repo.GetAll(context.Background())
	require.Error(t, err)
	var be *exception.BatchError
	assert.True(t, errors.As(err, &be))
}

func TestPages(t *testing.T) {
	repo := seedTrips(t)
	ctx := context.Background()

	tests := []struct {
		size      int
		wantPages int
		wantCalls int
	}{
		{size: 1, wantPages: 7, wantCalls: 6},
		{size: 2, wantPages: 4, wantCalls: 3},
		{size: 4, wantPages: 2, wantCalls: 2},
		{size: 6, wantPages: 2, wantCalls: 1},
		{size: 100, wantPages: 1, wantCalls: 1},
	}
	for _, tt := range tests {
		var got []int64
		calls := 0
		pages, err := repository.Pages(ctx, repo, tt.size, func(page []entity.TripRecord) error {
			calls++
			got = append(got, ids(page)...)
			return nil
		})
		require.NoError(t, err, "size %d", tt.size)
		assert.Equal(t, tt.wantPages, pages, "size %d", tt.size)
		assert.Equal(t, tt.wantCalls, calls, "size %d", tt.size)
		assert.Len(t, got, 6, "size %d", tt.size)
	}
}

func TestPages_Errors(t *testing.T) {
	repo := seedTrips(t)

	_, err := repository.Pages(context.Background(), repo, 0, func([]entity.TripRecord) error { return nil })
	require.Error(t, err)

	stop := errors.New("stop")
	pages, err := repository.Pages(context.Background(), repo, 2, func([]entity.TripRecord) error { return stop })
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, pages)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	pages, err = repository.Pages(ctx, repo, 2, func([]entity.TripRecord) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, pages)
}
