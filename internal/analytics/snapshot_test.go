package analytics_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/greentaxi/internal/analytics"
	"github.com/tigerroll/greentaxi/internal/domain/entity"
)

// pagedSource serves trips in pages and can be told to fail.
type pagedSource struct {
	trips []entity.TripRecord
	fail  error
	calls int
}

func (s *pagedSource) GetAll(context.Context) ([]entity.TripRecord, error) { return s.trips, s.fail }

func (s *pagedSource) GetPage(_ context.Context, page, size int) ([]entity.TripRecord, error) {
	s.calls++
	if s.fail != nil {
		return nil, s.fail
	}
	start := (page - 1) * size
	if start >= len(s.trips) {
		return nil, nil
	}
	end := min(start+size, len(s.trips))
	return s.trips[start:end], nil
}

func trips(n int) []entity.TripRecord {
	out := make([]entity.TripRecord, n)
	for i := range out {
		out[i] = entity.TripRecord{ID: int64(19010 + i), PULocationID: i64(4), DOLocationID: i64(17), PickupDatetime: at("2019-01-07 08:00:00")}
	}
	return out
}

func TestRepositoryBuilder_ReadsAllPages(t *testing.T) {
	cases := []struct {
		trips, pageSize, pages int
	}{
		{0, 3, 1},
		{2, 3, 1},
		{3, 3, 2},
		{7, 3, 3},
	}
	for _, tc := range cases {
		src := &pagedSource{trips: trips(tc.trips)}
		snap, err := analytics.NewRepositoryBuilder(src, testZones(), tc.pageSize, time.UTC)(context.Background())
		require.NoError(t, err)
		assert.Len(t, snap.Rows, tc.trips)
		assert.Equal(t, tc.pages, snap.Pages, "%d trips, page size %d", tc.trips, tc.pageSize)
		assert.Equal(t, tc.pages, src.calls)
	}
}

func TestSnapshotStore_ReloadPublishesNewVersion(t *testing.T) {
	src := &pagedSource{trips: trips(2)}
	store := analytics.NewSnapshotStore(analytics.NewRepositoryBuilder(src, testZones(), 10, time.UTC))
	assert.Nil(t, store.Current())

	first, err := store.Reload(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(1), first.Version)
	assert.False(t, first.BuiltAt.IsZero())
	assert.Same(t, first, store.Current())

	src.trips = trips(5)
	second, err := store.Reload(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(2), second.Version)
	assert.Len(t, store.Current().Rows, 5)
	assert.Len(t, first.Rows, 2, "published snapshots are never modified")
}

func TestSnapshotStore_FailedReloadKeepsPrevious(t *testing.T) {
	src := &pagedSource{trips: trips(2)}
	store := analytics.NewSnapshotStore(analytics.NewRepositoryBuilder(src, testZones(), 10, time.UTC))
	first, err := store.Reload(context.Background())
	require.NoError(t, err)

	src.fail = errors.New("connection reset by peer")
	_, err = store.Reload(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset by peer")
	assert.Same(t, first, store.Current())
}

func TestSnapshotStore_ConcurrentReadsDuringReload(t *testing.T) {
	src := &pagedSource{trips: trips(50)}
	store := analytics.NewSnapshotStore(analytics.NewRepositoryBuilder(src, testZones(), 7, time.UTC))
	_, err := store.Reload(context.Background())
	require.NoError(t, err)
	engine := analytics.NewEngine(store, "Manhattan", nil, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				data := engine.Compute(context.Background(), analytics.DefaultFilterState())
				assert.Empty(t, data.Error)
				assert.Equal(t, int64(50), data.KPIs.TripCount)
			}
		}()
	}
	for i := 0; i < 3; i++ {
		_, err := store.Reload(context.Background())
		require.NoError(t, err)
	}
	wg.Wait()
	assert.Equal(t, uint64(4), store.Current().Version)
}
