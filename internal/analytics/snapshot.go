package analytics

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tigerroll/greentaxi/internal/domain/entity"
	"github.com/tigerroll/greentaxi/internal/repository"
	"github.com/tigerroll/greentaxi/pkg/batch/support/util/logger"
)

// Snapshot is an immutable analytical table. Nothing may modify Rows or Zones after
// publication; readers keep the pointer for the duration of one computation.
type Snapshot struct {
	Rows    []entity.AnalyticalRow
	Zones   *entity.ZoneTable
	Version uint64
	BuiltAt time.Time
	Pages   int
}

// Builder produces a new snapshot.
type Builder func(ctx context.Context) (*Snapshot, error)

// SnapshotStore publishes snapshots atomically. Reloads are serialized; readers never block.
type SnapshotStore struct {
	current atomic.Pointer[Snapshot]
	build   Builder
	reload  sync.Mutex
	version uint64
	log     *logger.Logger
}

// NewSnapshotStore creates an empty store.
func NewSnapshotStore(build Builder) *SnapshotStore {
	return &SnapshotStore{build: build, log: logger.Named("snapshot")}
}

// Current returns the published snapshot, or nil before the first Reload.
func (s *SnapshotStore) Current() *Snapshot {
	return s.current.Load()
}

// Reload builds a new snapshot and publishes it. On failure the previous one stays.
func (s *SnapshotStore) Reload(ctx context.Context) (*Snapshot, error) {
	s.reload.Lock()
	defer s.reload.Unlock()

	start := time.Now()
	snap, err := s.build(ctx)
	if err != nil {
		s.log.Errorf("Snapshot rebuild failed, keeping version %d: %v", s.versionOf(s.Current()), err)
		return nil, err
	}
	s.version++
	snap.Version = s.version
	if snap.BuiltAt.IsZero() {
		snap.BuiltAt = time.Now()
	}
	s.current.Store(snap)
	s.log.Infof("Published snapshot version %d with %d rows in %s.", snap.Version, len(snap.Rows), time.Since(start))
	return snap, nil
}

func (s *SnapshotStore) versionOf(snap *Snapshot) uint64 {
	if snap == nil {
		return 0
	}
	return snap.Version
}

// NewRepositoryBuilder assembles a snapshot from src page by page, pageSize trips at a time,
// until a short page is returned.
func NewRepositoryBuilder(src repository.DataSource, zones *entity.ZoneTable, pageSize int, loc *time.Location) Builder {
	return func(ctx context.Context) (*Snapshot, error) {
		var rows []entity.AnalyticalRow
		pages, err := repository.Pages(ctx, src, pageSize, func(page []entity.TripRecord) error {
			rows = append(rows, Assemble(page, zones, loc)...)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to read trips after %d pages: %w", pages, err)
		}
		return &Snapshot{Rows: rows, Zones: zones, Pages: pages, BuiltAt: time.Now()}, nil
	}
}
