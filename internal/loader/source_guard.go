package loader

import (
	"context"
	"path"

	"github.com/google/uuid"

	"github.com/tigerroll/greentaxi/pkg/batch/adapter/storage"
	"github.com/tigerroll/greentaxi/pkg/batch/support/util/exception"
	"github.com/tigerroll/greentaxi/pkg/batch/support/util/logger"
)

// SourceGuard owns a landed source object for the duration of one load.
// Commit deletes it; Quarantine moves it aside. Only the first of the two has an effect.
type SourceGuard struct {
	conn             storage.StorageConnection
	object           string
	quarantinePrefix string
	released         bool
	log              *logger.Logger
}

// NewSourceGuard guards object in conn.
func NewSourceGuard(conn storage.StorageConnection, object, quarantinePrefix string) *SourceGuard {
	return &SourceGuard{
		conn:             conn,
		object:           object,
		quarantinePrefix: quarantinePrefix,
		log:              logger.Named("source"),
	}
}

// Object returns the guarded object name.
func (g *SourceGuard) Object() string { return g.object }

// Commit deletes the source. Call only after the load has committed.
func (g *SourceGuard) Commit(ctx context.Context) error {
	if g.released {
		return nil
	}
	g.released = true
	if err := g.conn.DeleteObject(ctx, "", g.object); err != nil {
		return exception.NewBatchError(moduleName, "failed to delete loaded source "+g.conn.URI("", g.object), err, false, false)
	}
	g.log.Infof("Deleted loaded source %s", g.conn.URI("", g.object))
	return nil
}

// Quarantine moves the source below the quarantine prefix with a unique suffix and returns
// the new object name. A failed move is a quarantine error and the source stays in place.
func (g *SourceGuard) Quarantine(ctx context.Context) (string, error) {
	if g.released {
		return "", nil
	}
	g.released = true
	dst := g.quarantinePrefix + path.Base(g.object) + "." + uuid.NewString()
	if err := g.conn.MoveObject(ctx, "", g.object, dst); err != nil {
		return "", exception.NewQuarantineError(moduleName, "failed to quarantine "+g.conn.URI("", g.object), err)
	}
	g.log.Warnf("Quarantined %s as %s", g.conn.URI("", g.object), g.conn.URI("", dst))
	return dst, nil
}
