package app

import (
	"context"
	"fmt"
	"io/fs"
	"net/http"
	"time"

	"go.uber.org/fx"

	"github.com/tigerroll/greentaxi/internal/analytics"
	"github.com/tigerroll/greentaxi/internal/api"
	appconfig "github.com/tigerroll/greentaxi/internal/config"
	"github.com/tigerroll/greentaxi/internal/domain/entity"
	"github.com/tigerroll/greentaxi/internal/domain/schema"
	"github.com/tigerroll/greentaxi/internal/export"
	"github.com/tigerroll/greentaxi/internal/fetcher"
	"github.com/tigerroll/greentaxi/internal/loader"
	"github.com/tigerroll/greentaxi/internal/repository"
	"github.com/tigerroll/greentaxi/pkg/batch/adapter/database"
	gormadapter "github.com/tigerroll/greentaxi/pkg/batch/adapter/database/gorm"
	"github.com/tigerroll/greentaxi/pkg/batch/adapter/storage"
	"github.com/tigerroll/greentaxi/pkg/batch/component/tasklet/migration"
	coreconfig "github.com/tigerroll/greentaxi/pkg/batch/core/config"
	"github.com/tigerroll/greentaxi/pkg/batch/core/domain/model"
	"github.com/tigerroll/greentaxi/pkg/batch/core/metrics"
	"github.com/tigerroll/greentaxi/pkg/batch/core/tx"
	"github.com/tigerroll/greentaxi/pkg/batch/engine/step/tasklet"
	inframetrics "github.com/tigerroll/greentaxi/pkg/batch/infrastructure/metrics"
	"github.com/tigerroll/greentaxi/pkg/batch/listener/logging"
	"github.com/tigerroll/greentaxi/pkg/batch/listener/notification"
	"github.com/tigerroll/greentaxi/pkg/batch/support/util/logger"
)

// Connections bundles the database and storage handles of one process.
type Connections struct {
	fx.Out
	DB      database.DBConnection
	Landing storage.StorageConnection `name:"landing"`
	Zones   storage.StorageConnection `name:"zones"`
	Export  storage.StorageConnection `name:"export"`
}

// NewDBProvider decodes surfin.adaptor.database and closes every connection on stop.
func NewDBProvider(lc fx.Lifecycle, cfg *coreconfig.Config) (*gormadapter.Provider, error) {
	p, err := gormadapter.NewProvider(cfg.AdaptorSection("database"))
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{OnStop: func(context.Context) error { return p.CloseAll() }})
	return p, nil
}

// NewStorageProvider decodes surfin.adaptor.storage and closes every connection on stop.
func NewStorageProvider(lc fx.Lifecycle, cfg *coreconfig.Config) (*storage.Provider, error) {
	p, err := storage.NewProvider(cfg.AdaptorSection("storage"))
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{OnStop: func(context.Context) error { return p.CloseAll() }})
	return p, nil
}

// NewConnections opens the connections named in the greentaxi section.
func NewConnections(db *gormadapter.Provider, st *storage.Provider, app *appconfig.AppConfig) (Connections, error) {
	var c Connections
	var err error
	if c.DB, err = db.GetConnection(app.Database); err != nil {
		return c, err
	}
	if c.Landing, err = st.GetConnection(app.Source.Storage); err != nil {
		return c, err
	}
	if c.Zones, err = st.GetConnection(app.ZoneLookup.Storage); err != nil {
		return c, err
	}
	if c.Export, err = st.GetConnection(app.Export.Storage); err != nil {
		return c, err
	}
	return c, nil
}

// NewTransactionManager wraps the trip database.
func NewTransactionManager(conn database.DBConnection) (tx.TransactionManager, error) {
	return gormadapter.NewGormTransactionManager(conn)
}

// NewLocation loads surfin.system.timezone.
func NewLocation(sys *coreconfig.SystemConfig) (*time.Location, error) {
	if sys.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(sys.Timezone)
	if err != nil {
		return nil, fmt.Errorf("unknown timezone '%s': %w", sys.Timezone, err)
	}
	return loc, nil
}

// NewTripRepository reads green_taxi through the trip database.
func NewTripRepository(conn database.DBConnection) *repository.TripRepository {
	return repository.NewTripRepository(conn)
}

// NewNotifier selects the load-completed notifier from greentaxi.notification.type.
func NewNotifier(lc fx.Lifecycle, app *appconfig.AppConfig) (notification.Notifier, error) {
	var n notification.Notifier
	switch app.Notification.Type {
	case "amqp":
		an, err := notification.NewAMQPNotifier(amqpConfig(app))
		if err != nil {
			return nil, err
		}
		n = an
	case "none":
		n = notification.NoOpNotifier{}
	default:
		n = notification.NewLoggingNotifier()
	}
	lc.Append(fx.Hook{OnStop: func(context.Context) error { return n.Close() }})
	return n, nil
}

func amqpConfig(app *appconfig.AppConfig) notification.AMQPConfig {
	return notification.AMQPConfig{
		URL:        app.Notification.URL,
		Exchange:   app.Notification.Exchange,
		RoutingKey: app.Notification.RoutingKey,
		Queue:      app.Notification.Queue,
	}
}

// CoreModule provides configuration, observability and connections shared by every command.
var CoreModule = fx.Options(
	logger.Module,
	coreconfig.Module,
	inframetrics.Module,
	fx.Provide(
		appconfig.NewAppConfigProvider,
		NewDBProvider,
		NewStorageProvider,
		NewConnections,
		NewTransactionManager,
		NewLocation,
		NewTripRepository,
		schema.GreenTaxi,
	),
)

// LoadParams are the dependencies of the load command.
type LoadParams struct {
	fx.In
	App        *appconfig.AppConfig
	Batch      *coreconfig.BatchConfig
	System     *coreconfig.SystemConfig
	Schema     *schema.Descriptor
	TxManager  tx.TransactionManager
	DB         database.DBConnection
	Landing    storage.StorageConnection `name:"landing"`
	Notifier   notification.Notifier
	Recorder   metrics.MetricRecorder
	Tracer     metrics.Tracer
	Migrations fs.FS `name:"migrations" optional:"true"`
}

// NewRemoteFetcher downloads monthly files into landing storage.
func NewRemoteFetcher(p LoadParams) *fetcher.RemoteFetcher {
	return fetcher.NewRemoteFetcher(p.App, p.Landing, fetcher.WithMetrics(p.Recorder, p.Tracer))
}

// NewMigrationStep builds the table creation step run by --create_table.
func NewMigrationStep(p LoadParams) (*tasklet.TaskletStep, error) {
	if p.Migrations == nil {
		return nil, fmt.Errorf("no migrations are embedded")
	}
	t, err := migration.NewMigrationTasklet(p.DB.Config(), p.Migrations)
	if err != nil {
		return nil, err
	}
	return tasklet.NewTaskletStep("createTableStep", t, nil, p.Recorder, p.Tracer), nil
}

// LoadModule provides the fetch and load components.
var LoadModule = fx.Options(
	fx.Provide(NewNotifier, NewRemoteFetcher),
)

// NewBatchLoader builds the loader, adding the migration step when requested.
func NewBatchLoader(p LoadParams, createTable bool) (*loader.BatchLoader, error) {
	opts := []loader.Option{
		loader.WithMetrics(p.Recorder, p.Tracer),
		loader.WithJobListener(logging.NewLoggingJobListener()),
		loader.WithJobListener(notification.NewNotificationListener(p.Notifier)),
	}
	if createTable {
		step, err := NewMigrationStep(p)
		if err != nil {
			return nil, err
		}
		opts = append(opts, loader.WithPreStep(step))
	}
	return loader.NewBatchLoader(p.Schema, p.TxManager, p.Landing, p.App, p.Batch, p.System, opts...)
}

// ServeParams are the dependencies of the dashboard.
type ServeParams struct {
	fx.In
	Lifecycle  fx.Lifecycle
	App        *appconfig.AppConfig
	Trips      *repository.TripRepository
	Zones      storage.StorageConnection `name:"zones"`
	Location   *time.Location
	Recorder   metrics.MetricRecorder
	Tracer     metrics.Tracer
	Prometheus *inframetrics.PrometheusRecorder `optional:"true"`
}

// NewZoneTable loads the zone lookup once at start.
func NewZoneTable(p ServeParams) (*entity.ZoneTable, error) {
	return repository.LoadZones(context.Background(), p.Zones, p.App.ZoneLookup.Object)
}

// NewSnapshotStore builds the first snapshot on start. A failed build fails the start.
func NewSnapshotStore(p ServeParams, zones *entity.ZoneTable) *analytics.SnapshotStore {
	store := analytics.NewSnapshotStore(analytics.NewRepositoryBuilder(p.Trips, zones, p.App.PageSize, p.Location))
	p.Lifecycle.Append(fx.Hook{OnStart: func(ctx context.Context) error {
		_, err := store.Reload(ctx)
		return err
	}})
	return store
}

// NewEngine answers chart requests from the store.
func NewEngine(p ServeParams, store *analytics.SnapshotStore) *analytics.Engine {
	return analytics.NewEngine(store, p.App.FlowSource, p.Recorder, p.Tracer)
}

// NewServer wires the router and runs it for the lifetime of the container.
func NewServer(p ServeParams, engine *analytics.Engine, store *analytics.SnapshotStore) *api.Server {
	var metricsHandler http.Handler
	if p.Prometheus != nil {
		metricsHandler = p.Prometheus.Handler()
	}
	router := api.NewRouter(api.NewChartHandler(engine, store), metricsHandler, p.App.Server.Mode)
	srv := api.NewServer(p.App.Server.ListenAddr, router, p.App.Server.ShutdownTimeout)
	p.Lifecycle.Append(fx.Hook{OnStart: srv.Start, OnStop: srv.Shutdown})
	return srv
}

// StartReloadConsumer reloads the snapshot whenever a load completes, when notifications
// travel over AMQP.
func StartReloadConsumer(p ServeParams, store *analytics.SnapshotStore) error {
	if p.App.Notification.Type != "amqp" {
		return nil
	}
	handler := func(ctx context.Context, ev notification.JobCompletedEvent) error {
		if ev.JobName != loader.JobName || ev.Status != model.BatchStatusCompleted.String() {
			return nil
		}
		_, err := store.Reload(ctx)
		return err
	}
	consumer, err := notification.NewAMQPConsumer(amqpConfig(p.App), handler)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithCancel(context.Background())
	p.Lifecycle.Append(fx.Hook{
		OnStart: func(context.Context) error { return consumer.Start(ctx) },
		OnStop: func(context.Context) error {
			cancel()
			return consumer.Close()
		},
	})
	return nil
}

// ServeModule provides the dashboard.
var ServeModule = fx.Options(
	fx.Provide(NewZoneTable, NewSnapshotStore, NewEngine, NewServer),
	fx.Invoke(func(*api.Server) {}),
	fx.Invoke(StartReloadConsumer),
)

// ExportParams are the dependencies of the export command.
type ExportParams struct {
	fx.In
	App    *appconfig.AppConfig
	Trips  *repository.TripRepository
	Export storage.StorageConnection `name:"export"`
	Tracer metrics.Tracer
}

// NewExporter writes Parquet files to export storage.
func NewExporter(p ExportParams) *export.Exporter {
	return export.NewExporter(p.Trips, p.Export, p.App.Export, p.App.PageSize, p.Tracer)
}

// ExportModule provides the Parquet exporter.
var ExportModule = fx.Options(
	fx.Provide(NewExporter),
)
