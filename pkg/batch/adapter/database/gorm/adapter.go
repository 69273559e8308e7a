// Package gorm implements the database contracts on top of gorm.io/gorm.
// Dialects register themselves from the sqlite, postgres and mysql sub-packages.
package gorm

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/tigerroll/greentaxi/pkg/batch/adapter/database"
	dbconfig "github.com/tigerroll/greentaxi/pkg/batch/adapter/database/config"
	"github.com/tigerroll/greentaxi/pkg/batch/support/util/logger"
)

// tableNamer is implemented by entities that name their table.
type tableNamer interface {
	TableName() string
}

// applyTableName points db at the model's table. Slices and pointers to slices are
// resolved by gorm through Model.
func applyTableName(db *gorm.DB, model interface{}) *gorm.DB {
	if tn, ok := model.(tableNamer); ok {
		return db.Table(tn.TableName())
	}
	return db.Model(model)
}

// NewGormLogger returns a gorm logger writing through the "gorm" named logger.
// level is one of SILENT, ERROR, WARN, INFO; anything else is SILENT.
func NewGormLogger(level string) gormlogger.Interface {
	var gormLevel gormlogger.LogLevel
	switch strings.ToUpper(level) {
	case "ERROR":
		gormLevel = gormlogger.Error
	case "WARN":
		gormLevel = gormlogger.Warn
	case "INFO":
		gormLevel = gormlogger.Info
	default:
		gormLevel = gormlogger.Silent
	}
	return gormlogger.New(&GormWriter{log: logger.Named("gorm")}, gormlogger.Config{
		SlowThreshold:             time.Second,
		LogLevel:                  gormLevel,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}

// GormWriter implements gorm's logger.Writer. Statement traces go to DEBUG, everything else to INFO.
type GormWriter struct {
	log *logger.Logger
}

// Printf implements gormlogger.Writer.
func (w *GormWriter) Printf(format string, v ...interface{}) {
	msg := strings.TrimSpace(fmt.Sprintf(format, v...))
	upper := strings.ToUpper(msg)
	if strings.Contains(upper, "SELECT") || strings.Contains(upper, "INSERT") {
		w.log.Debugf("%s", msg)
		return
	}
	w.log.Infof("%s", msg)
}

// GormDBAdapter implements database.DBConnection.
type GormDBAdapter struct {
	db   *gorm.DB
	cfg  dbconfig.DatabaseConfig
	name string
}

// NewGormDBAdapter wraps an open *gorm.DB.
func NewGormDBAdapter(db *gorm.DB, cfg dbconfig.DatabaseConfig, name string) *GormDBAdapter {
	return &GormDBAdapter{db: db, cfg: cfg, name: name}
}

// GormDB exposes the underlying handle for the transaction manager.
func (a *GormDBAdapter) GormDB() *gorm.DB { return a.db }

func (a *GormDBAdapter) Name() string                    { return a.name }
func (a *GormDBAdapter) Type() string                    { return a.cfg.Type }
func (a *GormDBAdapter) Config() dbconfig.DatabaseConfig { return a.cfg }

// GetSQLDB returns the pooled *sql.DB.
func (a *GormDBAdapter) GetSQLDB() (*sql.DB, error) {
	return a.db.DB()
}

// Close closes the pool.
func (a *GormDBAdapter) Close() error {
	sqlDB, err := a.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// ExecuteQuery implements database.DBExecutor.
func (a *GormDBAdapter) ExecuteQuery(ctx context.Context, target interface{}, query map[string]interface{}) error {
	db := applyTableName(a.db.WithContext(ctx), target)
	if len(query) > 0 {
		db = db.Where(query)
	}
	return db.Find(target).Error
}

// ExecuteQueryAdvanced implements database.DBExecutor.
func (a *GormDBAdapter) ExecuteQueryAdvanced(ctx context.Context, target interface{}, query map[string]interface{}, orderBy string, limit, offset int) error {
	db := applyTableName(a.db.WithContext(ctx), target)
	if len(query) > 0 {
		db = db.Where(query)
	}
	if orderBy != "" {
		db = db.Order(orderBy)
	}
	if limit > 0 {
		db = db.Limit(limit)
	}
	if offset > 0 {
		db = db.Offset(offset)
	}
	return db.Find(target).Error
}

// Count implements database.DBExecutor.
func (a *GormDBAdapter) Count(ctx context.Context, model interface{}, query map[string]interface{}) (int64, error) {
	db := applyTableName(a.db.WithContext(ctx), model)
	if len(query) > 0 {
		db = db.Where(query)
	}
	var n int64
	if err := db.Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

var _ database.DBConnection = (*GormDBAdapter)(nil)
