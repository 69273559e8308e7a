package gorm

import (
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"gorm.io/gorm"

	"github.com/tigerroll/greentaxi/pkg/batch/adapter/database"
	dbconfig "github.com/tigerroll/greentaxi/pkg/batch/adapter/database/config"
	"github.com/tigerroll/greentaxi/pkg/batch/support/util/configbinder"
	"github.com/tigerroll/greentaxi/pkg/batch/support/util/logger"
)

// DialectorFactory builds a gorm.Dialector from a connection config.
type DialectorFactory func(cfg dbconfig.DatabaseConfig) (gorm.Dialector, error)

// ConnectionStringFunc renders the DSN for a connection config.
type ConnectionStringFunc func(cfg dbconfig.DatabaseConfig) string

type dialect struct {
	dialector DialectorFactory
	dsn       ConnectionStringFunc
}

var (
	dialects   = make(map[string]dialect)
	dialectsMu sync.RWMutex
)

// RegisterDialector registers a dialect under dbType. Sub-packages call it from init.
// Registering a type twice replaces the earlier registration.
//
// Parameters:
//
//	dbType: The value of the connection's `type` setting, e.g. "postgres".
//	factory: Builds the [gorm.Dialector] of a connection.
//	dsn: Renders the connection string, also used by golang-migrate.
func RegisterDialector(dbType string, factory DialectorFactory, dsn ConnectionStringFunc) {
	dialectsMu.Lock()
	defer dialectsMu.Unlock()
	if _, exists := dialects[dbType]; exists {
		logger.Warnf("Dialector for type '%s' already registered. Overwriting.", dbType)
	}
	dialects[dbType] = dialect{dialector: factory, dsn: dsn}
}

func lookupDialect(dbType string) (dialect, error) {
	dialectsMu.RLock()
	defer dialectsMu.RUnlock()
	d, ok := dialects[dbType]
	if !ok {
		return dialect{}, fmt.Errorf("no dialector registered for database type '%s'", dbType)
	}
	return d, nil
}

// ConnectionString renders the DSN of cfg using its registered dialect.
func ConnectionString(cfg dbconfig.DatabaseConfig) (string, error) {
	d, err := lookupDialect(cfg.Type)
	if err != nil {
		return "", err
	}
	return d.dsn(cfg), nil
}

// Provider opens connections described under surfin.adaptor.database and caches them by name.
type Provider struct {
	configs     map[string]dbconfig.DatabaseConfig // configs are the decoded settings by connection name.
	connections map[string]*GormDBAdapter          // connections are the opened connections by name.
	mu          sync.RWMutex                       // mu guards connections.
}

// NewProvider creates a new [Provider].
//
// Parameters:
//
//	section: The raw surfin.adaptor.database map of connection names to settings.
//
// Returns:
//
//	A [Provider] that opens connections lazily, or an error if the section does not decode.
func NewProvider(section map[string]interface{}) (*Provider, error) {
	configs, err := configbinder.BindNamed[dbconfig.DatabaseConfig](section)
	if err != nil {
		return nil, fmt.Errorf("invalid database configuration: %w", err)
	}
	return &Provider{
		configs:     configs,
		connections: make(map[string]*GormDBAdapter),
	}, nil
}

// GetConnection returns the cached connection for name, opening it on first use.
func (p *Provider) GetConnection(name string) (database.DBConnection, error) {
	p.mu.RLock()
	conn, ok := p.connections[name]
	p.mu.RUnlock()
	if ok {
		return conn, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if conn, ok = p.connections[name]; ok {
		return conn, nil
	}

	cfg, ok := p.configs[name]
	if !ok {
		return nil, fmt.Errorf("database configuration '%s' not found under surfin.adaptor.database", name)
	}
	db, err := Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("connection '%s': %w", name, err)
	}
	conn = NewGormDBAdapter(db, cfg, name)
	p.connections[name] = conn
	logger.Infof("Established DB connection '%s' (%s).", name, cfg.Type)
	return conn, nil
}

// CloseAll closes every opened connection and reports all failures.
func (p *Provider) CloseAll() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var result *multierror.Error
	for name, conn := range p.connections {
		if err := conn.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("close '%s': %w", name, err))
		}
		delete(p.connections, name)
	}
	return result.ErrorOrNil()
}

// Open opens a gorm handle for cfg and applies the pool settings.
func Open(cfg dbconfig.DatabaseConfig) (*gorm.DB, error) {
	d, err := lookupDialect(cfg.Type)
	if err != nil {
		return nil, err
	}
	dialector, err := d.dialector(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create dialector for %s: %w", cfg.Type, err)
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: NewGormLogger(cfg.LogLevel)})
	if err != nil {
		return nil, fmt.Errorf("failed to open gorm connection: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	if cfg.Pool.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.Pool.MaxOpenConns)
	}
	if cfg.Pool.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.Pool.MaxIdleConns)
	}
	if cfg.Pool.ConnMaxLifetimeMinutes > 0 {
		sqlDB.SetConnMaxLifetime(time.Duration(cfg.Pool.ConnMaxLifetimeMinutes) * time.Minute)
	}
	return db, nil
}

var _ database.DBProvider = (*Provider)(nil)
