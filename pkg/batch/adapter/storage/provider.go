package storage

import (
	"fmt"
	"sync"

	"github.com/hashicorp/go-multierror"

	storageconfig "github.com/tigerroll/greentaxi/pkg/batch/adapter/storage/config"
	"github.com/tigerroll/greentaxi/pkg/batch/support/util/configbinder"
	"github.com/tigerroll/greentaxi/pkg/batch/support/util/logger"
)

// Factory opens a connection of one backend type.
type Factory func(cfg storageconfig.StorageConfig, name string) (StorageConnection, error)

var (
	factories   = make(map[string]Factory)
	factoriesMu sync.RWMutex
)

// RegisterFactory registers a backend under storageType. Sub-packages call it from init.
func RegisterFactory(storageType string, f Factory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	factories[storageType] = f
}

func lookupFactory(storageType string) (Factory, error) {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()
	f, ok := factories[storageType]
	if !ok {
		return nil, fmt.Errorf("no storage backend registered for type '%s'", storageType)
	}
	return f, nil
}

// Provider opens connections described under surfin.adaptor.storage and caches them by name.
type Provider struct {
	configs     map[string]storageconfig.StorageConfig // configs are the decoded settings by connection name.
	connections map[string]StorageConnection           // connections are the opened connections by name.
	mu          sync.Mutex                             // mu guards connections.
}

// NewProvider creates a new [Provider].
//
// Parameters:
//
//	section: The raw surfin.adaptor.storage map of connection names to settings.
//
// Returns:
//
//	A [Provider] that opens connections lazily, or an error if the section does not decode.
func NewProvider(section map[string]interface{}) (*Provider, error) {
	configs, err := configbinder.BindNamed[storageconfig.StorageConfig](section)
	if err != nil {
		return nil, fmt.Errorf("invalid storage configuration: %w", err)
	}
	return &Provider{configs: configs, connections: make(map[string]StorageConnection)}, nil
}

// GetConnection returns the cached connection for name, opening it on first use.
func (p *Provider) GetConnection(name string) (StorageConnection, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if conn, ok := p.connections[name]; ok {
		return conn, nil
	}
	cfg, ok := p.configs[name]
	if !ok {
		return nil, fmt.Errorf("storage configuration '%s' not found under surfin.adaptor.storage", name)
	}
	f, err := lookupFactory(cfg.Type)
	if err != nil {
		return nil, err
	}
	conn, err := f(cfg, name)
	if err != nil {
		return nil, err
	}
	p.connections[name] = conn
	logger.Infof("Opened storage '%s' (%s).", name, cfg.Type)
	return conn, nil
}

// CloseAll closes every opened connection and reports all failures.
func (p *Provider) CloseAll() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var result *multierror.Error
	for name, conn := range p.connections {
		if err := conn.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("close storage '%s': %w", name, err))
		}
		delete(p.connections, name)
	}
	return result.ErrorOrNil()
}

var _ StorageProvider = (*Provider)(nil)
