// Package config holds the per-connection database settings decoded from surfin.adaptor.database.
package config

// PoolConfig holds connection pool settings.
type PoolConfig struct {
	MaxOpenConns           int `yaml:"max_open_conns"`
	MaxIdleConns           int `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int `yaml:"conn_max_lifetime_minutes"`
}

// DatabaseConfig describes one database connection.
type DatabaseConfig struct {
	Type     string `yaml:"type"` // "postgres", "mysql" or "sqlite"
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"` // database name, or file path for sqlite
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Schema   string `yaml:"schema"` // postgres only, applied as search_path
	Sslmode  string `yaml:"sslmode"`
	// LogLevel controls gorm's SQL logging: SILENT, ERROR, WARN or INFO.
	LogLevel string     `yaml:"log_level"`
	Pool     PoolConfig `yaml:"pool"`
}
