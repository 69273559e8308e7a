// Package config holds the configuration shared by every greentaxi command.
// Values come from NewConfig defaults, then a YAML document, then environment variables.
package config

// EmbeddedConfig holds the YAML document compiled into the binary.
type EmbeddedConfig []byte

// LogLevel names a logging level accepted by logger.SetLogLevel.
type LogLevel string

const (
	LogLevelDebug LogLevel = "DEBUG"
	LogLevelInfo  LogLevel = "INFO"
	LogLevelWarn  LogLevel = "WARN"
	LogLevelError LogLevel = "ERROR"
	LogLevelFatal LogLevel = "FATAL"
)

// BatchConfig holds settings of the chunk-oriented load step.
type BatchConfig struct {
	// ChunkSize is the number of records committed per transaction.
	ChunkSize int `yaml:"chunk_size"`
	// BulkSize is the number of rows per INSERT statement inside one chunk.
	BulkSize int `yaml:"bulk_size"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is one of DEBUG, INFO, WARN, ERROR, FATAL.
	Level string `yaml:"level"`
}

// SystemConfig holds process-wide settings.
type SystemConfig struct {
	// Timezone is used to interpret trip timestamps (e.g. "America/New_York").
	Timezone string        `yaml:"timezone"`
	Logging  LoggingConfig `yaml:"logging"`
}

// MetricsConfig selects the metric backend.
type MetricsConfig struct {
	// Type is "prometheus", "otlp-http", "otlp-grpc" or "none".
	Type string `yaml:"type"`
	// Endpoint is the OTLP collector address for the otlp types.
	Endpoint string `yaml:"endpoint"`
	// Insecure disables TLS for OTLP exporters.
	Insecure bool `yaml:"insecure"`
	// AsyncBufferSize queues OTLP measurements for a background worker when positive.
	AsyncBufferSize int `yaml:"async_buffer_size"`
}

// TracingConfig selects the trace exporter.
type TracingConfig struct {
	// Exporter is "otlp-http", "otlp-grpc" or "none".
	Exporter string `yaml:"exporter"`
	Endpoint string `yaml:"endpoint"`
	Insecure bool   `yaml:"insecure"`
	// ServiceName is reported as the service.name resource attribute.
	ServiceName string `yaml:"service_name"`
}

// ObservabilityConfig groups metric and trace settings.
type ObservabilityConfig struct {
	Metrics MetricsConfig `yaml:"metrics"`
	Tracing TracingConfig `yaml:"tracing"`
}

// SurfinConfig holds everything under the "surfin" key.
type SurfinConfig struct {
	Batch         BatchConfig         `yaml:"batch"`
	System        SystemConfig        `yaml:"system"`
	Observability ObservabilityConfig `yaml:"observability"`
	// AdaptorConfigs holds the raw "adaptor" section: database connections and storage
	// backends keyed by name. Decoded by the adapter packages through configbinder.
	AdaptorConfigs map[string]interface{} `yaml:"adaptor"`
}

// Config is the root configuration document.
type Config struct {
	Surfin SurfinConfig `yaml:"surfin"`
	// App holds the raw "greentaxi" section, decoded by the application's own config package.
	App map[string]interface{} `yaml:"greentaxi"`
	// Source is the file the document was read from, or "embedded".
	Source string `yaml:"-"`
}

// NewConfig returns a Config populated with defaults.
func NewConfig() *Config {
	return &Config{
		Surfin: SurfinConfig{
			Batch: BatchConfig{
				ChunkSize: 150000,
				BulkSize:  1000,
			},
			System: SystemConfig{
				Timezone: "UTC",
				Logging:  LoggingConfig{Level: string(LogLevelInfo)},
			},
			Observability: ObservabilityConfig{
				Metrics: MetricsConfig{Type: "prometheus"},
				Tracing: TracingConfig{Exporter: "none", ServiceName: "greentaxi"},
			},
			AdaptorConfigs: map[string]interface{}{},
		},
		App:    map[string]interface{}{},
		Source: "embedded",
	}
}

// AdaptorSection returns the raw adaptor section with the given name ("database", "storage").
func (c *Config) AdaptorSection(name string) map[string]interface{} {
	raw, ok := c.Surfin.AdaptorConfigs[name]
	if !ok {
		return nil
	}
	if m, ok := raw.(map[string]interface{}); ok {
		return m
	}
	return nil
}
