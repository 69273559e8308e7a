package config

import "go.uber.org/fx"

// NewLoggingConfigProvider extracts *LoggingConfig from *Config.
func NewLoggingConfigProvider(cfg *Config) *LoggingConfig {
	return &cfg.Surfin.System.Logging
}

// NewBatchConfigProvider extracts *BatchConfig from *Config.
func NewBatchConfigProvider(cfg *Config) *BatchConfig {
	return &cfg.Surfin.Batch
}

// NewSystemConfigProvider extracts *SystemConfig from *Config.
func NewSystemConfigProvider(cfg *Config) *SystemConfig {
	return &cfg.Surfin.System
}

// Module provides *Config and the pieces components depend on.
var Module = fx.Options(
	fx.Provide(
		func() EnvironmentExpander { return NewOsEnvironmentExpander() },
		NewConfigProvider,
		NewLoggingConfigProvider,
		NewBatchConfigProvider,
		NewSystemConfigProvider,
	),
)
