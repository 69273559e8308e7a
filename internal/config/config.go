// Package config holds the "greentaxi" section of the configuration document.
package config

import (
	"fmt"
	"strings"
	"time"

	coreconfig "github.com/tigerroll/greentaxi/pkg/batch/core/config"
	"github.com/tigerroll/greentaxi/pkg/batch/support/util/configbinder"
)

// DefaultSourceURLTemplate is the TLC trip archive. {year} and {month} are substituted.
const DefaultSourceURLTemplate = "https://d37ci6vzurychx.cloudfront.net/trip-data/green_tripdata_{year}-{month}.csv"

// SourceConfig describes where monthly trip files come from and where they land.
type SourceConfig struct {
	URLTemplate string        `yaml:"url_template"`
	HTTPTimeout time.Duration `yaml:"http_timeout"`
	// Storage names the surfin.adaptor.storage connection files are downloaded to.
	Storage          string `yaml:"storage"`
	LandingPrefix    string `yaml:"landing_prefix"`
	QuarantinePrefix string `yaml:"quarantine_prefix"`
}

// ZoneLookupConfig locates the taxi zone lookup CSV.
type ZoneLookupConfig struct {
	Storage string `yaml:"storage"`
	Object  string `yaml:"object"`
}

// ServerConfig configures the dashboard HTTP server.
type ServerConfig struct {
	ListenAddr      string        `yaml:"listen_addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	// Mode is the gin mode: debug, release or test.
	Mode string `yaml:"mode"`
}

// NotificationConfig configures load-completed notifications.
type NotificationConfig struct {
	// Type is "log", "amqp" or "none".
	Type       string `yaml:"type"`
	URL        string `yaml:"url"`
	Exchange   string `yaml:"exchange"`
	RoutingKey string `yaml:"routing_key"`
	// Queue is declared and bound by the dashboard consumer.
	Queue string `yaml:"queue"`
}

// ExportConfig configures the Parquet export.
type ExportConfig struct {
	Storage  string `yaml:"storage"`
	Prefix   string `yaml:"prefix"`
	Parallel int64  `yaml:"parallel"`
	// RowGroupSize is in bytes.
	RowGroupSize int64 `yaml:"row_group_size"`
}

// AppConfig is the decoded "greentaxi" section.
type AppConfig struct {
	Year  string `yaml:"year"`
	Month string `yaml:"month"`
	// Database names the surfin.adaptor.database connection holding green_taxi.
	Database     string             `yaml:"database"`
	PageSize     int                `yaml:"page_size"`
	FlowSource   string             `yaml:"flow_source"`
	Source       SourceConfig       `yaml:"source"`
	ZoneLookup   ZoneLookupConfig   `yaml:"zone_lookup"`
	Server       ServerConfig       `yaml:"server"`
	Notification NotificationConfig `yaml:"notification"`
	Export       ExportConfig       `yaml:"export"`
}

// NewAppConfig returns the defaults.
func NewAppConfig() *AppConfig {
	return &AppConfig{
		Year:       "2019",
		Month:      "01",
		Database:   "default",
		PageSize:   750000,
		FlowSource: "Manhattan",
		Source: SourceConfig{
			URLTemplate:      DefaultSourceURLTemplate,
			HTTPTimeout:      10 * time.Minute,
			Storage:          "landing",
			QuarantinePrefix: "quarantine/",
		},
		ZoneLookup: ZoneLookupConfig{
			Storage: "landing",
			Object:  "taxi_zone_lookup.csv",
		},
		Server: ServerConfig{
			ListenAddr:      ":8050",
			ShutdownTimeout: 10 * time.Second,
			Mode:            "release",
		},
		Notification: NotificationConfig{
			Type:       "log",
			Exchange:   "greentaxi",
			RoutingKey: "load.completed",
			Queue:      "greentaxi.dashboard.reload",
		},
		Export: ExportConfig{
			Storage:      "landing",
			Prefix:       "export/",
			Parallel:     4,
			RowGroupSize: 128 * 1024 * 1024,
		},
	}
}

// NewAppConfigProvider decodes cfg.App over the defaults.
func NewAppConfigProvider(cfg *coreconfig.Config) (*AppConfig, error) {
	app := NewAppConfig()
	if err := configbinder.Bind(cfg.App, app); err != nil {
		return nil, fmt.Errorf("invalid greentaxi configuration: %w", err)
	}
	if err := app.Validate(); err != nil {
		return nil, err
	}
	return app, nil
}

// Validate checks values that would otherwise fail deep inside a command.
func (c *AppConfig) Validate() error {
	if c.PageSize <= 0 {
		return fmt.Errorf("greentaxi.page_size must be positive, got %d", c.PageSize)
	}
	if c.Source.HTTPTimeout <= 0 {
		return fmt.Errorf("greentaxi.source.http_timeout must be positive, got %s", c.Source.HTTPTimeout)
	}
	if !strings.Contains(c.Source.URLTemplate, "{year}") || !strings.Contains(c.Source.URLTemplate, "{month}") {
		return fmt.Errorf("greentaxi.source.url_template must contain {year} and {month}: %q", c.Source.URLTemplate)
	}
	switch c.Notification.Type {
	case "", "none", "log", "amqp":
	default:
		return fmt.Errorf("greentaxi.notification.type '%s' is not supported", c.Notification.Type)
	}
	return nil
}

// SourceURL renders the download URL for one month.
func (c *AppConfig) SourceURL(year, month string) string {
	return strings.NewReplacer("{year}", year, "{month}", month).Replace(c.Source.URLTemplate)
}

// LandingObject is the object name a month is downloaded to.
func (c *AppConfig) LandingObject(year, month string) string {
	return c.Source.LandingPrefix + fmt.Sprintf("green_tripdata_%s-%s.csv", year, month)
}
