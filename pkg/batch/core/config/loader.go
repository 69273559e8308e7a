package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
	"gopkg.in/yaml.v3"

	"github.com/tigerroll/greentaxi/pkg/batch/support/util/exception"
	"github.com/tigerroll/greentaxi/pkg/batch/support/util/logger"
)

const moduleName = "config"

// ConfigParams defines the dependencies of NewConfigProvider.
type ConfigParams struct {
	fx.In
	EmbeddedConfig EmbeddedConfig      // EmbeddedConfig is the application.yaml compiled into the binary.
	Expander       EnvironmentExpander // Expander resolves ${VAR:-default} placeholders.
	EnvFilePath    string              `name:"envFilePath" optional:"true"` // EnvFilePath is the .env file loaded first.
	ConfigPath     string              `name:"configPath" optional:"true"`  // ConfigPath overrides the embedded document.
}

// ResolveConfigPath picks the configuration file for this process: the last command line
// argument when it names a .yaml or .yml file, otherwise the CONFIG environment variable.
// An empty result means the embedded document is used.
func ResolveConfigPath(args []string) string {
	if n := len(args); n > 0 {
		last := args[n-1]
		if strings.HasSuffix(last, ".yaml") || strings.HasSuffix(last, ".yml") {
			return last
		}
	}
	return os.Getenv("CONFIG")
}

// LoadConfig builds a Config from defaults, the YAML document and environment overrides.
// When configPath is set but missing, the embedded document is used instead.
//
// Parameters:
//
//	envFilePath: A .env file loaded into the environment first. A missing file is ignored.
//	embedded: The embedded YAML document.
//	configPath: A YAML file replacing the embedded document, or empty.
//	expander: The placeholder expander. Nil uses [NewOsEnvironmentExpander].
//
// Returns:
//
//	The validated [Config], or a [exception.BatchError] describing the failing stage.
func LoadConfig(envFilePath string, embedded EmbeddedConfig, configPath string, expander EnvironmentExpander) (*Config, error) {
	if envFilePath != "" {
		if err := godotenv.Load(envFilePath); err != nil {
			logger.Debugf(".env file (%s) not loaded: %v", envFilePath, err)
		}
	}
	if expander == nil {
		expander = NewOsEnvironmentExpander()
	}

	doc := []byte(embedded)
	source := "embedded"
	if configPath != "" {
		b, err := os.ReadFile(configPath)
		switch {
		case err == nil:
			doc, source = b, configPath
		case os.IsNotExist(err):
			logger.Warnf("Config file '%s' not found, using embedded configuration.", configPath)
		default:
			return nil, exception.NewBatchError(moduleName, "failed to read config file "+configPath, err, false, false)
		}
	}

	expanded, err := expander.Expand(doc)
	if err != nil {
		return nil, exception.NewBatchError(moduleName, "failed to expand environment placeholders", err, false, false)
	}

	cfg := NewConfig()
	if err := yaml.Unmarshal(expanded, cfg); err != nil {
		return nil, exception.NewBatchError(moduleName, "failed to unmarshal config from "+source, err, false, false)
	}
	cfg.Source = source

	if err := loadStructFromEnv(reflect.ValueOf(&cfg.Surfin).Elem(), "GREENTAXI_"); err != nil {
		return nil, exception.NewBatchError(moduleName, "failed to apply environment overrides", err, false, false)
	}
	if cfg.Surfin.Batch.ChunkSize <= 0 {
		return nil, exception.NewBatchError(moduleName, fmt.Sprintf("chunk_size must be positive, got %d", cfg.Surfin.Batch.ChunkSize), nil, false, false)
	}
	return cfg, nil
}

// NewConfigProvider is the Fx provider for *Config. It also applies the configured log level.
func NewConfigProvider(params ConfigParams) (*Config, error) {
	cfg, err := LoadConfig(params.EnvFilePath, params.EmbeddedConfig, params.ConfigPath, params.Expander)
	if err != nil {
		return nil, err
	}
	logger.SetLogLevel(cfg.Surfin.System.Logging.Level)
	logger.Debugf("Configuration loaded from %s.", cfg.Source)
	return cfg, nil
}

// loadStructFromEnv overrides scalar fields from environment variables named after the
// upper-cased yaml tag path, e.g. GREENTAXI_BATCH_CHUNK_SIZE.
func loadStructFromEnv(val reflect.Value, prefix string) error {
	typ := val.Type()
	for i := 0; i < typ.NumField(); i++ {
		field := val.Field(i)
		tag := typ.Field(i).Tag.Get("yaml")
		if tag == "" || tag == "-" {
			continue
		}
		name := strings.ToUpper(prefix + tag)

		if field.Kind() == reflect.Struct {
			if err := loadStructFromEnv(field, name+"_"); err != nil {
				return err
			}
			continue
		}
		value, ok := os.LookupEnv(name)
		if !ok {
			continue
		}
		if err := setField(field, value); err != nil {
			return fmt.Errorf("env var '%s': %w", name, err)
		}
	}
	return nil
}

func setField(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return err
		}
		field.SetInt(n)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(f)
	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)
	}
	return nil
}
