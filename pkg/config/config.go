// Package config loads, defaults and validates the restfs
// configuration.
//
// Configuration sources (in order of precedence):
//  1. Environment variables (RESTFS_*)
//  2. Configuration file (YAML)
//  3. Default values
//
// Store Configuration Pattern:
// the registry store section contains one type selector plus a
// type-specific options map per implementation; only the map matching
// the selected type is decoded, by the factory in factories.go.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the complete restfs configuration.
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging"`

	// Server describes the remote object store connection
	Server ServerConfig `mapstructure:"server"`

	// Registry selects and configures the identity-registry store
	Registry RegistryConfig `mapstructure:"registry"`

	// Diagnostics holds the tracing and tracking switches. They affect
	// diagnostics only, never wire semantics.
	Diagnostics DiagnosticsConfig `mapstructure:"diagnostics"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output.
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive)
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`

	// Format specifies the log output format: text or json
	Format string `mapstructure:"format" validate:"required,oneof=text json"`

	// Output is where logs are written: stdout, stderr, or a file path
	Output string `mapstructure:"output" validate:"required"`
}

// ServerConfig describes the connection to the remote object store.
type ServerConfig struct {
	// Endpoint is the server base URL, e.g. "http://hsds.example:5101"
	Endpoint string `mapstructure:"endpoint" validate:"required,url"`

	// Username and Password form the basic-auth credential pair.
	// Password is accepted from the environment (RESTFS_SERVER_PASSWORD)
	// to keep it out of config files; neither is ever logged.
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`

	// RequestTimeout bounds a single request/response exchange
	RequestTimeout time.Duration `mapstructure:"request_timeout" validate:"gt=0"`

	// MaxRetries is the retry budget for transient failures on
	// idempotent requests. 0 disables retries.
	MaxRetries int `mapstructure:"max_retries" validate:"gte=0,lte=10"`
}

// RegistryConfig selects the identity-registry store.
type RegistryConfig struct {
	// Type specifies which registry store implementation to use.
	// Valid values: memory, badger
	Type string `mapstructure:"type" validate:"required,oneof=memory badger"`

	// Memory contains memory-specific configuration.
	// Only used when Type = "memory"
	Memory map[string]any `mapstructure:"memory"`

	// Badger contains BadgerDB-specific configuration.
	// Only used when Type = "badger"
	Badger map[string]any `mapstructure:"badger"`
}

// DiagnosticsConfig holds the recognized diagnostic switches.
type DiagnosticsConfig struct {
	// Trace enables engine-level debug tracing (operation flow).
	Trace bool `mapstructure:"trace"`

	// TransportTrace enables wire-level request/response tracing.
	TransportTrace bool `mapstructure:"transport_trace"`

	// TrackRecords makes Term report error records left uninspected on
	// the diagnostic stack (a leak signal, not fatal).
	TrackRecords bool `mapstructure:"track_records"`
}

// Load loads configuration from file, environment, and defaults.
//
// configPath may be empty, in which case the default location
// ($XDG_CONFIG_HOME/restfs/config.yaml) is searched and a missing file
// is not an error.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)

	if err := readConfigFile(v, configPath); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// setupViper configures environment variables and config file search.
func setupViper(v *viper.Viper, configPath string) {
	// Example: RESTFS_LOGGING_LEVEL=DEBUG, RESTFS_SERVER_PASSWORD=...
	v.SetEnvPrefix("RESTFS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// readConfigFile reads the configuration file if it exists. A missing
// file is only an error when the caller named it explicitly.
func readConfigFile(v *viper.Viper, configPath string) error {
	err := v.ReadInConfig()
	if err == nil {
		return nil
	}

	var notFound viper.ConfigFileNotFoundError
	if errors.As(err, &notFound) {
		return nil
	}
	if configPath != "" && os.IsNotExist(underlying(err)) {
		return nil
	}
	return fmt.Errorf("failed to read config file: %w", err)
}

func underlying(err error) error {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err
		}
		err = next
	}
}

// getConfigDir returns $XDG_CONFIG_HOME/restfs, falling back to
// ~/.config/restfs.
func getConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "restfs")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "restfs")
}
