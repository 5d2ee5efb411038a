package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	layout "github.com/santiagotion/sentinel-sub001/domain/config"
	pkgerrors "github.com/santiagotion/sentinel-sub001/pkg/errors"
	"github.com/santiagotion/sentinel-sub001/pkg/utils"
)

// Environment names
const (
	Development = "development"
	Staging     = "staging"
	Production  = "production"
	Large       = "large"
	Test        = "test"
)

// Config holds all application configuration
type Config struct {
	Environment string `json:"environment" yaml:"environment" toml:"environment" validate:"required,oneof=development staging production large test"`
	LogLevel    string `json:"logLevel" yaml:"logLevel" toml:"logLevel" validate:"oneof=debug info warn error"`

	// Force layout, interaction and timeline tunables
	Layout layout.LayoutConfig `json:"layout" yaml:"layout" toml:"layout"`

	Scheduler Scheduler `json:"scheduler" yaml:"scheduler" toml:"scheduler"`
	Metrics   Metrics   `json:"metrics" yaml:"metrics" toml:"metrics"`
	Tracing   Tracing   `json:"tracing" yaml:"tracing" toml:"tracing"`
	Watch     Watch     `json:"watch" yaml:"watch" toml:"watch"`

	// LoadedFrom lists the sources applied, lowest priority first
	LoadedFrom []string `json:"-" yaml:"-" toml:"-"`
}

// Scheduler configures real-time tick scheduling
type Scheduler struct {
	TickInterval Duration `json:"tickInterval" yaml:"tickInterval" toml:"tickInterval" validate:"gt=0"`
}

// Metrics configures the prometheus collector
type Metrics struct {
	Enabled   bool   `json:"enabled" yaml:"enabled" toml:"enabled"`
	Namespace string `json:"namespace" yaml:"namespace" toml:"namespace" validate:"required"`
	Addr      string `json:"addr" yaml:"addr" toml:"addr"`

	// AllowedOrigins may read the ops endpoints from a browser
	AllowedOrigins []string `json:"allowedOrigins" yaml:"allowedOrigins" toml:"allowedOrigins"`
}

// Tracing configures the OTLP exporter
type Tracing struct {
	Enabled     bool   `json:"enabled" yaml:"enabled" toml:"enabled"`
	Endpoint    string `json:"endpoint" yaml:"endpoint" toml:"endpoint" validate:"required_if=Enabled true"`
	ServiceName string `json:"serviceName" yaml:"serviceName" toml:"serviceName" validate:"required"`
}

// Watch configures file watching
type Watch struct {
	Debounce Duration `json:"debounce" yaml:"debounce" toml:"debounce" validate:"gte=0"`
}

// Duration is a time.Duration that decodes from strings such as "16ms"
// in every supported file format
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	*d = Duration(v)
	return nil
}

// MarshalText implements encoding.TextMarshaler
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std returns the value as a time.Duration
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// DefaultConfig returns the defaults for an environment
func DefaultConfig(environment string) *Config {
	if environment == "" {
		environment = Development
	}
	return &Config{
		Environment: environment,
		LogLevel:    "info",
		Layout:      *layout.LoadLayoutConfig(environment),
		Scheduler: Scheduler{
			TickInterval: Duration(16 * time.Millisecond),
		},
		Metrics: Metrics{
			Enabled:   false,
			Namespace:      "sentinel",
			AllowedOrigins: []string{"http://localhost:3000"},
		},
		Tracing: Tracing{
			Enabled:     false,
			Endpoint:    "localhost:4317",
			ServiceName: "propagation-viz",
		},
		Watch: Watch{
			Debounce: Duration(300 * time.Millisecond),
		},
	}
}

// Validate checks the application settings and the layout config
func (c *Config) Validate() error {
	if err := utils.ValidateStruct(c); err != nil {
		return pkgerrors.NewConfigurationError("invalid configuration").WithCause(err)
	}
	return c.Layout.Validate()
}

// LayoutConfig returns a copy of the layout tunables
func (c *Config) LayoutConfig() *layout.LayoutConfig {
	return c.Layout.Clone()
}

// IsDevelopment checks if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == Development || c.Environment == Test
}

// IsProduction checks if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == Production
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if v, err := strconv.ParseFloat(value, 64); err == nil {
			return v
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue Duration) Duration {
	if value := os.Getenv(key); value != "" {
		if v, err := time.ParseDuration(value); err == nil {
			return Duration(v)
		}
	}
	return defaultValue
}

// EnvironmentFromEnv returns the environment named by SENTINEL_ENV
func EnvironmentFromEnv() string {
	return getEnv("SENTINEL_ENV", Development)
}
