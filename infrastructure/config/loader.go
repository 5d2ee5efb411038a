package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	pkgerrors "github.com/santiagotion/sentinel-sub001/pkg/errors"
)

// FileLoader decodes one configuration file format
type FileLoader interface {
	Load(reader io.Reader, target interface{}) error
	Extension() string
}

// Loader loads configuration from a hierarchy of sources, lowest priority
// first:
//  1. Defaults for the environment (in code)
//  2. base.<ext> in the config directory
//  3. <environment>.<ext> in the config directory
//  4. SENTINEL_* environment variables
type Loader struct {
	basePath    string
	environment string
	sources     []string

	// extensions keeps lookup order deterministic
	extensions  []string
	fileLoaders map[string]FileLoader
}

// NewLoader creates a loader reading files from basePath
func NewLoader(basePath, environment string) *Loader {
	if basePath == "" {
		basePath = "config"
	}
	if environment == "" {
		environment = EnvironmentFromEnv()
	}

	loader := &Loader{
		basePath:    basePath,
		environment: environment,
		fileLoaders: make(map[string]FileLoader),
	}

	loader.RegisterLoader(&YAMLLoader{})
	loader.RegisterLoader(&JSONLoader{})
	loader.RegisterLoader(&TOMLLoader{})

	return loader
}

// RegisterLoader registers a file loader for its extension
func (l *Loader) RegisterLoader(loader FileLoader) {
	ext := loader.Extension()
	if _, exists := l.fileLoaders[ext]; !exists {
		l.extensions = append(l.extensions, ext)
	}
	l.fileLoaders[ext] = loader
}

// Load applies every source and validates the result
func (l *Loader) Load() (*Config, error) {
	l.sources = nil
	cfg := DefaultConfig(l.environment)
	l.sources = append(l.sources, "defaults")

	if err := l.loadFile("base", cfg); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load base config: %w", err)
	}

	envFile := strings.ToLower(l.environment)
	if err := l.loadFile(envFile, cfg); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load %s config: %w", envFile, err)
	}

	return l.finish(cfg)
}

// LoadFile applies the defaults, one explicit file and the environment
// variables. The file format is chosen by extension.
func (l *Loader) LoadFile(path string) (*Config, error) {
	l.sources = nil
	cfg := DefaultConfig(l.environment)
	l.sources = append(l.sources, "defaults")

	loader, ok := l.loaderFor(path)
	if !ok {
		return nil, pkgerrors.NewConfigurationError(
			fmt.Sprintf("unsupported config file format %q", filepath.Ext(path)),
		).WithDetail("path", path)
	}
	if err := l.decodeFile(path, loader, cfg); err != nil {
		return nil, err
	}

	return l.finish(cfg)
}

// Sources returns where the last load read from
func (l *Loader) Sources() []string {
	out := make([]string, len(l.sources))
	copy(out, l.sources)
	return out
}

func (l *Loader) finish(cfg *Config) (*Config, error) {
	l.applyEnvironmentVariables(cfg)
	l.sources = append(l.sources, "environment")
	cfg.LoadedFrom = l.Sources()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// loadFile loads name.<ext> for the first registered extension present
func (l *Loader) loadFile(name string, cfg *Config) error {
	for _, ext := range l.extensions {
		path := filepath.Join(l.basePath, fmt.Sprintf("%s.%s", name, ext))
		err := l.decodeFile(path, l.fileLoaders[ext], cfg)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		return err
	}
	return fs.ErrNotExist
}

func (l *Loader) decodeFile(path string, loader FileLoader, cfg *Config) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	if err := loader.Load(file, cfg); err != nil {
		return pkgerrors.NewConfigurationError(fmt.Sprintf("failed to parse %s", path)).
			WithDetail("path", path).
			WithCause(err)
	}

	l.sources = append(l.sources, path)
	return nil
}

func (l *Loader) loaderFor(path string) (FileLoader, bool) {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if ext == "yml" {
		ext = "yaml"
	}
	loader, ok := l.fileLoaders[ext]
	return loader, ok
}

// applyEnvironmentVariables overlays SENTINEL_* variables, the highest
// priority source
func (l *Loader) applyEnvironmentVariables(cfg *Config) {
	cfg.LogLevel = getEnv("SENTINEL_LOG_LEVEL", cfg.LogLevel)

	cfg.Scheduler.TickInterval = getEnvDuration("SENTINEL_TICK_INTERVAL", cfg.Scheduler.TickInterval)
	cfg.Watch.Debounce = getEnvDuration("SENTINEL_WATCH_DEBOUNCE", cfg.Watch.Debounce)

	cfg.Metrics.Enabled = getEnvBool("SENTINEL_METRICS_ENABLED", cfg.Metrics.Enabled)
	cfg.Metrics.Namespace = getEnv("SENTINEL_METRICS_NAMESPACE", cfg.Metrics.Namespace)
	cfg.Metrics.Addr = getEnv("SENTINEL_METRICS_ADDR", cfg.Metrics.Addr)

	cfg.Tracing.Enabled = getEnvBool("SENTINEL_TRACING_ENABLED", cfg.Tracing.Enabled)
	cfg.Tracing.Endpoint = getEnv("SENTINEL_TRACING_ENDPOINT", cfg.Tracing.Endpoint)
	cfg.Tracing.ServiceName = getEnv("SENTINEL_SERVICE_NAME", cfg.Tracing.ServiceName)

	// Layout
	cfg.Layout.CanvasWidth = getEnvFloat("SENTINEL_CANVAS_WIDTH", cfg.Layout.CanvasWidth)
	cfg.Layout.CanvasHeight = getEnvFloat("SENTINEL_CANVAS_HEIGHT", cfg.Layout.CanvasHeight)
	cfg.Layout.MaxTicks = getEnvInt("SENTINEL_MAX_TICKS", cfg.Layout.MaxTicks)
	cfg.Layout.BarnesHutThreshold = getEnvInt("SENTINEL_BARNES_HUT_THRESHOLD", cfg.Layout.BarnesHutThreshold)
	if seed := getEnvInt("SENTINEL_SEED", -1); seed >= 0 {
		cfg.Layout.Seed = uint64(seed)
	}
}

// YAMLLoader loads configuration from YAML files
type YAMLLoader struct{}

func (y *YAMLLoader) Load(reader io.Reader, target interface{}) error {
	decoder := yaml.NewDecoder(reader)
	decoder.KnownFields(true)
	if err := decoder.Decode(target); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (y *YAMLLoader) Extension() string {
	return "yaml"
}

// JSONLoader loads configuration from JSON files
type JSONLoader struct{}

func (j *JSONLoader) Load(reader io.Reader, target interface{}) error {
	decoder := json.NewDecoder(reader)
	decoder.DisallowUnknownFields()
	return decoder.Decode(target)
}

func (j *JSONLoader) Extension() string {
	return "json"
}

// TOMLLoader loads configuration from TOML files
type TOMLLoader struct{}

func (t *TOMLLoader) Load(reader io.Reader, target interface{}) error {
	meta, err := toml.NewDecoder(reader).Decode(target)
	if err != nil {
		return err
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("unknown keys: %v", undecoded)
	}
	return nil
}

func (t *TOMLLoader) Extension() string {
	return "toml"
}

// LoadConfig loads configuration for the environment named by SENTINEL_ENV
// from the directory named by SENTINEL_CONFIG_DIR
func LoadConfig() (*Config, error) {
	return NewLoader(getEnv("SENTINEL_CONFIG_DIR", "config"), EnvironmentFromEnv()).Load()
}
