// Package config loads threadstate settings from an optional YAML file,
// applies THREADSTATE_* environment overrides, and validates the result
// against an embedded CUE schema.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"github.com/caarlos0/env/v10"
	"gopkg.in/yaml.v3"

	"github.com/roach88/threadstate/internal/disappearing"
)

//go:embed schema.cue
var schemaSource string

// Config holds all threadstate settings.
type Config struct {
	Database DatabaseConfig `yaml:"database" json:"database"`
	Log      LogConfig      `yaml:"log" json:"log"`
	Cache    CacheConfig    `yaml:"cache" json:"cache"`
}

// DatabaseConfig locates the SQLite database.
type DatabaseConfig struct {
	Path string `yaml:"path" json:"path" env:"THREADSTATE_DB_PATH"`
}

// LogConfig controls logger construction.
type LogConfig struct {
	Level  string `yaml:"level" json:"level" env:"THREADSTATE_LOG_LEVEL"`
	Format string `yaml:"format" json:"format" env:"THREADSTATE_LOG_FORMAT"` // "json" | "console"
}

// CacheConfig sizes the configuration read cache. Zero disables it.
type CacheConfig struct {
	Size int `yaml:"size" json:"size" env:"THREADSTATE_CACHE_SIZE"`
}

// Default returns the settings used when nothing overrides them.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{Path: "threadstate.db"},
		Log:      LogConfig{Level: "info", Format: "console"},
		Cache:    CacheConfig{Size: disappearing.DefaultCacheSize},
	}
}

// Load builds a Config from defaults, the YAML file at path (skipped when
// path is empty), and the process environment.
func Load(path string) (*Config, error) {
	return load(path, env.Options{})
}

// LoadWithEnv is Load with an explicit environment instead of os.Environ.
func LoadWithEnv(path string, environ map[string]string) (*Config, error) {
	return load(path, env.Options{Environment: environ})
}

func load(path string, opts env.Options) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("parse env config: %w", err)
	}

	cfg.Database.Path = strings.TrimSpace(cfg.Database.Path)
	cfg.Log.Level = strings.ToLower(strings.TrimSpace(cfg.Log.Level))
	cfg.Log.Format = strings.ToLower(strings.TrimSpace(cfg.Log.Format))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ErrInvalid wraps every schema violation returned by Validate.
var ErrInvalid = errors.New("invalid configuration")

// Validate checks c against the embedded CUE schema.
func (c *Config) Validate() error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSource).LookupPath(cue.ParsePath("#Config"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile config schema: %w", err)
	}

	value := schema.Unify(ctx.Encode(c))
	if err := value.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalid, strings.TrimSpace(cueerrors.Details(err, nil)))
	}
	return nil
}
