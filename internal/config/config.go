// Package config loads ttystep settings from defaults, a YAML file and the
// environment, in that order.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/aretw0/ttystep"
	"github.com/aretw0/ttystep/internal/logging"
	"github.com/aretw0/ttystep/pkg/adapters/process"
	"github.com/aretw0/ttystep/pkg/domain"
	"github.com/kelseyhightower/envconfig"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable, e.g. TTYSTEP_PROGRAM.
const EnvPrefix = "TTYSTEP"

// DefaultFile is read when no config file is given and it exists.
const DefaultFile = "ttystep.yaml"

// Config holds every setting of the ttystep CLI.
type Config struct {
	Program       string        `mapstructure:"program" envconfig:"PROGRAM"`
	Strategy      string        `mapstructure:"strategy" envconfig:"STRATEGY"`
	Recording     string        `mapstructure:"recording" envconfig:"RECORDING"`
	Append        bool          `mapstructure:"append" envconfig:"APPEND"`
	RecordActions bool          `mapstructure:"record_actions" envconfig:"RECORD_ACTIONS"`
	WorkDir       string        `mapstructure:"workdir" envconfig:"WORKDIR"`
	Image         string        `mapstructure:"image" envconfig:"IMAGE"`
	ImageArgs     []string      `mapstructure:"image_args" envconfig:"IMAGE_ARGS"`
	Images        string        `mapstructure:"images" envconfig:"IMAGES"`
	Settle        time.Duration `mapstructure:"settle" envconfig:"SETTLE"`
	LogLevel      string        `mapstructure:"log_level" envconfig:"LOG_LEVEL"`
	HTTPAddr      string        `mapstructure:"http_addr" envconfig:"HTTP_ADDR"`
	RedisURL      string        `mapstructure:"redis_url" envconfig:"REDIS_URL"`
	StoreDir      string        `mapstructure:"store_dir" envconfig:"STORE_DIR"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Program:   ttystep.DefaultProgram,
		Strategy:  string(domain.StrategyIsolated),
		Recording: ttystep.DefaultRecording,
		Images:    "images.yaml",
		LogLevel:  "info",
		HTTPAddr:  ":8080",
		StoreDir:  ".ttystep/sessions",
	}
}

// Load layers path (or DefaultFile when path is empty) and the environment
// over the defaults, then validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	if err := cfg.loadFile(path, explicit); err != nil {
		return nil, err
	}
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string, required bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !required {
			return nil
		}
		return fmt.Errorf("failed to read config: %w", err)
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		Result:           c,
	})
	if err != nil {
		return err
	}
	if err := decoder.Decode(raw); err != nil {
		return fmt.Errorf("invalid config %s: %w", path, err)
	}
	return nil
}

// Validate checks the enumerated settings.
func (c *Config) Validate() error {
	if _, err := domain.ParseStrategy(c.Strategy); err != nil {
		return err
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.Settle < 0 {
		return fmt.Errorf("settle must not be negative: %s", c.Settle)
	}
	return nil
}

// Level returns the configured log level.
func (c *Config) Level() slog.Level {
	level, _ := logging.ParseLevel(c.LogLevel)
	return level
}

// SessionOptions translates the config into options for a single session.
func (c *Config) SessionOptions() ([]ttystep.Option, error) {
	opts, err := c.EngineOptions()
	if err != nil {
		return nil, err
	}
	return append(opts,
		ttystep.WithRecording(c.Recording),
		ttystep.WithAppend(c.Append),
	), nil
}

// EngineOptions translates everything but the recording target, for callers
// that place recordings themselves. The image is taken from Image, or else
// every Images file entry is offered and each session picks the one named
// like its program.
func (c *Config) EngineOptions() ([]ttystep.Option, error) {
	strategy, err := domain.ParseStrategy(c.Strategy)
	if err != nil {
		return nil, err
	}
	opts := []ttystep.Option{
		ttystep.WithProgram(c.Program),
		ttystep.WithStrategy(strategy),
		ttystep.WithRecordActions(c.RecordActions),
		ttystep.WithSettle(c.Settle),
	}
	if c.WorkDir != "" {
		opts = append(opts, ttystep.WithWorkDir(c.WorkDir))
	}

	switch {
	case c.Image != "":
		opts = append(opts, ttystep.WithImage(process.Image{Command: c.Image, Args: c.ImageArgs}))
	case c.Images != "":
		images, err := process.LoadImages(c.Images)
		if err != nil {
			return nil, err
		}
		if len(images) > 0 {
			byName := make(map[string]process.Image, len(images))
			for name, img := range images {
				byName[name] = img.Image()
			}
			opts = append(opts, ttystep.WithImages(byName))
		}
	}
	return opts, nil
}
