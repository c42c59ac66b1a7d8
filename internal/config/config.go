// Package config loads estimator and server configuration from defaults, an
// optional YAML file, and NOMINATE_-prefixed environment variables, in that
// order of precedence (environment wins).
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	"nomcli/internal/dynamic"
	"nomcli/internal/nominate"
)

// Config is the complete application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server" envconfig:"SERVER"`
	Logging    LoggingConfig    `yaml:"logging" envconfig:"LOGGING"`
	Estimation EstimationConfig `yaml:"estimation" envconfig:"ESTIMATION"`
	Dynamic    DynamicConfig    `yaml:"dynamic" envconfig:"DYNAMIC"`
}

// ServerConfig configures the HTTP estimation service.
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
	RequestTimeout  time.Duration `yaml:"request_timeout" envconfig:"REQUEST_TIMEOUT"`
}

// LoggingConfig configures the slog handler.
type LoggingConfig struct {
	Level  string `yaml:"level" envconfig:"LEVEL"`
	Format string `yaml:"format" envconfig:"FORMAT"`
}

// NewLogger builds a slog logger from the logging section. Unknown levels
// fall back to info, unknown formats to JSON.
func (c LoggingConfig) NewLogger() *slog.Logger {
	var level slog.Level
	switch strings.ToLower(c.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if strings.ToLower(c.Format) == "text" {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}

// AnchorPair names one dimension's polarity anchors.
type AnchorPair struct {
	Negative string `yaml:"negative" envconfig:"NEGATIVE"`
	Positive string `yaml:"positive" envconfig:"POSITIVE"`
}

// EstimationConfig mirrors the single-period estimator options.
type EstimationConfig struct {
	Dims           int          `yaml:"dims" envconfig:"DIMS"`
	MinVotes       int          `yaml:"min_votes" envconfig:"MIN_VOTES"`
	Lop            float64      `yaml:"lop" envconfig:"LOP"`
	Trials         int          `yaml:"trials" envconfig:"TRIALS"`
	MaxIterations  int          `yaml:"max_iterations" envconfig:"MAX_ITERATIONS"`
	Tolerance      float64      `yaml:"tolerance" envconfig:"TOLERANCE"`
	BetaWInterval  int          `yaml:"beta_w_interval" envconfig:"BETA_W_INTERVAL"`
	Seed           int64        `yaml:"seed" envconfig:"SEED"`
	MaxConcurrency int          `yaml:"max_concurrency" envconfig:"MAX_CONCURRENCY"`
	Anchors        []AnchorPair `yaml:"anchors" ignored:"true"`
}

// DynamicConfig mirrors the multi-period estimator options.
type DynamicConfig struct {
	Dims           int       `yaml:"dims" envconfig:"DIMS"`
	Order          int       `yaml:"order" envconfig:"ORDER"`
	MinVotes       int       `yaml:"min_votes" envconfig:"MIN_VOTES"`
	Lop            float64   `yaml:"lop" envconfig:"LOP"`
	MaxIterations  int       `yaml:"max_iterations" envconfig:"MAX_ITERATIONS"`
	Tolerance      float64   `yaml:"tolerance" envconfig:"TOLERANCE"`
	BetaWInterval  int       `yaml:"beta_w_interval" envconfig:"BETA_W_INTERVAL"`
	Seed           int64     `yaml:"seed" envconfig:"SEED"`
	MaxConcurrency int       `yaml:"max_concurrency" envconfig:"MAX_CONCURRENCY"`
	Anchor         string    `yaml:"anchor" envconfig:"ANCHOR"`
	ExpectedSigns  []float64 `yaml:"expected_signs" envconfig:"EXPECTED_SIGNS"`
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	est := nominate.DefaultOptions()
	dyn := dynamic.DefaultOptions()
	return Config{
		Server: ServerConfig{
			Port:            8090,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    60 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			RequestTimeout:  10 * time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Estimation: EstimationConfig{
			Dims:          est.Dims,
			MinVotes:      est.MinVotes,
			Lop:           est.Lop,
			Trials:        est.Trials,
			MaxIterations: est.MaxIterations,
			Tolerance:     est.Tolerance,
			BetaWInterval: est.BetaWInterval,
			Seed:          est.Seed,
		},
		Dynamic: DynamicConfig{
			Dims:          dyn.Dims,
			Order:         dyn.Order,
			MinVotes:      dyn.MinVotes,
			Lop:           dyn.Lop,
			MaxIterations: dyn.MaxIterations,
			Tolerance:     dyn.Tolerance,
			BetaWInterval: dyn.BetaWInterval,
			Seed:          dyn.Seed,
		},
	}
}

// Load builds the configuration: defaults, then the YAML file at path (if
// path is non-empty it must exist; "" silently skips the file), then
// NOMINATE_-prefixed environment variables on top.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	if err := envconfig.Process("NOMINATE", &cfg); err != nil {
		return nil, fmt.Errorf("load config from environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks every section by building the estimator options.
func (c *Config) Validate() error {
	if err := c.Estimation.Options().Validate(); err != nil {
		return fmt.Errorf("estimation config: %w", err)
	}
	if err := c.Dynamic.Options().Validate(); err != nil {
		return fmt.Errorf("dynamic config: %w", err)
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server config: port %d out of range", c.Server.Port)
	}
	return nil
}

// Options converts the section into estimator options.
func (c EstimationConfig) Options() nominate.Options {
	opts := nominate.Options{
		Dims:           c.Dims,
		MinVotes:       c.MinVotes,
		Lop:            c.Lop,
		Trials:         c.Trials,
		MaxIterations:  c.MaxIterations,
		Tolerance:      c.Tolerance,
		BetaWInterval:  c.BetaWInterval,
		Seed:           c.Seed,
		MaxConcurrency: c.MaxConcurrency,
	}
	if len(c.Anchors) > 0 {
		pairs := make([]nominate.DimensionAnchor, len(c.Anchors))
		for d, a := range c.Anchors {
			pairs[d] = nominate.DimensionAnchor{Negative: a.Negative, Positive: a.Positive}
		}
		opts.Anchors = nominate.AnchorPolicy{Kind: nominate.AnchorByIdentity, Pairs: pairs}
	}
	return opts
}

// Options converts the section into joint estimator options.
func (c DynamicConfig) Options() dynamic.Options {
	return dynamic.Options{
		Dims:           c.Dims,
		Order:          c.Order,
		MinVotes:       c.MinVotes,
		Lop:            c.Lop,
		MaxIterations:  c.MaxIterations,
		Tolerance:      c.Tolerance,
		BetaWInterval:  c.BetaWInterval,
		Seed:           c.Seed,
		MaxConcurrency: c.MaxConcurrency,
		Anchor: dynamic.GlobalAnchor{
			LegislatorID:  c.Anchor,
			ExpectedSigns: c.ExpectedSigns,
		},
	}
}
