// Package config loads the framework configuration from a YAML file with
// environment variable overrides. Every field has a working default; an
// absent config file is not an error.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the effective framework configuration.
type Config struct {
	// DataDir is where module sample databases live.
	DataDir string `yaml:"data_dir"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`

	Scheduler SchedulerConfig `yaml:"scheduler"`
	Modules   ModulesConfig   `yaml:"modules"`
	Collab    CollabConfig    `yaml:"collab"`
}

// SchedulerConfig configures the periodic training scheduler.
type SchedulerConfig struct {
	// TickInterval is how often training conditions are checked.
	TickInterval time.Duration `yaml:"tick_interval"`

	// TrainingInterval is the minimum time between trainings per module.
	TrainingInterval time.Duration `yaml:"training_interval"`

	// MinSamples is the pending-sample threshold that allows training.
	MinSamples int `yaml:"min_samples"`

	// PreferredTime is the preferred training time of day, "HH:MM".
	PreferredTime string `yaml:"preferred_time"`
}

// ModulesConfig toggles individual learning modules.
type ModulesConfig struct {
	Intent      bool `yaml:"intent"`
	Budget      bool `yaml:"budget"`
	Consumption bool `yaml:"consumption"`

	// LookbackMonths bounds the sample history full retrains consider.
	LookbackMonths int `yaml:"lookback_months"`
}

// CollabConfig configures collaborative learning.
type CollabConfig struct {
	// Enabled turns on rule contribution and merging.
	Enabled bool `yaml:"enabled"`

	// MinConfidence is the lowest confidence a local rule may have and
	// still be contributed.
	MinConfidence float64 `yaml:"min_confidence"`
}

// Default returns the configuration used when no file and no environment
// overrides are present.
func Default() Config {
	home, _ := os.UserHomeDir()
	return Config{
		DataDir:  filepath.Join(home, ".adapt"),
		LogLevel: "info",
		Scheduler: SchedulerConfig{
			TickInterval:     30 * time.Minute,
			TrainingInterval: 24 * time.Hour,
			MinSamples:       10,
			PreferredTime:    "03:00",
		},
		Modules: ModulesConfig{
			Intent:         true,
			Budget:         true,
			Consumption:    true,
			LookbackMonths: 6,
		},
		Collab: CollabConfig{
			Enabled:       false,
			MinConfidence: 0.7,
		},
	}
}

// Load builds the effective configuration: defaults, then the YAML file at
// path (skipped when path is empty or missing), then ADAPT_* environment
// overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// defaults apply
		case err != nil:
			return Config{}, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	applyEnv(&cfg)

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// DefaultPath is where Load looks when the caller passes no explicit path.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".adapt", "config.yaml")
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("ADAPT_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("ADAPT_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("ADAPT_TICK_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Scheduler.TickInterval = d
		}
	}
	if v := os.Getenv("ADAPT_TRAINING_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Scheduler.TrainingInterval = d
		}
	}
	if v := os.Getenv("ADAPT_MIN_SAMPLES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Scheduler.MinSamples = n
		}
	}
	if v := os.Getenv("ADAPT_COLLAB_ENABLED"); v != "" {
		cfg.Collab.Enabled = v == "true" || v == "1"
	}
}

func (c Config) validate() error {
	if c.Scheduler.TickInterval <= 0 {
		return fmt.Errorf("scheduler tick_interval must be positive, got %s", c.Scheduler.TickInterval)
	}
	if c.Scheduler.TrainingInterval <= 0 {
		return fmt.Errorf("scheduler training_interval must be positive, got %s", c.Scheduler.TrainingInterval)
	}
	if c.Scheduler.MinSamples < 1 {
		return fmt.Errorf("scheduler min_samples must be at least 1, got %d", c.Scheduler.MinSamples)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log_level %q", c.LogLevel)
	}
	return nil
}
