package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. MISE_SOLVER_WORKERS.
const EnvPrefix = "MISE"

// Config represents the complete mise configuration
type Config struct {
	Solver  SolverConfig  `mapstructure:"solver"`
	Logging LoggingConfig `mapstructure:"logging"`
	Output  OutputConfig  `mapstructure:"output"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// SolverConfig controls the search
type SolverConfig struct {
	// Name selects the algorithm: "cp" or "greedy"
	Name string `mapstructure:"name"`
	// TimeLimit stops the search; 0 searches until optimality is proven
	TimeLimit time.Duration `mapstructure:"time_limit"`
	// NodeLimit caps the number of search nodes; 0 means no limit
	NodeLimit int64 `mapstructure:"node_limit"`
	// Workers is the number of parallel search workers
	Workers int `mapstructure:"workers"`
	// Seed diversifies the workers after the first
	Seed int64 `mapstructure:"seed"`
	// Hint seeds the search with the greedy schedule
	Hint bool `mapstructure:"hint"`
}

// LoggingConfig controls diagnostic output on stderr
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// OutputConfig controls how schedules are printed
type OutputConfig struct {
	// Format is "text" or "json"
	Format string `mapstructure:"format"`
	// Color is "auto", "always" or "never"
	Color string `mapstructure:"color"`
	// Verify replays every schedule before printing it
	Verify bool `mapstructure:"verify"`
}

// MetricsConfig controls metric export
type MetricsConfig struct {
	// File receives the metrics in Prometheus text format after each run
	File string `mapstructure:"file"`
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Solver: SolverConfig{
			Name:      "cp",
			TimeLimit: 0,
			NodeLimit: 0,
			Workers:   1,
			Seed:      1,
			Hint:      true,
		},
		Logging: LoggingConfig{
			Level:  "warn",
			Format: "text",
		},
		Output: OutputConfig{
			Format: "text",
			Color:  "auto",
			Verify: false,
		},
		Metrics: MetricsConfig{
			File: "",
		},
	}
}

// SetDefaults registers default values with v
func SetDefaults(v *viper.Viper) {
	defaults := Default()

	// Solver defaults
	v.SetDefault("solver.name", defaults.Solver.Name)
	v.SetDefault("solver.time_limit", defaults.Solver.TimeLimit)
	v.SetDefault("solver.node_limit", defaults.Solver.NodeLimit)
	v.SetDefault("solver.workers", defaults.Solver.Workers)
	v.SetDefault("solver.seed", defaults.Solver.Seed)
	v.SetDefault("solver.hint", defaults.Solver.Hint)

	// Logging defaults
	v.SetDefault("logging.level", defaults.Logging.Level)
	v.SetDefault("logging.format", defaults.Logging.Format)

	// Output defaults
	v.SetDefault("output.format", defaults.Output.Format)
	v.SetDefault("output.color", defaults.Output.Color)
	v.SetDefault("output.verify", defaults.Output.Verify)

	// Metrics defaults
	v.SetDefault("metrics.file", defaults.Metrics.File)
}

// New returns a viper instance with defaults and MISE_ environment
// overrides. When file is empty the default config file is read if it
// exists; a missing default file is not an error.
func New(file string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
		return v, nil
	}

	v.SetConfigFile(ConfigFile())
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist) {
			return v, nil
		}
		return nil, err
	}
	return v, nil
}

// Load unmarshals and validates the configuration held by v
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// Validate the configuration
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	// Check XDG_CONFIG_HOME first
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "mise")
	}
	// Fall back to ~/.config/mise
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "mise")
}

// ConfigFile returns the path to the default config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}
