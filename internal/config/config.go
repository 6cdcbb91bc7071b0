package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every key looked up in the environment.
const EnvPrefix = "WSOPT"

// BindEnv maps WSOPT_* variables onto config keys. Nested keys use
// underscores, e.g. WSOPT_SERVE_ADDR for serve.addr.
func BindEnv() {
	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
}

// OptimizerConfig controls the search worker.
type OptimizerConfig struct {
	Enabled     bool `mapstructure:"enabled"`
	Parallelism int  `mapstructure:"parallelism"`
	QueueDepth  int  `mapstructure:"queue_depth"`
	// Command, when set, runs the worker as a child process speaking the
	// JSON lines protocol instead of in-process.
	Command string `mapstructure:"command"`
}

// ServeConfig controls the HTTP front end.
type ServeConfig struct {
	Addr  string `mapstructure:"addr"`
	Watch bool   `mapstructure:"watch"`
	// RateLimit caps searches per second; 0 disables the cap.
	RateLimit float64 `mapstructure:"rate_limit"`
}

// Config holds all runtime configuration.
// Values are populated from .workshop-optimizer.yaml, WSOPT_* env vars, and CLI flags.
type Config struct {
	DataPath   string          `mapstructure:"data_path"`
	StatePath  string          `mapstructure:"state_path"`
	MaxResults int             `mapstructure:"max_results"`
	Verbose    bool            `mapstructure:"verbose"`
	LogFormat  string          `mapstructure:"log_format"`
	Optimizer  OptimizerConfig `mapstructure:"optimizer"`
	Serve      ServeConfig     `mapstructure:"serve"`
}

// Load reads configuration from viper, applying built-in defaults for any
// values not set by config file, environment, or flags.
func Load() (Config, error) {
	viper.SetDefault("data_path", "")
	viper.SetDefault("state_path", "island.toml")
	viper.SetDefault("max_results", 100)
	viper.SetDefault("verbose", false)
	viper.SetDefault("log_format", "text")
	viper.SetDefault("optimizer.enabled", true)
	viper.SetDefault("optimizer.parallelism", 0)
	viper.SetDefault("optimizer.queue_depth", 64)
	viper.SetDefault("optimizer.command", "")
	viper.SetDefault("serve.addr", ":8391")
	viper.SetDefault("serve.watch", false)
	viper.SetDefault("serve.rate_limit", 0.0)

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("config: log_format %q: want text or json", c.LogFormat)
	}
	if c.MaxResults < 0 {
		return fmt.Errorf("config: max_results %d is negative", c.MaxResults)
	}
	if c.Optimizer.Parallelism < 0 || c.Optimizer.QueueDepth < 0 {
		return fmt.Errorf("config: optimizer parallelism and queue_depth must not be negative")
	}
	return nil
}
