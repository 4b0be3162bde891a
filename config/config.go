package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/tef/packrat/log"
)

const (
	// DefaultPackratDir is the default home directory, relative to $HOME.
	DefaultPackratDir = ".packrat"
	// DefaultConfigFile is the name of the configuration file inside the
	// home directory.
	DefaultConfigFile = "config.toml"

	// defaultDirPerm is the default permissions used when creating directories.
	defaultDirPerm = 0700
)

// Config defines the top level configuration for the packrat command.
type Config struct {
	// Top level options use an anonymous struct
	BaseConfig `mapstructure:",squash"`

	Metrics *MetricsConfig `mapstructure:"metrics" toml:"metrics"`
	Bench   *BenchConfig   `mapstructure:"bench" toml:"bench"`
}

// DefaultConfig returns a default configuration.
func DefaultConfig() *Config {
	return &Config{
		BaseConfig: DefaultBaseConfig(),
		Metrics:    DefaultMetricsConfig(),
		Bench:      DefaultBenchConfig(),
	}
}

// TestConfig returns a configuration that can be used for testing
func TestConfig() *Config {
	cfg := DefaultConfig()
	cfg.LogLevel = log.LogLevelDebug
	cfg.Bench.Workers = 2
	return cfg
}

// SetRoot sets the RootDir for all Config structs
func (cfg *Config) SetRoot(root string) *Config {
	cfg.BaseConfig.RootDir = root
	return cfg
}

// ValidateBasic performs basic validation (checking param bounds, etc.) and
// returns an error if any check fails.
func (cfg *Config) ValidateBasic() error {
	if err := cfg.BaseConfig.ValidateBasic(); err != nil {
		return err
	}
	if err := cfg.Metrics.ValidateBasic(); err != nil {
		return errors.Wrap(err, "error in [metrics] section")
	}
	return errors.Wrap(cfg.Bench.ValidateBasic(), "error in [bench] section")
}

//-----------------------------------------------------------------------------
// BaseConfig

// BaseConfig defines the base configuration for the packrat command.
type BaseConfig struct {
	// The root directory for all data.
	// This should be set in viper so it can unmarshal into this struct
	RootDir string `mapstructure:"home" toml:"-"`

	// Output level for logging
	LogLevel string `mapstructure:"log-level" toml:"log-level"`

	// Output format: 'plain' (colored text), 'text' or 'json'
	LogFormat string `mapstructure:"log-format" toml:"log-format"`

	// Log every rule application at debug level
	Trace bool `mapstructure:"trace" toml:"trace"`
}

// DefaultBaseConfig returns a default base configuration.
func DefaultBaseConfig() BaseConfig {
	return BaseConfig{
		LogLevel:  log.LogLevelInfo,
		LogFormat: log.LogFormatPlain,
	}
}

// ValidateBasic performs basic validation (checking param bounds, etc.) and
// returns an error if any check fails.
func (cfg BaseConfig) ValidateBasic() error {
	switch cfg.LogFormat {
	case log.LogFormatJSON, log.LogFormatText, log.LogFormatPlain:
	default:
		return errors.Errorf("unknown log format %q (must be 'plain', 'text' or 'json')", cfg.LogFormat)
	}
	switch cfg.LogLevel {
	case log.LogLevelDebug, log.LogLevelInfo, log.LogLevelError:
	default:
		return errors.Errorf("unknown log level %q (must be 'debug', 'info' or 'error')", cfg.LogLevel)
	}
	return nil
}

// ConfigFile returns the full path to the configuration file.
func (cfg BaseConfig) ConfigFile() string {
	return filepath.Join(cfg.RootDir, DefaultConfigFile)
}

//-----------------------------------------------------------------------------
// MetricsConfig

// MetricsConfig defines the configuration for metrics reporting.
type MetricsConfig struct {
	// When true, Prometheus metrics are served under /metrics on ListenAddr.
	Prometheus bool `mapstructure:"prometheus" toml:"prometheus"`

	// Address to listen for Prometheus collector(s) connections.
	ListenAddr string `mapstructure:"listen-addr" toml:"listen-addr"`

	// Instrumentation namespace.
	Namespace string `mapstructure:"namespace" toml:"namespace"`
}

// DefaultMetricsConfig returns a default configuration for metrics
// reporting.
func DefaultMetricsConfig() *MetricsConfig {
	return &MetricsConfig{
		Prometheus: false,
		ListenAddr: ":26680",
		Namespace:  "packrat",
	}
}

// ValidateBasic performs basic validation (checking param bounds, etc.) and
// returns an error if any check fails.
func (cfg *MetricsConfig) ValidateBasic() error {
	if cfg.Namespace == "" {
		return errors.New("namespace can't be empty")
	}
	if cfg.Prometheus && cfg.ListenAddr == "" {
		return errors.New("listen-addr can't be empty when prometheus is enabled")
	}
	return nil
}

//-----------------------------------------------------------------------------
// BenchConfig

// BenchConfig defines the configuration of the bench command.
type BenchConfig struct {
	// Number of goroutines matching inputs, each with its own session.
	Workers int `mapstructure:"workers" toml:"workers"`

	// Number of times every input is matched.
	Rounds int `mapstructure:"rounds" toml:"rounds"`
}

// DefaultBenchConfig returns a default configuration for the bench command.
func DefaultBenchConfig() *BenchConfig {
	return &BenchConfig{
		Workers: 4,
		Rounds:  1,
	}
}

// ValidateBasic performs basic validation (checking param bounds, etc.) and
// returns an error if any check fails.
func (cfg *BenchConfig) ValidateBasic() error {
	if cfg.Workers <= 0 {
		return errors.New("workers must be positive")
	}
	if cfg.Rounds <= 0 {
		return errors.New("rounds must be positive")
	}
	return nil
}

//-----------------------------------------------------------------------------
// Loading and writing

// ParseConfig unmarshals the settings collected by v into conf and validates
// the result.
func ParseConfig(v *viper.Viper, conf *Config) (*Config, error) {
	if err := v.Unmarshal(conf); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}
	conf.SetRoot(conf.RootDir)

	if err := conf.ValidateBasic(); err != nil {
		return nil, fmt.Errorf("error in config file: %w", err)
	}
	return conf, nil
}

// EnsureRoot creates the root directory if it doesn't exist.
func EnsureRoot(rootDir string) error {
	return errors.Wrapf(os.MkdirAll(rootDir, defaultDirPerm), "failed to create %s", rootDir)
}

// WriteConfigFile writes config as TOML to the configuration file in
// rootDir, creating the directory first.
func WriteConfigFile(rootDir string, config *Config) error {
	if err := EnsureRoot(rootDir); err != nil {
		return err
	}
	path := filepath.Join(rootDir, DefaultConfigFile)
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "failed to create config file %q", path)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(config); err != nil {
		return errors.Wrapf(err, "failed to write config file %q", path)
	}
	return f.Close()
}

// LoadConfigFile reads the configuration file at path on top of the defaults.
func LoadConfigFile(path string) (*Config, error) {
	conf := DefaultConfig()
	if _, err := toml.DecodeFile(path, conf); err != nil {
		return nil, errors.Wrapf(err, "failed to load config file %q", path)
	}
	if err := conf.ValidateBasic(); err != nil {
		return nil, err
	}
	return conf, nil
}
