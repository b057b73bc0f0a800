// Package config provides configuration management for file2sql.
//
// Configuration is loaded from four sources with the following precedence
// (highest to lowest):
//  1. CLI flags
//  2. Environment variables (FILE2SQL_ prefix)
//  3. Config file (.file2sql.yaml)
//  4. Built-in defaults
package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Supported log levels.
const (
	LogLevelTrace = "trace"
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

// Supported log formats.
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// Supported output formats (store drivers).
const (
	OutputFormatSQLite = "sqlite"
)

// Defaults shared by the flag definitions and setDefaults.
const (
	DefaultConnString = ":memory:"
	DefaultQueueSize  = 1024
	DefaultMoveWindow = 100 * time.Millisecond
)

// Config represents the runtime configuration for a file2sql run.
type Config struct {
	// Directory is the root path watched recursively.
	Directory string `mapstructure:"directory" yaml:"directory"`

	// ConnString locates the store. ":memory:" selects an in-memory database.
	ConnString string `mapstructure:"connstring" yaml:"connstring"`

	// OutputFormat selects the store driver. Only "sqlite" is supported.
	OutputFormat string `mapstructure:"output-format" yaml:"output-format"`

	// QueueSize bounds the number of normalised events waiting for the
	// sync worker.
	QueueSize int `mapstructure:"queue-size" yaml:"queue-size"`

	// InitialScan syncs CSV files already present under Directory at startup.
	InitialScan bool `mapstructure:"initial-scan" yaml:"initial-scan"`

	// MoveWindow is how long a rename waits for its matching create before
	// it is treated as a delete.
	MoveWindow time.Duration `mapstructure:"move-window" yaml:"move-window"`

	// LogLevel controls the verbosity of log output.
	// Valid values: trace, debug, info, warn, error.
	LogLevel string `mapstructure:"log-level" yaml:"log-level"`

	// LogFormat controls the format of log output.
	// Valid values: text, json.
	LogFormat string `mapstructure:"log-format" yaml:"log-format"`

	// LogFile redirects logs to a size-rotated file instead of stderr.
	LogFile string `mapstructure:"log-file" yaml:"log-file,omitempty"`

	// Quiet suppresses all log output below error level.
	Quiet bool `mapstructure:"quiet" yaml:"quiet"`

	// ConfigFile is the resolved path to the config file used.
	// Set after Load() — not read from config itself.
	ConfigFile string `mapstructure:"-" yaml:"-"`
}

// Default returns a Config with default values. Directory has no default.
func Default() *Config {
	return &Config{
		ConnString:   DefaultConnString,
		OutputFormat: OutputFormatSQLite,
		QueueSize:    DefaultQueueSize,
		MoveWindow:   DefaultMoveWindow,
		LogLevel:     LogLevelInfo,
		LogFormat:    LogFormatText,
	}
}

// Validate checks the logging settings. It does not require a directory so
// that subcommands such as "config" work without one.
func (c *Config) Validate() error {
	switch c.LogLevel {
	case LogLevelTrace, LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
	default:
		return fmt.Errorf("invalid log level %q: must be one of trace, debug, info, warn, error", c.LogLevel)
	}

	switch c.LogFormat {
	case LogFormatText, LogFormatJSON:
	default:
		return fmt.Errorf("invalid log format %q: must be one of text, json", c.LogFormat)
	}

	return nil
}

// ValidateRun checks everything a watch run needs on top of Validate.
func (c *Config) ValidateRun() error {
	if err := c.Validate(); err != nil {
		return err
	}

	if c.Directory == "" {
		return fmt.Errorf("a directory to watch is required (--directory)")
	}

	if c.OutputFormat != OutputFormatSQLite {
		return fmt.Errorf("invalid output format %q: must be %s", c.OutputFormat, OutputFormatSQLite)
	}

	if c.QueueSize < 1 {
		return fmt.Errorf("invalid queue size %d: must be at least 1", c.QueueSize)
	}

	if c.MoveWindow < 0 {
		return fmt.Errorf("invalid move window %s: must not be negative", c.MoveWindow)
	}

	return nil
}

// EffectiveLogLevel returns the log level to use. When Quiet is true the log
// level is overridden to "error" regardless of the configured LogLevel.
func (c *Config) EffectiveLogLevel() string {
	if c.Quiet {
		return LogLevelError
	}

	return c.LogLevel
}

// Load initialises configuration from flags, environment variables, and an
// optional config file. A fresh viper instance is used on every call so that
// Load is safe for concurrent tests.
func Load(cmd *cobra.Command, configFile string) (*Config, error) {
	v := viper.New()

	setDefaults(v)
	configureEnv(v)

	if err := configureFile(v, configFile); err != nil {
		return nil, err
	}

	if err := bindFlags(v, cmd); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.ConfigFile = v.ConfigFileUsed()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("directory", "")
	v.SetDefault("connstring", d.ConnString)
	v.SetDefault("output-format", d.OutputFormat)
	v.SetDefault("queue-size", d.QueueSize)
	v.SetDefault("initial-scan", false)
	v.SetDefault("move-window", d.MoveWindow)
	v.SetDefault("log-level", d.LogLevel)
	v.SetDefault("log-format", d.LogFormat)
	v.SetDefault("log-file", "")
	v.SetDefault("quiet", false)
}

func configureEnv(v *viper.Viper) {
	v.SetEnvPrefix("FILE2SQL")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
}

func configureFile(v *viper.Viper, configFile string) error {
	if configFile != "" {
		v.SetConfigFile(configFile)

		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config file %q: %w", configFile, err)
		}

		return nil
	}

	v.SetConfigName(".file2sql")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", "file2sql"))
	}

	if err := v.ReadInConfig(); err != nil {
		// No config file found → perfectly fine in auto-discovery.
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}

		return fmt.Errorf("parsing config file: %w", err)
	}

	return nil
}

// bindFlags binds cmd's own flags plus the persistent flags of every
// ancestor, so flag values win over env and file.
func bindFlags(v *viper.Viper, cmd *cobra.Command) error {
	if cmd == nil {
		return nil
	}

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("binding flags: %w", err)
	}

	for c := cmd; c != nil; c = c.Parent() {
		if err := v.BindPFlags(c.PersistentFlags()); err != nil {
			return fmt.Errorf("binding persistent flags: %w", err)
		}
	}

	return nil
}

type ctxKey struct{}

// NewContext returns a child context carrying cfg.
func NewContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, ctxKey{}, cfg)
}

// FromContext extracts a Config from ctx, falling back to Default().
func FromContext(ctx context.Context) *Config {
	if cfg, ok := ctx.Value(ctxKey{}).(*Config); ok {
		return cfg
	}

	return Default()
}
