// Package config loads the gitkit session configuration.
//
// Configuration is read with spf13/viper from, in increasing precedence:
// built-in defaults, the global config file, the project config file,
// GITKIT_* environment variables and finally CLI flag overrides.
//
// Config files may be YAML or JSON with comments (JSONC). JSONC files are
// stripped with github.com/tidwall/jsonc before viper parses them as JSON.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/shinji-kodama/gitkit/internal/model"
)

// Config is the fully resolved session configuration.
type Config struct {
	// Path is the working directory commands change into. Empty means
	// commands run in the current directory.
	Path string `mapstructure:"path"`

	// Verbose logs every rendered command before it runs.
	Verbose bool `mapstructure:"verbose"`

	// Shell is the interpreter for rendered commands (sh, bash, zsh).
	Shell string `mapstructure:"shell"`

	// Env holds extra environment entries in KEY=VALUE form. A list is
	// used instead of a map because viper folds map keys to lower case,
	// and environment variable names are case-sensitive.
	Env []string `mapstructure:"env"`

	// Container, when set, runs commands inside this Docker container
	// instead of on the host.
	Container string `mapstructure:"container"`

	// Timeout bounds each command. Zero disables the timeout.
	Timeout time.Duration `mapstructure:"timeout"`

	// Log configures the logger.
	Log LogConfig `mapstructure:"log"`
}

// LogConfig configures console and file logging.
type LogConfig struct {
	// Level is a zerolog level name (debug, info, warn, error).
	Level string `mapstructure:"level"`

	// Format is "console" for human-readable output or "json".
	Format string `mapstructure:"format"`

	// File, when set, additionally writes JSON logs to this path with
	// size-based rotation.
	File string `mapstructure:"file"`

	MaxSizeMB  int `mapstructure:"max_size_mb"`
	MaxBackups int `mapstructure:"max_backups"`
	MaxAgeDays int `mapstructure:"max_age_days"`
}

// Log output formats.
const (
	LogFormatConsole = "console"
	LogFormatJSON    = "json"
)

// Default returns the configuration used when no file, env var or flag
// sets a value.
func Default() *Config {
	return &Config{
		Shell: string(model.ShellSh),
		Env:   []string{},
		Log: LogConfig{
			Level:      zerolog.InfoLevel.String(),
			Format:     LogFormatConsole,
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// ShellType returns the configured shell. Call Validate first; an invalid
// value falls back to sh.
func (c *Config) ShellType() model.ShellType {
	shell, err := model.ParseShellType(c.Shell)
	if err != nil {
		return model.ShellSh
	}
	return shell
}

// EnvMap converts the Env entries to a mapping. Later entries win.
func (c *Config) EnvMap() (map[string]string, error) {
	return ParseEnvEntries(c.Env)
}

// ParseEnvEntries parses KEY=VALUE strings into a map. The value may be
// empty and may itself contain '='; the key may not be empty.
func ParseEnvEntries(entries []string) (map[string]string, error) {
	env := make(map[string]string, len(entries))
	for _, entry := range entries {
		key, value, ok := strings.Cut(entry, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid env entry %q: expected KEY=VALUE", entry)
		}
		env[key] = value
	}
	return env, nil
}

// Validate checks every field that has a restricted value set.
func Validate(c *Config) error {
	if _, err := model.ParseShellType(c.Shell); err != nil {
		return err
	}
	if _, err := c.EnvMap(); err != nil {
		return err
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative, got %s", c.Timeout)
	}
	if _, err := zerolog.ParseLevel(strings.ToLower(c.Log.Level)); err != nil {
		return fmt.Errorf("invalid log level %q: %w", c.Log.Level, err)
	}
	switch c.Log.Format {
	case LogFormatConsole, LogFormatJSON:
	default:
		return fmt.Errorf("invalid log format %q (valid: console, json)", c.Log.Format)
	}
	if c.Log.MaxSizeMB < 0 || c.Log.MaxBackups < 0 || c.Log.MaxAgeDays < 0 {
		return fmt.Errorf("log rotation limits must not be negative")
	}
	return nil
}

// Overrides carries values set explicitly on the command line. Nil fields
// leave the loaded value untouched.
type Overrides struct {
	Path      *string
	Verbose   *bool
	Shell     *string
	Env       []string
	Container *string
	Timeout   *time.Duration
}

// Apply writes the non-nil overrides into c. Env entries are appended so
// they take precedence over entries from files with the same key.
func (o Overrides) Apply(c *Config) {
	if o.Path != nil {
		c.Path = *o.Path
	}
	if o.Verbose != nil {
		c.Verbose = *o.Verbose
	}
	if o.Shell != nil {
		c.Shell = *o.Shell
	}
	if len(o.Env) > 0 {
		c.Env = append(append([]string(nil), c.Env...), o.Env...)
	}
	if o.Container != nil {
		c.Container = *o.Container
	}
	if o.Timeout != nil {
		c.Timeout = *o.Timeout
	}
}
