package config

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"github.com/tidwall/jsonc"

	"github.com/shinji-kodama/gitkit/internal/model"
)

// EnvPrefix is the prefix of environment variables read as configuration,
// e.g. GITKIT_PATH or GITKIT_LOG_LEVEL.
const EnvPrefix = "GITKIT"

// projectBaseName is the file name (without extension) searched in the
// project directory.
const projectBaseName = ".gitkit"

// supportedExtensions lists config file extensions in lookup priority.
var supportedExtensions = []string{".yaml", ".yml", ".json", ".jsonc"}

// Options controls where Load looks for configuration files.
type Options struct {
	// File is an explicit config file. When set, discovery is skipped and
	// the file must exist.
	File string

	// ProjectDir is searched for .gitkit.{yaml,yml,json,jsonc}. Empty
	// means the current working directory.
	ProjectDir string

	// GlobalDir is searched for config.{yaml,yml,json,jsonc}. Empty means
	// $XDG_CONFIG_HOME/gitkit or ~/.config/gitkit.
	GlobalDir string

	// Overrides are applied last.
	Overrides Overrides
}

// newViperInstance creates a viper instance with gitkit defaults and
// GITKIT_* environment binding.
func newViperInstance() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// setDefaults registers every key so AutomaticEnv can override keys that
// no config file mentions.
func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("path", d.Path)
	v.SetDefault("verbose", d.Verbose)
	v.SetDefault("shell", d.Shell)
	v.SetDefault("env", d.Env)
	v.SetDefault("container", d.Container)
	v.SetDefault("timeout", d.Timeout)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("log.file", d.Log.File)
	v.SetDefault("log.max_size_mb", d.Log.MaxSizeMB)
	v.SetDefault("log.max_backups", d.Log.MaxBackups)
	v.SetDefault("log.max_age_days", d.Log.MaxAgeDays)
}

// Load resolves the configuration from all sources.
//
// Precedence, highest first:
//  1. opts.Overrides (CLI flags)
//  2. GITKIT_* environment variables
//  3. Project config (.gitkit.yaml, .gitkit.json, ...) or opts.File
//  4. Global config (~/.config/gitkit/config.yaml, ...)
//  5. Built-in defaults
//
// Missing config files are not an error. Every failure is returned as a
// model.CLIError with ExitInvalidConfig.
func Load(ctx context.Context, opts Options) (*Config, error) {
	v := newViperInstance()
	logger := zerolog.Ctx(ctx).With().Str("component", "config").Logger()

	files, err := configFiles(opts)
	if err != nil {
		return nil, model.WrapCLIError(model.ExitInvalidConfig, "failed to locate config file", err)
	}

	for _, file := range files {
		if err := mergeFile(v, file); err != nil {
			return nil, model.WrapCLIError(model.ExitInvalidConfig, fmt.Sprintf("failed to read config file %s", file), err)
		}
		logger.Debug().Str("file", file).Msg("merged config file")
	}

	cfg := Default()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, model.WrapCLIError(model.ExitInvalidConfig, "failed to decode configuration", err)
	}
	opts.Overrides.Apply(cfg)

	if err := Validate(cfg); err != nil {
		return nil, model.WrapCLIError(model.ExitInvalidConfig, "invalid configuration", err)
	}

	logger.Debug().
		Str("path", cfg.Path).
		Str("shell", cfg.Shell).
		Str("container", cfg.Container).
		Dur("timeout", cfg.Timeout).
		Msg("configuration loaded")

	return cfg, nil
}

// configFiles returns the config files to merge, lowest precedence first.
func configFiles(opts Options) ([]string, error) {
	if opts.File != "" {
		if _, err := os.Stat(opts.File); err != nil {
			return nil, err
		}
		return []string{opts.File}, nil
	}

	var files []string

	globalDir := opts.GlobalDir
	if globalDir == "" {
		globalDir = defaultGlobalDir()
	}
	if globalDir != "" {
		if path, ok := findFile(globalDir, "config"); ok {
			files = append(files, path)
		}
	}

	projectDir := opts.ProjectDir
	if projectDir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		projectDir = cwd
	}
	if path, ok := findFile(projectDir, projectBaseName); ok {
		files = append(files, path)
	}

	return files, nil
}

// defaultGlobalDir returns $XDG_CONFIG_HOME/gitkit, falling back to
// ~/.config/gitkit. It returns "" when neither can be determined.
func defaultGlobalDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "gitkit")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "gitkit")
}

// findFile returns the first existing <dir>/<base><ext> in
// supportedExtensions order.
func findFile(dir, base string) (string, bool) {
	for _, ext := range supportedExtensions {
		path := filepath.Join(dir, base+ext)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, true
		}
	}
	return "", false
}

// mergeFile merges one config file into v. JSON and JSONC files are
// stripped of comments and trailing commas first.
func mergeFile(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		v.SetConfigType("json")
		data = jsonc.ToJSON(data)
	case ".yaml", ".yml":
		v.SetConfigType("yaml")
	default:
		return fmt.Errorf("unsupported config file extension %q (valid: %s)", filepath.Ext(path), strings.Join(supportedExtensions, ", "))
	}

	return v.MergeConfig(bytes.NewReader(data))
}
