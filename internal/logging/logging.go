// Package logging builds the zerolog logger used across gitkit.
//
// Console output goes to stderr, either human-readable or JSON. When a log
// file is configured, JSON entries are also written there through a
// lumberjack rotating writer.
package logging

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/shinji-kodama/gitkit/internal/config"
)

// Options selects the logger's level, format and destinations.
type Options struct {
	// Level is a zerolog level name. Empty means info.
	Level string

	// Format is config.LogFormatConsole or config.LogFormatJSON.
	Format string

	// Console receives console output. Nil means os.Stderr.
	Console io.Writer

	// File, MaxSizeMB, MaxBackups and MaxAgeDays configure the optional
	// rotating log file.
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// FromConfig converts the log section of a loaded configuration.
func FromConfig(c config.LogConfig) Options {
	return Options{
		Level:      c.Level,
		Format:     c.Format,
		File:       c.File,
		MaxSizeMB:  c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		MaxAgeDays: c.MaxAgeDays,
	}
}

// nopCloser is returned when no file writer needs closing.
type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// New creates a logger from opts. The returned io.Closer releases the log
// file, if any, and must be called on shutdown.
//
// If the log directory cannot be created, the logger continues with
// console-only output and the error is returned alongside it.
func New(opts Options) (zerolog.Logger, io.Closer, error) {
	level, err := zerolog.ParseLevel(strings.ToLower(opts.Level))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	console := opts.Console
	if console == nil {
		console = os.Stderr
	}
	if opts.Format != config.LogFormatJSON {
		console = zerolog.ConsoleWriter{Out: console, TimeFormat: "15:04:05"}
	}

	var closer io.Closer = nopCloser{}
	writer := console

	if opts.File != "" {
		fileWriter, fileErr := newFileWriter(opts)
		if fileErr != nil {
			logger := zerolog.New(console).Level(level).With().Timestamp().Logger()
			return logger, closer, fileErr
		}
		closer = fileWriter
		writer = zerolog.MultiLevelWriter(console, fileWriter)
	}

	logger := zerolog.New(writer).Level(level).With().Timestamp().Logger()
	return logger, closer, nil
}

// newFileWriter creates the rotating file writer, making sure the log
// directory exists.
func newFileWriter(opts Options) (*lumberjack.Logger, error) {
	if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
		return nil, err
	}
	return &lumberjack.Logger{
		Filename:   opts.File,
		MaxSize:    opts.MaxSizeMB,
		MaxBackups: opts.MaxBackups,
		MaxAge:     opts.MaxAgeDays,
		Compress:   true,
	}, nil
}
