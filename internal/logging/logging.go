// Package logging configures the global zerolog logger.
package logging

import (
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options controls where logs go.
type Options struct {
	Level zerolog.Level
	// File receives a copy of the console output, rotated by size. Empty
	// disables file logging.
	File string
	// Console is where human readable output goes; defaults to stderr.
	Console io.Writer
}

// Setup installs the global logger and returns a function closing the log
// file. Under systemd (JOURNAL_STREAM set) only the console is used, since
// journald keeps the logs.
func Setup(opts Options) (func() error, error) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(opts.Level)

	console := opts.Console
	if console == nil {
		console = os.Stderr
	}
	consoleWriter := zerolog.ConsoleWriter{Out: console}

	if _, underSystemd := os.LookupEnv("JOURNAL_STREAM"); underSystemd || opts.File == "" {
		log.Logger = log.Output(consoleWriter)
		return func() error { return nil }, nil
	}

	if dir := filepath.Dir(opts.File); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	lj := &lumberjack.Logger{
		Filename:   opts.File,
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		LocalTime:  true,
	}
	fileWriter := zerolog.ConsoleWriter{Out: lj, NoColor: true}
	log.Logger = log.Output(io.MultiWriter(consoleWriter, fileWriter))
	log.Info().Str("logFile", opts.File).Msg("logging to file")
	return lj.Close, nil
}
