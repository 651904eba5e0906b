// Package logging sets up the process-wide slog logger.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// LevelEnv overrides the configured level when set to DEBUG, INFO, WARN or ERROR
const LevelEnv = "SEGEVAL_LOG_LEVEL"

var level = new(slog.LevelVar)

// Configure installs a text handler on stdout as the default logger. Verbose
// selects debug level; LevelEnv takes precedence when set.
func Configure(verbose bool) *slog.Logger {
	return ConfigureWriter(os.Stdout, verbose)
}

// ConfigureWriter is Configure with an explicit destination
func ConfigureWriter(w io.Writer, verbose bool) *slog.Logger {
	level.Set(slog.LevelInfo)
	if verbose {
		level.Set(slog.LevelDebug)
	}

	switch strings.ToUpper(os.Getenv(LevelEnv)) {
	case "DEBUG":
		level.Set(slog.LevelDebug)
	case "INFO":
		level.Set(slog.LevelInfo)
	case "WARN":
		level.Set(slog.LevelWarn)
	case "ERROR":
		level.Set(slog.LevelError)
	}

	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger
}

// SetLevel changes the level of the configured logger
func SetLevel(l slog.Level) {
	level.Set(l)
}
