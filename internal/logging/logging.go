// Package logging builds the application logger on top of log/slog with
// size-based file rotation in production.
package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"

	"pagebeam/internal/config"
)

// NewLogger creates the process-wide logger. Development and test log to
// stdout with a text handler; production additionally writes JSON records to
// a rotated file under the configured logs directory.
func NewLogger(cfg *config.Config) *slog.Logger {
	level := parseLevel(cfg.LogLevel)

	if !cfg.IsProduction() {
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	}

	rotated := &lumberjack.Logger{
		Filename:   filepath.Join(cfg.LogsDirectory, cfg.AppName+".log"),
		MaxSize:    cfg.LogsMaxSizeInMb,
		MaxBackups: cfg.LogsMaxBackups,
		MaxAge:     cfg.LogsMaxAgeInDays,
		Compress:   true,
	}

	out := io.MultiWriter(os.Stdout, rotated)
	return slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{Level: level}))
}

func parseLevel(l config.LogLevel) slog.Level {
	switch l {
	case config.LogLevelDebug:
		return slog.LevelDebug
	case config.LogLevelInfo:
		return slog.LevelInfo
	case config.LogLevelWarn:
		return slog.LevelWarn
	case config.LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
