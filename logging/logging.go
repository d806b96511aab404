package logging

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/sig-0/bnarates/config"
)

var errUnknownLevel = errors.New("unknown log level")

// ParseLevel converts a level name into a slog level
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("%w: %q", errUnknownLevel, level)
	}
}

// New creates the process logger from the log configuration.
// The returned closer releases the log file, if any
func New(cfg config.Log, stdout io.Writer) (*slog.Logger, io.Closer, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, nil, err
	}

	var (
		out    = stdout
		closer io.Closer = nopCloser{}
	)

	if cfg.File != "" {
		rotated := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   cfg.Compress,
		}

		out = io.MultiWriter(stdout, rotated)
		closer = rotated
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler

	switch cfg.Format {
	case config.FormatJSON:
		handler = slog.NewJSONHandler(out, opts)
	default:
		handler = slog.NewTextHandler(out, opts)
	}

	return slog.New(handler), closer, nil
}

// Stdout creates the process logger writing to stdout
func Stdout(cfg config.Log) (*slog.Logger, io.Closer, error) {
	return New(cfg, os.Stdout)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
