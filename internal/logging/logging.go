package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Options controls where and how much imagecompare logs.
type Options struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string
	// FilePath is the log file; empty disables file logging.
	FilePath string
	// MaxSizeMB is the file size that triggers rotation.
	MaxSizeMB int
	// MaxBackups is how many rotated files to keep.
	MaxBackups int
	// WriteToStderr mirrors log lines to stderr.
	WriteToStderr bool
}

// DefaultOptions returns file logging defaults.
func DefaultOptions() Options {
	return Options{
		Level:         "info",
		FilePath:      DefaultLogPath(),
		MaxSizeMB:     10,
		MaxBackups:    5,
		WriteToStderr: true,
	}
}

// DebugOptions returns options for --debug runs.
func DebugOptions() Options {
	opts := DefaultOptions()
	opts.Level = "debug"
	return opts
}

// Setup builds a JSON slog logger from opts. The returned cleanup
// closes the log file; call it before exit.
func Setup(opts Options) (*slog.Logger, func(), error) {
	var sinks []io.Writer
	cleanup := func() {}

	if opts.FilePath != "" {
		if err := os.MkdirAll(filepath.Dir(opts.FilePath), 0o755); err != nil {
			return nil, nil, err
		}
		rotator := &lumberjack.Logger{
			Filename:   opts.FilePath,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
		}
		sinks = append(sinks, rotator)
		cleanup = func() { _ = rotator.Close() }
	}
	if opts.WriteToStderr || len(sinks) == 0 {
		sinks = append(sinks, os.Stderr)
	}

	handler := slog.NewJSONHandler(io.MultiWriter(sinks...), &slog.HandlerOptions{
		Level: LevelFromString(opts.Level),
	})
	return slog.New(handler), cleanup, nil
}

// LevelFromString converts a level name to slog.Level. Unknown names
// fall back to info.
func LevelFromString(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
