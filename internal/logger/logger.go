package logger

import (
	"io"
	"log/slog"
	"os"
)

// Init installs the process logger. Debug lowers the level so per-item
// judge decisions are visible.
func Init(debug bool) *slog.Logger {
	return InitWriter(os.Stdout, debug)
}

func InitWriter(w io.Writer, debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	logger := slog.New(slog.NewTextHandler(w, opts))
	slog.SetDefault(logger)
	return logger
}
