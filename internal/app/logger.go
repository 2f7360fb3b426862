package app

import (
	"io"
	"log/slog"
	"strings"
)

// parseLevel maps a level name to a slog level, defaulting to info.
func parseLevel(levelStr string) slog.Level {
	switch strings.ToLower(levelStr) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// newLogger creates and configures a new slog.Logger instance. It does not
// set the global logger, allowing for isolated logger instances. Debug
// logs carry their source location.
func newLogger(levelStr, formatStr string, outW io.Writer) *slog.Logger {
	level := parseLevel(levelStr)
	handlerOpts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	var handler slog.Handler
	if strings.EqualFold(formatStr, "json") {
		handler = slog.NewJSONHandler(outW, handlerOpts)
	} else {
		handler = slog.NewTextHandler(outW, handlerOpts)
	}
	return slog.New(handler).With("app", "flowgridgo")
}
