package logging

import (
	"io"
	"log/slog"
	"os"
)

// New initializes a new slog logger and sets it as the default.
// format is "text" (development, with source locations) or "json" (production).
// An unparsable level falls back to debug.
func New(format, level string) *slog.Logger {
	logger := slog.New(NewHandler(os.Stdout, format, level))
	slog.SetDefault(logger)
	return logger
}

// NewHandler builds the slog handler used by New, writing to w.
func NewHandler(w io.Writer, format, level string) slog.Handler {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelDebug
	}

	switch format {
	case "json":
		return slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level: lvl,
		})
	default:
		return slog.NewTextHandler(w, &slog.HandlerOptions{
			Level:     lvl,
			AddSource: true,
		})
	}
}
