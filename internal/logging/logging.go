package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/jiwoo-ai/jiwoo/internal/config"
)

// Setup installs the default slog logger described by cfg.
func Setup(cfg config.LogConfig) {
	slog.SetDefault(New(os.Stdout, cfg))
}

func New(w io.Writer, cfg config.LogConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
