package logger

import (
	"log/slog"
	"os"
	"strings"

	"github.com/banking-transfer-engine/internal/config"
)

// NewLogger creates the application's slog.Logger. Output is JSON on stdout;
// every record carries the application name so the api and worker processes
// can share one log stream.
func NewLogger(cfg *config.Config) *slog.Logger {
	level := parseLevel(cfg.Logging.Level)

	opts := &slog.HandlerOptions{
		Level: level,
		// Source locations are only worth the cost while debugging
		AddSource: level == slog.LevelDebug,
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, opts)).
		With("app", cfg.Application.Name)

	logger.Info("logger initialized", "level", level.String())

	return logger
}

// parseLevel maps the configured level name to a slog level, falling back to
// info for unknown values
func parseLevel(name string) slog.Level {
	switch strings.ToLower(name) {
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
