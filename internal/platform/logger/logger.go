package logger

import (
	"log/slog"
	"os"
)

// New returns the root structured logger. Level comes from LOG_LEVEL so
// operators can turn on debug output without a rebuild.
func New() *slog.Logger {
	level := slog.LevelInfo
	if os.Getenv("LOG_LEVEL") == "debug" {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}
