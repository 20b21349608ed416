package logger

import (
	"log/slog"
	"os"
)

// New returns a structured JSON logger writing to stdout. Log level is
// controlled by CUSTODIA_LOG_LEVEL (debug, info, warn, error).
func New() *slog.Logger {
	level := slog.LevelInfo
	switch os.Getenv("CUSTODIA_LOG_LEVEL") {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}
