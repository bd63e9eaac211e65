package cli

import (
	"log/slog"
	"os"
	"strings"

	"github.com/lmittmann/tint"
)

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	logger := slog.New(tint.NewHandler(os.Stdout, &tint.Options{Level: lvl, TimeFormat: "15:04:05.000"}))
	slog.SetDefault(logger)
	return logger
}
