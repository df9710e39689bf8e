package docview

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// Log formats
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// NewLogger creates a structured logger writing to w from the logging
// settings in cfg.
func NewLogger(cfg *Config, w io.Writer) (*slog.Logger, error) {
	level, err := parseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch strings.ToLower(cfg.LogFormat) {
	case LogFormatJSON:
		handler = slog.NewJSONHandler(w, opts)
	case "", LogFormatText:
		handler = slog.NewTextHandler(w, opts)
	default:
		return nil, fmt.Errorf("unknown log format: %s", cfg.LogFormat)
	}

	return slog.New(handler), nil
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level: %s", s)
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
