package observability

import (
	"io"
	"log/slog"
	"os"
)

type LoggerConfig struct {
	Env     string
	Service string
	// Level overrides the env default ("debug", "info", "warn", "error").
	Level string
}

// NewLogger builds the JSON logger used by both processes. Every record
// carries the service name. Records also carry trace and span ids whenever
// the context holds a live span, and the acting staff user on authenticated
// requests.
func NewLogger(cfg LoggerConfig) *slog.Logger {
	return newLogger(os.Stdout, cfg)
}

func newLogger(w io.Writer, cfg LoggerConfig) *slog.Logger {
	level := slog.LevelInfo
	if cfg.Env == "dev" {
		level = slog.LevelDebug
	}
	if cfg.Level != "" {
		var l slog.Level
		if err := l.UnmarshalText([]byte(cfg.Level)); err == nil {
			level = l
		}
	}

	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:     level,
		AddSource: cfg.Env == "dev",
	})

	log := slog.New(NewContextHandler(handler))
	if cfg.Service != "" {
		log = log.With("service", cfg.Service)
	}
	return log
}
