package logger

import (
	"io"
	"log/slog"
	"os"
)

// New creates a logger configured for the given environment.
// Production gets JSON logs, everything else gets readable text logs.
func New(env string) *slog.Logger {
	return NewWithWriter(env, os.Stdout)
}

// NewWithWriter creates a logger writing to the given writer.
// Useful for tests that want to capture or discard output.
func NewWithWriter(env string, w io.Writer) *slog.Logger {
	var handler slog.Handler

	if env == "production" {
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level:     slog.LevelInfo,
			AddSource: false,
		})
	} else {
		handler = slog.NewTextHandler(w, &slog.HandlerOptions{
			Level:     slog.LevelDebug,
			AddSource: true,
		})
	}

	return slog.New(handler)
}

// NewServiceLogger creates a child logger tagged with a service name
func NewServiceLogger(parent *slog.Logger, serviceName string) *slog.Logger {
	if parent == nil {
		parent = slog.New(slog.NewTextHandler(os.Stdout, nil))
	}
	return parent.With(slog.String("service", serviceName))
}
