package logger

import (
	"log/slog"
	"os"
)

// Option adjusts handler construction.
type Option func(*slog.HandlerOptions)

// WithLevel overrides the minimum level. The default is info; development
// deployments drop to debug.
func WithLevel(level slog.Level) Option {
	return func(o *slog.HandlerOptions) {
		o.Level = level
	}
}

// New returns a structured JSON logger writing to stdout.
func New(opts ...Option) *slog.Logger {
	handlerOpts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}
	for _, opt := range opts {
		opt(handlerOpts)
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, handlerOpts))
}
