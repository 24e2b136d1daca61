package slogobs

import (
	"log/slog"
)

// New returns a logger writing in the configured format.
//
//	logger := slogobs.New(slogobs.WithFormat(slogobs.FormatJSON), slogobs.WithLevel(slog.LevelDebug))
//	slog.SetDefault(logger)
func New(opts ...Option) *slog.Logger {
	cfg := applyOptions(opts...)

	var handler slog.Handler
	switch cfg.format {
	case FormatJSON:
		handler = slog.NewJSONHandler(cfg.output, &slog.HandlerOptions{Level: cfg.level})
	default:
		handler = newCompactHandler(cfg.output, cfg.level)
	}
	return slog.New(handler)
}
