package slogobs

import (
	"io"
	"log/slog"
	"os"
)

// Option configures New.
type Option func(*config)

type config struct {
	format Format
	level  slog.Level
	output io.Writer
}

// WithFormat sets the output format. Default: compact.
func WithFormat(format Format) Option {
	return func(c *config) {
		c.format = format
	}
}

// WithLevel sets the minimum level. Default: INFO.
func WithLevel(level slog.Level) Option {
	return func(c *config) {
		c.level = level
	}
}

// WithOutput sets the destination. Default: os.Stdout.
func WithOutput(output io.Writer) Option {
	return func(c *config) {
		if output != nil {
			c.output = output
		}
	}
}

func applyOptions(opts ...Option) *config {
	cfg := &config{
		format: FormatCompact,
		level:  slog.LevelInfo,
		output: os.Stdout,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}
