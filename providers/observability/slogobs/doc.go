// Package slogobs builds the process logger on log/slog. Two formats are
// supported: compact (single line, JSON attributes) and json.
package slogobs
