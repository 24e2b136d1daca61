package slogobs

import (
	"fmt"
	"strings"
)

// Format is the log output format.
type Format string

const (
	// FormatCompact is one line per record with JSON-encoded attributes.
	// Example: 2026-01-02 10:40:35  WARN provider rate limited; retrying {"attempt":1,"delay":"500ms"}
	FormatCompact Format = "compact"

	// FormatJSON is one JSON object per record, for log aggregation.
	FormatJSON Format = "json"
)

// ParseFormat parses a format name. Empty means compact.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "compact":
		return FormatCompact, nil
	case "json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("LOG_FORMAT has invalid value '%s'. Allowed values: compact, json", s)
	}
}

// String returns the format name.
func (f Format) String() string {
	return string(f)
}
