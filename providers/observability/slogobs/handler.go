package slogobs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"
)

// compactHandler writes "time LEVEL message {attrs}" lines. Attributes keep
// their insertion order; groups become dotted key prefixes.
type compactHandler struct {
	level  slog.Leveler
	mu     *sync.Mutex
	output io.Writer
	attrs  []slog.Attr // already prefixed
	prefix string
}

func newCompactHandler(output io.Writer, level slog.Leveler) *compactHandler {
	return &compactHandler{level: level, mu: &sync.Mutex{}, output: output}
}

func (h *compactHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *compactHandler) Handle(_ context.Context, r slog.Record) error {
	var buf bytes.Buffer
	buf.WriteString(r.Time.Format(time.DateTime))
	buf.WriteString(fmt.Sprintf(" %5s ", levelString(r.Level)))
	buf.WriteString(r.Message)

	attrs := append([]slog.Attr(nil), h.attrs...)
	r.Attrs(func(attr slog.Attr) bool {
		attrs = appendAttr(attrs, h.prefix, attr)
		return true
	})
	if len(attrs) > 0 {
		buf.WriteByte(' ')
		writeAttrs(&buf, attrs)
	}
	buf.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.output.Write(buf.Bytes())
	return err
}

func (h *compactHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append([]slog.Attr(nil), h.attrs...)
	for _, attr := range attrs {
		clone.attrs = appendAttr(clone.attrs, h.prefix, attr)
	}
	return &clone
}

func (h *compactHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.prefix = h.prefix + name + "."
	return &clone
}

// appendAttr flattens groups into prefixed keys and drops empty attributes.
func appendAttr(attrs []slog.Attr, prefix string, attr slog.Attr) []slog.Attr {
	attr.Value = attr.Value.Resolve()
	if attr.Equal(slog.Attr{}) {
		return attrs
	}
	if attr.Value.Kind() == slog.KindGroup {
		groupPrefix := prefix
		if attr.Key != "" {
			groupPrefix = prefix + attr.Key + "."
		}
		for _, member := range attr.Value.Group() {
			attrs = appendAttr(attrs, groupPrefix, member)
		}
		return attrs
	}
	return append(attrs, slog.Attr{Key: prefix + attr.Key, Value: attr.Value})
}

func writeAttrs(buf *bytes.Buffer, attrs []slog.Attr) {
	buf.WriteByte('{')
	for i, attr := range attrs {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, _ := json.Marshal(attr.Key)
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(encodeValue(attr.Value))
	}
	buf.WriteByte('}')
}

func encodeValue(value slog.Value) []byte {
	var raw any
	switch value.Kind() {
	case slog.KindDuration:
		raw = value.Duration().String()
	case slog.KindTime:
		raw = value.Time().Format(time.RFC3339Nano)
	case slog.KindAny:
		if err, ok := value.Any().(error); ok {
			raw = err.Error()
		} else {
			raw = value.Any()
		}
	default:
		raw = value.Any()
	}

	encoded, err := json.Marshal(raw)
	if err != nil {
		encoded, _ = json.Marshal(fmt.Sprint(raw))
	}
	return encoded
}
