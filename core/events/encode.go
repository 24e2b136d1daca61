package events

import (
	"bytes"
	"encoding/json"
	"fmt"
)

var doneFrame = []byte("data: [DONE]\n\n")

// Encode renders e as one server-sent-event frame: "data: <json>\n\n". The
// sentinel is rendered as "data: [DONE]\n\n". HTML characters in text are
// not escaped.
func Encode(e Event) ([]byte, error) {
	if e.done {
		return append([]byte(nil), doneFrame...), nil
	}

	var buf bytes.Buffer
	buf.WriteString("data: ")
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(e); err != nil {
		return nil, fmt.Errorf("encode %s event: %w", e.Event, err)
	}

	// json.Encoder terminates with a single newline; a frame needs two.
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}
