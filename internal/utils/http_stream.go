package utils

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
)

// maxSSELineSize is the maximum size of a single SSE line (1 MB). The
// default bufio.Scanner limit of 64 KiB is too small for long completions.
const maxSSELineSize = 1 * 1024 * 1024

// maxErrorBodySize caps how much of a non-2xx body is kept for diagnostics.
const maxErrorBodySize int64 = 1 * 1024 * 1024

// HeaderOption is one request header.
type HeaderOption struct {
	Key   string
	Value string
}

// HTTPStatusError is returned for non-2xx responses. The body has already
// been read (capped) and closed.
type HTTPStatusError struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("non-2xx status %d: %s", e.StatusCode, TruncateString(string(e.Body), DefaultMaxStringLength))
}

// HTTPStatus returns the response status code.
func (e *HTTPStatusError) HTTPStatus() int { return e.StatusCode }

// ResponseHeader returns the response headers.
func (e *HTTPStatusError) ResponseHeader() http.Header { return e.Header }

// NewHTTPStatusError reads (capped) and closes the body of a non-2xx
// response and returns it as an *HTTPStatusError.
func NewHTTPStatusError(response *http.Response) *HTTPStatusError {
	defer CloseWithLog(response.Body)
	body, readErr := io.ReadAll(io.LimitReader(response.Body, maxErrorBodySize))
	if readErr != nil {
		slog.Warn("failed to read error response body", slog.String("error", readErr.Error()))
	}
	return &HTTPStatusError{
		StatusCode: response.StatusCode,
		Header:     response.Header.Clone(),
		Body:       body,
	}
}

// CloseWithLog closes c and logs a failure instead of returning it.
func CloseWithLog(c io.Closer) {
	if c == nil {
		return
	}
	if err := c.Close(); err != nil {
		slog.Warn("failed to close body", slog.String("error", err.Error()))
	}
}

// SSEEvent is one server-sent event. Event is empty when the stream does not
// send "event:" lines.
type SSEEvent struct {
	Event string
	Data  string
}

// SSEScanner reads server-sent events from an io.Reader. Comment lines are
// skipped, multi-line data fields are joined with newlines and a
// "data: [DONE]" line ends the stream.
type SSEScanner struct {
	scanner *bufio.Scanner
}

// NewSSEScanner creates an SSEScanner. Lines longer than 1 MB make Next
// return an error wrapping bufio.ErrTooLong.
func NewSSEScanner(reader io.Reader) *SSEScanner {
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 64*1024), maxSSELineSize)
	return &SSEScanner{scanner: scanner}
}

// Next returns the next event carrying data. It returns io.EOF at the end of
// the stream or on the [DONE] sentinel.
func (s *SSEScanner) Next() (SSEEvent, error) {
	var event SSEEvent
	var dataLines []string

	for s.scanner.Scan() {
		line := s.scanner.Text()

		if line == "" {
			if len(dataLines) > 0 {
				event.Data = strings.Join(dataLines, "\n")
				return event, nil
			}
			event = SSEEvent{}
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")
		switch field {
		case "event":
			event.Event = strings.TrimSpace(value)
		case "data":
			if strings.TrimSpace(value) == "[DONE]" {
				return SSEEvent{}, io.EOF
			}
			dataLines = append(dataLines, value)
		}
		// id: and retry: are not used.
	}

	if err := s.scanner.Err(); err != nil {
		return SSEEvent{}, fmt.Errorf("SSE scanner error: %w", err)
	}
	if len(dataLines) > 0 {
		event.Data = strings.Join(dataLines, "\n")
		return event, nil
	}
	return SSEEvent{}, io.EOF
}
