package utils

import (
	"bufio"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// ---- SSEScanner tests -------------------------------------------------------

// TestSSEScanner_NamedEvents verifies that event names are attached to their data.
func TestSSEScanner_NamedEvents(t *testing.T) {
	input := "event: response.created\ndata: {\"a\":1}\n\nevent: response.output_text.delta\ndata: {\"delta\":\"hi\"}\n\n"
	scanner := NewSSEScanner(strings.NewReader(input))

	want := []SSEEvent{
		{Event: "response.created", Data: `{"a":1}`},
		{Event: "response.output_text.delta", Data: `{"delta":"hi"}`},
	}
	for _, expected := range want {
		event, err := scanner.Next()
		if err != nil {
			t.Fatalf("expected nil error, got %v", err)
		}
		if event != expected {
			t.Errorf("expected %+v, got %+v", expected, event)
		}
	}

	if _, err := scanner.Next(); err != io.EOF {
		t.Errorf("expected io.EOF, got %v", err)
	}
}

// TestSSEScanner_MultiLineData verifies consecutive data lines are joined.
func TestSSEScanner_MultiLineData(t *testing.T) {
	scanner := NewSSEScanner(strings.NewReader("data: line1\ndata: line2\n\n"))

	event, err := scanner.Next()
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if event.Data != "line1\nline2" {
		t.Errorf("expected joined data, got %q", event.Data)
	}
}

// TestSSEScanner_SkipsCommentsAndUnknownFields verifies ":" comments, id:
// and retry: lines are ignored.
func TestSSEScanner_SkipsCommentsAndUnknownFields(t *testing.T) {
	input := ": keep-alive\nid: 7\nretry: 100\ndata: payload\n\n"
	scanner := NewSSEScanner(strings.NewReader(input))

	event, err := scanner.Next()
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if event.Data != "payload" || event.Event != "" {
		t.Errorf("unexpected event %+v", event)
	}
}

// TestSSEScanner_DoneSentinel verifies [DONE] ends the stream.
func TestSSEScanner_DoneSentinel(t *testing.T) {
	scanner := NewSSEScanner(strings.NewReader("data: [DONE]\n\ndata: never\n\n"))

	if _, err := scanner.Next(); err != io.EOF {
		t.Errorf("expected io.EOF, got %v", err)
	}
}

// TestSSEScanner_TrailingDataWithoutBlankLine verifies a final unterminated event is returned.
func TestSSEScanner_TrailingDataWithoutBlankLine(t *testing.T) {
	scanner := NewSSEScanner(strings.NewReader("data: last"))

	event, err := scanner.Next()
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if event.Data != "last" {
		t.Errorf("expected %q, got %q", "last", event.Data)
	}
}

// TestSSEScanner_LineTooLong verifies the 1 MB line cap surfaces as an error.
func TestSSEScanner_LineTooLong(t *testing.T) {
	input := "data: " + strings.Repeat("x", maxSSELineSize+1) + "\n\n"
	scanner := NewSSEScanner(strings.NewReader(input))

	_, err := scanner.Next()
	if !errors.Is(err, bufio.ErrTooLong) {
		t.Errorf("expected bufio.ErrTooLong, got %v", err)
	}
}

// ---- NewHTTPStatusError tests ---------------------------------------------

// TestNewHTTPStatusError_KeepsStatusHeadersAndBody verifies status, headers
// and body survive and the body is closed.
func TestNewHTTPStatusError_KeepsStatusHeadersAndBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "3")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = io.WriteString(w, `{"error":{"code":"429"}}`)
	}))
	defer server.Close()

	response, err := server.Client().Get(server.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	statusErr := NewHTTPStatusError(response)
	if statusErr.HTTPStatus() != http.StatusTooManyRequests {
		t.Errorf("status = %d", statusErr.StatusCode)
	}
	if statusErr.ResponseHeader().Get("Retry-After") != "3" {
		t.Errorf("Retry-After = %q", statusErr.Header.Get("Retry-After"))
	}
	if !strings.Contains(string(statusErr.Body), `"code":"429"`) {
		t.Errorf("body = %s", statusErr.Body)
	}
	if _, err := response.Body.Read(make([]byte, 1)); err == nil {
		t.Error("expected the body to be closed")
	}
}
