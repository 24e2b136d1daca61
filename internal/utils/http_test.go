package utils

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestDoGet(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		limit     int64
		wantBody  string
		wantErr   error
		wantState int
	}{
		{name: "ok", status: 200, body: "<html></html>", limit: 1024, wantBody: "<html></html>"},
		{name: "exactly at limit", status: 200, body: "12345", limit: 5, wantBody: "12345"},
		{name: "over limit", status: 200, body: "123456", limit: 5, wantErr: ErrBodyTooLarge},
		{name: "not found", status: 404, body: "missing", limit: 1024, wantState: 404},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Header.Get("User-Agent") != "test-agent" {
					t.Errorf("unexpected user agent %q", r.Header.Get("User-Agent"))
				}
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer server.Close()

			_, body, err := DoGet(context.Background(), server.Client(), server.URL, tt.limit,
				HeaderOption{Key: "User-Agent", Value: "test-agent"})

			switch {
			case tt.wantErr != nil:
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("expected %v, got %v", tt.wantErr, err)
				}
			case tt.wantState != 0:
				var statusErr *HTTPStatusError
				if !errors.As(err, &statusErr) || statusErr.StatusCode != tt.wantState {
					t.Errorf("expected status error %d, got %v", tt.wantState, err)
				}
			default:
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if string(body) != tt.wantBody {
					t.Errorf("body = %q, want %q", body, tt.wantBody)
				}
			}
		})
	}
}

func TestHTTPStatusError_MessageTruncated(t *testing.T) {
	err := &HTTPStatusError{StatusCode: 500, Body: []byte(strings.Repeat("e", 2000))}
	if len(err.Error()) > 700 {
		t.Errorf("error message not truncated: %d bytes", len(err.Error()))
	}
	if !strings.HasPrefix(err.Error(), "non-2xx status 500: ") {
		t.Errorf("unexpected message %q", err.Error())
	}
}
