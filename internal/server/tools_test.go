package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/mock/gomock"

	"github.com/leofalp/promptenhancer/providers/ai"
	"github.com/leofalp/promptenhancer/providers/ai/aimock"
	"github.com/leofalp/promptenhancer/providers/tool/webfetch"
)

const pageHTML = `<html><head><title>Quarterly report</title></head><body>
<h1>Results</h1>
<p>Revenue grew twelve percent year over year while operating costs stayed flat across all regions.</p>
</body></html>`

// pageFetcher returns a fetcher whose connections all reach server.
func pageFetcher(server *httptest.Server) *webfetch.Fetcher {
	target := server.Listener.Addr().String()
	transport := &http.Transport{
		DialContext: func(ctx context.Context, network, _ string) (net.Conn, error) {
			return (&net.Dialer{}).DialContext(ctx, network, target)
		},
	}
	return webfetch.NewFetcher(webfetch.WithHTTPClient(&http.Client{Transport: transport}))
}

func newPageServer() *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(pageHTML))
	}))
}

// ========== Extract URL ==========

func TestExtractURL_Success(t *testing.T) {
	pages := newPageServer()
	defer pages.Close()

	ctrl := gomock.NewController(t)
	provider := aimock.NewMockStreamProvider(ctrl)
	provider.EXPECT().StreamResponse(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, request ai.Request) (*ai.ChunkStream, error) {
			if request.Instructions != webfetch.ExtractorInstructions {
				t.Error("expected extractor instructions")
			}
			if !strings.Contains(request.Input, "Revenue grew") {
				t.Errorf("expected page text in input, got %q", request.Input)
			}
			return ai.NewStaticStream([]string{"• Revenue up 12%\n", "• Costs flat"}, nil), nil
		})

	s := newTestServer(testSettings(), provider, nil, WithFetcher(pageFetcher(pages)))
	rec := doJSON(s, http.MethodPost, "/extract-url", `{"url": "http://reports.example.com/q3"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var output webfetch.Output
	if err := json.Unmarshal(rec.Body.Bytes(), &output); err != nil {
		t.Fatal(err)
	}
	if output.Title != "Quarterly report" {
		t.Errorf("unexpected title %q", output.Title)
	}
	if output.Content != "• Revenue up 12%\n• Costs flat" {
		t.Errorf("unexpected content %q", output.Content)
	}
}

func TestExtractURL_CachesByNormalizedURL(t *testing.T) {
	pages := newPageServer()
	defer pages.Close()

	ctrl := gomock.NewController(t)
	provider := aimock.NewMockStreamProvider(ctrl)
	provider.EXPECT().StreamResponse(gomock.Any(), gomock.Any()).
		Return(ai.NewStaticStream([]string{"• Revenue up 12%"}, nil), nil).
		Times(1)

	settings := testSettings()
	settings.CacheTTLMillis = 600000
	settings.CacheMaxEntries = 200
	s := newTestServer(settings, provider, nil, WithFetcher(pageFetcher(pages)))

	for _, body := range []string{`{"url": "http://reports.example.com/q3"}`, `{"url": " http://reports.example.com/q3 "}`} {
		rec := doJSON(s, http.MethodPost, "/extract-url", body)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		var output webfetch.Output
		if err := json.Unmarshal(rec.Body.Bytes(), &output); err != nil {
			t.Fatal(err)
		}
		if output.Title != "Quarterly report" || output.Content != "• Revenue up 12%" {
			t.Errorf("unexpected output %+v", output)
		}
	}
}

func TestExtractURL_Errors(t *testing.T) {
	pages := newPageServer()
	defer pages.Close()

	tests := []struct {
		name       string
		body       string
		calls      int
		stream     *ai.ChunkStream
		err        error
		wantStatus int
		wantCode   string
	}{
		{name: "missing url", body: `{}`, wantStatus: http.StatusBadRequest, wantCode: CodeInvalidInput},
		{name: "private address", body: `{"url": "http://10.0.0.1/admin"}`, wantStatus: http.StatusUnprocessableEntity, wantCode: CodeURLNotAllowed},
		{name: "internal host", body: `{"url": "http://vault.internal/"}`, wantStatus: http.StatusUnprocessableEntity, wantCode: CodeURLNotAllowed},
		{name: "bad scheme", body: `{"url": "gopher://example.com/"}`, wantStatus: http.StatusUnprocessableEntity, wantCode: CodeURLNotAllowed},
		{name: "upstream 404", body: `{"url": "http://example.com/missing"}`, wantStatus: http.StatusUnprocessableEntity, wantCode: CodeUpstreamFetchFailed},
		{
			name:       "rate limit exhausted",
			body:       `{"url": "http://example.com/"}`,
			calls:      3,
			err:        rateLimited(""),
			wantStatus: http.StatusTooManyRequests,
			wantCode:   CodeProviderUnavailable,
		},
		{
			name:       "model failure",
			body:       `{"url": "http://example.com/"}`,
			calls:      1,
			stream:     ai.NewStaticStream(nil, &http.ProtocolError{ErrorString: "stream broken"}),
			wantStatus: http.StatusBadGateway,
			wantCode:   CodeProviderError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			provider := aimock.NewMockStreamProvider(ctrl)
			if tt.calls > 0 {
				provider.EXPECT().StreamResponse(gomock.Any(), gomock.Any()).Return(tt.stream, tt.err).Times(tt.calls)
			}

			s := newTestServer(testSettings(), provider, nil, WithFetcher(pageFetcher(pages)))
			rec := doJSON(s, http.MethodPost, "/extract-url", tt.body)

			if rec.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d: %s", tt.wantStatus, rec.Code, rec.Body.String())
			}
			if code := decodeError(t, rec).Code; code != tt.wantCode {
				t.Errorf("expected code %s, got %s", tt.wantCode, code)
			}
		})
	}
}
