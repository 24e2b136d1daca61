package webfetch

import (
	"context"
	"errors"
	"iter"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/leofalp/promptenhancer/core/retry"
	"github.com/leofalp/promptenhancer/providers/ai"
)

type fakeRunner struct {
	fragments []string
	err       error
	requests  []ai.Request
}

func (r *fakeRunner) Run(_ context.Context, request ai.Request) iter.Seq2[ai.Chunk, error] {
	r.requests = append(r.requests, request)
	return ai.NewStaticStream(r.fragments, r.err).Iter()
}

func newArticleServer() *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(articleHTML))
	}))
}

// ========== Extract ==========

func TestExtract_Success(t *testing.T) {
	server := newArticleServer()
	defer server.Close()

	runner := &fakeRunner{fragments: []string{"• Faster scheduler\n", "• New storage engine\n"}}
	base := ai.Request{
		Model: "gpt-5-mini",
		Input: "ignored",
		Tools: []ai.HostedTool{{Type: "web_search"}},
	}
	extractor := NewExtractor(newTestFetcher(t, server), runner, base)

	output, err := extractor.Extract(context.Background(), Input{URL: "http://docs.example.com/release"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if output.Title != "Release notes" {
		t.Errorf("unexpected title %q", output.Title)
	}
	if output.Content != "• Faster scheduler\n• New storage engine" {
		t.Errorf("unexpected content %q", output.Content)
	}

	if len(runner.requests) != 1 {
		t.Fatalf("expected one model call, got %d", len(runner.requests))
	}
	request := runner.requests[0]
	if request.Model != "gpt-5-mini" {
		t.Errorf("expected model to be kept, got %q", request.Model)
	}
	if request.Instructions != ExtractorInstructions {
		t.Errorf("unexpected instructions %q", request.Instructions)
	}
	if !strings.HasPrefix(request.Input, "Extract the key points from this page:\n\n") {
		t.Errorf("unexpected input prefix: %q", request.Input)
	}
	if !strings.Contains(request.Input, "faster scheduler") {
		t.Errorf("expected page text in input")
	}
	if request.Tools != nil {
		t.Errorf("extraction should not use hosted tools, got %v", request.Tools)
	}
}

func TestExtract_ProviderUnavailablePropagates(t *testing.T) {
	server := newArticleServer()
	defer server.Close()

	unavailable := errors.Join(retry.ErrProviderUnavailable, errors.New("429"))
	extractor := NewExtractor(newTestFetcher(t, server), &fakeRunner{err: unavailable}, ai.Request{})

	_, err := extractor.Extract(context.Background(), Input{URL: "http://example.com/"})
	if !errors.Is(err, retry.ErrProviderUnavailable) {
		t.Fatalf("expected ErrProviderUnavailable, got %v", err)
	}
}

func TestExtract_FetchErrorSkipsModel(t *testing.T) {
	runner := &fakeRunner{}
	extractor := NewExtractor(NewFetcher(), runner, ai.Request{})

	_, err := extractor.Extract(context.Background(), Input{URL: "ftp://example.com/"})
	if !errors.Is(err, ErrURLNotAllowed) {
		t.Fatalf("expected ErrURLNotAllowed, got %v", err)
	}
	if len(runner.requests) != 0 {
		t.Errorf("model should not be called, got %d calls", len(runner.requests))
	}
}

// ========== Cache ==========

func TestExtract_CacheReusesResult(t *testing.T) {
	var fetches atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetches.Add(1)
		_, _ = w.Write([]byte(articleHTML))
	}))
	defer server.Close()

	runner := &fakeRunner{fragments: []string{"• Faster scheduler"}}
	extractor := NewExtractor(newTestFetcher(t, server), runner, ai.Request{},
		WithCache(NewCache(10, time.Minute)))

	first, err := extractor.Extract(context.Background(), Input{URL: "http://docs.example.com/release"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := extractor.Extract(context.Background(), Input{URL: "  http://docs.example.com/release "})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if first != second {
		t.Errorf("cached output differs: %+v vs %+v", first, second)
	}
	if fetches.Load() != 1 || len(runner.requests) != 1 {
		t.Errorf("expected one fetch and one model call, got %d and %d", fetches.Load(), len(runner.requests))
	}

	if _, err := extractor.Extract(context.Background(), Input{URL: "http://docs.example.com/other"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fetches.Load() != 2 {
		t.Errorf("a different URL must not hit the cache, got %d fetches", fetches.Load())
	}
}

func TestExtract_CacheSkipsFailures(t *testing.T) {
	server := newArticleServer()
	defer server.Close()

	runner := &fakeRunner{err: errors.New("boom")}
	extractor := NewExtractor(newTestFetcher(t, server), runner, ai.Request{},
		WithCache(NewCache(10, time.Minute)))

	for i := 0; i < 2; i++ {
		if _, err := extractor.Extract(context.Background(), Input{URL: "http://example.com/"}); err == nil {
			t.Fatalf("call %d: expected an error", i)
		}
	}
	if len(runner.requests) != 2 {
		t.Errorf("failures must not be cached, got %d model calls", len(runner.requests))
	}
}

func TestNewCache_Bounds(t *testing.T) {
	tests := []struct {
		name       string
		maxEntries int
		ttl        time.Duration
		wantNil    bool
	}{
		{name: "enabled", maxEntries: 200, ttl: 10 * time.Minute},
		{name: "no entries", maxEntries: 0, ttl: time.Minute, wantNil: true},
		{name: "no ttl", maxEntries: 10, ttl: 0, wantNil: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cache := NewCache(tt.maxEntries, tt.ttl)
			if (cache == nil) != tt.wantNil {
				t.Errorf("NewCache(%d, %v) nil = %v, want %v", tt.maxEntries, tt.ttl, cache == nil, tt.wantNil)
			}
		})
	}
}

func TestNewCache_EvictsOldest(t *testing.T) {
	cache := NewCache(2, time.Minute)
	cache.Add("a", Output{Title: "a"})
	cache.Add("b", Output{Title: "b"})
	cache.Add("c", Output{Title: "c"})

	if _, ok := cache.Get("a"); ok {
		t.Error("expected the oldest entry to be evicted")
	}
	if cache.Len() != 2 {
		t.Errorf("expected 2 entries, got %d", cache.Len())
	}
}

func TestNewExtractTool(t *testing.T) {
	server := newArticleServer()
	defer server.Close()

	extractor := NewExtractor(newTestFetcher(t, server), &fakeRunner{fragments: []string{"• point"}}, ai.Request{})
	extractTool := NewExtractTool(extractor)

	if extractTool.Name != "ExtractURL" {
		t.Errorf("unexpected name %q", extractTool.Name)
	}
	out, err := extractTool.Call(context.Background(), `{"url": "http://example.com/"}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, `"content":"• point"`) {
		t.Errorf("unexpected output %s", out)
	}
}
