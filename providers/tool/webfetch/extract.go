package webfetch

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/leofalp/promptenhancer/providers/ai"
	"github.com/leofalp/promptenhancer/providers/tool"
)

// ExtractorInstructions is the fixed system instruction for key-point extraction.
const ExtractorInstructions = "You are a content extractor. Given raw text from a web page, extract the 5-10 most important and relevant points as concise bullet points. Focus on facts, data, and key claims. Omit navigation text, ads, and boilerplate. Return only the bullet points, one per line, prefixed with a bullet character (•)."

// Runner runs one logical completion call. *retry.Driver implements it.
type Runner interface {
	Run(ctx context.Context, request ai.Request) iter.Seq2[ai.Chunk, error]
}

// Output is the extraction result.
type Output struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Cache holds extraction results keyed by normalized URL. It is safe for
// concurrent use and shared across requests.
type Cache = expirable.LRU[string, Output]

// NewCache returns a Cache of at most maxEntries results, each kept for
// ttl. It returns nil, meaning no caching, when either bound is zero.
func NewCache(maxEntries int, ttl time.Duration) *Cache {
	if maxEntries <= 0 || ttl <= 0 {
		return nil
	}
	return expirable.NewLRU[string, Output](maxEntries, nil, ttl)
}

// Extractor fetches a page and asks the model for its key points.
type Extractor struct {
	fetcher *Fetcher
	runner  Runner
	request ai.Request
	cache   *Cache
}

// ExtractorOption configures an Extractor.
type ExtractorOption func(*Extractor)

// WithCache reuses successful results from cache. A nil cache disables it.
func WithCache(cache *Cache) ExtractorOption {
	return func(e *Extractor) {
		e.cache = cache
	}
}

// NewExtractor returns an Extractor. base supplies the model and run
// options; its Instructions and Input are replaced.
func NewExtractor(fetcher *Fetcher, runner Runner, base ai.Request, opts ...ExtractorOption) *Extractor {
	if fetcher == nil {
		fetcher = NewFetcher()
	}
	e := &Extractor{fetcher: fetcher, runner: runner, request: base}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// NewExtractTool wraps Extract as a tool.
func NewExtractTool(extractor *Extractor) *tool.Tool[Input, Output] {
	return tool.NewTool("ExtractURL", extractor.Extract,
		tool.WithDescription("Fetches a web page and returns its title and 5-10 key points as bullet lines."),
	)
}

// Extract fetches input.URL and returns the page title with the extracted
// key points. Model failures are returned unchanged, so callers can detect
// retry exhaustion with errors.Is.
func (e *Extractor) Extract(ctx context.Context, input Input) (Output, error) {
	key := e.cacheKey(input)
	if key != "" {
		if cached, ok := e.cache.Get(key); ok {
			slog.DebugContext(ctx, "extract cache hit", slog.String("url", key))
			return cached, nil
		}
	}

	page, err := e.fetcher.Fetch(ctx, input)
	if err != nil {
		return Output{}, err
	}

	request := e.request
	request.Instructions = ExtractorInstructions
	request.Input = "Extract the key points from this page:\n\n" + page.Markdown
	request.Tools = nil

	content, err := ai.Collect(e.runner.Run(ctx, request))
	if err != nil {
		return Output{}, fmt.Errorf("extract key points: %w", err)
	}
	output := Output{Title: page.Title, Content: strings.TrimSpace(content)}
	if key != "" {
		e.cache.Add(key, output)
	}
	return output, nil
}

// cacheKey returns the normalized URL, or "" when caching is off or the URL
// is invalid.
func (e *Extractor) cacheKey(input Input) string {
	if e.cache == nil {
		return ""
	}
	target, err := NormalizeURL(input.URL)
	if err != nil {
		return ""
	}
	return target.String()
}
