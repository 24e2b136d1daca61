package webfetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/leofalp/promptenhancer/internal/utils"
)

const (
	// DefaultTimeout is the overall request timeout.
	DefaultTimeout = 30 * time.Second
	// DefaultUserAgent is sent with every fetch.
	DefaultUserAgent = "Mozilla/5.0 (compatible; PromptEnhancer/1.0)"
	// MaxBodySize is the maximum response body size (10MB).
	MaxBodySize = 10 * 1024 * 1024
	// MaxContentRunes is where page content is cut before extraction.
	MaxContentRunes = 8000
	// MinContentRunes is the least readable content a page must have.
	MinContentRunes = 50
	// MaxTitleRunes caps the page title.
	MaxTitleRunes = 120

	dialTimeout           = 10 * time.Second
	tlsHandshakeTimeout   = 10 * time.Second
	responseHeaderTimeout = 10 * time.Second
	maxRedirects          = 10
)

var (
	// ErrInvalidURL reports a URL that cannot be parsed or has no host.
	ErrInvalidURL = errors.New("invalid URL")
	// ErrURLNotAllowed reports a URL that targets a private or internal address.
	ErrURLNotAllowed = errors.New("URL not allowed")
	// ErrFetchFailed reports an upstream failure (non-200, oversized body).
	ErrFetchFailed = errors.New("could not fetch URL")
	// ErrTooLittleContent reports a page without enough readable text.
	ErrTooLittleContent = errors.New("page had too little readable text content")
)

// Input is the page to fetch. Partial URLs ("example.com") get an https:// prefix.
type Input struct {
	URL string `json:"url" binding:"required"`
}

// Page is a fetched page reduced to its title and Markdown content.
type Page struct {
	URL      string `json:"url"` // final URL after redirects
	Title    string `json:"title"`
	Markdown string `json:"markdown"`
}

// Fetcher downloads pages. The default client refuses to connect to
// loopback, private, link-local and unspecified addresses.
type Fetcher struct {
	client    *http.Client
	userAgent string
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient replaces the guarded HTTP client. The hostname denylist
// still applies; the per-connection address check does not.
func WithHTTPClient(client *http.Client) Option {
	return func(f *Fetcher) {
		if client != nil {
			f.client = client
		}
	}
}

// WithUserAgent overrides DefaultUserAgent.
func WithUserAgent(userAgent string) Option {
	return func(f *Fetcher) {
		if userAgent != "" {
			f.userAgent = userAgent
		}
	}
}

// NewFetcher returns a Fetcher with a guarded client.
func NewFetcher(opts ...Option) *Fetcher {
	fetcher := &Fetcher{
		client:    newGuardedClient(),
		userAgent: DefaultUserAgent,
	}
	for _, opt := range opts {
		opt(fetcher)
	}
	return fetcher
}

func newGuardedClient() *http.Client {
	dialer := &net.Dialer{
		Timeout:   dialTimeout,
		KeepAlive: 30 * time.Second,
		Control:   guardDial,
	}
	return &http.Client{
		Timeout: DefaultTimeout,
		Transport: &http.Transport{
			Proxy:                 nil,
			DialContext:           dialer.DialContext,
			TLSHandshakeTimeout:   tlsHandshakeTimeout,
			ResponseHeaderTimeout: responseHeaderTimeout,
			MaxIdleConns:          100,
			MaxIdleConnsPerHost:   10,
			IdleConnTimeout:       90 * time.Second,
			ForceAttemptHTTP2:     true,
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("too many redirects (>%d)", maxRedirects)
			}
			return checkHost(req.URL.Hostname())
		},
	}
}

// Fetch downloads input.URL and returns its title and Markdown content,
// truncated to MaxContentRunes runes plus "…".
func (f *Fetcher) Fetch(ctx context.Context, input Input) (Page, error) {
	target, err := NormalizeURL(input.URL)
	if err != nil {
		return Page{}, err
	}
	if err := checkHost(target.Hostname()); err != nil {
		return Page{}, err
	}

	response, body, err := utils.DoGet(ctx, f.client, target.String(), MaxBodySize,
		utils.HeaderOption{Key: "User-Agent", Value: f.userAgent},
		utils.HeaderOption{Key: "Accept", Value: "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"},
	)
	if err != nil {
		var statusErr *utils.HTTPStatusError
		switch {
		case errors.Is(err, ErrURLNotAllowed):
			return Page{}, err
		case errors.As(err, &statusErr):
			return Page{}, fmt.Errorf("%w (status %d)", ErrFetchFailed, statusErr.StatusCode)
		case errors.Is(err, utils.ErrBodyTooLarge):
			return Page{}, fmt.Errorf("%w: %v", ErrFetchFailed, err)
		case ctx.Err() != nil:
			return Page{}, err
		default:
			return Page{}, fmt.Errorf("%w: %v", ErrFetchFailed, err)
		}
	}

	finalURL := target
	if response.Request != nil && response.Request.URL != nil {
		finalURL = response.Request.URL
	}

	markdown, err := htmltomarkdown.ConvertString(string(body))
	if err != nil {
		return Page{}, fmt.Errorf("failed to convert HTML to Markdown: %w", err)
	}
	markdown = strings.TrimSpace(markdown)
	if utf8.RuneCountInString(markdown) < MinContentRunes {
		return Page{}, ErrTooLittleContent
	}

	return Page{
		URL:      finalURL.String(),
		Title:    extractTitle(body, finalURL.Hostname()),
		Markdown: utils.TruncateRunes(markdown, MaxContentRunes, "…"),
	}, nil
}

// NormalizeURL trims raw, adds https:// when no scheme is given and accepts
// only http and https URLs with a host.
func NormalizeURL(raw string) (*url.URL, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, fmt.Errorf("%w: URL cannot be empty", ErrInvalidURL)
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "https://" + trimmed
	}

	parsed, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("%w: scheme %q", ErrURLNotAllowed, parsed.Scheme)
	}
	if parsed.Hostname() == "" {
		return nil, fmt.Errorf("%w: missing host", ErrInvalidURL)
	}
	return parsed, nil
}

// extractTitle returns the collapsed text of the first <title>, capped at
// MaxTitleRunes, or fallback when there is none.
func extractTitle(body []byte, fallback string) string {
	tokenizer := html.NewTokenizer(bytes.NewReader(body))
	inTitle := false
	var title strings.Builder

	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return titleOrFallback(title.String(), fallback)
		case html.StartTagToken:
			name, _ := tokenizer.TagName()
			if atom.Lookup(name) == atom.Title {
				inTitle = true
			}
		case html.EndTagToken:
			name, _ := tokenizer.TagName()
			if inTitle && atom.Lookup(name) == atom.Title {
				return titleOrFallback(title.String(), fallback)
			}
		case html.TextToken:
			if inTitle {
				title.Write(tokenizer.Text())
			}
		}
	}
}

func titleOrFallback(title, fallback string) string {
	title = utils.CollapseWhitespace(title)
	if title == "" {
		if fallback == "" {
			return "Extracted content"
		}
		return fallback
	}
	return utils.TruncateRunes(title, MaxTitleRunes, "")
}
