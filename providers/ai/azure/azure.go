package azure

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"

	"github.com/leofalp/promptenhancer/internal/utils"
	"github.com/leofalp/promptenhancer/providers/ai"
)

const (
	responsesEndpoint = "responses"

	moduleName    = "promptenhancer/azure"
	moduleVersion = "v1.0.0"
)

// ErrConfiguration marks a client that cannot be built from its settings.
var ErrConfiguration = errors.New("azure openai configuration error")

// Config holds the raw connection settings. They are validated by New.
type Config struct {
	Endpoint           string // https://<resource>.openai.azure.com
	BaseURL            string // overrides Endpoint when set
	APIVersion         string
	Deployment         string
	APIKey             string
	ADToken            string
	DefaultHeadersJSON string // JSON object of extra headers

	HTTPClient *http.Client
	// Credential is used when neither APIKey nor ADToken is set. Nil means
	// the Azure CLI credential.
	Credential azcore.TokenCredential
}

// Client streams completions from the Azure OpenAI Responses API.
type Client struct {
	baseURL    string
	apiVersion string
	deployment string
	pipeline   runtime.Pipeline
}

// New validates cfg and returns a Client. Errors wrap ErrConfiguration.
func New(cfg Config) (*Client, error) {
	baseURL, err := ResolveBaseURL(cfg.BaseURL, cfg.Endpoint)
	if err != nil {
		return nil, err
	}
	headers, err := ParseDefaultHeaders(cfg.DefaultHeadersJSON)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.Deployment) == "" {
		return nil, fmt.Errorf("%w: deployment name is empty", ErrConfiguration)
	}

	// Local gateways and test servers speak plain HTTP.
	allowHTTP := strings.HasPrefix(strings.ToLower(baseURL), "http://")
	auth, err := newAuthPolicy(cfg, allowHTTP)
	if err != nil {
		return nil, err
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	pipeline := runtime.NewPipeline(moduleName, moduleVersion,
		runtime.PipelineOptions{
			PerCall:  []policy.Policy{defaultHeadersPolicy{headers: headers}},
			PerRetry: []policy.Policy{auth},
		},
		&policy.ClientOptions{
			Transport: httpClient,
			// Retries belong to the retry driver, which knows whether
			// output has already been committed.
			Retry: policy.RetryOptions{MaxRetries: -1},
		},
	)

	return &Client{
		baseURL:    baseURL,
		apiVersion: strings.TrimSpace(cfg.APIVersion),
		deployment: strings.TrimSpace(cfg.Deployment),
		pipeline:   pipeline,
	}, nil
}

// ResolveBaseURL returns the Responses API base URL, ending in "/". An
// explicit baseURL wins; otherwise "/openai/v1/" is appended to endpoint
// unless it already ends that way.
func ResolveBaseURL(baseURL, endpoint string) (string, error) {
	if explicit := strings.TrimSpace(baseURL); explicit != "" {
		return ensureTrailingSlash(explicit), nil
	}

	trimmed := strings.TrimRight(strings.TrimSpace(endpoint), "/")
	if trimmed == "" {
		return "", fmt.Errorf("%w: set AZURE_OPENAI_ENDPOINT or AZURE_OPENAI_BASE_URL", ErrConfiguration)
	}
	if parsed, err := url.Parse(trimmed); err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return "", fmt.Errorf("%w: AZURE_OPENAI_ENDPOINT is not an absolute URL: %q", ErrConfiguration, endpoint)
	}
	if strings.HasSuffix(trimmed, "/openai/v1") {
		return trimmed + "/", nil
	}
	return trimmed + "/openai/v1/", nil
}

func ensureTrailingSlash(s string) string {
	if strings.HasSuffix(s, "/") {
		return s
	}
	return s + "/"
}

// ParseDefaultHeaders decodes a JSON object of header names to values. Empty
// input yields no headers. Headers are returned sorted by name.
func ParseDefaultHeaders(raw string) ([]utils.HeaderOption, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	var decoded map[string]any
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return nil, fmt.Errorf("%w: AZURE_OPENAI_DEFAULT_HEADERS_JSON must be a JSON object: %v", ErrConfiguration, err)
	}

	headers := make([]utils.HeaderOption, 0, len(decoded))
	for key, value := range decoded {
		text, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("%w: AZURE_OPENAI_DEFAULT_HEADERS_JSON value for %q must be a string", ErrConfiguration, key)
		}
		headers = append(headers, utils.HeaderOption{Key: key, Value: text})
	}
	sort.Slice(headers, func(i, j int) bool { return headers[i].Key < headers[j].Key })
	return headers, nil
}

// StreamResponse opens one streaming Responses call. Failures before the
// stream starts are returned directly: *APIError for non-2xx answers.
//
// When the request carries Functions, the calls the model makes are run
// and their results sent back in follow-up calls on the same stream. Only
// text deltas and the final completion are yielded, so function rounds do
// not count as output.
func (c *Client) StreamResponse(ctx context.Context, request ai.Request) (*ai.ChunkStream, error) {
	body := requestFromGeneric(request, c.deployment)

	slog.DebugContext(ctx, "azure openai stream request",
		slog.String("model", body.Model),
		slog.Int("input_chars", len(request.Input)),
		slog.Int("tools", len(body.Tools)),
	)

	httpResponse, err := c.post(ctx, body)
	if err != nil {
		return nil, err
	}
	return ai.NewChunkStream(c.streamRounds(ctx, request.Functions, body, httpResponse)), nil
}

// post sends body and returns the open event stream.
func (c *Client) post(ctx context.Context, body responsesRequest) (*http.Response, error) {
	req, err := runtime.NewRequest(ctx, http.MethodPost, c.endpointURL())
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if err := runtime.MarshalAsJSON(req, body); err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	req.Raw().Header.Set("Accept", "text/event-stream")
	runtime.SkipBodyDownload(req)

	httpResponse, err := c.pipeline.Do(req)
	if err != nil {
		return nil, fmt.Errorf("azure openai request: %w", err)
	}
	if httpResponse.StatusCode < 200 || httpResponse.StatusCode >= 300 {
		return nil, newAPIError(utils.NewHTTPStatusError(httpResponse))
	}
	return httpResponse, nil
}

func (c *Client) endpointURL() string {
	endpoint := c.baseURL + responsesEndpoint
	if c.apiVersion == "" {
		return endpoint
	}
	return endpoint + "?api-version=" + url.QueryEscape(c.apiVersion)
}
