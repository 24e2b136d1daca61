package utils

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// ErrBodyTooLarge is returned by DoGet when the body exceeds the limit.
var ErrBodyTooLarge = errors.New("response body too large")

// DoGet performs a GET request and returns the response together with at
// most limit bytes of its body. The body is always closed. A body larger
// than limit yields ErrBodyTooLarge; a non-2xx status yields
// *HTTPStatusError.
func DoGet(ctx context.Context, client *http.Client, url string, limit int64, headers ...HeaderOption) (*http.Response, []byte, error) {
	httpClient := client
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("error creating request: %w", err)
	}
	for _, header := range headers {
		req.Header.Set(header.Key, header.Value)
	}

	response, err := httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("error sending request: %w", err)
	}
	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return response, nil, NewHTTPStatusError(response)
	}
	defer CloseWithLog(response.Body)

	if limit > 0 && response.ContentLength > limit {
		return response, nil, fmt.Errorf("%w: %d bytes", ErrBodyTooLarge, response.ContentLength)
	}

	reader := response.Body
	if limit > 0 {
		reader = io.NopCloser(io.LimitReader(response.Body, limit+1))
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return response, nil, fmt.Errorf("error reading response body: %w", err)
	}
	if limit > 0 && int64(len(body)) > limit {
		return response, nil, fmt.Errorf("%w: more than %d bytes", ErrBodyTooLarge, limit)
	}
	return response, body, nil
}
