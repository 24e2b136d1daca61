// Package utils holds the low-level helpers shared by the provider client,
// the web fetcher and the HTTP server: an SSE reader ([SSEScanner]), typed
// non-2xx errors ([NewHTTPStatusError]), bounded GET ([DoGet]), lenient JSON
// decoding, rune-safe truncation and a latency timer.
package utils
