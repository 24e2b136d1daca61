// Package webfetch fetches web pages for the extract-url endpoint and reduces
// them to a title plus key points.
//
// Fetcher converts HTML to Markdown with html-to-markdown and reads titles
// with golang.org/x/net/html. Its default HTTP client refuses internal
// targets: hostnames such as localhost or *.internal are rejected up front
// and every dialed address is checked, so redirects and DNS rebinding are
// covered too. Extractor sends the page through a Runner (normally the
// rate-limit aware retry driver) with a fixed extraction instruction.
package webfetch
