// Package server is the gin HTTP surface of the prompt enhancer.
//
// Routes:
//
//	GET  /             service index
//	GET  /health       {"ok": true, "deployment": "<name>"}
//	POST /enhance      {"prompt"} streamed back as SSE events
//	POST /inspect      {"prompt"} section report
//	POST /extract-url  {"url"} page title and key points
//
// POST routes require X-Agent-Token when a service token is configured.
// Synchronous errors are JSON {"detail", "code"}; once an SSE stream has
// started, failures arrive as a turn/error event followed by [DONE].
package server
