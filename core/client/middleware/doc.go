// Package middleware provides stream middlewares for [client.Chain].
//
//   - [NewTimeoutMiddleware] cancels a streaming call that stops producing chunks.
//   - [NewLoggingMiddleware] logs each call with slog at three verbosity levels.
//
// Middlewares sit between the retry driver and the provider, so they see
// every physical attempt:
//
//	retry.Driver → Timeout → Logging → azure.Client
//
// Retrying is not a middleware: it needs to know whether output has already
// reached the caller, which only the driver does.
package middleware
