package client

import (
	"context"

	"github.com/leofalp/promptenhancer/providers/ai"
)

// StreamFunc opens one streaming call. It is the unit threaded through the
// middleware chain.
type StreamFunc func(ctx context.Context, request ai.Request) (*ai.ChunkStream, error)

// StreamMiddleware wraps a StreamFunc. It may act before the call, on a
// pre-stream error, or on the returned stream by wrapping its iterator.
type StreamMiddleware func(next StreamFunc) StreamFunc

// Chain returns a provider that runs every call through middlewares. The
// first middleware is the outermost wrapper: it runs first on the way in and
// sees the stream last on the way out. Nil entries are skipped.
//
//	provider := client.Chain(azureClient,
//	    middleware.NewTimeoutMiddleware(10*time.Minute),
//	    middleware.NewLoggingMiddleware(slog.Default(), middleware.LogLevelStandard),
//	)
func Chain(provider ai.StreamProvider, middlewares ...StreamMiddleware) ai.StreamProvider {
	var chain StreamFunc = provider.StreamResponse
	for i := len(middlewares) - 1; i >= 0; i-- {
		if middlewares[i] != nil {
			chain = middlewares[i](chain)
		}
	}
	return chainedProvider(chain)
}

// chainedProvider adapts a StreamFunc to ai.StreamProvider.
type chainedProvider StreamFunc

func (p chainedProvider) StreamResponse(ctx context.Context, request ai.Request) (*ai.ChunkStream, error) {
	return p(ctx, request)
}
