package ai

import (
	"context"
)

// StreamProvider is the streaming completion capability the service is built
// on. Implementations open one physical streaming call per invocation.
//
// Errors that happen before the stream exists (auth, bad request, rate
// limiting, network) are returned directly. Errors that happen while the
// stream is being read are yielded through the stream's iterator.
//
//go:generate mockgen -destination=aimock/provider.go -package=aimock . StreamProvider
type StreamProvider interface {
	StreamResponse(ctx context.Context, request Request) (*ChunkStream, error)
}
