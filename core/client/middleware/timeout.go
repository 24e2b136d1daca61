package middleware

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/leofalp/promptenhancer/core/client"
	"github.com/leofalp/promptenhancer/providers/ai"
)

// ErrIdleTimeout reports a streaming call that produced nothing for longer
// than its idle timeout. It matches context.DeadlineExceeded.
var ErrIdleTimeout = fmt.Errorf("provider stream idle: %w", context.DeadlineExceeded)

// NewTimeoutMiddleware cancels a streaming call that goes quiet for longer
// than timeout. The timer starts with the request and restarts after every
// chunk, so a stream may run indefinitely while chunks keep flowing. Time
// the caller spends handling a chunk is not counted. A timeout of zero or
// less disables it.
//
// The timer context is released once the stream ends, fails, or the caller
// stops iterating. A shorter deadline already on the caller's context wins.
func NewTimeoutMiddleware(timeout time.Duration) client.StreamMiddleware {
	return func(next client.StreamFunc) client.StreamFunc {
		if timeout <= 0 {
			return next
		}
		return func(ctx context.Context, request ai.Request) (*ai.ChunkStream, error) {
			ctx, cancel := context.WithCancelCause(ctx)
			timer := time.AfterFunc(timeout, func() { cancel(ErrIdleTimeout) })
			release := func() {
				timer.Stop()
				cancel(nil)
			}

			stream, err := next(ctx, request)
			if err != nil {
				release()
				return nil, idleError(ctx, err)
			}
			if stream == nil {
				release()
				return nil, nil
			}

			return ai.NewChunkStream(func(yield func(ai.Chunk, error) bool) {
				defer release()

				for chunk, err := range stream.Iter() {
					timer.Stop()
					if err != nil {
						yield(chunk, idleError(ctx, err))
						return
					}
					if !yield(chunk, nil) {
						return
					}
					timer.Reset(timeout)
				}
			}), nil
		}
	}
}

// idleError replaces err with ErrIdleTimeout when the idle timer cancelled
// ctx, so the failure does not read as the caller going away.
func idleError(ctx context.Context, err error) error {
	if errors.Is(context.Cause(ctx), ErrIdleTimeout) {
		return fmt.Errorf("%w (%v)", ErrIdleTimeout, err)
	}
	return err
}
