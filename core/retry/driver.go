package retry

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"time"

	"github.com/leofalp/promptenhancer/providers/ai"
)

// Config holds the retry bounds of a Driver. It is read once, when the
// driver is built.
type Config struct {
	// MaxRetries is the number of retries after the first attempt. A value
	// of 2 means the provider is called at most 3 times. Negative is treated as 0.
	MaxRetries int

	// BaseDelay is the exponential backoff base. Floored to MinBaseDelay.
	BaseDelay time.Duration

	// MaxDelay caps every computed delay, hints included. Floored to BaseDelay.
	MaxDelay time.Duration
}

// RetryEvent describes one scheduled retry. It is passed to the hook
// registered with WithRetryHook before the driver sleeps.
type RetryEvent struct {
	Attempt  int           // 0-based index of the attempt that failed
	Delay    time.Duration // wait before the next attempt
	Decision Decision
	Err      error
}

// Option configures a Driver.
type Option func(*Driver)

// WithLogger sets the logger used for retry diagnostics. Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(d *Driver) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithRetryHook registers a function called for every scheduled retry.
func WithRetryHook(hook func(context.Context, RetryEvent)) Option {
	return func(d *Driver) {
		d.onRetry = hook
	}
}

// WithSleep replaces the context-aware sleep between attempts.
func WithSleep(sleep func(context.Context, time.Duration) error) Option {
	return func(d *Driver) {
		if sleep != nil {
			d.sleep = sleep
		}
	}
}

// WithRandom replaces the jitter source. The function must return values in [0, 1).
func WithRandom(float func() float64) Option {
	return func(d *Driver) {
		if float != nil {
			d.policy.float = float
		}
	}
}

// Driver runs a single logical completion call against a StreamProvider,
// retrying rate-limited attempts until the first chunk is yielded. Attempts
// are strictly sequential. A Driver holds no per-call state and may be
// shared between goroutines.
type Driver struct {
	provider   ai.StreamProvider
	policy     BackoffPolicy
	maxRetries int
	logger     *slog.Logger
	onRetry    func(context.Context, RetryEvent)
	sleep      func(context.Context, time.Duration) error
}

// NewDriver builds a Driver for provider with the given bounds.
func NewDriver(provider ai.StreamProvider, config Config, opts ...Option) *Driver {
	maxRetries := config.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}

	driver := &Driver{
		provider:   provider,
		policy:     NewBackoffPolicy(config.BaseDelay, config.MaxDelay),
		maxRetries: maxRetries,
		logger:     slog.Default(),
		sleep:      sleepContext,
	}
	for _, opt := range opts {
		opt(driver)
	}
	return driver
}

// Run returns a lazy sequence of chunks for request. Nothing happens until
// the sequence is ranged over. The sequence ends after the provider's stream
// ends, or after a single non-nil error; breaking out of the loop stops all
// work, including a pending backoff sleep.
func (d *Driver) Run(ctx context.Context, request ai.Request) iter.Seq2[ai.Chunk, error] {
	return func(yield func(ai.Chunk, error) bool) {
		for attempt := 0; ; attempt++ {
			result := d.runAttempt(ctx, request, yield)
			if result.stopped || result.err == nil {
				return
			}

			// Committed: the caller has seen output, so this failure is final.
			if result.committed {
				yield(ai.Chunk{}, result.err)
				return
			}

			decision := Classify(result.err)
			if !decision.RateLimited {
				yield(ai.Chunk{}, result.err)
				return
			}
			if attempt >= d.maxRetries {
				d.logger.WarnContext(ctx, "provider rate limit retries exhausted",
					slog.Int("attempts", attempt+1),
					slog.String("error", result.err.Error()),
				)
				yield(ai.Chunk{}, fmt.Errorf("%w after %d retries: %w", ErrProviderUnavailable, attempt, result.err))
				return
			}

			delay := d.policy.Delay(attempt, decision.RetryAfter, decision.HasRetryAfter)
			d.logger.WarnContext(ctx, "provider rate limited; retrying",
				slog.Int("attempt", attempt+1),
				slog.Int("max_retries", d.maxRetries),
				slog.Duration("delay", delay),
				slog.Bool("retry_after_hint", decision.HasRetryAfter),
			)
			if d.onRetry != nil {
				d.onRetry(ctx, RetryEvent{Attempt: attempt, Delay: delay, Decision: decision, Err: result.err})
			}

			if err := d.sleep(ctx, delay); err != nil {
				yield(ai.Chunk{}, err)
				return
			}
		}
	}
}

type attemptResult struct {
	committed bool // at least one chunk was yielded in this attempt
	stopped   bool // the caller stopped iterating
	err       error
}

func (d *Driver) runAttempt(ctx context.Context, request ai.Request, yield func(ai.Chunk, error) bool) attemptResult {
	if err := ctx.Err(); err != nil {
		return attemptResult{err: err}
	}

	stream, err := d.provider.StreamResponse(ctx, request)
	if err != nil {
		return attemptResult{err: err}
	}
	if stream == nil {
		return attemptResult{}
	}

	var result attemptResult
	for chunk, err := range stream.Iter() {
		if err != nil {
			result.err = err
			return result
		}
		result.committed = true
		if !yield(chunk, nil) {
			result.stopped = true
			return result
		}
	}
	return result
}

func sleepContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
