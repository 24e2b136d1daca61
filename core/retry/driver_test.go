package retry

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"go.uber.org/mock/gomock"

	"github.com/leofalp/promptenhancer/providers/ai"
	"github.com/leofalp/promptenhancer/providers/ai/aimock"
)

// ========== Helpers ==========

// sleepRecorder records requested delays without waiting.
type sleepRecorder struct {
	delays []time.Duration
}

func (s *sleepRecorder) sleep(ctx context.Context, delay time.Duration) error {
	s.delays = append(s.delays, delay)
	return ctx.Err()
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func rateLimited(retryAfter string) error {
	header := http.Header{}
	if retryAfter != "" {
		header.Set("Retry-After", retryAfter)
	}
	return &statusError{status: http.StatusTooManyRequests, header: header}
}

func newTestDriver(provider ai.StreamProvider, maxRetries int, recorder *sleepRecorder, opts ...Option) *Driver {
	base := []Option{
		WithLogger(quietLogger()),
		WithSleep(recorder.sleep),
		WithRandom(fixedRandom(0.5)),
	}
	return NewDriver(provider, Config{
		MaxRetries: maxRetries,
		BaseDelay:  time.Second,
		MaxDelay:   20 * time.Second,
	}, append(base, opts...)...)
}

type runResult struct {
	texts []string
	errs  []error
}

func drain(ctx context.Context, driver *Driver) runResult {
	var result runResult
	for chunk, err := range driver.Run(ctx, ai.Request{Input: "hi"}) {
		if err != nil {
			result.errs = append(result.errs, err)
			continue
		}
		result.texts = append(result.texts, chunk.Text)
	}
	return result
}

// ========== Run ==========

// TestRun_SuccessFirstAttempt verifies chunks pass through without retry.
func TestRun_SuccessFirstAttempt(t *testing.T) {
	ctrl := gomock.NewController(t)
	provider := aimock.NewMockStreamProvider(ctrl)
	provider.EXPECT().StreamResponse(gomock.Any(), gomock.Any()).
		Return(ai.NewStaticStream([]string{"Role", ": x\n"}, nil), nil).
		Times(1)

	recorder := &sleepRecorder{}
	result := drain(context.Background(), newTestDriver(provider, 2, recorder))

	if len(result.errs) != 0 {
		t.Fatalf("unexpected errors: %v", result.errs)
	}
	if len(result.texts) != 2 || result.texts[0] != "Role" || result.texts[1] != ": x\n" {
		t.Errorf("unexpected chunks: %q", result.texts)
	}
	if len(recorder.delays) != 0 {
		t.Errorf("expected no sleeps, got %v", recorder.delays)
	}
}

// TestRun_RetriesWithHintThenSucceeds covers a 429 with Retry-After 3 before
// any output followed by a successful attempt.
func TestRun_RetriesWithHintThenSucceeds(t *testing.T) {
	ctrl := gomock.NewController(t)
	provider := aimock.NewMockStreamProvider(ctrl)
	gomock.InOrder(
		provider.EXPECT().StreamResponse(gomock.Any(), gomock.Any()).
			Return(ai.NewStaticStream(nil, rateLimited("3")), nil),
		provider.EXPECT().StreamResponse(gomock.Any(), gomock.Any()).
			Return(ai.NewStaticStream([]string{"ok"}, nil), nil),
	)

	var events []RetryEvent
	recorder := &sleepRecorder{}
	driver := newTestDriver(provider, 2, recorder, WithRetryHook(func(_ context.Context, event RetryEvent) {
		events = append(events, event)
	}))

	result := drain(context.Background(), driver)

	if len(result.errs) != 0 {
		t.Fatalf("unexpected errors: %v", result.errs)
	}
	if len(result.texts) != 1 || result.texts[0] != "ok" {
		t.Errorf("unexpected chunks: %q", result.texts)
	}
	if len(recorder.delays) != 1 || recorder.delays[0] != 3*time.Second {
		t.Errorf("expected one 3s sleep, got %v", recorder.delays)
	}
	if len(events) != 1 || !events[0].Decision.HasRetryAfter || events[0].Attempt != 0 {
		t.Errorf("unexpected retry events: %+v", events)
	}
}

// TestRun_PreStreamErrorRetried verifies that an error returned before the
// stream exists counts as a failure before the first chunk.
func TestRun_PreStreamErrorRetried(t *testing.T) {
	ctrl := gomock.NewController(t)
	provider := aimock.NewMockStreamProvider(ctrl)
	gomock.InOrder(
		provider.EXPECT().StreamResponse(gomock.Any(), gomock.Any()).Return(nil, rateLimited("")),
		provider.EXPECT().StreamResponse(gomock.Any(), gomock.Any()).
			Return(ai.NewStaticStream([]string{"done"}, nil), nil),
	)

	recorder := &sleepRecorder{}
	result := drain(context.Background(), newTestDriver(provider, 2, recorder))

	if len(result.errs) != 0 {
		t.Fatalf("unexpected errors: %v", result.errs)
	}
	// fixed random 0.5 * base 1s * 2^0
	if len(recorder.delays) != 1 || recorder.delays[0] != 500*time.Millisecond {
		t.Errorf("expected one 500ms sleep, got %v", recorder.delays)
	}
}

// TestRun_NoRetryAfterFirstChunk verifies that a rate-limit failure after
// output has been yielded is propagated unchanged and never retried.
func TestRun_NoRetryAfterFirstChunk(t *testing.T) {
	ctrl := gomock.NewController(t)
	provider := aimock.NewMockStreamProvider(ctrl)
	original := rateLimited("1")
	provider.EXPECT().StreamResponse(gomock.Any(), gomock.Any()).
		Return(ai.NewStaticStream([]string{"Role"}, original), nil).
		Times(1)

	recorder := &sleepRecorder{}
	result := drain(context.Background(), newTestDriver(provider, 2, recorder))

	if len(result.texts) != 1 || result.texts[0] != "Role" {
		t.Errorf("expected one chunk before the error, got %q", result.texts)
	}
	if len(result.errs) != 1 || !errors.Is(result.errs[0], original) {
		t.Fatalf("expected the original error, got %v", result.errs)
	}
	if errors.Is(result.errs[0], ErrProviderUnavailable) {
		t.Error("committed failure must not be reported as provider unavailable")
	}
	if len(recorder.delays) != 0 {
		t.Errorf("expected no sleeps, got %v", recorder.delays)
	}
}

// TestRun_Exhausted verifies that max_retries=2 means three attempts and two
// sleeps, ending in ErrProviderUnavailable.
func TestRun_Exhausted(t *testing.T) {
	ctrl := gomock.NewController(t)
	provider := aimock.NewMockStreamProvider(ctrl)
	last := rateLimited("")
	provider.EXPECT().StreamResponse(gomock.Any(), gomock.Any()).
		Return(ai.NewStaticStream(nil, last), nil).
		Times(3)

	recorder := &sleepRecorder{}
	result := drain(context.Background(), newTestDriver(provider, 2, recorder))

	if len(result.texts) != 0 {
		t.Errorf("expected no chunks, got %q", result.texts)
	}
	if len(result.errs) != 1 {
		t.Fatalf("expected exactly one error, got %v", result.errs)
	}
	if !errors.Is(result.errs[0], ErrProviderUnavailable) {
		t.Errorf("expected ErrProviderUnavailable, got %v", result.errs[0])
	}
	if !errors.Is(result.errs[0], last) {
		t.Errorf("expected last attempt error in chain, got %v", result.errs[0])
	}
	want := []time.Duration{500 * time.Millisecond, time.Second}
	if len(recorder.delays) != len(want) {
		t.Fatalf("expected %d sleeps, got %v", len(want), recorder.delays)
	}
	for i := range want {
		if recorder.delays[i] != want[i] {
			t.Errorf("sleep %d = %v, want %v", i, recorder.delays[i], want[i])
		}
	}
}

// TestRun_ZeroRetries verifies a single attempt when retries are disabled.
func TestRun_ZeroRetries(t *testing.T) {
	ctrl := gomock.NewController(t)
	provider := aimock.NewMockStreamProvider(ctrl)
	provider.EXPECT().StreamResponse(gomock.Any(), gomock.Any()).Return(nil, rateLimited("")).Times(1)

	recorder := &sleepRecorder{}
	result := drain(context.Background(), newTestDriver(provider, 0, recorder))

	if len(result.errs) != 1 || !errors.Is(result.errs[0], ErrProviderUnavailable) {
		t.Fatalf("expected ErrProviderUnavailable, got %v", result.errs)
	}
	if len(recorder.delays) != 0 {
		t.Errorf("expected no sleeps, got %v", recorder.delays)
	}
}

// TestRun_NonRateLimitPropagates verifies other failures are never retried.
func TestRun_NonRateLimitPropagates(t *testing.T) {
	ctrl := gomock.NewController(t)
	provider := aimock.NewMockStreamProvider(ctrl)
	original := &statusError{status: http.StatusUnauthorized}
	provider.EXPECT().StreamResponse(gomock.Any(), gomock.Any()).Return(nil, original).Times(1)

	recorder := &sleepRecorder{}
	result := drain(context.Background(), newTestDriver(provider, 2, recorder))

	if len(result.errs) != 1 || !errors.Is(result.errs[0], original) {
		t.Fatalf("expected original error, got %v", result.errs)
	}
	if errors.Is(result.errs[0], ErrProviderUnavailable) {
		t.Error("non rate-limit failure must not be reported as provider unavailable")
	}
}

// TestRun_CancelledDuringSleep verifies that cancellation stops the retry loop.
func TestRun_CancelledDuringSleep(t *testing.T) {
	ctrl := gomock.NewController(t)
	provider := aimock.NewMockStreamProvider(ctrl)
	provider.EXPECT().StreamResponse(gomock.Any(), gomock.Any()).Return(nil, rateLimited("")).Times(1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	driver := NewDriver(provider, Config{MaxRetries: 2, BaseDelay: time.Second, MaxDelay: 20 * time.Second},
		WithLogger(quietLogger()),
		WithSleep(func(ctx context.Context, delay time.Duration) error {
			cancel()
			return sleepContext(ctx, delay)
		}),
	)

	result := drain(ctx, driver)
	if len(result.errs) != 1 || !errors.Is(result.errs[0], context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", result.errs)
	}
}

// TestRun_EarlyBreakStopsProvider verifies that breaking out of the loop
// stops iteration without further attempts.
func TestRun_EarlyBreakStopsProvider(t *testing.T) {
	ctrl := gomock.NewController(t)
	provider := aimock.NewMockStreamProvider(ctrl)
	provider.EXPECT().StreamResponse(gomock.Any(), gomock.Any()).
		Return(ai.NewStaticStream([]string{"a", "b", "c"}, rateLimited("")), nil).
		Times(1)

	recorder := &sleepRecorder{}
	count := 0
	for _, err := range newTestDriver(provider, 2, recorder).Run(context.Background(), ai.Request{}) {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		count++
		if count == 2 {
			break
		}
	}
	if count != 2 {
		t.Errorf("expected 2 chunks, got %d", count)
	}
}

// TestRun_LazyUntilRanged verifies that no provider call happens before iteration.
func TestRun_LazyUntilRanged(t *testing.T) {
	ctrl := gomock.NewController(t)
	provider := aimock.NewMockStreamProvider(ctrl)
	// No EXPECT: any call fails the test.

	_ = newTestDriver(provider, 2, &sleepRecorder{}).Run(context.Background(), ai.Request{})
}

// ========== sleepContext ==========

func TestSleepContext(t *testing.T) {
	if err := sleepContext(context.Background(), time.Millisecond); err != nil {
		t.Errorf("expected nil, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	if err := sleepContext(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if time.Since(start) > time.Second {
		t.Error("sleepContext did not return promptly on cancellation")
	}
}
