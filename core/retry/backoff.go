package retry

import (
	"math"
	"math/rand/v2"
	"time"
)

// MinBaseDelay is the smallest base delay a BackoffPolicy accepts.
const MinBaseDelay = 100 * time.Millisecond

// BackoffPolicy computes bounded, fully jittered exponential delays.
// Construct it with NewBackoffPolicy so the bounds invariant holds.
type BackoffPolicy struct {
	base  time.Duration
	max   time.Duration
	float func() float64 // uniform in [0, 1)
}

// NewBackoffPolicy returns a policy with base floored to MinBaseDelay and
// max floored to base.
func NewBackoffPolicy(base, max time.Duration) BackoffPolicy {
	if base < MinBaseDelay {
		base = MinBaseDelay
	}
	if max < base {
		max = base
	}
	return BackoffPolicy{base: base, max: max, float: rand.Float64}
}

// Base returns the configured base delay.
func (p BackoffPolicy) Base() time.Duration { return p.base }

// Max returns the configured delay cap.
func (p BackoffPolicy) Max() time.Duration { return p.max }

// Delay returns the wait before retrying after the given 0-based attempt.
//
// A provider hint is used as-is (no jitter). Without one, the delay is drawn
// uniformly from [0, base*2^attempt). Either way the result is clamped to
// [0, max].
func (p BackoffPolicy) Delay(attempt int, hint time.Duration, hasHint bool) time.Duration {
	if attempt < 0 {
		attempt = 0
	}

	var delay float64
	if hasHint {
		delay = float64(hint)
	} else {
		ceiling := float64(p.base) * math.Pow(2, float64(attempt))
		delay = p.random() * ceiling
	}

	if delay >= float64(p.max) {
		return p.max
	}
	if delay <= 0 {
		return 0
	}
	return time.Duration(delay)
}

func (p BackoffPolicy) random() float64 {
	if p.float == nil {
		return rand.Float64()
	}
	return p.float()
}
