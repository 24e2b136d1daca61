package retry

import (
	"math"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// maxChainLength bounds the causal-chain walk. Value-typed errors cannot be
// de-duplicated by identity, so the bound is what guarantees termination.
const maxChainLength = 64

// Decision is the outcome of classifying a failure. It is derived per
// failure and never stored.
type Decision struct {
	// RateLimited reports whether any error in the chain is a rate-limit condition.
	RateLimited bool

	// RetryAfter is the provider-suggested delay. Only meaningful when
	// HasRetryAfter is true.
	RetryAfter time.Duration

	// HasRetryAfter reports whether a usable Retry-After hint was found.
	HasRetryAfter bool
}

// The accessors below are how an error exposes provider metadata to the
// classifier. Provider error types implement whichever apply.
type (
	statusCarrier interface {
		HTTPStatus() int
	}

	codeCarrier interface {
		ErrorCode() string
	}

	headerCarrier interface {
		ResponseHeader() http.Header
	}

	responseCarrier interface {
		HTTPResponse() *http.Response
	}

	causer interface {
		Cause() error
	}
)

var rateLimitPhrases = []string{
	"too many requests",
	"rate limit",
	"rate-limit",
	"throttl",
	"status code: 429",
}

// Classify inspects err and its linked causes and reports whether it is a
// rate-limit failure, together with any Retry-After hint. It has no side
// effects and returns the same Decision for the same error.
func Classify(err error) Decision {
	return classifyAt(err, time.Now())
}

func classifyAt(err error, now time.Time) Decision {
	var decision Decision
	if err == nil {
		return decision
	}

	chain := walkChain(err)
	for _, candidate := range chain {
		if isRateLimit(candidate) {
			decision.RateLimited = true
			break
		}
	}
	decision.RetryAfter, decision.HasRetryAfter = retryAfterFromChain(chain, now)
	return decision
}

// IsRateLimit reports whether any error in err's chain is a rate-limit condition.
func IsRateLimit(err error) bool {
	return Classify(err).RateLimited
}

// walkChain returns err followed by every error reachable through Unwrap,
// joined errors and Cause, breadth-first and without repeats.
func walkChain(err error) []error {
	var chain []error
	seen := make(map[errorIdentity]struct{})
	queue := []error{err}

	for len(queue) > 0 && len(chain) < maxChainLength {
		current := queue[0]
		queue = queue[1:]
		if current == nil {
			continue
		}

		if id, ok := identityOf(current); ok {
			if _, visited := seen[id]; visited {
				continue
			}
			seen[id] = struct{}{}
		}
		chain = append(chain, current)

		switch wrapped := current.(type) {
		case interface{ Unwrap() error }:
			queue = append(queue, wrapped.Unwrap())
		case interface{ Unwrap() []error }:
			queue = append(queue, wrapped.Unwrap()...)
		}
		if c, ok := current.(causer); ok {
			queue = append(queue, c.Cause())
		}
	}

	return chain
}

type errorIdentity struct {
	typ reflect.Type
	ptr uintptr
}

// identityOf returns a pointer identity for reference-typed errors. Value
// errors have no stable identity and are reported as not comparable.
func identityOf(err error) (errorIdentity, bool) {
	value := reflect.ValueOf(err)
	switch value.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Chan, reflect.Func, reflect.UnsafePointer:
		return errorIdentity{typ: value.Type(), ptr: value.Pointer()}, true
	default:
		return errorIdentity{}, false
	}
}

func isRateLimit(err error) bool {
	if s, ok := err.(statusCarrier); ok && s.HTTPStatus() == http.StatusTooManyRequests {
		return true
	}
	if r, ok := err.(responseCarrier); ok {
		if resp := r.HTTPResponse(); resp != nil && resp.StatusCode == http.StatusTooManyRequests {
			return true
		}
	}

	if c, ok := err.(codeCarrier); ok {
		code := strings.ToLower(c.ErrorCode())
		if strings.Contains(code, "rate") && strings.Contains(code, "limit") {
			return true
		}
	}

	name := strings.ToLower(typeName(err))
	if strings.Contains(name, "ratelimit") || strings.Contains(name, "rate_limit") {
		return true
	}

	message := strings.ToLower(err.Error())
	for _, phrase := range rateLimitPhrases {
		if strings.Contains(message, phrase) {
			return true
		}
	}
	return false
}

func typeName(err error) string {
	t := reflect.TypeOf(err)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Name()
}

// retryAfterFromChain returns the first parseable Retry-After hint found on
// an error's own headers or on the headers of a response it carries.
func retryAfterFromChain(chain []error, now time.Time) (time.Duration, bool) {
	for _, candidate := range chain {
		var sources []http.Header
		if h, ok := candidate.(headerCarrier); ok {
			sources = append(sources, h.ResponseHeader())
		}
		if r, ok := candidate.(responseCarrier); ok {
			if resp := r.HTTPResponse(); resp != nil {
				sources = append(sources, resp.Header)
			}
		}

		for _, header := range sources {
			if delay, ok := ParseRetryAfter(headerValue(header, "Retry-After"), now); ok {
				return delay, true
			}
		}
	}
	return 0, false
}

// headerValue looks a key up case-insensitively, including in header maps
// that were built by hand rather than through Header.Set.
func headerValue(header http.Header, key string) string {
	if header == nil {
		return ""
	}
	if value := header.Get(key); value != "" {
		return value
	}
	for k, values := range header {
		if strings.EqualFold(k, key) && len(values) > 0 {
			return values[0]
		}
	}
	return ""
}

// ParseRetryAfter parses a Retry-After value as non-negative seconds
// (fractions allowed) or, failing that, as an HTTP-date relative to now.
// Empty, unparseable, negative and past values are reported as absent.
func ParseRetryAfter(value string, now time.Time) (time.Duration, bool) {
	raw := strings.TrimSpace(value)
	if raw == "" {
		return 0, false
	}

	if seconds, err := strconv.ParseFloat(raw, 64); err == nil {
		if seconds >= 0 && !math.IsNaN(seconds) {
			if nanos := seconds * float64(time.Second); nanos < math.MaxInt64 {
				return time.Duration(nanos), true
			}
			return time.Duration(math.MaxInt64), true
		}
	}

	if at, err := http.ParseTime(raw); err == nil {
		if delay := at.Sub(now); delay >= 0 {
			return delay, true
		}
	}

	return 0, false
}
