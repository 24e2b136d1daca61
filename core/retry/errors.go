package retry

import "errors"

// ErrProviderUnavailable is returned by the driver when a rate-limited call
// has used up every retry. It wraps the last provider error, so both
// errors.Is(err, ErrProviderUnavailable) and inspection of the original
// failure keep working.
//
//	if errors.Is(err, retry.ErrProviderUnavailable) {
//	    // retries exhausted
//	}
var ErrProviderUnavailable = errors.New("provider unavailable: rate-limit retries exhausted")
