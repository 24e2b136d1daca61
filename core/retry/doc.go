// Package retry drives one logical streaming completion across one or more
// physical attempts.
//
// # Components
//
//   - [Classify]: walks an error's causal chain and decides whether it is a
//     rate-limit condition, extracting any Retry-After hint.
//   - [BackoffPolicy]: bounded exponential backoff with full jitter, where an
//     explicit provider hint wins over the jittered value.
//   - [Driver]: runs the attempts and yields chunks to the caller. Retries
//     happen only while nothing has been yielded yet; once the first chunk
//     reaches the caller the call is committed and any later failure is
//     returned as-is.
//
// # Usage
//
//	driver := retry.NewDriver(provider, retry.Config{
//	    MaxRetries: 2,
//	    BaseDelay:  time.Second,
//	    MaxDelay:   20 * time.Second,
//	})
//	for chunk, err := range driver.Run(ctx, request) {
//	    if err != nil {
//	        // terminal: not retryable, committed, or retries exhausted
//	    }
//	    fmt.Print(chunk.Text)
//	}
package retry
