// Package resilience provides the fault-tolerance primitives used around the
// speech backends and the job queue.
//
//   - Retry: repeats a failed backend call with exponential backoff
//   - CircuitBreaker: stops calling a backend that keeps failing
//   - Bulkhead: bounds how many transcription jobs run at once
//   - RateLimiter: token bucket for upload submissions
//
// Typical composition for one backend call:
//
//	cb := resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig("whisper"))
//	resp, err := resilience.Retry(ctx, resilience.DefaultRetryConfig(), func() (*Response, error) {
//	    var out *Response
//	    err := cb.Execute(func() (err error) { out, err = backend.Call(ctx); return })
//	    return out, err
//	})
package resilience
