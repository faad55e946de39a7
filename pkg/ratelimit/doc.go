// Package ratelimit paces the archiver's outbound requests.
//
// Two limiters implement the Limiter interface:
//
// TokenBucket allows a burst of requests per refill period. The comment phase
// uses a single-token bucket to space out permalink navigations.
//
// SlidingWindow allows a fixed number of requests in any moving window. Image
// downloads use PerMinute with the configured requests-per-minute budget.
//
// Wait honours context cancellation so an interrupted run stops promptly:
//
//	limiter := ratelimit.PerMinute(120)
//	if err := limiter.Wait(ctx); err != nil {
//	    return err
//	}
package ratelimit
