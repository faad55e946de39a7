package ratelimit

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Limiter paces outbound work: image downloads and permalink navigations
type Limiter interface {
	// Allow takes a slot if one is free right now
	Allow() bool
	// Wait blocks until a slot is free or ctx is done
	Wait(ctx context.Context) error
	Reset()
}

// minPoll keeps Wait from spinning when the computed delay is zero
const minPoll = 10 * time.Millisecond

// TokenBucket hands out capacity tokens and refills all of them once period
// has passed since the last refill
type TokenBucket struct {
	mu       sync.Mutex
	capacity int
	tokens   int
	period   time.Duration
	filledAt time.Time
}

func NewTokenBucket(capacity int, period time.Duration) *TokenBucket {
	return &TokenBucket{capacity: capacity, tokens: capacity, period: period, filledAt: time.Now()}
}

func (tb *TokenBucket) Allow() bool {
	ok, _ := tb.take()
	return ok
}

// take claims a token, or reports how long until the next refill
func (tb *TokenBucket) take() (bool, time.Duration) {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	if since := time.Since(tb.filledAt); since >= tb.period {
		tb.tokens, tb.filledAt = tb.capacity, time.Now()
	}
	if tb.tokens == 0 {
		return false, tb.period - time.Since(tb.filledAt)
	}
	tb.tokens--
	return true, 0
}

func (tb *TokenBucket) Wait(ctx context.Context) error {
	for {
		ok, delay := tb.take()
		if ok {
			return nil
		}
		if err := pause(ctx, delay); err != nil {
			return err
		}
	}
}

func (tb *TokenBucket) Reset() {
	tb.mu.Lock()
	tb.tokens, tb.filledAt = tb.capacity, time.Now()
	tb.mu.Unlock()
}

// SlidingWindow admits at most limit requests in any window-long interval.
// A limit of zero or less admits everything.
type SlidingWindow struct {
	mu       sync.Mutex
	limit    int
	window   time.Duration
	requests []time.Time
}

func NewSlidingWindow(limit int, window time.Duration) *SlidingWindow {
	return &SlidingWindow{limit: limit, window: window}
}

// PerMinute limits to rpm requests per minute. The download phase uses it
// with the configured request rate.
func PerMinute(rpm int) *SlidingWindow {
	return NewSlidingWindow(rpm, time.Minute)
}

func (sw *SlidingWindow) Allow() bool {
	ok, _ := sw.take()
	return ok
}

// take records a request if the window has room, otherwise it reports when
// the oldest request leaves the window
func (sw *SlidingWindow) take() (bool, time.Duration) {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	if sw.limit <= 0 {
		return true, 0
	}
	now := time.Now()
	cutoff := now.Add(-sw.window)
	expired := sort.Search(len(sw.requests), func(i int) bool {
		return !sw.requests[i].Before(cutoff)
	})
	sw.requests = append(sw.requests[:0], sw.requests[expired:]...)

	if len(sw.requests) >= sw.limit {
		return false, sw.requests[0].Sub(cutoff)
	}
	sw.requests = append(sw.requests, now)
	return true, 0
}

func (sw *SlidingWindow) Wait(ctx context.Context) error {
	for {
		ok, delay := sw.take()
		if ok {
			return nil
		}
		if err := pause(ctx, delay); err != nil {
			return err
		}
	}
}

func (sw *SlidingWindow) Reset() {
	sw.mu.Lock()
	sw.requests = sw.requests[:0]
	sw.mu.Unlock()
}

func pause(ctx context.Context, d time.Duration) error {
	if d < minPoll {
		d = minPoll
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
