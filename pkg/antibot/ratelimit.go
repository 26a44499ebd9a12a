// Package antibot holds the request-shaping pieces that keep the crawler
// from looking like a crawler: a paced rate limiter and a rotating header
// profile generator.
package antibot

import (
	"math/rand"
	"sync"
	"time"
)

// RateLimiter paces sequential fetches to a target requests-per-minute with
// a ±20% jitter on the enforced gap. It is meant for single-flight crawling,
// not for fairness across concurrent callers.
type RateLimiter struct {
	mu       sync.Mutex
	minDelay time.Duration
	last     time.Time

	now   func() time.Time
	sleep func(time.Duration)
	rng   *rand.Rand
}

func NewRateLimiter(requestsPerMinute int) *RateLimiter {
	if requestsPerMinute <= 0 {
		requestsPerMinute = 30
	}
	return &RateLimiter{
		minDelay: time.Duration(float64(time.Minute) / float64(requestsPerMinute)),
		now:      time.Now,
		sleep:    time.Sleep,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// WaitIfNeeded blocks until the minimum interval since the previous
// permitted call has elapsed, then records the new permit time.
func (r *RateLimiter) WaitIfNeeded() {
	r.mu.Lock()
	defer r.mu.Unlock()

	elapsed := r.now().Sub(r.last)
	if !r.last.IsZero() && elapsed < r.minDelay {
		wait := r.minDelay - elapsed
		jitter := time.Duration((r.rng.Float64()*0.4 - 0.2) * float64(wait))
		r.sleep(wait + jitter)
	}
	r.last = r.now()
}
