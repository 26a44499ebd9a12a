package antibot

import (
	"math/rand"
	"testing"
	"time"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func newTestLimiter(rpm int, clock *fakeClock, slept *[]time.Duration) *RateLimiter {
	r := NewRateLimiter(rpm)
	r.now = clock.Now
	r.sleep = func(d time.Duration) {
		*slept = append(*slept, d)
		clock.now = clock.now.Add(d)
	}
	r.rng = rand.New(rand.NewSource(42))
	return r
}

func TestRateLimiter_FirstCallDoesNotWait(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	var slept []time.Duration
	r := newTestLimiter(30, clock, &slept)

	r.WaitIfNeeded()

	if len(slept) != 0 {
		t.Errorf("first call slept %v, want no sleep", slept)
	}
}

func TestRateLimiter_EnforcesIntervalWithJitter(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	var slept []time.Duration
	r := newTestLimiter(30, clock, &slept) // 2s interval

	r.WaitIfNeeded()
	clock.now = clock.now.Add(500 * time.Millisecond)
	r.WaitIfNeeded()

	if len(slept) != 1 {
		t.Fatalf("expected exactly one sleep, got %d", len(slept))
	}

	// Remaining gap is 1.5s; jitter is within ±20% of that.
	base := 1500 * time.Millisecond
	lo := time.Duration(float64(base) * 0.8)
	hi := time.Duration(float64(base) * 1.2)
	if slept[0] < lo || slept[0] > hi {
		t.Errorf("slept %v, want within [%v, %v]", slept[0], lo, hi)
	}
}

func TestRateLimiter_NoWaitWhenIntervalElapsed(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	var slept []time.Duration
	r := newTestLimiter(30, clock, &slept)

	r.WaitIfNeeded()
	clock.now = clock.now.Add(5 * time.Second)
	r.WaitIfNeeded()

	if len(slept) != 0 {
		t.Errorf("slept %v after interval already elapsed", slept)
	}
}
