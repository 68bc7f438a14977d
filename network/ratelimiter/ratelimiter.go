// Package ratelimiter keeps a leaky counter per key, e.g. per remote address.
package ratelimiter

import (
	"context"
	"sync"
	"time"
)

const (
	drainInterval = 100 * time.Millisecond
	// burst is how many seconds worth of requests a key may spend at once.
	burst = 10
)

type RateLimiter struct {
	perSec float64

	mu       sync.Mutex
	counters map[string]float64

	// onDrain receives the number of tracked keys after every drain.
	onDrain func(keys int)
}

func New(perSec float64, onDrain func(keys int)) *RateLimiter {
	return &RateLimiter{
		perSec:   perSec,
		counters: make(map[string]float64),
		onDrain:  onDrain,
	}
}

// Run drains the counters until ctx is done.
func (r *RateLimiter) Run(ctx context.Context) {
	t := time.NewTicker(drainInterval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			r.drain(drainInterval)
		}
	}
}

func (r *RateLimiter) drain(elapsed time.Duration) {
	leak := r.perSec * elapsed.Seconds()

	r.mu.Lock()
	for key, v := range r.counters {
		if v -= leak; v <= 0 {
			delete(r.counters, key)
		} else {
			r.counters[key] = v
		}
	}
	n := len(r.counters)
	r.mu.Unlock()

	if r.onDrain != nil {
		r.onDrain(n)
	}
}

// Allow accounts one request of key and reports whether it fits the limit.
// A non-positive limit disables limiting.
func (r *RateLimiter) Allow(key string) bool {
	if r.perSec <= 0 {
		return true
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.counters[key]+1 > r.perSec*burst {
		return false
	}
	r.counters[key]++
	return true
}
