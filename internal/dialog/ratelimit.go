package dialog

import (
	"sync"
	"time"
)

// RateLimiter enforces a minimum interval between commands per user.
// It is deliberately coarse; the goal is to absorb double-taps, not to
// meter sustained traffic.
type RateLimiter struct {
	mu       sync.Mutex
	lastSeen map[int64]time.Time
	interval time.Duration
	now      func() time.Time
}

// NewRateLimiter creates a limiter with the given minimum interval. A
// background sweep drops idle users so the map cannot grow unbounded.
func NewRateLimiter(interval time.Duration) *RateLimiter {
	if interval <= 0 {
		interval = time.Second
	}
	rl := &RateLimiter{
		lastSeen: make(map[int64]time.Time),
		interval: interval,
		now:      time.Now,
	}
	go rl.cleanup()
	return rl
}

// Allow reports whether the user may run a command now, and records the
// attempt when allowed.
func (rl *RateLimiter) Allow(userID int64) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if last, ok := rl.lastSeen[userID]; ok && now.Sub(last) < rl.interval {
		return false
	}
	rl.lastSeen[userID] = now
	return true
}

func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		cutoff := rl.now().Add(-10 * rl.interval)
		rl.mu.Lock()
		for id, last := range rl.lastSeen {
			if last.Before(cutoff) {
				delete(rl.lastSeen, id)
			}
		}
		rl.mu.Unlock()
	}
}
