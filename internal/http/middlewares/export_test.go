package middlewares

import "time"

func (rl *RateLimiter) SetClock(now func() time.Time) { rl.now = now }

func (rl *RateLimiter) Tracked() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.clients)
}
