package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// RateLimiter is a fixed-window per-IP request counter.
type RateLimiter struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu        sync.Mutex
	items     map[string]*rateEntry
	nextSweep time.Time
}

type rateEntry struct {
	count int
	reset time.Time
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	if window <= 0 {
		window = time.Minute
	}
	return &RateLimiter{
		limit:  limit,
		window: window,
		now:    time.Now,
		items:  make(map[string]*rateEntry),
	}
}

// hit counts one request from key and reports whether it is allowed,
// with the time the window reopens.
func (rl *RateLimiter) hit(key string) (bool, time.Time) {
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	if now.After(rl.nextSweep) {
		for k, e := range rl.items {
			if now.After(e.reset) {
				delete(rl.items, k)
			}
		}
		rl.nextSweep = now.Add(rl.window)
	}

	entry, ok := rl.items[key]
	if !ok || now.After(entry.reset) {
		entry = &rateEntry{reset: now.Add(rl.window)}
		rl.items[key] = entry
	}
	entry.count++
	return entry.count <= rl.limit, entry.reset
}

func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if rl.limit <= 0 {
			c.Next()
			return
		}
		ok, reset := rl.hit(c.ClientIP())
		if !ok {
			retry := int(reset.Sub(rl.now()).Seconds()) + 1
			c.Header("Retry-After", strconv.Itoa(retry))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"success": false, "message": "Too many requests"})
			return
		}
		c.Next()
	}
}
