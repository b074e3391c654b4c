package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"invoicing/internal/apierror"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const purgeInterval = 5 * time.Minute

// window counts requests from one client IP until end.
type window struct {
	count int
	end   time.Time
}

// RateLimiter is a fixed-window request counter keyed by client IP.
type RateLimiter struct {
	limit  int
	period time.Duration
	now    func() time.Time

	mu        sync.Mutex
	clients   map[string]*window
	nextPurge time.Time
}

// NewRateLimiter allows limit requests per period per IP. A non-positive
// limit disables limiting.
func NewRateLimiter(limit int, period time.Duration) *RateLimiter {
	return &RateLimiter{
		limit:   limit,
		period:  period,
		now:     time.Now,
		clients: make(map[string]*window),
	}
}

// allow records a request from ip and reports whether it is within the
// limit, plus the time the current window resets.
func (rl *RateLimiter) allow(ip string) (bool, time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if now.After(rl.nextPurge) {
		if n := rl.purgeLocked(now); n > 0 {
			log.Debug().Int("purged", n).Msg("rate limiter windows purged")
		}
		rl.nextPurge = now.Add(purgeInterval)
	}

	w, ok := rl.clients[ip]
	if !ok || now.After(w.end) {
		w = &window{end: now.Add(rl.period)}
		rl.clients[ip] = w
	}
	w.count++
	return w.count <= rl.limit, w.end
}

// purgeLocked drops expired windows so IPs that never return do not pile
// up. allow runs it at most once per purgeInterval; rl.mu must be held.
func (rl *RateLimiter) purgeLocked(now time.Time) int {
	n := 0
	for ip, w := range rl.clients {
		if now.After(w.end) {
			delete(rl.clients, ip)
			n++
		}
	}
	return n
}

// Middleware returns the gin handler. It starts no goroutines.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	if rl.limit <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		ok, reset := rl.allow(c.ClientIP())
		if !ok {
			wait := int(time.Until(reset).Seconds()) + 1
			c.Header("Retry-After", strconv.Itoa(wait))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, apierror.New("too many requests, retry later"))
			return
		}
		c.Next()
	}
}
