package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	defaultLimit  = 60
	defaultWindow = time.Minute
)

// fixedWindow counts requests per client ip in fixed windows.
// State is in memory, so limits apply per process.
type fixedWindow struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	now     func() time.Time
	clients map[string]*windowCount
}

type windowCount struct {
	start time.Time
	count int
}

func newFixedWindow(limit int, window time.Duration) *fixedWindow {
	return &fixedWindow{
		limit:   limit,
		window:  window,
		now:     time.Now,
		clients: make(map[string]*windowCount),
	}
}

// allow records one request from ip and reports whether it is within the limit.
func (f *fixedWindow) allow(ip string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := f.now()
	wc, ok := f.clients[ip]
	if !ok || now.Sub(wc.start) >= f.window {
		f.sweep(now)
		f.clients[ip] = &windowCount{start: now, count: 1}
		return true
	}
	wc.count++
	return wc.count <= f.limit
}

// sweep drops clients whose window has ended. Callers hold f.mu.
func (f *fixedWindow) sweep(now time.Time) {
	for ip, wc := range f.clients {
		if now.Sub(wc.start) >= f.window {
			delete(f.clients, ip)
		}
	}
}

// RateLimiter allows 60 requests per minute per client ip.
// Over the limit it answers 429 with an ErrorResponse and a Retry-After header.
func RateLimiter() gin.HandlerFunc {
	return RateLimiterWith(defaultLimit, defaultWindow)
}

// RateLimiterWith is RateLimiter with an explicit limit and window.
func RateLimiterWith(limit int, window time.Duration) gin.HandlerFunc {
	return rateLimit(newFixedWindow(limit, window))
}

func rateLimit(fw *fixedWindow) gin.HandlerFunc {
	retryAfter := strconv.Itoa(int(fw.window.Seconds()))
	return func(c *gin.Context) {
		if !fw.allow(c.ClientIP()) {
			c.Header("Retry-After", retryAfter)
			AbortWithError(c, http.StatusTooManyRequests, "rate limit exceeded", nil)
			return
		}
		c.Next()
	}
}
