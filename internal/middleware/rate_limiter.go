package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"phrasedesk/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type window struct {
	count int
	ends  time.Time
}

// RateLimiter is a fixed-window per-IP limiter
type RateLimiter struct {
	limit     int
	window    time.Duration
	message   string
	mu        sync.Mutex
	ips       map[string]*window
	lastPurge time.Time
	now       func() time.Time
}

func NewRateLimiter(limit int, per time.Duration, message string) *RateLimiter {
	return &RateLimiter{
		limit:   limit,
		window:  per,
		message: message,
		ips:     make(map[string]*window),
		now:     time.Now,
	}
}

// LoginRateLimiter limits login attempts to 20 per minute per IP.
func LoginRateLimiter() gin.HandlerFunc {
	return NewRateLimiter(20, time.Minute, "Too many login attempts. Try again in a minute.").Middleware()
}

// Allow records one hit for ip and reports whether it is within the limit
func (l *RateLimiter) Allow(ip string) (bool, time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.purge(now)

	w, ok := l.ips[ip]
	if !ok || now.After(w.ends) {
		w = &window{ends: now.Add(l.window)}
		l.ips[ip] = w
	}
	w.count++
	return w.count <= l.limit, w.ends
}

// purge drops expired windows at most once per window; called under lock
func (l *RateLimiter) purge(now time.Time) {
	if now.Sub(l.lastPurge) < l.window {
		return
	}
	l.lastPurge = now
	purged := 0
	for ip, w := range l.ips {
		if now.After(w.ends) {
			delete(l.ips, ip)
			purged++
		}
	}
	if purged > 0 {
		log.Debug().Int("purged", purged).Int("remaining", len(l.ips)).Msg("rate limiter purged")
	}
}

func (l *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, ends := l.Allow(c.ClientIP())
		if !ok {
			retry := int(time.Until(ends).Seconds()) + 1
			c.Header("Retry-After", strconv.Itoa(retry))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, response.Error(http.StatusTooManyRequests, l.message))
			return
		}
		c.Next()
	}
}
