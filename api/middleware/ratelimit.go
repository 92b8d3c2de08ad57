package middleware

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// IPRateLimiter applies a per-client token bucket keyed by source IP.
// Stale clients are evicted by a background sweep.
type IPRateLimiter struct {
	rps        float64
	burst      int
	expireTime time.Duration
	clients    sync.Map
	stopChan   chan struct{}
	stopOnce   sync.Once
}

// NewIPRateLimiter creates a limiter allowing rps requests per second
// with the given burst per client IP, forgetting clients idle longer
// than expireTime.
func NewIPRateLimiter(rps float64, burst int, expireTime time.Duration) *IPRateLimiter {
	rl := &IPRateLimiter{
		rps:        rps,
		burst:      burst,
		expireTime: expireTime,
		stopChan:   make(chan struct{}),
	}
	go rl.sweep()
	return rl
}

// Middleware returns the gin handler enforcing the limit.
func (rl *IPRateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := clientIP(c)

		val, _ := rl.clients.LoadOrStore(ip, &clientLimiter{
			limiter: rate.NewLimiter(rate.Limit(rl.rps), rl.burst),
		})
		client := val.(*clientLimiter)
		client.lastSeen = time.Now()

		if !client.limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"status": "error",
				"msg":    "too many requests",
			})
			return
		}
		c.Next()
	}
}

// Stop ends the background sweep.
func (rl *IPRateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stopChan) })
}

func (rl *IPRateLimiter) sweep() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.clients.Range(func(key, value interface{}) bool {
				if time.Since(value.(*clientLimiter).lastSeen) > rl.expireTime {
					rl.clients.Delete(key)
				}
				return true
			})
		case <-rl.stopChan:
			return
		}
	}
}

func clientIP(c *gin.Context) string {
	if fwd := c.GetHeader("X-Forwarded-For"); fwd != "" {
		if first, _, found := strings.Cut(fwd, ","); found || first != "" {
			return strings.TrimSpace(first)
		}
	}
	if ip := c.GetHeader("X-Real-IP"); ip != "" {
		return ip
	}
	return c.ClientIP()
}
