package httpapi

import (
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"choiceview-connect/pkg/logger"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// limiterIdleTTL is how long a client's bucket survives without requests.
const limiterIdleTTL = 10 * time.Minute

type visitor struct {
	limiter  *rate.Limiter
	lastSeen atomic.Int64
}

// IPRateLimiter keeps one token bucket per client IP. Buckets idle for
// longer than the TTL are dropped on a later request, at most once per TTL.
type IPRateLimiter struct {
	limiters  sync.Map
	rate      rate.Limit
	burst     int
	idleTTL   time.Duration
	now       func() time.Time
	lastSweep atomic.Int64
}

func NewIPRateLimiter(r rate.Limit, burst int) *IPRateLimiter {
	i := &IPRateLimiter{rate: r, burst: burst, idleTTL: limiterIdleTTL, now: time.Now}
	i.lastSweep.Store(i.now().UnixNano())
	return i
}

func (i *IPRateLimiter) limiter(ip string) *rate.Limiter {
	now := i.now()
	i.sweep(now)

	v, ok := i.limiters.Load(ip)
	if !ok {
		v, _ = i.limiters.LoadOrStore(ip, &visitor{limiter: rate.NewLimiter(i.rate, i.burst)})
	}
	vis := v.(*visitor)
	vis.lastSeen.Store(now.UnixNano())
	return vis.limiter
}

func (i *IPRateLimiter) sweep(now time.Time) {
	last := i.lastSweep.Load()
	if now.UnixNano()-last < int64(i.idleTTL) {
		return
	}
	if !i.lastSweep.CompareAndSwap(last, now.UnixNano()) {
		return
	}
	cutoff := now.Add(-i.idleTTL).UnixNano()
	i.limiters.Range(func(k, v any) bool {
		if v.(*visitor).lastSeen.Load() < cutoff {
			i.limiters.Delete(k)
		}
		return true
	})
}

// Middleware answers 429 once the caller's bucket is empty.
func (i *IPRateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if !i.limiter(ip).Allow() {
			logger.FromGin(c).Warn("rate limit exceeded", "ip", ip, "path", c.Request.URL.Path)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}
