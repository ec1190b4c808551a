package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	httputil "spurline/internal/pkg/http"
)

// 限流桶空闲多久后回收
const limiterIdleTTL = 10 * time.Minute

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter 按来源限流的中间件
// 优先按请求体外的 sessionId 查询参数或 Header 识别来源，否则退化到客户端 IP
type RateLimiter struct {
	mu       sync.Mutex
	entries  map[string]*limiterEntry
	limit    rate.Limit
	burst    int
	lastScan time.Time
}

// NewRateLimiter 创建限流器，requestsPerMinute 为每来源每分钟请求数
func NewRateLimiter(requestsPerMinute int) *RateLimiter {
	if requestsPerMinute <= 0 {
		requestsPerMinute = 10
	}
	return &RateLimiter{
		entries: make(map[string]*limiterEntry),
		limit:   rate.Limit(float64(requestsPerMinute) / 60.0),
		burst:   requestsPerMinute,
	}
}

// Handler 返回 gin 中间件
func (r *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader("X-Session-ID")
		if key == "" {
			key = c.Query("sessionId")
		}
		if key == "" {
			key = c.ClientIP()
		}

		if !r.allow(key) {
			c.Header("Retry-After", "60")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, httputil.NewErrorResponse(
				42901, "Too many requests, please slow down",
			))
			return
		}

		c.Next()
	}
}

func (r *RateLimiter) allow(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	entry, ok := r.entries[key]
	if !ok {
		entry = &limiterEntry{limiter: rate.NewLimiter(r.limit, r.burst)}
		r.entries[key] = entry
	}
	entry.lastSeen = now

	if now.Sub(r.lastScan) > limiterIdleTTL {
		r.lastScan = now
		for k, e := range r.entries {
			if now.Sub(e.lastSeen) > limiterIdleTTL {
				delete(r.entries, k)
			}
		}
	}

	return entry.limiter.Allow()
}
