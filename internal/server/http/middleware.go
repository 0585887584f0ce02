package http

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/citywatch-app/citywatch/internal/fingerprint"
)

const fingerprintKey = "fingerprint"

// fingerprintMiddleware derives the caller's anonymous identity from
// transport attributes and stashes it in the request context. Every
// request gets one; there is no registration step.
func fingerprintMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		fp := fingerprint.Derive(c.ClientIP(),
			c.GetHeader("User-Agent"),
			c.GetHeader("Accept-Language"))
		c.Set(fingerprintKey, fp)
		c.Next()
	}
}

// callerFingerprint returns the identity set by fingerprintMiddleware.
func callerFingerprint(c *gin.Context) string {
	return c.GetString(fingerprintKey)
}

// requestLogger logs one structured line per request.
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)))
	}
}

// ipRateLimiter keeps a token bucket per client IP. This transport
// throttle is separate from the per-fingerprint posting cooldown.
type ipRateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*rate.Limiter
	rps      rate.Limit
	burst    int
}

func newIPRateLimiter(rps float64, burst int) *ipRateLimiter {
	return &ipRateLimiter{
		visitors: make(map[string]*rate.Limiter),
		rps:      rate.Limit(rps),
		burst:    burst,
	}
}

func (rl *ipRateLimiter) get(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	lim, ok := rl.visitors[ip]
	if !ok {
		lim = rate.NewLimiter(rl.rps, rl.burst)
		rl.visitors[ip] = lim
	}
	return lim
}

// run prunes refilled buckets on an interval until ctx is canceled.
func (rl *ipRateLimiter) run(ctx context.Context) {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.prune()
		}
	}
}

// prune drops buckets that have refilled; they carry no state worth keeping.
func (rl *ipRateLimiter) prune() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for ip, lim := range rl.visitors {
		if lim.Tokens() >= float64(rl.burst) {
			delete(rl.visitors, ip)
		}
	}
}

func rateLimitMiddleware(rl *ipRateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.get(c.ClientIP()).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests,
				gin.H{"error": "too many requests", "code": "rate_limited"})
			return
		}
		c.Next()
	}
}

// adminAuth requires a valid bearer token issued by the admin service.
func (s *Server) adminAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				gin.H{"error": "missing bearer token", "code": "unauthorized"})
			return
		}
		adminID, err := s.admin.VerifyToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				gin.H{"error": "invalid token", "code": "unauthorized"})
			return
		}
		c.Set("admin_id", adminID)
		c.Next()
	}
}
