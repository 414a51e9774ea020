package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"

	"github.com/use-agent/shelfscan/config"
	"github.com/use-agent/shelfscan/models"
)

// maxIdentities bounds the number of tracked limiters.
const maxIdentities = 10000

// RateLimit returns per-identity (API key or IP) token-bucket rate limiting
// middleware powered by golang.org/x/time/rate.
//
// Limiters idle for an hour expire, and the least recently seen identity is
// evicted once maxIdentities is reached.
func RateLimit(cfg config.RateLimitConfig) gin.HandlerFunc {
	limiters := expirable.NewLRU[string, *rate.Limiter](maxIdentities, nil, time.Hour)

	return func(c *gin.Context) {
		// Prefer API key as identity (set by auth middleware); fall back to IP.
		identity := c.GetString(IdentityKey)
		if identity == "" {
			identity = c.ClientIP()
		}

		limiter, ok := limiters.Get(identity)
		if !ok {
			limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst)
		}
		// Re-adding refreshes the idle expiry.
		limiters.Add(identity, limiter)

		if !limiter.Allow() {
			abort(c, http.StatusTooManyRequests, models.ErrCodeRateLimited, "rate limit exceeded, please slow down")
			return
		}

		c.Next()
	}
}
