package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/bookline/backend/internal/ratelimit"
)

// IdentityFunc extracts the client identity a quota is keyed on. The default
// is the network origin address; API-key or user-id extraction slots in here
// without touching the counting algorithm.
type IdentityFunc func(c *gin.Context) string

func ClientIP(c *gin.Context) string {
	return c.ClientIP()
}

// RateLimit enforces the named endpoint's fixed-window quota. Every limited
// response carries the X-RateLimit headers; rejections add retry guidance in
// the body. A broken limiter store fails open with a logged error rather
// than taking the endpoint down.
func RateLimit(limiter *ratelimit.Limiter, endpoint string, identity IdentityFunc, logger zerolog.Logger) gin.HandlerFunc {
	if identity == nil {
		identity = ClientIP
	}
	return func(c *gin.Context) {
		res, err := limiter.Check(c.Request.Context(), identity(c), endpoint)
		if err != nil {
			logger.Error().Err(err).Str("endpoint", endpoint).Msg("rate limit check failed")
			c.Next()
			return
		}

		if res.Limit > 0 {
			c.Writer.Header().Set("X-RateLimit-Limit", fmt.Sprint(res.Limit))
			c.Writer.Header().Set("X-RateLimit-Remaining", fmt.Sprint(res.Remaining))
			c.Writer.Header().Set("X-RateLimit-Reset", fmt.Sprint(res.ResetAt.Unix()))
		}

		if !res.Allowed {
			retryAfter := int(time.Until(res.ResetAt).Seconds()) + 1
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Writer.Header().Set("Retry-After", fmt.Sprint(retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": gin.H{
					"code":    "RATE_LIMITED",
					"message": "Rate limit exceeded",
					"details": gin.H{
						"retry_after":    retryAfter,
						"reset_time":     res.ResetAt.UTC().Format(time.RFC3339),
						"limit":          res.Limit,
						"window_seconds": int(res.Window.Seconds()),
					},
				},
			})
			return
		}
		c.Next()
	}
}
