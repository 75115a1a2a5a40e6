package gateway

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	apierrors "github.com/cypher-asi/aura-swarm-sub000/internal/apierrors"
	"github.com/cypher-asi/aura-swarm-sub000/internal/auth"
	"github.com/cypher-asi/aura-swarm-sub000/internal/logger"
)

const requestIDHeader = "X-Request-ID"

// requestTracing assigns a correlation ID to every request (reusing one the
// caller supplies) and logs one structured line per completed request.
func requestTracing() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set("request_id", requestID)
		c.Header(requestIDHeader, requestID)

		start := time.Now()
		c.Next()

		logger.Gateway().Info().
			Str("request_id", requestID).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", time.Since(start)).
			Msg("request handled")
	}
}

// cors builds a CORS middleware from the configured origin list. A "*" entry
// allows any origin; otherwise only exact matches are reflected back.
func cors(origins []string) gin.HandlerFunc {
	allowAny := false
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		if o == "*" {
			allowAny = true
		}
		allowed[o] = true
	}

	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if allowAny {
			c.Header("Access-Control-Allow-Origin", "*")
		} else if origin != "" && allowed[origin] {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Vary", "Origin")
		}
		c.Header("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Request-ID")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// securityHeaders adds the baseline hardening headers appropriate for a pure
// JSON/WebSocket API (no HTML is ever served, so no CSP nonce machinery is
// needed here).
func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "no-referrer")
		c.Header("Cache-Control", "no-store")
		c.Next()
	}
}

// bodyLimit rejects request bodies larger than max by wrapping the reader
// the same way net/http's MaxBytesReader does.
func bodyLimit(max int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, max)
		c.Next()
	}
}

// userRateLimiter enforces a per-caller limit backed by Redis (a fixed
// one-second window counter: INCR + EXPIRE on a per-second key), so the limit
// holds across every gateway replica rather than resetting per-process.
// Requests with authenticated claims are keyed by identity; others by client
// IP. NewRouter mounts it ahead of authentication, where every request is
// keyed by client IP so a rejected token still counts against its source,
// and again inside the authenticated /v1 group, where it is keyed per user.
type userRateLimiter struct {
	redis *redis.Client
	rps   int
}

func newUserRateLimiter(rdb *redis.Client, rps float64) *userRateLimiter {
	limit := int(rps)
	if limit < 1 {
		limit = 1
	}
	return &userRateLimiter{redis: rdb, rps: limit}
}

// allow increments the caller's window counter and reports whether the
// request fits inside this second's budget. On Redis errors it fails open:
// an unreachable rate limiter should not take the whole gateway down.
func (rl *userRateLimiter) allow(ctx context.Context, key string) bool {
	bucketKey := fmt.Sprintf("gw:ratelimit:%s:%d", key, time.Now().Unix())

	pipe := rl.redis.Pipeline()
	incr := pipe.Incr(ctx, bucketKey)
	pipe.Expire(ctx, bucketKey, 2*time.Second)
	if _, err := pipe.Exec(ctx); err != nil {
		logger.Gateway().Warn().Err(err).Msg("rate limiter unreachable, failing open")
		return true
	}
	return incr.Val() <= int64(rl.rps)
}

func (rl *userRateLimiter) middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP()
		if claims, ok := auth.ClaimsFromContext(c); ok {
			key = claims.IdentityID.String()
		}
		if !rl.allow(c.Request.Context(), key) {
			apierrors.AbortWithError(c, apierrors.RateLimited())
			return
		}
		c.Next()
	}
}

// requestTimeout bounds handler execution, matching the teacher's
// run-in-goroutine pattern so a slow handler can't hold the connection open
// indefinitely. WebSocket upgrades are excluded — they legitimately run for
// the configured session duration.
func requestTimeout(d time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if strings.HasSuffix(c.Request.URL.Path, "/ws") {
			c.Next()
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)

		done := make(chan struct{})
		go func() {
			c.Next()
			close(done)
		}()

		select {
		case <-done:
		case <-ctx.Done():
			c.AbortWithStatusJSON(http.StatusRequestTimeout, apierrors.ErrorResponse{
				Error:   "REQUEST_TIMEOUT",
				Message: "the request took too long to process",
			})
		}
	}
}
