package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// rateScript is a fixed-window counter: first hit in a window creates
// the key with an expiry, later hits increment it. Returns the count
// after increment and the remaining window in seconds.
var rateScript = redis.NewScript(`
	local current = redis.call('INCR', KEYS[1])
	if current == 1 then
		redis.call('EXPIRE', KEYS[1], ARGV[1])
	end
	local ttl = redis.call('TTL', KEYS[1])
	return { current, ttl }
`)

// RateLimit allows `limit` requests per client ip and route within
// `window`, backed by redis. A nil client or a redis failure lets the
// request through: limiting is protection, not a dependency.
func RateLimit(rdb *redis.Client, limit int, window time.Duration) echo.MiddlewareFunc {
	if rdb == nil || limit <= 0 {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	windowSecs := int64(window / time.Second)
	if windowSecs < 1 {
		windowSecs = 1
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ip := c.RealIP()
			if ip == "" {
				ip = "unknown"
			}
			key := "ratelimit:" + ip + ":" + c.Request().Method + ":" + c.Path()

			vals, err := rateScript.Run(c.Request().Context(), rdb, []string{key}, windowSecs).Int64Slice()
			if err != nil || len(vals) != 2 {
				if err != nil {
					log.WithError(err).Debug("rate limiter unavailable, allowing request")
				}
				return next(c)
			}
			count, ttl := vals[0], vals[1]

			remaining := int64(limit) - count
			if remaining < 0 {
				remaining = 0
			}
			c.Response().Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
			c.Response().Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

			if count > int64(limit) {
				if ttl < 0 {
					ttl = windowSecs
				}
				// Retry-After carries the wait; the body is the
				// common envelope.
				c.Response().Header().Set("Retry-After", strconv.FormatInt(ttl, 10))
				return ErrorJSON(c, http.StatusTooManyRequests, "rate limit exceeded")
			}
			return next(c)
		}
	}
}
