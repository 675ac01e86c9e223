package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
)

type RateLimitConfig struct {
	Redis      *redis.Client
	DefaultRPS int    // used when the user has no own limit
	Burst      int    // extra requests tolerated per window
	KeyPrefix  string // default "rl:user:"
	Window     time.Duration
}

// RateLimitMiddleware is a fixed-window per-user limiter backed by Redis.
// Requests pass through when Redis is not configured or unreachable.
func RateLimitMiddleware(cfg RateLimitConfig) echo.MiddlewareFunc {
	if cfg.Window <= 0 {
		cfg.Window = time.Second
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "rl:user:"
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			u, ok := UserFromCtx(c)
			if !ok || cfg.Redis == nil {
				return next(c)
			}

			limit := cfg.DefaultRPS
			if v, ok := c.Get(ctxUserRPS).(int); ok && v > 0 {
				limit = v
			}
			if limit <= 0 {
				return next(c)
			}
			limit += cfg.Burst

			ctx := c.Request().Context()
			now := time.Now()
			window := now.UnixNano() / int64(cfg.Window)
			key := cfg.KeyPrefix + u.ID + ":" + strconv.FormatInt(window, 10)

			pipe := cfg.Redis.Pipeline()
			cnt := pipe.Incr(ctx, key)
			pipe.Expire(ctx, key, cfg.Window*2)
			if _, err := pipe.Exec(ctx); err != nil {
				c.Logger().Warnf("rate limit redis: %v", err)
				return next(c)
			}

			if cnt.Val() > int64(limit) {
				remain := cfg.Window - time.Duration(now.UnixNano()%int64(cfg.Window))
				secs := int(remain.Round(time.Second) / time.Second)
				if secs < 1 {
					secs = 1
				}
				c.Response().Header().Set("Retry-After", strconv.Itoa(secs))
				return c.JSON(http.StatusTooManyRequests, map[string]string{"error": "rate limited"})
			}
			return next(c)
		}
	}
}
