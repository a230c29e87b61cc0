package middleware

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// RateLimitCounter abstracts the fixed-window counter storage.
type RateLimitCounter interface {
	IncrementWindow(ctx context.Context, client string, window time.Duration, keyPrefix string, ttl time.Duration) (int, time.Time, error)
}

type RateLimitConfig struct {
	RequestsPerWindow int
	Window            time.Duration
	KeyPrefix         string
}

// RateLimitMiddleware applies a per-client-IP fixed window on the public
// endpoints. Counter errors fail open so a redis outage never takes the
// API down with it.
type RateLimitMiddleware struct {
	counter RateLimitCounter
	config  *RateLimitConfig
	logger  *logrus.Logger
}

func NewRateLimitMiddleware(counter RateLimitCounter, config *RateLimitConfig, logger *logrus.Logger) *RateLimitMiddleware {
	return &RateLimitMiddleware{counter: counter, config: config, logger: logger}
}

func (r *RateLimitMiddleware) Handler() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if r.counter == nil || r.config == nil || r.config.RequestsPerWindow <= 0 {
				return next(c)
			}

			ttl := r.config.Window * 2
			count, windowStart, err := r.counter.IncrementWindow(c.Request().Context(), c.RealIP(), r.config.Window, r.config.KeyPrefix, ttl)
			if err != nil {
				if r.logger != nil {
					r.logger.WithError(err).WithField("ip", c.RealIP()).Warn("rate limiter error; allowing request (fail-open)")
				}
				return next(c)
			}

			remaining := r.config.RequestsPerWindow - count
			if remaining < 0 {
				remaining = 0
			}
			reset := windowStart.Add(r.config.Window)

			c.Response().Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", r.config.RequestsPerWindow))
			c.Response().Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", remaining))
			c.Response().Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", reset.Unix()))

			if count > r.config.RequestsPerWindow {
				return echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")
			}
			return next(c)
		}
	}
}
