package api

import (
	"SignalFusion/internal/service/ratelimit"
	xhttp "SignalFusion/pkg/http"
	xlogger "SignalFusion/pkg/logger"

	"github.com/labstack/echo/v4"
)

// RateLimit throttles each client IP with its own token bucket. A nil
// limiter disables the check.
func RateLimit(l *ratelimit.Limiter, logger *xlogger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		if l == nil {
			return next
		}
		return func(c echo.Context) error {
			l.MaybeSweep()
			ip := c.RealIP()
			if !l.Allow(ip) {
				logger.Warn("rate limited",
					xlogger.String("remote", ip),
					xlogger.String("path", c.Path()))
				return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("rate limit exceeded"))
			}
			return next(c)
		}
	}
}
