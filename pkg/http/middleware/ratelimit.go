package middleware

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// Allower decides whether a request identified by key may proceed.
type Allower interface {
	Allow(key string) bool
}

// Pruner is a limiter that can forget clients idle for longer than idle.
type Pruner interface {
	Prune(idle time.Duration) int
}

// RateLimit rejects requests with 429 once the client's bucket is empty.
// Clients are keyed by real IP and route.
func RateLimit(a Allower) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !a.Allow(c.RealIP() + ":" + c.Path()) {
				return c.JSON(http.StatusTooManyRequests, map[string]interface{}{
					"status":  http.StatusTooManyRequests,
					"message": http.StatusText(http.StatusTooManyRequests),
				})
			}
			return next(c)
		}
	}
}
