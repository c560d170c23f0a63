package httpserver

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	ecM "github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"github.com/equiplend/frontend/internal/ids"
	"github.com/equiplend/frontend/internal/obs"
)

func Common() []echo.MiddlewareFunc {
	return []echo.MiddlewareFunc{
		ecM.Recover(),
		ecM.RequestIDWithConfig(ecM.RequestIDConfig{Generator: ids.RequestID}),
		ecM.Secure(),
		obs.Middleware(),
	}
}

// AuthRateLimiter throttles credential posts per client IP.
func AuthRateLimiter() echo.MiddlewareFunc {
	store := ecM.NewRateLimiterMemoryStoreWithConfig(ecM.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(1),
		Burst:     10,
		ExpiresIn: 5 * time.Minute,
	})
	return ecM.RateLimiterWithConfig(ecM.RateLimiterConfig{
		Store: store,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		DenyHandler: func(c echo.Context, _ string, _ error) error {
			return echo.NewHTTPError(http.StatusTooManyRequests, "too many attempts, try again shortly")
		},
	})
}
