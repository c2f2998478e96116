package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// RequestTimeout gives each request a time budget. Desk handlers pass the
// request context on to the clinic backend, so a slow backend call is cut
// off when the budget runs out and the caller gets 504. Websocket upgrades
// (search-as-you-type) stay open and are not limited.
func RequestTimeout(timeout time.Duration, logger zerolog.Logger) echo.MiddlewareFunc {
	msg := fmt.Sprintf("request took longer than %s", timeout)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if timeout <= 0 || strings.EqualFold(c.Request().Header.Get(echo.HeaderUpgrade), "websocket") {
				return next(c)
			}

			ctx, cancel := context.WithTimeout(c.Request().Context(), timeout)
			defer cancel()
			c.SetRequest(c.Request().WithContext(ctx))

			err := next(c)
			if !errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return err
			}
			logger.Warn().
				Str("request_id", RequestIDFrom(c)).
				Str("route", routeOf(c)).
				Dur("budget", timeout).
				Bool("committed", c.Response().Committed).
				Msg("request budget exhausted")
			if c.Response().Committed {
				return err
			}
			return echo.NewHTTPError(http.StatusGatewayTimeout, msg).SetInternal(err)
		}
	}
}
