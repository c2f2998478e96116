package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/MrHarsh002/AyurSutra-sub003/internal/platform/auth"
)

// Recovery turns a panicking handler into a 500. The log line names the
// signed-in user so a broken booking or schedule view can be traced back to
// the desk session that hit it.
func Recovery(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				r := recover()
				if r == nil {
					return
				}
				if r == http.ErrAbortHandler {
					panic(r)
				}
				ctx := c.Request().Context()
				ev := logger.Error().
					Str("request_id", RequestIDFrom(c)).
					Str("method", c.Request().Method).
					Str("route", routeOf(c)).
					Str("panic", fmt.Sprint(r)).
					Bytes("stack", debug.Stack())
				if uid := auth.UserIDFromContext(ctx); uid != "" {
					ev = ev.Str("user_id", uid).Str("role", auth.RoleFromContext(ctx).String())
				}
				ev.Msg("handler panicked")

				err = echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
			}()
			return next(c)
		}
	}
}

// routeOf prefers the registered pattern ("/api/appointments/:id") over the
// raw path so ids do not end up in log aggregation keys.
func routeOf(c echo.Context) string {
	if p := c.Path(); p != "" {
		return p
	}
	return c.Request().URL.Path
}
