package middleware

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

type errorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// ErrorHandler renders every error as {success:false, message}. 5xx details
// stay in the log.
func ErrorHandler(logger zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		code := http.StatusInternalServerError
		msg := "internal server error"
		var he *echo.HTTPError
		if errors.As(err, &he) {
			code = he.Code
			if code < 500 || code == http.StatusBadGateway || code == http.StatusGatewayTimeout {
				msg = fmt.Sprint(he.Message)
			}
		}
		if code >= 500 {
			logger.Error().Err(err).Str("path", c.Request().URL.Path).
				Str("request_id", c.Response().Header().Get(RequestIDHeader)).Msg("request failed")
		}
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		_ = c.JSON(code, errorResponse{Message: msg})
	}
}
