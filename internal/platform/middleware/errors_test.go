package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

func TestErrorHandler(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantBody string
		hidden   string
	}{
		{"http error", echo.NewHTTPError(http.StatusConflict, "slot taken"), http.StatusConflict, `"message":"slot taken"`, ""},
		{"plain error", errors.New("pq: password authentication failed"), http.StatusInternalServerError, `"message":"internal server error"`, "password"},
		{"internal 500", echo.NewHTTPError(http.StatusInternalServerError, "db down for maintenance"), http.StatusInternalServerError, `"success":false`, "maintenance"},
		{"bad gateway keeps notice", echo.NewHTTPError(http.StatusBadGateway, "could not reach the clinic server"), http.StatusBadGateway, "could not reach", ""},
		{"gateway timeout keeps notice", echo.NewHTTPError(http.StatusGatewayTimeout, "request timed out"), http.StatusGatewayTimeout, "timed out", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			e.HTTPErrorHandler = ErrorHandler(zerolog.Nop())
			e.GET("/x", func(echo.Context) error { return tt.err })

			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			if !strings.Contains(rec.Body.String(), tt.wantBody) {
				t.Errorf("body %s does not contain %s", rec.Body.String(), tt.wantBody)
			}
			if tt.hidden != "" && strings.Contains(rec.Body.String(), tt.hidden) {
				t.Errorf("internal detail leaked: %s", rec.Body.String())
			}
		})
	}
}

func TestErrorHandler_HeadHasNoBody(t *testing.T) {
	e := echo.New()
	e.HTTPErrorHandler = ErrorHandler(zerolog.Nop())
	e.HEAD("/x", func(echo.Context) error { return echo.NewHTTPError(http.StatusNotFound, "gone") })

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodHead, "/x", nil))
	if rec.Code != http.StatusNotFound || rec.Body.Len() != 0 {
		t.Errorf("status = %d body = %q", rec.Code, rec.Body.String())
	}
}
