package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestSecurityHeaders_SetsAllHeaders(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/schedule", nil), rec)

	if err := SecurityHeaders(false)(okHandler)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
		"Referrer-Policy":        "no-referrer",
		"Cache-Control":          "no-store",
	}
	for header, want := range expected {
		if got := rec.Header().Get(header); got != want {
			t.Errorf("%s = %q, want %q", header, got, want)
		}
	}
}

func TestSecurityHeaders_HSTSOnlyWhenEnabled(t *testing.T) {
	for _, hsts := range []bool{false, true} {
		e := echo.New()
		rec := httptest.NewRecorder()
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/session", nil), rec)

		if err := SecurityHeaders(hsts)(okHandler)(c); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		got := rec.Header().Get("Strict-Transport-Security")
		if hsts && got != "max-age=31536000" {
			t.Errorf("hsts enabled: Strict-Transport-Security = %q", got)
		}
		if !hsts && got != "" {
			t.Errorf("hsts disabled: Strict-Transport-Security = %q", got)
		}
	}
}
