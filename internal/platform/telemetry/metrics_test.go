package telemetry

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_Observe(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.ObserveBackendCall("list_doctors", "ok", 20*time.Millisecond)
	m.ObserveBooking("created")
	m.ObserveBooking("created")
	m.ObserveSearch("stale")
	m.ObserveCache("hit")

	if got := testutil.ToFloat64(m.bookings.WithLabelValues("created")); got != 2 {
		t.Errorf("bookings created = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.backendCalls.WithLabelValues("list_doctors", "ok")); got != 1 {
		t.Errorf("backend calls = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.searches.WithLabelValues("stale")); got != 1 {
		t.Errorf("stale searches = %v, want 1", got)
	}
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	m.ObserveBackendCall("op", "ok", time.Second)
	m.ObserveBooking("created")
	m.ObserveSearch("delivered")
	m.ObserveCache("miss")

	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	if err := m.Middleware()(func(c echo.Context) error { return nil })(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestMiddlewareAndHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	e := echo.New()
	e.Use(m.Middleware())
	e.GET("/api/schedule", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	e.GET("/api/fail", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusConflict, "taken")
	})
	e.GET("/metrics", Handler(reg))

	for _, path := range []string{"/api/schedule", "/api/fail"} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	}

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `ayursutra_http_request_duration_seconds_count{method="GET",route="/api/schedule",status="200"} 1`) {
		t.Errorf("schedule route not recorded:\n%s", body)
	}
	if !strings.Contains(body, `route="/api/fail",status="409"`) {
		t.Errorf("error status not recorded:\n%s", body)
	}
}

func TestNewMetrics_DuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewMetrics(reg)
	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("expected panic on duplicate registration")
		}
		var are prometheus.AlreadyRegisteredError
		if err, ok := r.(error); ok && !errors.As(err, &are) {
			t.Errorf("unexpected panic %v", r)
		}
	}()
	NewMetrics(reg)
}
