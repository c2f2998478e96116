package desk

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	gorillawebsocket "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrHarsh002/AyurSutra-sub003/internal/domain/scheduling"
	"github.com/MrHarsh002/AyurSutra-sub003/internal/platform/auth"
	"github.com/MrHarsh002/AyurSutra-sub003/internal/platform/clinicapi"
	"github.com/MrHarsh002/AyurSutra-sub003/internal/platform/middleware"
	"github.com/MrHarsh002/AyurSutra-sub003/internal/platform/websocket"
)

var testJWT = auth.JWTConfig{SigningKey: []byte("desk-test-key")}

func newDeskServer(t *testing.T, api *fakeBackend, cfg HandlerConfig) *echo.Echo {
	t.Helper()
	e := echo.New()
	e.HTTPErrorHandler = middleware.ErrorHandler(zerolog.Nop())
	group := e.Group("/api", auth.JWTMiddleware(testJWT))
	cfg.Logger = zerolog.Nop()
	NewHandler(New(api, testResolver()), cfg).RegisterRoutes(group)
	return e
}

func token(t *testing.T, role auth.Role) string {
	t.Helper()
	tok, err := auth.IssueToken(testJWT, auth.TokenRequest{Subject: "user-7", Name: "Meera", Role: role})
	require.NoError(t, err)
	return tok
}

func call(t *testing.T, e *echo.Echo, role auth.Role, method, target, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if role != 0 {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token(t, role))
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return rec, out
}

func formJSON(t *testing.T, mutate func(f map[string]any)) string {
	t.Helper()
	f := map[string]any{
		"patient": "p1", "doctor": "d1", "date": "2024-03-13", "time": "10:00",
		"duration": 30, "type": "consultation", "priority": "medium",
		"purpose": "Follow-up on knee pain", "location": "Room 101",
	}
	if mutate != nil {
		mutate(f)
	}
	b, err := json.Marshal(f)
	require.NoError(t, err)
	return string(b)
}

func TestHandler_SessionDescribesCaller(t *testing.T) {
	e := newDeskServer(t, directory(), HandlerConfig{})

	rec, body := call(t, e, auth.RoleTherapist, http.MethodGet, "/api/session", "")
	require.Equal(t, http.StatusOK, rec.Code)

	user := body["user"].(map[string]any)
	assert.Equal(t, "user-7", user["id"])
	assert.Equal(t, "Meera", user["name"])
	assert.Equal(t, "therapist", user["role"])
	assert.Equal(t, "Therapist", user["roleLabel"])
	assert.NotEmpty(t, body["views"].(map[string]any)["sidebar"])
}

func TestHandler_RequiresToken(t *testing.T) {
	e := newDeskServer(t, directory(), HandlerConfig{})
	rec, body := call(t, e, 0, http.MethodGet, "/api/session", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, false, body["success"])
}

func TestHandler_Bounds(t *testing.T) {
	e := newDeskServer(t, directory(), HandlerConfig{})

	rec, body := call(t, e, auth.RolePatient, http.MethodGet, "/api/booking/bounds?date=2024-03-12", "")
	require.Equal(t, http.StatusOK, rec.Code)
	bounds := body["bounds"].(map[string]any)
	assert.Equal(t, "09:00", bounds["min"])
	assert.Equal(t, "20:00", bounds["max"])
	assert.Equal(t, false, body["empty"])

	rec, _ = call(t, e, auth.RolePatient, http.MethodGet, "/api/booking/bounds?date=12-03-2024", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_BookingForm(t *testing.T) {
	e := newDeskServer(t, directory(), HandlerConfig{})

	rec, body := call(t, e, auth.RoleAdmin, http.MethodGet, "/api/booking/form?date=2024-03-13", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["doctors"], 2)
	assert.Len(t, body["patients"], 1)
}

func TestHandler_ValidateBooking(t *testing.T) {
	e := newDeskServer(t, directory(), HandlerConfig{})

	rec, body := call(t, e, auth.RoleAdmin, http.MethodPost, "/api/booking/validate", formJSON(t, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["valid"])

	rec, body = call(t, e, auth.RoleAdmin, http.MethodPost, "/api/booking/validate",
		formJSON(t, func(f map[string]any) { f["duration"] = 20 }))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, false, body["valid"])
	assert.Contains(t, body["fields"], "duration")
}

func TestHandler_Book(t *testing.T) {
	tests := []struct {
		name       string
		createErr  error
		mutate     func(map[string]any)
		wantStatus int
		wantRoot   string
		wantField  string
	}{
		{name: "booked", wantStatus: http.StatusCreated},
		{
			name:       "invalid",
			mutate:     func(f map[string]any) { f["purpose"] = "" },
			wantStatus: http.StatusUnprocessableEntity,
			wantField:  "purpose",
		},
		{
			name:       "conflict",
			createErr:  &clinicapi.ServerError{Op: "create appointment", Status: 409, Message: "doctor already has an appointment at 10:00"},
			wantStatus: http.StatusConflict,
			wantRoot:   "doctor already has an appointment at 10:00",
		},
		{
			name:       "rejected",
			createErr:  &clinicapi.ServerError{Op: "create appointment", Status: 400, Message: "doctor is not available"},
			wantStatus: http.StatusBadRequest,
			wantRoot:   "doctor is not available",
		},
		{
			name:       "unreachable",
			createErr:  &clinicapi.TransportError{Op: "create appointment", Err: errors.New("connection refused")},
			wantStatus: http.StatusBadGateway,
			wantRoot:   clinicapi.TransportNotice,
		},
		{
			name:       "signed out",
			createErr:  &clinicapi.ServerError{Op: "create appointment", Status: 401, Message: "Token expired"},
			wantStatus: http.StatusUnauthorized,
			wantRoot:   SignedOutNotice,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := directory()
			api.createErr = tt.createErr
			e := newDeskServer(t, api, HandlerConfig{})

			rec, body := call(t, e, auth.RoleDoctor, http.MethodPost, "/api/booking", formJSON(t, tt.mutate))
			require.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())

			if tt.wantStatus == http.StatusCreated {
				assert.Equal(t, true, body["success"])
				appt := body["appointment"].(map[string]any)
				assert.Equal(t, "appt-1", appt["_id"])
				assert.Equal(t, "2024-03-13", appt["date"])
				return
			}
			assert.Equal(t, false, body["success"])
			if tt.wantRoot != "" {
				assert.Equal(t, tt.wantRoot, body["root"])
			}
			if tt.wantField != "" {
				assert.Contains(t, body["fields"], tt.wantField)
				assert.Empty(t, api.created)
			}
		})
	}
}

func TestHandler_ScheduleIsForStaff(t *testing.T) {
	api := directory()
	e := newDeskServer(t, api, HandlerConfig{})

	rec, _ := call(t, e, auth.RolePatient, http.MethodGet, "/api/schedule?date=2024-03-13", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	for _, role := range []auth.Role{auth.RoleDoctor, auth.RoleTherapist, auth.RoleAdmin} {
		rec, body := call(t, e, role, http.MethodGet, "/api/schedule?date=2024-03-13&department=general", "")
		require.Equal(t, http.StatusOK, rec.Code, role.String())
		assert.Len(t, body["doctors"], 2, "department filter keeps two general doctors")
		assert.Equal(t, "general", body["filter"].(map[string]any)["department"])
	}

	rec, _ = call(t, e, auth.RoleDoctor, http.MethodGet, "/api/schedule?status=pending", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_ScheduleBackendDown(t *testing.T) {
	api := directory()
	api.apptsErr = &clinicapi.TransportError{Op: "list appointments", Err: errors.New("timeout")}
	e := newDeskServer(t, api, HandlerConfig{})

	rec, body := call(t, e, auth.RoleDoctor, http.MethodGet, "/api/schedule", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, clinicapi.TransportNotice, body["message"])
}

func TestHandler_Dashboard(t *testing.T) {
	api := directory()
	api.appts = []scheduling.Appointment{
		{ID: "a1", Time: "10:00", Duration: 30, Status: scheduling.StatusScheduled},
		{ID: "a2", Time: "08:00", Duration: 30, Status: scheduling.StatusCompleted},
	}
	e := newDeskServer(t, api, HandlerConfig{})

	rec, body := call(t, e, auth.RoleAdmin, http.MethodGet, "/api/dashboard/today", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(2), body["total"])
	assert.Equal(t, "2024-03-12", body["date"])
}

func TestHandler_Search(t *testing.T) {
	e := newDeskServer(t, directory(), HandlerConfig{SearchLimit: 5})

	rec, body := call(t, e, auth.RoleDoctor, http.MethodGet, "/api/search?q=ra", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ra", body["query"])
	suggestions := body["suggestions"].([]any)
	require.Len(t, suggestions, 5)
	assert.Equal(t, "doctor", suggestions[0].(map[string]any)["kind"])

	rec, body = call(t, e, auth.RoleDoctor, http.MethodGet, "/api/search?q=%20", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, body["suggestions"])
}

func TestBearerBackend_ForwardsCallerToken(t *testing.T) {
	var (
		mu   sync.Mutex
		seen []string
	)
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		seen = append(seen, r.Header.Get("Authorization"))
		mu.Unlock()
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer backend.Close()

	client, err := clinicapi.New(backend.URL)
	require.NoError(t, err)
	e := newDeskServer(t, directory(), HandlerConfig{BackendFor: BearerBackend(client)})

	tok := token(t, auth.RoleDoctor)
	req := httptest.NewRequest(http.MethodGet, "/api/search?q=ra", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+tok)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, seen)
	for _, h := range seen {
		assert.Equal(t, "Bearer "+tok, h)
	}
}

func TestHandler_SearchSocket(t *testing.T) {
	hub := websocket.NewHub(zerolog.Nop())
	e := newDeskServer(t, directory(), HandlerConfig{Hub: hub, SearchDelay: 10 * time.Millisecond})
	srv := httptest.NewServer(e)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/search/ws?access_token=" + token(t, auth.RolePatient)
	conn, resp, err := gorillawebsocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	defer conn.Close()

	require.NoError(t, conn.WriteMessage(gorillawebsocket.TextMessage, []byte("dr")))
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))

	var ev websocket.Event
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, websocket.EventSearchResults, ev.Type)

	var payload websocket.SearchPayload
	require.NoError(t, json.Unmarshal(ev.Data, &payload))
	assert.Equal(t, "dr", payload.Query)
	assert.Empty(t, payload.Error)
	assert.Len(t, payload.Suggestions, 5)
}

func TestHandler_LogoutRevokesToken(t *testing.T) {
	store := auth.NewRevocationStore(time.Hour)
	defer store.Close()

	e := echo.New()
	e.HTTPErrorHandler = middleware.ErrorHandler(zerolog.Nop())
	group := e.Group("/api", auth.JWTMiddleware(testJWT), auth.RejectRevoked(store))
	NewHandler(New(directory(), testResolver()), HandlerConfig{Revocations: store, Logger: zerolog.Nop()}).RegisterRoutes(group)

	tok := token(t, auth.RoleDoctor)
	do := func(method, target string) int {
		req := httptest.NewRequest(method, target, nil)
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+tok)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, do(http.MethodGet, "/api/session"))
	assert.Equal(t, http.StatusNoContent, do(http.MethodPost, "/api/session/logout"))
	assert.Equal(t, http.StatusUnauthorized, do(http.MethodGet, "/api/session"))
	assert.Equal(t, 1, store.RevokedForUser("user-7"))
}

func TestHandler_RefreshDirectoryIsAdminOnly(t *testing.T) {
	e := newDeskServer(t, directory(), HandlerConfig{})

	rec, _ := call(t, e, auth.RoleDoctor, http.MethodPost, "/api/directory/refresh", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/directory/refresh", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+token(t, auth.RoleAdmin))
	w := httptest.NewRecorder()
	e.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
}
