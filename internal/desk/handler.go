package desk

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/MrHarsh002/AyurSutra-sub003/internal/domain/scheduling"
	"github.com/MrHarsh002/AyurSutra-sub003/internal/platform/auth"
	"github.com/MrHarsh002/AyurSutra-sub003/internal/platform/clinicapi"
	"github.com/MrHarsh002/AyurSutra-sub003/internal/platform/search"
	"github.com/MrHarsh002/AyurSutra-sub003/internal/platform/telemetry"
	"github.com/MrHarsh002/AyurSutra-sub003/internal/platform/websocket"
)

// BackendFor returns the backend to use for one request, usually the shared
// client bound to the caller's token. Nil means the workflow's own backend.
type BackendFor func(c echo.Context) Backend

// BearerBackend binds client to each request's verified token.
func BearerBackend(client *clinicapi.Client) BackendFor {
	return func(c echo.Context) Backend {
		return client.WithBearer(auth.TokenFromContext(c.Request().Context()))
	}
}

type HandlerConfig struct {
	BackendFor     BackendFor
	Hub            *websocket.Hub
	SearchDelay    time.Duration
	SearchLimit    int
	AllowedOrigins []string
	Metrics        *telemetry.Metrics
	Logger         zerolog.Logger
	// Revocations, when set, enables POST /session/logout.
	Revocations *auth.RevocationStore
}

type Handler struct {
	flow    *Workflow
	cfg     HandlerConfig
	ws      *websocket.Handler
	metrics *telemetry.Metrics
	logger  zerolog.Logger
}

func NewHandler(flow *Workflow, cfg HandlerConfig) *Handler {
	h := &Handler{flow: flow, cfg: cfg, metrics: cfg.Metrics, logger: cfg.Logger}
	if cfg.Hub != nil {
		h.ws = websocket.NewHandler(cfg.Hub, cfg.Logger,
			websocket.WithSearch(h.fetcher, cfg.SearchDelay),
			websocket.WithAllowedOrigins(cfg.AllowedOrigins),
			websocket.WithMetrics(cfg.Metrics))
	}
	return h
}

// RegisterRoutes mounts the desk API on a JWT-protected group. Booking and
// the dashboard are open to every role; the schedule grid is for staff.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	all := api.Group("", auth.RequireRole(auth.AllRoles()...))
	all.GET("/session", h.Session)
	if h.cfg.Revocations != nil {
		all.POST("/session/logout", h.Logout)
	}
	all.GET("/booking/bounds", h.Bounds)
	all.GET("/booking/form", h.BookingForm)
	all.POST("/booking/validate", h.ValidateBooking)
	all.POST("/booking", h.Book)
	all.GET("/dashboard/today", h.Dashboard)
	all.GET("/search", h.Search)
	if h.ws != nil {
		all.GET("/search/ws", h.ws.HandleConnect)
	}

	staff := api.Group("", auth.RequireRole(auth.RoleDoctor, auth.RoleTherapist))
	staff.GET("/schedule", h.Schedule)

	admin := api.Group("", auth.RequireRole(auth.RoleAdmin))
	admin.POST("/directory/refresh", h.RefreshDirectory)
}

func (h *Handler) flowFor(c echo.Context) *Workflow {
	if h.cfg.BackendFor == nil {
		return h.flow
	}
	return h.flow.WithBackend(h.cfg.BackendFor(c))
}

func (h *Handler) fetcher(c echo.Context) search.Fetcher {
	return search.ClientFetcher(h.flowFor(c).api, h.cfg.SearchLimit)
}

type userInfo struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Role      auth.Role `json:"role"`
	RoleLabel string    `json:"roleLabel"`
}

type sessionResponse struct {
	User  userInfo     `json:"user"`
	Views auth.ViewSet `json:"views"`
}

func (h *Handler) Session(c echo.Context) error {
	ctx := c.Request().Context()
	role := auth.RoleFromContext(ctx)
	views, err := auth.Views(role)
	if err != nil {
		return echo.NewHTTPError(http.StatusForbidden, "no views for this role")
	}
	return c.JSON(http.StatusOK, sessionResponse{
		User: userInfo{
			ID:        auth.UserIDFromContext(ctx),
			Name:      auth.UserNameFromContext(ctx),
			Role:      role,
			RoleLabel: role.Display(),
		},
		Views: views,
	})
}

// Logout revokes the caller's token so later requests with it fail.
func (h *Handler) Logout(c echo.Context) error {
	ctx := c.Request().Context()
	claims := auth.ClaimsFromContext(ctx)
	if claims == nil || claims.ID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "token cannot be revoked")
	}
	h.cfg.Revocations.RevokeClaims(claims)
	h.logger.Info().Str("user_id", claims.Subject).Msg("signed out")
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) RefreshDirectory(c echo.Context) error {
	if err := h.flow.RefreshDoctors(c.Request().Context()); err != nil {
		h.logger.Error().Err(err).Msg("doctor cache refresh failed")
		return echo.NewHTTPError(http.StatusServiceUnavailable, "could not clear the doctor cache")
	}
	return c.NoContent(http.StatusNoContent)
}

type boundsResponse struct {
	Date   scheduling.Date       `json:"date"`
	Today  scheduling.Date       `json:"today"`
	Bounds scheduling.SlotBounds `json:"bounds"`
	Empty  bool                  `json:"empty"`
}

func (h *Handler) Bounds(c echo.Context) error {
	date, err := h.dateParam(c)
	if err != nil {
		return err
	}
	r := h.flow.Resolver()
	b := r.Bounds(date)
	return c.JSON(http.StatusOK, boundsResponse{Date: date, Today: r.Today(), Bounds: b, Empty: b.Empty()})
}

func (h *Handler) BookingForm(c echo.Context) error {
	date, err := h.dateParam(c)
	if err != nil {
		return err
	}
	data, err := h.flowFor(c).LoadForm(c.Request().Context(), date)
	if err != nil {
		return loadError(err)
	}
	return c.JSON(http.StatusOK, data)
}

type validationResponse struct {
	Valid   bool                `json:"valid"`
	Booking *scheduling.Booking `json:"booking,omitempty"`
	Fields  map[string]string   `json:"fields,omitempty"`
}

// ValidateBooking runs the form checks without submitting.
func (h *Handler) ValidateBooking(c echo.Context) error {
	var form scheduling.BookingForm
	if err := c.Bind(&form); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	b, err := h.flow.Resolver().Validate(form)
	var verrs scheduling.ValidationErrors
	if errors.As(err, &verrs) {
		return c.JSON(http.StatusUnprocessableEntity, validationResponse{Fields: verrs.ByField()})
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, validationResponse{Valid: true, Booking: b})
}

type bookingFailure struct {
	Success bool `json:"success"`
	*FormError
}

type bookingSuccess struct {
	Success     bool                    `json:"success"`
	Appointment *scheduling.Appointment `json:"appointment"`
}

func (h *Handler) Book(c echo.Context) error {
	var form scheduling.BookingForm
	if err := c.Bind(&form); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	appt, err := h.flowFor(c).Submit(c.Request().Context(), form)
	if err == nil {
		return c.JSON(http.StatusCreated, bookingSuccess{Success: true, Appointment: appt})
	}

	var fe *FormError
	if !errors.As(err, &fe) {
		return echo.NewHTTPError(http.StatusInternalServerError, "booking failed").SetInternal(err)
	}
	var se *clinicapi.ServerError
	status := http.StatusBadGateway
	switch {
	case errors.Is(fe, scheduling.ErrValidation):
		status = http.StatusUnprocessableEntity
	case errors.Is(fe, clinicapi.ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.As(fe, &se) && se.Status < 500:
		status = se.Status
	}
	return c.JSON(status, bookingFailure{FormError: fe})
}

func (h *Handler) Schedule(c echo.Context) error {
	date, err := h.dateParam(c)
	if err != nil {
		return err
	}
	var f scheduling.Filter
	if err := (&echo.DefaultBinder{}).BindQueryParams(c, &f); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid filter")
	}
	if f.Status != "" && !f.Status.Valid() {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid status: "+string(f.Status))
	}

	sched, err := h.flowFor(c).LoadSchedule(c.Request().Context(), date, f)
	if err != nil {
		return loadError(err)
	}
	return c.JSON(http.StatusOK, sched)
}

func (h *Handler) Dashboard(c echo.Context) error {
	d, err := h.flowFor(c).Dashboard(c.Request().Context())
	if err != nil {
		return loadError(err)
	}
	return c.JSON(http.StatusOK, d)
}

type searchResponse struct {
	Query       string              `json:"query"`
	Suggestions []search.Suggestion `json:"suggestions"`
}

// Search is the one-shot lookup; /search/ws is the debounced stream.
func (h *Handler) Search(c echo.Context) error {
	q := strings.TrimSpace(c.QueryParam("q"))
	if q == "" {
		return c.JSON(http.StatusOK, searchResponse{Suggestions: []search.Suggestion{}})
	}
	suggestions, err := h.fetcher(c)(c.Request().Context(), q)
	if err != nil {
		h.metrics.ObserveSearch("error")
		return loadError(err)
	}
	h.metrics.ObserveSearch("delivered")
	if suggestions == nil {
		suggestions = []search.Suggestion{}
	}
	return c.JSON(http.StatusOK, searchResponse{Query: q, Suggestions: suggestions})
}

// dateParam reads ?date=, defaulting to the clinic's today.
func (h *Handler) dateParam(c echo.Context) (scheduling.Date, error) {
	raw := c.QueryParam("date")
	if raw == "" {
		return h.flow.Resolver().Today(), nil
	}
	d, err := scheduling.ParseDate(raw)
	if err != nil {
		return scheduling.Date{}, echo.NewHTTPError(http.StatusBadRequest, "date must be YYYY-MM-DD")
	}
	return d, nil
}

// loadError maps a failed backend read to the status the browser sees.
func loadError(err error) error {
	var se *clinicapi.ServerError
	switch {
	case errors.Is(err, clinicapi.ErrUnauthorized):
		return echo.NewHTTPError(http.StatusUnauthorized, SignedOutNotice).SetInternal(err)
	case errors.As(err, &se) && se.Status < 500:
		return echo.NewHTTPError(se.Status, se.Message).SetInternal(err)
	}
	return echo.NewHTTPError(http.StatusBadGateway, clinicapi.TransportNotice).SetInternal(err)
}
