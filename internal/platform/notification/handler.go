package notification

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/MrHarsh002/AyurSutra-sub003/internal/platform/auth"
)

type Handler struct {
	mgr *Manager
}

func NewHandler(mgr *Manager) *Handler {
	return &Handler{mgr: mgr}
}

// RegisterRoutes mounts the admin view of the reminder queue.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/reminders", auth.RequireRole(auth.RoleAdmin))
	g.GET("", h.List)
	g.GET("/stats", h.Stats)
	g.GET("/:id", h.Get)
}

type listResponse struct {
	Success   bool           `json:"success"`
	Reminders []Notification `json:"reminders"`
	Count     int            `json:"count"`
}

func (h *Handler) List(c echo.Context) error {
	status := Status(c.QueryParam("status"))
	switch status {
	case "", StatusPending, StatusSent, StatusFailed:
	default:
		return echo.NewHTTPError(http.StatusBadRequest, "status must be pending, sent or failed")
	}
	items := h.mgr.List(c.Request().Context(), status)
	return c.JSON(http.StatusOK, listResponse{Success: true, Reminders: items, Count: len(items)})
}

func (h *Handler) Get(c echo.Context) error {
	n, err := h.mgr.Get(c.Request().Context(), c.Param("id"))
	if errors.Is(err, ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "reminder not found")
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, n)
}

func (h *Handler) Stats(c echo.Context) error {
	return c.JSON(http.StatusOK, h.mgr.Stats())
}
