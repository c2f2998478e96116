package clinic

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/MrHarsh002/AyurSutra-sub003/internal/domain/scheduling"
	"github.com/MrHarsh002/AyurSutra-sub003/internal/platform/auth"
	"github.com/MrHarsh002/AyurSutra-sub003/pkg/pagination"
)

type Handler struct {
	svc    *Service
	logger zerolog.Logger
}

func NewHandler(svc *Service, logger zerolog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// RegisterRoutes mounts the clinic API on a JWT-protected group. Every role
// may read the directory and book; ownership rules are not enforced here.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("", auth.RequireRole(auth.AllRoles()...))
	g.GET("/doctors", h.ListDoctors)
	g.GET("/patients", h.ListPatients)
	g.GET("/appointments", h.ListAppointments)
	g.GET("/appointments/today", h.TodayAppointments)
	g.POST("/appointments", h.CreateAppointment)
}

type errorBody struct {
	Success bool                    `json:"success"`
	Message string                  `json:"message"`
	Errors  []scheduling.FieldError `json:"errors,omitempty"`
}

type doctorsResponse struct {
	Success bool `json:"success"`
	DoctorPage
}

type patientsResponse struct {
	Success  bool                 `json:"success"`
	Patients []scheduling.Patient `json:"patients"`
	Total    int                  `json:"total"`
}

type appointmentsResponse struct {
	Success      bool                     `json:"success"`
	Appointments []scheduling.Appointment `json:"appointments"`
	Count        int                      `json:"count"`
}

type createdResponse struct {
	Success bool                    `json:"success"`
	Message string                  `json:"message"`
	Data    *scheduling.Appointment `json:"data"`
}

func (h *Handler) ListDoctors(c echo.Context) error {
	pg := pagination.FromContext(c)
	f := DoctorFilter{Search: c.QueryParam("search"), Limit: pg.Limit, Offset: pg.Offset()}
	if v := c.QueryParam("available"); v != "" {
		avail, err := strconv.ParseBool(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "available must be true or false")
		}
		f.Available = &avail
	}

	doctors, total, err := h.svc.ListDoctors(c.Request().Context(), f)
	if err != nil {
		return h.internal(c, err)
	}
	return c.JSON(http.StatusOK, doctorsResponse{
		Success: true,
		DoctorPage: DoctorPage{
			Doctors:    doctors,
			Total:      total,
			TotalPages: pg.TotalPages(total),
			Page:       pg.Page,
		},
	})
}

func (h *Handler) ListPatients(c echo.Context) error {
	pg := pagination.FromContext(c)
	patients, err := h.svc.ListPatients(c.Request().Context(), PatientFilter{
		Status: c.QueryParam("status"),
		Search: c.QueryParam("search"),
		Limit:  pg.Limit,
	})
	if err != nil {
		return h.internal(c, err)
	}
	return c.JSON(http.StatusOK, patientsResponse{Success: true, Patients: patients, Total: len(patients)})
}

// ListAppointments returns the appointments on ?date=, defaulting to today.
func (h *Handler) ListAppointments(c echo.Context) error {
	ctx := c.Request().Context()
	var (
		appts []scheduling.Appointment
		err   error
	)
	if raw := c.QueryParam("date"); raw != "" {
		date, perr := scheduling.ParseDate(raw)
		if perr != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "date must be YYYY-MM-DD")
		}
		appts, err = h.svc.AppointmentsOn(ctx, date)
	} else {
		appts, err = h.svc.Today(ctx)
	}
	if err != nil {
		return h.internal(c, err)
	}
	return c.JSON(http.StatusOK, appointmentsResponse{Success: true, Appointments: appts, Count: len(appts)})
}

func (h *Handler) TodayAppointments(c echo.Context) error {
	appts, err := h.svc.Today(c.Request().Context())
	if err != nil {
		return h.internal(c, err)
	}
	return c.JSON(http.StatusOK, appointmentsResponse{Success: true, Appointments: appts, Count: len(appts)})
}

func (h *Handler) CreateAppointment(c echo.Context) error {
	var form scheduling.BookingForm
	if err := c.Bind(&form); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	appt, err := h.svc.CreateAppointment(c.Request().Context(), form)
	if err != nil {
		var verrs scheduling.ValidationErrors
		var rej *Rejection
		switch {
		case errors.As(err, &verrs):
			return c.JSON(http.StatusBadRequest, errorBody{Message: verrs[0].Message, Errors: verrs})
		case errors.As(err, &rej) && errors.Is(rej, ErrConflict):
			return echo.NewHTTPError(http.StatusConflict, rej.Message)
		case errors.As(err, &rej):
			return echo.NewHTTPError(http.StatusBadRequest, rej.Message)
		}
		return h.internal(c, err)
	}
	return c.JSON(http.StatusCreated, createdResponse{
		Success: true,
		Message: "Appointment created successfully",
		Data:    appt,
	})
}

func (h *Handler) internal(c echo.Context, err error) error {
	h.logger.Error().Err(err).Str("path", c.Path()).Msg("clinic request failed")
	return echo.NewHTTPError(http.StatusInternalServerError, "internal server error").SetInternal(err)
}
