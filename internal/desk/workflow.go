// Package desk is the front-desk booking workflow: it loads what the booking
// form and the schedule grid need, validates and submits bookings, and maps
// every failure to something the form can show.
package desk

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/MrHarsh002/AyurSutra-sub003/internal/domain/scheduling"
	"github.com/MrHarsh002/AyurSutra-sub003/internal/platform/cache"
	"github.com/MrHarsh002/AyurSutra-sub003/internal/platform/clinicapi"
	"github.com/MrHarsh002/AyurSutra-sub003/internal/platform/telemetry"
	"github.com/MrHarsh002/AyurSutra-sub003/internal/platform/websocket"
)

// directoryLimit is the page size used to pull whole selection lists.
const directoryLimit = 100

// Backend is the clinic API as the desk uses it. *clinicapi.Client
// implements it.
type Backend interface {
	ListDoctors(ctx context.Context, q clinicapi.DoctorQuery) (*clinicapi.DoctorPage, error)
	ListPatients(ctx context.Context, q clinicapi.PatientQuery) ([]scheduling.Patient, error)
	CreateAppointment(ctx context.Context, b scheduling.Booking) (*scheduling.Appointment, error)
	TodayAppointments(ctx context.Context) ([]scheduling.Appointment, error)
	AppointmentsOn(ctx context.Context, date scheduling.Date) ([]scheduling.Appointment, error)
}

// SessionGuard ends the session when the server rejects its credentials.
// *session.Manager implements it.
type SessionGuard interface {
	HandleUnauthorized(ctx context.Context, err error) bool
}

type Workflow struct {
	api       Backend
	resolver  *scheduling.Resolver
	doctors   *cache.DoctorCache
	guard     SessionGuard
	publisher websocket.EventPublisher
	slotStep  time.Duration
	metrics   *telemetry.Metrics
	logger    zerolog.Logger
}

type Option func(*Workflow)

func WithDoctorCache(c *cache.DoctorCache) Option {
	return func(w *Workflow) { w.doctors = c }
}

func WithSessionGuard(g SessionGuard) Option {
	return func(w *Workflow) { w.guard = g }
}

// WithPublisher announces every booked appointment on its schedule topic.
func WithPublisher(p websocket.EventPublisher) Option {
	return func(w *Workflow) { w.publisher = p }
}

// WithSlotStep sets the schedule grid's row step. It must be a multiple of
// scheduling.SlotStep.
func WithSlotStep(d time.Duration) Option {
	return func(w *Workflow) {
		if d > 0 {
			w.slotStep = d
		}
	}
}

func WithMetrics(m *telemetry.Metrics) Option {
	return func(w *Workflow) { w.metrics = m }
}

func WithLogger(l zerolog.Logger) Option {
	return func(w *Workflow) { w.logger = l }
}

func New(api Backend, resolver *scheduling.Resolver, opts ...Option) *Workflow {
	w := &Workflow{
		api:      api,
		resolver: resolver,
		slotStep: 30 * time.Minute,
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// WithBackend returns a copy of w that talks to api, typically the same
// client bound to another caller's token.
func (w *Workflow) WithBackend(api Backend) *Workflow {
	cp := *w
	cp.api = api
	return &cp
}

func (w *Workflow) Resolver() *scheduling.Resolver { return w.resolver }

// FormData is everything the booking form needs for one date.
type FormData struct {
	Date     scheduling.Date       `json:"date"`
	Today    scheduling.Date       `json:"today"`
	Bounds   scheduling.SlotBounds `json:"bounds"`
	Doctors  []scheduling.Doctor   `json:"doctors"`
	Patients []scheduling.Patient  `json:"patients"`
}

// LoadForm fetches the selectable doctors and patients concurrently.
func (w *Workflow) LoadForm(ctx context.Context, date scheduling.Date) (*FormData, error) {
	var (
		doctors  []scheduling.Doctor
		patients []scheduling.Patient
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		list, err := w.doctorList(gctx, true)
		if err != nil {
			return err
		}
		doctors = scheduling.AvailableOnly(list)
		return nil
	})
	g.Go(func() error {
		list, err := w.api.ListPatients(gctx, clinicapi.PatientQuery{
			Status: scheduling.PatientStatusActive,
			Limit:  directoryLimit,
		})
		if err != nil {
			return err
		}
		patients = scheduling.ActiveOnly(list)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, w.fail(ctx, "load form", err)
	}

	return &FormData{
		Date:     date,
		Today:    w.resolver.Today(),
		Bounds:   w.resolver.Bounds(date),
		Doctors:  doctors,
		Patients: patients,
	}, nil
}

// Schedule is the projected grid for one day.
type Schedule struct {
	Filter scheduling.Filter `json:"filter"`
	*scheduling.Grid
}

// LoadSchedule fetches doctors and the day's appointments concurrently and
// projects only once both have arrived. Either failure fails the load.
func (w *Workflow) LoadSchedule(ctx context.Context, date scheduling.Date, f scheduling.Filter) (*Schedule, error) {
	slots, err := scheduling.DaySlots(w.resolver.Open, w.resolver.Close, w.slotStep)
	if err != nil {
		return nil, err
	}

	var (
		doctors []scheduling.Doctor
		appts   []scheduling.Appointment
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		list, err := w.doctorList(gctx, false)
		doctors = list
		return err
	})
	g.Go(func() error {
		list, err := w.api.AppointmentsOn(gctx, date)
		appts = list
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, w.fail(ctx, "load schedule", err)
	}

	doctors, appts = scheduling.ApplyFilter(doctors, appts, f)
	grid := scheduling.Project(doctors, appts, slots)
	grid.Date = date
	if len(grid.Anomalies) > 0 {
		w.logger.Warn().Str("date", date.String()).Int("count", len(grid.Anomalies)).
			Msg("schedule has double-booked cells; showing the first appointment in each")
	}
	return &Schedule{Filter: f, Grid: grid}, nil
}

// Submit validates form and, only if it is valid, sends it to the backend.
// Every failure is a *FormError.
func (w *Workflow) Submit(ctx context.Context, form scheduling.BookingForm) (*scheduling.Appointment, error) {
	booking, err := w.resolver.Validate(form)
	if err != nil {
		var verrs scheduling.ValidationErrors
		if errors.As(err, &verrs) {
			w.metrics.ObserveBooking("invalid")
			return nil, fieldErrors(verrs)
		}
		return nil, err
	}

	appt, err := w.api.CreateAppointment(ctx, *booking)
	if err != nil {
		if w.guard != nil {
			w.guard.HandleUnauthorized(ctx, err)
		}
		fe, outcome := rootError(err)
		w.metrics.ObserveBooking(outcome)
		w.logger.Info().Err(err).Str("outcome", outcome).Str("doctor", booking.Doctor).
			Str("date", booking.Date.String()).Str("time", booking.Time.String()).Msg("booking failed")
		return nil, fe
	}

	if appt.Date.IsZero() {
		appt.Date = booking.Date
	}
	w.metrics.ObserveBooking("booked")
	w.logger.Info().Str("appointment_id", appt.ID).Str("doctor", appt.DoctorID).
		Str("date", appt.Date.String()).Str("time", appt.Time).Msg("appointment booked")
	w.announce(ctx, *appt)
	return appt, nil
}

func (w *Workflow) announce(ctx context.Context, appt scheduling.Appointment) {
	if w.publisher == nil {
		return
	}
	ev, err := websocket.NewAppointmentEvent(appt)
	if err == nil {
		err = w.publisher.Publish(ctx, ev)
	}
	if err != nil {
		w.logger.Warn().Err(err).Str("appointment_id", appt.ID).Msg("could not announce appointment")
	}
}

// Dashboard summarises today's appointments.
type Dashboard struct {
	Date         scheduling.Date           `json:"date"`
	Total        int                       `json:"total"`
	ByStatus     map[scheduling.Status]int `json:"byStatus"`
	Upcoming     []scheduling.Appointment  `json:"upcoming"`
	Appointments []scheduling.Appointment  `json:"appointments"`
}

// Dashboard loads today's appointments. Upcoming holds those still holding
// a slot that start at or after the current time, earliest first.
func (w *Workflow) Dashboard(ctx context.Context) (*Dashboard, error) {
	appts, err := w.api.TodayAppointments(ctx)
	if err != nil {
		return nil, w.fail(ctx, "load dashboard", err)
	}

	now := w.resolver.CurrentTime()
	d := &Dashboard{
		Date:         w.resolver.Today(),
		Total:        len(appts),
		ByStatus:     make(map[scheduling.Status]int),
		Upcoming:     []scheduling.Appointment{},
		Appointments: appts,
	}
	for _, a := range appts {
		d.ByStatus[a.Status]++
		start, _, ok := a.Interval()
		if ok && start >= now && a.Status.Occupies() {
			d.Upcoming = append(d.Upcoming, a)
		}
	}
	sort.SliceStable(d.Upcoming, func(i, j int) bool { return d.Upcoming[i].Time < d.Upcoming[j].Time })
	return d, nil
}

// RefreshDoctors drops the cached doctor lists so the next load goes to the
// backend.
func (w *Workflow) RefreshDoctors(ctx context.Context) error {
	if err := w.doctors.Invalidate(ctx); err != nil {
		return fmt.Errorf("refresh doctors: %w", err)
	}
	w.logger.Info().Msg("doctor cache cleared")
	return nil
}

func (w *Workflow) doctorList(ctx context.Context, available bool) ([]scheduling.Doctor, error) {
	return w.doctors.Doctors(ctx, available, func(ctx context.Context) ([]scheduling.Doctor, error) {
		page, err := w.api.ListDoctors(ctx, clinicapi.DoctorQuery{Available: available, Limit: directoryLimit})
		if err != nil {
			return nil, err
		}
		return page.Doctors, nil
	})
}

// fail routes authorization failures through the session guard and wraps
// the rest with the operation name.
func (w *Workflow) fail(ctx context.Context, op string, err error) error {
	if w.guard != nil {
		w.guard.HandleUnauthorized(ctx, err)
	}
	w.logger.Warn().Err(err).Str("op", op).Msg("desk load failed")
	return fmt.Errorf("%s: %w", op, err)
}
