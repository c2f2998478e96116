package clinic

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/MrHarsh002/AyurSutra-sub003/internal/domain/scheduling"
	"github.com/MrHarsh002/AyurSutra-sub003/internal/platform/db"
)

type Service struct {
	doctors  DoctorRepository
	patients PatientRepository
	appts    AppointmentRepository
	inTx     db.TxFunc
	resolver *scheduling.Resolver
	logger   zerolog.Logger

	reminders    ReminderQueue
	reminderLead time.Duration
}

func NewService(doctors DoctorRepository, patients PatientRepository, appts AppointmentRepository,
	inTx db.TxFunc, resolver *scheduling.Resolver, logger zerolog.Logger) *Service {
	return &Service{
		doctors:  doctors,
		patients: patients,
		appts:    appts,
		inTx:     inTx,
		resolver: resolver,
		logger:   logger,
	}
}

func (s *Service) ListDoctors(ctx context.Context, f DoctorFilter) ([]scheduling.Doctor, int, error) {
	return s.doctors.List(ctx, f)
}

func (s *Service) ListPatients(ctx context.Context, f PatientFilter) ([]scheduling.Patient, error) {
	return s.patients.List(ctx, f)
}

func (s *Service) AppointmentsOn(ctx context.Context, date scheduling.Date) ([]scheduling.Appointment, error) {
	if date.IsZero() {
		return nil, fmt.Errorf("date is required")
	}
	return s.appts.ListByDate(ctx, date)
}

// Today returns the appointments on the clinic's current date.
func (s *Service) Today(ctx context.Context) ([]scheduling.Appointment, error) {
	return s.appts.ListByDate(ctx, s.resolver.Today())
}

// CreateAppointment validates form against the server clock and books it.
// The conflict check and the insert share a transaction holding the
// doctor's advisory lock, so two desks cannot both win the same slot.
func (s *Service) CreateAppointment(ctx context.Context, form scheduling.BookingForm) (*scheduling.Appointment, error) {
	booking, err := s.resolver.Validate(form)
	if err != nil {
		return nil, err
	}
	if _, err := uuid.Parse(booking.Patient); err != nil {
		return nil, reject(ErrInvalid, "patient not found")
	}
	if _, err := uuid.Parse(booking.Doctor); err != nil {
		return nil, reject(ErrInvalid, "doctor not found")
	}

	appt := booking.Appointment()
	start := booking.Time
	end := start.Add(time.Duration(booking.Duration) * time.Minute)

	var patient *scheduling.Patient
	var doctor *scheduling.Doctor
	err = s.inTx(ctx, func(ctx context.Context) error {
		if err := s.appts.LockDoctor(ctx, booking.Doctor); err != nil {
			return err
		}

		var err error
		patient, err = s.patients.GetByID(ctx, booking.Patient)
		if errors.Is(err, ErrNotFound) {
			return reject(ErrInvalid, "patient not found")
		}
		if err != nil {
			return fmt.Errorf("load patient: %w", err)
		}
		if patient.Status != scheduling.PatientStatusActive {
			return reject(ErrInvalid, "patient is not active")
		}

		doctor, err = s.doctors.GetByID(ctx, booking.Doctor)
		if errors.Is(err, ErrNotFound) {
			return reject(ErrInvalid, "doctor not found")
		}
		if err != nil {
			return fmt.Errorf("load doctor: %w", err)
		}
		if !doctor.Available {
			return reject(ErrInvalid, "doctor is not available")
		}

		clash, err := s.appts.FirstOverlap(ctx, booking.Doctor, booking.Date, start, end)
		if err != nil {
			return err
		}
		if clash != nil {
			return reject(ErrConflict, "doctor already has an appointment at %s", clash.Time)
		}

		return s.appts.Create(ctx, &appt)
	})
	if err != nil {
		var rej *Rejection
		if errors.As(err, &rej) {
			s.logger.Info().Str("doctor", booking.Doctor).Str("date", booking.Date.String()).
				Str("time", start.String()).Str("reason", rej.Message).Msg("booking rejected")
		}
		return nil, err
	}

	s.logger.Info().Str("appointment_id", appt.ID).Str("doctor", appt.DoctorID).
		Str("date", appt.Date.String()).Str("time", appt.Time).Msg("appointment booked")
	s.queueReminder(ctx, appt, patient, doctor, start.On(booking.Date, s.resolver.Location))
	return &appt, nil
}
