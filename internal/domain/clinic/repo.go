package clinic

import (
	"context"

	"github.com/MrHarsh002/AyurSutra-sub003/internal/domain/scheduling"
)

type DoctorRepository interface {
	List(ctx context.Context, f DoctorFilter) ([]scheduling.Doctor, int, error)
	GetByID(ctx context.Context, id string) (*scheduling.Doctor, error)
	Create(ctx context.Context, d *scheduling.Doctor) error
}

type PatientRepository interface {
	List(ctx context.Context, f PatientFilter) ([]scheduling.Patient, error)
	GetByID(ctx context.Context, id string) (*scheduling.Patient, error)
	Create(ctx context.Context, p *scheduling.Patient) error
}

type AppointmentRepository interface {
	ListByDate(ctx context.Context, date scheduling.Date) ([]scheduling.Appointment, error)
	Create(ctx context.Context, a *scheduling.Appointment) error
	// LockDoctor serialises bookings for one doctor until the surrounding
	// transaction ends.
	LockDoctor(ctx context.Context, doctorID string) error
	// FirstOverlap returns the earliest slot-holding appointment of the doctor
	// on date intersecting [start, end), or nil.
	FirstOverlap(ctx context.Context, doctorID string, date scheduling.Date, start, end scheduling.TimeOfDay) (*scheduling.Appointment, error)
}
