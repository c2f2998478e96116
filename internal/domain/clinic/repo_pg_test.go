package clinic

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"

	"github.com/MrHarsh002/AyurSutra-sub003/internal/domain/scheduling"
	"github.com/MrHarsh002/AyurSutra-sub003/internal/platform/db"
)

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	t.Cleanup(mock.Close)
	return mock
}

func expectationsMet(t *testing.T, mock pgxmock.PgxPoolIface) {
	t.Helper()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

var doctorColumns = []string{"id", "name", "email", "specialization", "is_available", "consultation_fee", "rating"}

func TestDoctorRepo_ListFiltersAndPages(t *testing.T) {
	mock := newMock(t)
	repo := NewDoctorRepo(mock)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM doctor WHERE is_available = \$1 AND \(name ILIKE \$2`).
		WithArgs(true, "%rao%").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(11))
	mock.ExpectQuery(`SELECT id::text, name, email, specialization.* FROM doctor WHERE .* ORDER BY name, id LIMIT \$3 OFFSET \$4`).
		WithArgs(true, "%rao%", 10, 10).
		WillReturnRows(pgxmock.NewRows(doctorColumns).
			AddRow("d-1", "Dr. Ananya Rao", "ananya@x.dev", []string{"Panchakarma"}, true, 800.0, 4.8))

	avail := true
	doctors, total, err := repo.List(context.Background(), DoctorFilter{Available: &avail, Search: " rao ", Limit: 10, Offset: 10})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 11 {
		t.Errorf("total = %d, want 11", total)
	}
	if len(doctors) != 1 || doctors[0].Name != "Dr. Ananya Rao" || !doctors[0].Available {
		t.Errorf("doctors = %+v", doctors)
	}
	if doctors[0].Departments[0] != "Panchakarma" {
		t.Errorf("departments = %v", doctors[0].Departments)
	}
	expectationsMet(t, mock)
}

func TestDoctorRepo_ListUnfiltered(t *testing.T) {
	mock := newMock(t)
	repo := NewDoctorRepo(mock)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM doctor$`).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(`FROM doctor ORDER BY name, id$`).
		WillReturnRows(pgxmock.NewRows(doctorColumns))

	doctors, total, err := repo.List(context.Background(), DoctorFilter{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 0 || doctors == nil || len(doctors) != 0 {
		t.Errorf("expected empty non-nil page, got %v (%d)", doctors, total)
	}
	expectationsMet(t, mock)
}

func TestDoctorRepo_GetByIDNotFound(t *testing.T) {
	mock := newMock(t)
	repo := NewDoctorRepo(mock)

	mock.ExpectQuery(`FROM doctor WHERE id = \$1`).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	if _, err := repo.GetByID(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	expectationsMet(t, mock)
}

func TestPatientRepo_ListEscapesSearch(t *testing.T) {
	mock := newMock(t)
	repo := NewPatientRepo(mock)

	mock.ExpectQuery(`FROM patient WHERE status = \$1 AND \(name ILIKE \$2 OR email ILIKE \$2 OR phone ILIKE \$2\) ORDER BY name, id LIMIT \$3`).
		WithArgs("active", `%50\%%`, 8).
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "email", "phone", "status"}).
			AddRow("p-1", "Rohan", "rohan@example.com", "+91 1", "active"))

	patients, err := repo.List(context.Background(), PatientFilter{Status: "active", Search: "50%", Limit: 8})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(patients) != 1 || patients[0].Email != "rohan@example.com" {
		t.Errorf("patients = %+v", patients)
	}
	expectationsMet(t, mock)
}

func TestPatientRepo_CreateDefaultsToActive(t *testing.T) {
	mock := newMock(t)
	repo := NewPatientRepo(mock)

	mock.ExpectQuery(`INSERT INTO patient`).
		WithArgs("Priya", "priya@example.com", "", "active").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow("p-2"))

	p := &scheduling.Patient{Name: "Priya", Email: "priya@example.com"}
	if err := repo.Create(context.Background(), p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.ID != "p-2" || p.Status != "active" {
		t.Errorf("patient = %+v", p)
	}
	expectationsMet(t, mock)
}

var appointmentColumns = []string{
	"id", "patient_id", "doctor_id", "appt_date", "start_minute", "duration_minutes",
	"type", "priority", "status", "purpose", "notes", "location", "reminder_enabled", "created_at",
}

func TestAppointmentRepo_ListByDate(t *testing.T) {
	mock := newMock(t)
	repo := NewAppointmentRepo(mock)
	created := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`FROM appointment\s+WHERE appt_date = \$1 ORDER BY start_minute`).
		WithArgs("2024-03-13").
		WillReturnRows(pgxmock.NewRows(appointmentColumns).
			AddRow("a-1", "p-1", "d-1", time.Date(2024, 3, 13, 0, 0, 0, 0, time.UTC), 9*60+30, 45,
				"therapy", "high", "confirmed", "Abhyanga session", "", "Therapy Room A", true, created))

	appts, err := repo.ListByDate(context.Background(), scheduling.Date{Year: 2024, Month: time.March, Day: 13})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(appts) != 1 {
		t.Fatalf("expected 1 appointment, got %d", len(appts))
	}
	a := appts[0]
	if a.Time != "09:30" || a.Duration != 45 || a.Date.String() != "2024-03-13" {
		t.Errorf("unexpected slot %s %s %d", a.Date, a.Time, a.Duration)
	}
	if a.Status != scheduling.StatusConfirmed || a.Location != scheduling.TherapyRoomA {
		t.Errorf("unexpected appointment %+v", a)
	}
	if a.CreatedAt == nil || !a.CreatedAt.Equal(created) {
		t.Errorf("created_at = %v", a.CreatedAt)
	}
	expectationsMet(t, mock)
}

func TestAppointmentRepo_Create(t *testing.T) {
	mock := newMock(t)
	repo := NewAppointmentRepo(mock)
	created := time.Date(2024, 3, 12, 9, 1, 0, 0, time.UTC)

	mock.ExpectQuery(`INSERT INTO appointment`).
		WithArgs("p-1", "d-1", "2024-03-13", 600, 30,
			"consultation", "medium", "scheduled", "Routine checkup", "", "Room 101", true).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow("a-9", created))

	a := &scheduling.Appointment{
		PatientID: "p-1", DoctorID: "d-1",
		Date: scheduling.Date{Year: 2024, Month: time.March, Day: 13}, Time: "10:00", Duration: 30,
		Type: scheduling.TypeConsultation, Priority: scheduling.PriorityMedium, Status: scheduling.StatusScheduled,
		Purpose: "Routine checkup", Location: scheduling.RoomOneOhOne, ReminderEnabled: true,
	}
	if err := repo.Create(context.Background(), a); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.ID != "a-9" || a.CreatedAt == nil {
		t.Errorf("appointment = %+v", a)
	}
	expectationsMet(t, mock)
}

func TestAppointmentRepo_FirstOverlap(t *testing.T) {
	date := scheduling.Date{Year: 2024, Month: time.March, Day: 13}

	t.Run("none", func(t *testing.T) {
		mock := newMock(t)
		repo := NewAppointmentRepo(mock)
		mock.ExpectQuery(`status <> ALL\(\$3\)\s+AND start_minute < \$4 AND start_minute \+ duration_minutes > \$5`).
			WithArgs("d-1", "2024-03-13", []string{"cancelled", "no-show"}, 630, 600).
			WillReturnError(pgx.ErrNoRows)

		clash, err := repo.FirstOverlap(context.Background(), "d-1", date, scheduling.Clock(10, 0), scheduling.Clock(10, 30))
		if err != nil || clash != nil {
			t.Errorf("expected no clash, got %v, %v", clash, err)
		}
		expectationsMet(t, mock)
	})

	t.Run("found", func(t *testing.T) {
		mock := newMock(t)
		repo := NewAppointmentRepo(mock)
		mock.ExpectQuery(`FROM appointment`).
			WithArgs("d-1", "2024-03-13", []string{"cancelled", "no-show"}, 630, 600).
			WillReturnRows(pgxmock.NewRows(appointmentColumns).
				AddRow("a-1", "p-1", "d-1", time.Date(2024, 3, 13, 0, 0, 0, 0, time.UTC), 585, 30,
					"consultation", "medium", "scheduled", "Routine checkup", "", "Room 101", true, time.Now()))

		clash, err := repo.FirstOverlap(context.Background(), "d-1", date, scheduling.Clock(10, 0), scheduling.Clock(10, 30))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if clash == nil || clash.Time != "09:45" {
			t.Errorf("clash = %+v", clash)
		}
		expectationsMet(t, mock)
	})
}

func TestAppointmentRepo_LockJoinsTransaction(t *testing.T) {
	mock := newMock(t)
	repo := NewAppointmentRepo(mock)

	mock.ExpectBegin()
	mock.ExpectExec(`SELECT pg_advisory_xact_lock\(hashtext\(\$1\)\)`).
		WithArgs("doctor:d-1").
		WillReturnResult(pgxmock.NewResult("SELECT", 1))
	mock.ExpectCommit()

	err := db.Transactor(mock)(context.Background(), func(ctx context.Context) error {
		return repo.LockDoctor(ctx, "d-1")
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expectationsMet(t, mock)
}
