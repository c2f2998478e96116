package clinic

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/MrHarsh002/AyurSutra-sub003/internal/domain/scheduling"
	"github.com/MrHarsh002/AyurSutra-sub003/internal/platform/db"
)

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// pgRepo is embedded by every repository so each joins a transaction put on
// the context by db.Transactor.
type pgRepo struct {
	pool db.Querier
}

func (r pgRepo) conn(ctx context.Context) querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

// where accumulates AND-ed conditions and their positional arguments.
type where struct {
	conds []string
	args  []any
}

func (w *where) add(cond string, arg any) {
	w.args = append(w.args, arg)
	w.conds = append(w.conds, strings.ReplaceAll(cond, "?", fmt.Sprintf("$%d", len(w.args))))
}

func (w *where) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

func (w *where) next() string { return fmt.Sprintf("$%d", len(w.args)+1) }

func like(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.TrimSpace(s)) + "%"
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// -- Doctor Repository --

type doctorRepoPG struct{ pgRepo }

func NewDoctorRepo(pool db.Querier) DoctorRepository {
	return &doctorRepoPG{pgRepo{pool: pool}}
}

const doctorCols = `id::text, name, email, specialization, is_available, consultation_fee::float8, rating::float8`

func scanDoctor(row pgx.Row) (*scheduling.Doctor, error) {
	var d scheduling.Doctor
	if err := row.Scan(&d.ID, &d.Name, &d.Email, &d.Departments, &d.Available, &d.ConsultationFee, &d.Rating); err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *doctorRepoPG) List(ctx context.Context, f DoctorFilter) ([]scheduling.Doctor, int, error) {
	var w where
	if f.Available != nil {
		w.add("is_available = ?", *f.Available)
	}
	if strings.TrimSpace(f.Search) != "" {
		w.add("(name ILIKE ? OR array_to_string(specialization, ' ') ILIKE ?)", like(f.Search))
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM doctor`+w.String(), w.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count doctors: %w", err)
	}

	query := `SELECT ` + doctorCols + ` FROM doctor` + w.String() + ` ORDER BY name, id`
	args := w.args
	if f.Limit > 0 {
		query += ` LIMIT ` + w.next() + ` OFFSET ` + fmt.Sprintf("$%d", len(w.args)+2)
		args = append(args, f.Limit, f.Offset)
	}
	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list doctors: %w", err)
	}
	defer rows.Close()

	doctors := []scheduling.Doctor{}
	for rows.Next() {
		d, err := scanDoctor(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan doctor: %w", err)
		}
		doctors = append(doctors, *d)
	}
	return doctors, total, rows.Err()
}

func (r *doctorRepoPG) GetByID(ctx context.Context, id string) (*scheduling.Doctor, error) {
	d, err := scanDoctor(r.conn(ctx).QueryRow(ctx, `SELECT `+doctorCols+` FROM doctor WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return d, nil
}

func (r *doctorRepoPG) Create(ctx context.Context, d *scheduling.Doctor) error {
	if d.Departments == nil {
		d.Departments = []string{}
	}
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO doctor (name, email, specialization, is_available, consultation_fee, rating)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id::text`,
		d.Name, d.Email, d.Departments, d.Available, d.ConsultationFee, d.Rating,
	).Scan(&d.ID)
}

// -- Patient Repository --

type patientRepoPG struct{ pgRepo }

func NewPatientRepo(pool db.Querier) PatientRepository {
	return &patientRepoPG{pgRepo{pool: pool}}
}

const patientCols = `id::text, name, email, phone, status`

func scanPatient(row pgx.Row) (*scheduling.Patient, error) {
	var p scheduling.Patient
	if err := row.Scan(&p.ID, &p.Name, &p.Email, &p.Phone, &p.Status); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *patientRepoPG) List(ctx context.Context, f PatientFilter) ([]scheduling.Patient, error) {
	var w where
	if f.Status != "" {
		w.add("status = ?", f.Status)
	}
	if strings.TrimSpace(f.Search) != "" {
		w.add("(name ILIKE ? OR email ILIKE ? OR phone ILIKE ?)", like(f.Search))
	}
	query := `SELECT ` + patientCols + ` FROM patient` + w.String() + ` ORDER BY name, id`
	args := w.args
	if f.Limit > 0 {
		query += ` LIMIT ` + w.next()
		args = append(args, f.Limit)
	}

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list patients: %w", err)
	}
	defer rows.Close()

	patients := []scheduling.Patient{}
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, fmt.Errorf("scan patient: %w", err)
		}
		patients = append(patients, *p)
	}
	return patients, rows.Err()
}

func (r *patientRepoPG) GetByID(ctx context.Context, id string) (*scheduling.Patient, error) {
	p, err := scanPatient(r.conn(ctx).QueryRow(ctx, `SELECT `+patientCols+` FROM patient WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return p, nil
}

func (r *patientRepoPG) Create(ctx context.Context, p *scheduling.Patient) error {
	if p.Status == "" {
		p.Status = scheduling.PatientStatusActive
	}
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO patient (name, email, phone, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id::text`,
		p.Name, p.Email, p.Phone, p.Status,
	).Scan(&p.ID)
}

// -- Appointment Repository --

type appointmentRepoPG struct{ pgRepo }

func NewAppointmentRepo(pool db.Querier) AppointmentRepository {
	return &appointmentRepoPG{pgRepo{pool: pool}}
}

const appointmentCols = `id::text, patient_id::text, doctor_id::text, appt_date, start_minute, duration_minutes,
	type, priority, status, purpose, notes, location, reminder_enabled, created_at`

func scanAppointment(row pgx.Row) (*scheduling.Appointment, error) {
	var (
		a                           scheduling.Appointment
		date, createdAt             time.Time
		start                       int
		typ, priority, status, room string
	)
	err := row.Scan(&a.ID, &a.PatientID, &a.DoctorID, &date, &start, &a.Duration,
		&typ, &priority, &status, &a.Purpose, &a.Notes, &room, &a.ReminderEnabled, &createdAt)
	if err != nil {
		return nil, err
	}
	a.Type = scheduling.AppointmentType(typ)
	a.Priority = scheduling.Priority(priority)
	a.Status = scheduling.Status(status)
	a.Location = scheduling.Location(room)
	a.Date = scheduling.DateOf(date)
	a.Time = scheduling.TimeOfDay(start).String()
	a.CreatedAt = &createdAt
	return &a, nil
}

func (r *appointmentRepoPG) ListByDate(ctx context.Context, date scheduling.Date) ([]scheduling.Appointment, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+appointmentCols+` FROM appointment
		WHERE appt_date = $1 ORDER BY start_minute, created_at`, date.String())
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	defer rows.Close()

	appts := []scheduling.Appointment{}
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan appointment: %w", err)
		}
		appts = append(appts, *a)
	}
	return appts, rows.Err()
}

func (r *appointmentRepoPG) Create(ctx context.Context, a *scheduling.Appointment) error {
	start, err := scheduling.ParseTimeOfDay(a.Time)
	if err != nil {
		return fmt.Errorf("appointment time: %w", err)
	}
	var createdAt time.Time
	err = r.conn(ctx).QueryRow(ctx, `
		INSERT INTO appointment (
			patient_id, doctor_id, appt_date, start_minute, duration_minutes,
			type, priority, status, purpose, notes, location, reminder_enabled
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		RETURNING id::text, created_at`,
		a.PatientID, a.DoctorID, a.Date.String(), int(start), a.Duration,
		string(a.Type), string(a.Priority), string(a.Status), a.Purpose, a.Notes, string(a.Location), a.ReminderEnabled,
	).Scan(&a.ID, &createdAt)
	if err != nil {
		return fmt.Errorf("insert appointment: %w", err)
	}
	a.CreatedAt = &createdAt
	return nil
}

func (r *appointmentRepoPG) LockDoctor(ctx context.Context, doctorID string) error {
	if _, err := r.conn(ctx).Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, "doctor:"+doctorID); err != nil {
		return fmt.Errorf("lock doctor schedule: %w", err)
	}
	return nil
}

func (r *appointmentRepoPG) FirstOverlap(ctx context.Context, doctorID string, date scheduling.Date, start, end scheduling.TimeOfDay) (*scheduling.Appointment, error) {
	a, err := scanAppointment(r.conn(ctx).QueryRow(ctx, `SELECT `+appointmentCols+` FROM appointment
		WHERE doctor_id = $1 AND appt_date = $2 AND status <> ALL($3)
		  AND start_minute < $4 AND start_minute + duration_minutes > $5
		ORDER BY start_minute LIMIT 1`,
		doctorID, date.String(), freeingStatuses, int(end), int(start)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("check overlap: %w", err)
	}
	return a, nil
}
