package scheduling

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// MinPurposeLength is the minimum trimmed length of an appointment purpose.
const MinPurposeLength = 10

// ErrValidation is matched by every ValidationErrors value.
var ErrValidation = errors.New("appointment validation failed")

// BookingForm holds the raw values of the booking form as the user entered them.
type BookingForm struct {
	Patient         string `json:"patient"`
	Doctor          string `json:"doctor"`
	Date            string `json:"date"`
	Time            string `json:"time"`
	Duration        int    `json:"duration"`
	Type            string `json:"type"`
	Priority        string `json:"priority"`
	Purpose         string `json:"purpose"`
	Notes           string `json:"notes"`
	Location        string `json:"location"`
	ReminderEnabled bool   `json:"reminderEnabled"`
}

// Booking is a form that passed validation. It is well-formed and inside
// business hours; whether the slot is free is for the backend to decide.
type Booking struct {
	Patient         string          `json:"patient"`
	Doctor          string          `json:"doctor"`
	Date            Date            `json:"date"`
	Time            TimeOfDay       `json:"time"`
	Duration        int             `json:"duration"`
	Type            AppointmentType `json:"type"`
	Priority        Priority        `json:"priority"`
	Purpose         string          `json:"purpose"`
	Notes           string          `json:"notes"`
	ReminderEnabled bool            `json:"reminderEnabled"`
	Location        Location        `json:"location"`
}

// Appointment converts the booking to the record the backend will hold.
func (b Booking) Appointment() Appointment {
	return Appointment{
		PatientID:       b.Patient,
		DoctorID:        b.Doctor,
		Date:            b.Date,
		Time:            b.Time.String(),
		Duration:        b.Duration,
		Type:            b.Type,
		Priority:        b.Priority,
		Status:          StatusScheduled,
		Purpose:         b.Purpose,
		Notes:           b.Notes,
		Location:        b.Location,
		ReminderEnabled: b.ReminderEnabled,
	}
}

// FieldError is one field-level problem shown next to its form control.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors lists field errors in form order.
type ValidationErrors []FieldError

func (v ValidationErrors) Error() string {
	msgs := make([]string, len(v))
	for i, fe := range v {
		msgs[i] = fe.Field + ": " + fe.Message
	}
	return "invalid appointment: " + strings.Join(msgs, "; ")
}

func (v ValidationErrors) Is(target error) bool { return target == ErrValidation }

// Fields returns the offending field names in form order.
func (v ValidationErrors) Fields() []string {
	out := make([]string, len(v))
	for i, fe := range v {
		out[i] = fe.Field
	}
	return out
}

// ByField returns the errors keyed by field name.
func (v ValidationErrors) ByField() map[string]string {
	out := make(map[string]string, len(v))
	for _, fe := range v {
		out[fe.Field] = fe.Message
	}
	return out
}

// Validate checks a booking form before submission. today is compared
// date-only; bounds normally comes from ComputeSlotBounds for the form's date.
// A missing field reports "required" and skips that field's other checks.
func Validate(form BookingForm, today Date, bounds SlotBounds) (*Booking, error) {
	var errs ValidationErrors
	add := func(field, format string, args ...interface{}) {
		errs = append(errs, FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
	}
	blank := func(s string) bool { return strings.TrimSpace(s) == "" }

	b := &Booking{
		Patient:         strings.TrimSpace(form.Patient),
		Doctor:          strings.TrimSpace(form.Doctor),
		Duration:        form.Duration,
		Type:            AppointmentType(strings.TrimSpace(form.Type)),
		Priority:        Priority(strings.TrimSpace(form.Priority)),
		Purpose:         strings.TrimSpace(form.Purpose),
		Notes:           strings.TrimSpace(form.Notes),
		Location:        Location(strings.TrimSpace(form.Location)),
		ReminderEnabled: form.ReminderEnabled,
	}

	if b.Patient == "" {
		add("patient", "patient is required")
	}
	if b.Doctor == "" {
		add("doctor", "doctor is required")
	}

	if blank(form.Date) {
		add("date", "date is required")
	} else if d, err := ParseDate(form.Date); err != nil {
		add("date", "date must be YYYY-MM-DD")
	} else {
		b.Date = d
		if d.Before(today) {
			add("date", "date cannot be in the past")
		}
	}

	if blank(form.Time) {
		add("time", "time is required")
	} else if t, err := ParseTimeOfDay(form.Time); err != nil {
		add("time", "time must be HH:MM")
	} else {
		b.Time = t
		switch {
		case t < bounds.Min:
			add("time", "time must be within the allowed window (not before %s)", bounds.Min)
		case t > bounds.Max:
			add("time", "time must be within the allowed window (not after %s)", bounds.Max)
		case !t.Aligned(SlotStep):
			add("time", "time must be on a %d-minute boundary", int(SlotStep/time.Minute))
		}
	}

	if form.Duration == 0 {
		add("duration", "duration is required")
	} else if !ValidDuration(form.Duration) {
		add("duration", "duration must be one of 15, 30, 45, 60, 90 minutes")
	}

	if b.Type == "" {
		add("type", "type is required")
	} else if !b.Type.Valid() {
		add("type", "invalid type: %s", b.Type)
	}

	if b.Priority == "" {
		add("priority", "priority is required")
	} else if !b.Priority.Valid() {
		add("priority", "invalid priority: %s", b.Priority)
	}

	if b.Purpose == "" {
		add("purpose", "purpose is required")
	} else if utf8.RuneCountInString(b.Purpose) < MinPurposeLength {
		add("purpose", "purpose too short (minimum %d characters)", MinPurposeLength)
	}

	if b.Location == "" {
		add("location", "location is required")
	} else if !b.Location.Valid() {
		add("location", "invalid location: %s", b.Location)
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return b, nil
}
