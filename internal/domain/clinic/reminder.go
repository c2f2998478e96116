package clinic

import (
	"context"
	"time"

	"github.com/MrHarsh002/AyurSutra-sub003/internal/domain/scheduling"
	"github.com/MrHarsh002/AyurSutra-sub003/internal/platform/notification"
)

// ReminderQueue accepts reminders for later delivery.
type ReminderQueue interface {
	Schedule(ctx context.Context, n notification.Notification) (*notification.Notification, error)
}

// WithReminders makes the service queue a reminder, lead before the start,
// for every booking that asks for one.
func (s *Service) WithReminders(q ReminderQueue, lead time.Duration) *Service {
	s.reminders = q
	s.reminderLead = lead
	return s
}

// reminderFor builds the reminder for appt. Email is preferred over SMS; ok
// is false when the patient has neither.
func reminderFor(appt scheduling.Appointment, patient *scheduling.Patient, doctor *scheduling.Doctor,
	start time.Time, lead time.Duration) (notification.Notification, bool) {
	n := notification.Notification{AppointmentID: appt.ID, DueAt: start.Add(-lead)}
	switch {
	case patient.Email != "":
		n.Channel, n.Recipient = notification.ChannelEmail, patient.Email
	case patient.Phone != "":
		n.Channel, n.Recipient = notification.ChannelSMS, patient.Phone
	default:
		return n, false
	}
	n.Subject, n.Body = notification.AppointmentReminder.Render(map[string]string{
		"patient_name": patient.Name,
		"date":         appt.Date.String(),
		"time":         appt.Time,
		"doctor":       doctor.Name,
		"location":     string(appt.Location),
	})
	return n, true
}

// queueReminder never fails the booking; the appointment already exists.
func (s *Service) queueReminder(ctx context.Context, appt scheduling.Appointment, patient *scheduling.Patient,
	doctor *scheduling.Doctor, start time.Time) {
	if s.reminders == nil || !appt.ReminderEnabled {
		return
	}
	n, ok := reminderFor(appt, patient, doctor, start, s.reminderLead)
	if !ok {
		s.logger.Info().Str("appointment_id", appt.ID).Msg("no contact details, reminder skipped")
		return
	}
	if _, err := s.reminders.Schedule(ctx, n); err != nil {
		s.logger.Warn().Err(err).Str("appointment_id", appt.ID).Msg("failed to queue reminder")
	}
}
