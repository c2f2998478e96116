// Package notification queues appointment reminders and delivers them when
// they fall due, retrying failed sends.
package notification

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
)

type Status string

const (
	StatusPending Status = "pending"
	StatusSent    Status = "sent"
	StatusFailed  Status = "failed"
)

// Notification is one outbound message for a patient.
type Notification struct {
	ID            string     `json:"id"`
	Channel       Channel    `json:"channel"`
	Recipient     string     `json:"recipient"`
	Subject       string     `json:"subject,omitempty"`
	Body          string     `json:"body"`
	AppointmentID string     `json:"appointmentId,omitempty"`
	DueAt         time.Time  `json:"dueAt"`
	Status        Status     `json:"status"`
	Attempts      int        `json:"attempts"`
	Error         string     `json:"error,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	SentAt        *time.Time `json:"sentAt,omitempty"`
}

// Sender delivers a notification over its channel.
type Sender interface {
	Send(ctx context.Context, n *Notification) error
}

type SenderFunc func(ctx context.Context, n *Notification) error

func (f SenderFunc) Send(ctx context.Context, n *Notification) error { return f(ctx, n) }

// LogSender "delivers" by writing the message to the log. It is the default
// until the clinic wires a mail or SMS gateway.
func LogSender(logger zerolog.Logger) Sender {
	return SenderFunc(func(_ context.Context, n *Notification) error {
		logger.Info().Str("notification_id", n.ID).Str("channel", string(n.Channel)).
			Str("recipient", n.Recipient).Str("appointment_id", n.AppointmentID).
			Str("subject", n.Subject).Msg("reminder delivered")
		return nil
	})
}

// Template is a message with {{key}} placeholders.
type Template struct {
	Subject string
	Body    string
}

// AppointmentReminder is the built-in reminder text.
var AppointmentReminder = Template{
	Subject: "Appointment reminder for {{patient_name}}",
	Body:    "Dear {{patient_name}}, this is a reminder of your appointment on {{date}} at {{time}} with {{doctor}} in {{location}}.",
}

// Render replaces {{key}} placeholders. Unknown keys stay as written.
func (t Template) Render(data map[string]string) (subject, body string) {
	subject, body = t.Subject, t.Body
	for k, v := range data {
		ph := "{{" + k + "}}"
		subject = strings.ReplaceAll(subject, ph, v)
		body = strings.ReplaceAll(body, ph, v)
	}
	return subject, body
}

var ErrNotFound = errors.New("notification not found")

type Option func(*Manager)

// WithMaxAttempts sets how many sends are tried before a notification is
// marked failed. Default 3.
func WithMaxAttempts(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.maxAttempts = n
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// Manager holds queued notifications in memory and dispatches the due ones.
type Manager struct {
	mu          sync.Mutex
	items       map[string]*Notification
	sender      Sender
	maxAttempts int
	now         func() time.Time
	logger      zerolog.Logger
}

func NewManager(sender Sender, logger zerolog.Logger, opts ...Option) *Manager {
	m := &Manager{
		items:       make(map[string]*Notification),
		sender:      sender,
		maxAttempts: 3,
		now:         time.Now,
		logger:      logger,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Schedule queues n. ID, status and creation time are filled in.
func (m *Manager) Schedule(_ context.Context, n Notification) (*Notification, error) {
	if n.Recipient == "" {
		return nil, fmt.Errorf("recipient is required")
	}
	if n.Channel != ChannelEmail && n.Channel != ChannelSMS {
		return nil, fmt.Errorf("unsupported channel %q", n.Channel)
	}
	n.ID = uuid.NewString()
	n.Status = StatusPending
	n.CreatedAt = m.now()
	if n.DueAt.IsZero() {
		n.DueAt = n.CreatedAt
	}

	m.mu.Lock()
	m.items[n.ID] = &n
	m.mu.Unlock()

	cp := n
	return &cp, nil
}

func (m *Manager) Get(_ context.Context, id string) (*Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *n
	return &cp, nil
}

// List returns notifications ordered by due time, optionally only those in
// status.
func (m *Manager) List(_ context.Context, status Status) []Notification {
	m.mu.Lock()
	out := make([]Notification, 0, len(m.items))
	for _, n := range m.items {
		if status == "" || n.Status == status {
			out = append(out, *n)
		}
	}
	m.mu.Unlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].DueAt.Equal(out[j].DueAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].DueAt.Before(out[j].DueAt)
	})
	return out
}

// Stats counts notifications by status.
func (m *Manager) Stats() map[Status]int {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := map[Status]int{StatusPending: 0, StatusSent: 0, StatusFailed: 0}
	for _, n := range m.items {
		stats[n.Status]++
	}
	return stats
}

// DispatchDue sends every pending notification whose due time has passed and
// returns how many were delivered. A failed send stays pending until it has
// used up its attempts.
func (m *Manager) DispatchDue(ctx context.Context) int {
	now := m.now()
	m.mu.Lock()
	var due []*Notification
	for _, n := range m.items {
		if n.Status == StatusPending && !n.DueAt.After(now) {
			due = append(due, n)
		}
	}
	m.mu.Unlock()

	sent := 0
	for _, n := range due {
		if ctx.Err() != nil {
			break
		}
		m.mu.Lock()
		msg := *n
		m.mu.Unlock()

		err := m.sender.Send(ctx, &msg)

		m.mu.Lock()
		n.Attempts++
		if err == nil {
			at := m.now()
			n.Status, n.SentAt, n.Error = StatusSent, &at, ""
			sent++
		} else {
			n.Error = err.Error()
			if n.Attempts >= m.maxAttempts {
				n.Status = StatusFailed
			}
		}
		attempts, status := n.Attempts, n.Status
		m.mu.Unlock()

		if err != nil {
			m.logger.Warn().Err(err).Str("notification_id", n.ID).Int("attempts", attempts).
				Str("status", string(status)).Msg("reminder send failed")
		}
	}
	return sent
}

// Run dispatches due notifications every interval until ctx ends.
func (m *Manager) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			m.DispatchDue(ctx)
		}
	}
}
