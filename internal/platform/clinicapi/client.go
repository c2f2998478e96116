// Package clinicapi is a typed client for the clinic REST API.
package clinicapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/MrHarsh002/AyurSutra-sub003/internal/domain/scheduling"
	"github.com/MrHarsh002/AyurSutra-sub003/internal/platform/telemetry"
)

const (
	defaultTimeout = 15 * time.Second
	maxBodyBytes   = 4 << 20
)

// TokenSource returns the bearer token for the next request, or "" for none.
type TokenSource func() string

type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	token      TokenSource
	logger     zerolog.Logger
	metrics    *telemetry.Metrics
}

// Option configures a Client.
type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) { c.token = ts }
}

// WithToken uses a fixed bearer token.
func WithToken(token string) Option {
	return WithTokenSource(func() string { return token })
}

func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

func WithMetrics(m *telemetry.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// New returns a client for the API rooted at baseURL, e.g.
// "http://localhost:5000/api".
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse backend url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("backend url must be http or https, got %q", baseURL)
	}
	c := &Client{
		baseURL:    u,
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// WithBearer returns a shallow copy of c that sends token on every request.
func (c *Client) WithBearer(token string) *Client {
	cp := *c
	cp.token = func() string { return token }
	return &cp
}

// envelope is the status part every response body may carry.
type envelope struct {
	Success *bool  `json:"success"`
	Message string `json:"message"`
}

func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, body, out any) (err error) {
	start := time.Now()
	defer func() {
		c.metrics.ObserveBackendCall(op, outcome(err), time.Since(start))
	}()

	u := *c.baseURL
	u.Path = c.baseURL.Path + path
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != nil {
		if tok := c.token(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return &TransportError{Op: op, Err: fmt.Errorf("read response: %w", err)}
	}

	var env envelope
	_ = json.Unmarshal(raw, &env)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := strings.TrimSpace(env.Message)
		if msg == "" {
			if resp.StatusCode >= 500 {
				return &TransportError{Op: op, Err: fmt.Errorf("status %d", resp.StatusCode)}
			}
			msg = strings.ToLower(http.StatusText(resp.StatusCode))
		}
		c.logger.Debug().Str("op", op).Int("status", resp.StatusCode).Str("message", msg).Msg("clinic api error")
		return &ServerError{Op: op, Status: resp.StatusCode, Message: msg}
	}
	if env.Success != nil && !*env.Success {
		msg := env.Message
		if msg == "" {
			msg = "request failed"
		}
		return &ServerError{Op: op, Status: resp.StatusCode, Message: msg}
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return &TransportError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
		}
	}
	return nil
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrRejected):
		return "rejected"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, ErrTransport):
		return "transport"
	default:
		return "error"
	}
}

func setInt(q url.Values, key string, v int) {
	if v > 0 {
		q.Set(key, strconv.Itoa(v))
	}
}

// DoctorQuery filters GET /doctors.
type DoctorQuery struct {
	Available bool
	Page      int
	Limit     int
	Search    string
}

type DoctorPage struct {
	Doctors    []scheduling.Doctor `json:"doctors"`
	Total      int                 `json:"total"`
	TotalPages int                 `json:"totalPages"`
}

func (c *Client) ListDoctors(ctx context.Context, q DoctorQuery) (*DoctorPage, error) {
	params := url.Values{}
	if q.Available {
		params.Set("available", "true")
	}
	setInt(params, "page", q.Page)
	setInt(params, "limit", q.Limit)
	if s := strings.TrimSpace(q.Search); s != "" {
		params.Set("search", s)
	}

	var page DoctorPage
	if err := c.do(ctx, "list_doctors", http.MethodGet, "/doctors", params, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// PatientQuery filters GET /patients.
type PatientQuery struct {
	Status string
	Limit  int
	Search string
}

func (c *Client) ListPatients(ctx context.Context, q PatientQuery) ([]scheduling.Patient, error) {
	params := url.Values{}
	if q.Status != "" {
		params.Set("status", q.Status)
	}
	setInt(params, "limit", q.Limit)
	if s := strings.TrimSpace(q.Search); s != "" {
		params.Set("search", s)
	}

	var resp struct {
		Patients []scheduling.Patient `json:"patients"`
	}
	if err := c.do(ctx, "list_patients", http.MethodGet, "/patients", params, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Patients, nil
}

// CreateAppointment submits a validated booking. The server alone decides
// whether the slot is free; a conflict comes back as a *ServerError with
// status 409.
func (c *Client) CreateAppointment(ctx context.Context, b scheduling.Booking) (*scheduling.Appointment, error) {
	var resp struct {
		Data        *scheduling.Appointment `json:"data"`
		Appointment *scheduling.Appointment `json:"appointment"`
	}
	if err := c.do(ctx, "create_appointment", http.MethodPost, "/appointments", nil, b, &resp); err != nil {
		return nil, err
	}
	switch {
	case resp.Data != nil:
		return resp.Data, nil
	case resp.Appointment != nil:
		return resp.Appointment, nil
	}
	return nil, &TransportError{Op: "create_appointment", Err: errors.New("response has no appointment")}
}

// TodayAppointments returns today's appointments for the dashboard.
func (c *Client) TodayAppointments(ctx context.Context) ([]scheduling.Appointment, error) {
	var list appointmentList
	if err := c.do(ctx, "today_appointments", http.MethodGet, "/appointments/today", nil, nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// AppointmentsOn returns every appointment on date for the schedule grid.
func (c *Client) AppointmentsOn(ctx context.Context, date scheduling.Date) ([]scheduling.Appointment, error) {
	params := url.Values{"date": {date.String()}}
	var list appointmentList
	if err := c.do(ctx, "appointments_on", http.MethodGet, "/appointments", params, nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// appointmentList decodes a bare array or an object holding the array under
// "appointments" or "data".
type appointmentList []scheduling.Appointment

func (l *appointmentList) UnmarshalJSON(b []byte) error {
	trimmed := bytes.TrimSpace(b)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		return json.Unmarshal(trimmed, (*[]scheduling.Appointment)(l))
	}
	var obj struct {
		Appointments []scheduling.Appointment `json:"appointments"`
		Data         []scheduling.Appointment `json:"data"`
	}
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return err
	}
	if obj.Appointments != nil {
		*l = obj.Appointments
	} else {
		*l = obj.Data
	}
	return nil
}
