package scheduling

import (
	"strings"
	"time"
)

// Doctor is the read-only copy of a backend doctor record held for one page load.
type Doctor struct {
	ID              string   `json:"_id"`
	Name            string   `json:"name"`
	Email           string   `json:"email,omitempty"`
	Departments     []string `json:"specialization"`
	Available       bool     `json:"isAvailable"`
	ConsultationFee float64  `json:"consultationFee"`
	Rating          float64  `json:"rating"`
}

// InDepartment reports whether the doctor lists dept among its specializations.
func (d Doctor) InDepartment(dept string) bool {
	for _, s := range d.Departments {
		if strings.EqualFold(s, dept) {
			return true
		}
	}
	return false
}

type Patient struct {
	ID     string `json:"_id"`
	Name   string `json:"name"`
	Email  string `json:"email,omitempty"`
	Phone  string `json:"phone,omitempty"`
	Status string `json:"status"`
}

const PatientStatusActive = "active"

// Appointment as the backend reports it. Time is the slot-aligned HH:MM
// string; the projector matches on it verbatim.
type Appointment struct {
	ID              string          `json:"_id"`
	PatientID       string          `json:"patient"`
	DoctorID        string          `json:"doctor"`
	Date            Date            `json:"date"`
	Time            string          `json:"time"`
	Duration        int             `json:"duration"`
	Type            AppointmentType `json:"type"`
	Priority        Priority        `json:"priority"`
	Status          Status          `json:"status"`
	Purpose         string          `json:"purpose"`
	Notes           string          `json:"notes,omitempty"`
	Location        Location        `json:"location"`
	ReminderEnabled bool            `json:"reminderEnabled"`
	CreatedAt       *time.Time      `json:"createdAt,omitempty"`
}

// Interval returns the appointment's start and end as times of day. ok is
// false when Time does not parse.
func (a Appointment) Interval() (start, end TimeOfDay, ok bool) {
	t, err := ParseTimeOfDay(a.Time)
	if err != nil {
		return 0, 0, false
	}
	return t, t.Add(time.Duration(a.Duration) * time.Minute), true
}

type AppointmentType string

const (
	TypeConsultation AppointmentType = "consultation"
	TypeFollowUp     AppointmentType = "follow-up"
	TypeTherapy      AppointmentType = "therapy"
	TypeEmergency    AppointmentType = "emergency"
	TypeCheckUp      AppointmentType = "check-up"
)

var validTypes = map[AppointmentType]bool{
	TypeConsultation: true, TypeFollowUp: true, TypeTherapy: true,
	TypeEmergency: true, TypeCheckUp: true,
}

func (t AppointmentType) Valid() bool { return validTypes[t] }

type Priority string

const (
	PriorityLow       Priority = "low"
	PriorityMedium    Priority = "medium"
	PriorityHigh      Priority = "high"
	PriorityEmergency Priority = "emergency"
)

var validPriorities = map[Priority]bool{
	PriorityLow: true, PriorityMedium: true, PriorityHigh: true, PriorityEmergency: true,
}

func (p Priority) Valid() bool { return validPriorities[p] }

type Status string

const (
	StatusScheduled  Status = "scheduled"
	StatusConfirmed  Status = "confirmed"
	StatusCheckedIn  Status = "checked-in"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
	StatusNoShow     Status = "no-show"
)

var validStatuses = map[Status]bool{
	StatusScheduled: true, StatusConfirmed: true, StatusCheckedIn: true,
	StatusInProgress: true, StatusCompleted: true, StatusCancelled: true,
	StatusNoShow: true,
}

func (s Status) Valid() bool { return validStatuses[s] }

// Occupies reports whether an appointment in this status still holds its
// slot. Cancelled and no-show appointments free the doctor's time.
func (s Status) Occupies() bool {
	return s != StatusCancelled && s != StatusNoShow
}

type Location string

const (
	RoomOneOhOne     Location = "Room 101"
	RoomOneOhTwo     Location = "Room 102"
	RoomOneOhThree   Location = "Room 103"
	TherapyRoomA     Location = "Therapy Room A"
	TherapyRoomB     Location = "Therapy Room B"
	ConsultationRoom Location = "Consultation Room"
	EmergencyRoom    Location = "Emergency Room"
)

// Locations lists the bookable rooms in display order.
var Locations = []Location{
	RoomOneOhOne, RoomOneOhTwo, RoomOneOhThree,
	TherapyRoomA, TherapyRoomB, ConsultationRoom, EmergencyRoom,
}

func (l Location) Valid() bool {
	for _, v := range Locations {
		if v == l {
			return true
		}
	}
	return false
}

// Durations are the bookable appointment lengths in minutes.
var Durations = []int{15, 30, 45, 60, 90}

func ValidDuration(minutes int) bool {
	for _, d := range Durations {
		if d == minutes {
			return true
		}
	}
	return false
}
