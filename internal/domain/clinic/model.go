package clinic

import (
	"errors"
	"fmt"

	"github.com/MrHarsh002/AyurSutra-sub003/internal/domain/scheduling"
)

// ErrNotFound is returned by repositories when a row does not exist.
var ErrNotFound = errors.New("not found")

// Rejection kinds. Handlers map them to 400 and 409.
var (
	ErrInvalid  = errors.New("invalid request")
	ErrConflict = errors.New("scheduling conflict")
)

// Rejection is a request the backend refuses. Message is shown to the user
// verbatim.
type Rejection struct {
	Kind    error
	Message string
}

func (r *Rejection) Error() string { return r.Message }
func (r *Rejection) Unwrap() error { return r.Kind }

func reject(kind error, format string, args ...any) error {
	return &Rejection{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// DoctorFilter narrows GET /doctors. Available nil means any.
type DoctorFilter struct {
	Available *bool
	Search    string
	Limit     int
	Offset    int
}

type PatientFilter struct {
	Status string
	Search string
	Limit  int
}

// DoctorPage is one page of the doctor directory.
type DoctorPage struct {
	Doctors    []scheduling.Doctor `json:"doctors"`
	Total      int                 `json:"total"`
	TotalPages int                 `json:"totalPages"`
	Page       int                 `json:"page"`
}

// freeingStatuses lists the statuses that no longer hold a slot.
var freeingStatuses = []string{
	string(scheduling.StatusCancelled),
	string(scheduling.StatusNoShow),
}
