package clinicapi

import (
	"errors"
	"fmt"
	"net/http"
)

// TransportNotice is what the user sees when the server could not be reached.
const TransportNotice = "could not reach the clinic server, please try again"

var (
	// ErrTransport matches every *TransportError.
	ErrTransport = errors.New("clinic server unreachable")
	// ErrRejected matches server rejections of a well-formed request (400, 409).
	ErrRejected = errors.New("request rejected by clinic server")
	// ErrUnauthorized matches 401 and 403 responses; the session is no longer usable.
	ErrUnauthorized = errors.New("not authorized")
)

// TransportError covers dial, timeout and decode failures, and 5xx responses
// that carry no message. It is safe to retry by hand.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Op, TransportNotice, e.Err)
}

func (e *TransportError) Unwrap() []error {
	return []error{ErrTransport, e.Err}
}

// ServerError is a non-2xx response, or a 2xx with success=false, carrying a
// message meant for the user.
type ServerError struct {
	Op      string
	Status  int
	Message string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("%s: status %d: %s", e.Op, e.Status, e.Message)
}

func (e *ServerError) Unwrap() error {
	switch e.Status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrUnauthorized
	case http.StatusBadRequest, http.StatusConflict:
		return ErrRejected
	}
	return nil
}

// Conflict reports whether the server refused the booking because the slot
// is taken.
func (e *ServerError) Conflict() bool {
	return e.Status == http.StatusConflict
}
