package desk

import (
	"errors"

	"github.com/MrHarsh002/AyurSutra-sub003/internal/domain/scheduling"
	"github.com/MrHarsh002/AyurSutra-sub003/internal/platform/clinicapi"
)

// SignedOutNotice is shown when the server no longer accepts the session.
const SignedOutNotice = "your session has expired, please sign in again"

// FormError is what the booking form renders after a failed submit: field
// messages next to their controls and an optional message above the form.
// It unwraps to the cause, so errors.Is works against scheduling.ErrValidation
// and the clinicapi sentinels.
type FormError struct {
	Root   string            `json:"root,omitempty"`
	Fields map[string]string `json:"fields,omitempty"`
	cause  error
}

func (e *FormError) Error() string {
	if e.Root != "" {
		return e.Root
	}
	return e.cause.Error()
}

func (e *FormError) Unwrap() error { return e.cause }

func fieldErrors(verrs scheduling.ValidationErrors) *FormError {
	return &FormError{Fields: verrs.ByField(), cause: verrs}
}

// rootError maps a failed backend call to the message shown above the form,
// and the outcome label recorded for it.
func rootError(err error) (*FormError, string) {
	var se *clinicapi.ServerError
	switch {
	case errors.Is(err, clinicapi.ErrUnauthorized):
		return &FormError{Root: SignedOutNotice, cause: err}, "unauthorized"
	case errors.As(err, &se):
		outcome := "rejected"
		if se.Conflict() {
			outcome = "conflict"
		}
		return &FormError{Root: se.Message, cause: err}, outcome
	default:
		return &FormError{Root: clinicapi.TransportNotice, cause: err}, "transport"
	}
}
