package auth

import (
	"fmt"
	"strings"
)

// Role is the closed set of user kinds the clinic knows about. The zero
// value is not a role.
type Role int

const (
	RoleAdmin Role = iota + 1
	RoleDoctor
	RolePatient
	RoleTherapist
)

// AllRoles lists every role in display order.
func AllRoles() []Role {
	return []Role{RoleAdmin, RoleDoctor, RolePatient, RoleTherapist}
}

var roleIDs = map[Role]string{
	RoleAdmin:     "admin",
	RoleDoctor:    "doctor",
	RolePatient:   "patient",
	RoleTherapist: "therapist",
}

var roleLabels = map[Role]string{
	RoleAdmin:     "Administrator",
	RoleDoctor:    "Doctor",
	RolePatient:   "Patient",
	RoleTherapist: "Therapist",
}

// roleAliases maps accepted spellings onto canonical roles. "therapy" is a
// legacy display name for therapists.
var roleAliases = map[string]Role{
	"admin":     RoleAdmin,
	"doctor":    RoleDoctor,
	"patient":   RolePatient,
	"therapist": RoleTherapist,
	"therapy":   RoleTherapist,
}

// ParseRole accepts a canonical role id or a known alias, case-insensitively.
func ParseRole(s string) (Role, error) {
	r, ok := roleAliases[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return 0, fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

// String returns the canonical identifier used in tokens and URLs.
func (r Role) String() string {
	if id, ok := roleIDs[r]; ok {
		return id
	}
	return fmt.Sprintf("role(%d)", int(r))
}

// Display returns the label shown in the UI.
func (r Role) Display() string {
	if l, ok := roleLabels[r]; ok {
		return l
	}
	return r.String()
}

func (r Role) Valid() bool {
	_, ok := roleIDs[r]
	return ok
}

func (r Role) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("cannot marshal invalid role %d", int(r))
	}
	return []byte(r.String()), nil
}

func (r *Role) UnmarshalText(b []byte) error {
	parsed, err := ParseRole(string(b))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
