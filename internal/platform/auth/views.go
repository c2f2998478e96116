package auth

import "fmt"

// NavItem is one sidebar entry.
type NavItem struct {
	Label string `json:"label"`
	Path  string `json:"path"`
}

// ViewSet is everything the shell renders differently per role.
type ViewSet struct {
	Home    string    `json:"home"`
	Topbar  string    `json:"topbar"`
	Sidebar []NavItem `json:"sidebar"`
}

// viewSets must hold an entry for every role in AllRoles.
var viewSets = map[Role]ViewSet{
	RoleAdmin: {
		Home:   "/admin/dashboard",
		Topbar: "admin",
		Sidebar: []NavItem{
			{Label: "Dashboard", Path: "/admin/dashboard"},
			{Label: "Appointments", Path: "/admin/appointments"},
			{Label: "Book Appointment", Path: "/admin/appointments/new"},
			{Label: "Schedule", Path: "/admin/schedule"},
			{Label: "Doctors", Path: "/admin/doctors"},
			{Label: "Patients", Path: "/admin/patients"},
			{Label: "Therapists", Path: "/admin/therapists"},
		},
	},
	RoleDoctor: {
		Home:   "/doctor/dashboard",
		Topbar: "doctor",
		Sidebar: []NavItem{
			{Label: "Dashboard", Path: "/doctor/dashboard"},
			{Label: "My Schedule", Path: "/doctor/schedule"},
			{Label: "Appointments", Path: "/doctor/appointments"},
			{Label: "Book Appointment", Path: "/doctor/appointments/new"},
			{Label: "Patients", Path: "/doctor/patients"},
		},
	},
	RolePatient: {
		Home:   "/patient/dashboard",
		Topbar: "patient",
		Sidebar: []NavItem{
			{Label: "Dashboard", Path: "/patient/dashboard"},
			{Label: "Book Appointment", Path: "/patient/appointments/new"},
			{Label: "My Appointments", Path: "/patient/appointments"},
			{Label: "Assistant", Path: "/patient/chat"},
		},
	},
	RoleTherapist: {
		Home:   "/therapist/dashboard",
		Topbar: "therapist",
		Sidebar: []NavItem{
			{Label: "Dashboard", Path: "/therapist/dashboard"},
			{Label: "Therapy Schedule", Path: "/therapist/schedule"},
			{Label: "Sessions", Path: "/therapist/appointments"},
			{Label: "Book Session", Path: "/therapist/appointments/new"},
		},
	},
}

// Views returns the view set for r. Only the zero or an out-of-range role
// fails; every declared role has an entry.
func Views(r Role) (ViewSet, error) {
	v, ok := viewSets[r]
	if !ok {
		return ViewSet{}, fmt.Errorf("no views for role %s", r)
	}
	return v, nil
}
