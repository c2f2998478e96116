package scheduling

import "strings"

// Filter narrows the schedule view. Zero fields match everything.
type Filter struct {
	Status     Status `query:"status" json:"status,omitempty"`
	Department string `query:"department" json:"department,omitempty"`
	DoctorID   string `query:"doctor" json:"doctor,omitempty"`
}

// ApplyFilter narrows doctors by department and id, then keeps the
// appointments that match the status and belong to a surviving doctor.
// Inputs are not modified and input order is preserved.
func ApplyFilter(doctors []Doctor, appointments []Appointment, f Filter) ([]Doctor, []Appointment) {
	dept := strings.TrimSpace(f.Department)
	keptDoctors := make([]Doctor, 0, len(doctors))
	ids := make(map[string]bool, len(doctors))
	for _, d := range doctors {
		if f.DoctorID != "" && d.ID != f.DoctorID {
			continue
		}
		if dept != "" && !d.InDepartment(dept) {
			continue
		}
		keptDoctors = append(keptDoctors, d)
		ids[d.ID] = true
	}

	keptAppts := make([]Appointment, 0, len(appointments))
	for _, a := range appointments {
		if f.Status != "" && a.Status != f.Status {
			continue
		}
		if !ids[a.DoctorID] {
			continue
		}
		keptAppts = append(keptAppts, a)
	}
	return keptDoctors, keptAppts
}

// AvailableOnly keeps doctors that accept bookings.
func AvailableOnly(doctors []Doctor) []Doctor {
	out := make([]Doctor, 0, len(doctors))
	for _, d := range doctors {
		if d.Available {
			out = append(out, d)
		}
	}
	return out
}

// ActiveOnly keeps patients whose status is active.
func ActiveOnly(patients []Patient) []Patient {
	out := make([]Patient, 0, len(patients))
	for _, p := range patients {
		if p.Status == PatientStatusActive {
			out = append(out, p)
		}
	}
	return out
}
