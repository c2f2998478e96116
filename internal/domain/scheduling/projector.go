package scheduling

// Row is one time slot across every doctor column. Cells[i] belongs to
// Grid.Doctors[i] and is nil when the doctor is free at that slot.
type Row struct {
	Slot  TimeOfDay      `json:"slot"`
	Cells []*Appointment `json:"cells"`
}

// Anomaly records a (doctor, slot) pair that more than one appointment
// claimed. The projector keeps the first in input order.
type Anomaly struct {
	DoctorID string    `json:"doctorId"`
	Slot     TimeOfDay `json:"slot"`
	Kept     string    `json:"kept"`
	Dropped  string    `json:"dropped"`
}

// Grid is the doctor x time-slot view of one day.
type Grid struct {
	Date      Date        `json:"date"`
	Slots     []TimeOfDay `json:"slots"`
	Doctors   []Doctor    `json:"doctors"`
	Rows      []Row       `json:"rows"`
	Anomalies []Anomaly   `json:"anomalies,omitempty"`
	index     map[cellKey]*Appointment
}

type cellKey struct {
	doctor string
	slot   string
}

// Cell returns the appointment occupying (doctorID, slot), or nil.
func (g *Grid) Cell(doctorID string, slot TimeOfDay) *Appointment {
	return g.index[cellKey{doctor: doctorID, slot: slot.String()}]
}

// Project lays appointments out on a doctor x slot grid. An appointment lands
// in the cell whose doctor matches and whose slot label equals its time
// string exactly; appointments for unknown doctors or off-grid times are not
// shown. Filtering happens before projection, never here.
func Project(doctors []Doctor, appointments []Appointment, slots []TimeOfDay) *Grid {
	g := &Grid{
		Slots:   slots,
		Doctors: doctors,
		Rows:    make([]Row, len(slots)),
		index:   make(map[cellKey]*Appointment),
	}

	onGrid := make(map[cellKey]TimeOfDay, len(doctors)*len(slots))
	for _, d := range doctors {
		for _, s := range slots {
			onGrid[cellKey{doctor: d.ID, slot: s.String()}] = s
		}
	}

	for i := range appointments {
		a := &appointments[i]
		k := cellKey{doctor: a.DoctorID, slot: a.Time}
		slot, ok := onGrid[k]
		if !ok {
			continue
		}
		if kept, taken := g.index[k]; taken {
			g.Anomalies = append(g.Anomalies, Anomaly{
				DoctorID: a.DoctorID,
				Slot:     slot,
				Kept:     kept.ID,
				Dropped:  a.ID,
			})
			continue
		}
		g.index[k] = a
	}

	for r, s := range slots {
		cells := make([]*Appointment, len(doctors))
		for c, d := range doctors {
			cells[c] = g.index[cellKey{doctor: d.ID, slot: s.String()}]
		}
		g.Rows[r] = Row{Slot: s, Cells: cells}
	}
	return g
}
