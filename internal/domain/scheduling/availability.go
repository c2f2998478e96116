package scheduling

import (
	"fmt"
	"time"
)

// Clinic operating window and slot granularity.
var (
	ClinicOpen  = Clock(8, 0)
	ClinicClose = Clock(20, 0)
)

const SlotStep = 15 * time.Minute

// SlotBounds is the selectable time-of-day range for one calendar date.
type SlotBounds struct {
	Min TimeOfDay `json:"min"`
	Max TimeOfDay `json:"max"`
}

// Contains reports whether t lies in [Min, Max].
func (b SlotBounds) Contains(t TimeOfDay) bool {
	return b.Min <= t && t <= b.Max
}

// Empty reports whether no time can be selected, which happens late in the
// day once "now" has passed closing time.
func (b SlotBounds) Empty() bool { return b.Min > b.Max }

// ComputeSlotBounds returns the selectable range for date as seen at now.
// For today the lower bound is now rounded up to the next 15-minute boundary,
// never earlier than opening time; any other date gets the full clinic
// window. Past dates are the caller's problem.
func ComputeSlotBounds(date Date, now time.Time) SlotBounds {
	return computeBounds(date, now, ClinicOpen, ClinicClose)
}

func computeBounds(date Date, now time.Time, open, closing TimeOfDay) SlotBounds {
	b := SlotBounds{Min: open, Max: closing}
	if date == DateOf(now) {
		if next := roundUp(now, SlotStep); next > b.Min {
			b.Min = next
		}
	}
	return b
}

// Resolver computes slot bounds against the clinic's clock and time zone.
type Resolver struct {
	Open     TimeOfDay
	Close    TimeOfDay
	Location *time.Location
	Now      func() time.Time
}

// NewResolver returns a resolver over the default clinic window.
func NewResolver(loc *time.Location) *Resolver {
	if loc == nil {
		loc = time.Local
	}
	return &Resolver{Open: ClinicOpen, Close: ClinicClose, Location: loc, Now: time.Now}
}

func (r *Resolver) now() time.Time {
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}
	loc := r.Location
	if loc == nil {
		loc = time.Local
	}
	return now().In(loc)
}

// CurrentTime is the clinic's wall-clock time of day.
func (r *Resolver) CurrentTime() TimeOfDay {
	return TimeOf(r.now())
}

// Today is the current calendar day in the clinic's time zone.
func (r *Resolver) Today() Date {
	return DateOf(r.now())
}

func (r *Resolver) Bounds(date Date) SlotBounds {
	return computeBounds(date, r.now(), r.Open, r.Close)
}

// DaySlots returns the grid row labels in [open, close) at the given step.
func DaySlots(open, closing TimeOfDay, step time.Duration) ([]TimeOfDay, error) {
	if step <= 0 || step%SlotStep != 0 {
		return nil, fmt.Errorf("slot step must be a positive multiple of %s, got %s", SlotStep, step)
	}
	if !open.Aligned(SlotStep) || !closing.Aligned(SlotStep) {
		return nil, fmt.Errorf("clinic window %s-%s is not aligned to %s", open, closing, SlotStep)
	}
	var slots []TimeOfDay
	for t := open; t < closing; t = t.Add(step) {
		slots = append(slots, t)
	}
	return slots, nil
}

// Validate checks form against the clinic's today and the bounds of the
// form's own date. An unparseable date is checked against the full window so
// the date error is reported alone.
func (r *Resolver) Validate(form BookingForm) (*Booking, error) {
	bounds := SlotBounds{Min: r.Open, Max: r.Close}
	if d, err := ParseDate(form.Date); err == nil {
		bounds = r.Bounds(d)
	}
	return Validate(form, r.Today(), bounds)
}
