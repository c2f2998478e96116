package main

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/MrHarsh002/AyurSutra-sub003/internal/desk"
	"github.com/MrHarsh002/AyurSutra-sub003/internal/domain/scheduling"
)

func dateFlag(cmd *cobra.Command, r *scheduling.Resolver) (scheduling.Date, error) {
	raw, _ := cmd.Flags().GetString("date")
	if raw == "" {
		return r.Today(), nil
	}
	d, err := scheduling.ParseDate(raw)
	if err != nil {
		return scheduling.Date{}, fmt.Errorf("--date must be YYYY-MM-DD")
	}
	return d, nil
}

func slotsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "slots",
		Short: "Show the bookable time window for a date",
		RunE: func(cmd *cobra.Command, _ []string) error {
			r, err := a.cfg.Resolver()
			if err != nil {
				return err
			}
			date, err := dateFlag(cmd, r)
			if err != nil {
				return err
			}
			if date.Before(r.Today()) {
				return fmt.Errorf("%s is in the past", date)
			}
			b := r.Bounds(date)
			if b.Empty() {
				fmt.Fprintf(a.out, "%s: no bookable times left\n", date)
				return nil
			}
			fmt.Fprintf(a.out, "%s: %s to %s, every %d minutes\n", date, b.Min, b.Max, int(scheduling.SlotStep.Minutes()))
			return nil
		},
	}
	cmd.Flags().String("date", "", "Date (YYYY-MM-DD), default today")
	return cmd
}

func bookCmd(a *app) *cobra.Command {
	var form scheduling.BookingForm
	cmd := &cobra.Command{
		Use:   "book",
		Short: "Book an appointment",
		RunE: func(cmd *cobra.Command, _ []string) error {
			flow, err := a.deskFlow(cmd.Context())
			if err != nil {
				return err
			}
			if form.Date == "" {
				form.Date = flow.Resolver().Today().String()
			}
			appt, err := flow.Submit(cmd.Context(), form)
			if err != nil {
				var fe *desk.FormError
				if errors.As(err, &fe) {
					printFormError(a.out, fe)
					return errors.New("appointment not booked")
				}
				return err
			}
			fmt.Fprintf(a.out, "Booked %s on %s at %s for %d minutes (%s).\n",
				appt.ID, appt.Date, appt.Time, appt.Duration, appt.Location)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&form.Patient, "patient", "", "Patient id")
	f.StringVar(&form.Doctor, "doctor", "", "Doctor id")
	f.StringVar(&form.Date, "date", "", "Date (YYYY-MM-DD), default today")
	f.StringVar(&form.Time, "time", "", "Start time (HH:MM)")
	f.IntVar(&form.Duration, "duration", 30, "Minutes: 15, 30, 45, 60 or 90")
	f.StringVar(&form.Type, "type", string(scheduling.TypeConsultation), "consultation, follow-up, therapy, emergency or check-up")
	f.StringVar(&form.Priority, "priority", string(scheduling.PriorityMedium), "low, medium, high or emergency")
	f.StringVar(&form.Purpose, "purpose", "", "Reason for the visit (at least 10 characters)")
	f.StringVar(&form.Notes, "notes", "", "Notes")
	f.StringVar(&form.Location, "location", string(scheduling.ConsultationRoom), "Room")
	f.BoolVar(&form.ReminderEnabled, "reminder", true, "Send a reminder")
	return cmd
}

func printFormError(w io.Writer, fe *desk.FormError) {
	if fe.Root != "" {
		fmt.Fprintln(w, fe.Root)
	}
	fields := make([]string, 0, len(fe.Fields))
	for f := range fe.Fields {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	for _, f := range fields {
		fmt.Fprintf(w, "  %-9s %s\n", f+":", fe.Fields[f])
	}
}

func scheduleCmd(a *app) *cobra.Command {
	var f scheduling.Filter
	var status string
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Print the doctor x time grid for a day",
		RunE: func(cmd *cobra.Command, _ []string) error {
			flow, err := a.deskFlow(cmd.Context())
			if err != nil {
				return err
			}
			date, err := dateFlag(cmd, flow.Resolver())
			if err != nil {
				return err
			}
			f.Status = scheduling.Status(status)
			if status != "" && !f.Status.Valid() {
				return fmt.Errorf("invalid status %q", status)
			}
			sched, err := flow.LoadSchedule(cmd.Context(), date, f)
			if err != nil {
				return err
			}
			return printGrid(a.out, sched.Grid)
		},
	}
	cmd.Flags().String("date", "", "Date (YYYY-MM-DD), default today")
	cmd.Flags().StringVar(&status, "status", "", "Only appointments with this status")
	cmd.Flags().StringVar(&f.Department, "department", "", "Only doctors in this department")
	cmd.Flags().StringVar(&f.DoctorID, "doctor", "", "Only this doctor")
	return cmd
}

func printGrid(w io.Writer, g *scheduling.Grid) error {
	fmt.Fprintf(w, "Schedule for %s\n", g.Date)
	if len(g.Doctors) == 0 {
		fmt.Fprintln(w, "No doctors match.")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprint(tw, "TIME")
	for _, d := range g.Doctors {
		fmt.Fprintf(tw, "\t%s", d.Name)
	}
	fmt.Fprintln(tw)
	for _, row := range g.Rows {
		fmt.Fprint(tw, row.Slot)
		for _, cell := range row.Cells {
			if cell == nil {
				fmt.Fprint(tw, "\t-")
				continue
			}
			fmt.Fprintf(tw, "\t%s %s", shortID(cell.PatientID), cell.Status)
		}
		fmt.Fprintln(tw)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	for _, an := range g.Anomalies {
		fmt.Fprintf(w, "warning: %s at %s is double-booked; showing %s, hiding %s\n",
			an.DoctorID, an.Slot, an.Kept, an.Dropped)
	}
	return nil
}

func todayCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "today",
		Short: "Summarise today's appointments",
		RunE: func(cmd *cobra.Command, _ []string) error {
			flow, err := a.deskFlow(cmd.Context())
			if err != nil {
				return err
			}
			d, err := flow.Dashboard(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%s: %d appointment(s)\n", d.Date, d.Total)
			statuses := make([]string, 0, len(d.ByStatus))
			for s := range d.ByStatus {
				statuses = append(statuses, string(s))
			}
			sort.Strings(statuses)
			for _, s := range statuses {
				fmt.Fprintf(a.out, "  %-12s %d\n", s, d.ByStatus[scheduling.Status(s)])
			}
			if len(d.Upcoming) > 0 {
				fmt.Fprintln(a.out, "Upcoming:")
				for _, appt := range d.Upcoming {
					fmt.Fprintf(a.out, "  %s  %s with %s (%s)\n", appt.Time, shortID(appt.PatientID), shortID(appt.DoctorID), appt.Location)
				}
			}
			return nil
		},
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
