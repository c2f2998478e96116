package clinic

import (
	"context"
	"fmt"

	"github.com/MrHarsh002/AyurSutra-sub003/internal/domain/scheduling"
)

var demoDoctors = []scheduling.Doctor{
	{Name: "Dr. Ananya Rao", Email: "ananya.rao@ayursutra.dev", Departments: []string{"Panchakarma", "Therapy"}, Available: true, ConsultationFee: 800, Rating: 4.8},
	{Name: "Dr. Vikram Iyer", Email: "vikram.iyer@ayursutra.dev", Departments: []string{"Kayachikitsa"}, Available: true, ConsultationFee: 600, Rating: 4.5},
	{Name: "Dr. Meera Nair", Email: "meera.nair@ayursutra.dev", Departments: []string{"Shalya Tantra"}, Available: true, ConsultationFee: 1000, Rating: 4.7},
	{Name: "Dr. Arjun Menon", Email: "arjun.menon@ayursutra.dev", Departments: []string{"Cardiology"}, Available: false, ConsultationFee: 1200, Rating: 4.2},
}

var demoPatients = []scheduling.Patient{
	{Name: "Rohan Sharma", Email: "rohan@example.com", Phone: "+91 98200 00001", Status: scheduling.PatientStatusActive},
	{Name: "Priya Kulkarni", Email: "priya@example.com", Phone: "+91 98200 00002", Status: scheduling.PatientStatusActive},
	{Name: "Sahil Verma", Email: "sahil@example.com", Phone: "+91 98200 00003", Status: scheduling.PatientStatusActive},
	{Name: "Kavya Reddy", Email: "kavya@example.com", Phone: "+91 98200 00004", Status: "inactive"},
}

// SeedResult counts the rows Seed inserted.
type SeedResult struct {
	Doctors  int
	Patients int
}

// Seed inserts demo doctors and patients into an empty directory. It does
// nothing once any doctor exists.
func (s *Service) Seed(ctx context.Context) (SeedResult, error) {
	var res SeedResult
	err := s.inTx(ctx, func(ctx context.Context) error {
		_, total, err := s.doctors.List(ctx, DoctorFilter{Limit: 1})
		if err != nil {
			return err
		}
		if total > 0 {
			return nil
		}
		for _, d := range demoDoctors {
			d.Departments = append([]string(nil), d.Departments...)
			if err := s.doctors.Create(ctx, &d); err != nil {
				return fmt.Errorf("seed doctor %s: %w", d.Name, err)
			}
			res.Doctors++
		}
		for _, p := range demoPatients {
			if err := s.patients.Create(ctx, &p); err != nil {
				return fmt.Errorf("seed patient %s: %w", p.Name, err)
			}
			res.Patients++
		}
		return nil
	})
	if err != nil {
		return SeedResult{}, err
	}
	s.logger.Info().Int("doctors", res.Doctors).Int("patients", res.Patients).Msg("seed complete")
	return res, nil
}
