package search

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/MrHarsh002/AyurSutra-sub003/internal/domain/scheduling"
	"github.com/MrHarsh002/AyurSutra-sub003/internal/platform/clinicapi"
)

const defaultLimit = 8

// Directory is the part of the clinic API suggestions are drawn from.
type Directory interface {
	ListDoctors(ctx context.Context, q clinicapi.DoctorQuery) (*clinicapi.DoctorPage, error)
	ListPatients(ctx context.Context, q clinicapi.PatientQuery) ([]scheduling.Patient, error)
}

// ClientFetcher looks doctors and patients up concurrently and returns
// doctors first. limit caps each list; zero means a small default.
func ClientFetcher(dir Directory, limit int) Fetcher {
	if limit <= 0 {
		limit = defaultLimit
	}
	return func(ctx context.Context, query string) ([]Suggestion, error) {
		var (
			doctors  []scheduling.Doctor
			patients []scheduling.Patient
		)
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			page, err := dir.ListDoctors(gctx, clinicapi.DoctorQuery{Search: query, Limit: limit})
			if err != nil {
				return err
			}
			doctors = page.Doctors
			return nil
		})
		g.Go(func() error {
			var err error
			patients, err = dir.ListPatients(gctx, clinicapi.PatientQuery{Search: query, Limit: limit})
			return err
		})
		if err := g.Wait(); err != nil {
			return nil, err
		}

		out := make([]Suggestion, 0, len(doctors)+len(patients))
		for _, d := range doctors {
			out = append(out, Suggestion{
				Kind:   KindDoctor,
				ID:     d.ID,
				Label:  d.Name,
				Detail: strings.Join(d.Departments, ", "),
			})
		}
		for _, p := range patients {
			detail := p.Email
			if detail == "" {
				detail = p.Phone
			}
			out = append(out, Suggestion{Kind: KindPatient, ID: p.ID, Label: p.Name, Detail: detail})
		}
		return out, nil
	}
}
