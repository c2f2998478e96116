package main

import (
	"context"
	"fmt"
	"net/http"
	"text/tabwriter"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/MrHarsh002/AyurSutra-sub003/internal/domain/clinic"
	"github.com/MrHarsh002/AyurSutra-sub003/internal/platform/db"
	"github.com/MrHarsh002/AyurSutra-sub003/internal/platform/notification"
	"github.com/MrHarsh002/AyurSutra-sub003/internal/platform/telemetry"
	"github.com/MrHarsh002/AyurSutra-sub003/migrations"
)

func backendCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backend",
		Short: "Reference clinic backend on PostgreSQL",
	}

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Start the clinic backend API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			addr, _ := cmd.Flags().GetString("addr")
			migrate, _ := cmd.Flags().GetBool("migrate")
			return a.runBackend(cmd.Context(), addr, migrate)
		},
	}
	serve.Flags().String("addr", ":8000", "Listen address")
	serve.Flags().Bool("migrate", false, "Apply pending migrations before serving")

	migrate := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending migrations, or show their status",
		RunE: func(cmd *cobra.Command, _ []string) error {
			status, _ := cmd.Flags().GetBool("status")
			return a.withPool(cmd.Context(), func(ctx context.Context, pool *pgxpool.Pool) error {
				m := db.NewMigrator(pool, migrations.Files)
				if status {
					return printMigrationStatus(ctx, a, m)
				}
				count, err := m.Up(ctx)
				if err != nil {
					return fmt.Errorf("migration failed: %w", err)
				}
				fmt.Fprintf(a.out, "Applied %d migration(s).\n", count)
				return nil
			})
		},
	}
	migrate.Flags().Bool("status", false, "List migrations instead of applying them")

	seed := &cobra.Command{
		Use:   "seed",
		Short: "Load demo doctors and patients into an empty database",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withPool(cmd.Context(), func(ctx context.Context, pool *pgxpool.Pool) error {
				svc, err := a.clinicService(pool)
				if err != nil {
					return err
				}
				res, err := svc.Seed(ctx)
				if err != nil {
					return err
				}
				if res.Doctors == 0 && res.Patients == 0 {
					fmt.Fprintln(a.out, "Database already has doctors; nothing seeded.")
					return nil
				}
				fmt.Fprintf(a.out, "Seeded %d doctor(s) and %d patient(s).\n", res.Doctors, res.Patients)
				return nil
			})
		},
	}

	cmd.AddCommand(serve, migrate, seed)
	return cmd
}

func (a *app) withPool(ctx context.Context, fn func(context.Context, *pgxpool.Pool) error) error {
	if err := a.cfg.ValidateBackend(); err != nil {
		return err
	}
	pool, err := db.NewPool(ctx, a.cfg.DatabaseURL, a.cfg.DBMaxConns, a.cfg.DBMinConns)
	if err != nil {
		return err
	}
	defer pool.Close()
	return fn(ctx, pool)
}

func (a *app) clinicService(pool *pgxpool.Pool) (*clinic.Service, error) {
	resolver, err := a.cfg.Resolver()
	if err != nil {
		return nil, err
	}
	return clinic.NewService(
		clinic.NewDoctorRepo(pool),
		clinic.NewPatientRepo(pool),
		clinic.NewAppointmentRepo(pool),
		db.Transactor(pool),
		resolver,
		a.logger,
	), nil
}

func (a *app) runBackend(ctx context.Context, addr string, migrate bool) error {
	return a.withPool(ctx, func(ctx context.Context, pool *pgxpool.Pool) error {
		a.logger.Info().Msg("connected to database")
		if migrate {
			count, err := db.NewMigrator(pool, migrations.Files).Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			a.logger.Info().Int("applied", count).Msg("migrations applied")
		}

		svc, err := a.clinicService(pool)
		if err != nil {
			return err
		}
		reminders := notification.NewManager(notification.LogSender(a.logger), a.logger)
		svc.WithReminders(reminders, a.cfg.ReminderLead)

		reg := newRegistry()
		metrics := telemetry.NewMetrics(reg)

		e := a.newEcho(metrics)
		e.GET("/health", func(c echo.Context) error {
			return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
		})
		e.GET("/health/db", db.HealthHandler(pool))
		e.GET("/metrics", telemetry.Handler(reg))

		api := e.Group("/api", a.apiMiddleware(nil)...)
		clinic.NewHandler(svc, a.logger).RegisterRoutes(api)
		notification.NewHandler(reminders).RegisterRoutes(api)

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error { return reminders.Run(gctx, a.cfg.ReminderInterval) })
		g.Go(func() error { return run(gctx, e, addr, a.logger) })
		return g.Wait()
	})
}

func printMigrationStatus(ctx context.Context, a *app, m *db.Migrator) error {
	statuses, err := m.Status(ctx)
	if err != nil {
		return fmt.Errorf("failed to get migration status: %w", err)
	}
	tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "VERSION\tNAME\tSTATUS\tAPPLIED AT")
	for _, s := range statuses {
		state, at := "pending", ""
		if s.Applied {
			state = "applied"
			if s.AppliedAt != nil {
				at = s.AppliedAt.Format("2006-01-02 15:04:05")
			}
		}
		fmt.Fprintf(tw, "%03d\t%s\t%s\t%s\n", s.Version, s.Name, state, at)
	}
	return tw.Flush()
}
