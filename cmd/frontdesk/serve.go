package main

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/MrHarsh002/AyurSutra-sub003/internal/desk"
	"github.com/MrHarsh002/AyurSutra-sub003/internal/platform/auth"
	"github.com/MrHarsh002/AyurSutra-sub003/internal/platform/cache"
	"github.com/MrHarsh002/AyurSutra-sub003/internal/platform/clinicapi"
	"github.com/MrHarsh002/AyurSutra-sub003/internal/platform/telemetry"
	"github.com/MrHarsh002/AyurSutra-sub003/internal/platform/websocket"
)

func serveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the front-desk API server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runDesk(cmd.Context())
		},
	}
}

func newRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func (a *app) runDesk(ctx context.Context) error {
	resolver, err := a.cfg.Resolver()
	if err != nil {
		return err
	}

	reg := newRegistry()
	metrics := telemetry.NewMetrics(reg)

	client, err := clinicapi.New(a.cfg.BackendURL,
		clinicapi.WithHTTPClient(&http.Client{Timeout: a.cfg.BackendTimeout}),
		clinicapi.WithLogger(a.logger),
		clinicapi.WithMetrics(metrics),
	)
	if err != nil {
		return err
	}

	rdb := a.openRedis(ctx)
	if rdb != nil {
		defer rdb.Close()
	}

	revoked := auth.NewRevocationStore(5 * time.Minute)
	defer revoked.Close()

	hub := websocket.NewHub(a.logger)
	flow := desk.New(client, resolver,
		desk.WithDoctorCache(cache.NewDoctorCache(rdb, a.cfg.DoctorCacheTTL, a.logger, metrics)),
		desk.WithPublisher(hub),
		desk.WithSlotStep(a.cfg.ScheduleSlotStep),
		desk.WithMetrics(metrics),
		desk.WithLogger(a.logger),
	)

	e := a.newEcho(metrics)
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]any{
			"status":  "ok",
			"clients": hub.ClientCount(),
		})
	})
	e.GET("/metrics", telemetry.Handler(reg))

	api := e.Group("/api", a.apiMiddleware(revoked)...)
	desk.NewHandler(flow, desk.HandlerConfig{
		BackendFor:     desk.BearerBackend(client),
		Hub:            hub,
		SearchDelay:    a.cfg.SearchDebounce,
		AllowedOrigins: a.cfg.CORSOrigins,
		Metrics:        metrics,
		Logger:         a.logger,
		Revocations:    revoked,
	}).RegisterRoutes(api)

	a.logger.Info().Str("backend", a.cfg.BackendURL).Str("timezone", resolver.Location.String()).
		Str("hours", resolver.Open.String()+"-"+resolver.Close.String()).Msg("front desk configured")
	return run(ctx, e, ":"+a.cfg.Port, a.logger)
}

// openRedis connects the doctor cache. The desk runs uncached when Redis is
// unset or unreachable.
func (a *app) openRedis(ctx context.Context) *redis.Client {
	if a.cfg.RedisURL == "" {
		return nil
	}
	opts, err := redis.ParseURL(a.cfg.RedisURL)
	if err != nil {
		a.logger.Warn().Err(err).Msg("invalid REDIS_URL, doctor cache disabled")
		return nil
	}
	rdb := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		a.logger.Warn().Err(err).Msg("redis unreachable, doctor cache disabled")
		_ = rdb.Close()
		return nil
	}
	a.logger.Info().Str("addr", opts.Addr).Msg("doctor cache connected")
	return rdb
}
