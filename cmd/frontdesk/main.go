package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/MrHarsh002/AyurSutra-sub003/internal/config"
	"github.com/MrHarsh002/AyurSutra-sub003/internal/platform/auth"
	"github.com/MrHarsh002/AyurSutra-sub003/internal/platform/middleware"
	"github.com/MrHarsh002/AyurSutra-sub003/internal/platform/telemetry"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// app carries what every command needs once the root has loaded config.
type app struct {
	cfg    *config.Config
	logger zerolog.Logger
	out    io.Writer
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "frontdesk",
		Short:         "Clinic front desk: booking, daily schedule and a reference clinic backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			a.cfg = cfg
			a.out = cmd.OutOrStdout()
			a.logger = newLogger(cfg, cmd.ErrOrStderr())
			return nil
		},
	}

	root.AddCommand(
		serveCmd(a),
		backendCmd(a),
		loginCmd(a),
		logoutCmd(a),
		whoamiCmd(a),
		tokenCmd(a),
		slotsCmd(a),
		bookCmd(a),
		scheduleCmd(a),
		todayCmd(a),
	)
	return root
}

func newLogger(cfg *config.Config, w io.Writer) zerolog.Logger {
	if cfg.IsDev() {
		return zerolog.New(zerolog.ConsoleWriter{Out: w}).With().Timestamp().Logger()
	}
	return zerolog.New(w).With().Timestamp().Logger().Level(zerolog.InfoLevel)
}

// newEcho builds a server with the middleware both servers share.
func (a *app) newEcho(metrics *telemetry.Metrics) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = middleware.ErrorHandler(a.logger)

	e.Use(middleware.Recovery(a.logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(a.logger))
	e.Use(middleware.SecurityHeaders(a.cfg.IsProduction()))
	e.Use(middleware.BodyLimit(a.cfg.MaxBodySize))
	e.Use(middleware.RequestTimeout(a.cfg.RequestTimeout, a.logger))
	e.Use(metrics.Middleware())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: a.cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost},
		AllowHeaders: []string{echo.HeaderAuthorization, echo.HeaderContentType, middleware.RequestIDHeader},
	}))
	return e
}

// apiMiddleware is the chain for /api groups: verify the bearer token,
// reject signed-out tokens, rate limit, then audit writes. Development lets
// anonymous requests through as an admin. revoked may be nil.
func (a *app) apiMiddleware(revoked *auth.RevocationStore) []echo.MiddlewareFunc {
	var mw []echo.MiddlewareFunc
	if a.cfg.IsDev() {
		a.logger.Warn().Msg("development mode: requests without a token are treated as admin")
		mw = append(mw, auth.DevAuthMiddleware(a.cfg.JWT()))
	} else {
		mw = append(mw, auth.JWTMiddleware(a.cfg.JWT()))
	}
	if revoked != nil {
		mw = append(mw, auth.RejectRevoked(revoked))
	}
	return append(mw, a.rateLimit(), middleware.Audit(a.logger))
}

func (a *app) rateLimit() echo.MiddlewareFunc {
	return middleware.RateLimit(middleware.RateLimitConfig{
		RequestsPerSecond: a.cfg.RateLimitRPS,
		BurstSize:         a.cfg.RateLimitBurst,
		IdleTTL:           10 * time.Minute,
	})
}

// run serves e on addr until ctx ends, then shuts down gracefully.
func run(ctx context.Context, e *echo.Echo, addr string, logger zerolog.Logger) error {
	errc := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	logger.Info().Msg("server stopped")
	return nil
}
