// Command harvester keeps channel rosters current: it harvests the configured
// channels on a schedule and serves the ops API.
//
// With -once it runs a single pass over every channel and exits, for cron
// style deployments.
//
// @title       go-tgstats ops API
// @version     1.0
// @description Channel roster harvester: roster listings, harvest runs, manual triggers and schema checks.
// @BasePath    /api/v1
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-tgstats/internal/app"
	"github.com/tbourn/go-tgstats/internal/config"
	httpapi "github.com/tbourn/go-tgstats/internal/http"
	"github.com/tbourn/go-tgstats/internal/observability"
	"github.com/tbourn/go-tgstats/internal/services"
	"github.com/tbourn/go-tgstats/internal/sysutil"
)

// version is set at build time with -ldflags "-X main.version=...".
var version string

const shutdownTimeout = 30 * time.Second

func main() {
	once := flag.Bool("once", false, "harvest every configured channel once and exit")
	flag.Parse()

	// A missing .env is fine; the environment wins either way.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}
	ver := sysutil.FirstNonEmpty(version, os.Getenv("APP_VERSION"), "dev")
	sysutil.SetupLogger(os.Stdout, cfg.LogLevel, cfg.LogPretty, cfg.OTEL.ServiceName, ver)

	if err := run(cfg, ver, *once); err != nil {
		log.Error().Err(err).Msg("exiting")
		os.Exit(1)
	}
}

func run(cfg config.Config, ver string, once bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, ver)
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOTel(sctx); err != nil {
			log.Warn().Err(err).Msg("otel: shutdown")
		}
	}()

	// Fails on an unreconcilable schema: nothing may harvest into an
	// incompatible store.
	a, err := app.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("startup: %w", err)
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Warn().Err(err).Msg("db: close")
		}
	}()

	if once {
		return a.Harvester.RunAll(ctx, services.SourceSchedule)
	}

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	httpapi.RegisterRoutes(r, a.Handlers, cfg)

	srv := &http.Server{
		Addr:              net.JoinHostPort("", cfg.Port),
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	schedDone := make(chan struct{})
	go func() {
		defer close(schedDone)
		a.Scheduler.Start(ctx)
	}()

	srvErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Ints64("channels", cfg.Harvest.ChannelIDs).Msg("http: listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			srvErr <- err
		}
		close(srvErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown: signal received")
	case err := <-srvErr:
		runErr = fmt.Errorf("http: %w", err)
		stop()
	}

	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		log.Warn().Err(err).Msg("http: shutdown")
	}
	// Canceled runs are still recorded before the scheduler returns.
	select {
	case <-schedDone:
	case <-sctx.Done():
		log.Warn().Msg("shutdown: scheduler did not stop in time")
	}
	log.Info().Msg("shutdown: complete")
	return runErr
}
