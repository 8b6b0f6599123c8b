package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"pagespeed_monitor/internal/api"
	"pagespeed_monitor/internal/app"
	"pagespeed_monitor/internal/config"
	"pagespeed_monitor/internal/processing"
	"pagespeed_monitor/internal/schedule"
)

const shutdownTimeout = 30 * time.Second

func main() {
	opts := parseFlags()
	app.SetupEnvironment()
	log.Debug().Msg("Starting application")

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", opts.configPath).Msg("Failed to load configuration")
	}
	if opts.serve {
		cfg.API.Enabled = true
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	clients, err := app.InitializeClients(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize clients")
	}
	runner := app.NewRunner(cfg, clients)

	if opts.once {
		if err := runner.Run(ctx); err != nil {
			log.Error().Err(err).Msg("Run failed")
			stop()
			os.Exit(1)
		}
		return
	}

	runDaemon(ctx, cfg, runner)
}

func runDaemon(ctx context.Context, cfg *config.Config, runner *processing.Runner) {
	scheduler, err := schedule.New(runner, cfg.Schedule.Slots, cfg.Location)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create scheduler")
	}

	log.Info().
		Int("urls", len(cfg.PageSpeed.URLs)).
		Int("slots", len(cfg.Schedule.Slots)).
		Str("timezone", cfg.Location.String()).
		Msg("Starting PageSpeed monitor")
	scheduler.Start()

	runCtx, cancelRuns := context.WithCancel(context.Background())
	defer cancelRuns()

	var server *http.Server
	if cfg.API.Enabled {
		gin.SetMode(gin.ReleaseMode)
		server = &http.Server{
			Addr:    cfg.API.Addr,
			Handler: api.NewRouter(runCtx, runner, cfg.API),
		}
		go func() {
			log.Info().Str("addr", cfg.API.Addr).Msg("HTTP trigger API starting")
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Fatal().Err(err).Msg("HTTP server ListenAndServe")
			}
		}()
	}

	<-ctx.Done()
	log.Info().Msg("Shutdown signal received, stopping services...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if server != nil {
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("HTTP server Shutdown")
		}
	}
	if err := scheduler.Stop(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("Scheduled run did not finish before shutdown deadline")
	}
	if err := runner.Wait(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("Triggered run did not finish before shutdown deadline")
		cancelRuns()
	}

	log.Info().Msg("PageSpeed monitor stopped")
}
