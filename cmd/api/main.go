package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/scheduling-api/internal/config"
	"github.com/jwalitptl/scheduling-api/internal/handler/appointment"
	"github.com/jwalitptl/scheduling-api/internal/handler/voice"
	"github.com/jwalitptl/scheduling-api/internal/repository/postgres"
	"github.com/jwalitptl/scheduling-api/internal/router"
	schedulingsvc "github.com/jwalitptl/scheduling-api/internal/service/scheduling"
	"github.com/jwalitptl/scheduling-api/pkg/logger"
	"github.com/jwalitptl/scheduling-api/pkg/metrics"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	appLogger := logger.NewLogger(nil)

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		appLogger.Fatal(err, "failed to connect to database")
	}
	defer db.Close()

	policies, err := cfg.Scheduling.BuildPolicies()
	if err != nil {
		appLogger.Fatal(err, "invalid business-hours policies")
	}

	m := metrics.NewMetrics("scheduling", "api")
	repo := postgres.NewAppointmentRepository(db)
	svc := schedulingsvc.NewService(repo, policies, cfg.Scheduling, appLogger, m)

	engine := router.Setup(cfg, router.Handlers{
		Appointment: appointment.NewHandler(svc, appointment.Defaults{
			Policy:          cfg.Scheduling.DefaultPolicy,
			DurationMinutes: cfg.Scheduling.DefaultDurationMinutes,
		}),
		Voice: voice.NewHandler(svc, voice.Defaults{
			Policy:          cfg.Scheduling.VoicePolicy,
			DurationMinutes: cfg.Scheduling.VoiceDurationMinutes,
		}),
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: engine,
	}

	go func() {
		appLogger.Info("starting server", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatal(err, "server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error(err, "forced shutdown")
	}
}
