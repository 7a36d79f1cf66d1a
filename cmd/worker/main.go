package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/scheduling-api/internal/config"
	"github.com/jwalitptl/scheduling-api/internal/repository/postgres"
	"github.com/jwalitptl/scheduling-api/internal/service/notification"
	"github.com/jwalitptl/scheduling-api/pkg/logger"
	"github.com/jwalitptl/scheduling-api/pkg/messaging"
	redisbroker "github.com/jwalitptl/scheduling-api/pkg/messaging/redis"
	"github.com/jwalitptl/scheduling-api/pkg/metrics"
	"github.com/jwalitptl/scheduling-api/pkg/worker"
)

// workerEnv holds deployment-level overrides that do not belong in the
// shared config file.
type workerEnv struct {
	HealthPort   int  `envconfig:"WORKER_HEALTH_PORT" default:"8081"`
	BrokerOff    bool `envconfig:"WORKER_BROKER_OFF" default:"false"`
	CleanupHours int  `envconfig:"WORKER_CLEANUP_HOURS" default:"24"`
}

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	var env workerEnv
	if err := envconfig.Process("", &env); err != nil {
		log.Fatal().Err(err).Msg("failed to process environment")
	}

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

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calendar notification.CalendarClient
	if cfg.Calendar.Enabled {
		calendar, err = notification.NewGoogleCalendar(ctx, cfg.Calendar)
		if err != nil {
			appLogger.Fatal(err, "failed to initialize calendar client")
		}
	}

	var broker messaging.Broker
	if !env.BrokerOff {
		broker, err = redisbroker.NewRedisBroker(cfg.Redis.ToBrokerConfig(), &log.Logger)
		if err != nil {
			appLogger.Fatal(err, "failed to connect to redis broker")
		}
		defer broker.Close()
	}

	m := metrics.NewMetrics("scheduling", "worker")
	outboxRepo := postgres.NewOutboxRepository(db)
	aptRepo := postgres.NewAppointmentRepository(db)
	dispatcher := notification.NewService(notification.NewSMTPSender(cfg.SMTP), calendar, appLogger)

	processor := worker.NewOutboxProcessor(
		outboxRepo,
		aptRepo,
		dispatcher,
		broker,
		worker.OutboxProcessorConfig{
			BatchSize:    cfg.Outbox.BatchSize,
			PollInterval: time.Duration(cfg.Outbox.PollSeconds) * time.Second,
			MaxRetries:   cfg.Outbox.MaxRetries,
			RetryDelay:   time.Duration(cfg.Outbox.RetryDelaySeconds) * time.Second,
		},
		appLogger,
		m,
	)
	go processor.Start(ctx)

	cleanup := worker.NewOutboxCleanupWorker(
		outboxRepo,
		cfg.Outbox.RetentionDays,
		time.Duration(env.CleanupHours)*time.Hour,
		appLogger,
	)
	go cleanup.Start(ctx)

	healthSrv := &http.Server{
		Addr: fmt.Sprintf(":%d", env.HealthPort),
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/health" {
				http.NotFound(w, r)
				return
			}
			w.WriteHeader(http.StatusOK)
			fmt.Fprint(w, `{"status":"ok"}`)
		}),
	}
	go func() {
		if err := healthSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error(err, "health endpoint failed")
		}
	}()

	appLogger.Info("worker started", "health_port", env.HealthPort)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("shutting down worker")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := healthSrv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error(err, "health endpoint shutdown failed")
	}
}
