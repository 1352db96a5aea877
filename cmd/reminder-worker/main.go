package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/medibook/telehealth-booking/internal/config"
	"github.com/medibook/telehealth-booking/internal/consultation"
	"github.com/medibook/telehealth-booking/internal/db"
	"github.com/medibook/telehealth-booking/internal/jobs"
	"github.com/medibook/telehealth-booking/internal/logging"
)

// reminder-worker runs the reminder scanner standalone, for deployments
// where the api-server is started with REMINDER_SCANNER=off.
func main() {
	log := logging.New(os.Getenv("LOG_LEVEL"))
	log.Info("reminder-worker starting up")

	cfg, err := config.Load()
	if err != nil {
		log.Error("config load error", "error", err)
		os.Exit(1)
	}
	log.Info("running reminder worker",
		"env", cfg.Env,
		"interval", cfg.ReminderInterval.String(),
		"lookahead", cfg.ReminderLookahead.String(),
	)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		log.Error("postgres connection error", "error", err)
		os.Exit(1)
	}
	defer pgPool.Close()
	log.Info("connected to Postgres")

	queue := jobs.NewQueue(jobs.QueueConfig{
		Capacity:    cfg.QueueCapacity,
		Workers:     cfg.QueueWorkers,
		MaxAttempts: cfg.QueueMaxAttempts,
		BackoffBase: cfg.QueueBackoffBase,
		BackoffCap:  cfg.QueueBackoffCap,
	}, log, nil)
	queue.Start(rootCtx)
	defer queue.Close()

	scanner := jobs.NewReminderScanner(
		consultation.NewPgRepository(pgPool),
		queue,
		&jobs.LogNotifier{Log: log},
		cfg.ReminderInterval,
		cfg.ReminderLookahead,
		log,
		nil,
	)

	scanner.Run(rootCtx)
	log.Info("shutdown signal received, stopping reminder worker")
}
