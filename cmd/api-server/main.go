package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/medibook/telehealth-booking/internal/account"
	"github.com/medibook/telehealth-booking/internal/analytics"
	"github.com/medibook/telehealth-booking/internal/api"
	"github.com/medibook/telehealth-booking/internal/audit"
	"github.com/medibook/telehealth-booking/internal/availability"
	"github.com/medibook/telehealth-booking/internal/config"
	"github.com/medibook/telehealth-booking/internal/consultation"
	"github.com/medibook/telehealth-booking/internal/db"
	"github.com/medibook/telehealth-booking/internal/idempotency"
	"github.com/medibook/telehealth-booking/internal/jobs"
	"github.com/medibook/telehealth-booking/internal/logging"
	"github.com/medibook/telehealth-booking/internal/metrics"
	"github.com/medibook/telehealth-booking/internal/payment"
	"github.com/medibook/telehealth-booking/internal/prescription"
	redisclient "github.com/medibook/telehealth-booking/internal/redis"
)

var version = "dev"

func main() {
	log := logging.New(os.Getenv("LOG_LEVEL"))
	log.Info("api-server starting up", "version", version)

	cfg, err := config.Load()
	if err != nil {
		log.Error("config load error", "error", err)
		os.Exit(1)
	}
	log.Info("configuration loaded", "env", cfg.Env, "http_port", cfg.HTTPPort)

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

	rdb, err := redisclient.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		log.Error("redis connection error", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Warn("error closing redis", "error", err)
		}
	}()
	log.Info("connected to Redis")

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	queue := jobs.NewQueue(jobs.QueueConfig{
		Capacity:    cfg.QueueCapacity,
		Workers:     cfg.QueueWorkers,
		MaxAttempts: cfg.QueueMaxAttempts,
		BackoffBase: cfg.QueueBackoffBase,
		BackoffCap:  cfg.QueueBackoffCap,
	}, log, m.ObserveJobRetry)
	queue.Start(rootCtx)
	defer queue.Close()

	tokens := account.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTTL)
	accounts := account.NewService(account.NewPgRepository(pgPool), tokens)
	slots := availability.NewService(availability.NewPgRepository(pgPool))

	audits := audit.NewService(audit.NewPgRepository(pgPool), queue, log)
	consultations := consultation.NewService(consultation.NewPgRepository(pgPool), audits, cfg.CancellationWindow)
	payments := payment.NewService(payment.NewPgRepository(pgPool), log)
	prescriptions := prescription.NewService(prescription.NewPgRepository(pgPool))
	stats := analytics.NewService(pgPool)

	idemStore := idempotency.NewRedisStore(rdb, cfg.IdempotencyTTL)
	idem := idempotency.NewMiddleware(idemStore, cfg.IdempotencyTTL, api.UserIDFromContext, m.ObserveReplay, log)

	// The reminder scanner runs in-process by default; set
	// REMINDER_SCANNER=off when a dedicated reminder-worker handles it.
	if os.Getenv("REMINDER_SCANNER") != "off" {
		scanner := jobs.NewReminderScanner(
			consultation.NewPgRepository(pgPool),
			queue,
			&jobs.LogNotifier{Log: log},
			cfg.ReminderInterval,
			cfg.ReminderLookahead,
			log,
			m.ObserveReminder,
		)
		go scanner.Run(rootCtx)
	}

	router := api.NewRouter(api.RouterConfig{
		Accounts:      accounts,
		Availability:  slots,
		Consultations: consultations,
		Payments:      payments,
		Prescriptions: prescriptions,
		Audits:        audits,
		Analytics:     stats,
		Tokens:        tokens,
		Idempotency:   idem,

		PgPool: pgPool,
		Redis:  rdb,

		Metrics:  m,
		Registry: registry,
		Log:      log,

		RateLimitPerSecond: cfg.RateLimitPerSecond,
		RateLimitBurst:     cfg.RateLimitBurst,

		Env:     cfg.Env,
		Version: version,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-rootCtx.Done():
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server error", "error", err)
			os.Exit(1)
		}
	}

	log.Info("shutting down api-server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown error", "error", err)
	}
}
