package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/medibook/telehealth-booking/internal/account"
	"github.com/medibook/telehealth-booking/internal/analytics"
	"github.com/medibook/telehealth-booking/internal/audit"
	"github.com/medibook/telehealth-booking/internal/availability"
	"github.com/medibook/telehealth-booking/internal/consultation"
	"github.com/medibook/telehealth-booking/internal/idempotency"
	"github.com/medibook/telehealth-booking/internal/logging"
	"github.com/medibook/telehealth-booking/internal/metrics"
	"github.com/medibook/telehealth-booking/internal/payment"
	"github.com/medibook/telehealth-booking/internal/prescription"
)

type RouterConfig struct {
	Accounts      *account.Service
	Availability  *availability.Service
	Consultations *consultation.Service
	Payments      *payment.Service
	Prescriptions *prescription.Service
	Audits        *audit.Service
	Analytics     *analytics.Service
	Tokens        *account.TokenIssuer
	Idempotency   *idempotency.Middleware

	PgPool *pgxpool.Pool
	Redis  *redis.Client

	Metrics  *metrics.Metrics
	Registry *prometheus.Registry
	Log      *logging.Logger

	RateLimitPerSecond float64
	RateLimitBurst     int

	Env     string
	Version string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(CorrelationIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Log, cfg.Metrics))
	if cfg.RateLimitPerSecond > 0 {
		r.Use(RateLimit(cfg.RateLimitPerSecond, cfg.RateLimitBurst))
	}

	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	if cfg.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(cfg.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		// Public
		r.Post("/auth/register", registerHandler(cfg.Accounts))
		r.Post("/auth/login", loginHandler(cfg.Accounts))
		r.Post("/payments/webhook", paymentWebhookHandler(cfg.Payments))
		r.Get("/doctors", searchDoctorsHandler(cfg.Accounts))
		r.Get("/doctors/{id}", getDoctorHandler(cfg.Accounts))
		r.Get("/doctors/{id}/slots", listAvailableSlotsHandler(cfg.Availability))

		// Authenticated
		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(cfg.Tokens))
			if cfg.Idempotency != nil {
				r.Use(cfg.Idempotency.Handler)
			}

			r.Group(func(r chi.Router) {
				r.Use(RequireRole(account.RoleDoctor))

				r.Post("/doctors/me/profile", registerDoctorHandler(cfg.Accounts))
				r.Post("/slots", createSlotHandler(cfg.Availability, cfg.Accounts))
				r.Patch("/slots/{id}", updateSlotHandler(cfg.Availability, cfg.Accounts))
				r.Delete("/slots/{id}", deleteSlotHandler(cfg.Availability, cfg.Accounts))
				r.Get("/consultations/assigned", listDoctorConsultationsHandler(cfg.Consultations, cfg.Accounts))
				r.Patch("/consultations/{id}/status", updateConsultationStatusHandler(cfg.Consultations, cfg.Accounts))
				r.Post("/prescriptions", createPrescriptionHandler(cfg.Prescriptions, cfg.Accounts))
			})

			r.Group(func(r chi.Router) {
				r.Use(RequireRole(account.RolePatient))

				r.Post("/consultations", bookConsultationHandler(cfg.Consultations, cfg.Metrics))
				r.Get("/consultations/mine", listMyConsultationsHandler(cfg.Consultations))
			})

			// Any authenticated participant
			r.Get("/consultations/{id}", getConsultationHandler(cfg.Consultations, cfg.Accounts))
			r.Post("/consultations/{id}/cancel", cancelConsultationHandler(cfg.Consultations, cfg.Accounts))
			r.Get("/consultations/{id}/payment", getConsultationPaymentHandler(cfg.Payments, cfg.Consultations, cfg.Accounts))
			r.Get("/consultations/{id}/prescription", getConsultationPrescriptionHandler(cfg.Prescriptions, cfg.Accounts))

			r.Group(func(r chi.Router) {
				r.Use(RequireRole(account.RoleAdmin))

				r.Patch("/doctors/{id}/approval", approveDoctorHandler(cfg.Accounts))
				r.Get("/admin/audit-logs", listAuditLogsHandler(cfg.Audits))
				r.Get("/admin/analytics/summary", analyticsSummaryHandler(cfg.Analytics))
				r.Get("/admin/analytics/consultations-per-day", consultationsPerDayHandler(cfg.Analytics))
				r.Get("/admin/analytics/conversion", conversionRateHandler(cfg.Analytics))
				r.Get("/admin/analytics/doctor-utilization", doctorUtilizationHandler(cfg.Analytics))
			})
		})
	})

	return r
}
