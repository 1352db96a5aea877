package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics exposes the service counters and the HTTP latency histogram.
type Metrics struct {
	bookingsTotal    *prometheus.CounterVec
	idempotentReplay prometheus.Counter
	remindersEmitted prometheus.Counter
	jobRetries       prometheus.Counter
	httpDuration     *prometheus.HistogramVec
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "telehealth",
			Subsystem: "booking",
			Name:      "attempts_total",
			Help:      "Booking attempts by outcome",
		}, []string{"outcome"}),
		idempotentReplay: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "telehealth",
			Subsystem: "idempotency",
			Name:      "replays_total",
			Help:      "Write requests answered from the idempotency store",
		}),
		remindersEmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "telehealth",
			Subsystem: "reminders",
			Name:      "emitted_total",
			Help:      "Consultation reminders handed to the notifier",
		}),
		jobRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "telehealth",
			Subsystem: "jobs",
			Name:      "retries_total",
			Help:      "Background job retry attempts",
		}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "telehealth",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by method and status",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "status"}),
	}

	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.bookingsTotal, m.idempotentReplay, m.remindersEmitted, m.jobRetries, m.httpDuration)
	return m
}

func (m *Metrics) ObserveBooking(outcome string) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveReplay() {
	if m == nil {
		return
	}
	m.idempotentReplay.Inc()
}

func (m *Metrics) ObserveReminder() {
	if m == nil {
		return
	}
	m.remindersEmitted.Inc()
}

func (m *Metrics) ObserveJobRetry() {
	if m == nil {
		return
	}
	m.jobRetries.Inc()
}

func (m *Metrics) ObserveHTTP(method, status string, seconds float64) {
	if m == nil {
		return
	}
	m.httpDuration.WithLabelValues(method, status).Observe(seconds)
}
