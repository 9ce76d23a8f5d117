package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Login results recorded by AdminLogins.
const (
	LoginSuccess       = "success"
	LoginInvalidCreds  = "invalid_credentials"
	LoginNotAdmin      = "not_admin"
	LoginBackendFailed = "backend_error"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	RegistrationsCreated prometheus.Counter
	RegistrationFailures *prometheus.CounterVec
	RegistrationsUpdated prometheus.Counter
	RegistrationsDeleted prometheus.Counter

	AdminLogins     *prometheus.CounterVec
	ActiveSessions  prometheus.Gauge
	SessionsExpired prometheus.Counter

	BackendLatency *prometheus.HistogramVec

	AuditEvents *prometheus.CounterVec
}

// New registers all metrics on the default registry.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith registers all metrics on reg.
func NewWith(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		RegistrationsCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "inclusao_registrations_created_total",
			Help: "Total number of registrations submitted successfully",
		}),
		RegistrationFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "inclusao_registration_failures_total",
			Help: "Registration submissions that did not create a record",
		}, []string{"reason"}),
		RegistrationsUpdated: f.NewCounter(prometheus.CounterOpts{
			Name: "inclusao_registrations_updated_total",
			Help: "Registrations edited from the dashboard",
		}),
		RegistrationsDeleted: f.NewCounter(prometheus.CounterOpts{
			Name: "inclusao_registrations_deleted_total",
			Help: "Registrations deleted from the dashboard",
		}),
		AdminLogins: f.NewCounterVec(prometheus.CounterOpts{
			Name: "inclusao_admin_logins_total",
			Help: "Admin login attempts by result",
		}, []string{"result"}),
		ActiveSessions: f.NewGauge(prometheus.GaugeOpts{
			Name: "inclusao_active_sessions",
			Help: "Current number of admin sessions being watched",
		}),
		SessionsExpired: f.NewCounter(prometheus.CounterOpts{
			Name: "inclusao_sessions_expired_total",
			Help: "Admin sessions force-signed-out by the expiry watcher",
		}),
		BackendLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "inclusao_backend_call_seconds",
			Help:    "Latency of calls to the data/auth backend",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		AuditEvents: f.NewCounterVec(prometheus.CounterOpts{
			Name: "inclusao_audit_events_total",
			Help: "Audit events emitted by action",
		}, []string{"action"}),
	}
}

func (m *Metrics) IncRegistrationFailure(reason string) {
	m.RegistrationFailures.WithLabelValues(reason).Inc()
}

func (m *Metrics) IncAdminLogin(result string) {
	m.AdminLogins.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveBackendCall(operation string, seconds float64) {
	m.BackendLatency.WithLabelValues(operation).Observe(seconds)
}
