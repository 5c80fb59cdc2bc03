package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Métricas de negocio del servicio. Las etiquetas usan valores acotados
// (outcome, method) para no explotar la cardinalidad.
var (
	LoginAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gestion_tareas",
		Subsystem: "auth",
		Name:      "login_attempts_total",
		Help:      "Intentos de login por resultado.",
	}, []string{"outcome"}) // success | invalid_credentials | locked | disabled | mfa_required | mfa_failed | mfa_incomplete

	AccountLockouts = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "gestion_tareas",
		Subsystem: "auth",
		Name:      "account_lockouts_total",
		Help:      "Cuentas bloqueadas por exceso de intentos fallidos.",
	})

	MFAVerifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gestion_tareas",
		Subsystem: "mfa",
		Name:      "verifications_total",
		Help:      "Verificaciones de segundo factor por método y resultado.",
	}, []string{"method", "outcome"}) // method: totp | backup_code

	BackupCodesConsumed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "gestion_tareas",
		Subsystem: "mfa",
		Name:      "backup_codes_consumed_total",
		Help:      "Códigos de respaldo consumidos.",
	})

	PasswordChanges = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gestion_tareas",
		Subsystem: "password",
		Name:      "changes_total",
		Help:      "Cambios de contraseña por resultado.",
	}, []string{"outcome"}) // success | policy | reused | mismatch

	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gestion_tareas",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Requests HTTP por método y status.",
	}, []string{"method", "status"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "gestion_tareas",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "Duración de los requests HTTP.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method"})

	RateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "gestion_tareas",
		Subsystem: "http",
		Name:      "rate_limited_total",
		Help:      "Requests rechazados por el limitador.",
	})
)
