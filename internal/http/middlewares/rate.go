package middlewares

import (
	"fmt"
	"net/http"
	"time"

	"github.com/Sergiovil64/gestion-tareas-modulo1/internal/http/errors"
	"github.com/Sergiovil64/gestion-tareas-modulo1/internal/metrics"
	"github.com/Sergiovil64/gestion-tareas-modulo1/internal/observability/logger"
	"github.com/Sergiovil64/gestion-tareas-modulo1/internal/rate"
)

// WithRateLimit limita requests por IP en ventana fija. prefix separa los
// contadores de distintos grupos de rutas (global vs login).
func WithRateLimit(limiter rate.Limiter, prefix string, requests int, window time.Duration) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limiter == nil {
				next.ServeHTTP(w, r)
				return
			}

			key := prefix + ":" + ClientIP(r)
			res, err := limiter.Allow(r.Context(), key, requests, window)
			if err != nil {
				// El limitador no puede tumbar el servicio: se deja pasar
				// y se registra el problema.
				logger.From(r.Context()).Warn("rate limiter no disponible",
					logger.Op("rate"), logger.Err(err))
				next.ServeHTTP(w, r)
				return
			}

			if !res.Allowed {
				metrics.RateLimited.Inc()
				retrySecs := int(res.RetryAfter.Seconds()) + 1
				w.Header().Set("Retry-After", fmt.Sprintf("%d", retrySecs))
				errors.WriteError(w, errors.ErrRateLimitExceeded.WithDetail(
					fmt.Sprintf("reintente en %d segundos", retrySecs)))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
