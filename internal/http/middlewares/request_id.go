package middlewares

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/Sergiovil64/gestion-tareas-modulo1/internal/observability/logger"
)

const requestIDHeader = "X-Request-Id"

// WithRequestID asigna un ID a cada request (o respeta el entrante) y
// deja en el contexto un logger con el campo request_id ya puesto.
func WithRequestID() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(requestIDHeader)
			if id == "" {
				id = uuid.NewString()
			}
			w.Header().Set(requestIDHeader, id)

			ctx := setRequestID(r.Context(), id)
			scoped := logger.From(ctx).With(logger.RequestID(id))
			ctx = logger.ToContext(ctx, scoped)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
