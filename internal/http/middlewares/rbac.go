package middlewares

import (
	"net/http"

	"github.com/Sergiovil64/gestion-tareas-modulo1/internal/http/errors"
	"github.com/Sergiovil64/gestion-tareas-modulo1/internal/store/core"
)

// RequireRole verifica que el usuario autenticado tenga alguno de los
// roles dados. Debe correr después de WithAuth.
func RequireRole(roles ...core.Role) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u := GetUser(r.Context())
			if u == nil {
				errors.WriteError(w, errors.ErrUnauthorized)
				return
			}
			for _, role := range roles {
				if u.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			errors.WriteError(w, errors.ErrForbidden.WithDetail("rol insuficiente"))
		})
	}
}
