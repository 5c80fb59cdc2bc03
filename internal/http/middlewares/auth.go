package middlewares

import (
	stderrors "errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/Sergiovil64/gestion-tareas-modulo1/internal/http/errors"
	"github.com/Sergiovil64/gestion-tareas-modulo1/internal/jwt"
	"github.com/Sergiovil64/gestion-tareas-modulo1/internal/observability/logger"
	"github.com/Sergiovil64/gestion-tareas-modulo1/internal/store/core"
)

// WithAuth valida el Bearer token y resuelve la cuenta contra la BD en
// cada request: un token válido de una cuenta desactivada o borrada no
// sirve. Inyecta usuario y claims en el contexto.
func WithAuth(issuer *jwt.Issuer, users core.UserRepository) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := bearerToken(r)
			if raw == "" {
				w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
				errors.WriteError(w, errors.ErrTokenMissing)
				return
			}

			claims, err := issuer.Parse(raw)
			if err != nil {
				w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
				errors.WriteError(w, errors.ErrTokenInvalid)
				return
			}

			id, err := uuid.Parse(claims.Subject)
			if err != nil {
				errors.WriteError(w, errors.ErrTokenInvalid)
				return
			}

			u, err := users.GetByID(r.Context(), id)
			if err != nil {
				if stderrors.Is(err, core.ErrNotFound) {
					errors.WriteError(w, errors.ErrTokenInvalid)
					return
				}
				logger.From(r.Context()).Error("resolver usuario del token",
					logger.Op("auth"), logger.Err(err))
				errors.WriteError(w, errors.ErrInternalServerError)
				return
			}
			if !u.IsActive {
				errors.WriteError(w, errors.ErrAccountDisabled)
				return
			}

			ctx := WithUser(r.Context(), u)
			ctx = WithClaims(ctx, claims)
			ctx = logger.ToContext(ctx, logger.From(ctx).With(logger.UserID(u.ID.String())))

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if h == "" {
		return ""
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
