package middlewares

import (
	"net/http"
	"time"

	"github.com/Sergiovil64/gestion-tareas-modulo1/internal/http/errors"
)

// setupAllowlist son las rutas accesibles con un token restringido de
// setup MFA (emitido por el registro o por login con MFA sin completar).
var setupAllowlist = map[string]struct{}{
	"/api/auth/me":         {},
	"/api/mfa/enable":      {},
	"/api/mfa/verify":      {},
	"/api/mfa/status":      {},
	"/api/password/change": {},
	"/api/password/status": {},
}

// passwordAllowlist son las rutas accesibles cuando la rotación de
// contraseña está pendiente (expirada o forzada por un admin).
var passwordAllowlist = map[string]struct{}{
	"/api/auth/me":         {},
	"/api/password/change": {},
	"/api/password/status": {},
}

// WithSetupGate bloquea tokens restringidos fuera de las rutas de setup.
// Debe correr después de WithAuth.
func WithSetupGate() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cl := GetClaims(r.Context())
			if cl != nil && cl.RestrictedMFA {
				if _, ok := setupAllowlist[r.URL.Path]; !ok {
					errors.WriteError(w, errors.ErrMFASetupIncomplete)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WithPasswordGate bloquea las cuentas con rotación pendiente fuera de la
// lista permitida. La expiración se evalúa contra la BD en cada request,
// no contra el claim: el token se emitió antes de poder saber que venció.
func WithPasswordGate() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u := GetUser(r.Context())
			if u != nil && (u.MustChangePassword || u.PasswordExpired(time.Now())) {
				if _, ok := passwordAllowlist[r.URL.Path]; !ok {
					errors.WriteError(w, errors.ErrPasswordChangeRequired)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
