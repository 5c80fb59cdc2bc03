// Package router arma el árbol de rutas y las cadenas de middlewares.
package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	adminctrl "github.com/Sergiovil64/gestion-tareas-modulo1/internal/http/controllers/admin"
	authctrl "github.com/Sergiovil64/gestion-tareas-modulo1/internal/http/controllers/auth"
	healthctrl "github.com/Sergiovil64/gestion-tareas-modulo1/internal/http/controllers/health"
	mfactrl "github.com/Sergiovil64/gestion-tareas-modulo1/internal/http/controllers/mfa"
	passwordctrl "github.com/Sergiovil64/gestion-tareas-modulo1/internal/http/controllers/password"
	taskctrl "github.com/Sergiovil64/gestion-tareas-modulo1/internal/http/controllers/task"
	httperrors "github.com/Sergiovil64/gestion-tareas-modulo1/internal/http/errors"
	mw "github.com/Sergiovil64/gestion-tareas-modulo1/internal/http/middlewares"
	jwtx "github.com/Sergiovil64/gestion-tareas-modulo1/internal/jwt"
	"github.com/Sergiovil64/gestion-tareas-modulo1/internal/rate"
	"github.com/Sergiovil64/gestion-tareas-modulo1/internal/store/core"
)

// RateRule es una regla de limitación para un grupo de rutas.
type RateRule struct {
	Requests int
	Window   time.Duration
}

// Deps contiene todo lo necesario para armar el router.
type Deps struct {
	Issuer *jwtx.Issuer
	Store  core.Store

	Auth     *authctrl.Controller
	MFA      *mfactrl.Controller
	Password *passwordctrl.Controller
	Tasks    *taskctrl.Controller
	Admin    *adminctrl.Controller
	Health   *healthctrl.Controller

	Limiter     rate.Limiter
	CORSOrigins []string
	GlobalRate  RateRule
	LoginRate   RateRule
}

// New construye el handler raíz.
func New(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httperrors.WriteError(w, httperrors.ErrRouteNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		httperrors.WriteError(w, httperrors.ErrMethodNotAllowed)
	})

	authMW := mw.WithAuth(deps.Issuer, deps.Store.Users())

	r.Get("/", deps.Health.Healthz)
	r.Get("/healthz", deps.Health.Healthz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api", func(api chi.Router) {
		api.Use(mw.WithRateLimit(deps.Limiter, "global", deps.GlobalRate.Requests, deps.GlobalRate.Window))

		// Rutas públicas. Login y registro llevan un límite más estricto.
		api.Group(func(pub chi.Router) {
			pub.Use(mw.WithRateLimit(deps.Limiter, "login", deps.LoginRate.Requests, deps.LoginRate.Window))
			pub.Post("/auth/register", deps.Auth.Register)
			pub.Post("/auth/login", deps.Auth.Login)
		})

		// Rutas autenticadas: freshness de cuenta, compuerta de setup MFA
		// y compuerta de rotación de contraseña.
		api.Group(func(priv chi.Router) {
			priv.Use(authMW, mw.WithSetupGate(), mw.WithPasswordGate())

			priv.Get("/auth/me", deps.Auth.Me)
			priv.Post("/auth/upgrade", deps.Auth.Upgrade)

			priv.Post("/mfa/enable", deps.MFA.Enable)
			priv.Post("/mfa/verify", deps.MFA.Verify)
			priv.Get("/mfa/status", deps.MFA.Status)
			priv.Post("/mfa/disable", deps.MFA.Disable)
			priv.Post("/mfa/backup-codes/regenerate", deps.MFA.Regenerate)

			priv.Post("/password/change", deps.Password.Change)
			priv.Get("/password/status", deps.Password.Status)

			priv.Route("/tasks", func(t chi.Router) {
				t.Post("/", deps.Tasks.Create)
				t.Get("/", deps.Tasks.List)
				t.Get("/{id}", deps.Tasks.Get)
				t.Put("/{id}", deps.Tasks.Update)
				t.Delete("/{id}", deps.Tasks.Delete)
			})

			priv.Route("/admin", func(a chi.Router) {
				a.Use(mw.RequireRole(core.RoleAdmin))
				a.Get("/users", deps.Admin.ListUsers)
				a.Put("/users/{id}/role", deps.Admin.UpdateRole)
				a.Put("/users/{id}/status", deps.Admin.UpdateStatus)
				a.Post("/users/{id}/force-password-change", deps.Admin.ForcePasswordChange)
				a.Get("/stats", deps.Admin.Stats)
			})
		})
	})

	// Cadena externa: recover el más afuera, logging después del request
	// id para heredar el campo request_id.
	return mw.Chain(r,
		mw.WithRecover(),
		mw.WithRequestID(),
		mw.WithLogging(),
		mw.WithCORS(deps.CORSOrigins),
		mw.WithSecurityHeaders(),
	)
}
