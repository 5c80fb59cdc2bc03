package password

import (
	"errors"
	"net/http"

	"github.com/Sergiovil64/gestion-tareas-modulo1/internal/http/controllers"
	dto "github.com/Sergiovil64/gestion-tareas-modulo1/internal/http/dto/password"
	httperrors "github.com/Sergiovil64/gestion-tareas-modulo1/internal/http/errors"
	"github.com/Sergiovil64/gestion-tareas-modulo1/internal/http/middlewares"
	svc "github.com/Sergiovil64/gestion-tareas-modulo1/internal/http/services/password"
	"github.com/Sergiovil64/gestion-tareas-modulo1/internal/observability/logger"
)

// Controller maneja el ciclo de vida de contraseñas.
type Controller struct {
	service *svc.Service
}

func NewController(service *svc.Service) *Controller {
	return &Controller{service: service}
}

// Change maneja POST /api/password/change
func (c *Controller) Change(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("PasswordController.Change"))

	u := middlewares.GetUser(ctx)
	if u == nil {
		httperrors.WriteError(w, httperrors.ErrUnauthorized)
		return
	}

	var req dto.ChangeRequest
	if !controllers.DecodeJSON(w, r, &req) {
		return
	}

	resp, err := c.service.Change(ctx, u, req)
	if err != nil {
		log.Debug("cambio de contraseña rechazado", logger.Err(err))
		writePasswordError(w, err)
		return
	}

	controllers.NoStore(w)
	controllers.WriteJSON(w, http.StatusOK, resp)
}

// Status maneja GET /api/password/status
func (c *Controller) Status(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	u := middlewares.GetUser(ctx)
	if u == nil {
		httperrors.WriteError(w, httperrors.ErrUnauthorized)
		return
	}
	controllers.WriteJSON(w, http.StatusOK, c.service.Status(ctx, u))
}

// ─── Helpers ────────────────────────────────────────────────────────────────

func writePasswordError(w http.ResponseWriter, err error) {
	var policyErr *svc.PolicyError

	switch {
	case errors.As(err, &policyErr):
		httperrors.WriteError(w, httperrors.ErrPasswordPolicy.WithDetail(
			joinReasons(policyErr.Reasons)))
	case errors.Is(err, svc.ErrMissingFields):
		httperrors.WriteError(w, httperrors.ErrBadRequest.WithDetail("campos requeridos faltantes"))
	case errors.Is(err, svc.ErrMismatch):
		httperrors.WriteError(w, httperrors.ErrPasswordMismatch)
	case errors.Is(err, svc.ErrInvalidPassword):
		httperrors.WriteError(w, httperrors.ErrInvalidCredentials)
	case errors.Is(err, svc.ErrSameAsCurrent):
		httperrors.WriteError(w, httperrors.ErrPasswordSameAsCurrent)
	case errors.Is(err, svc.ErrReused):
		httperrors.WriteError(w, httperrors.ErrPasswordReused)
	default:
		httperrors.WriteError(w, httperrors.ErrInternalServerError.WithCause(err))
	}
}

func joinReasons(reasons []string) string {
	msgs := map[string]string{
		"too_short":       "mínimo 12 caracteres",
		"too_long":        "máximo 128 caracteres",
		"missing_upper":   "al menos una mayúscula",
		"missing_lower":   "al menos una minúscula",
		"missing_digit":   "al menos un número",
		"missing_special": "al menos un carácter especial (@$!%*?&)",
	}
	out := ""
	for i, r := range reasons {
		if i > 0 {
			out += "; "
		}
		if m, ok := msgs[r]; ok {
			out += m
		} else {
			out += r
		}
	}
	return out
}
