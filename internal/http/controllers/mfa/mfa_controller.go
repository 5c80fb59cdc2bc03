package mfa

import (
	"errors"
	"net/http"

	"github.com/Sergiovil64/gestion-tareas-modulo1/internal/http/controllers"
	dto "github.com/Sergiovil64/gestion-tareas-modulo1/internal/http/dto/mfa"
	httperrors "github.com/Sergiovil64/gestion-tareas-modulo1/internal/http/errors"
	"github.com/Sergiovil64/gestion-tareas-modulo1/internal/http/middlewares"
	svc "github.com/Sergiovil64/gestion-tareas-modulo1/internal/http/services/mfa"
	"github.com/Sergiovil64/gestion-tareas-modulo1/internal/observability/logger"
)

// Controller maneja el ciclo de vida del segundo factor.
type Controller struct {
	service *svc.Service
}

func NewController(service *svc.Service) *Controller {
	return &Controller{service: service}
}

// Enable maneja POST /api/mfa/enable
func (c *Controller) Enable(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	u := middlewares.GetUser(ctx)
	if u == nil {
		httperrors.WriteError(w, httperrors.ErrUnauthorized)
		return
	}

	resp, err := c.service.Enable(ctx, u)
	if err != nil {
		writeMFAError(w, err)
		return
	}

	// El secreto y los códigos en claro no deben quedar en ningún cache.
	controllers.NoStore(w)
	controllers.WriteJSON(w, http.StatusOK, resp)
}

// Verify maneja POST /api/mfa/verify
func (c *Controller) Verify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("MFAController.Verify"))

	u := middlewares.GetUser(ctx)
	if u == nil {
		httperrors.WriteError(w, httperrors.ErrUnauthorized)
		return
	}

	var req dto.VerifyRequest
	if !controllers.DecodeJSON(w, r, &req) {
		return
	}

	resp, err := c.service.Verify(ctx, u, req.Token)
	if err != nil {
		log.Debug("verificación mfa rechazada", logger.Err(err))
		writeMFAError(w, err)
		return
	}

	controllers.NoStore(w)
	controllers.WriteJSON(w, http.StatusOK, resp)
}

// Status maneja GET /api/mfa/status
func (c *Controller) Status(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	u := middlewares.GetUser(ctx)
	if u == nil {
		httperrors.WriteError(w, httperrors.ErrUnauthorized)
		return
	}

	resp, err := c.service.Status(ctx, u)
	if err != nil {
		writeMFAError(w, err)
		return
	}
	controllers.WriteJSON(w, http.StatusOK, resp)
}

// Disable maneja POST /api/mfa/disable
func (c *Controller) Disable(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	u := middlewares.GetUser(ctx)
	if u == nil {
		httperrors.WriteError(w, httperrors.ErrUnauthorized)
		return
	}

	var req dto.DisableRequest
	if !controllers.DecodeJSON(w, r, &req) {
		return
	}

	if err := c.service.Disable(ctx, u, req.Password); err != nil {
		writeMFAError(w, err)
		return
	}
	controllers.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "Autenticación de dos factores desactivada",
	})
}

// Regenerate maneja POST /api/mfa/backup-codes/regenerate
func (c *Controller) Regenerate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	u := middlewares.GetUser(ctx)
	if u == nil {
		httperrors.WriteError(w, httperrors.ErrUnauthorized)
		return
	}

	var req dto.RegenerateRequest
	if !controllers.DecodeJSON(w, r, &req) {
		return
	}

	resp, err := c.service.RegenerateBackupCodes(ctx, u, req.Password)
	if err != nil {
		writeMFAError(w, err)
		return
	}

	controllers.NoStore(w)
	controllers.WriteJSON(w, http.StatusOK, resp)
}

// ─── Helpers ────────────────────────────────────────────────────────────────

func writeMFAError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, svc.ErrAlreadyEnabled):
		httperrors.WriteError(w, httperrors.ErrMFAAlreadyEnabled)
	case errors.Is(err, svc.ErrNotEnabled):
		httperrors.WriteError(w, httperrors.ErrMFANotEnabled)
	case errors.Is(err, svc.ErrNoPendingSetup):
		httperrors.WriteError(w, httperrors.ErrMFANotEnabled.WithDetail("no hay setup pendiente"))
	case errors.Is(err, svc.ErrInvalidCode):
		httperrors.WriteError(w, httperrors.ErrInvalidMFACode)
	case errors.Is(err, svc.ErrInvalidPassword):
		httperrors.WriteError(w, httperrors.ErrInvalidCredentials)
	default:
		httperrors.WriteError(w, httperrors.ErrInternalServerError.WithCause(err))
	}
}
