package admin

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/Sergiovil64/gestion-tareas-modulo1/internal/http/controllers"
	dto "github.com/Sergiovil64/gestion-tareas-modulo1/internal/http/dto/admin"
	httperrors "github.com/Sergiovil64/gestion-tareas-modulo1/internal/http/errors"
	"github.com/Sergiovil64/gestion-tareas-modulo1/internal/http/middlewares"
	svc "github.com/Sergiovil64/gestion-tareas-modulo1/internal/http/services/admin"
	"github.com/Sergiovil64/gestion-tareas-modulo1/internal/store/core"
)

// Controller maneja el panel de administración.
type Controller struct {
	service *svc.Service
}

func NewController(service *svc.Service) *Controller {
	return &Controller{service: service}
}

// ListUsers maneja GET /api/admin/users
func (c *Controller) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := c.service.ListUsers(r.Context())
	if err != nil {
		writeAdminError(w, err)
		return
	}
	controllers.WriteJSON(w, http.StatusOK, users)
}

// UpdateRole maneja PUT /api/admin/users/{id}/role
func (c *Controller) UpdateRole(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor := middlewares.GetUser(ctx)
	if actor == nil {
		httperrors.WriteError(w, httperrors.ErrUnauthorized)
		return
	}

	id, ok := userID(w, r)
	if !ok {
		return
	}

	var req dto.UpdateRoleRequest
	if !controllers.DecodeJSON(w, r, &req) {
		return
	}

	if err := c.service.UpdateRole(ctx, actor, id, core.Role(req.Role)); err != nil {
		writeAdminError(w, err)
		return
	}
	controllers.WriteJSON(w, http.StatusOK, map[string]string{"message": "Rol actualizado"})
}

// UpdateStatus maneja PUT /api/admin/users/{id}/status
func (c *Controller) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor := middlewares.GetUser(ctx)
	if actor == nil {
		httperrors.WriteError(w, httperrors.ErrUnauthorized)
		return
	}

	id, ok := userID(w, r)
	if !ok {
		return
	}

	var req dto.UpdateStatusRequest
	if !controllers.DecodeJSON(w, r, &req) {
		return
	}

	if err := c.service.SetStatus(ctx, actor, id, req.IsActive); err != nil {
		writeAdminError(w, err)
		return
	}
	controllers.WriteJSON(w, http.StatusOK, map[string]string{"message": "Estado actualizado"})
}

// ForcePasswordChange maneja POST /api/admin/users/{id}/force-password-change
func (c *Controller) ForcePasswordChange(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}

	if err := c.service.ForcePasswordChange(r.Context(), id); err != nil {
		writeAdminError(w, err)
		return
	}
	controllers.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "Rotación de contraseña forzada",
	})
}

// Stats maneja GET /api/admin/stats
func (c *Controller) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := c.service.Stats(r.Context())
	if err != nil {
		writeAdminError(w, err)
		return
	}
	controllers.WriteJSON(w, http.StatusOK, stats)
}

// ─── Helpers ────────────────────────────────────────────────────────────────

func userID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httperrors.WriteError(w, httperrors.ErrValidation.WithDetail("id inválido"))
		return uuid.Nil, false
	}
	return id, true
}

func writeAdminError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, svc.ErrUserNotFound):
		httperrors.WriteError(w, httperrors.ErrUserNotFound)
	case errors.Is(err, svc.ErrInvalidRole):
		httperrors.WriteError(w, httperrors.ErrValidation.WithDetail("rol inválido"))
	case errors.Is(err, svc.ErrSelfDemotion):
		httperrors.WriteError(w, httperrors.ErrValidation.WithDetail("no puede cambiar su propio rol"))
	case errors.Is(err, svc.ErrSelfDeactivate):
		httperrors.WriteError(w, httperrors.ErrValidation.WithDetail("no puede desactivar su propia cuenta"))
	default:
		httperrors.WriteError(w, httperrors.ErrInternalServerError.WithCause(err))
	}
}
