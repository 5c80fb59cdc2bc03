package task

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/Sergiovil64/gestion-tareas-modulo1/internal/http/controllers"
	dto "github.com/Sergiovil64/gestion-tareas-modulo1/internal/http/dto/task"
	httperrors "github.com/Sergiovil64/gestion-tareas-modulo1/internal/http/errors"
	"github.com/Sergiovil64/gestion-tareas-modulo1/internal/http/middlewares"
	svc "github.com/Sergiovil64/gestion-tareas-modulo1/internal/http/services/task"
	"github.com/Sergiovil64/gestion-tareas-modulo1/internal/store/core"
)

// Controller maneja el CRUD de tareas.
type Controller struct {
	service *svc.Service
}

func NewController(service *svc.Service) *Controller {
	return &Controller{service: service}
}

// Create maneja POST /api/tasks
func (c *Controller) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	u := middlewares.GetUser(ctx)
	if u == nil {
		httperrors.WriteError(w, httperrors.ErrUnauthorized)
		return
	}

	var req dto.CreateRequest
	if !controllers.DecodeJSON(w, r, &req) {
		return
	}

	t, err := c.service.Create(ctx, u, req)
	if err != nil {
		writeTaskError(w, err)
		return
	}
	controllers.WriteJSON(w, http.StatusCreated, svc.ToDTO(t))
}

// List maneja GET /api/tasks
func (c *Controller) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	u := middlewares.GetUser(ctx)
	if u == nil {
		httperrors.WriteError(w, httperrors.ErrUnauthorized)
		return
	}

	tasks, err := c.service.List(ctx, u, r.URL.Query().Get("status"), r.URL.Query().Get("q"))
	if err != nil {
		writeTaskError(w, err)
		return
	}

	out := make([]dto.Response, 0, len(tasks))
	for i := range tasks {
		out = append(out, svc.ToDTO(&tasks[i]))
	}
	controllers.WriteJSON(w, http.StatusOK, out)
}

// Get maneja GET /api/tasks/{id}
func (c *Controller) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	u := middlewares.GetUser(ctx)
	if u == nil {
		httperrors.WriteError(w, httperrors.ErrUnauthorized)
		return
	}

	id, ok := taskID(w, r)
	if !ok {
		return
	}

	t, err := c.service.Get(ctx, u, id)
	if err != nil {
		writeTaskError(w, err)
		return
	}
	controllers.WriteJSON(w, http.StatusOK, svc.ToDTO(t))
}

// Update maneja PUT /api/tasks/{id}
func (c *Controller) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	u := middlewares.GetUser(ctx)
	if u == nil {
		httperrors.WriteError(w, httperrors.ErrUnauthorized)
		return
	}

	id, ok := taskID(w, r)
	if !ok {
		return
	}

	var req dto.UpdateRequest
	if !controllers.DecodeJSON(w, r, &req) {
		return
	}

	t, err := c.service.Update(ctx, u, id, req)
	if err != nil {
		writeTaskError(w, err)
		return
	}
	controllers.WriteJSON(w, http.StatusOK, svc.ToDTO(t))
}

// Delete maneja DELETE /api/tasks/{id}
func (c *Controller) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	u := middlewares.GetUser(ctx)
	if u == nil {
		httperrors.WriteError(w, httperrors.ErrUnauthorized)
		return
	}

	id, ok := taskID(w, r)
	if !ok {
		return
	}

	if err := c.service.Delete(ctx, u, id); err != nil {
		writeTaskError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ─── Helpers ────────────────────────────────────────────────────────────────

func taskID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httperrors.WriteError(w, httperrors.ErrValidation.WithDetail("id inválido"))
		return uuid.Nil, false
	}
	return id, true
}

func writeTaskError(w http.ResponseWriter, err error) {
	var valErr *svc.ValidationError

	switch {
	case errors.As(err, &valErr):
		httperrors.WriteError(w, httperrors.ErrValidation.WithDetail(valErr.Error()))
	case errors.Is(err, svc.ErrNotFound), errors.Is(err, core.ErrNotFound):
		httperrors.WriteError(w, httperrors.ErrTaskNotFound)
	case errors.Is(err, svc.ErrForbidden):
		httperrors.WriteError(w, httperrors.ErrForbidden)
	case errors.Is(err, svc.ErrUpgradeRequired):
		httperrors.WriteError(w, httperrors.ErrUpgradeRequired)
	default:
		httperrors.WriteError(w, httperrors.ErrInternalServerError.WithCause(err))
	}
}
