package health

import (
	"context"
	"net/http"
	"time"

	"github.com/Sergiovil64/gestion-tareas-modulo1/internal/http/controllers"
)

// Pinger abstrae el chequeo de conexión del store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Controller responde los healthchecks.
type Controller struct {
	store   Pinger
	version string
}

func NewController(store Pinger, version string) *Controller {
	return &Controller{store: store, version: version}
}

// Healthz maneja GET /healthz
func (c *Controller) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := "ok"
	code := http.StatusOK
	if err := c.store.Ping(ctx); err != nil {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	controllers.WriteJSON(w, code, map[string]string{
		"status":  status,
		"version": c.version,
	})
}
