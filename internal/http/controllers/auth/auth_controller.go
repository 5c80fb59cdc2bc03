package auth

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/Sergiovil64/gestion-tareas-modulo1/internal/http/controllers"
	dto "github.com/Sergiovil64/gestion-tareas-modulo1/internal/http/dto/auth"
	httperrors "github.com/Sergiovil64/gestion-tareas-modulo1/internal/http/errors"
	"github.com/Sergiovil64/gestion-tareas-modulo1/internal/http/middlewares"
	svc "github.com/Sergiovil64/gestion-tareas-modulo1/internal/http/services/auth"
	"github.com/Sergiovil64/gestion-tareas-modulo1/internal/observability/logger"
)

// Controller maneja registro, login y sesión.
type Controller struct {
	service *svc.Service
}

func NewController(service *svc.Service) *Controller {
	return &Controller{service: service}
}

// Register maneja POST /api/auth/register
func (c *Controller) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("AuthController.Register"))

	var req dto.RegisterRequest
	if !controllers.DecodeJSON(w, r, &req) {
		return
	}

	resp, err := c.service.Register(ctx, req)
	if err != nil {
		log.Debug("registro rechazado", logger.Err(err))
		writeAuthError(w, err)
		return
	}

	controllers.NoStore(w)
	controllers.WriteJSON(w, http.StatusCreated, resp)
}

// Login maneja POST /api/auth/login
func (c *Controller) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("AuthController.Login"))

	var req dto.LoginRequest
	if !controllers.DecodeJSON(w, r, &req) {
		return
	}

	resp, err := c.service.Login(ctx, req)
	if err != nil {
		log.Debug("login rechazado", logger.Err(err))
		writeAuthError(w, err)
		return
	}

	controllers.NoStore(w)
	controllers.WriteJSON(w, http.StatusOK, resp)
}

// Me maneja GET /api/auth/me
func (c *Controller) Me(w http.ResponseWriter, r *http.Request) {
	u := middlewares.GetUser(r.Context())
	if u == nil {
		httperrors.WriteError(w, httperrors.ErrUnauthorized)
		return
	}
	controllers.WriteJSON(w, http.StatusOK, svc.UserToDTO(u))
}

// Upgrade maneja POST /api/auth/upgrade
func (c *Controller) Upgrade(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	u := middlewares.GetUser(ctx)
	if u == nil {
		httperrors.WriteError(w, httperrors.ErrUnauthorized)
		return
	}

	resp, err := c.service.Upgrade(ctx, u)
	if err != nil {
		writeAuthError(w, err)
		return
	}

	controllers.NoStore(w)
	controllers.WriteJSON(w, http.StatusOK, resp)
}

// ─── Helpers ────────────────────────────────────────────────────────────────

// setupIncompleteBody es la respuesta 403 de MFA pendiente: además del
// error lleva el token restringido para retomar el setup.
type setupIncompleteBody struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	SetupToken string `json:"setupToken"`
}

// writeAuthError mapea errores del servicio a AppErrors.
func writeAuthError(w http.ResponseWriter, err error) {
	var (
		lockedErr *svc.LockedError
		credErr   *svc.CredentialsError
		policyErr *svc.PolicyError
		setupErr  *svc.SetupIncompleteError
	)

	switch {
	case errors.As(err, &lockedErr):
		secs := int(lockedErr.RetryAfter.Seconds()) + 1
		w.Header().Set("Retry-After", fmt.Sprintf("%d", secs))
		httperrors.WriteError(w, httperrors.ErrAccountLocked.WithDetail(
			fmt.Sprintf("reintente en %d segundos", secs)))

	case errors.As(err, &credErr):
		httperrors.WriteError(w, httperrors.ErrInvalidCredentials.WithDetail(
			fmt.Sprintf("intentos restantes: %d", credErr.Remaining)))

	case errors.As(err, &policyErr):
		httperrors.WriteError(w, httperrors.ErrPasswordPolicy.WithDetail(
			policyReasonsDetail(policyErr.Reasons)))

	case errors.As(err, &setupErr):
		controllers.NoStore(w)
		controllers.WriteJSON(w, http.StatusForbidden, setupIncompleteBody{
			Code:       httperrors.ErrMFASetupIncomplete.Code,
			Message:    httperrors.ErrMFASetupIncomplete.Message,
			SetupToken: setupErr.SetupToken,
		})

	case errors.Is(err, svc.ErrInvalidCredentials):
		httperrors.WriteError(w, httperrors.ErrInvalidCredentials)
	case errors.Is(err, svc.ErrUserDisabled):
		httperrors.WriteError(w, httperrors.ErrAccountDisabled)
	case errors.Is(err, svc.ErrInvalidMFACode):
		httperrors.WriteError(w, httperrors.ErrInvalidMFACode)
	case errors.Is(err, svc.ErrEmailTaken):
		httperrors.WriteError(w, httperrors.ErrEmailAlreadyInUse)
	case errors.Is(err, svc.ErrInvalidName):
		httperrors.WriteError(w, httperrors.ErrValidation.WithDetail("name"))
	case errors.Is(err, svc.ErrInvalidEmail):
		httperrors.WriteError(w, httperrors.ErrValidation.WithDetail("email"))
	case errors.Is(err, svc.ErrMissingFields):
		httperrors.WriteError(w, httperrors.ErrBadRequest.WithDetail("campos requeridos faltantes"))
	case errors.Is(err, svc.ErrAlreadyPremium):
		httperrors.WriteError(w, httperrors.ErrValidation.WithDetail("la cuenta ya es premium"))
	default:
		httperrors.WriteError(w, httperrors.ErrInternalServerError.WithCause(err))
	}
}

// policyReasonsDetail traduce los códigos de la política a un mensaje.
func policyReasonsDetail(reasons []string) string {
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
