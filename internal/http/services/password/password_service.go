package password

import (
	"context"
	"fmt"
	"strings"
	"time"

	dto "github.com/Sergiovil64/gestion-tareas-modulo1/internal/http/dto/password"
	jwtx "github.com/Sergiovil64/gestion-tareas-modulo1/internal/jwt"
	"github.com/Sergiovil64/gestion-tareas-modulo1/internal/metrics"
	"github.com/Sergiovil64/gestion-tareas-modulo1/internal/observability/logger"
	pwd "github.com/Sergiovil64/gestion-tareas-modulo1/internal/security/password"
	"github.com/Sergiovil64/gestion-tareas-modulo1/internal/store/core"
)

// Errores del cambio de contraseña
var (
	ErrMissingFields   = fmt.Errorf("missing required fields")
	ErrMismatch        = fmt.Errorf("password confirmation mismatch")
	ErrInvalidPassword = fmt.Errorf("invalid current password")
	ErrSameAsCurrent   = fmt.Errorf("new password equals current")
	ErrReused          = fmt.Errorf("password reused")
)

// PolicyError indica contraseña rechazada por la política.
type PolicyError struct {
	Reasons []string
}

func (e *PolicyError) Error() string {
	return "password policy: " + strings.Join(e.Reasons, ", ")
}

// Deps contiene las dependencias del servicio de contraseñas.
type Deps struct {
	Users  core.UserRepository
	Issuer *jwtx.Issuer

	Policy         pwd.Policy
	ExpirationDays int
	HistoryCheck   int
	HistoryKeep    int
}

// Service implementa el ciclo de vida de contraseñas.
type Service struct {
	deps Deps
}

func NewService(deps Deps) *Service {
	return &Service{deps: deps}
}

// Change valida y aplica el cambio de contraseña. El orden de rechazos:
// confirmación, contraseña actual, política, igual a la actual,
// reutilización contra el historial. El éxito limpia los flags de
// rotación forzada y re-emite el token sin la marca.
func (s *Service) Change(ctx context.Context, u *core.User, in dto.ChangeRequest) (*dto.ChangeResponse, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("password"),
		logger.Op("Change"),
	)

	if in.CurrentPassword == "" || in.NewPassword == "" || in.ConfirmPassword == "" {
		return nil, ErrMissingFields
	}
	if in.NewPassword != in.ConfirmPassword {
		metrics.PasswordChanges.WithLabelValues("mismatch").Inc()
		return nil, ErrMismatch
	}
	if !pwd.Verify(in.CurrentPassword, u.PasswordHash) {
		return nil, ErrInvalidPassword
	}
	if ok, reasons := s.deps.Policy.Validate(in.NewPassword); !ok {
		metrics.PasswordChanges.WithLabelValues("policy").Inc()
		return nil, &PolicyError{Reasons: reasons}
	}
	if pwd.Verify(in.NewPassword, u.PasswordHash) {
		metrics.PasswordChanges.WithLabelValues("reused").Inc()
		return nil, ErrSameAsCurrent
	}

	// Reutilización: se compara contra las HistoryCheck más recientes.
	recent, err := s.deps.Users.RecentPasswordHashes(ctx, u.ID, s.deps.HistoryCheck)
	if err != nil {
		return nil, err
	}
	for _, h := range recent {
		if pwd.Verify(in.NewPassword, h) {
			metrics.PasswordChanges.WithLabelValues("reused").Inc()
			return nil, ErrReused
		}
	}

	newHash, err := pwd.Hash(pwd.Default, in.NewPassword)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now()
	expiresAt := now.AddDate(0, 0, s.deps.ExpirationDays)
	if err := s.deps.Users.ChangePassword(ctx, u.ID, newHash, now, expiresAt, s.deps.HistoryKeep); err != nil {
		return nil, err
	}

	tok, err := s.deps.Issuer.Issue(u.ID.String(), string(u.Role), jwtx.IssueOptions{})
	if err != nil {
		return nil, err
	}

	metrics.PasswordChanges.WithLabelValues("success").Inc()
	log.Info("contraseña cambiada")
	return &dto.ChangeResponse{
		Token:   tok,
		Message: "Contraseña actualizada correctamente",
	}, nil
}

// Status arma la vista del estado de la contraseña.
func (s *Service) Status(_ context.Context, u *core.User) *dto.StatusResponse {
	now := time.Now()
	days := int(time.Until(u.PasswordExpiresAt).Hours() / 24)
	if days < 0 {
		days = 0
	}
	return &dto.StatusResponse{
		ChangedAt:           u.PasswordChangedAt,
		ExpiresAt:           u.PasswordExpiresAt,
		DaysUntilExpiration: days,
		IsExpired:           u.PasswordExpired(now),
		MustChangePassword:  u.MustChangePassword || u.PasswordExpired(now),
		ExpirationDays:      s.deps.ExpirationDays,
	}
}
