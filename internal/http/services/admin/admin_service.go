package admin

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	dto "github.com/Sergiovil64/gestion-tareas-modulo1/internal/http/dto/admin"
	"github.com/Sergiovil64/gestion-tareas-modulo1/internal/observability/logger"
	"github.com/Sergiovil64/gestion-tareas-modulo1/internal/store/core"
)

// Errores del panel de administración
var (
	ErrUserNotFound   = fmt.Errorf("user not found")
	ErrInvalidRole    = fmt.Errorf("invalid role")
	ErrSelfDemotion   = fmt.Errorf("cannot change own role")
	ErrSelfDeactivate = fmt.Errorf("cannot deactivate own account")
)

// Deps contiene las dependencias del servicio de administración.
type Deps struct {
	Users core.UserRepository
}

// Service implementa las operaciones de administración de cuentas.
type Service struct {
	deps Deps
}

func NewService(deps Deps) *Service {
	return &Service{deps: deps}
}

// ListUsers devuelve todas las cuentas.
func (s *Service) ListUsers(ctx context.Context) ([]dto.UserSummary, error) {
	users, err := s.deps.Users.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]dto.UserSummary, 0, len(users))
	for i := range users {
		out = append(out, toSummary(&users[i]))
	}
	return out, nil
}

// UpdateRole cambia el rol de una cuenta. Un admin no puede cambiarse el
// rol a sí mismo: evita quedarse sin administradores por accidente.
func (s *Service) UpdateRole(ctx context.Context, actor *core.User, id uuid.UUID, role core.Role) error {
	if !role.Valid() {
		return ErrInvalidRole
	}
	if actor.ID == id {
		return ErrSelfDemotion
	}
	if err := s.deps.Users.UpdateRole(ctx, id, role); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	logger.From(ctx).Info("rol actualizado",
		logger.Layer("service"), logger.Component("admin"), logger.Op("UpdateRole"),
		logger.UserID(id.String()), logger.Role(string(role)))
	return nil
}

// SetStatus activa o desactiva una cuenta. Un admin no puede
// desactivarse a sí mismo.
func (s *Service) SetStatus(ctx context.Context, actor *core.User, id uuid.UUID, active bool) error {
	if actor.ID == id && !active {
		return ErrSelfDeactivate
	}
	if err := s.deps.Users.SetActive(ctx, id, active); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	logger.From(ctx).Info("estado de cuenta actualizado",
		logger.Layer("service"), logger.Component("admin"), logger.Op("SetStatus"),
		logger.UserID(id.String()), logger.Any("active", active))
	return nil
}

// ForcePasswordChange marca la cuenta para rotación obligatoria: el
// próximo login sale con token restringido hasta que cambie la contraseña.
func (s *Service) ForcePasswordChange(ctx context.Context, id uuid.UUID) error {
	if err := s.deps.Users.ForcePasswordChange(ctx, id, time.Now()); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	logger.From(ctx).Info("rotación de contraseña forzada",
		logger.Layer("service"), logger.Component("admin"), logger.Op("ForcePasswordChange"),
		logger.UserID(id.String()))
	return nil
}

// Stats arma los agregados del panel.
func (s *Service) Stats(ctx context.Context) (*dto.StatsResponse, error) {
	st, err := s.deps.Users.Stats(ctx)
	if err != nil {
		return nil, err
	}
	resp := &dto.StatsResponse{
		UsersByRole:   make(map[string]int, len(st.UsersByRole)),
		ActiveUsers:   st.ActiveUsers,
		InactiveUsers: st.InactiveUsers,
		TasksByStatus: make(map[string]int, len(st.TasksByStatus)),
	}
	for r, n := range st.UsersByRole {
		resp.UsersByRole[string(r)] = n
	}
	for s, n := range st.TasksByStatus {
		resp.TasksByStatus[string(s)] = n
	}
	return resp, nil
}

func toSummary(u *core.User) dto.UserSummary {
	return dto.UserSummary{
		ID:                 u.ID.String(),
		Name:               u.Name,
		Email:              u.Email,
		Role:               string(u.Role),
		IsActive:           u.IsActive,
		MFAEnabled:         u.MFAEnabled,
		LoginAttempts:      u.LoginAttempts,
		MustChangePassword: u.MustChangePassword,
		PasswordExpiresAt:  u.PasswordExpiresAt,
		LastLoginAttempt:   u.LastLoginAttempt,
		CreatedAt:          u.CreatedAt,
	}
}
