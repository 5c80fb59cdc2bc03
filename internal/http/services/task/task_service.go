package task

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	dto "github.com/Sergiovil64/gestion-tareas-modulo1/internal/http/dto/task"
	"github.com/Sergiovil64/gestion-tareas-modulo1/internal/observability/logger"
	"github.com/Sergiovil64/gestion-tareas-modulo1/internal/store/core"
)

// Errores de tareas
var (
	ErrNotFound        = fmt.Errorf("task not found")
	ErrForbidden       = fmt.Errorf("task belongs to another user")
	ErrUpgradeRequired = fmt.Errorf("premium feature")
)

// ValidationError lleva los campos rechazados.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "invalid fields: " + strings.Join(e.Fields, ", ")
}

const (
	defaultPriority = 1
	defaultColor    = "#FFFFFF"
)

var (
	colorRe = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)
	urlRe   = regexp.MustCompile(`^https?://\S+$`)
)

// Deps contiene las dependencias del servicio de tareas.
type Deps struct {
	Tasks core.TaskRepository
}

// Service implementa el CRUD de tareas con la compuerta premium.
type Service struct {
	deps Deps
}

func NewService(deps Deps) *Service {
	return &Service{deps: deps}
}

// isPremium decide si la cuenta puede usar características premium.
func isPremium(u *core.User) bool {
	return u.Role == core.RolePremium || u.Role == core.RoleAdmin
}

// Create valida y crea una tarea. Prioridad distinta de 1, color distinto
// del default o imagen adjunta exigen cuenta PREMIUM o ADMIN.
func (s *Service) Create(ctx context.Context, u *core.User, in dto.CreateRequest) (*core.Task, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("task"),
		logger.Op("Create"),
	)

	var fields []string

	title := strings.TrimSpace(in.Title)
	if l := len([]rune(title)); l < 3 || l > 200 {
		fields = append(fields, "title")
	}
	if in.Description != nil && len([]rune(*in.Description)) > 1000 {
		fields = append(fields, "description")
	}

	status := core.TaskPending
	if in.Status != "" {
		status = core.TaskStatus(in.Status)
		if !status.Valid() {
			fields = append(fields, "status")
		}
	}

	if in.DueDate == nil {
		fields = append(fields, "dueDate")
	} else if in.DueDate.Before(time.Now().Truncate(24 * time.Hour)) {
		fields = append(fields, "dueDate")
	}

	priority := defaultPriority
	if in.Priority != nil {
		priority = *in.Priority
		if priority < 1 || priority > 5 {
			fields = append(fields, "priority")
		}
	}
	color := defaultColor
	if in.Color != nil {
		color = strings.ToUpper(*in.Color)
		if !colorRe.MatchString(color) {
			fields = append(fields, "color")
		}
	}
	if in.ImageURL != nil && !urlRe.MatchString(*in.ImageURL) {
		fields = append(fields, "imageUrl")
	}

	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	if usesPremiumFeatures(priority, color, in.ImageURL) && !isPremium(u) {
		return nil, ErrUpgradeRequired
	}

	t := &core.Task{
		ID:          uuid.New(),
		UserID:      u.ID,
		Title:       title,
		Description: in.Description,
		Status:      status,
		DueDate:     *in.DueDate,
		Priority:    priority,
		Color:       color,
		ImageURL:    in.ImageURL,
	}
	if err := s.deps.Tasks.Create(ctx, t); err != nil {
		return nil, err
	}

	log.Info("tarea creada", logger.TaskID(t.ID.String()))
	return t, nil
}

// List devuelve las tareas del usuario, con filtros opcionales.
func (s *Service) List(ctx context.Context, u *core.User, status, query string) ([]core.Task, error) {
	var st core.TaskStatus
	if status != "" {
		st = core.TaskStatus(status)
		if !st.Valid() {
			return nil, &ValidationError{Fields: []string{"status"}}
		}
	}
	return s.deps.Tasks.ListByUser(ctx, u.ID, st, strings.TrimSpace(query))
}

// Get devuelve una tarea si pertenece al usuario (o si es ADMIN).
func (s *Service) Get(ctx context.Context, u *core.User, id uuid.UUID) (*core.Task, error) {
	t, err := s.deps.Tasks.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if t.UserID != u.ID && u.Role != core.RoleAdmin {
		return nil, ErrForbidden
	}
	return t, nil
}

// Update aplica cambios parciales con las mismas validaciones del alta.
func (s *Service) Update(ctx context.Context, u *core.User, id uuid.UUID, in dto.UpdateRequest) (*core.Task, error) {
	t, err := s.Get(ctx, u, id)
	if err != nil {
		return nil, err
	}

	var fields []string

	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if l := len([]rune(title)); l < 3 || l > 200 {
			fields = append(fields, "title")
		} else {
			t.Title = title
		}
	}
	if in.Description != nil {
		if len([]rune(*in.Description)) > 1000 {
			fields = append(fields, "description")
		} else {
			t.Description = in.Description
		}
	}
	if in.Status != nil {
		st := core.TaskStatus(*in.Status)
		if !st.Valid() {
			fields = append(fields, "status")
		} else {
			t.Status = st
		}
	}
	if in.DueDate != nil {
		t.DueDate = *in.DueDate
	}
	if in.Priority != nil {
		if *in.Priority < 1 || *in.Priority > 5 {
			fields = append(fields, "priority")
		} else {
			t.Priority = *in.Priority
		}
	}
	if in.Color != nil {
		c := strings.ToUpper(*in.Color)
		if !colorRe.MatchString(c) {
			fields = append(fields, "color")
		} else {
			t.Color = c
		}
	}
	if in.ImageURL != nil {
		if !urlRe.MatchString(*in.ImageURL) {
			fields = append(fields, "imageUrl")
		} else {
			t.ImageURL = in.ImageURL
		}
	}

	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	if usesPremiumFeatures(t.Priority, t.Color, t.ImageURL) && !isPremium(u) {
		return nil, ErrUpgradeRequired
	}

	if err := s.deps.Tasks.Update(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// Delete borra una tarea del usuario (o cualquiera, si es ADMIN).
func (s *Service) Delete(ctx context.Context, u *core.User, id uuid.UUID) error {
	if _, err := s.Get(ctx, u, id); err != nil {
		return err
	}
	return s.deps.Tasks.Delete(ctx, id)
}

func usesPremiumFeatures(priority int, color string, imageURL *string) bool {
	return priority != defaultPriority ||
		!strings.EqualFold(color, defaultColor) ||
		(imageURL != nil && *imageURL != "")
}

// ToDTO arma la vista de una tarea.
func ToDTO(t *core.Task) dto.Response {
	return dto.Response{
		ID:          t.ID.String(),
		Title:       t.Title,
		Description: t.Description,
		Status:      string(t.Status),
		DueDate:     t.DueDate,
		Priority:    t.Priority,
		Color:       t.Color,
		ImageURL:    t.ImageURL,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}
