package core

import (
	"time"

	"github.com/google/uuid"
)

// Role es el rol de una cuenta.
type Role string

const (
	RoleAdmin   Role = "ADMIN"
	RolePremium Role = "PREMIUM"
	RoleFree    Role = "FREE"
)

// Valid indica si el rol es uno de los conocidos.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RolePremium, RoleFree:
		return true
	}
	return false
}

// TaskStatus es el estado de una tarea.
type TaskStatus string

const (
	TaskPending    TaskStatus = "PENDIENTE"
	TaskInProgress TaskStatus = "EN_PROGRESO"
	TaskCompleted  TaskStatus = "COMPLETADA"
)

func (s TaskStatus) Valid() bool {
	switch s {
	case TaskPending, TaskInProgress, TaskCompleted:
		return true
	}
	return false
}

// User es la cuenta de un usuario. El email se guarda siempre en minúsculas.
type User struct {
	ID           uuid.UUID
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	IsActive     bool

	// Estado del bloqueo por intentos fallidos. La ventana es deslizante:
	// se ancla al último intento fallido, no al primero.
	LoginAttempts    int
	LastLoginAttempt *time.Time

	// Estado MFA. MFASecretEnc es el secreto TOTP cifrado con AES-GCM;
	// NULL significa UNCONFIGURED, no-NULL con MFAEnabled=false es PENDING.
	MFAEnabled     bool
	MFASecretEnc   *string
	MFALastCounter *int64

	// Ciclo de vida de la contraseña.
	PasswordChangedAt          time.Time
	PasswordExpiresAt          time.Time
	MustChangePassword         bool
	LastPasswordChangeRequired *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// MFAState describe el estado del segundo factor de la cuenta.
type MFAState string

const (
	MFAUnconfigured MFAState = "UNCONFIGURED"
	MFAPending      MFAState = "PENDING"
	MFAActive       MFAState = "ACTIVE"
)

// MFA devuelve el estado del segundo factor derivado de los campos.
func (u *User) MFA() MFAState {
	switch {
	case u.MFAEnabled:
		return MFAActive
	case u.MFASecretEnc != nil:
		return MFAPending
	default:
		return MFAUnconfigured
	}
}

// PasswordExpired indica si la contraseña venció respecto a now.
func (u *User) PasswordExpired(now time.Time) bool {
	return now.After(u.PasswordExpiresAt)
}

// BackupCode es un código de respaldo hasheado. Consumirlo es borrar la fila.
type BackupCode struct {
	ID       int64
	UserID   uuid.UUID
	CodeHash string
}

// PasswordHistoryEntry es una contraseña anterior del usuario.
type PasswordHistoryEntry struct {
	ID           int64
	UserID       uuid.UUID
	PasswordHash string
	ChangedAt    time.Time
}

// Task es una tarea de un usuario.
type Task struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	Title       string
	Description *string
	Status      TaskStatus
	DueDate     time.Time
	Priority    int
	Color       string
	ImageURL    *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Stats son los agregados para el panel de administración.
type Stats struct {
	UsersByRole   map[Role]int
	ActiveUsers   int
	InactiveUsers int
	TasksByStatus map[TaskStatus]int
}
