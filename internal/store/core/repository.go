package core

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// UserRepository maneja las cuentas y su estado de login/contraseña.
// Las mutaciones de bloqueo son sentencias condicionales únicas: dos
// requests concurrentes nunca dejan el contador inconsistente.
type UserRepository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	List(ctx context.Context) ([]User, error)

	// RecordLoginFailure incrementa el contador y sella el timestamp en una
	// sola sentencia; devuelve el contador resultante.
	RecordLoginFailure(ctx context.Context, id uuid.UUID, at time.Time) (int, error)

	// ResetLoginAttempts vuelve el contador a cero y limpia el timestamp.
	ResetLoginAttempts(ctx context.Context, id uuid.UUID) error

	UpdateRole(ctx context.Context, id uuid.UUID, role Role) error
	SetActive(ctx context.Context, id uuid.UUID, active bool) error

	// ForcePasswordChange marca must_change_password y sella cuándo se exigió.
	ForcePasswordChange(ctx context.Context, id uuid.UUID, at time.Time) error

	// ChangePassword actualiza hash y fechas, limpia los flags de rotación
	// forzada, agrega la entrada al historial y poda a keepHistory entradas.
	// Todo dentro de una misma transacción.
	ChangePassword(ctx context.Context, id uuid.UUID, newHash string, changedAt, expiresAt time.Time, keepHistory int) error

	// RecentPasswordHashes devuelve los n hashes más recientes del historial.
	RecentPasswordHashes(ctx context.Context, id uuid.UUID, n int) ([]string, error)

	Stats(ctx context.Context) (*Stats, error)
}

// MFARepository maneja el segundo factor y los códigos de respaldo.
type MFARepository interface {
	// SetPendingSecret guarda el secreto cifrado y deja la cuenta en PENDING.
	SetPendingSecret(ctx context.Context, userID uuid.UUID, secretEnc string) error

	// Activate pasa PENDING -> ACTIVE. La sentencia es condicional: solo
	// aplica si hay secreto y MFA aún no está activo. Devuelve ErrConflict
	// si la precondición no se cumple.
	Activate(ctx context.Context, userID uuid.UUID) error

	// Disable vuelve a UNCONFIGURED: limpia secreto, flag y contador, y
	// borra los códigos de respaldo, en una transacción.
	Disable(ctx context.Context, userID uuid.UUID) error

	// AdvanceLastCounter persiste el último contador TOTP aceptado. Solo
	// avanza hacia adelante: devuelve false si otro request ya registró un
	// contador igual o mayor, y ese código debe rechazarse como repetido.
	AdvanceLastCounter(ctx context.Context, userID uuid.UUID, counter int64) (bool, error)

	// ReplaceBackupCodes borra el set anterior e inserta los hashes nuevos.
	ReplaceBackupCodes(ctx context.Context, userID uuid.UUID, hashes []string) error

	ListBackupCodes(ctx context.Context, userID uuid.UUID) ([]BackupCode, error)

	// ConsumeBackupCode borra el código por id. Devuelve true solo si la
	// fila existía: RowsAffected==1 es la garantía de un solo uso.
	ConsumeBackupCode(ctx context.Context, id int64) (bool, error)

	CountBackupCodes(ctx context.Context, userID uuid.UUID) (int, error)
}

// TaskRepository maneja las tareas.
type TaskRepository interface {
	Create(ctx context.Context, t *Task) error
	GetByID(ctx context.Context, id uuid.UUID) (*Task, error)
	ListByUser(ctx context.Context, userID uuid.UUID, status TaskStatus, query string) ([]Task, error)
	Update(ctx context.Context, t *Task) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// Store agrupa los repositorios.
type Store interface {
	Users() UserRepository
	MFA() MFARepository
	Tasks() TaskRepository

	// Ping verifica la conexión (healthcheck).
	Ping(ctx context.Context) error
	Close()
}
