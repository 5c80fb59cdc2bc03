package pg

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Sergiovil64/gestion-tareas-modulo1/internal/store/core"
)

type userRepo struct{ pool *pgxpool.Pool }

const userColumns = `id, name, email, password_hash, role, is_active,
	login_attempts, last_login_attempt,
	mfa_enabled, mfa_secret_enc, mfa_last_counter,
	password_changed_at, password_expires_at, must_change_password,
	last_password_change_required, created_at, updated_at`

func scanUser(row pgx.Row) (*core.User, error) {
	var u core.User
	err := row.Scan(
		&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.IsActive,
		&u.LoginAttempts, &u.LastLoginAttempt,
		&u.MFAEnabled, &u.MFASecretEnc, &u.MFALastCounter,
		&u.PasswordChangedAt, &u.PasswordExpiresAt, &u.MustChangePassword,
		&u.LastPasswordChangeRequired, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, mapNoRows(err)
	}
	return &u, nil
}

func (r *userRepo) Create(ctx context.Context, u *core.User) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO users (id, name, email, password_hash, role, is_active,
			password_changed_at, password_expires_at, created_at, updated_at)
		VALUES ($1, $2, lower($3), $4, $5, $6, $7, $8, now(), now())`,
		u.ID, u.Name, u.Email, u.PasswordHash, u.Role, u.IsActive,
		u.PasswordChangedAt, u.PasswordExpiresAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return core.ErrDuplicateEmail
		}
		return fmt.Errorf("pg: crear usuario: %w", err)
	}
	// Historial inicial: la contraseña de registro también cuenta para
	// la verificación de reutilización.
	_, err = r.pool.Exec(ctx, `
		INSERT INTO password_history (user_id, password_hash, changed_at)
		VALUES ($1, $2, $3)`,
		u.ID, u.PasswordHash, u.PasswordChangedAt,
	)
	if err != nil {
		return fmt.Errorf("pg: historial inicial: %w", err)
	}
	return nil
}

func (r *userRepo) GetByID(ctx context.Context, id uuid.UUID) (*core.User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*core.User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = lower($1)`, email)
	return scanUser(row)
}

func (r *userRepo) List(ctx context.Context) ([]core.User, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("pg: listar usuarios: %w", err)
	}
	defer rows.Close()

	var out []core.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *u)
	}
	return out, rows.Err()
}

// RecordLoginFailure incrementa y sella en una sola sentencia. El RETURNING
// devuelve el contador ya incrementado: dos logins concurrentes ven valores
// distintos, nunca el mismo.
func (r *userRepo) RecordLoginFailure(ctx context.Context, id uuid.UUID, at time.Time) (int, error) {
	var attempts int
	err := r.pool.QueryRow(ctx, `
		UPDATE users
		SET login_attempts = login_attempts + 1,
		    last_login_attempt = $2,
		    updated_at = now()
		WHERE id = $1
		RETURNING login_attempts`,
		id, at,
	).Scan(&attempts)
	if err != nil {
		return 0, mapNoRows(err)
	}
	return attempts, nil
}

func (r *userRepo) ResetLoginAttempts(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE users
		SET login_attempts = 0, last_login_attempt = NULL, updated_at = now()
		WHERE id = $1`, id)
	return err
}

func (r *userRepo) UpdateRole(ctx context.Context, id uuid.UUID, role core.Role) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE users SET role = $2, updated_at = now() WHERE id = $1`, id, role)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (r *userRepo) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE users SET is_active = $2, updated_at = now() WHERE id = $1`, id, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (r *userRepo) ForcePasswordChange(ctx context.Context, id uuid.UUID, at time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE users
		SET must_change_password = TRUE,
		    last_password_change_required = $2,
		    updated_at = now()
		WHERE id = $1`, id, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	return nil
}

// ChangePassword hace todo el efecto del cambio en una transacción: el
// historial nunca queda con la entrada nueva sin la poda, ni al revés.
func (r *userRepo) ChangePassword(ctx context.Context, id uuid.UUID, newHash string, changedAt, expiresAt time.Time, keepHistory int) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("pg: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `
		UPDATE users
		SET password_hash = $2,
		    password_changed_at = $3,
		    password_expires_at = $4,
		    must_change_password = FALSE,
		    last_password_change_required = NULL,
		    updated_at = now()
		WHERE id = $1`,
		id, newHash, changedAt, expiresAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return core.ErrNotFound
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO password_history (user_id, password_hash, changed_at)
		VALUES ($1, $2, $3)`, id, newHash, changedAt); err != nil {
		return err
	}

	// Poda: conserva solo las keepHistory entradas más recientes.
	if _, err := tx.Exec(ctx, `
		DELETE FROM password_history
		WHERE user_id = $1
		  AND id NOT IN (
			SELECT id FROM password_history
			WHERE user_id = $1
			ORDER BY changed_at DESC, id DESC
			LIMIT $2
		  )`, id, keepHistory); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *userRepo) RecentPasswordHashes(ctx context.Context, id uuid.UUID, n int) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT password_hash FROM password_history
		WHERE user_id = $1
		ORDER BY changed_at DESC, id DESC
		LIMIT $2`, id, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func (r *userRepo) Stats(ctx context.Context) (*core.Stats, error) {
	st := &core.Stats{
		UsersByRole:   make(map[core.Role]int),
		TasksByStatus: make(map[core.TaskStatus]int),
	}

	rows, err := r.pool.Query(ctx, `SELECT role, is_active, count(*) FROM users GROUP BY role, is_active`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var role core.Role
		var active bool
		var n int
		if err := rows.Scan(&role, &active, &n); err != nil {
			return nil, err
		}
		st.UsersByRole[role] += n
		if active {
			st.ActiveUsers += n
		} else {
			st.InactiveUsers += n
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	trows, err := r.pool.Query(ctx, `SELECT status, count(*) FROM tasks GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer trows.Close()
	for trows.Next() {
		var status core.TaskStatus
		var n int
		if err := trows.Scan(&status, &n); err != nil {
			return nil, err
		}
		st.TasksByStatus[status] = n
	}
	return st, trows.Err()
}
