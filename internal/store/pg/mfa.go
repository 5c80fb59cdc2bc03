package pg

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Sergiovil64/gestion-tareas-modulo1/internal/store/core"
)

type mfaRepo struct{ pool *pgxpool.Pool }

// SetPendingSecret deja la cuenta en PENDING. Si ya había un secreto sin
// activar, lo pisa (reintentar el setup genera secreto nuevo).
func (r *mfaRepo) SetPendingSecret(ctx context.Context, userID uuid.UUID, secretEnc string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE users
		SET mfa_secret_enc = $2,
		    mfa_enabled = FALSE,
		    mfa_last_counter = NULL,
		    updated_at = now()
		WHERE id = $1`, userID, secretEnc)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	return nil
}

// Activate es condicional: solo pasa a ACTIVE si hay secreto pendiente y
// el flag aún no está puesto. Dos verificaciones concurrentes no pueden
// activar dos veces.
func (r *mfaRepo) Activate(ctx context.Context, userID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE users
		SET mfa_enabled = TRUE, updated_at = now()
		WHERE id = $1
		  AND mfa_secret_enc IS NOT NULL
		  AND NOT mfa_enabled`, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return core.ErrConflict
	}
	return nil
}

func (r *mfaRepo) Disable(ctx context.Context, userID uuid.UUID) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("pg: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `
		UPDATE users
		SET mfa_enabled = FALSE,
		    mfa_secret_enc = NULL,
		    mfa_last_counter = NULL,
		    updated_at = now()
		WHERE id = $1`, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return core.ErrNotFound
	}

	if _, err := tx.Exec(ctx, `
		DELETE FROM mfa_backup_codes WHERE user_id = $1`, userID); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// AdvanceLastCounter es condicional: dos logins concurrentes con el mismo
// código TOTP compiten por el UPDATE y solo uno afecta la fila.
func (r *mfaRepo) AdvanceLastCounter(ctx context.Context, userID uuid.UUID, counter int64) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE users SET mfa_last_counter = $2, updated_at = now()
		WHERE id = $1
		  AND (mfa_last_counter IS NULL OR mfa_last_counter < $2)`,
		userID, counter)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *mfaRepo) ReplaceBackupCodes(ctx context.Context, userID uuid.UUID, hashes []string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("pg: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `
		DELETE FROM mfa_backup_codes WHERE user_id = $1`, userID); err != nil {
		return err
	}
	for _, h := range hashes {
		if _, err := tx.Exec(ctx, `
			INSERT INTO mfa_backup_codes (user_id, code_hash) VALUES ($1, $2)`,
			userID, h); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (r *mfaRepo) ListBackupCodes(ctx context.Context, userID uuid.UUID) ([]core.BackupCode, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, code_hash FROM mfa_backup_codes
		WHERE user_id = $1 ORDER BY id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []core.BackupCode
	for rows.Next() {
		var c core.BackupCode
		if err := rows.Scan(&c.ID, &c.UserID, &c.CodeHash); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ConsumeBackupCode borra la fila. RowsAffected==1 garantiza que dos
// requests con el mismo código no lo consuman dos veces: el DELETE del
// segundo no afecta filas.
func (r *mfaRepo) ConsumeBackupCode(ctx context.Context, id int64) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM mfa_backup_codes WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *mfaRepo) CountBackupCodes(ctx context.Context, userID uuid.UUID) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `
		SELECT count(*) FROM mfa_backup_codes WHERE user_id = $1`, userID).Scan(&n)
	return n, err
}
