package pg

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Sergiovil64/gestion-tareas-modulo1/internal/store/core"
)

type taskRepo struct{ pool *pgxpool.Pool }

const taskColumns = `id, user_id, title, description, status, due_date,
	priority, color, image_url, created_at, updated_at`

func scanTask(row pgx.Row) (*core.Task, error) {
	var t core.Task
	err := row.Scan(
		&t.ID, &t.UserID, &t.Title, &t.Description, &t.Status, &t.DueDate,
		&t.Priority, &t.Color, &t.ImageURL, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, mapNoRows(err)
	}
	return &t, nil
}

func (r *taskRepo) Create(ctx context.Context, t *core.Task) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO tasks (id, user_id, title, description, status, due_date,
			priority, color, image_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now(), now())`,
		t.ID, t.UserID, t.Title, t.Description, t.Status, t.DueDate,
		t.Priority, t.Color, t.ImageURL,
	)
	if err != nil {
		return fmt.Errorf("pg: crear tarea: %w", err)
	}
	return nil
}

func (r *taskRepo) GetByID(ctx context.Context, id uuid.UUID) (*core.Task, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id)
	return scanTask(row)
}

func (r *taskRepo) ListByUser(ctx context.Context, userID uuid.UUID, status core.TaskStatus, query string) ([]core.Task, error) {
	sql := `SELECT ` + taskColumns + ` FROM tasks WHERE user_id = $1`
	args := []any{userID}

	if status != "" {
		args = append(args, status)
		sql += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if query != "" {
		args = append(args, "%"+query+"%")
		sql += fmt.Sprintf(" AND (title ILIKE $%d OR description ILIKE $%d)", len(args), len(args))
	}
	sql += ` ORDER BY due_date ASC, created_at ASC`

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("pg: listar tareas: %w", err)
	}
	defer rows.Close()

	var out []core.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

func (r *taskRepo) Update(ctx context.Context, t *core.Task) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE tasks
		SET title = $2, description = $3, status = $4, due_date = $5,
		    priority = $6, color = $7, image_url = $8, updated_at = now()
		WHERE id = $1`,
		t.ID, t.Title, t.Description, t.Status, t.DueDate,
		t.Priority, t.Color, t.ImageURL,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (r *taskRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	return nil
}
