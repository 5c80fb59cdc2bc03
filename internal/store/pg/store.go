package pg

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Sergiovil64/gestion-tareas-modulo1/internal/store/core"
)

// Store implementa core.Store sobre un pool pgx.
type Store struct {
	pool  *pgxpool.Pool
	users *userRepo
	mfa   *mfaRepo
	tasks *taskRepo
}

// Options afina el pool.
type Options struct {
	MaxConns int32
}

// New abre el pool y verifica la conexión.
func New(ctx context.Context, dsn string, opts Options) (*Store, error) {
	pcfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("pg: DSN inválido: %w", err)
	}
	if opts.MaxConns > 0 {
		pcfg.MaxConns = opts.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("pg: pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pg: ping: %w", err)
	}

	s := &Store{pool: pool}
	s.users = &userRepo{pool: pool}
	s.mfa = &mfaRepo{pool: pool}
	s.tasks = &taskRepo{pool: pool}
	return s, nil
}

func (s *Store) Users() core.UserRepository { return s.users }
func (s *Store) MFA() core.MFARepository    { return s.mfa }
func (s *Store) Tasks() core.TaskRepository { return s.tasks }

func (s *Store) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

// Close cierra el pool subyacente (idempotente).
func (s *Store) Close() {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
}

// Pool expone el pool interno (migraciones, healthchecks avanzados).
func (s *Store) Pool() *pgxpool.Pool {
	if s == nil {
		return nil
	}
	return s.pool
}

// ─── Helpers ────────────────────────────────────────────────────────────────

// isUniqueViolation detecta violaciones de constraint UNIQUE (código 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// mapNoRows traduce pgx.ErrNoRows al sentinel del dominio.
func mapNoRows(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return core.ErrNotFound
	}
	return err
}
