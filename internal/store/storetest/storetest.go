// Package storetest provee repositorios en memoria para pruebas de los
// servicios. Reproduce las mismas garantías que la implementación pg:
// incremento atómico del contador, activación condicional y consumo de
// códigos de un solo uso.
package storetest

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Sergiovil64/gestion-tareas-modulo1/internal/store/core"
)

// Store implementa core.Store en memoria.
type Store struct {
	mu sync.Mutex

	users       map[uuid.UUID]*core.User
	history     map[uuid.UUID][]core.PasswordHistoryEntry
	backupCodes map[int64]*core.BackupCode
	tasks       map[uuid.UUID]*core.Task
	nextCodeID  int64
	nextHistID  int64
}

func New() *Store {
	return &Store{
		users:       make(map[uuid.UUID]*core.User),
		history:     make(map[uuid.UUID][]core.PasswordHistoryEntry),
		backupCodes: make(map[int64]*core.BackupCode),
		tasks:       make(map[uuid.UUID]*core.Task),
	}
}

func (s *Store) Users() core.UserRepository { return (*userRepo)(s) }
func (s *Store) MFA() core.MFARepository    { return (*mfaRepo)(s) }
func (s *Store) Tasks() core.TaskRepository { return (*taskRepo)(s) }

func (s *Store) Ping(context.Context) error { return nil }
func (s *Store) Close()                     {}

// clone evita que los tests muten el estado interno por referencia.
func clone(u *core.User) *core.User {
	c := *u
	return &c
}

// ─── UserRepository ─────────────────────────────────────────────────────────

type userRepo Store

func (r *userRepo) Create(_ context.Context, u *core.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Email == u.Email {
			return core.ErrDuplicateEmail
		}
	}
	now := time.Now()
	cp := clone(u)
	cp.CreatedAt = now
	cp.UpdatedAt = now
	r.users[u.ID] = cp

	r.nextHistID++
	r.history[u.ID] = append(r.history[u.ID], core.PasswordHistoryEntry{
		ID:           r.nextHistID,
		UserID:       u.ID,
		PasswordHash: u.PasswordHash,
		ChangedAt:    u.PasswordChangedAt,
	})
	return nil
}

func (r *userRepo) GetByID(_ context.Context, id uuid.UUID) (*core.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	return clone(u), nil
}

func (r *userRepo) GetByEmail(_ context.Context, email string) (*core.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			return clone(u), nil
		}
	}
	return nil, core.ErrNotFound
}

func (r *userRepo) List(_ context.Context) ([]core.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]core.User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, *clone(u))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *userRepo) RecordLoginFailure(_ context.Context, id uuid.UUID, at time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return 0, core.ErrNotFound
	}
	u.LoginAttempts++
	t := at
	u.LastLoginAttempt = &t
	return u.LoginAttempts, nil
}

func (r *userRepo) ResetLoginAttempts(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return core.ErrNotFound
	}
	u.LoginAttempts = 0
	u.LastLoginAttempt = nil
	return nil
}

func (r *userRepo) UpdateRole(_ context.Context, id uuid.UUID, role core.Role) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return core.ErrNotFound
	}
	u.Role = role
	return nil
}

func (r *userRepo) SetActive(_ context.Context, id uuid.UUID, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return core.ErrNotFound
	}
	u.IsActive = active
	return nil
}

func (r *userRepo) ForcePasswordChange(_ context.Context, id uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return core.ErrNotFound
	}
	u.MustChangePassword = true
	t := at
	u.LastPasswordChangeRequired = &t
	return nil
}

func (r *userRepo) ChangePassword(_ context.Context, id uuid.UUID, newHash string, changedAt, expiresAt time.Time, keepHistory int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return core.ErrNotFound
	}
	u.PasswordHash = newHash
	u.PasswordChangedAt = changedAt
	u.PasswordExpiresAt = expiresAt
	u.MustChangePassword = false
	u.LastPasswordChangeRequired = nil

	r.nextHistID++
	hist := append(r.history[id], core.PasswordHistoryEntry{
		ID:           r.nextHistID,
		UserID:       id,
		PasswordHash: newHash,
		ChangedAt:    changedAt,
	})
	sort.Slice(hist, func(i, j int) bool {
		if hist[i].ChangedAt.Equal(hist[j].ChangedAt) {
			return hist[i].ID > hist[j].ID
		}
		return hist[i].ChangedAt.After(hist[j].ChangedAt)
	})
	if len(hist) > keepHistory {
		hist = hist[:keepHistory]
	}
	r.history[id] = hist
	return nil
}

func (r *userRepo) RecentPasswordHashes(_ context.Context, id uuid.UUID, n int) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	hist := r.history[id]
	sorted := make([]core.PasswordHistoryEntry, len(hist))
	copy(sorted, hist)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].ChangedAt.Equal(sorted[j].ChangedAt) {
			return sorted[i].ID > sorted[j].ID
		}
		return sorted[i].ChangedAt.After(sorted[j].ChangedAt)
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	out := make([]string, 0, len(sorted))
	for _, e := range sorted {
		out = append(out, e.PasswordHash)
	}
	return out, nil
}

func (r *userRepo) Stats(_ context.Context) (*core.Stats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st := &core.Stats{
		UsersByRole:   make(map[core.Role]int),
		TasksByStatus: make(map[core.TaskStatus]int),
	}
	for _, u := range r.users {
		st.UsersByRole[u.Role]++
		if u.IsActive {
			st.ActiveUsers++
		} else {
			st.InactiveUsers++
		}
	}
	for _, t := range r.tasks {
		st.TasksByStatus[t.Status]++
	}
	return st, nil
}

// HistoryLen expone el tamaño del historial (solo para asserts).
func (s *Store) HistoryLen(id uuid.UUID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.history[id])
}

// ─── MFARepository ──────────────────────────────────────────────────────────

type mfaRepo Store

func (r *mfaRepo) SetPendingSecret(_ context.Context, userID uuid.UUID, secretEnc string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return core.ErrNotFound
	}
	u.MFASecretEnc = &secretEnc
	u.MFAEnabled = false
	u.MFALastCounter = nil
	return nil
}

func (r *mfaRepo) Activate(_ context.Context, userID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return core.ErrNotFound
	}
	if u.MFASecretEnc == nil || u.MFAEnabled {
		return core.ErrConflict
	}
	u.MFAEnabled = true
	return nil
}

func (r *mfaRepo) Disable(_ context.Context, userID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return core.ErrNotFound
	}
	u.MFAEnabled = false
	u.MFASecretEnc = nil
	u.MFALastCounter = nil
	for id, c := range r.backupCodes {
		if c.UserID == userID {
			delete(r.backupCodes, id)
		}
	}
	return nil
}

func (r *mfaRepo) AdvanceLastCounter(_ context.Context, userID uuid.UUID, counter int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return false, core.ErrNotFound
	}
	if u.MFALastCounter != nil && *u.MFALastCounter >= counter {
		return false, nil
	}
	u.MFALastCounter = &counter
	return true, nil
}

func (r *mfaRepo) ReplaceBackupCodes(_ context.Context, userID uuid.UUID, hashes []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, c := range r.backupCodes {
		if c.UserID == userID {
			delete(r.backupCodes, id)
		}
	}
	for _, h := range hashes {
		r.nextCodeID++
		r.backupCodes[r.nextCodeID] = &core.BackupCode{
			ID:       r.nextCodeID,
			UserID:   userID,
			CodeHash: h,
		}
	}
	return nil
}

func (r *mfaRepo) ListBackupCodes(_ context.Context, userID uuid.UUID) ([]core.BackupCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []core.BackupCode
	for _, c := range r.backupCodes {
		if c.UserID == userID {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *mfaRepo) ConsumeBackupCode(_ context.Context, id int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.backupCodes[id]; !ok {
		return false, nil
	}
	delete(r.backupCodes, id)
	return true, nil
}

func (r *mfaRepo) CountBackupCodes(_ context.Context, userID uuid.UUID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.backupCodes {
		if c.UserID == userID {
			n++
		}
	}
	return n, nil
}

// ─── TaskRepository ─────────────────────────────────────────────────────────

type taskRepo Store

func (r *taskRepo) Create(_ context.Context, t *core.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	cp := *t
	cp.CreatedAt = now
	cp.UpdatedAt = now
	r.tasks[t.ID] = &cp
	return nil
}

func (r *taskRepo) GetByID(_ context.Context, id uuid.UUID) (*core.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (r *taskRepo) ListByUser(_ context.Context, userID uuid.UUID, status core.TaskStatus, query string) ([]core.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	q := strings.ToLower(query)
	var out []core.Task
	for _, t := range r.tasks {
		if t.UserID != userID {
			continue
		}
		if status != "" && t.Status != status {
			continue
		}
		if q != "" && !taskMatches(t, q) {
			continue
		}
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DueDate.Before(out[j].DueDate) })
	return out, nil
}

// taskMatches replica el ILIKE de pg sobre título y descripción.
func taskMatches(t *core.Task, q string) bool {
	if strings.Contains(strings.ToLower(t.Title), q) {
		return true
	}
	return t.Description != nil && strings.Contains(strings.ToLower(*t.Description), q)
}

func (r *taskRepo) Update(_ context.Context, t *core.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tasks[t.ID]; !ok {
		return core.ErrNotFound
	}
	cp := *t
	cp.UpdatedAt = time.Now()
	r.tasks[t.ID] = &cp
	return nil
}

func (r *taskRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tasks[id]; !ok {
		return core.ErrNotFound
	}
	delete(r.tasks, id)
	return nil
}
