package task

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	dto "github.com/Sergiovil64/gestion-tareas-modulo1/internal/http/dto/task"
	"github.com/Sergiovil64/gestion-tareas-modulo1/internal/store/core"
	"github.com/Sergiovil64/gestion-tareas-modulo1/internal/store/storetest"
)

func newService() (*Service, *storetest.Store) {
	st := storetest.New()
	return NewService(Deps{Tasks: st.Tasks()}), st
}

func user(role core.Role) *core.User {
	return &core.User{ID: uuid.New(), Role: role, IsActive: true}
}

func tomorrow() *time.Time {
	d := time.Now().AddDate(0, 0, 1)
	return &d
}

func strPtr(s string) *string { return &s }
func intPtr(n int) *int       { return &n }

func TestCreate_Defaults(t *testing.T) {
	svc, _ := newService()
	u := user(core.RoleFree)

	created, err := svc.Create(context.Background(), u, dto.CreateRequest{
		Title:   "Comprar verduras",
		DueDate: tomorrow(),
	})
	require.NoError(t, err)
	require.Equal(t, core.TaskPending, created.Status)
	require.Equal(t, 1, created.Priority)
	require.Equal(t, "#FFFFFF", created.Color)
	require.Equal(t, u.ID, created.UserID)
}

func TestCreate_Validation(t *testing.T) {
	svc, _ := newService()
	u := user(core.RoleFree)
	ctx := context.Background()

	cases := []struct {
		name  string
		in    dto.CreateRequest
		field string
	}{
		{"titulo corto", dto.CreateRequest{Title: "ab", DueDate: tomorrow()}, "title"},
		{"sin fecha", dto.CreateRequest{Title: "Comprar verduras"}, "dueDate"},
		{"estado inválido", dto.CreateRequest{Title: "Comprar verduras", Status: "ARCHIVADA", DueDate: tomorrow()}, "status"},
		{"prioridad fuera de rango", dto.CreateRequest{Title: "Comprar verduras", DueDate: tomorrow(), Priority: intPtr(9)}, "priority"},
		{"color inválido", dto.CreateRequest{Title: "Comprar verduras", DueDate: tomorrow(), Color: strPtr("rojo")}, "color"},
		{"url inválida", dto.CreateRequest{Title: "Comprar verduras", DueDate: tomorrow(), ImageURL: strPtr("ftp://x")}, "imageUrl"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var verr *ValidationError
			_, err := svc.Create(ctx, u, tc.in)
			require.ErrorAs(t, err, &verr)
			require.Contains(t, verr.Fields, tc.field)
		})
	}
}

func TestCreate_PastDueDate(t *testing.T) {
	svc, _ := newService()
	past := time.Now().AddDate(0, 0, -2)

	var verr *ValidationError
	_, err := svc.Create(context.Background(), user(core.RoleFree), dto.CreateRequest{
		Title:   "Comprar verduras",
		DueDate: &past,
	})
	require.ErrorAs(t, err, &verr)
	require.Contains(t, verr.Fields, "dueDate")
}

func TestCreate_PremiumGate(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	premium := dto.CreateRequest{
		Title:    "Informe mensual",
		DueDate:  tomorrow(),
		Priority: intPtr(5),
		Color:    strPtr("#FF0000"),
		ImageURL: strPtr("https://example.com/adjunto.png"),
	}

	_, err := svc.Create(ctx, user(core.RoleFree), premium)
	require.ErrorIs(t, err, ErrUpgradeRequired)

	created, err := svc.Create(ctx, user(core.RolePremium), premium)
	require.NoError(t, err)
	require.Equal(t, 5, created.Priority)
	require.Equal(t, "#FF0000", created.Color)

	// ADMIN también pasa la compuerta.
	_, err = svc.Create(ctx, user(core.RoleAdmin), premium)
	require.NoError(t, err)
}

func TestGet_Ownership(t *testing.T) {
	svc, _ := newService()
	owner := user(core.RoleFree)
	other := user(core.RoleFree)
	admin := user(core.RoleAdmin)
	ctx := context.Background()

	created, err := svc.Create(ctx, owner, dto.CreateRequest{Title: "Comprar verduras", DueDate: tomorrow()})
	require.NoError(t, err)

	got, err := svc.Get(ctx, owner, created.ID)
	require.NoError(t, err)
	require.Equal(t, created.ID, got.ID)

	_, err = svc.Get(ctx, other, created.ID)
	require.ErrorIs(t, err, ErrForbidden)

	_, err = svc.Get(ctx, admin, created.ID)
	require.NoError(t, err)

	_, err = svc.Get(ctx, owner, uuid.New())
	require.ErrorIs(t, err, ErrNotFound)
}

func TestList_FilterByStatus(t *testing.T) {
	svc, _ := newService()
	u := user(core.RoleFree)
	ctx := context.Background()

	_, err := svc.Create(ctx, u, dto.CreateRequest{Title: "Pendiente uno", DueDate: tomorrow()})
	require.NoError(t, err)
	_, err = svc.Create(ctx, u, dto.CreateRequest{Title: "En curso", Status: "EN_PROGRESO", DueDate: tomorrow()})
	require.NoError(t, err)

	all, err := svc.List(ctx, u, "", "")
	require.NoError(t, err)
	require.Len(t, all, 2)

	pending, err := svc.List(ctx, u, "PENDIENTE", "")
	require.NoError(t, err)
	require.Len(t, pending, 1)

	_, err = svc.List(ctx, u, "ARCHIVADA", "")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestList_Search(t *testing.T) {
	svc, _ := newService()
	u := user(core.RoleFree)
	ctx := context.Background()

	_, err := svc.Create(ctx, u, dto.CreateRequest{Title: "Comprar verduras", DueDate: tomorrow()})
	require.NoError(t, err)
	_, err = svc.Create(ctx, u, dto.CreateRequest{
		Title:       "Pagar servicios",
		Description: strPtr("luz, agua y verdulería"),
		DueDate:     tomorrow(),
	})
	require.NoError(t, err)

	// Busca en título y descripción, sin distinguir mayúsculas.
	got, err := svc.List(ctx, u, "", "VERDU")
	require.NoError(t, err)
	require.Len(t, got, 2)

	got, err = svc.List(ctx, u, "", "pagar")
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "Pagar servicios", got[0].Title)

	got, err = svc.List(ctx, u, "", "inexistente")
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestUpdate_Partial(t *testing.T) {
	svc, _ := newService()
	u := user(core.RolePremium)
	ctx := context.Background()

	created, err := svc.Create(ctx, u, dto.CreateRequest{Title: "Comprar verduras", DueDate: tomorrow()})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, u, created.ID, dto.UpdateRequest{
		Status:   strPtr("COMPLETADA"),
		Priority: intPtr(3),
	})
	require.NoError(t, err)
	require.Equal(t, core.TaskCompleted, updated.Status)
	require.Equal(t, 3, updated.Priority)
	require.Equal(t, "Comprar verduras", updated.Title, "los campos nil no cambian")
}

func TestUpdate_PremiumGateOnExistingFields(t *testing.T) {
	svc, _ := newService()
	free := user(core.RoleFree)
	ctx := context.Background()

	created, err := svc.Create(ctx, free, dto.CreateRequest{Title: "Comprar verduras", DueDate: tomorrow()})
	require.NoError(t, err)

	// Una cuenta FREE no puede escalar la prioridad por update.
	_, err = svc.Update(ctx, free, created.ID, dto.UpdateRequest{Priority: intPtr(4)})
	require.ErrorIs(t, err, ErrUpgradeRequired)
}

func TestDelete(t *testing.T) {
	svc, _ := newService()
	owner := user(core.RoleFree)
	other := user(core.RoleFree)
	ctx := context.Background()

	created, err := svc.Create(ctx, owner, dto.CreateRequest{Title: "Comprar verduras", DueDate: tomorrow()})
	require.NoError(t, err)

	require.ErrorIs(t, svc.Delete(ctx, other, created.ID), ErrForbidden)
	require.NoError(t, svc.Delete(ctx, owner, created.ID))
	require.ErrorIs(t, svc.Delete(ctx, owner, created.ID), ErrNotFound)
}
