package mfa

import (
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"fmt"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	jwtx "github.com/Sergiovil64/gestion-tareas-modulo1/internal/jwt"
	"github.com/Sergiovil64/gestion-tareas-modulo1/internal/security/password"
	"github.com/Sergiovil64/gestion-tareas-modulo1/internal/security/secretbox"
	"github.com/Sergiovil64/gestion-tareas-modulo1/internal/security/totp"
	"github.com/Sergiovil64/gestion-tareas-modulo1/internal/store/core"
	"github.com/Sergiovil64/gestion-tareas-modulo1/internal/store/storetest"
)

const testPassword = "Segura123456@"

type fixture struct {
	svc    *Service
	store  *storetest.Store
	issuer *jwtx.Issuer
	box    *secretbox.Box
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	st := storetest.New()
	iss, err := jwtx.New("secreto-de-prueba-largo", "gestion-tareas", time.Hour)
	require.NoError(t, err)
	box, err := secretbox.New(strings.Repeat("ab", 32))
	require.NoError(t, err)

	svc := NewService(Deps{
		Users:       st.Users(),
		MFA:         st.MFA(),
		Issuer:      iss,
		Box:         box,
		TOTPIssuer:  "GestionTareas",
		BackupCodes: 4,
	})
	return &fixture{svc: svc, store: st, issuer: iss, box: box}
}

func seedUser(t *testing.T, f *fixture) *core.User {
	t.Helper()

	hash, err := password.Hash(password.Default, testPassword)
	require.NoError(t, err)

	now := time.Now()
	u := &core.User{
		ID:                uuid.New(),
		Name:              "Ana García",
		Email:             "ana@example.com",
		PasswordHash:      hash,
		Role:              core.RoleFree,
		IsActive:          true,
		PasswordChangedAt: now,
		PasswordExpiresAt: now.AddDate(0, 0, 90),
	}
	require.NoError(t, f.store.Users().Create(context.Background(), u))
	return u
}

func reload(t *testing.T, f *fixture, id uuid.UUID) *core.User {
	t.Helper()
	u, err := f.store.Users().GetByID(context.Background(), id)
	require.NoError(t, err)
	return u
}

// totpCode genera el código vigente a partir del secreto base32 que
// Enable le muestra al usuario.
func totpCode(t *testing.T, secretB32 string, at time.Time) string {
	t.Helper()
	raw, err := totp.DecodeSecret(secretB32)
	require.NoError(t, err)

	counter := at.Unix() / 30
	var msg [8]byte
	for i := 7; i >= 0; i-- {
		msg[i] = byte(counter & 0xff)
		counter >>= 8
	}
	m := hmac.New(sha1.New, raw)
	m.Write(msg[:])
	sum := m.Sum(nil)
	offset := int(sum[len(sum)-1] & 0x0f)
	bin := (int(sum[offset])&0x7f)<<24 | int(sum[offset+1])<<16 | int(sum[offset+2])<<8 | int(sum[offset+3])
	return fmt.Sprintf("%06d", bin%int(math.Pow10(6)))
}

func TestEnable(t *testing.T) {
	f := newFixture(t)
	u := seedUser(t, f)
	ctx := context.Background()

	resp, err := f.svc.Enable(ctx, u)
	require.NoError(t, err)
	require.NotEmpty(t, resp.Secret)
	require.Contains(t, resp.OtpauthURL, "otpauth://totp/")
	require.Contains(t, resp.OtpauthURL, "issuer=GestionTareas")
	require.Len(t, resp.BackupCodes, 4)

	// Queda pendiente: secreto guardado cifrado, aún sin activar.
	fresh := reload(t, f, u.ID)
	require.False(t, fresh.MFAEnabled)
	require.NotNil(t, fresh.MFASecretEnc)
	require.NotEqual(t, resp.Secret, *fresh.MFASecretEnc, "el secreto nunca se guarda en claro")

	b32, err := f.box.Decrypt(*fresh.MFASecretEnc)
	require.NoError(t, err)
	require.Equal(t, resp.Secret, b32)
}

func TestEnable_RegeneratesPendingMaterial(t *testing.T) {
	f := newFixture(t)
	u := seedUser(t, f)
	ctx := context.Background()

	first, err := f.svc.Enable(ctx, u)
	require.NoError(t, err)
	second, err := f.svc.Enable(ctx, reload(t, f, u.ID))
	require.NoError(t, err)

	require.NotEqual(t, first.Secret, second.Secret)
	require.NotEqual(t, first.BackupCodes, second.BackupCodes)
}

func TestVerify_Activates(t *testing.T) {
	f := newFixture(t)
	u := seedUser(t, f)
	ctx := context.Background()

	enable, err := f.svc.Enable(ctx, u)
	require.NoError(t, err)

	code := totpCode(t, enable.Secret, time.Now())
	resp, err := f.svc.Verify(ctx, reload(t, f, u.ID), code)
	require.NoError(t, err)
	require.NotEmpty(t, resp.Token)

	claims, err := f.issuer.Parse(resp.Token)
	require.NoError(t, err)
	require.False(t, claims.RestrictedMFA, "el token nuevo es de sesión completa")

	fresh := reload(t, f, u.ID)
	require.True(t, fresh.MFAEnabled)
	require.NotNil(t, fresh.MFALastCounter)
}

func TestVerify_WrongCode(t *testing.T) {
	f := newFixture(t)
	u := seedUser(t, f)
	ctx := context.Background()

	_, err := f.svc.Enable(ctx, u)
	require.NoError(t, err)

	_, err = f.svc.Verify(ctx, reload(t, f, u.ID), "000000")
	require.ErrorIs(t, err, ErrInvalidCode)

	require.False(t, reload(t, f, u.ID).MFAEnabled)
}

func TestVerify_NoPendingSetup(t *testing.T) {
	f := newFixture(t)
	u := seedUser(t, f)

	_, err := f.svc.Verify(context.Background(), u, "123456")
	require.ErrorIs(t, err, ErrNoPendingSetup)
}

func TestVerify_AlreadyEnabled(t *testing.T) {
	f := newFixture(t)
	u := seedUser(t, f)
	ctx := context.Background()

	enable, err := f.svc.Enable(ctx, u)
	require.NoError(t, err)
	_, err = f.svc.Verify(ctx, reload(t, f, u.ID), totpCode(t, enable.Secret, time.Now()))
	require.NoError(t, err)

	_, err = f.svc.Verify(ctx, reload(t, f, u.ID), "123456")
	require.ErrorIs(t, err, ErrAlreadyEnabled)

	_, err = f.svc.Enable(ctx, reload(t, f, u.ID))
	require.ErrorIs(t, err, ErrAlreadyEnabled)
}

func TestStatus(t *testing.T) {
	f := newFixture(t)
	u := seedUser(t, f)
	ctx := context.Background()

	st, err := f.svc.Status(ctx, u)
	require.NoError(t, err)
	require.False(t, st.MFAEnabled)
	require.Zero(t, st.BackupCodesRemaining)

	enable, err := f.svc.Enable(ctx, u)
	require.NoError(t, err)
	_, err = f.svc.Verify(ctx, reload(t, f, u.ID), totpCode(t, enable.Secret, time.Now()))
	require.NoError(t, err)

	st, err = f.svc.Status(ctx, reload(t, f, u.ID))
	require.NoError(t, err)
	require.True(t, st.MFAEnabled)
	require.Equal(t, 4, st.BackupCodesRemaining)
}

func TestDisable(t *testing.T) {
	f := newFixture(t)
	u := seedUser(t, f)
	ctx := context.Background()

	require.ErrorIs(t, f.svc.Disable(ctx, u, testPassword), ErrNotEnabled)

	enable, err := f.svc.Enable(ctx, u)
	require.NoError(t, err)
	_, err = f.svc.Verify(ctx, reload(t, f, u.ID), totpCode(t, enable.Secret, time.Now()))
	require.NoError(t, err)

	require.ErrorIs(t, f.svc.Disable(ctx, reload(t, f, u.ID), "Incorrecta123@"), ErrInvalidPassword)
	require.NoError(t, f.svc.Disable(ctx, reload(t, f, u.ID), testPassword))

	// Vuelve a UNCONFIGURED: sin secreto y sin códigos de respaldo.
	fresh := reload(t, f, u.ID)
	require.False(t, fresh.MFAEnabled)
	require.Nil(t, fresh.MFASecretEnc)
	n, err := f.store.MFA().CountBackupCodes(ctx, u.ID)
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestRegenerateBackupCodes(t *testing.T) {
	f := newFixture(t)
	u := seedUser(t, f)
	ctx := context.Background()

	_, err := f.svc.RegenerateBackupCodes(ctx, u, testPassword)
	require.ErrorIs(t, err, ErrNotEnabled)

	enable, err := f.svc.Enable(ctx, u)
	require.NoError(t, err)
	_, err = f.svc.Verify(ctx, reload(t, f, u.ID), totpCode(t, enable.Secret, time.Now()))
	require.NoError(t, err)

	_, err = f.svc.RegenerateBackupCodes(ctx, reload(t, f, u.ID), "Incorrecta123@")
	require.ErrorIs(t, err, ErrInvalidPassword)

	resp, err := f.svc.RegenerateBackupCodes(ctx, reload(t, f, u.ID), testPassword)
	require.NoError(t, err)
	require.Len(t, resp.BackupCodes, 4)
	require.NotEqual(t, enable.BackupCodes, resp.BackupCodes)

	n, err := f.store.MFA().CountBackupCodes(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, 4, n)
}
