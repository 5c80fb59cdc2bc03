package auth

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

	dto "github.com/Sergiovil64/gestion-tareas-modulo1/internal/http/dto/auth"
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
		Users:            st.Users(),
		MFA:              st.MFA(),
		Issuer:           iss,
		Box:              box,
		MaxLoginAttempts: 5,
		LockoutWindow:    15 * time.Minute,
		ExpirationDays:   90,
		ExpiryWarning:    7 * 24 * time.Hour,
		Policy:           password.Policy{MinLength: 12, MaxLength: 128},
	})
	return &fixture{svc: svc, store: st, issuer: iss, box: box}
}

// seedUser crea una cuenta con la contraseña de prueba ya hasheada.
func seedUser(t *testing.T, f *fixture, email string, mutate func(*core.User)) *core.User {
	t.Helper()

	hash, err := password.Hash(password.Default, testPassword)
	require.NoError(t, err)

	now := time.Now()
	u := &core.User{
		ID:                uuid.New(),
		Name:              "Ana García",
		Email:             email,
		PasswordHash:      hash,
		Role:              core.RoleFree,
		IsActive:          true,
		PasswordChangedAt: now,
		PasswordExpiresAt: now.AddDate(0, 0, 90),
	}
	if mutate != nil {
		mutate(u)
	}
	require.NoError(t, f.store.Users().Create(context.Background(), u))
	return u
}

// activateMFA deja la cuenta con segundo factor activo y devuelve el
// secreto en crudo para generar códigos.
func activateMFA(t *testing.T, f *fixture, userID uuid.UUID) []byte {
	t.Helper()

	raw, b32, err := totp.GenerateSecret()
	require.NoError(t, err)
	enc, err := f.box.Encrypt(b32)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, f.store.MFA().SetPendingSecret(ctx, userID, enc))
	require.NoError(t, f.store.MFA().Activate(ctx, userID))
	return raw
}

// totpCode genera el código vigente, como lo haría la app del usuario.
func totpCode(secret []byte, at time.Time) string {
	counter := at.Unix() / 30
	var msg [8]byte
	for i := 7; i >= 0; i-- {
		msg[i] = byte(counter & 0xff)
		counter >>= 8
	}
	m := hmac.New(sha1.New, secret)
	m.Write(msg[:])
	sum := m.Sum(nil)
	offset := int(sum[len(sum)-1] & 0x0f)
	bin := (int(sum[offset])&0x7f)<<24 | int(sum[offset+1])<<16 | int(sum[offset+2])<<8 | int(sum[offset+3])
	return fmt.Sprintf("%06d", bin%int(math.Pow10(6)))
}

// ─── Registro ───────────────────────────────────────────────────────────────

func TestRegister_OK(t *testing.T) {
	f := newFixture(t)

	resp, err := f.svc.Register(context.Background(), dto.RegisterRequest{
		Name:     "Ana García",
		Email:    "Ana@Example.com",
		Password: testPassword,
	})
	require.NoError(t, err)
	require.True(t, resp.MFASetupRequired)
	require.Equal(t, "ana@example.com", resp.User.Email)
	require.Equal(t, string(core.RoleFree), resp.User.Role)

	claims, err := f.issuer.Parse(resp.Token)
	require.NoError(t, err)
	require.True(t, claims.RestrictedMFA, "el token de registro debe ser restringido")
}

func TestRegister_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Register(ctx, dto.RegisterRequest{Email: "a@b.com", Password: testPassword})
	require.ErrorIs(t, err, ErrMissingFields)

	_, err = f.svc.Register(ctx, dto.RegisterRequest{Name: "X", Email: "a@b.com", Password: testPassword})
	require.ErrorIs(t, err, ErrInvalidName)

	_, err = f.svc.Register(ctx, dto.RegisterRequest{Name: "Ana", Email: "no-es-email", Password: testPassword})
	require.ErrorIs(t, err, ErrInvalidEmail)

	var perr *PolicyError
	_, err = f.svc.Register(ctx, dto.RegisterRequest{Name: "Ana", Email: "a@b.com", Password: "corta"})
	require.ErrorAs(t, err, &perr)
	require.NotEmpty(t, perr.Reasons)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req := dto.RegisterRequest{Name: "Ana", Email: "ana@example.com", Password: testPassword}
	_, err := f.svc.Register(ctx, req)
	require.NoError(t, err)

	// Mismo email con otra capitalización: sigue siendo duplicado.
	req.Email = "ANA@example.com"
	_, err = f.svc.Register(ctx, req)
	require.ErrorIs(t, err, ErrEmailTaken)
}

// ─── Login: credenciales y bloqueo ──────────────────────────────────────────

func TestLogin_UnknownEmail(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Login(context.Background(), dto.LoginRequest{Email: "nadie@example.com", Password: "loquesea"})
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogin_DisabledAccount(t *testing.T) {
	f := newFixture(t)
	seedUser(t, f, "ana@example.com", func(u *core.User) { u.IsActive = false })

	_, err := f.svc.Login(context.Background(), dto.LoginRequest{Email: "ana@example.com", Password: testPassword})
	require.ErrorIs(t, err, ErrUserDisabled)
}

func TestLogin_WrongPasswordLockout(t *testing.T) {
	f := newFixture(t)
	seedUser(t, f, "ana@example.com", nil)
	ctx := context.Background()

	// Cinco fallos consecutivos: el contador de intentos restantes baja
	// hasta cero y el quinto sella el bloqueo.
	for i := 1; i <= 5; i++ {
		_, err := f.svc.Login(ctx, dto.LoginRequest{Email: "ana@example.com", Password: "Incorrecta123@"})
		var cerr *CredentialsError
		require.ErrorAs(t, err, &cerr, "intento %d", i)
		require.Equal(t, 5-i, cerr.Remaining, "intento %d", i)
	}

	// Con la cuenta bloqueada ni la contraseña correcta entra.
	_, err := f.svc.Login(ctx, dto.LoginRequest{Email: "ana@example.com", Password: testPassword})
	var lerr *LockedError
	require.ErrorAs(t, err, &lerr)
	require.Greater(t, lerr.RetryAfter, time.Duration(0))
	require.LessOrEqual(t, lerr.RetryAfter, 15*time.Minute)
}

func TestLogin_LockoutWindowExpires(t *testing.T) {
	f := newFixture(t)
	u := seedUser(t, f, "ana@example.com", nil)
	ctx := context.Background()

	// Bloqueo cuyo último fallo quedó fuera de la ventana de 15 minutos.
	stale := time.Now().Add(-16 * time.Minute)
	for i := 0; i < 5; i++ {
		_, err := f.store.Users().RecordLoginFailure(ctx, u.ID, stale)
		require.NoError(t, err)
	}

	// La ventana venció: el login sigue de largo hasta la compuerta MFA
	// (la cuenta no lo configuró) y el contador queda en cero.
	_, err := f.svc.Login(ctx, dto.LoginRequest{Email: "ana@example.com", Password: testPassword})
	var serr *SetupIncompleteError
	require.ErrorAs(t, err, &serr)

	fresh, err := f.store.Users().GetByID(ctx, u.ID)
	require.NoError(t, err)
	require.Zero(t, fresh.LoginAttempts)
}

func TestLogin_SuccessResetsAttempts(t *testing.T) {
	f := newFixture(t)
	u := seedUser(t, f, "ana@example.com", nil)
	activateMFA(t, f, u.ID)
	ctx := context.Background()

	_, err := f.svc.Login(ctx, dto.LoginRequest{Email: "ana@example.com", Password: "Incorrecta123@"})
	var cerr *CredentialsError
	require.ErrorAs(t, err, &cerr)

	secret := mustSecret(t, f, u.ID)
	resp, err := f.svc.Login(ctx, dto.LoginRequest{
		Email:    "ana@example.com",
		Password: testPassword,
		MFACode:  totpCode(secret, time.Now()),
	})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Token)

	fresh, err := f.store.Users().GetByID(ctx, u.ID)
	require.NoError(t, err)
	require.Zero(t, fresh.LoginAttempts)
}

// mustSecret recupera el secreto TOTP almacenado para generar códigos.
func mustSecret(t *testing.T, f *fixture, userID uuid.UUID) []byte {
	t.Helper()
	u, err := f.store.Users().GetByID(context.Background(), userID)
	require.NoError(t, err)
	require.NotNil(t, u.MFASecretEnc)
	b32, err := f.box.Decrypt(*u.MFASecretEnc)
	require.NoError(t, err)
	raw, err := totp.DecodeSecret(b32)
	require.NoError(t, err)
	return raw
}

// ─── Login: segundo factor ──────────────────────────────────────────────────

func TestLogin_MFASetupIncomplete(t *testing.T) {
	f := newFixture(t)
	seedUser(t, f, "ana@example.com", nil)

	_, err := f.svc.Login(context.Background(), dto.LoginRequest{Email: "ana@example.com", Password: testPassword})
	var serr *SetupIncompleteError
	require.ErrorAs(t, err, &serr)
	require.NotEmpty(t, serr.SetupToken)

	claims, err := f.issuer.Parse(serr.SetupToken)
	require.NoError(t, err)
	require.True(t, claims.RestrictedMFA)
}

func TestLogin_MFARequired(t *testing.T) {
	f := newFixture(t)
	u := seedUser(t, f, "ana@example.com", nil)
	activateMFA(t, f, u.ID)

	resp, err := f.svc.Login(context.Background(), dto.LoginRequest{Email: "ana@example.com", Password: testPassword})
	require.NoError(t, err)
	require.True(t, resp.MFARequired)
	require.Empty(t, resp.Token, "sin segundo factor no hay token")
}

func TestLogin_TOTP(t *testing.T) {
	f := newFixture(t)
	u := seedUser(t, f, "ana@example.com", nil)
	secret := activateMFA(t, f, u.ID)
	ctx := context.Background()

	code := totpCode(secret, time.Now())
	resp, err := f.svc.Login(ctx, dto.LoginRequest{Email: "ana@example.com", Password: testPassword, MFACode: code})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Token)
	require.NotNil(t, resp.User)

	// El mismo código otra vez es replay: rechazado.
	_, err = f.svc.Login(ctx, dto.LoginRequest{Email: "ana@example.com", Password: testPassword, MFACode: code})
	require.ErrorIs(t, err, ErrInvalidMFACode)
}

func TestLogin_TOTPContadorSoloAvanza(t *testing.T) {
	f := newFixture(t)
	u := seedUser(t, f, "ana@example.com", nil)
	secret := activateMFA(t, f, u.ID)
	ctx := context.Background()

	now := time.Now()
	code := totpCode(secret, now)
	_, err := f.svc.Login(ctx, dto.LoginRequest{Email: "ana@example.com", Password: testPassword, MFACode: code})
	require.NoError(t, err)

	// El contador que el login ya registró no se puede volver a registrar:
	// de dos requests con el mismo código solo uno afecta la fila.
	counter := now.Unix() / 30
	advanced, err := f.store.MFA().AdvanceLastCounter(ctx, u.ID, counter)
	require.NoError(t, err)
	require.False(t, advanced)

	advanced, err = f.store.MFA().AdvanceLastCounter(ctx, u.ID, counter-1)
	require.NoError(t, err)
	require.False(t, advanced, "un contador viejo nunca avanza")

	advanced, err = f.store.MFA().AdvanceLastCounter(ctx, u.ID, counter+1)
	require.NoError(t, err)
	require.True(t, advanced)
}

func TestLogin_WrongMFACode(t *testing.T) {
	f := newFixture(t)
	u := seedUser(t, f, "ana@example.com", nil)
	activateMFA(t, f, u.ID)

	_, err := f.svc.Login(context.Background(), dto.LoginRequest{Email: "ana@example.com", Password: testPassword, MFACode: "000000"})
	require.ErrorIs(t, err, ErrInvalidMFACode)
}

func TestLogin_BackupCodeSingleUse(t *testing.T) {
	f := newFixture(t)
	u := seedUser(t, f, "ana@example.com", nil)
	activateMFA(t, f, u.ID)
	ctx := context.Background()

	codes := []string{"7KQ2M9XD", "B4NW8PL2"}
	hashes := make([]string, len(codes))
	for i, c := range codes {
		h, err := password.Hash(password.Default, c)
		require.NoError(t, err)
		hashes[i] = h
	}
	require.NoError(t, f.store.MFA().ReplaceBackupCodes(ctx, u.ID, hashes))

	// El código entra en minúsculas: se normaliza antes de comparar.
	resp, err := f.svc.Login(ctx, dto.LoginRequest{Email: "ana@example.com", Password: testPassword, MFACode: "7kq2m9xd"})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Token)

	n, err := f.store.MFA().CountBackupCodes(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, 1, n, "el código usado debe eliminarse")

	// Segundo uso del mismo código: ya no existe.
	_, err = f.svc.Login(ctx, dto.LoginRequest{Email: "ana@example.com", Password: testPassword, MFACode: "7KQ2M9XD"})
	require.ErrorIs(t, err, ErrInvalidMFACode)
}

// ─── Login: vencimiento de contraseña ───────────────────────────────────────

func TestLogin_PasswordExpired(t *testing.T) {
	f := newFixture(t)
	u := seedUser(t, f, "ana@example.com", func(u *core.User) {
		u.PasswordChangedAt = time.Now().AddDate(0, 0, -120)
		u.PasswordExpiresAt = time.Now().AddDate(0, 0, -30)
	})
	secret := activateMFA(t, f, u.ID)

	resp, err := f.svc.Login(context.Background(), dto.LoginRequest{
		Email:    "ana@example.com",
		Password: testPassword,
		MFACode:  totpCode(secret, time.Now()),
	})
	require.NoError(t, err, "la contraseña vencida no corta el login")
	require.True(t, resp.PasswordExpired)
	require.True(t, resp.MustChangePassword)

	claims, err := f.issuer.Parse(resp.Token)
	require.NoError(t, err)
	require.True(t, claims.MustChangePassword, "el token debe salir marcado")
}

func TestLogin_ExpiryWarning(t *testing.T) {
	f := newFixture(t)
	u := seedUser(t, f, "ana@example.com", func(u *core.User) {
		u.PasswordExpiresAt = time.Now().Add(72 * time.Hour)
	})
	secret := activateMFA(t, f, u.ID)

	resp, err := f.svc.Login(context.Background(), dto.LoginRequest{
		Email:    "ana@example.com",
		Password: testPassword,
		MFACode:  totpCode(secret, time.Now()),
	})
	require.NoError(t, err)
	require.False(t, resp.PasswordExpired)
	require.Contains(t, resp.Warning, "vence")
}

// ─── Upgrade ────────────────────────────────────────────────────────────────

func TestUpgrade(t *testing.T) {
	f := newFixture(t)
	u := seedUser(t, f, "ana@example.com", nil)
	ctx := context.Background()

	resp, err := f.svc.Upgrade(ctx, u)
	require.NoError(t, err)
	require.Equal(t, string(core.RolePremium), resp.User.Role)

	claims, err := f.issuer.Parse(resp.Token)
	require.NoError(t, err)
	require.Equal(t, string(core.RolePremium), claims.Role)

	// Ya es PREMIUM: segundo upgrade rechazado.
	_, err = f.svc.Upgrade(ctx, u)
	require.ErrorIs(t, err, ErrAlreadyPremium)
}
