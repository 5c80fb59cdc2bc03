package auth

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	dto "github.com/Sergiovil64/gestion-tareas-modulo1/internal/http/dto/auth"
	jwtx "github.com/Sergiovil64/gestion-tareas-modulo1/internal/jwt"
	"github.com/Sergiovil64/gestion-tareas-modulo1/internal/metrics"
	"github.com/Sergiovil64/gestion-tareas-modulo1/internal/observability/logger"
	"github.com/Sergiovil64/gestion-tareas-modulo1/internal/security/password"
	"github.com/Sergiovil64/gestion-tareas-modulo1/internal/security/secretbox"
	"github.com/Sergiovil64/gestion-tareas-modulo1/internal/security/totp"
	"github.com/Sergiovil64/gestion-tareas-modulo1/internal/store/core"
)

// Errores de autenticación
var (
	ErrMissingFields      = fmt.Errorf("missing required fields")
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")
	ErrUserDisabled       = fmt.Errorf("user disabled")
	ErrInvalidMFACode     = fmt.Errorf("invalid mfa code")
	ErrEmailTaken         = fmt.Errorf("email already in use")
	ErrInvalidName        = fmt.Errorf("invalid name")
	ErrInvalidEmail       = fmt.Errorf("invalid email")
	ErrAlreadyPremium     = fmt.Errorf("account already premium or higher")
	ErrTokenIssueFailed   = fmt.Errorf("failed to issue token")
)

// LockedError indica cuenta bloqueada; lleva cuánto falta para reintentar.
type LockedError struct {
	RetryAfter time.Duration
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("account locked, retry in %s", e.RetryAfter)
}

// CredentialsError indica contraseña incorrecta; lleva los intentos
// restantes antes del bloqueo.
type CredentialsError struct {
	Remaining int
}

func (e *CredentialsError) Error() string {
	return fmt.Sprintf("invalid credentials, %d attempts remaining", e.Remaining)
}

// PolicyError indica contraseña rechazada por la política.
type PolicyError struct {
	Reasons []string
}

func (e *PolicyError) Error() string {
	return "password policy: " + strings.Join(e.Reasons, ", ")
}

// SetupIncompleteError indica que la cuenta aún no activó MFA. Lleva un
// token restringido para que el cliente retome el setup.
type SetupIncompleteError struct {
	SetupToken string
}

func (e *SetupIncompleteError) Error() string { return "mfa setup incomplete" }

var (
	nameRe  = regexp.MustCompile(`^[a-zA-ZáéíóúÁÉÍÓÚñÑüÜ ]{2,100}$`)
	emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

// Deps contiene las dependencias del servicio de autenticación.
type Deps struct {
	Users  core.UserRepository
	MFA    core.MFARepository
	Issuer *jwtx.Issuer
	Box    *secretbox.Box

	MaxLoginAttempts int
	LockoutWindow    time.Duration
	ExpirationDays   int
	ExpiryWarning    time.Duration
	Policy           password.Policy
}

// Service implementa registro, login y sesión.
type Service struct {
	deps Deps
}

func NewService(deps Deps) *Service {
	return &Service{deps: deps}
}

// ─── Registro ───────────────────────────────────────────────────────────────

// Register crea una cuenta FREE activa. El token devuelto es restringido:
// la sesión completa recién se emite cuando el segundo factor queda activo.
func (s *Service) Register(ctx context.Context, in dto.RegisterRequest) (*dto.RegisterResponse, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("auth"),
		logger.Op("Register"),
	)

	name := strings.TrimSpace(in.Name)
	email := strings.TrimSpace(strings.ToLower(in.Email))

	if name == "" || email == "" || in.Password == "" {
		return nil, ErrMissingFields
	}
	if !nameRe.MatchString(name) {
		return nil, ErrInvalidName
	}
	if len(email) > 255 || !emailRe.MatchString(email) {
		return nil, ErrInvalidEmail
	}
	if ok, reasons := s.deps.Policy.Validate(in.Password); !ok {
		return nil, &PolicyError{Reasons: reasons}
	}

	hash, err := password.Hash(password.Default, in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now()
	u := &core.User{
		ID:                uuid.New(),
		Name:              name,
		Email:             email,
		PasswordHash:      hash,
		Role:              core.RoleFree,
		IsActive:          true,
		PasswordChangedAt: now,
		PasswordExpiresAt: now.AddDate(0, 0, s.deps.ExpirationDays),
	}
	if err := s.deps.Users.Create(ctx, u); err != nil {
		if errors.Is(err, core.ErrDuplicateEmail) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}

	tok, err := s.deps.Issuer.Issue(u.ID.String(), string(u.Role), jwtx.IssueOptions{RestrictedMFA: true})
	if err != nil {
		return nil, ErrTokenIssueFailed
	}

	log.Info("usuario registrado", logger.UserID(u.ID.String()))
	return &dto.RegisterResponse{
		Token:            tok,
		MFASetupRequired: true,
		User:             UserToDTO(u),
	}, nil
}

// ─── Login ──────────────────────────────────────────────────────────────────

// Login ejecuta la cadena de verificaciones en orden estricto: lookup,
// cuenta activa, bloqueo, contraseña, segundo factor, vencimiento de
// contraseña. Cada compuerta corta el flujo sin evaluar las siguientes.
func (s *Service) Login(ctx context.Context, in dto.LoginRequest) (*dto.LoginResponse, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("auth"),
		logger.Op("Login"),
	)

	email := strings.TrimSpace(strings.ToLower(in.Email))
	if email == "" || in.Password == "" {
		return nil, ErrMissingFields
	}

	// Paso 1: Lookup. Un email inexistente responde igual que una
	// contraseña incorrecta.
	u, err := s.deps.Users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			metrics.LoginAttempts.WithLabelValues("invalid_credentials").Inc()
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	log = log.With(logger.UserID(u.ID.String()))

	// Paso 2: Cuenta activa.
	if !u.IsActive {
		metrics.LoginAttempts.WithLabelValues("disabled").Inc()
		log.Info("login sobre cuenta desactivada")
		return nil, ErrUserDisabled
	}

	// Paso 3: Bloqueo. La ventana es deslizante: se mide desde el último
	// intento fallido. Si ya pasó, el contador se resetea y el login sigue.
	now := time.Now()
	if u.LoginAttempts >= s.deps.MaxLoginAttempts && u.LastLoginAttempt != nil {
		elapsed := now.Sub(*u.LastLoginAttempt)
		if elapsed < s.deps.LockoutWindow {
			metrics.LoginAttempts.WithLabelValues("locked").Inc()
			log.Info("cuenta bloqueada", logger.Count(u.LoginAttempts))
			return nil, &LockedError{RetryAfter: s.deps.LockoutWindow - elapsed}
		}
		if err := s.deps.Users.ResetLoginAttempts(ctx, u.ID); err != nil {
			return nil, err
		}
		u.LoginAttempts = 0
	}

	// Paso 4: Contraseña. El fallo incrementa y sella en una sola
	// sentencia; el RETURNING decide si este intento disparó el bloqueo.
	if !password.Verify(in.Password, u.PasswordHash) {
		attempts, ferr := s.deps.Users.RecordLoginFailure(ctx, u.ID, now)
		if ferr != nil {
			return nil, ferr
		}
		if attempts == s.deps.MaxLoginAttempts {
			metrics.AccountLockouts.Inc()
			log.Warn("cuenta bloqueada por intentos fallidos")
		}
		remaining := s.deps.MaxLoginAttempts - attempts
		if remaining < 0 {
			remaining = 0
		}
		metrics.LoginAttempts.WithLabelValues("invalid_credentials").Inc()
		return nil, &CredentialsError{Remaining: remaining}
	}
	if u.LoginAttempts > 0 {
		if err := s.deps.Users.ResetLoginAttempts(ctx, u.ID); err != nil {
			return nil, err
		}
	}

	// Paso 5: Segundo factor.
	switch u.MFA() {
	case core.MFAActive:
		if strings.TrimSpace(in.MFACode) == "" {
			metrics.LoginAttempts.WithLabelValues("mfa_required").Inc()
			return &dto.LoginResponse{MFARequired: true}, nil
		}
		if err := s.verifySecondFactor(ctx, u, in.MFACode); err != nil {
			metrics.LoginAttempts.WithLabelValues("mfa_failed").Inc()
			log.Info("segundo factor rechazado")
			return nil, ErrInvalidMFACode
		}
	default:
		// UNCONFIGURED o PENDING: sin MFA activo no hay sesión completa.
		setupTok, terr := s.deps.Issuer.Issue(u.ID.String(), string(u.Role), jwtx.IssueOptions{RestrictedMFA: true})
		if terr != nil {
			return nil, ErrTokenIssueFailed
		}
		metrics.LoginAttempts.WithLabelValues("mfa_incomplete").Inc()
		return nil, &SetupIncompleteError{SetupToken: setupTok}
	}

	// Paso 6: Vencimiento de contraseña. No corta el login: el token sale
	// marcado y los middlewares restringen las rutas.
	expired := u.PasswordExpired(now)
	mustChange := u.MustChangePassword || expired

	tok, err := s.deps.Issuer.Issue(u.ID.String(), string(u.Role), jwtx.IssueOptions{MustChangePassword: mustChange})
	if err != nil {
		return nil, ErrTokenIssueFailed
	}

	resp := &dto.LoginResponse{
		Token:              tok,
		MustChangePassword: mustChange,
		PasswordExpired:    expired,
	}
	if !expired {
		if until := time.Until(u.PasswordExpiresAt); until < s.deps.ExpiryWarning {
			days := int(until.Hours() / 24)
			resp.Warning = fmt.Sprintf("Su contraseña vence en %d días", days)
		}
	}
	uv := UserToDTO(u)
	resp.User = &uv

	metrics.LoginAttempts.WithLabelValues("success").Inc()
	log.Info("login exitoso")
	return resp, nil
}

// verifySecondFactor intenta TOTP primero y códigos de respaldo después.
func (s *Service) verifySecondFactor(ctx context.Context, u *core.User, code string) error {
	code = strings.TrimSpace(code)

	// TOTP
	if u.MFASecretEnc != nil {
		secretB32, err := s.deps.Box.Decrypt(*u.MFASecretEnc)
		if err == nil {
			raw, derr := totp.DecodeSecret(secretB32)
			if derr == nil {
				ok, counter := totp.Verify(raw, code, time.Now(), 1, u.MFALastCounter)
				if ok {
					// Si otro login ya registró este contador, el código
					// cuenta como repetido y el flujo sigue como fallo.
					advanced, aerr := s.deps.MFA.AdvanceLastCounter(ctx, u.ID, counter)
					if aerr != nil {
						return aerr
					}
					if advanced {
						metrics.MFAVerifications.WithLabelValues("totp", "success").Inc()
						return nil
					}
				}
			}
		}
	}
	metrics.MFAVerifications.WithLabelValues("totp", "failure").Inc()

	// Códigos de respaldo: verificación argon2 en app, consumo por DELETE.
	codes, err := s.deps.MFA.ListBackupCodes(ctx, u.ID)
	if err != nil {
		return err
	}
	normalized := strings.ToUpper(code)
	for _, c := range codes {
		if password.Verify(normalized, c.CodeHash) {
			consumed, cerr := s.deps.MFA.ConsumeBackupCode(ctx, c.ID)
			if cerr != nil {
				return cerr
			}
			if consumed {
				metrics.MFAVerifications.WithLabelValues("backup_code", "success").Inc()
				metrics.BackupCodesConsumed.Inc()
				return nil
			}
			// Otro request lo consumió primero: sigue siendo inválido.
			break
		}
	}
	metrics.MFAVerifications.WithLabelValues("backup_code", "failure").Inc()
	return ErrInvalidMFACode
}

// ─── Sesión ─────────────────────────────────────────────────────────────────

// Upgrade pasa una cuenta FREE a PREMIUM y re-emite el token con el rol nuevo.
func (s *Service) Upgrade(ctx context.Context, u *core.User) (*dto.UpgradeResponse, error) {
	if u.Role != core.RoleFree {
		return nil, ErrAlreadyPremium
	}
	if err := s.deps.Users.UpdateRole(ctx, u.ID, core.RolePremium); err != nil {
		return nil, err
	}
	u.Role = core.RolePremium

	tok, err := s.deps.Issuer.Issue(u.ID.String(), string(u.Role), jwtx.IssueOptions{})
	if err != nil {
		return nil, ErrTokenIssueFailed
	}

	logger.From(ctx).Info("cuenta actualizada a premium",
		logger.Layer("service"), logger.Component("auth"), logger.Op("Upgrade"),
		logger.UserID(u.ID.String()))

	return &dto.UpgradeResponse{Token: tok, User: UserToDTO(u)}, nil
}

// UserToDTO arma la vista pública de una cuenta.
func UserToDTO(u *core.User) dto.UserResponse {
	return dto.UserResponse{
		ID:         u.ID.String(),
		Name:       u.Name,
		Email:      u.Email,
		Role:       string(u.Role),
		MFAEnabled: u.MFAEnabled,
		CreatedAt:  u.CreatedAt,
	}
}
