package mfa

import (
	"context"
	"errors"
	"fmt"
	"time"

	dto "github.com/Sergiovil64/gestion-tareas-modulo1/internal/http/dto/mfa"
	jwtx "github.com/Sergiovil64/gestion-tareas-modulo1/internal/jwt"
	"github.com/Sergiovil64/gestion-tareas-modulo1/internal/metrics"
	"github.com/Sergiovil64/gestion-tareas-modulo1/internal/observability/logger"
	"github.com/Sergiovil64/gestion-tareas-modulo1/internal/security/backupcodes"
	"github.com/Sergiovil64/gestion-tareas-modulo1/internal/security/password"
	"github.com/Sergiovil64/gestion-tareas-modulo1/internal/security/secretbox"
	"github.com/Sergiovil64/gestion-tareas-modulo1/internal/security/totp"
	"github.com/Sergiovil64/gestion-tareas-modulo1/internal/store/core"
)

// Errores del ciclo de vida MFA
var (
	ErrAlreadyEnabled  = fmt.Errorf("mfa already enabled")
	ErrNotEnabled      = fmt.Errorf("mfa not enabled")
	ErrNoPendingSetup  = fmt.Errorf("no pending mfa setup")
	ErrInvalidCode     = fmt.Errorf("invalid totp code")
	ErrInvalidPassword = fmt.Errorf("invalid password")
)

// Deps contiene las dependencias del servicio MFA.
type Deps struct {
	Users  core.UserRepository
	MFA    core.MFARepository
	Issuer *jwtx.Issuer
	Box    *secretbox.Box

	TOTPIssuer  string
	BackupCodes int
}

// Service implementa el ciclo UNCONFIGURED -> PENDING -> ACTIVE.
type Service struct {
	deps Deps
}

func NewService(deps Deps) *Service {
	return &Service{deps: deps}
}

// Enable genera secreto y códigos de respaldo y deja la cuenta en PENDING.
// Repetir el enable antes de verificar regenera todo el material. El
// secreto y los códigos en claro salen UNA sola vez en esta respuesta.
func (s *Service) Enable(ctx context.Context, u *core.User) (*dto.EnableResponse, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("mfa"),
		logger.Op("Enable"),
	)

	if u.MFAEnabled {
		return nil, ErrAlreadyEnabled
	}

	_, secretB32, err := totp.GenerateSecret()
	if err != nil {
		return nil, fmt.Errorf("generar secreto: %w", err)
	}

	secretEnc, err := s.deps.Box.Encrypt(secretB32)
	if err != nil {
		return nil, fmt.Errorf("cifrar secreto: %w", err)
	}

	codes, err := backupcodes.Generate(s.deps.BackupCodes)
	if err != nil {
		return nil, err
	}
	hashes := make([]string, len(codes))
	for i, c := range codes {
		h, herr := password.Hash(password.Default, c)
		if herr != nil {
			return nil, herr
		}
		hashes[i] = h
	}

	if err := s.deps.MFA.SetPendingSecret(ctx, u.ID, secretEnc); err != nil {
		return nil, err
	}
	if err := s.deps.MFA.ReplaceBackupCodes(ctx, u.ID, hashes); err != nil {
		return nil, err
	}

	log.Info("setup mfa iniciado")
	return &dto.EnableResponse{
		Secret:      secretB32,
		OtpauthURL:  totp.OTPAuthURL(s.deps.TOTPIssuer, u.Email, secretB32),
		BackupCodes: codes,
	}, nil
}

// Verify valida el primer código TOTP y pasa PENDING -> ACTIVE. La
// activación es un UPDATE condicional: dos verificaciones concurrentes
// no activan dos veces. Re-emite un token de sesión completo.
func (s *Service) Verify(ctx context.Context, u *core.User, code string) (*dto.VerifyResponse, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("mfa"),
		logger.Op("Verify"),
	)

	if u.MFAEnabled {
		return nil, ErrAlreadyEnabled
	}
	if u.MFASecretEnc == nil {
		return nil, ErrNoPendingSetup
	}

	secretB32, err := s.deps.Box.Decrypt(*u.MFASecretEnc)
	if err != nil {
		return nil, fmt.Errorf("descifrar secreto: %w", err)
	}
	raw, err := totp.DecodeSecret(secretB32)
	if err != nil {
		return nil, fmt.Errorf("decodificar secreto: %w", err)
	}

	ok, counter := totp.Verify(raw, code, time.Now(), 1, u.MFALastCounter)
	if !ok {
		metrics.MFAVerifications.WithLabelValues("totp", "failure").Inc()
		return nil, ErrInvalidCode
	}

	if err := s.deps.MFA.Activate(ctx, u.ID); err != nil {
		if errors.Is(err, core.ErrConflict) {
			return nil, ErrAlreadyEnabled
		}
		return nil, err
	}
	if _, err := s.deps.MFA.AdvanceLastCounter(ctx, u.ID, counter); err != nil {
		return nil, err
	}
	metrics.MFAVerifications.WithLabelValues("totp", "success").Inc()

	tok, err := s.deps.Issuer.Issue(u.ID.String(), string(u.Role), jwtx.IssueOptions{})
	if err != nil {
		return nil, err
	}

	log.Info("mfa activado")
	return &dto.VerifyResponse{
		Token:   tok,
		Message: "Autenticación de dos factores activada",
	}, nil
}

// Status devuelve el estado del segundo factor y los códigos restantes.
func (s *Service) Status(ctx context.Context, u *core.User) (*dto.StatusResponse, error) {
	remaining := 0
	if u.MFAEnabled {
		n, err := s.deps.MFA.CountBackupCodes(ctx, u.ID)
		if err != nil {
			return nil, err
		}
		remaining = n
	}
	return &dto.StatusResponse{
		MFAEnabled:           u.MFAEnabled,
		BackupCodesRemaining: remaining,
	}, nil
}

// Disable vuelve la cuenta a UNCONFIGURED. Exige re-ingresar la contraseña.
func (s *Service) Disable(ctx context.Context, u *core.User, pass string) error {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("mfa"),
		logger.Op("Disable"),
	)

	if !u.MFAEnabled {
		return ErrNotEnabled
	}
	if !password.Verify(pass, u.PasswordHash) {
		return ErrInvalidPassword
	}
	if err := s.deps.MFA.Disable(ctx, u.ID); err != nil {
		return err
	}
	log.Info("mfa desactivado")
	return nil
}

// RegenerateBackupCodes reemplaza el set completo. Exige MFA activo y
// contraseña. Los códigos anteriores quedan todos invalidados.
func (s *Service) RegenerateBackupCodes(ctx context.Context, u *core.User, pass string) (*dto.RegenerateResponse, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("mfa"),
		logger.Op("RegenerateBackupCodes"),
	)

	if !u.MFAEnabled {
		return nil, ErrNotEnabled
	}
	if !password.Verify(pass, u.PasswordHash) {
		return nil, ErrInvalidPassword
	}

	codes, err := backupcodes.Generate(s.deps.BackupCodes)
	if err != nil {
		return nil, err
	}
	hashes := make([]string, len(codes))
	for i, c := range codes {
		h, herr := password.Hash(password.Default, c)
		if herr != nil {
			return nil, herr
		}
		hashes[i] = h
	}
	if err := s.deps.MFA.ReplaceBackupCodes(ctx, u.ID, hashes); err != nil {
		return nil, err
	}

	log.Info("códigos de respaldo regenerados", logger.Count(len(codes)))
	return &dto.RegenerateResponse{BackupCodes: codes}, nil
}
