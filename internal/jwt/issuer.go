package jwt

import (
	"errors"
	"fmt"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrTokenInvalid = errors.New("jwt: token inválido")
	ErrTokenExpired = errors.New("jwt: token expirado")
)

// Claims son los claims de un token de sesión.
// MustChangePassword marca tokens restringidos: emitidos cuando la
// contraseña expiró o un admin forzó la rotación. RestrictedMFA marca
// tokens de setup emitidos antes de activar el segundo factor.
type Claims struct {
	Role               string `json:"role"`
	MustChangePassword bool   `json:"must_change_password,omitempty"`
	RestrictedMFA      bool   `json:"mfa_setup,omitempty"`
	gojwt.RegisteredClaims
}

// Issuer firma y valida tokens HS256.
type Issuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

// New construye un Issuer. El secreto no puede estar vacío.
func New(secret, issuer string, ttl time.Duration) (*Issuer, error) {
	if secret == "" {
		return nil, fmt.Errorf("jwt: secreto vacío")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Issuer{secret: []byte(secret), issuer: issuer, ttl: ttl}, nil
}

// IssueOptions modula los claims del token emitido.
type IssueOptions struct {
	MustChangePassword bool
	RestrictedMFA      bool
}

// Issue emite un token firmado para el usuario dado.
func (i *Issuer) Issue(userID, role string, opts IssueOptions) (string, error) {
	now := time.Now()
	claims := Claims{
		Role:               role,
		MustChangePassword: opts.MustChangePassword,
		RestrictedMFA:      opts.RestrictedMFA,
		RegisteredClaims: gojwt.RegisteredClaims{
			Issuer:    i.issuer,
			Subject:   userID,
			ID:        uuid.NewString(),
			IssuedAt:  gojwt.NewNumericDate(now),
			ExpiresAt: gojwt.NewNumericDate(now.Add(i.ttl)),
		},
	}
	tok := gojwt.NewWithClaims(gojwt.SigningMethodHS256, claims)
	return tok.SignedString(i.secret)
}

// Parse valida firma, emisor y expiración, y devuelve los claims.
func (i *Issuer) Parse(raw string) (*Claims, error) {
	claims := &Claims{}
	tok, err := gojwt.ParseWithClaims(raw, claims,
		func(t *gojwt.Token) (any, error) {
			if _, ok := t.Method.(*gojwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("método de firma inesperado: %v", t.Header["alg"])
			}
			return i.secret, nil
		},
		gojwt.WithIssuer(i.issuer),
		gojwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, gojwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}
	if !tok.Valid || claims.Subject == "" {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}
