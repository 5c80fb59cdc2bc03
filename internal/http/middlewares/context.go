package middlewares

import (
	"context"

	"github.com/Sergiovil64/gestion-tareas-modulo1/internal/jwt"
	"github.com/Sergiovil64/gestion-tareas-modulo1/internal/store/core"
)

// =================================================================================
// CONTEXT KEYS
// =================================================================================

type ctxKey string

const (
	// ctxUserKey guarda el usuario autenticado ya resuelto contra la BD
	ctxUserKey ctxKey = "user"
	// ctxClaimsKey guarda las claims del token parseado
	ctxClaimsKey ctxKey = "claims"
	// ctxRequestIDKey guarda el request ID
	ctxRequestIDKey ctxKey = "request_id"
)

// =================================================================================
// SETTERS (internos, usados por middlewares)
// =================================================================================

// WithUser inyecta el usuario autenticado en el contexto.
func WithUser(ctx context.Context, u *core.User) context.Context {
	return context.WithValue(ctx, ctxUserKey, u)
}

// WithClaims inyecta las claims parseadas en el contexto.
func WithClaims(ctx context.Context, cl *jwt.Claims) context.Context {
	return context.WithValue(ctx, ctxClaimsKey, cl)
}

func setRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxRequestIDKey, id)
}

// =================================================================================
// GETTERS (públicos, usados por controllers/services)
// =================================================================================

// GetUser obtiene el usuario autenticado del contexto.
// Retorna nil si el middleware de auth no corrió en esta ruta.
func GetUser(ctx context.Context) *core.User {
	if v := ctx.Value(ctxUserKey); v != nil {
		if u, ok := v.(*core.User); ok {
			return u
		}
	}
	return nil
}

// GetClaims obtiene las claims del token del contexto.
func GetClaims(ctx context.Context) *jwt.Claims {
	if v := ctx.Value(ctxClaimsKey); v != nil {
		if cl, ok := v.(*jwt.Claims); ok {
			return cl
		}
	}
	return nil
}

// GetRequestID obtiene el request ID del contexto.
func GetRequestID(ctx context.Context) string {
	if v := ctx.Value(ctxRequestIDKey); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
