// Package auth contiene DTOs para registro, login y sesión.
package auth

import "time"

// RegisterRequest es el input de POST /api/auth/register.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterResponse responde al registro. El token es restringido: solo
// sirve para completar el setup MFA y consultar el propio perfil.
type RegisterResponse struct {
	Token            string       `json:"token"`
	MFASetupRequired bool         `json:"mfaSetupRequired"`
	User             UserResponse `json:"user"`
}

// LoginRequest es el input de POST /api/auth/login. MFACode es opcional:
// si la cuenta tiene MFA activo y no viene código, la respuesta pide el
// segundo factor y el cliente reenvía credenciales completas más código.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	MFACode  string `json:"mfaCode,omitempty"`
}

// LoginResponse responde al login.
type LoginResponse struct {
	Token              string        `json:"token,omitempty"`
	MFARequired        bool          `json:"mfaRequired,omitempty"`
	MustChangePassword bool          `json:"mustChangePassword,omitempty"`
	PasswordExpired    bool          `json:"passwordExpired,omitempty"`
	Warning            string        `json:"warning,omitempty"`
	User               *UserResponse `json:"user,omitempty"`
}

// UpgradeResponse responde a POST /api/auth/upgrade con un token nuevo
// que ya carga el rol PREMIUM.
type UpgradeResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

// UserResponse es la vista pública de una cuenta.
type UserResponse struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Role       string    `json:"role"`
	MFAEnabled bool      `json:"mfaEnabled"`
	CreatedAt  time.Time `json:"createdAt"`
}
