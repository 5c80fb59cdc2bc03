// Package password contiene DTOs del ciclo de vida de contraseñas.
package password

import "time"

// ChangeRequest es el input de POST /api/password/change.
type ChangeRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
	ConfirmPassword string `json:"confirmPassword"`
}

// ChangeResponse re-emite el token tras el cambio exitoso.
type ChangeResponse struct {
	Token   string `json:"token"`
	Message string `json:"message"`
}

// StatusResponse es la respuesta de GET /api/password/status.
type StatusResponse struct {
	ChangedAt           time.Time `json:"changedAt"`
	ExpiresAt           time.Time `json:"expiresAt"`
	DaysUntilExpiration int       `json:"daysUntilExpiration"`
	IsExpired           bool      `json:"isExpired"`
	MustChangePassword  bool      `json:"mustChangePassword"`
	ExpirationDays      int       `json:"expirationDays"`
}
