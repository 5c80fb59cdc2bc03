// Package mfa contiene DTOs para el ciclo de vida del segundo factor.
package mfa

// EnableResponse devuelve el material de setup. El secreto y los códigos
// en texto plano se entregan UNA sola vez.
type EnableResponse struct {
	Secret      string   `json:"secret"`
	OtpauthURL  string   `json:"otpauthUrl"`
	BackupCodes []string `json:"backupCodes"`
}

// VerifyRequest es el input de POST /api/mfa/verify.
type VerifyRequest struct {
	Token string `json:"token"`
}

// VerifyResponse confirma la activación y re-emite un token de sesión
// completo (el de setup queda obsoleto).
type VerifyResponse struct {
	Token   string `json:"token"`
	Message string `json:"message"`
}

// StatusResponse es la respuesta de GET /api/mfa/status.
type StatusResponse struct {
	MFAEnabled           bool `json:"mfaEnabled"`
	BackupCodesRemaining int  `json:"backupCodesRemaining"`
}

// DisableRequest exige re-ingresar la contraseña.
type DisableRequest struct {
	Password string `json:"password"`
}

// RegenerateRequest exige re-ingresar la contraseña.
type RegenerateRequest struct {
	Password string `json:"password"`
}

// RegenerateResponse devuelve el set nuevo completo; el anterior queda
// invalidado en su totalidad.
type RegenerateResponse struct {
	BackupCodes []string `json:"backupCodes"`
}
