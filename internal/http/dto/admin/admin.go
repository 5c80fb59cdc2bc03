// Package admin contiene DTOs del panel de administración.
package admin

import "time"

// UserSummary es la vista de una cuenta para listados de admin.
type UserSummary struct {
	ID                 string     `json:"id"`
	Name               string     `json:"name"`
	Email              string     `json:"email"`
	Role               string     `json:"role"`
	IsActive           bool       `json:"isActive"`
	MFAEnabled         bool       `json:"mfaEnabled"`
	LoginAttempts      int        `json:"loginAttempts"`
	MustChangePassword bool       `json:"mustChangePassword"`
	PasswordExpiresAt  time.Time  `json:"passwordExpiresAt"`
	LastLoginAttempt   *time.Time `json:"lastLoginAttempt,omitempty"`
	CreatedAt          time.Time  `json:"createdAt"`
}

// UpdateRoleRequest es el input de PUT /api/admin/users/{id}/role.
type UpdateRoleRequest struct {
	Role string `json:"role"`
}

// UpdateStatusRequest es el input de PUT /api/admin/users/{id}/status.
type UpdateStatusRequest struct {
	IsActive bool `json:"isActive"`
}

// StatsResponse es la respuesta de GET /api/admin/stats.
type StatsResponse struct {
	UsersByRole   map[string]int `json:"usersByRole"`
	ActiveUsers   int            `json:"activeUsers"`
	InactiveUsers int            `json:"inactiveUsers"`
	TasksByStatus map[string]int `json:"tasksByStatus"`
}
