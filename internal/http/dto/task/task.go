// Package task contiene DTOs de tareas.
package task

import "time"

// CreateRequest es el input de POST /api/tasks. Priority, Color e
// ImageURL son características premium cuando se apartan del default.
type CreateRequest struct {
	Title       string     `json:"title"`
	Description *string    `json:"description,omitempty"`
	Status      string     `json:"status,omitempty"`
	DueDate     *time.Time `json:"dueDate"`
	Priority    *int       `json:"priority,omitempty"`
	Color       *string    `json:"color,omitempty"`
	ImageURL    *string    `json:"imageUrl,omitempty"`
}

// UpdateRequest es el input de PUT /api/tasks/{id}. Campos nil se
// conservan sin cambios.
type UpdateRequest struct {
	Title       *string    `json:"title,omitempty"`
	Description *string    `json:"description,omitempty"`
	Status      *string    `json:"status,omitempty"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	Priority    *int       `json:"priority,omitempty"`
	Color       *string    `json:"color,omitempty"`
	ImageURL    *string    `json:"imageUrl,omitempty"`
}

// Response es la vista de una tarea.
type Response struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description *string   `json:"description,omitempty"`
	Status      string    `json:"status"`
	DueDate     time.Time `json:"dueDate"`
	Priority    int       `json:"priority"`
	Color       string    `json:"color"`
	ImageURL    *string   `json:"imageUrl,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
