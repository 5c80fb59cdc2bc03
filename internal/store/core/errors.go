package core

import "errors"

var (
	// ErrNotFound indica que el registro no existe.
	ErrNotFound = errors.New("store: registro no encontrado")

	// ErrDuplicateEmail indica que el email ya está registrado.
	ErrDuplicateEmail = errors.New("store: email duplicado")

	// ErrConflict indica que una actualización condicional no aplicó
	// (la precondición dejó de cumplirse).
	ErrConflict = errors.New("store: conflicto de actualización")
)
