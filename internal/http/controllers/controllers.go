// Package controllers comparte helpers de parseo y escritura JSON.
package controllers

import (
	"encoding/json"
	"net/http"

	httperrors "github.com/Sergiovil64/gestion-tareas-modulo1/internal/http/errors"
)

const (
	// MaxBodySize limita el body de los requests JSON.
	MaxBodySize = 64 * 1024 // 64KB

	contentTypeJSON = "application/json; charset=utf-8"
)

// DecodeJSON parsea el body JSON con límite de tamaño. Escribe el error
// y devuelve false si el body es inválido.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodySize)
	defer r.Body.Close()

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		httperrors.WriteError(w, httperrors.ErrInvalidJSON)
		return false
	}
	return true
}

// WriteJSON serializa la respuesta con el status dado.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// NoStore marca la respuesta como no cacheable. Obligatorio en todo
// endpoint que devuelva tokens o material de setup MFA.
func NoStore(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
}
