package password

import (
	"strings"
	"unicode"
)

// Policy define los requisitos de complejidad de contraseñas.
// El conjunto de símbolos aceptados es cerrado: solo @$!%*?& cuentan
// como carácter especial.
type Policy struct {
	MinLength int
	MaxLength int
}

const specialSet = "@$!%*?&"

// Validate evalúa la contraseña contra la política. Devuelve ok y la lista
// de razones de rechazo en formato estable (para el detail del error).
func (p Policy) Validate(s string) (ok bool, reasons []string) {
	runes := []rune(s)
	if len(runes) < p.MinLength {
		reasons = append(reasons, "too_short")
	}
	if p.MaxLength > 0 && len(runes) > p.MaxLength {
		reasons = append(reasons, "too_long")
	}
	var hasU, hasL, hasD, hasS bool
	for _, r := range runes {
		switch {
		case unicode.IsUpper(r):
			hasU = true
		case unicode.IsLower(r):
			hasL = true
		case unicode.IsDigit(r):
			hasD = true
		case strings.ContainsRune(specialSet, r):
			hasS = true
		}
	}
	if !hasU {
		reasons = append(reasons, "missing_upper")
	}
	if !hasL {
		reasons = append(reasons, "missing_lower")
	}
	if !hasD {
		reasons = append(reasons, "missing_digit")
	}
	if !hasS {
		reasons = append(reasons, "missing_special")
	}
	return len(reasons) == 0, reasons
}
