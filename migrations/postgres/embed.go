// Package migrations embebe los archivos SQL de migración.
package migrations

import "embed"

// FS contiene las migraciones del esquema, ordenadas por prefijo numérico.
//
//go:embed *.sql
var FS embed.FS
