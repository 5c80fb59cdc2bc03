package backupcodes

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// alphabet es el set alfanumérico en mayúsculas, 36 símbolos.
const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// CodeLength es la longitud de cada código de respaldo.
const CodeLength = 8

// Generate produce n códigos de respaldo de un solo uso. Cada código son
// 8 caracteres alfanuméricos en mayúsculas, generados con crypto/rand.
// El texto plano se muestra UNA sola vez al usuario; en BD solo se guarda
// el hash argon2id de cada código.
func Generate(n int) ([]string, error) {
	codes := make([]string, 0, n)
	for i := 0; i < n; i++ {
		c, err := generateOne()
		if err != nil {
			return nil, err
		}
		codes = append(codes, c)
	}
	return codes, nil
}

func generateOne() (string, error) {
	// 256 no es múltiplo de 36: un byte % 36 sesga hacia A-D/0-3.
	max := big.NewInt(int64(len(alphabet)))
	out := make([]byte, CodeLength)
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("backupcodes: rand: %w", err)
		}
		out[i] = alphabet[n.Int64()]
	}
	return string(out), nil
}
