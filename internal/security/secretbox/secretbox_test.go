package secretbox

import (
	"encoding/base64"
	"strings"
	"testing"
)

func testKey(seed byte) string {
	raw := make([]byte, 32)
	for i := range raw {
		raw[i] = seed + byte(i)
	}
	return base64.StdEncoding.EncodeToString(raw)
}

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	t.Parallel()

	box, err := New(testKey(1))
	if err != nil {
		t.Fatalf("New err: %v", err)
	}

	msg := "JBSWY3DPEHPK3PXP (secreto totp)"
	ct, err := box.Encrypt(msg)
	if err != nil {
		t.Fatalf("Encrypt err: %v", err)
	}
	if ct == msg {
		t.Fatal("el ciphertext no puede ser igual al plaintext")
	}
	pt, err := box.Decrypt(ct)
	if err != nil {
		t.Fatalf("Decrypt err: %v", err)
	}
	if pt != msg {
		t.Fatalf("plaintext mismatch: got %q want %q", pt, msg)
	}
}

func TestDecrypt_DetectsTamper(t *testing.T) {
	t.Parallel()

	box, err := New(testKey(100))
	if err != nil {
		t.Fatal(err)
	}

	ct, err := box.Encrypt("top secret")
	if err != nil {
		t.Fatal(err)
	}
	parts := strings.Split(ct, "|")
	if len(parts) != 2 {
		t.Fatalf("formato inesperado: %q", ct)
	}

	// corromper un byte del ciphertext (base64 -> bytes -> flip -> base64)
	bs, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		t.Fatal(err)
	}
	bs[0] ^= 0xFF
	tampered := parts[0] + "|" + base64.StdEncoding.EncodeToString(bs)

	if _, err := box.Decrypt(tampered); err == nil {
		t.Fatal("Decrypt aceptó un ciphertext alterado")
	}
}

func TestDecrypt_WrongKey(t *testing.T) {
	t.Parallel()

	a, _ := New(testKey(1))
	b, _ := New(testKey(2))

	ct, err := a.Encrypt("secreto")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := b.Decrypt(ct); err == nil {
		t.Fatal("Decrypt con otra clave debería fallar")
	}
}

func TestNew_KeyFormats(t *testing.T) {
	t.Parallel()

	// hex de 64 chars
	hexKey := strings.Repeat("ab", 32)
	if _, err := New(hexKey); err != nil {
		t.Errorf("clave hex rechazada: %v", err)
	}

	// base64 sin padding
	raw := make([]byte, 32)
	if _, err := New(base64.RawStdEncoding.EncodeToString(raw)); err != nil {
		t.Errorf("clave base64 raw rechazada: %v", err)
	}

	// inválidas
	for _, k := range []string{"", "corta", base64.StdEncoding.EncodeToString(make([]byte, 16))} {
		if _, err := New(k); err == nil {
			t.Errorf("clave inválida %q aceptada", k)
		}
	}
}
