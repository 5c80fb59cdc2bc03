package totp

import (
	"strings"
	"testing"
	"time"
)

// Vectores de RFC 6238 apéndice B (SHA1, secreto "12345678901234567890"),
// truncados a 6 dígitos.
func TestGen_RFC6238Vectors(t *testing.T) {
	secret := []byte("12345678901234567890")

	cases := []struct {
		unix int64
		want string
	}{
		{59, "287082"},
		{1111111109, "081804"},
		{1111111111, "050471"},
		{1234567890, "005924"},
		{2000000000, "279037"},
	}

	for _, tc := range cases {
		counter := tc.unix / 30
		if got := gen(secret, counter); got != tc.want {
			t.Errorf("t=%d: got %s, want %s", tc.unix, got, tc.want)
		}
	}
}

func TestVerify_Window(t *testing.T) {
	secret := []byte("12345678901234567890")
	now := time.Unix(1111111109, 0)

	current := gen(secret, now.Unix()/30)
	previous := gen(secret, now.Unix()/30-1)
	next := gen(secret, now.Unix()/30+1)
	tooOld := gen(secret, now.Unix()/30-3)

	if ok, _ := Verify(secret, current, now, 1, nil); !ok {
		t.Error("código del paso actual rechazado")
	}
	if ok, _ := Verify(secret, previous, now, 1, nil); !ok {
		t.Error("código del paso anterior rechazado (ventana ±1)")
	}
	if ok, _ := Verify(secret, next, now, 1, nil); !ok {
		t.Error("código del paso siguiente rechazado (ventana ±1)")
	}
	if ok, _ := Verify(secret, tooOld, now, 1, nil); ok {
		t.Error("código 3 pasos atrás aceptado")
	}
}

func TestVerify_AntiReplay(t *testing.T) {
	secret := []byte("12345678901234567890")
	now := time.Unix(1111111109, 0)
	code := gen(secret, now.Unix()/30)

	ok, counter := Verify(secret, code, now, 1, nil)
	if !ok {
		t.Fatal("primer uso rechazado")
	}

	// Mismo código con el contador ya consumido: replay.
	if ok, _ := Verify(secret, code, now, 1, &counter); ok {
		t.Fatal("replay aceptado")
	}
}

func TestVerify_RejectsMalformedCode(t *testing.T) {
	secret := []byte("12345678901234567890")
	now := time.Now()

	for _, code := range []string{"", "12345", "1234567", "abc def"} {
		if ok, _ := Verify(secret, code, now, 1, nil); ok {
			t.Errorf("código %q aceptado", code)
		}
	}
}

func TestGenerateSecret(t *testing.T) {
	raw, b32, err := GenerateSecret()
	if err != nil {
		t.Fatal(err)
	}
	if len(raw) != 20 {
		t.Fatalf("secreto de %d bytes, se esperaban 20", len(raw))
	}
	if strings.Contains(b32, "=") {
		t.Fatal("el base32 no debe llevar padding")
	}
	decoded, err := DecodeSecret(b32)
	if err != nil {
		t.Fatal(err)
	}
	if string(decoded) != string(raw) {
		t.Fatal("DecodeSecret no recupera el secreto original")
	}
}

func TestOTPAuthURL(t *testing.T) {
	u := OTPAuthURL("GestionTareas", "ana@example.com", "ABCDEF234567")
	if !strings.HasPrefix(u, "otpauth://totp/") {
		t.Fatalf("esquema inesperado: %s", u)
	}
	for _, frag := range []string{"secret=ABCDEF234567", "issuer=GestionTareas", "digits=6", "period=30", "algorithm=SHA1"} {
		if !strings.Contains(u, frag) {
			t.Errorf("falta %q en %s", frag, u)
		}
	}
}
