package jwt

import (
	"strings"
	"testing"
	"time"
)

func TestIssueParse_RoundTrip(t *testing.T) {
	iss, err := New("secreto-de-prueba-largo", "gestion-tareas", time.Hour)
	if err != nil {
		t.Fatal(err)
	}

	tok, err := iss.Issue("user-123", "PREMIUM", IssueOptions{})
	if err != nil {
		t.Fatalf("Issue err: %v", err)
	}

	claims, err := iss.Parse(tok)
	if err != nil {
		t.Fatalf("Parse err: %v", err)
	}
	if claims.Subject != "user-123" {
		t.Errorf("sub = %q", claims.Subject)
	}
	if claims.Role != "PREMIUM" {
		t.Errorf("role = %q", claims.Role)
	}
	if claims.MustChangePassword || claims.RestrictedMFA {
		t.Error("flags de restricción no deberían estar puestos")
	}
}

func TestIssue_Flags(t *testing.T) {
	iss, _ := New("secreto-de-prueba-largo", "gestion-tareas", time.Hour)

	tok, err := iss.Issue("user-123", "FREE", IssueOptions{MustChangePassword: true, RestrictedMFA: true})
	if err != nil {
		t.Fatal(err)
	}
	claims, err := iss.Parse(tok)
	if err != nil {
		t.Fatal(err)
	}
	if !claims.MustChangePassword || !claims.RestrictedMFA {
		t.Error("flags de restricción perdidos en el round trip")
	}
}

func TestParse_Expired(t *testing.T) {
	// New normaliza ttl <= 0, así que el token vencido se arma a mano.
	iss := &Issuer{secret: []byte("secreto-de-prueba-largo"), issuer: "gestion-tareas", ttl: -time.Minute}

	tok, err := iss.Issue("user-123", "FREE", IssueOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := iss.Parse(tok); err != ErrTokenExpired {
		t.Fatalf("err = %v, se esperaba ErrTokenExpired", err)
	}
}

func TestParse_Tampered(t *testing.T) {
	iss, _ := New("secreto-de-prueba-largo", "gestion-tareas", time.Hour)

	tok, err := iss.Issue("user-123", "FREE", IssueOptions{})
	if err != nil {
		t.Fatal(err)
	}

	parts := strings.Split(tok, ".")
	if len(parts) != 3 {
		t.Fatal("token JWT malformado")
	}
	tampered := parts[0] + "." + parts[1] + "." + "firmafalsa"
	if _, err := iss.Parse(tampered); err != ErrTokenInvalid {
		t.Fatalf("err = %v, se esperaba ErrTokenInvalid", err)
	}
}

func TestParse_WrongIssuer(t *testing.T) {
	a, _ := New("secreto-de-prueba-largo", "servicio-a", time.Hour)
	b, _ := New("secreto-de-prueba-largo", "servicio-b", time.Hour)

	tok, err := a.Issue("user-123", "FREE", IssueOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := b.Parse(tok); err == nil {
		t.Fatal("token de otro emisor aceptado")
	}
}

func TestNew_EmptySecret(t *testing.T) {
	if _, err := New("", "x", time.Hour); err == nil {
		t.Fatal("se esperaba error con secreto vacío")
	}
}
