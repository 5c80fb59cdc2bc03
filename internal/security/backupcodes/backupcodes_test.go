package backupcodes

import (
	"strings"
	"testing"
)

func TestGenerate_Shape(t *testing.T) {
	codes, err := Generate(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(codes) != 10 {
		t.Fatalf("se generaron %d códigos, se esperaban 10", len(codes))
	}

	seen := make(map[string]bool)
	for _, c := range codes {
		if len(c) != CodeLength {
			t.Errorf("código %q de largo %d, se esperaba %d", c, len(c), CodeLength)
		}
		for _, r := range c {
			if !strings.ContainsRune(alphabet, r) {
				t.Errorf("código %q contiene carácter fuera del alfabeto: %q", c, r)
			}
		}
		if seen[c] {
			t.Errorf("código repetido: %q", c)
		}
		seen[c] = true
	}
}

func TestGenerate_CubreAlfabeto(t *testing.T) {
	// Con 300 códigos (2400 símbolos) la ausencia de algún carácter del
	// alfabeto delataría un muestreo roto.
	codes, err := Generate(300)
	if err != nil {
		t.Fatal(err)
	}
	seen := make(map[rune]bool)
	for _, c := range codes {
		for _, r := range c {
			seen[r] = true
		}
	}
	for _, r := range alphabet {
		if !seen[r] {
			t.Errorf("el carácter %q nunca apareció en 300 códigos", r)
		}
	}
}

func TestGenerate_Zero(t *testing.T) {
	codes, err := Generate(0)
	if err != nil {
		t.Fatal(err)
	}
	if len(codes) != 0 {
		t.Fatalf("se esperaban 0 códigos, hay %d", len(codes))
	}
}
