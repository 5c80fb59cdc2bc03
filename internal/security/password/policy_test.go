package password

import (
	"reflect"
	"strings"
	"testing"
)

func TestPolicyValidate(t *testing.T) {
	p := Policy{MinLength: 12, MaxLength: 128}

	cases := []struct {
		name    string
		input   string
		ok      bool
		reasons []string
	}{
		{"valida", "Segura123!Aa", true, nil},
		{"valida con varios especiales", "Abcdefg1@$!%*?&", true, nil},
		{"muy corta", "Ab1@", false, []string{"too_short"}},
		{"muy larga", "Aa1@" + strings.Repeat("x", 130), false, []string{"too_long"}},
		{"sin mayuscula", "segura123!aa", false, []string{"missing_upper"}},
		{"sin minuscula", "SEGURA123!AA", false, []string{"missing_lower"}},
		{"sin numero", "SeguraSegura!", false, []string{"missing_digit"}},
		{"sin especial", "SeguraSegura1", false, []string{"missing_special"}},
		{"simbolo fuera del set no cuenta", "SeguraSegura1#", false, []string{"missing_special"}},
		{"vacia", "", false, []string{"too_short", "missing_upper", "missing_lower", "missing_digit", "missing_special"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ok, reasons := p.Validate(tc.input)
			if ok != tc.ok {
				t.Fatalf("ok = %v, want %v (reasons: %v)", ok, tc.ok, reasons)
			}
			if !tc.ok && !reflect.DeepEqual(reasons, tc.reasons) {
				t.Fatalf("reasons = %v, want %v", reasons, tc.reasons)
			}
		})
	}
}
