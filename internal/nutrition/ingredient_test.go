package nutrition

import "testing"

func TestParseIngredient(t *testing.T) {
	cases := []struct {
		name  string
		in    string
		code  string
		grams float64
		ok    bool
	}{
		{name: "plain", in: "Beras putih (AR001, 50g)", code: "AR001", grams: 50, ok: true},
		{name: "ml treated as grams", in: "ASI/Formula (JR002, 100 ml)", code: "JR002", grams: 100, ok: true},
		{name: "no unit", in: "Wortel (SA002, 20)", code: "SA002", grams: 20, ok: true},
		{name: "trailing figure wins", in: "Tepung beras (AR015, 3 sdm atau 45g)", code: "AR015", grams: 45, ok: true},
		{name: "decimal amount", in: "Minyak kelapa (MK003, 2.5g)", code: "MK003", grams: 2.5, ok: true},
		{name: "decimal comma amount", in: "Minyak kelapa (MK003, 2,5g)", code: "MK003", grams: 2.5, ok: true},
		{name: "lowercase code upcased", in: "Beras merah (ar002, 40g)", code: "AR002", grams: 40, ok: true},
		{name: "long code", in: "Daging sapi (DG0123, 30g)", code: "DG0123", grams: 30, ok: true},
		{name: "dotted name with plain parens", in: "Santan (kental) kelapa (KL007, 15g)", code: "KL007", grams: 15, ok: true},
		{name: "nested parens", in: "Ikan (segar (IK001, 30g))", code: "IK001", grams: 30, ok: true},
		{name: "no code", in: "Garam secukupnya", ok: false},
		{name: "code without amount", in: "Ayam dada (AY001)", ok: false},
		{name: "code with empty quantity", in: "Ayam dada (AY001, secukupnya)", ok: false},
		{name: "empty string", in: "", ok: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ParseIngredient(tc.in)
			if ok != tc.ok {
				t.Fatalf("ok: want=%v got=%v", tc.ok, ok)
			}
			if !tc.ok {
				return
			}
			if got.Code != tc.code {
				t.Fatalf("code: want=%s got=%s", tc.code, got.Code)
			}
			if got.Grams != tc.grams {
				t.Fatalf("grams: want=%v got=%v", tc.grams, got.Grams)
			}
		})
	}
}

// A leading count followed by a non-gram trailing number still takes the last
// token. "2 sdm (sekitar 30) gula (GL001, porsi 1)" resolves to 1 gram, not
// the intended tablespoon amount. The heuristic trades this corner for the
// common "N sdm atau Mg" phrasing.
func TestParseIngredientLastTokenLimitation(t *testing.T) {
	got, ok := ParseIngredient("Gula pasir (GL001, 2 sdm porsi 1)")
	if !ok {
		t.Fatalf("expected parse to succeed")
	}
	if got.Grams != 1 {
		t.Fatalf("grams: want=1 got=%v", got.Grams)
	}
}
