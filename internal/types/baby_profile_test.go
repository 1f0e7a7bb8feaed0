package types

import (
	"encoding/json"
	"errors"
	"testing"
)

func rawBody(t *testing.T, src string) map[string]json.RawMessage {
	t.Helper()
	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(src), &raw); err != nil {
		t.Fatalf("unmarshal body: %v", err)
	}
	return raw
}

func TestNormalizeProfileIndonesianKeys(t *testing.T) {
	raw := rawBody(t, `{
		"umur_bulan": 8,
		"berat_badan": 8.5,
		"tinggi_badan": 70,
		"jenis_kelamin": "perempuan",
		"tempat_tinggal": "Bandung",
		"alergi": ["kacang", "telur"]
	}`)

	p, err := NormalizeProfileInput(raw)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if p.AgeMonths != 8 {
		t.Fatalf("age: want=8 got=%d", p.AgeMonths)
	}
	if p.WeightKg != 8.5 {
		t.Fatalf("weight: want=8.5 got=%v", p.WeightKg)
	}
	if p.Gender != "perempuan" || p.Residence != "Bandung" {
		t.Fatalf("strings: got=%+v", p)
	}
	if len(p.Allergies) != 2 || p.Allergies[0] != "kacang" {
		t.Fatalf("allergies: got=%v", p.Allergies)
	}
}

func TestNormalizeProfileEnglishKeysWin(t *testing.T) {
	raw := rawBody(t, `{"age_months": 9, "umur_bulan": 7, "weight_kg": 9}`)

	p, err := NormalizeProfileInput(raw)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if p.AgeMonths != 9 {
		t.Fatalf("age: want=9 got=%d", p.AgeMonths)
	}
}

func TestNormalizeProfileAgeBounds(t *testing.T) {
	for _, age := range []string{"5", "25", "-1"} {
		raw := rawBody(t, `{"age_months": `+age+`}`)
		_, err := NormalizeProfileInput(raw)
		var vErr *ProfileValidationError
		if !errors.As(err, &vErr) || vErr.Field != "age_months" {
			t.Fatalf("age=%s: want validation error, got=%v", age, err)
		}
	}
	for _, age := range []string{"6", "24"} {
		raw := rawBody(t, `{"age_months": `+age+`}`)
		if _, err := NormalizeProfileInput(raw); err != nil {
			t.Fatalf("age=%s: unexpected error %v", age, err)
		}
	}
}

func TestNormalizeProfileMissingAge(t *testing.T) {
	raw := rawBody(t, `{"weight_kg": 8}`)
	_, err := NormalizeProfileInput(raw)
	var vErr *ProfileValidationError
	if !errors.As(err, &vErr) || vErr.Field != "age_months" {
		t.Fatalf("want missing-age validation error, got=%v", err)
	}
}

func TestNormalizeProfileRejectsNonPositiveNumbers(t *testing.T) {
	raw := rawBody(t, `{"age_months": 8, "weight_kg": 0}`)
	_, err := NormalizeProfileInput(raw)
	var vErr *ProfileValidationError
	if !errors.As(err, &vErr) || vErr.Field != "weight_kg" {
		t.Fatalf("want weight validation error, got=%v", err)
	}
}

func TestNormalizeProfileNumericString(t *testing.T) {
	raw := rawBody(t, `{"umur_bulan": "8", "berat_badan": "8.5"}`)
	p, err := NormalizeProfileInput(raw)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if p.AgeMonths != 8 || p.WeightKg != 8.5 {
		t.Fatalf("got=%+v", p)
	}
}

func TestNormalizeProfileAllergyString(t *testing.T) {
	raw := rawBody(t, `{"age_months": 8, "alergi": "kacang, udang"}`)
	p, err := NormalizeProfileInput(raw)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if len(p.Allergies) != 2 || p.Allergies[1] != "udang" {
		t.Fatalf("allergies: got=%v", p.Allergies)
	}
}

func TestRuleChunkCoversAge(t *testing.T) {
	c := RuleChunk{AgeStart: 6, AgeEnd: 8}
	for age, want := range map[int]bool{5: false, 6: true, 8: true, 9: false} {
		if got := c.CoversAge(age); got != want {
			t.Fatalf("age=%d: want=%v got=%v", age, want, got)
		}
	}
}
