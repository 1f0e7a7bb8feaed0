package types

import (
	"encoding/json"
	"fmt"
	"strings"
)

const (
	MinAgeMonths = 6
	MaxAgeMonths = 24
)

// BabyProfile is the validated planning input. Requests arrive with either
// Indonesian or English field names; NormalizeProfileInput folds both schemes
// into this struct.
type BabyProfile struct {
	AgeMonths int      `json:"age_months"`
	WeightKg  float64  `json:"weight_kg"`
	HeightCm  float64  `json:"height_cm"`
	Gender    string   `json:"gender,omitempty"`
	Residence string   `json:"residence,omitempty"`
	Allergies []string `json:"allergies,omitempty"`
}

type ProfileValidationError struct {
	Field   string
	Message string
}

func (e *ProfileValidationError) Error() string {
	return fmt.Sprintf("invalid profile field %s: %s", e.Field, e.Message)
}

// NormalizeProfileInput accepts a raw request body and resolves the dual key
// schemes (umur_bulan/age_months, berat_badan/weight_kg, tinggi_badan/height_cm,
// jenis_kelamin/gender, tempat_tinggal/residence, alergi/allergies). English
// keys win when both are present. Validation is a hard gate: nothing downstream
// runs on a rejected profile.
func NormalizeProfileInput(raw map[string]json.RawMessage) (BabyProfile, error) {
	var p BabyProfile

	age, ok, err := pickNumber(raw, "age_months", "umur_bulan")
	if err != nil {
		return p, err
	}
	if !ok {
		return p, &ProfileValidationError{Field: "age_months", Message: "required"}
	}
	if age != float64(int(age)) {
		return p, &ProfileValidationError{Field: "age_months", Message: "must be a whole number of months"}
	}
	p.AgeMonths = int(age)
	if p.AgeMonths < MinAgeMonths || p.AgeMonths > MaxAgeMonths {
		return p, &ProfileValidationError{
			Field:   "age_months",
			Message: fmt.Sprintf("must be between %d and %d months", MinAgeMonths, MaxAgeMonths),
		}
	}

	weight, ok, err := pickNumber(raw, "weight_kg", "berat_badan")
	if err != nil {
		return p, err
	}
	if ok {
		if weight <= 0 {
			return p, &ProfileValidationError{Field: "weight_kg", Message: "must be positive"}
		}
		p.WeightKg = weight
	}

	height, ok, err := pickNumber(raw, "height_cm", "tinggi_badan")
	if err != nil {
		return p, err
	}
	if ok {
		if height <= 0 {
			return p, &ProfileValidationError{Field: "height_cm", Message: "must be positive"}
		}
		p.HeightCm = height
	}

	p.Gender = pickString(raw, "gender", "jenis_kelamin")
	p.Residence = pickString(raw, "residence", "tempat_tinggal")

	allergies, err := pickStringSlice(raw, "allergies", "alergi")
	if err != nil {
		return p, err
	}
	p.Allergies = allergies

	return p, nil
}

func pickNumber(raw map[string]json.RawMessage, keys ...string) (float64, bool, error) {
	for _, key := range keys {
		msg, present := raw[key]
		if !present {
			continue
		}
		var v float64
		if err := json.Unmarshal(msg, &v); err != nil {
			// Tolerate numeric strings: the original frontend sent both.
			var s string
			if sErr := json.Unmarshal(msg, &s); sErr == nil {
				if _, fErr := fmt.Sscanf(strings.TrimSpace(s), "%g", &v); fErr == nil {
					return v, true, nil
				}
			}
			return 0, false, &ProfileValidationError{Field: key, Message: "must be a number"}
		}
		return v, true, nil
	}
	return 0, false, nil
}

func pickString(raw map[string]json.RawMessage, keys ...string) string {
	for _, key := range keys {
		msg, present := raw[key]
		if !present {
			continue
		}
		var s string
		if err := json.Unmarshal(msg, &s); err == nil {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

func pickStringSlice(raw map[string]json.RawMessage, keys ...string) ([]string, error) {
	for _, key := range keys {
		msg, present := raw[key]
		if !present {
			continue
		}
		var vals []string
		if err := json.Unmarshal(msg, &vals); err != nil {
			// A single comma-separated string also appears in the wild.
			var s string
			if sErr := json.Unmarshal(msg, &s); sErr != nil {
				return nil, &ProfileValidationError{Field: key, Message: "must be an array of strings"}
			}
			for _, part := range strings.Split(s, ",") {
				if trimmed := strings.TrimSpace(part); trimmed != "" {
					vals = append(vals, trimmed)
				}
			}
		}
		out := make([]string, 0, len(vals))
		for _, v := range vals {
			if trimmed := strings.TrimSpace(v); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		return out, nil
	}
	return nil, nil
}
