package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/nutribunda/mpasi-backend/internal/retrieval"
	"github.com/nutribunda/mpasi-backend/internal/types"
)

// defaultRequirements are the fixed AKG fallback values for the MPASI age
// band, used whenever retrieval or extraction cannot produce grounded ones.
func defaultRequirements() types.NutritionRequirements {
	return types.NutritionRequirements{
		EnergyKcal:    725,
		ProteinG:      11,
		FatG:          25,
		CarbsG:        82,
		CalciumMg:     270,
		Source:        "AKG default",
		FromRetrieval: false,
	}
}

var jsonObjectRe = regexp.MustCompile(`\{[^{}]+\}`)

// GetNutritionRequirements resolves the daily AKG targets for an age by
// retrieving age-scoped rule chunks and asking the model to extract the five
// values as JSON. Every failure mode falls back to the fixed defaults; this
// call never errors.
func (s *Service) GetNutritionRequirements(ctx context.Context, ageMonths int) types.NutritionRequirements {
	query := fmt.Sprintf("kebutuhan gizi anak umur %d bulan", ageMonths)
	docs := s.rules.Search(ctx, query, ageMonths, retrieval.Config{TopK: 3})
	if len(docs) == 0 {
		return defaultRequirements()
	}

	prompt := fmt.Sprintf(`Berdasarkan data berikut, berikan kebutuhan gizi harian untuk anak umur %d bulan.

DATA:
%s

Berikan jawaban dalam format JSON dengan key: energi, protein, lemak, karbohidrat, kalsium.
Hanya berikan JSON tanpa penjelasan tambahan.`, ageMonths, strings.Join(docs, "\n"))

	genCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	raw, err := s.gen.GenerateJSON(genCtx, prompt, nil)
	if err != nil {
		s.log.Warn("Requirements extraction failed, using defaults", "error", err)
		return defaultRequirements()
	}

	cleaned := StripCodeFences(raw)
	match := jsonObjectRe.FindString(cleaned)
	if match == "" {
		match = cleaned
	}

	var extracted struct {
		Energi      float64 `json:"energi"`
		Protein     float64 `json:"protein"`
		Lemak       float64 `json:"lemak"`
		Karbohidrat float64 `json:"karbohidrat"`
		Kalsium     float64 `json:"kalsium"`
	}
	if err := json.Unmarshal([]byte(match), &extracted); err != nil || extracted.Energi <= 0 {
		s.log.Warn("Requirements response unusable, using defaults", "error", err)
		return defaultRequirements()
	}

	return types.NutritionRequirements{
		EnergyKcal:    extracted.Energi,
		ProteinG:      extracted.Protein,
		FatG:          extracted.Lemak,
		CarbsG:        extracted.Karbohidrat,
		CalciumMg:     extracted.Kalsium,
		Source:        "retrieved AKG rules",
		FromRetrieval: true,
	}
}
