package nutrition

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/nutribunda/mpasi-backend/internal/composition"
	"github.com/nutribunda/mpasi-backend/internal/platform/logger"
	"github.com/nutribunda/mpasi-backend/internal/types"
)

func testTable(t *testing.T) *composition.Table {
	t.Helper()
	path := filepath.Join(t.TempDir(), "compact.txt")
	content := `{"code":"AR001","name":"Beras putih","kcal":"360","prot_g":"6.8","fat_g":"0.7","carb_g":"78.9"}
{"code":"AY001","name":"Ayam dada","kcal":"151","prot_g":"21.5","fat_g":"6.2","carb_g":"0"}
{"code":"BH001","name":"Pisang matang","kcal":"92","prot_g":"1.0","fat_g":"0.5","carb_g":"23.4"}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write table: %v", err)
	}
	table, err := composition.Load(logger.NewNop(), path)
	if err != nil {
		t.Fatalf("load table: %v", err)
	}
	return table
}

func TestRecomputeOverridesModelNumbers(t *testing.T) {
	r := NewRecalculator(logger.NewNop(), testTable(t))

	plan := &types.DailyPlan{
		Breakfast: &types.Meal{
			Ingredients: []string{"Beras putih (AR001, 50g)"},
			// Model-supplied numbers must not survive.
			Nutrition: types.MacroTotals{EnergyKcal: 999, ProteinG: 999},
		},
	}
	r.Recompute(plan)

	want := types.MacroTotals{EnergyKcal: 180, ProteinG: 3.4, CarbsG: 39.5, FatG: 0.4}
	if plan.Breakfast.Nutrition != want {
		t.Fatalf("breakfast nutrition: want=%+v got=%+v", want, plan.Breakfast.Nutrition)
	}
	if plan.DailySummary.TotalEnergyKcal != 180 {
		t.Fatalf("daily energy: want=180 got=%v", plan.DailySummary.TotalEnergyKcal)
	}
}

func TestRecomputeSkipsUnresolvableIngredients(t *testing.T) {
	r := NewRecalculator(logger.NewNop(), testTable(t))

	plan := &types.DailyPlan{
		Lunch: &types.Meal{
			Ingredients: []string{
				"Ayam dada (AY001, 30g)",
				"Garam secukupnya",           // no code
				"Keju parut (KJ999, 10g)",    // code not in table
				"Tahu putih (TH001, banyak)", // no numeric amount
			},
		},
	}
	r.Recompute(plan)

	// Only the chicken contributes: 151 * 0.3 = 45.3 kcal.
	if plan.Lunch.Nutrition.EnergyKcal != 45.3 {
		t.Fatalf("energy: want=45.3 got=%v", plan.Lunch.Nutrition.EnergyKcal)
	}
	if plan.Lunch.Nutrition.ProteinG != 6.5 {
		t.Fatalf("protein: want=6.5 got=%v", plan.Lunch.Nutrition.ProteinG)
	}
}

func TestRecomputeDailySummarySumsSlots(t *testing.T) {
	r := NewRecalculator(logger.NewNop(), testTable(t))

	plan := &types.DailyPlan{
		Breakfast:    &types.Meal{Ingredients: []string{"Beras putih (AR001, 50g)"}},
		MorningSnack: &types.Meal{Ingredients: []string{"Pisang matang (BH001, 50g)"}},
		Dinner:       &types.Meal{Ingredients: []string{"Ayam dada (AY001, 30g)"}},
	}
	r.Recompute(plan)

	gotSum := plan.Breakfast.Nutrition.EnergyKcal +
		plan.MorningSnack.Nutrition.EnergyKcal +
		plan.Dinner.Nutrition.EnergyKcal
	diff := plan.DailySummary.TotalEnergyKcal - gotSum
	if diff > 0.1 || diff < -0.1 {
		t.Fatalf("daily energy: want=%v got=%v", gotSum, plan.DailySummary.TotalEnergyKcal)
	}
}

func TestRecomputeIsIdempotent(t *testing.T) {
	r := NewRecalculator(logger.NewNop(), testTable(t))

	plan := &types.DailyPlan{
		Breakfast: &types.Meal{Ingredients: []string{"Beras putih (AR001, 50g)"}},
		Lunch:     &types.Meal{Ingredients: []string{"Ayam dada (AY001, 30g)", "Pisang matang (BH001, 20g)"}},
	}
	r.Recompute(plan)
	first, err := json.Marshal(plan)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	r.Recompute(plan)
	second, err := json.Marshal(plan)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(first) != string(second) {
		t.Fatalf("recompute not idempotent:\nfirst=%s\nsecond=%s", first, second)
	}
}
