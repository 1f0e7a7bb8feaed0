package nutrition

import (
	"math"

	"github.com/nutribunda/mpasi-backend/internal/composition"
	"github.com/nutribunda/mpasi-backend/internal/platform/logger"
	"github.com/nutribunda/mpasi-backend/internal/types"
)

// Recalculator replaces every nutrition number in a generated plan with
// values computed from the composition table. Model-supplied numbers are
// placeholders and never trusted.
type Recalculator struct {
	log   *logger.Logger
	table *composition.Table
}

func NewRecalculator(log *logger.Logger, table *composition.Table) *Recalculator {
	return &Recalculator{
		log:   log.With("service", "NutritionRecalculator"),
		table: table,
	}
}

// Recompute rewrites the plan's per-meal nutrition and daily summary in
// place. Ingredients that cannot be parsed or whose code is absent from the
// table contribute zero and are logged; they never fail the plan. The result
// is a pure function of the plan's ingredient strings and the table.
func (r *Recalculator) Recompute(plan *types.DailyPlan) {
	if plan == nil {
		return
	}

	var total types.MacroTotals
	for _, slot := range plan.Slots() {
		if slot.Meal == nil {
			continue
		}
		slot.Meal.Nutrition = r.mealTotals(slot.Name, slot.Meal.Ingredients)
		total.EnergyKcal += slot.Meal.Nutrition.EnergyKcal
		total.ProteinG += slot.Meal.Nutrition.ProteinG
		total.CarbsG += slot.Meal.Nutrition.CarbsG
		total.FatG += slot.Meal.Nutrition.FatG
	}

	plan.DailySummary.TotalEnergyKcal = round1(total.EnergyKcal)
	plan.DailySummary.TotalProteinG = round1(total.ProteinG)
	plan.DailySummary.TotalCarbsG = round1(total.CarbsG)
	plan.DailySummary.TotalFatG = round1(total.FatG)
}

func (r *Recalculator) mealTotals(slot string, ingredients []string) types.MacroTotals {
	var sum types.MacroTotals
	for _, raw := range ingredients {
		parsed, ok := ParseIngredient(raw)
		if !ok {
			r.log.Warn("Skipping unparseable ingredient", "slot", slot, "ingredient", raw)
			continue
		}
		food, found := r.table.Lookup(parsed.Code)
		if !found {
			r.log.Warn("Ingredient code not in composition table",
				"slot", slot,
				"code", parsed.Code,
				"ingredient", raw,
			)
			continue
		}
		factor := parsed.Grams / 100
		sum.EnergyKcal += food.EnergyKcal * factor
		sum.ProteinG += food.ProteinG * factor
		sum.CarbsG += food.CarbsG * factor
		sum.FatG += food.FatG * factor
	}
	return types.MacroTotals{
		EnergyKcal: round1(sum.EnergyKcal),
		ProteinG:   round1(sum.ProteinG),
		CarbsG:     round1(sum.CarbsG),
		FatG:       round1(sum.FatG),
	}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
