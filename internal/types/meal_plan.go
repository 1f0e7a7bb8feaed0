package types

// MacroTotals carries the four tracked macronutrients. Values are recomputed
// from the composition table after generation; model-reported numbers never
// survive into a returned plan.
type MacroTotals struct {
	EnergyKcal float64 `json:"energy_kcal"`
	ProteinG   float64 `json:"protein_g"`
	CarbsG     float64 `json:"carbs_g"`
	FatG       float64 `json:"fat_g"`
}

// Meal is one slot of the daily plan. Ingredients are strings of the form
// "Name (CODE, 50g)" so the composition lookup can resolve them.
type Meal struct {
	Time         string      `json:"time"`
	MenuName     string      `json:"menu_name"`
	Ingredients  []string    `json:"ingredients"`
	Portion      string      `json:"portion,omitempty"`
	Instructions []string    `json:"instructions,omitempty"`
	Nutrition    MacroTotals `json:"nutrition"`
}

type DailySummary struct {
	TotalEnergyKcal float64 `json:"total_energy_kcal"`
	TotalProteinG   float64 `json:"total_protein_g"`
	TotalCarbsG     float64 `json:"total_carbs_g"`
	TotalFatG       float64 `json:"total_fat_g"`
	AKGRequirement  string  `json:"akg_requirement,omitempty"`
	AKGCompliance   string  `json:"akg_compliance,omitempty"`
}

// DailyPlan is the generated one-day menu. Slots may be nil when the model
// omitted one; consumers iterate via Slots.
type DailyPlan struct {
	Breakfast      *Meal        `json:"breakfast,omitempty"`
	MorningSnack   *Meal        `json:"morning_snack,omitempty"`
	Lunch          *Meal        `json:"lunch,omitempty"`
	AfternoonSnack *Meal        `json:"afternoon_snack,omitempty"`
	Dinner         *Meal        `json:"dinner,omitempty"`
	DailySummary   DailySummary `json:"daily_summary"`
	Recommendation string       `json:"recommendation,omitempty"`
}

type PlanSlot struct {
	Name string
	Meal *Meal
}

// Slots returns the fixed slot order with whatever meals are present.
func (p *DailyPlan) Slots() []PlanSlot {
	return []PlanSlot{
		{Name: "breakfast", Meal: p.Breakfast},
		{Name: "morning_snack", Meal: p.MorningSnack},
		{Name: "lunch", Meal: p.Lunch},
		{Name: "afternoon_snack", Meal: p.AfternoonSnack},
		{Name: "dinner", Meal: p.Dinner},
	}
}

// RAGInfo reports how a plan was produced, for client-side diagnostics.
type RAGInfo struct {
	DocumentsRetrieved int    `json:"documents_retrieved"`
	RetrievalSource    string `json:"retrieval_source"`
	GenerationModel    string `json:"generation_model"`
	SearchQuery        string `json:"search_query,omitempty"`
	BabyAge            int    `json:"baby_age"`
}

// MenuPlanResult is the planner's response envelope. Status is "success" or
// "error"; on error Message explains and RawResponse carries whatever text the
// model produced, so callers can debug malformed generations.
type MenuPlanResult struct {
	Status      string     `json:"status"`
	Data        *DailyPlan `json:"data,omitempty"`
	RAGInfo     *RAGInfo   `json:"rag_info,omitempty"`
	Message     string     `json:"message,omitempty"`
	RawResponse string     `json:"raw_response,omitempty"`
}

// NutritionRequirements is the daily AKG target set for an age group.
type NutritionRequirements struct {
	EnergyKcal    float64 `json:"energi_kkal"`
	ProteinG      float64 `json:"protein_g"`
	FatG          float64 `json:"lemak_g"`
	CarbsG        float64 `json:"karbohidrat_g"`
	CalciumMg     float64 `json:"kalsium_mg"`
	Source        string  `json:"source"`
	FromRetrieval bool    `json:"from_retrieval"`
}
