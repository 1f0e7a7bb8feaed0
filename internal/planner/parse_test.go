package planner

import (
	"errors"
	"testing"
)

func TestParsePlanResponsePlainObject(t *testing.T) {
	plan, err := ParsePlanResponse(`{
		"breakfast": {
			"time": "06:00-07:00",
			"menu_name": "Bubur ayam wortel",
			"ingredients": ["Beras putih (AR001, 50g)"],
			"nutrition": {"energy_kcal": 145}
		},
		"daily_summary": {"total_energy_kcal": 145}
	}`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if plan.Breakfast == nil || plan.Breakfast.MenuName != "Bubur ayam wortel" {
		t.Fatalf("breakfast: got=%+v", plan.Breakfast)
	}
	if len(plan.Breakfast.Ingredients) != 1 {
		t.Fatalf("ingredients: got=%v", plan.Breakfast.Ingredients)
	}
}

func TestParsePlanResponseStripsFences(t *testing.T) {
	plan, err := ParsePlanResponse("```json\n{\"lunch\": {\"menu_name\": \"Nasi tim ikan\"}}\n```")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if plan.Lunch == nil || plan.Lunch.MenuName != "Nasi tim ikan" {
		t.Fatalf("lunch: got=%+v", plan.Lunch)
	}
}

func TestParsePlanResponseUnwrapsSingleElementArray(t *testing.T) {
	plan, err := ParsePlanResponse(`[{"dinner": {"menu_name": "Puree labu"}}]`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if plan.Dinner == nil || plan.Dinner.MenuName != "Puree labu" {
		t.Fatalf("dinner: got=%+v", plan.Dinner)
	}
}

func TestParsePlanResponseWrapsNonObjectPayload(t *testing.T) {
	// A multi-element array is valid JSON but not a plan object; it is
	// kept under an envelope rather than rejected, yielding an empty plan.
	plan, err := ParsePlanResponse(`[1, 2, 3]`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if plan.Breakfast != nil || plan.Dinner != nil {
		t.Fatalf("plan should be empty: %+v", plan)
	}
}

func TestParsePlanResponseInvalidJSON(t *testing.T) {
	_, err := ParsePlanResponse("maaf, saya tidak bisa membuat menu")
	var pErr *ParseError
	if !errors.As(err, &pErr) {
		t.Fatalf("want ParseError, got=%v", err)
	}
	if pErr.Raw == "" {
		t.Fatalf("raw text not captured")
	}
}

func TestStripCodeFences(t *testing.T) {
	cases := []struct{ in, want string }{
		{"{\"a\":1}", `{"a":1}`},
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{"```\n{\"a\":1}\n```", `{"a":1}`},
		{"  ```json\n{\"a\":1}\n```  ", `{"a":1}`},
	}
	for _, tc := range cases {
		if got := StripCodeFences(tc.in); got != tc.want {
			t.Fatalf("%q: want=%q got=%q", tc.in, tc.want, got)
		}
	}
}
