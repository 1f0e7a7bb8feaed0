package composition

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/nutribunda/mpasi-backend/internal/platform/logger"
)

// Food is one composition-table entry. Nutrient values are per 100 g of the
// edible portion.
type Food struct {
	Code       string
	Name       string
	EnergyKcal float64
	ProteinG   float64
	FatG       float64
	CarbsG     float64
	IronMg     float64
	CalciumMg  float64
	BDDPercent float64
}

// Table is the read-only food-composition lookup keyed by food code. It is
// loaded once at startup and shared across requests; never mutated after load.
type Table struct {
	byCode map[string]Food
	raw    []byte
}

// compactEntry mirrors the preprocessed table's line format: one minified
// JSON object per line, all values serialized as strings.
type compactEntry struct {
	Code       string `json:"code"`
	Name       string `json:"name"`
	Kcal       string `json:"kcal"`
	ProtG      string `json:"prot_g"`
	FatG       string `json:"fat_g"`
	CarbG      string `json:"carb_g"`
	IronMg     string `json:"iron_mg"`
	CalcMg     string `json:"calc_mg"`
	BDDPercent string `json:"bdd_percent"`
}

// Load reads a compact composition file. A missing or empty table is a hard
// failure: no nutrition number can be grounded without it.
func Load(log *logger.Logger, path string) (*Table, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read composition table at %s: %w", path, err)
	}

	t := &Table{byCode: make(map[string]Food), raw: raw}

	scanner := bufio.NewScanner(strings.NewReader(string(raw)))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	skipped := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var entry compactEntry
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			skipped++
			log.Warn("Skipping malformed composition line", "line", lineNo, "error", err)
			continue
		}
		code := strings.ToUpper(strings.TrimSpace(entry.Code))
		if code == "" || strings.TrimSpace(entry.Name) == "" {
			skipped++
			continue
		}
		t.byCode[code] = Food{
			Code:       code,
			Name:       strings.TrimSpace(entry.Name),
			EnergyKcal: parseNum(entry.Kcal),
			ProteinG:   parseNum(entry.ProtG),
			FatG:       parseNum(entry.FatG),
			CarbsG:     parseNum(entry.CarbG),
			IronMg:     parseNum(entry.IronMg),
			CalciumMg:  parseNum(entry.CalcMg),
			BDDPercent: parseNum(entry.BDDPercent),
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan composition table: %w", err)
	}
	if len(t.byCode) == 0 {
		return nil, fmt.Errorf("composition table at %s has no usable entries", path)
	}

	log.Info("Composition table loaded", "path", path, "foods", len(t.byCode), "skipped", skipped)
	return t, nil
}

func parseNum(s string) float64 {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

// Lookup resolves a food code; codes are case-insensitive.
func (t *Table) Lookup(code string) (Food, bool) {
	f, ok := t.byCode[strings.ToUpper(strings.TrimSpace(code))]
	return f, ok
}

func (t *Table) Len() int { return len(t.byCode) }

// Raw returns the file bytes as loaded, for uploading the same table through
// the attachment channel.
func (t *Table) Raw() []byte { return t.raw }
