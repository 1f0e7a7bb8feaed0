package nutrition

import (
	"regexp"
	"strconv"
	"strings"
)

// ParsedIngredient is the (code, grams) pair resolved from an ingredient
// string such as "Beras putih (AR001, 50g)".
type ParsedIngredient struct {
	Code  string
	Grams float64
}

var (
	foodCodeRe     = regexp.MustCompile(`\b([A-Za-z]{2}[0-9]{3,})\b`)
	numericTokenRe = regexp.MustCompile(`[0-9]+(?:[.,][0-9]+)?`)
)

// ParseIngredient resolves a food code and a gram amount from one ingredient
// string. Resolution rules:
//   - the code lives in a parenthesized group matching 2 letters + >=3 digits;
//   - that group splits on its first comma into code part and quantity part;
//   - the amount is the LAST numeric token of the quantity part, so a trailing
//     explicit figure wins over a leading unit count ("3 sdm atau 45g" -> 45);
//   - ml is treated as g 1:1, and so is any missing or unrecognized unit.
//
// Returns ok=false when either the code or the amount cannot be resolved.
func ParseIngredient(s string) (ParsedIngredient, bool) {
	for _, group := range parenGroups(s) {
		code := foodCodeRe.FindString(group)
		if code == "" {
			continue
		}

		quantity := ""
		if idx := strings.Index(group, ","); idx >= 0 {
			quantity = group[idx+1:]
		}

		tokens := numericTokenRe.FindAllString(quantity, -1)
		if len(tokens) == 0 {
			return ParsedIngredient{}, false
		}
		last := strings.ReplaceAll(tokens[len(tokens)-1], ",", ".")
		grams, err := strconv.ParseFloat(last, 64)
		if err != nil || grams < 0 {
			return ParsedIngredient{}, false
		}

		return ParsedIngredient{Code: strings.ToUpper(code), Grams: grams}, true
	}
	return ParsedIngredient{}, false
}

// parenGroups returns the content of every balanced parenthesized group,
// innermost first. "Ikan (segar (IK001, 30g))" yields "IK001, 30g" and then
// "segar (IK001, 30g)".
func parenGroups(s string) []string {
	var groups []string
	var stack []int
	runes := []rune(s)
	for i, r := range runes {
		switch r {
		case '(':
			stack = append(stack, i)
		case ')':
			if len(stack) == 0 {
				continue
			}
			open := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			groups = append(groups, string(runes[open+1:i]))
		}
	}
	return groups
}
