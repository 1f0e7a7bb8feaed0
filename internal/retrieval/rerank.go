package retrieval

import (
	"sort"
	"strings"
)

// LexicalScore ranks a chunk against a query by token overlap: an exact
// phrase hit dominates, whole-word hits beat substring hits, and a per-word
// coverage bonus rewards chunks matching more of the query. Query words
// shorter than three characters are ignored.
func LexicalScore(query, chunk string) int {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return 0
	}
	text := strings.ToLower(chunk)

	score := 0
	if strings.Contains(text, q) {
		score += 100
	}

	textWords := strings.Fields(text)
	wordSet := make(map[string]struct{}, len(textWords))
	for _, w := range textWords {
		wordSet[w] = struct{}{}
	}

	matching := 0
	for _, w := range strings.Fields(q) {
		if len([]rune(w)) < 3 {
			continue
		}
		if _, ok := wordSet[w]; ok {
			score += 10
		} else if strings.Contains(text, w) {
			score += 5
		}
		if strings.Contains(text, w) {
			matching++
		}
	}
	score += matching * 2

	return score
}

// rerank sorts chunks descending by lexical score against the combined
// query; ties keep their vector-similarity order.
func rerank(query string, chunks []string) []string {
	type scored struct {
		text  string
		score int
	}
	items := make([]scored, len(chunks))
	for i, c := range chunks {
		items[i] = scored{text: c, score: LexicalScore(query, c)}
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].score > items[j].score
	})
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = item.text
	}
	return out
}
