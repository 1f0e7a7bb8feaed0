package retrieval

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/nutribunda/mpasi-backend/internal/platform/logger"
	"github.com/nutribunda/mpasi-backend/internal/platform/qdrant"
	"github.com/nutribunda/mpasi-backend/internal/types"
)

const (
	DefaultTopK                = 10
	DefaultCandidateMultiplier = 4
)

type Embedder interface {
	Embed(ctx context.Context, inputs []string) ([][]float32, error)
	EmbedModel() string
}

type ChunkResolver interface {
	GetChunks(ids []uuid.UUID) (map[uuid.UUID]types.RuleChunk, error)
}

// Config tunes one search. The zero value means: default top-k, default
// over-fetch, age filtering and reranking on.
type Config struct {
	TopK                int
	CandidateMultiplier int
	DisableAgeFilter    bool
	DisableRerank       bool
}

func (c Config) topK() int {
	if c.TopK <= 0 {
		return DefaultTopK
	}
	return c.TopK
}

func (c Config) multiplier() int {
	if c.CandidateMultiplier <= 0 {
		return DefaultCandidateMultiplier
	}
	return c.CandidateMultiplier
}

// ScoredChunk pairs a chunk's text with its similarity score (normalized to
// higher-is-better by the vector store).
type ScoredChunk struct {
	Text  string  `json:"text"`
	Score float64 `json:"score"`
}

// Retriever answers rule queries against the chunk index. It never returns
// an error: retrieval failures degrade to one broad fallback query and then
// to an empty result, which callers treat as "no relevant rules found".
type Retriever struct {
	log     *logger.Logger
	embed   Embedder
	vectors qdrant.VectorStore
	catalog ChunkResolver
	cache   *EmbedCache
}

func NewRetriever(log *logger.Logger, embed Embedder, vectors qdrant.VectorStore, catalog ChunkResolver, cache *EmbedCache) *Retriever {
	return &Retriever{
		log:     log.With("service", "Retriever"),
		embed:   embed,
		vectors: vectors,
		catalog: catalog,
		cache:   cache,
	}
}

// ExpandQuery splits a planning intent into focused sub-queries scoped to the
// age: macro targets and texture/portion rules live in different chunks, and
// one broad query under-retrieves one or the other. Without an age the query
// passes through unexpanded.
func ExpandQuery(query string, ageMonths int) []string {
	if ageMonths <= 0 {
		return []string{query}
	}
	return []string{
		fmt.Sprintf("AKG angka kecukupan gizi energi protein untuk bayi usia %d bulan", ageMonths),
		fmt.Sprintf("aturan MPASI tekstur porsi frekuensi makan untuk usia %d bulan", ageMonths),
	}
}

// Search returns the top chunks for a query, most relevant first.
func (r *Retriever) Search(ctx context.Context, query string, ageMonths int, cfg Config) []string {
	scored := r.SearchWithScores(ctx, query, ageMonths, cfg)
	out := make([]string, len(scored))
	for i, s := range scored {
		out[i] = s.Text
	}
	return out
}

// SearchWithScores is Search keeping similarity scores, for retrieval
// debugging endpoints. After an optional lexical rerank the scores still
// report vector similarity; only the order changes.
func (r *Retriever) SearchWithScores(ctx context.Context, query string, ageMonths int, cfg Config) []ScoredChunk {
	merged := r.collect(ctx, ExpandQuery(query, ageMonths), ageMonths, cfg)

	if len(merged) == 0 {
		// One broad fallback before giving up; an unavailable index must
		// surface as an empty rule-set, not an error.
		r.log.Warn("Primary retrieval empty, trying broad fallback", "query", query)
		merged = r.collect(ctx, []string{"aturan MPASI dan AKG bayi"}, 0, cfg)
	}

	if !cfg.DisableRerank && len(merged) > 1 {
		texts := make([]string, len(merged))
		byText := make(map[string]ScoredChunk, len(merged))
		for i, s := range merged {
			texts[i] = s.Text
			byText[s.Text] = s
		}
		reranked := rerank(query, texts)
		merged = merged[:0]
		for _, text := range reranked {
			merged = append(merged, byText[text])
		}
	}

	if len(merged) > cfg.topK() {
		merged = merged[:cfg.topK()]
	}
	return merged
}

// collect runs every sub-query, age-filters in memory, and merges pools with
// exact-text dedupe keeping the best score.
func (r *Retriever) collect(ctx context.Context, subQueries []string, ageMonths int, cfg Config) []ScoredChunk {
	fetch := cfg.topK() * cfg.multiplier()

	best := make(map[string]float64)
	order := make([]string, 0, fetch)

	for _, q := range subQueries {
		vec := r.embedQuery(ctx, q)
		if vec == nil {
			continue
		}

		matches, err := r.vectors.QueryMatches(ctx, vec, fetch)
		if err != nil {
			r.log.Warn("Vector query failed", "query", q, "error", err)
			continue
		}

		for _, chunk := range r.resolve(matches, ageMonths, cfg) {
			if prev, seen := best[chunk.Text]; seen {
				if chunk.Score > prev {
					best[chunk.Text] = chunk.Score
				}
				continue
			}
			best[chunk.Text] = chunk.Score
			order = append(order, chunk.Text)
		}
	}

	out := make([]ScoredChunk, 0, len(order))
	for _, text := range order {
		out = append(out, ScoredChunk{Text: text, Score: best[text]})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	return out
}

// resolve maps vector matches to catalog chunks, dropping stale IDs and, when
// age filtering applies, chunks whose window excludes the age. The filter
// runs in memory: a store-level filter over sparse metadata would silently
// zero out results.
func (r *Retriever) resolve(matches []qdrant.VectorMatch, ageMonths int, cfg Config) []ScoredChunk {
	if len(matches) == 0 {
		return nil
	}

	ids := make([]uuid.UUID, 0, len(matches))
	for _, m := range matches {
		id, err := uuid.Parse(m.ID)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}

	rows, err := r.catalog.GetChunks(ids)
	if err != nil {
		r.log.Warn("Catalog resolve failed", "ids", len(ids), "error", err)
		return nil
	}

	out := make([]ScoredChunk, 0, len(matches))
	for _, m := range matches {
		id, err := uuid.Parse(m.ID)
		if err != nil {
			continue
		}
		row, found := rows[id]
		if !found {
			r.log.Warn("Vector without catalog row, skipping", "id", m.ID)
			continue
		}
		if !cfg.DisableAgeFilter && ageMonths > 0 && !row.CoversAge(ageMonths) {
			continue
		}
		text := strings.TrimSpace(row.Text)
		if text == "" {
			continue
		}
		out = append(out, ScoredChunk{Text: text, Score: m.Score})
	}
	return out
}

func (r *Retriever) embedQuery(ctx context.Context, query string) []float32 {
	if vec := r.cache.Get(ctx, r.embed.EmbedModel(), query); vec != nil {
		return vec
	}
	vecs, err := r.embed.Embed(ctx, []string{query})
	if err != nil || len(vecs) == 0 {
		r.log.Warn("Query embedding failed", "query", query, "error", err)
		return nil
	}
	r.cache.Put(ctx, r.embed.EmbedModel(), query, vecs[0])
	return vecs[0]
}
