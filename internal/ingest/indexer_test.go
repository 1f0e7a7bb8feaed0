package ingest

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/nutribunda/mpasi-backend/internal/platform/logger"
	"github.com/nutribunda/mpasi-backend/internal/platform/qdrant"
	"github.com/nutribunda/mpasi-backend/internal/types"
)

type fakeEmbedder struct {
	mu    sync.Mutex
	calls int
}

func (f *fakeEmbedder) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	out := make([][]float32, len(inputs))
	for i := range inputs {
		out[i] = []float32{float32(len(inputs[i])), 1}
	}
	return out, nil
}

type fakeVectorStore struct {
	count    int
	upserted []qdrant.Vector
	cleared  bool
}

func (f *fakeVectorStore) Upsert(ctx context.Context, vectors []qdrant.Vector) error {
	f.upserted = append(f.upserted, vectors...)
	return nil
}

func (f *fakeVectorStore) QueryMatches(ctx context.Context, q []float32, topK int) ([]qdrant.VectorMatch, error) {
	return nil, nil
}

func (f *fakeVectorStore) Count(ctx context.Context) (int, error) { return f.count, nil }

func (f *fakeVectorStore) DeleteAll(ctx context.Context) error {
	f.cleared = true
	f.count = 0
	return nil
}

type fakeCatalog struct {
	rows    []types.RuleChunk
	cleared bool
}

func (f *fakeCatalog) InsertChunks(chunks []types.RuleChunk) error {
	f.rows = append(f.rows, chunks...)
	return nil
}

func (f *fakeCatalog) CountChunks() (int64, error) { return int64(len(f.rows)), nil }

func (f *fakeCatalog) DeleteAllChunks() error {
	f.cleared = true
	f.rows = nil
	return nil
}

func TestBuildWritesCatalogAndVectors(t *testing.T) {
	embed := &fakeEmbedder{}
	vectors := &fakeVectorStore{}
	catalog := &fakeCatalog{}
	ix := NewIndexer(logger.NewNop(), embed, vectors, catalog)

	docs := []types.ChunkDocument{
		{SourceFile: "aturan.json", Text: strings.Repeat("aturan mpasi ", 100), AgeStart: 6, AgeEnd: 8},
		{SourceFile: "panduan.md", Text: "panduan singkat", AgeStart: 0, AgeEnd: 24},
	}

	result, err := ix.Build(context.Background(), docs, BuildOptions{ChunkSize: 500, ChunkOverlap: 50})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if result.Documents != 2 {
		t.Fatalf("documents: want=2 got=%d", result.Documents)
	}
	if result.Chunks != len(catalog.rows) {
		t.Fatalf("chunks: result=%d catalog=%d", result.Chunks, len(catalog.rows))
	}
	if len(vectors.upserted) != len(catalog.rows) {
		t.Fatalf("vector/catalog mismatch: vectors=%d rows=%d", len(vectors.upserted), len(catalog.rows))
	}

	// Vector IDs must match catalog row IDs pairwise.
	for i, row := range catalog.rows {
		if vectors.upserted[i].ID != row.ID.String() {
			t.Fatalf("id mismatch at %d: vector=%s row=%s", i, vectors.upserted[i].ID, row.ID)
		}
		if vectors.upserted[i].Metadata["age_start"] != row.AgeStart {
			t.Fatalf("metadata age_start mismatch at %d", i)
		}
	}
}

func TestBuildDeterministicChunkIDs(t *testing.T) {
	docs := []types.ChunkDocument{
		{SourceFile: "aturan.json", Text: "tekstur lumat untuk 6-8 bulan", AgeStart: 6, AgeEnd: 8},
	}

	first := &fakeCatalog{}
	ix1 := NewIndexer(logger.NewNop(), &fakeEmbedder{}, &fakeVectorStore{}, first)
	if _, err := ix1.Build(context.Background(), docs, BuildOptions{}); err != nil {
		t.Fatalf("build: %v", err)
	}

	second := &fakeCatalog{}
	ix2 := NewIndexer(logger.NewNop(), &fakeEmbedder{}, &fakeVectorStore{}, second)
	if _, err := ix2.Build(context.Background(), docs, BuildOptions{}); err != nil {
		t.Fatalf("rebuild: %v", err)
	}

	if first.rows[0].ID != second.rows[0].ID {
		t.Fatalf("chunk IDs not deterministic: %s vs %s", first.rows[0].ID, second.rows[0].ID)
	}
}

func TestBuildRefusesNonEmptyStore(t *testing.T) {
	vectors := &fakeVectorStore{count: 12}
	ix := NewIndexer(logger.NewNop(), &fakeEmbedder{}, vectors, &fakeCatalog{})

	docs := []types.ChunkDocument{{SourceFile: "a.json", Text: "x", AgeEnd: 24}}
	_, err := ix.Build(context.Background(), docs, BuildOptions{})
	if !errors.Is(err, ErrStoreNotEmpty) {
		t.Fatalf("want ErrStoreNotEmpty, got=%v", err)
	}
	if vectors.cleared {
		t.Fatalf("store cleared without rebuild flag")
	}
}

func TestBuildRebuildClearsBothStores(t *testing.T) {
	vectors := &fakeVectorStore{count: 12}
	catalog := &fakeCatalog{rows: []types.RuleChunk{{SourceFile: "stale.json"}}}
	ix := NewIndexer(logger.NewNop(), &fakeEmbedder{}, vectors, catalog)

	docs := []types.ChunkDocument{{SourceFile: "a.json", Text: "tekstur lumat", AgeEnd: 24}}
	if _, err := ix.Build(context.Background(), docs, BuildOptions{Rebuild: true}); err != nil {
		t.Fatalf("build: %v", err)
	}
	if !vectors.cleared || !catalog.cleared {
		t.Fatalf("stores not cleared: vectors=%v catalog=%v", vectors.cleared, catalog.cleared)
	}
	if len(catalog.rows) != 1 {
		t.Fatalf("rows after rebuild: want=1 got=%d", len(catalog.rows))
	}
}

func TestBuildBatchesEmbedding(t *testing.T) {
	embed := &fakeEmbedder{}
	ix := NewIndexer(logger.NewNop(), embed, &fakeVectorStore{}, &fakeCatalog{})

	// 150 single-chunk documents forces more than one batch of 64.
	docs := make([]types.ChunkDocument, 150)
	for i := range docs {
		docs[i] = types.ChunkDocument{
			SourceFile: "bulk.json",
			Text:       strings.Repeat("x", 10) + strings.Repeat("y", i%7),
			AgeEnd:     24,
		}
	}

	if _, err := ix.Build(context.Background(), docs, BuildOptions{}); err != nil {
		t.Fatalf("build: %v", err)
	}
	if embed.calls < 3 {
		t.Fatalf("embed batches: want>=3 got=%d", embed.calls)
	}
}
