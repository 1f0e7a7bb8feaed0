package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"

	"github.com/nutribunda/mpasi-backend/internal/platform/logger"
	"github.com/nutribunda/mpasi-backend/internal/platform/qdrant"
	"github.com/nutribunda/mpasi-backend/internal/types"
)

// ErrStoreNotEmpty is returned when a build targets a store that already has
// vectors; the caller either clears first or passes Rebuild.
var ErrStoreNotEmpty = errors.New("vector store already contains an index; rebuild required")

const (
	embedBatchSize   = 64
	embedConcurrency = 4
)

// chunkIDNamespace seeds deterministic chunk IDs so re-indexing identical
// content yields identical IDs in both stores.
var chunkIDNamespace = uuid.MustParse("9f2d1c3a-5b68-4e0f-9a47-38c2d4f1a6e5")

type Embedder interface {
	Embed(ctx context.Context, inputs []string) ([][]float32, error)
}

type ChunkCatalog interface {
	InsertChunks(chunks []types.RuleChunk) error
	CountChunks() (int64, error)
	DeleteAllChunks() error
}

type Indexer struct {
	log     *logger.Logger
	embed   Embedder
	vectors qdrant.VectorStore
	catalog ChunkCatalog
}

func NewIndexer(log *logger.Logger, embed Embedder, vectors qdrant.VectorStore, catalog ChunkCatalog) *Indexer {
	return &Indexer{
		log:     log.With("service", "ChunkIndexer"),
		embed:   embed,
		vectors: vectors,
		catalog: catalog,
	}
}

type BuildOptions struct {
	// Rebuild clears both stores before indexing instead of refusing a
	// non-empty target.
	Rebuild      bool
	ChunkSize    int
	ChunkOverlap int
}

type BuildResult struct {
	Documents int
	Chunks    int
}

// Build chunks the documents, embeds them in batches, and writes catalog rows
// and vectors under shared chunk IDs.
func (ix *Indexer) Build(ctx context.Context, docs []types.ChunkDocument, opts BuildOptions) (BuildResult, error) {
	existing, err := ix.vectors.Count(ctx)
	if err != nil {
		return BuildResult{}, fmt.Errorf("failed to inspect vector store: %w", err)
	}
	if existing > 0 {
		if !opts.Rebuild {
			return BuildResult{}, ErrStoreNotEmpty
		}
		ix.log.Info("Clearing existing index", "vectors", existing)
		if err := ix.vectors.DeleteAll(ctx); err != nil {
			return BuildResult{}, fmt.Errorf("failed to clear vector store: %w", err)
		}
		if err := ix.catalog.DeleteAllChunks(); err != nil {
			return BuildResult{}, fmt.Errorf("failed to clear chunk catalog: %w", err)
		}
	} else if opts.Rebuild {
		if err := ix.catalog.DeleteAllChunks(); err != nil {
			return BuildResult{}, fmt.Errorf("failed to clear chunk catalog: %w", err)
		}
	}

	chunkSize := opts.ChunkSize
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	overlap := opts.ChunkOverlap
	if overlap < 0 {
		overlap = DefaultChunkOverlap
	}

	now := time.Now()
	var rows []types.RuleChunk
	for _, doc := range docs {
		for i, part := range SplitIntoChunks(doc.Text, chunkSize, overlap) {
			id := uuid.NewSHA1(chunkIDNamespace, []byte(fmt.Sprintf("%s|%d|%s", doc.SourceFile, i, part)))
			rows = append(rows, types.RuleChunk{
				ID:         id,
				SourceFile: doc.SourceFile,
				ChunkIndex: i,
				Text:       part,
				AgeStart:   doc.AgeStart,
				AgeEnd:     doc.AgeEnd,
				Metadata:   metadataJSON(doc.Metadata),
				CreatedAt:  now,
				UpdatedAt:  now,
			})
		}
	}
	if len(rows) == 0 {
		return BuildResult{}, fmt.Errorf("no chunks produced from %d documents", len(docs))
	}

	vectors, err := ix.embedChunks(ctx, rows)
	if err != nil {
		return BuildResult{}, err
	}

	if err := ix.catalog.InsertChunks(rows); err != nil {
		return BuildResult{}, err
	}
	if err := ix.vectors.Upsert(ctx, vectors); err != nil {
		return BuildResult{}, fmt.Errorf("failed to upsert vectors: %w", err)
	}

	ix.log.Info("Index built", "documents", len(docs), "chunks", len(rows))
	return BuildResult{Documents: len(docs), Chunks: len(rows)}, nil
}

// embedChunks runs embedding batches with bounded concurrency; vector order
// matches row order.
func (ix *Indexer) embedChunks(ctx context.Context, rows []types.RuleChunk) ([]qdrant.Vector, error) {
	out := make([]qdrant.Vector, len(rows))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(embedConcurrency)

	for start := 0; start < len(rows); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(rows) {
			end = len(rows)
		}
		batch := rows[start:end]
		offset := start

		g.Go(func() error {
			inputs := make([]string, len(batch))
			for i, row := range batch {
				inputs[i] = row.Text
			}
			embedded, err := ix.embed.Embed(gctx, inputs)
			if err != nil {
				return fmt.Errorf("failed to embed batch at %d: %w", offset, err)
			}
			if len(embedded) != len(batch) {
				return fmt.Errorf("embedding count mismatch at %d: want=%d got=%d", offset, len(batch), len(embedded))
			}

			mu.Lock()
			defer mu.Unlock()
			for i, row := range batch {
				out[offset+i] = qdrant.Vector{
					ID:     row.ID.String(),
					Values: embedded[i],
					Metadata: map[string]any{
						"source_file": row.SourceFile,
						"age_start":   row.AgeStart,
						"age_end":     row.AgeEnd,
					},
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func metadataJSON(meta map[string]string) datatypes.JSON {
	if len(meta) == 0 {
		return nil
	}
	raw, err := json.Marshal(meta)
	if err != nil {
		return nil
	}
	return datatypes.JSON(raw)
}
