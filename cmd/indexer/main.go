package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/nutribunda/mpasi-backend/internal/db"
	"github.com/nutribunda/mpasi-backend/internal/ingest"
	"github.com/nutribunda/mpasi-backend/internal/platform/logger"
	"github.com/nutribunda/mpasi-backend/internal/platform/openai"
	"github.com/nutribunda/mpasi-backend/internal/platform/qdrant"
)

func main() {
	var datasetDir string
	var rebuild bool
	var chunkSize int
	var chunkOverlap int
	flag.StringVar(&datasetDir, "dataset", "dataset", "directory of guidance documents to index")
	flag.BoolVar(&rebuild, "rebuild", false, "clear the existing index before building")
	flag.IntVar(&chunkSize, "chunk-size", ingest.DefaultChunkSize, "chunk size in characters")
	flag.IntVar(&chunkOverlap, "chunk-overlap", ingest.DefaultChunkOverlap, "chunk overlap in characters")
	flag.Parse()

	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	qdrantCfg, err := qdrant.ResolveConfigFromEnv()
	if err != nil {
		log.Error("Could not resolve Qdrant config", "error", err)
		os.Exit(1)
	}
	vectors, err := qdrant.NewVectorStore(log, qdrantCfg)
	if err != nil {
		log.Error("Could not init Qdrant vector store", "error", err)
		os.Exit(1)
	}

	catalog, err := db.NewCatalogService(log)
	if err != nil {
		log.Error("Could not init chunk catalog", "error", err)
		os.Exit(1)
	}
	if err := catalog.AutoMigrateAll(); err != nil {
		log.Error("Catalog migration failed", "error", err)
		os.Exit(1)
	}

	embedder, err := openai.NewClient(log)
	if err != nil {
		log.Error("Could not init OpenAI client", "error", err)
		os.Exit(1)
	}

	docs, err := ingest.NewNormalizer(log).NormalizeDir(datasetDir)
	if err != nil {
		log.Error("Could not normalize dataset", "dir", datasetDir, "error", err)
		os.Exit(1)
	}
	if len(docs) == 0 {
		log.Error("No indexable documents found", "dir", datasetDir)
		os.Exit(1)
	}

	indexer := ingest.NewIndexer(log, embedder, vectors, catalog)
	result, err := indexer.Build(context.Background(), docs, ingest.BuildOptions{
		Rebuild:      rebuild,
		ChunkSize:    chunkSize,
		ChunkOverlap: chunkOverlap,
	})
	if errors.Is(err, ingest.ErrStoreNotEmpty) {
		fmt.Println("Index already exists; run again with --rebuild to replace it.")
		os.Exit(1)
	}
	if err != nil {
		log.Error("Index build failed", "error", err)
		os.Exit(1)
	}

	fmt.Printf("Indexed %d documents into %d chunks\n", result.Documents, result.Chunks)
}
