package main

import (
	"fmt"
	"os"

	"github.com/nutribunda/mpasi-backend/internal/composition"
	"github.com/nutribunda/mpasi-backend/internal/db"
	"github.com/nutribunda/mpasi-backend/internal/handlers"
	"github.com/nutribunda/mpasi-backend/internal/nutrition"
	"github.com/nutribunda/mpasi-backend/internal/planner"
	"github.com/nutribunda/mpasi-backend/internal/platform/envutil"
	"github.com/nutribunda/mpasi-backend/internal/platform/gemini"
	"github.com/nutribunda/mpasi-backend/internal/platform/logger"
	"github.com/nutribunda/mpasi-backend/internal/platform/openai"
	"github.com/nutribunda/mpasi-backend/internal/platform/qdrant"
	"github.com/nutribunda/mpasi-backend/internal/retrieval"
	"github.com/nutribunda/mpasi-backend/internal/server"
)

func main() {
	// Logger
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

	// Vector store
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

	// Chunk catalog
	catalog, err := db.NewCatalogService(log)
	if err != nil {
		log.Error("Could not init chunk catalog", "error", err)
		os.Exit(1)
	}
	if err := catalog.AutoMigrateAll(); err != nil {
		log.Error("Catalog migration failed", "error", err)
		os.Exit(1)
	}

	// Embeddings
	embedder, err := openai.NewClient(log)
	if err != nil {
		log.Error("Could not init OpenAI client", "error", err)
		os.Exit(1)
	}

	// Generation
	geminiCfg, err := gemini.ResolveConfigFromEnv()
	if err != nil {
		log.Error("Could not resolve Gemini config", "error", err)
		os.Exit(1)
	}
	generator, err := gemini.NewClient(log, geminiCfg)
	if err != nil {
		log.Error("Could not init Gemini client", "error", err)
		os.Exit(1)
	}

	// Composition table
	compositionPath := envutil.Str("COMPOSITION_PATH", "dataset/TKPI_COMPACT.txt")
	table, err := composition.Load(log, compositionPath)
	if err != nil {
		log.Error("Could not load composition table", "path", compositionPath, "error", err)
		os.Exit(1)
	}
	log.Info("Composition table loaded", "path", compositionPath, "foods", table.Len())

	// Embed cache (optional)
	embedCache, err := retrieval.NewEmbedCacheFromEnv(log)
	if err != nil {
		log.Warn("Embed cache unavailable, continuing without it", "error", err)
		embedCache = nil
	}

	// Retrieval + planning
	retriever := retrieval.NewRetriever(log, embedder, vectors, catalog, embedCache)
	recalc := nutrition.NewRecalculator(log, table)
	attachment := planner.NewReferenceAttachment(log, generator, table.Raw())
	plannerSvc := planner.NewService(log, retriever, generator, attachment, recalc)

	// Handlers
	menuHandler := handlers.NewMenuHandler(log, plannerSvc, retriever, vectors, catalog, generator.Model())

	// Router
	router := server.NewRouter(server.RouterConfig{
		MenuHandler: menuHandler,
	})

	port := envutil.Str("PORT", "8080")
	fmt.Printf("Server listening on :%s\n", port)
	if err := router.Run(":" + port); err != nil {
		log.Error("Server failed", "error", err)
		os.Exit(1)
	}
}
