package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nutribunda/mpasi-backend/internal/db"
	"github.com/nutribunda/mpasi-backend/internal/planner"
	"github.com/nutribunda/mpasi-backend/internal/platform/logger"
	"github.com/nutribunda/mpasi-backend/internal/platform/qdrant"
	"github.com/nutribunda/mpasi-backend/internal/retrieval"
	"github.com/nutribunda/mpasi-backend/internal/types"
)

const statusProbeTimeout = 5 * time.Second

type MenuHandler struct {
	log      *logger.Logger
	planner  *planner.Service
	searcher *retrieval.Retriever
	vectors  qdrant.VectorStore
	catalog  *db.CatalogService
	model    string
}

func NewMenuHandler(
	log *logger.Logger,
	plannerSvc *planner.Service,
	searcher *retrieval.Retriever,
	vectors qdrant.VectorStore,
	catalog *db.CatalogService,
	model string,
) *MenuHandler {
	return &MenuHandler{
		log:      log.With("handler", "menu"),
		planner:  plannerSvc,
		searcher: searcher,
		vectors:  vectors,
		catalog:  catalog,
		model:    model,
	}
}

type searchRequest struct {
	Query     string `json:"query"`
	TopK      int    `json:"top_k"`
	AgeMonths int    `json:"age_months"`
}

func (h *MenuHandler) GenerateMenu(c *gin.Context) {
	var raw map[string]json.RawMessage
	if err := c.ShouldBindJSON(&raw); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}

	result := h.planner.GenerateMenuPlan(c.Request.Context(), raw)
	c.JSON(planResultStatus(result), result)
}

// planResultStatus maps a plan result onto an HTTP status: validation
// problems are the caller's fault, everything else is upstream.
func planResultStatus(result types.MenuPlanResult) int {
	if result.Status != "error" {
		return http.StatusOK
	}
	if strings.HasPrefix(result.Message, "invalid input") {
		return http.StatusBadRequest
	}
	return http.StatusBadGateway
}

func (h *MenuHandler) Search(c *gin.Context) {
	req, ok := h.bindSearch(c)
	if !ok {
		return
	}

	results := h.searcher.Search(c.Request.Context(), req.Query, req.AgeMonths, retrieval.Config{TopK: req.TopK})
	RespondOK(c, gin.H{
		"status":        "success",
		"query":         req.Query,
		"top_k":         req.TopK,
		"results_count": len(results),
		"results":       results,
	})
}

func (h *MenuHandler) SearchWithScores(c *gin.Context) {
	req, ok := h.bindSearch(c)
	if !ok {
		return
	}

	scored := h.searcher.SearchWithScores(c.Request.Context(), req.Query, req.AgeMonths, retrieval.Config{TopK: req.TopK})
	results := make([]gin.H, 0, len(scored))
	for _, sc := range scored {
		results = append(results, gin.H{
			"content":          sc.Text,
			"similarity_score": sc.Score,
		})
	}
	RespondOK(c, gin.H{
		"status":        "success",
		"query":         req.Query,
		"top_k":         req.TopK,
		"results_count": len(results),
		"results":       results,
	})
}

func (h *MenuHandler) bindSearch(c *gin.Context) (searchRequest, bool) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return searchRequest{}, false
	}
	if strings.TrimSpace(req.Query) == "" {
		RespondError(c, http.StatusBadRequest, "missing_query", errors.New("query is required"))
		return searchRequest{}, false
	}
	if req.TopK <= 0 {
		req.TopK = retrieval.DefaultTopK
	}
	return req, true
}

func (h *MenuHandler) NutritionRequirements(c *gin.Context) {
	age, err := strconv.Atoi(c.Param("age"))
	if err != nil || age < types.MinAgeMonths || age > types.MaxAgeMonths {
		RespondError(c, http.StatusBadRequest, "invalid_age", errors.New("age must be a whole number between 6 and 24 months"))
		return
	}

	reqs := h.planner.GetNutritionRequirements(c.Request.Context(), age)
	RespondOK(c, gin.H{
		"status":       "success",
		"age_months":   age,
		"requirements": reqs,
	})
}

func (h *MenuHandler) Status(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), statusProbeTimeout)
	defer cancel()

	services := gin.H{
		"qdrant":  h.probeVectors(ctx),
		"catalog": h.probeCatalog(),
		"gemini":  h.probeGemini(),
	}
	RespondOK(c, gin.H{
		"status":   "online",
		"services": services,
	})
}

func (h *MenuHandler) probeVectors(ctx context.Context) string {
	count, err := h.vectors.Count(ctx)
	if err != nil {
		h.log.Warn("status: vector store unreachable", "error", err)
		return "unavailable"
	}
	return "ready (" + strconv.Itoa(count) + " vectors)"
}

func (h *MenuHandler) probeCatalog() string {
	if err := h.catalog.Ping(); err != nil {
		h.log.Warn("status: catalog unreachable", "error", err)
		return "unavailable"
	}
	return "ready"
}

func (h *MenuHandler) probeGemini() string {
	if h.model == "" {
		return "unconfigured"
	}
	return "ready"
}

func (h *MenuHandler) Models(c *gin.Context) {
	models := []gin.H{
		{
			"id":        h.model,
			"name":      "Gemini 2.5 Flash",
			"provider":  "Google Gemini API",
			"available": true,
		},
	}
	RespondOK(c, gin.H{
		"status": "success",
		"models": models,
		"total":  len(models),
	})
}
