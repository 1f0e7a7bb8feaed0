package planner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nutribunda/mpasi-backend/internal/nutrition"
	"github.com/nutribunda/mpasi-backend/internal/platform/envutil"
	"github.com/nutribunda/mpasi-backend/internal/platform/gemini"
	"github.com/nutribunda/mpasi-backend/internal/platform/logger"
	"github.com/nutribunda/mpasi-backend/internal/retrieval"
	"github.com/nutribunda/mpasi-backend/internal/types"
)

const retrievalSource = "Qdrant (MPASI rules) + Gemini File API (TKPI data)"

// RuleSearcher is the retrieval boundary: it degrades to an empty slice,
// never errors.
type RuleSearcher interface {
	Search(ctx context.Context, query string, ageMonths int, cfg retrieval.Config) []string
}

// AttachmentProvider yields an ACTIVE composition-file handle.
type AttachmentProvider interface {
	Ensure(ctx context.Context) (*gemini.FileRef, error)
}

// Service runs the plan pipeline: validate, retrieve, compose, attach,
// generate, parse, recompute. Linear; the first failing stage produces an
// error result and nothing after it runs.
type Service struct {
	log     *logger.Logger
	rules   RuleSearcher
	gen     gemini.Client
	attach  AttachmentProvider
	recalc  *nutrition.Recalculator
	timeout time.Duration
}

func NewService(
	log *logger.Logger,
	rules RuleSearcher,
	gen gemini.Client,
	attach AttachmentProvider,
	recalc *nutrition.Recalculator,
) *Service {
	timeout := time.Duration(envutil.Int("GEMINI_TIMEOUT_SECONDS", 120)) * time.Second
	return &Service{
		log:     log.With("service", "MenuPlanner"),
		rules:   rules,
		gen:     gen,
		attach:  attach,
		recalc:  recalc,
		timeout: timeout,
	}
}

// GenerateMenuPlan produces a one-day plan for a raw request body. Always
// returns a structured result; errors surface as Status "error" with a
// message and, when available, the raw model text.
func (s *Service) GenerateMenuPlan(ctx context.Context, raw map[string]json.RawMessage) types.MenuPlanResult {
	profile, err := types.NormalizeProfileInput(raw)
	if err != nil {
		return errorResult(fmt.Sprintf("invalid input: %v", err), "")
	}

	query := fmt.Sprintf(
		"Aturan MPASI dan AKG angka kecukupan gizi untuk usia %d bulan tekstur porsi frekuensi",
		profile.AgeMonths,
	)
	chunks := s.rules.Search(ctx, query, profile.AgeMonths, retrieval.Config{})
	s.log.Info("Rules retrieved", "age_months", profile.AgeMonths, "chunks", len(chunks))

	prompt := ComposePrompt(profile, chunks)

	attachment, err := s.attach.Ensure(ctx)
	if err != nil {
		s.log.Error("Reference attachment unavailable", "error", err)
		return errorResult(fmt.Sprintf("composition reference unavailable: %v", err), "")
	}

	genCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	rawText, err := s.gen.GenerateJSON(genCtx, prompt, attachment)
	if err != nil {
		s.log.Error("Generation failed", "error", err)
		return errorResult(fmt.Sprintf("generation failed: %v", err), "")
	}

	plan, err := ParsePlanResponse(rawText)
	if err != nil {
		var pErr *ParseError
		rawOut := rawText
		if errors.As(err, &pErr) {
			rawOut = pErr.Raw
		}
		s.log.Error("Generated plan unparseable", "error", err)
		return errorResult(fmt.Sprintf("response parsing failed: %v", err), rawOut)
	}

	s.recalc.Recompute(plan)

	return types.MenuPlanResult{
		Status: "success",
		Data:   plan,
		RAGInfo: &types.RAGInfo{
			DocumentsRetrieved: len(chunks),
			RetrievalSource:    retrievalSource,
			GenerationModel:    s.gen.Model(),
			SearchQuery:        query,
			BabyAge:            profile.AgeMonths,
		},
	}
}

func errorResult(message, raw string) types.MenuPlanResult {
	return types.MenuPlanResult{
		Status:      "error",
		Message:     message,
		RawResponse: raw,
	}
}
