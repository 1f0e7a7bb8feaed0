package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"testing"

	"github.com/nutribunda/mpasi-backend/internal/platform/logger"
)

type roundTripFunc func(r *http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func newTestVectorStore(t *testing.T, handler roundTripFunc) *vectorStore {
	t.Helper()
	return &vectorStore{
		log:     logger.NewNop(),
		cfg:     Config{URL: "http://qdrant.test", Collection: "mpasi_rules", VectorDim: 3},
		baseURL: "http://qdrant.test",
		http:    &http.Client{Transport: handler},
	}
}

func okResponse(t *testing.T, result any) *http.Response {
	t.Helper()
	body, err := json.Marshal(map[string]any{"result": result, "status": "ok"})
	if err != nil {
		t.Fatalf("marshal response: %v", err)
	}
	return &http.Response{
		StatusCode: http.StatusOK,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(bytes.NewReader(body)),
	}
}

func TestVectorStoreUpsertRequestShape(t *testing.T) {
	var captured map[string]any
	s := newTestVectorStore(t, func(r *http.Request) (*http.Response, error) {
		if r.Method != http.MethodPut {
			t.Fatalf("method: want=%s got=%s", http.MethodPut, r.Method)
		}
		if r.URL.Path != "/collections/mpasi_rules/points" {
			t.Fatalf("path: want=%q got=%q", "/collections/mpasi_rules/points", r.URL.Path)
		}
		if r.URL.RawQuery != "wait=true" {
			t.Fatalf("query: want=%q got=%q", "wait=true", r.URL.RawQuery)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		return okResponse(t, map[string]any{"status": "acknowledged"}), nil
	})

	meta := map[string]any{"age_start_months": 6, "age_end_months": 24}
	err := s.Upsert(context.Background(), []Vector{
		{ID: "chunk-1", Values: []float32{1, 2, 3}, Metadata: meta},
		{ID: "chunk-2", Values: []float32{4, 5, 6}, Metadata: map[string]any{"topic": "aturan_mpasi"}},
	})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	pointsRaw, ok := captured["points"].([]any)
	if !ok {
		t.Fatalf("points type: got=%T", captured["points"])
	}
	if len(pointsRaw) != 2 {
		t.Fatalf("points length: want=2 got=%d", len(pointsRaw))
	}

	first, ok := pointsRaw[0].(map[string]any)
	if !ok {
		t.Fatalf("point[0] type: got=%T", pointsRaw[0])
	}
	if first["id"] != s.pointID("chunk-1") {
		t.Fatalf("point id mismatch: got=%v", first["id"])
	}
	payload, ok := first["payload"].(map[string]any)
	if !ok {
		t.Fatalf("payload type: got=%T", first["payload"])
	}
	if payload[payloadCollectionKey] != "mpasi_rules" {
		t.Fatalf("payload collection: want=%q got=%v", "mpasi_rules", payload[payloadCollectionKey])
	}
	if payload[payloadChunkIDKey] != "chunk-1" {
		t.Fatalf("payload chunk id: want=%q got=%v", "chunk-1", payload[payloadChunkIDKey])
	}

	if _, exists := meta[payloadCollectionKey]; exists {
		t.Fatalf("input metadata mutated: collection key should not exist")
	}
	if _, exists := meta[payloadChunkIDKey]; exists {
		t.Fatalf("input metadata mutated: chunk id key should not exist")
	}
}

func TestVectorStoreUpsertRejectsDimensionMismatch(t *testing.T) {
	s := newTestVectorStore(t, func(r *http.Request) (*http.Response, error) {
		t.Fatalf("no request expected for invalid input")
		return nil, nil
	})

	err := s.Upsert(context.Background(), []Vector{
		{ID: "chunk-1", Values: []float32{1, 2}},
	})
	var opErrTyped *OperationError
	if !errors.As(err, &opErrTyped) {
		t.Fatalf("error type: want=*OperationError got=%T", err)
	}
	if opErrTyped.Code != OperationErrorValidation {
		t.Fatalf("error code: want=%s got=%s", OperationErrorValidation, opErrTyped.Code)
	}
}

func TestVectorStoreQueryMatchesOrdering(t *testing.T) {
	s := newTestVectorStore(t, func(r *http.Request) (*http.Response, error) {
		if r.URL.Path != "/collections/mpasi_rules/points/search" {
			t.Fatalf("path: got=%q", r.URL.Path)
		}
		return okResponse(t, []map[string]any{
			{"id": "p1", "score": 0.42, "payload": map[string]any{payloadChunkIDKey: "chunk-low"}},
			{"id": "p2", "score": 0.91, "payload": map[string]any{payloadChunkIDKey: "chunk-high"}},
		}), nil
	})

	matches, err := s.QueryMatches(context.Background(), []float32{1, 2, 3}, 5)
	if err != nil {
		t.Fatalf("QueryMatches: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("matches length: want=2 got=%d", len(matches))
	}
	if matches[0].ID != "chunk-high" || matches[1].ID != "chunk-low" {
		t.Fatalf("ordering: got=%v", matches)
	}
}

func TestVectorStoreQueryMatchesNormalizesEuclidScore(t *testing.T) {
	s := newTestVectorStore(t, func(r *http.Request) (*http.Response, error) {
		return okResponse(t, []map[string]any{
			{"id": "p1", "score": 3.0, "payload": map[string]any{payloadChunkIDKey: "chunk-1"}},
		}), nil
	})
	s.distance = "Euclid"

	matches, err := s.QueryMatches(context.Background(), []float32{1, 2, 3}, 1)
	if err != nil {
		t.Fatalf("QueryMatches: %v", err)
	}
	want := 1.0 / 4.0
	if matches[0].Score != want {
		t.Fatalf("normalized score: want=%v got=%v", want, matches[0].Score)
	}
}

func TestVectorStoreCount(t *testing.T) {
	s := newTestVectorStore(t, func(r *http.Request) (*http.Response, error) {
		if r.URL.Path != "/collections/mpasi_rules/points/count" {
			t.Fatalf("path: got=%q", r.URL.Path)
		}
		return okResponse(t, map[string]any{"count": 137}), nil
	})

	n, err := s.Count(context.Background())
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 137 {
		t.Fatalf("count: want=137 got=%d", n)
	}
}

func TestVectorStoreDeleteAllScopesToCollection(t *testing.T) {
	var captured map[string]any
	s := newTestVectorStore(t, func(r *http.Request) (*http.Response, error) {
		if r.URL.Path != "/collections/mpasi_rules/points/delete" {
			t.Fatalf("path: got=%q", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		return okResponse(t, map[string]any{"status": "acknowledged"}), nil
	})

	if err := s.DeleteAll(context.Background()); err != nil {
		t.Fatalf("DeleteAll: %v", err)
	}
	filter, ok := captured["filter"].(map[string]any)
	if !ok {
		t.Fatalf("filter type: got=%T", captured["filter"])
	}
	must, ok := filter["must"].([]any)
	if !ok || len(must) != 1 {
		t.Fatalf("must clause: got=%v", filter["must"])
	}
}

func TestVectorStoreErrorEnvelopeStatus(t *testing.T) {
	s := newTestVectorStore(t, func(r *http.Request) (*http.Response, error) {
		body, _ := json.Marshal(map[string]any{
			"result": nil,
			"status": map[string]any{"error": "collection not found"},
		})
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(bytes.NewReader(body)),
		}, nil
	})

	_, err := s.QueryMatches(context.Background(), []float32{1, 2, 3}, 3)
	var opErrTyped *OperationError
	if !errors.As(err, &opErrTyped) {
		t.Fatalf("error type: want=*OperationError got=%T", err)
	}
	if opErrTyped.Code != OperationErrorQueryFailed {
		t.Fatalf("error code: want=%s got=%s", OperationErrorQueryFailed, opErrTyped.Code)
	}
}
