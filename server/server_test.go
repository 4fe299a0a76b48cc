package server

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"github.com/Ritesh-97/causal-rationale-extraction-system/causal"
	"github.com/Ritesh-97/causal-rationale-extraction-system/conversations"
	"github.com/Ritesh-97/causal-rationale-extraction-system/corpus"
	"github.com/Ritesh-97/causal-rationale-extraction-system/engine"
	"github.com/Ritesh-97/causal-rationale-extraction-system/explain"
	"github.com/Ritesh-97/causal-rationale-extraction-system/migrations"
	"github.com/Ritesh-97/causal-rationale-extraction-system/retrieval"
)

func setupRouter(t *testing.T) *gin.Engine {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	cwd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := migrations.RunMigrations(db, filepath.Join(cwd, "..", "migrations"), zerolog.Nop()); err != nil {
		t.Fatalf("run migrations: %v", err)
	}

	store := corpus.NewStore(db, nil, zerolog.Nop())
	pipeline := retrieval.NewPipeline(store, nil, retrieval.NewLexicalReranker(), 0, zerolog.Nop())
	detector, err := causal.NewDetector(causal.DetectorConfig{}, causal.DefaultCueTable())
	if err != nil {
		t.Fatalf("NewDetector: %v", err)
	}
	scorer, err := causal.NewScorer(causal.DefaultWeights())
	if err != nil {
		t.Fatalf("NewScorer: %v", err)
	}
	analyzer, err := causal.NewAnalyzer(detector, scorer, 0, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewAnalyzer: %v", err)
	}
	convs, err := conversations.NewStore(db, 0, 0, zerolog.Nop())
	if err != nil {
		t.Fatalf("conversations.NewStore: %v", err)
	}
	generator := explain.NewGenerator(nil, "", zerolog.Nop())
	eng := engine.New(pipeline, analyzer, generator, convs, nil, zerolog.Nop())

	return NewServer(eng, store, 0, zerolog.Nop()).Router()
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHealthz(t *testing.T) {
	router := setupRouter(t)
	w := doJSON(t, router, http.MethodGet, "/healthz", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status field = %v", body["status"])
	}
}

func TestQueryRejectsBadInput(t *testing.T) {
	router := setupRouter(t)

	w := doJSON(t, router, http.MethodPost, "/query", map[string]string{"query": ""})
	if w.Code != http.StatusBadRequest {
		t.Errorf("empty query status = %d", w.Code)
	}
	w = doJSON(t, router, http.MethodPost, "/query", map[string]string{
		"query":      "why did this happen",
		"event_type": "solar-flare",
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("unknown event type status = %d", w.Code)
	}
}

func TestQueryEmptyCorpusReturnsNoEvidence(t *testing.T) {
	router := setupRouter(t)
	w := doJSON(t, router, http.MethodPost, "/query", map[string]string{"query": "why was a refund issued"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	var resp engine.QueryResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.NoEvidence {
		t.Error("expected no_evidence on empty corpus")
	}
	if resp.EvidenceCount != 0 {
		t.Errorf("evidence_count = %d", resp.EvidenceCount)
	}
	if resp.ConversationID == "" {
		t.Error("conversation id not minted")
	}
}

func TestIngestThenQuery(t *testing.T) {
	router := setupRouter(t)

	ingest := map[string]any{
		"transcripts": []map[string]any{{
			"id": "t1",
			"turns": []map[string]any{
				{"turn_id": 1, "speaker": "customer", "text": "my order arrived broken", "timestamp": 10},
				{"turn_id": 2, "speaker": "agent", "text": "I can refund that for you", "timestamp": 20},
				{"turn_id": 3, "speaker": "customer", "text": "yes please refund it", "timestamp": 30},
			},
			"events": []map[string]any{{"type": "refund", "turn_id": 3}},
		}},
	}
	w := doJSON(t, router, http.MethodPost, "/transcripts", ingest)
	if w.Code != http.StatusOK {
		t.Fatalf("ingest status = %d: %s", w.Code, w.Body.String())
	}

	w = doJSON(t, router, http.MethodPost, "/query", map[string]string{"query": "why was the order refunded"})
	if w.Code != http.StatusOK {
		t.Fatalf("query status = %d: %s", w.Code, w.Body.String())
	}
	var resp engine.QueryResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.NoEvidence || len(resp.Evidence) == 0 {
		t.Fatalf("no evidence after ingest: %s", w.Body.String())
	}
	if resp.EvidenceCount != len(resp.Evidence) {
		t.Errorf("evidence_count = %d, evidence has %d items", resp.EvidenceCount, len(resp.Evidence))
	}
}

func TestIngestRejectsInvalidTranscript(t *testing.T) {
	router := setupRouter(t)
	ingest := map[string]any{
		"transcripts": []map[string]any{{
			"id": "bad",
			"turns": []map[string]any{
				{"turn_id": 2, "speaker": "customer", "text": "b"},
				{"turn_id": 1, "speaker": "agent", "text": "a"},
			},
		}},
	}
	w := doJSON(t, router, http.MethodPost, "/transcripts", ingest)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d", w.Code)
	}
}

func TestFollowupRequiresConversationID(t *testing.T) {
	router := setupRouter(t)
	w := doJSON(t, router, http.MethodPost, "/followup", map[string]string{"query": "what about that"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d", w.Code)
	}
}

func TestResetEndpoint(t *testing.T) {
	router := setupRouter(t)
	w := doJSON(t, router, http.MethodPost, "/conversations/conv-1/reset", nil)
	if w.Code != http.StatusOK {
		t.Errorf("status = %d", w.Code)
	}
}
