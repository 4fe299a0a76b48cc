package retrieval

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"github.com/Ritesh-97/causal-rationale-extraction-system/corpus"
	"github.com/Ritesh-97/causal-rationale-extraction-system/migrations"
	"github.com/Ritesh-97/causal-rationale-extraction-system/transcript"
)

func setupTestStore(t *testing.T) *corpus.Store {
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
	return corpus.NewStore(db, nil, zerolog.Nop())
}

func indexSpan(t *testing.T, store *corpus.Store, transcriptID string, turnID int64, text string) {
	t.Helper()
	span := transcript.Span{
		ID:           transcript.SpanID(transcriptID, turnID),
		TranscriptID: transcriptID,
		Turns:        []transcript.Turn{{TurnID: turnID, Speaker: transcript.SpeakerCustomer, Text: text}},
	}
	if err := store.IndexSpan(context.Background(), &span); err != nil {
		t.Fatalf("IndexSpan: %v", err)
	}
}

func TestRetrieveEmptyCorpus(t *testing.T) {
	store := setupTestStore(t)
	p := NewPipeline(store, nil, NewLexicalReranker(), 0, zerolog.Nop())

	candidates, err := p.Retrieve(context.Background(), "why was a refund issued", transcript.EventRefund, nil)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(candidates) != 0 {
		t.Fatalf("got %d candidates from empty corpus", len(candidates))
	}
}

// A typed query must not drop spans that carry no event: the dialogue before
// an event is the evidence, and only spans overlapping the event turn carry
// the event record.
func TestRetrieveKeepsEventlessSpansForTypedQuery(t *testing.T) {
	store := setupTestStore(t)
	indexSpan(t, store, "t1", 1, "the blender arrived broken and defective")
	eventSpan := transcript.Span{
		ID:           transcript.SpanID("t1", 9),
		TranscriptID: "t1",
		Turns:        []transcript.Turn{{TurnID: 9, Speaker: transcript.SpeakerAgent, Text: "your refund has been issued"}},
		Event:        &transcript.Event{Type: transcript.EventRefund, TurnID: 9, Label: "refund"},
	}
	if err := store.IndexSpan(context.Background(), &eventSpan); err != nil {
		t.Fatalf("IndexSpan: %v", err)
	}
	p := NewPipeline(store, nil, NewLexicalReranker(), 0, zerolog.Nop())

	candidates, err := p.Retrieve(context.Background(), "why was the blender refund issued broken defective", transcript.EventRefund, nil)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	seen := map[string]bool{}
	for _, c := range candidates {
		seen[c.Span.ID] = true
	}
	if !seen["t1:1"] {
		t.Error("event-less span excluded from typed query")
	}
	if !seen["t1:9"] {
		t.Error("event-carrying span excluded from typed query")
	}
}

func TestRetrieveScoresCandidates(t *testing.T) {
	store := setupTestStore(t)
	indexSpan(t, store, "t1", 1, "I want a refund for my broken order")
	indexSpan(t, store, "t1", 5, "the weather is lovely")
	p := NewPipeline(store, nil, NewLexicalReranker(), 0, zerolog.Nop())

	candidates, err := p.Retrieve(context.Background(), "why refund broken order", "", nil)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(candidates) == 0 {
		t.Fatal("no candidates")
	}
	for _, c := range candidates {
		if c.RelevanceScore < 0 || c.RelevanceScore > 1 {
			t.Errorf("relevance %v out of range", c.RelevanceScore)
		}
	}
}

// Prior evidence joins the pool exactly once even when fresh retrieval finds
// the same span again.
func TestRetrieveMergesPriorWithoutDuplicates(t *testing.T) {
	store := setupTestStore(t)
	indexSpan(t, store, "t1", 1, "refund refund refund")          // A: fresh hit
	indexSpan(t, store, "t1", 2, "refund mentioned here as well") // B: fresh hit and prior
	indexSpan(t, store, "t1", 3, "totally unrelated content")     // C: prior only
	p := NewPipeline(store, nil, NewLexicalReranker(), 0, zerolog.Nop())

	prior := []string{"t1:2", "t1:3"}
	candidates, err := p.Retrieve(context.Background(), "refund", "", prior)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}

	seen := map[string]int{}
	for _, c := range candidates {
		seen[c.Span.ID]++
	}
	for id, n := range seen {
		if n > 1 {
			t.Errorf("span %s appears %d times", id, n)
		}
	}
	for _, id := range []string{"t1:1", "t1:2", "t1:3"} {
		if seen[id] != 1 {
			t.Errorf("span %s missing from merged pool", id)
		}
	}
}

func TestRetrieveSkipsUnknownPriorIDs(t *testing.T) {
	store := setupTestStore(t)
	indexSpan(t, store, "t1", 1, "refund request")
	p := NewPipeline(store, nil, NewLexicalReranker(), 0, zerolog.Nop())

	candidates, err := p.Retrieve(context.Background(), "refund", "", []string{"ghost:9"})
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	for _, c := range candidates {
		if c.Span.ID == "ghost:9" {
			t.Error("unknown prior id materialized")
		}
	}
}
