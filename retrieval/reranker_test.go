package retrieval

import (
	"context"
	"testing"

	"github.com/Ritesh-97/causal-rationale-extraction-system/transcript"
)

func textSpan(id, text string) transcript.Span {
	return transcript.Span{
		ID:    id,
		Turns: []transcript.Turn{{TurnID: 1, Text: text}},
	}
}

func TestLexicalRerankScoresOverlap(t *testing.T) {
	r := NewLexicalReranker()
	spans := []transcript.Span{
		textSpan("a", "the customer demanded a refund after the broken delivery"),
		textSpan("b", "weather was lovely today"),
	}
	scores, err := r.Rerank(context.Background(), "why did the customer demand a refund", spans)
	if err != nil {
		t.Fatalf("Rerank: %v", err)
	}
	if len(scores) != 2 {
		t.Fatalf("got %d scores", len(scores))
	}
	if scores[0] <= scores[1] {
		t.Errorf("overlapping span scored %v, unrelated %v", scores[0], scores[1])
	}
	for _, s := range scores {
		if s < 0 || s > 1 {
			t.Errorf("score %v out of [0,1]", s)
		}
	}
}

func TestLexicalRerankEmptyQueryTerms(t *testing.T) {
	r := NewLexicalReranker()
	scores, err := r.Rerank(context.Background(), "why did the", []transcript.Span{textSpan("a", "anything")})
	if err != nil {
		t.Fatalf("Rerank: %v", err)
	}
	if scores[0] != 0 {
		t.Errorf("stopword-only query scored %v", scores[0])
	}
}

func TestLexicalRerankDeterministic(t *testing.T) {
	r := NewLexicalReranker()
	spans := []transcript.Span{textSpan("a", "refund refund refund"), textSpan("b", "refund once")}
	first, _ := r.Rerank(context.Background(), "refund", spans)
	for i := 0; i < 3; i++ {
		again, _ := r.Rerank(context.Background(), "refund", spans)
		if first[0] != again[0] || first[1] != again[1] {
			t.Fatal("scores changed between invocations")
		}
	}
	if first[0] <= first[1] {
		t.Error("repeated term did not boost score")
	}
}
