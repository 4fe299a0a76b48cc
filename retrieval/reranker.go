// Package retrieval turns corpus search hits into scored candidates for
// causal analysis.
package retrieval

import (
	"context"
	"strings"

	"github.com/Ritesh-97/causal-rationale-extraction-system/transcript"
)

// Reranker assigns a relevance score in [0,1] to each span for a query.
// Implementations must return one score per input span, in input order.
type Reranker interface {
	Rerank(ctx context.Context, query string, spans []transcript.Span) ([]float64, error)
}

// LexicalReranker scores relevance by weighted term overlap between the query
// and the span text. It needs no external service and is fully deterministic.
type LexicalReranker struct {
	stopwords map[string]bool
}

// NewLexicalReranker creates a reranker with the default stopword set.
func NewLexicalReranker() *LexicalReranker {
	words := []string{
		"a", "an", "the", "and", "or", "but", "in", "on", "at", "to", "of",
		"for", "with", "was", "is", "are", "were", "be", "been", "did", "do",
		"does", "why", "what", "how", "when", "who", "i", "you", "he", "she",
		"we", "my", "your",
	}
	sw := make(map[string]bool, len(words))
	for _, w := range words {
		sw[w] = true
	}
	return &LexicalReranker{stopwords: sw}
}

// Rerank scores each span by the fraction of query terms its text contains.
// Terms repeated in the span add a small boost so a span dwelling on the
// query topic outranks one mentioning it in passing.
func (r *LexicalReranker) Rerank(_ context.Context, query string, spans []transcript.Span) ([]float64, error) {
	terms := r.terms(query)
	scores := make([]float64, len(spans))
	if len(terms) == 0 {
		return scores, nil
	}

	for i := range spans {
		text := strings.ToLower(spans[i].Text())
		var hit, extra float64
		for _, t := range terms {
			n := strings.Count(text, t)
			if n == 0 {
				continue
			}
			hit++
			if n > 1 {
				extra += 0.1
			}
		}
		score := hit/float64(len(terms)) + extra/float64(len(terms))
		if score > 1 {
			score = 1
		}
		scores[i] = score
	}
	return scores, nil
}

func (r *LexicalReranker) terms(query string) []string {
	var terms []string
	for _, w := range strings.Fields(strings.ToLower(query)) {
		w = strings.Trim(w, ".,!?;:\"'")
		if w == "" || r.stopwords[w] {
			continue
		}
		terms = append(terms, w)
	}
	return terms
}
