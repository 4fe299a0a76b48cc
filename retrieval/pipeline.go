package retrieval

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/Ritesh-97/causal-rationale-extraction-system/causal"
	"github.com/Ritesh-97/causal-rationale-extraction-system/corpus"
	"github.com/Ritesh-97/causal-rationale-extraction-system/transcript"
)

// DefaultCandidateLimit bounds the candidate pool handed to analysis.
const DefaultCandidateLimit = 50

// Pipeline runs retrieval end to end: embed the query, search the corpus,
// rerank the hits, and emit scored candidates.
type Pipeline struct {
	store    *corpus.Store
	embedder corpus.Embedder
	reranker Reranker
	limit    int
	logger   zerolog.Logger
}

// NewPipeline wires the retrieval stages together. embedder may be nil, in
// which case search degrades to keyword-only. limit <= 0 selects the default.
func NewPipeline(store *corpus.Store, embedder corpus.Embedder, reranker Reranker, limit int, logger zerolog.Logger) *Pipeline {
	if limit <= 0 {
		limit = DefaultCandidateLimit
	}
	return &Pipeline{
		store:    store,
		embedder: embedder,
		reranker: reranker,
		limit:    limit,
		logger:   logger.With().Str("component", "retrieval-pipeline").Logger(),
	}
}

// Retrieve searches the corpus for spans matching the query and reranks the
// pool. priorSpanIDs, when non-empty, names spans from earlier results that
// must join the pool before reranking; they are re-scored against the current
// query like any fresh hit. An empty corpus yields an empty candidate set.
//
// The event type does not restrict retrieval: spans with no associated event
// stay eligible and simply earn no temporal signal downstream. The dialogue
// leading up to an event rarely overlaps the event turn itself, so filtering
// here would drop exactly the spans the analyzer needs.
func (p *Pipeline) Retrieve(ctx context.Context, query string, eventType transcript.EventType, priorSpanIDs []string) ([]causal.ScoredCandidate, error) {
	var queryVec []float32
	if p.embedder != nil {
		vec, err := p.embedder.Embed(ctx, query)
		if err != nil {
			return nil, causal.NewCollaboratorError("embedder", err)
		}
		queryVec = vec
	}

	results, err := p.store.Search(ctx, &corpus.SearchQuery{
		QueryText:      query,
		QueryEmbedding: queryVec,
		Limit:          p.limit,
		UseHybrid:      queryVec != nil,
	})
	if err != nil {
		return nil, causal.NewCollaboratorError("corpus", err)
	}

	// Fresh hits come first so that on a score tie the newly retrieved copy
	// of a span wins over the carried-over one.
	pool := make([]corpus.SearchResult, 0, len(results)+len(priorSpanIDs))
	pool = append(pool, results...)
	seen := make(map[string]bool, len(results))
	for _, r := range results {
		seen[r.Span.Span.ID] = true
	}

	if len(priorSpanIDs) > 0 {
		carried, err := p.store.GetSpans(ctx, priorSpanIDs)
		if err != nil {
			return nil, causal.NewCollaboratorError("corpus", err)
		}
		for _, is := range carried {
			if seen[is.Span.ID] {
				continue
			}
			seen[is.Span.ID] = true
			pool = append(pool, corpus.SearchResult{
				Span:  is,
				Score: corpus.CosineSimilarity(queryVec, is.Embedding),
			})
		}
	}

	if len(pool) == 0 {
		p.logger.Debug().Str("query", query).Msg("Retrieval produced no candidates")
		return nil, nil
	}

	spans := make([]transcript.Span, len(pool))
	for i := range pool {
		spans[i] = pool[i].Span.Span
	}
	relevance, err := p.reranker.Rerank(ctx, query, spans)
	if err != nil {
		return nil, causal.NewCollaboratorError("reranker", err)
	}

	candidates := make([]causal.ScoredCandidate, len(pool))
	for i := range pool {
		candidates[i] = causal.ScoredCandidate{
			Span:            spans[i],
			SimilarityScore: pool[i].Score,
			RelevanceScore:  relevance[i],
		}
	}

	p.logger.Info().
		Str("query", query).
		Str("eventType", string(eventType)).
		Int("fresh", len(results)).
		Int("carried", len(pool)-len(results)).
		Msg("Retrieval completed")
	return candidates, nil
}
