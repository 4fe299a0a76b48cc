package corpus

import (
	"context"
	"fmt"
	"sort"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/samber/lo"

	"github.com/Ritesh-97/causal-rationale-extraction-system/transcript"
)

// SearchQuery describes one retrieval request over the span index.
type SearchQuery struct {
	QueryText      string
	QueryEmbedding []float32
	// EventType restricts results to spans carrying an event of this type.
	// Only event-scoped listings set it; the query path leaves it empty so
	// spans without any event stay eligible as candidates.
	EventType transcript.EventType
	Limit     int
	// UseHybrid merges keyword and vector hits under fixed weights instead of
	// picking the best single method.
	UseHybrid bool
}

// SearchResult pairs an indexed span with its retrieval score in [0,1].
type SearchResult struct {
	Span  IndexedSpan
	Score float64
	// Keyword and Vector carry the per-method scores that produced Score.
	Keyword float64
	Vector  float64
}

// Search executes keyword / vector / hybrid retrieval over spans. An empty
// index yields an empty result, never an error.
func (s *Store) Search(ctx context.Context, q *SearchQuery) ([]SearchResult, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}

	queryText := strings.TrimSpace(q.QueryText)

	s.logger.Debug().
		Str("queryText", queryText).
		Bool("hasEmbedding", q.QueryEmbedding != nil).
		Str("eventType", string(q.EventType)).
		Bool("useHybrid", q.UseHybrid).
		Int("limit", limit).
		Msg("Search: start")

	var byKeyword []SearchResult
	var byVector []SearchResult
	var err error

	if queryText != "" {
		byKeyword, err = s.searchByKeyword(ctx, queryText, q.EventType, limit*3)
		if err != nil {
			return nil, err
		}
	}
	if q.QueryEmbedding != nil {
		byVector, err = s.searchByVector(ctx, q.QueryEmbedding, q.EventType, limit*3)
		if err != nil {
			return nil, err
		}
	}

	if !q.UseHybrid {
		if len(byVector) > 0 {
			if len(byVector) > limit {
				byVector = byVector[:limit]
			}
			return byVector, nil
		}
		if len(byKeyword) > limit {
			byKeyword = byKeyword[:limit]
		}
		return byKeyword, nil
	}

	const vectorWeight = 0.6
	const keywordWeight = 0.4

	merged := make(map[string]SearchResult, len(byVector)+len(byKeyword))
	for _, r := range byVector {
		merged[r.Span.Span.ID] = SearchResult{
			Span:   r.Span,
			Score:  r.Score * vectorWeight,
			Vector: r.Score,
		}
	}
	for _, r := range byKeyword {
		if existing, ok := merged[r.Span.Span.ID]; ok {
			existing.Score += r.Score * keywordWeight
			existing.Keyword = r.Score
			merged[r.Span.Span.ID] = existing
		} else {
			merged[r.Span.Span.ID] = SearchResult{
				Span:    r.Span,
				Score:   r.Score * keywordWeight,
				Keyword: r.Score,
			}
		}
	}

	results := lo.Values(merged)
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Span.Span.ID < results[j].Span.Span.ID
	})
	if len(results) > limit {
		results = results[:limit]
	}

	s.logger.Debug().
		Int("keywordResults", len(byKeyword)).
		Int("vectorResults", len(byVector)).
		Int("returning", len(results)).
		Msg("Search: hybrid merge completed")
	return results, nil
}

// searchByKeyword matches the query against the FTS index. Keyword hits carry
// a flat score of 1.0; rank ordering comes from the fused pipeline, not FTS.
func (s *Store) searchByKeyword(ctx context.Context, queryText string, et transcript.EventType, limit int) ([]SearchResult, error) {
	match := ftsQuote(queryText)
	if match == "" {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT docid
FROM spans_fts
WHERE spans_fts MATCH ?
LIMIT ?
`, match, limit)
	if err != nil {
		return nil, fmt.Errorf("fts query: %w", err)
	}
	defer rows.Close() //nolint:errcheck // no remedy for rows close error

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	spans, err := s.loadSpansByRowIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	results := lo.FilterMap(spans, func(is IndexedSpan, _ int) (SearchResult, bool) {
		if !matchesEventType(&is, et) {
			return SearchResult{}, false
		}
		return SearchResult{Span: is, Score: 1.0, Keyword: 1.0}, true
	})
	return results, nil
}

// searchByVector scores every embedded span by cosine similarity against the
// query vector. Negative similarities clamp to zero.
func (s *Store) searchByVector(ctx context.Context, queryVec []float32, et transcript.EventType, limit int) ([]SearchResult, error) {
	query := sq.Select(spanColumns...).
		From("spans").
		Where(sq.NotEq{"embedding": nil})
	queryStr, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, queryStr, args...)
	if err != nil {
		return nil, fmt.Errorf("vector scan: %w", err)
	}
	defer rows.Close() //nolint:errcheck // no remedy for rows close error

	var results []SearchResult
	for rows.Next() {
		is, err := loadSpanFromRow(rows)
		if err != nil {
			return nil, err
		}
		if !matchesEventType(is, et) {
			continue
		}
		sim := CosineSimilarity(queryVec, is.Embedding)
		if sim <= 0 {
			continue
		}
		results = append(results, SearchResult{Span: *is, Score: sim, Vector: sim})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Span.Span.ID < results[j].Span.Span.ID
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (s *Store) loadSpansByRowIDs(ctx context.Context, rowIDs []int64) ([]IndexedSpan, error) {
	query := sq.Select(spanColumns...).
		From("spans").
		Where(sq.Eq{"id": rowIDs})
	queryStr, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, queryStr, args...)
	if err != nil {
		return nil, fmt.Errorf("load spans: %w", err)
	}
	defer rows.Close() //nolint:errcheck // no remedy for rows close error

	var spans []IndexedSpan
	for rows.Next() {
		is, err := loadSpanFromRow(rows)
		if err != nil {
			return nil, err
		}
		spans = append(spans, *is)
	}
	return spans, rows.Err()
}

func matchesEventType(is *IndexedSpan, et transcript.EventType) bool {
	if et == "" {
		return true
	}
	return is.Span.Event != nil && is.Span.Event.Type == et
}
