package causal

import (
	"fmt"
	"math"
	"sort"

	"github.com/Ritesh-97/causal-rationale-extraction-system/transcript"
)

// ScoredCandidate is a span paired with the externally computed retrieval
// scores. Neither score is ever produced by this package.
type ScoredCandidate struct {
	Span            transcript.Span `json:"span"`
	SimilarityScore float64         `json:"similarity_score"`
	RelevanceScore  float64         `json:"relevance_score"`
}

// EvidenceItem is a candidate enriched with the fused causal scores and its
// final rank. FinalScore is a ranking score in [0,1], not a probability.
type EvidenceItem struct {
	Span            transcript.Span `json:"span"`
	SimilarityScore float64         `json:"similarity_score"`
	RelevanceScore  float64         `json:"relevance_score"`
	TemporalScore   float64         `json:"temporal_score"`
	PatternScore    float64         `json:"pattern_score"`
	FinalScore      float64         `json:"final_score"`
	Rank            int             `json:"rank"`
	Patterns        []PatternMatch  `json:"patterns,omitempty"`
}

// Weights is the fixed weighting scheme fusing the four component signals.
// Components must sum to 1.0.
type Weights struct {
	Relevance  float64 `yaml:"relevance" json:"relevance"`
	Temporal   float64 `yaml:"temporal" json:"temporal"`
	Pattern    float64 `yaml:"pattern" json:"pattern"`
	Similarity float64 `yaml:"similarity" json:"similarity"`
}

// DefaultWeights returns the default weighting scheme. These are preserved
// empirical defaults, not a derived optimum; treat them as configuration.
func DefaultWeights() Weights {
	return Weights{Relevance: 0.4, Temporal: 0.3, Pattern: 0.2, Similarity: 0.1}
}

const weightEpsilon = 1e-6

// Validate rejects weight sets with negative components or a sum that is not
// 1.0 within epsilon.
func (w Weights) Validate() error {
	if w.Relevance < 0 || w.Temporal < 0 || w.Pattern < 0 || w.Similarity < 0 {
		return &ConfigurationError{Setting: "weights", Message: "components must be non-negative"}
	}
	sum := w.Relevance + w.Temporal + w.Pattern + w.Similarity
	if math.Abs(sum-1.0) > weightEpsilon {
		return &ConfigurationError{
			Setting: "weights",
			Message: fmt.Sprintf("components must sum to 1.0, got %g", sum),
		}
	}
	return nil
}

// Scorer fuses the four per-span signals into one deterministic total order.
type Scorer struct {
	weights Weights
}

// NewScorer creates a Scorer, rejecting invalid weights at construction.
func NewScorer(w Weights) (*Scorer, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	return &Scorer{weights: w}, nil
}

// Weights returns the scorer's weighting scheme.
func (s *Scorer) Weights() Weights {
	return s.weights
}

// Score combines each candidate's external scores with the detected pattern
// matches and returns evidence items ordered by descending final score. Ties
// break by span start turn id ascending, then span id lexically, so identical
// inputs always produce the identical ranking. An empty candidate set returns
// an empty (nil) sequence. A candidate without a temporal match scores
// temporal 0 and is kept, not excluded.
func (s *Scorer) Score(candidates []ScoredCandidate, matches []PatternMatch) []EvidenceItem {
	if len(candidates) == 0 {
		return nil
	}

	bySpan := make(map[string][]PatternMatch)
	for _, m := range matches {
		bySpan[m.SpanID] = append(bySpan[m.SpanID], m)
	}

	items := make([]EvidenceItem, 0, len(candidates))
	for _, c := range candidates {
		spanMatches := bySpan[c.Span.ID]

		// Temporal proximity feeds its own component; the remaining kinds
		// aggregate by max so two weak patterns never outrank one strong one.
		var temporal, pattern float64
		for _, m := range spanMatches {
			if m.Kind == PatternTemporal {
				if m.Strength > temporal {
					temporal = m.Strength
				}
			} else if m.Strength > pattern {
				pattern = m.Strength
			}
		}

		relevance := clamp01(c.RelevanceScore)
		similarity := clamp01(c.SimilarityScore)
		temporal = clamp01(temporal)
		pattern = clamp01(pattern)

		items = append(items, EvidenceItem{
			Span:            c.Span,
			SimilarityScore: similarity,
			RelevanceScore:  relevance,
			TemporalScore:   temporal,
			PatternScore:    pattern,
			FinalScore: relevance*s.weights.Relevance +
				temporal*s.weights.Temporal +
				pattern*s.weights.Pattern +
				similarity*s.weights.Similarity,
			Patterns: spanMatches,
		})
	}

	sort.SliceStable(items, func(i, j int) bool {
		if items[i].FinalScore != items[j].FinalScore {
			return items[i].FinalScore > items[j].FinalScore
		}
		si, sj := items[i].Span.StartTurnID(), items[j].Span.StartTurnID()
		if si != sj {
			return si < sj
		}
		return items[i].Span.ID < items[j].Span.ID
	})
	for i := range items {
		items[i].Rank = i + 1
	}
	return items
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
