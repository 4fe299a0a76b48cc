package causal

import (
	"sort"

	"github.com/Ritesh-97/causal-rationale-extraction-system/transcript"
	"github.com/rs/zerolog"
)

// DefaultTopK bounds the ranked evidence returned per analysis.
const DefaultTopK = 10

// Result is the outcome of one causal analysis. NoEvidence marks the
// expected empty-corpus outcome; it is a signal, not an error.
type Result struct {
	Evidence   []EvidenceItem       `json:"evidence"`
	EventType  transcript.EventType `json:"event_type"`
	NoEvidence bool                 `json:"no_evidence"`
}

// Analyzer orchestrates windowed pattern detection and evidence scoring for
// one (query, event type, candidate set). It holds no mutable state and is
// safe for concurrent use across requests.
type Analyzer struct {
	detector *Detector
	scorer   *Scorer
	topK     int
	logger   zerolog.Logger
}

// NewAnalyzer creates an Analyzer. topK <= 0 selects the default.
func NewAnalyzer(detector *Detector, scorer *Scorer, topK int, logger zerolog.Logger) (*Analyzer, error) {
	if topK == 0 {
		topK = DefaultTopK
	}
	if topK < 0 {
		return nil, &ConfigurationError{Setting: "top_k", Message: "must be positive"}
	}
	return &Analyzer{
		detector: detector,
		scorer:   scorer,
		topK:     topK,
		logger:   logger.With().Str("component", "causal-analyzer").Logger(),
	}, nil
}

// TopK returns the analyzer's evidence bound.
func (a *Analyzer) TopK() int {
	return a.topK
}

// Analyze ranks the candidate spans as causal evidence for the given event
// type. Candidates are grouped per transcript; each group is scanned against
// its latest recorded event of the requested type, so a candidate whose
// transcript carries no such event stays eligible with temporal score 0.
// Identical inputs always produce an identical ranking. An empty candidate
// set yields a NoEvidence result, never an error.
func (a *Analyzer) Analyze(query string, eventType transcript.EventType, candidates []ScoredCandidate) *Result {
	if len(candidates) == 0 {
		a.logger.Debug().Str("query", query).Str("eventType", string(eventType)).Msg("No candidates to analyze")
		return &Result{EventType: eventType, NoEvidence: true}
	}

	matches := a.detectAll(candidates, eventType)

	items := a.scorer.Score(candidates, matches)
	items = DedupeBySpan(items)
	if len(items) > a.topK {
		items = items[:a.topK]
	}
	for i := range items {
		items[i].Rank = i + 1
	}

	a.logger.Info().
		Str("query", query).
		Str("eventType", string(eventType)).
		Int("candidates", len(candidates)).
		Int("patternMatches", len(matches)).
		Int("ranked", len(items)).
		Msg("Causal analysis completed")

	return &Result{Evidence: items, EventType: eventType}
}

// detectAll runs the pattern detector over each transcript-local subsequence
// of candidate spans. Transcript groups are visited in sorted id order so the
// emitted match set is deterministic.
func (a *Analyzer) detectAll(candidates []ScoredCandidate, eventType transcript.EventType) []PatternMatch {
	groups := make(map[string][]transcript.Span)
	for _, c := range candidates {
		groups[c.Span.TranscriptID] = append(groups[c.Span.TranscriptID], c.Span)
	}
	ids := make([]string, 0, len(groups))
	for id := range groups {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var matches []PatternMatch
	for _, id := range ids {
		spans := groups[id]
		sort.SliceStable(spans, func(i, j int) bool {
			if spans[i].StartTurnID() != spans[j].StartTurnID() {
				return spans[i].StartTurnID() < spans[j].StartTurnID()
			}
			return spans[i].ID < spans[j].ID
		})
		anchor := latestEventOfType(spans, eventType)
		matches = append(matches, a.detector.Detect(spans, anchor, eventType)...)
	}
	return matches
}

// latestEventOfType picks the anchor event for a transcript group: the last
// recorded event of the requested type carried by any span in the group.
func latestEventOfType(spans []transcript.Span, eventType transcript.EventType) *transcript.Event {
	var anchor *transcript.Event
	for i := range spans {
		e := spans[i].Event
		if e == nil || e.Type != eventType {
			continue
		}
		if anchor == nil || e.TurnID > anchor.TurnID {
			anchor = e
		}
	}
	return anchor
}

// DedupeBySpan removes duplicate span ids from a ranked sequence, keeping the
// first (highest-ranked) occurrence of each. Order is otherwise preserved;
// ranks are not reassigned.
func DedupeBySpan(items []EvidenceItem) []EvidenceItem {
	seen := make(map[string]bool, len(items))
	out := items[:0:0]
	for _, item := range items {
		if seen[item.Span.ID] {
			continue
		}
		seen[item.Span.ID] = true
		out = append(out, item)
	}
	return out
}
