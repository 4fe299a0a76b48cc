package causal

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/Ritesh-97/causal-rationale-extraction-system/transcript"
)

// PatternKind tags a structural causal signal.
type PatternKind string

const (
	PatternTemporal      PatternKind = "temporal"
	PatternSequential    PatternKind = "sequential"
	PatternBehavioral    PatternKind = "behavioral"
	PatternEventSpecific PatternKind = "event_specific"
)

// PatternMatch is one detected signal attached to a span. Several matches of
// different kinds may attach to the same span; aggregation is the scorer's job.
type PatternMatch struct {
	Kind        PatternKind `json:"kind"`
	SpanID      string      `json:"span_id"`
	Strength    float64     `json:"strength"`
	Description string      `json:"description"`
}

// DetectorConfig holds the detection thresholds. The zero value is filled in
// with documented defaults by NewDetector.
type DetectorConfig struct {
	// LookbackSeconds bounds temporal proximity by wall-clock distance to the
	// anchor event. Strength decays linearly from 1.0 at the event to 0.0 at
	// the boundary.
	LookbackSeconds float64 `yaml:"lookback_seconds"`
	// LookbackTurns bounds temporal proximity by turn distance when the
	// transcript carries no usable timestamps.
	LookbackTurns int `yaml:"lookback_turns"`
	// SequentialThreshold is the minimum per-span strength for chain
	// membership.
	SequentialThreshold float64 `yaml:"sequential_threshold"`
	// SequentialBonus is added to each chain member's strength, capped at 1.0.
	SequentialBonus float64 `yaml:"sequential_bonus"`
	// MaxCueCount is the cue count at which behavioral strength saturates.
	MaxCueCount int `yaml:"max_cue_count"`
	// AdjacencyGap is the maximum turn-id gap between spans still considered
	// consecutive.
	AdjacencyGap int64 `yaml:"adjacency_gap"`
}

func (c DetectorConfig) withDefaults() DetectorConfig {
	if c.LookbackSeconds == 0 {
		c.LookbackSeconds = 120
	}
	if c.LookbackTurns == 0 {
		c.LookbackTurns = 10
	}
	if c.SequentialThreshold == 0 {
		c.SequentialThreshold = 0.3
	}
	if c.SequentialBonus == 0 {
		c.SequentialBonus = 0.1
	}
	if c.MaxCueCount == 0 {
		c.MaxCueCount = 5
	}
	if c.AdjacencyGap == 0 {
		c.AdjacencyGap = 2
	}
	return c
}

// Detector scans ordered spans for structural causal signals.
type Detector struct {
	cfg  DetectorConfig
	cues CueTable
	// precompiled word-boundary matchers per event type
	cueRE map[transcript.EventType][]cueMatcher
}

type cueMatcher struct {
	cue string
	re  *regexp.Regexp
}

// NewDetector creates a Detector, validating thresholds at construction.
func NewDetector(cfg DetectorConfig, cues CueTable) (*Detector, error) {
	cfg = cfg.withDefaults()
	if cfg.LookbackSeconds < 0 {
		return nil, &ConfigurationError{Setting: "lookback_seconds", Message: "must be non-negative"}
	}
	if cfg.LookbackTurns < 0 {
		return nil, &ConfigurationError{Setting: "lookback_turns", Message: "must be non-negative"}
	}
	if cfg.SequentialBonus < 0 || cfg.SequentialBonus > 1 {
		return nil, &ConfigurationError{Setting: "sequential_bonus", Message: "must be in [0,1]"}
	}
	if cfg.MaxCueCount <= 0 {
		return nil, &ConfigurationError{Setting: "max_cue_count", Message: "must be positive"}
	}

	d := &Detector{
		cfg:   cfg,
		cues:  cues,
		cueRE: make(map[transcript.EventType][]cueMatcher, len(cues.Cues)),
	}
	for et, words := range cues.Cues {
		matchers := make([]cueMatcher, 0, len(words))
		for _, w := range words {
			re, err := regexp.Compile(`\b` + regexp.QuoteMeta(strings.ToLower(w)) + `\b`)
			if err != nil {
				return nil, &ConfigurationError{Setting: "cues", Message: fmt.Sprintf("bad cue %q: %v", w, err)}
			}
			matchers = append(matchers, cueMatcher{cue: w, re: re})
		}
		d.cueRE[et] = matchers
	}
	return d, nil
}

// CueVersion reports the version of the loaded cue table.
func (d *Detector) CueVersion() string {
	return d.cues.Version
}

// Detect returns all pattern matches over the given spans for one anchor
// event. The anchor may be nil (no event of the requested type is known), in
// which case temporal detection produces no matches. An event type without a
// cue or trigger table degrades to "no match" for those kinds rather than
// failing. The output carries no ordering guarantee.
func (d *Detector) Detect(spans []transcript.Span, anchor *transcript.Event, eventType transcript.EventType) []PatternMatch {
	var matches []PatternMatch

	// Per-span base strength, used below for chain qualification.
	base := make(map[string]float64, len(spans))

	for i := range spans {
		span := &spans[i]
		text := strings.ToLower(span.Text())

		if m, ok := d.detectBehavioral(span, text, eventType); ok {
			matches = append(matches, m)
			if m.Strength > base[span.ID] {
				base[span.ID] = m.Strength
			}
		}
		for _, m := range d.detectTriggers(span, text, eventType) {
			matches = append(matches, m)
			base[span.ID] = 1.0
		}
	}

	if anchor != nil {
		matches = append(matches, d.detectTemporal(spans, anchor)...)
	}

	matches = append(matches, d.detectSequential(spans, base)...)
	return matches
}

// detectBehavioral counts cue occurrences for the event type, treating
// repeated near-identical agent turns as one extra cue. Strength is
// proportional to the count, saturating at MaxCueCount.
func (d *Detector) detectBehavioral(span *transcript.Span, text string, eventType transcript.EventType) (PatternMatch, bool) {
	matchers, ok := d.cueRE[eventType]
	if !ok {
		return PatternMatch{}, false
	}

	count := 0
	var hits []string
	for _, m := range matchers {
		if n := len(m.re.FindAllStringIndex(text, -1)); n > 0 {
			count += n
			hits = append(hits, m.cue)
		}
	}
	if hasRepeatedAgentTurns(span) {
		count++
		hits = append(hits, "repeated agent text")
	}
	if count == 0 {
		return PatternMatch{}, false
	}

	strength := float64(count) / float64(d.cfg.MaxCueCount)
	if strength > 1 {
		strength = 1
	}
	return PatternMatch{
		Kind:        PatternBehavioral,
		SpanID:      span.ID,
		Strength:    strength,
		Description: fmt.Sprintf("cues: %s", strings.Join(hits, ", ")),
	}, true
}

// detectTriggers flags known trigger phrases for the event type. Trigger
// detection is binary: any match carries full strength.
func (d *Detector) detectTriggers(span *transcript.Span, text string, eventType transcript.EventType) []PatternMatch {
	var matches []PatternMatch
	for _, phrase := range d.cues.Triggers[eventType] {
		if strings.Contains(text, strings.ToLower(phrase)) {
			matches = append(matches, PatternMatch{
				Kind:        PatternEventSpecific,
				SpanID:      span.ID,
				Strength:    1.0,
				Description: fmt.Sprintf("trigger phrase %q", phrase),
			})
		}
	}
	return matches
}

// detectTemporal flags spans ending inside the look-back window before the
// anchor event, with strength decaying linearly to the window boundary.
// Wall-clock distance is used when the anchor turn carries a timestamp;
// otherwise distance falls back to turn counts.
func (d *Detector) detectTemporal(spans []transcript.Span, anchor *transcript.Event) []PatternMatch {
	anchorTS := anchorTimestamp(spans, anchor)

	var matches []PatternMatch
	for i := range spans {
		span := &spans[i]
		if span.EndTurnID() > anchor.TurnID && span.StartTurnID() > anchor.TurnID {
			continue // entirely after the event
		}

		var strength float64
		var desc string
		if anchorTS > 0 {
			dist := anchorTS - span.EndTimestamp()
			if span.EndTurnID() >= anchor.TurnID {
				dist = 0 // span contains the event turn
			}
			if dist < 0 || dist > d.cfg.LookbackSeconds {
				continue
			}
			strength = 1 - dist/d.cfg.LookbackSeconds
			desc = fmt.Sprintf("%.0fs before event at turn %d", dist, anchor.TurnID)
		} else {
			dist := anchor.TurnID - span.EndTurnID()
			if dist < 0 {
				dist = 0
			}
			if dist > int64(d.cfg.LookbackTurns) {
				continue
			}
			strength = 1 - float64(dist)/float64(d.cfg.LookbackTurns)
			desc = fmt.Sprintf("%d turns before event at turn %d", dist, anchor.TurnID)
		}
		if strength <= 0 {
			continue
		}
		matches = append(matches, PatternMatch{
			Kind:        PatternTemporal,
			SpanID:      span.ID,
			Strength:    strength,
			Description: desc,
		})
	}
	return matches
}

// detectSequential finds runs of adjacent spans that each carry base strength
// above the threshold, boosting every member by the chain bonus.
func (d *Detector) detectSequential(spans []transcript.Span, base map[string]float64) []PatternMatch {
	qualifying := make([]*transcript.Span, 0, len(spans))
	for i := range spans {
		if base[spans[i].ID] >= d.cfg.SequentialThreshold {
			qualifying = append(qualifying, &spans[i])
		}
	}
	if len(qualifying) < 2 {
		return nil
	}
	sort.Slice(qualifying, func(i, j int) bool {
		return qualifying[i].StartTurnID() < qualifying[j].StartTurnID()
	})

	var matches []PatternMatch
	chain := []*transcript.Span{qualifying[0]}
	flush := func() {
		if len(chain) < 2 {
			chain = chain[:0]
			return
		}
		for _, span := range chain {
			strength := base[span.ID] + d.cfg.SequentialBonus
			if strength > 1 {
				strength = 1
			}
			matches = append(matches, PatternMatch{
				Kind:        PatternSequential,
				SpanID:      span.ID,
				Strength:    strength,
				Description: fmt.Sprintf("corroborating run of %d spans", len(chain)),
			})
		}
		chain = chain[:0]
	}
	for _, span := range qualifying[1:] {
		prev := chain[len(chain)-1]
		gap := span.StartTurnID() - prev.EndTurnID()
		if gap < 0 {
			gap = -gap
		}
		if gap <= d.cfg.AdjacencyGap {
			chain = append(chain, span)
			continue
		}
		flush()
		chain = append(chain, span)
	}
	flush()
	return matches
}

// anchorTimestamp finds the timestamp of the anchor event's turn by scanning
// the spans that contain it. Returns 0 when the turn is not covered or has
// no timestamp.
func anchorTimestamp(spans []transcript.Span, anchor *transcript.Event) float64 {
	for i := range spans {
		for _, turn := range spans[i].Turns {
			if turn.TurnID == anchor.TurnID {
				return turn.Timestamp
			}
		}
	}
	return 0
}

// hasRepeatedAgentTurns reports whether the span contains two or more agent
// turns with near-identical text, a cue for agents stuck in a loop.
func hasRepeatedAgentTurns(span *transcript.Span) bool {
	seen := make(map[string]bool)
	for _, turn := range span.Turns {
		if turn.Speaker != transcript.SpeakerAgent {
			continue
		}
		norm := strings.Join(strings.Fields(strings.ToLower(turn.Text)), " ")
		if norm == "" {
			continue
		}
		if seen[norm] {
			return true
		}
		seen[norm] = true
	}
	return false
}
