package conversations

import (
	"strings"

	"github.com/Ritesh-97/causal-rationale-extraction-system/transcript"
)

// MergeStrategy names how a follow-up's evidence combines with prior results.
type MergeStrategy string

const (
	// MergeNone treats the query as standalone.
	MergeNone MergeStrategy = "none"
	// MergeUnionRerank unions prior top evidence with fresh retrieval and
	// re-ranks the combined pool.
	MergeUnionRerank MergeStrategy = "union_rerank"
)

// Classification is the outcome of follow-up detection for one query.
type Classification struct {
	IsFollowup bool          `json:"is_followup"`
	Strategy   MergeStrategy `json:"merge_strategy"`
	// InheritedEventType carries the prior entry's event type when the query
	// itself names none. Empty when not inherited.
	InheritedEventType transcript.EventType `json:"inherited_event_type,omitempty"`
}

// Classifier decides whether a query continues a prior conversation thread.
// Implementations must be pure with respect to their inputs so the same
// (query, state) pair always classifies the same way.
type Classifier interface {
	Classify(query string, prior *State) Classification
}

// HeuristicClassifier detects follow-ups from surface signals: anaphoric
// referents pointing at earlier results, or a query that names no event type
// while the conversation already established one.
type HeuristicClassifier struct {
	referents []string
	phrases   []string
}

// NewHeuristicClassifier creates a classifier with the default referent sets.
func NewHeuristicClassifier() *HeuristicClassifier {
	return &HeuristicClassifier{
		referents: []string{
			"these", "those", "that", "this", "it", "they", "them", "such",
		},
		phrases: []string{
			"what about", "how about", "tell me more", "what else",
			"any other", "and the", "more detail", "more details",
			"why else", "expand on",
		},
	}
}

// Classify reports whether the query is a follow-up to the prior state. A
// query against an empty conversation is never a follow-up.
func (c *HeuristicClassifier) Classify(query string, prior *State) Classification {
	if prior.Empty() {
		return Classification{Strategy: MergeNone}
	}

	lower := strings.ToLower(query)
	if c.hasReferent(lower) {
		return c.followup(lower, prior)
	}

	// A query that names no event type leans on the established thread.
	if _, named := transcript.ParseEventType(lower); !named {
		if latest := prior.Latest(); latest != nil && latest.EventType != "" {
			return c.followup(lower, prior)
		}
	}
	return Classification{Strategy: MergeNone}
}

func (c *HeuristicClassifier) followup(lower string, prior *State) Classification {
	cls := Classification{IsFollowup: true, Strategy: MergeUnionRerank}
	if _, named := transcript.ParseEventType(lower); !named {
		if latest := prior.Latest(); latest != nil {
			cls.InheritedEventType = latest.EventType
		}
	}
	return cls
}

func (c *HeuristicClassifier) hasReferent(lower string) bool {
	for _, p := range c.phrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	for _, w := range strings.Fields(lower) {
		w = strings.Trim(w, ".,!?;:")
		for _, r := range c.referents {
			if w == r {
				return true
			}
		}
	}
	return false
}
