package engine

import (
	"strings"

	"github.com/Ritesh-97/causal-rationale-extraction-system/transcript"
)

// ParsedQuery is the structured reading of one natural-language question.
type ParsedQuery struct {
	// EventType is the detected business event, empty when the query names
	// none.
	EventType transcript.EventType
	// CausalIntent reports whether the query asks for causes rather than
	// facts.
	CausalIntent bool
	// KeyTerms are the content words used for retrieval.
	KeyTerms []string
}

var causalMarkers = []string{
	"why", "cause", "caused", "reason", "because", "led to", "lead to",
	"due to", "what made", "how come", "result in", "resulted in",
}

var queryStopwords = map[string]bool{
	"a": true, "an": true, "the": true, "and": true, "or": true, "but": true,
	"in": true, "on": true, "at": true, "to": true, "of": true, "for": true,
	"with": true, "was": true, "is": true, "are": true, "were": true,
	"did": true, "do": true, "does": true, "why": true, "what": true,
	"how": true, "when": true, "who": true, "this": true, "that": true,
	"these": true, "those": true, "it": true, "they": true, "them": true,
}

// ParseQuery extracts the event type, causal intent, and key terms from a
// query. Parsing is purely lexical and deterministic.
func ParseQuery(query string) ParsedQuery {
	lower := strings.ToLower(query)

	var parsed ParsedQuery
	if et, ok := transcript.ParseEventType(lower); ok {
		parsed.EventType = et
	}
	for _, marker := range causalMarkers {
		if strings.Contains(lower, marker) {
			parsed.CausalIntent = true
			break
		}
	}
	for _, w := range strings.Fields(lower) {
		w = strings.Trim(w, ".,!?;:\"'")
		if w == "" || queryStopwords[w] {
			continue
		}
		parsed.KeyTerms = append(parsed.KeyTerms, w)
	}
	return parsed
}
