package transcript

import (
	"fmt"
	"strings"
)

// Speaker identifies who produced a turn.
type Speaker string

const (
	SpeakerAgent    Speaker = "agent"
	SpeakerCustomer Speaker = "customer"
	SpeakerOther    Speaker = "other"
)

// NormalizeSpeaker maps free-form speaker labels onto the known set.
// Unknown labels collapse to SpeakerOther.
func NormalizeSpeaker(s string) Speaker {
	switch Speaker(strings.ToLower(strings.TrimSpace(s))) {
	case SpeakerAgent:
		return SpeakerAgent
	case SpeakerCustomer:
		return SpeakerCustomer
	default:
		return SpeakerOther
	}
}

// EventType classifies a labeled business occurrence.
type EventType string

const (
	EventEscalation EventType = "escalation"
	EventRefund     EventType = "refund"
	EventChurn      EventType = "churn"
	EventOther      EventType = "other"
)

// ParseEventType resolves a raw event type string, tolerating common variants
// ("escalated", "cancellation", ...). The second return reports whether the
// input mapped onto a recognized type.
func ParseEventType(s string) (EventType, bool) {
	lower := strings.ToLower(strings.TrimSpace(s))
	switch {
	case lower == "":
		return EventOther, false
	case strings.Contains(lower, "escalat"):
		return EventEscalation, true
	case strings.Contains(lower, "refund"):
		return EventRefund, true
	case strings.Contains(lower, "churn"), strings.Contains(lower, "cancel"):
		return EventChurn, true
	default:
		return EventOther, false
	}
}

// Turn is one utterance in a transcript.
type Turn struct {
	TurnID    int64   `json:"turn_id"`
	Speaker   Speaker `json:"speaker"`
	Text      string  `json:"text"`
	Timestamp float64 `json:"timestamp"` // seconds from conversation start
}

// Event is a labeled business occurrence anchored to a turn.
type Event struct {
	Type   EventType `json:"event_type"`
	Label  string    `json:"event_label,omitempty"`
	TurnID int64     `json:"turn_id"`
}

// Transcript is an ordered conversation with its recorded events.
type Transcript struct {
	ID       string                 `json:"transcript_id"`
	Turns    []Turn                 `json:"turns"`
	Events   []Event                `json:"events,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// EventsOfType returns the transcript's events matching the given type,
// in recording order.
func (t *Transcript) EventsOfType(et EventType) []Event {
	var out []Event
	for _, e := range t.Events {
		if e.Type == et {
			out = append(out, e)
		}
	}
	return out
}

// Span is a contiguous window of turns from a single transcript.
// Spans are immutable once built.
type Span struct {
	ID           string `json:"span_id"`
	TranscriptID string `json:"transcript_id"`
	Turns        []Turn `json:"turns"`
	// Event is the nearest event recorded within the window, if any.
	Event *Event `json:"associated_event,omitempty"`
}

// SpanID derives the deterministic span identifier from the transcript id
// and the id of the span's first turn.
func SpanID(transcriptID string, startTurnID int64) string {
	return fmt.Sprintf("%s:%d", transcriptID, startTurnID)
}

// StartTurnID returns the id of the span's first turn, or 0 for an empty span.
func (s *Span) StartTurnID() int64 {
	if len(s.Turns) == 0 {
		return 0
	}
	return s.Turns[0].TurnID
}

// EndTurnID returns the id of the span's last turn, or 0 for an empty span.
func (s *Span) EndTurnID() int64 {
	if len(s.Turns) == 0 {
		return 0
	}
	return s.Turns[len(s.Turns)-1].TurnID
}

// EndTimestamp returns the timestamp of the span's last turn.
func (s *Span) EndTimestamp() float64 {
	if len(s.Turns) == 0 {
		return 0
	}
	return s.Turns[len(s.Turns)-1].Timestamp
}

// Text joins the span's turn texts into one retrievable passage.
func (s *Span) Text() string {
	parts := make([]string, 0, len(s.Turns))
	for _, turn := range s.Turns {
		parts = append(parts, turn.Text)
	}
	return strings.Join(parts, " ")
}

// Speakers returns the ordered speaker sequence for the span.
func (s *Span) Speakers() []Speaker {
	out := make([]Speaker, len(s.Turns))
	for i, turn := range s.Turns {
		out[i] = turn.Speaker
	}
	return out
}

// TurnIDs returns the ordered turn ids covered by the span.
func (s *Span) TurnIDs() []int64 {
	out := make([]int64, len(s.Turns))
	for i, turn := range s.Turns {
		out[i] = turn.TurnID
	}
	return out
}
