package causal

import "github.com/Ritesh-97/causal-rationale-extraction-system/transcript"

// CueTable is a versioned mapping from event type to the lexical cues and
// trigger phrases used by behavioral and event-specific detection. It is a
// plain configuration structure so cue sets can be tested and swapped
// independently of the detector.
type CueTable struct {
	Version string `yaml:"version"`
	// Cues are single words or short phrases whose occurrence count drives
	// behavioral strength.
	Cues map[transcript.EventType][]string `yaml:"cues"`
	// Triggers are known phrases whose presence alone flags a span at full
	// strength for the event type.
	Triggers map[transcript.EventType][]string `yaml:"triggers"`
}

// DefaultCueTable returns the v1 cue table.
func DefaultCueTable() CueTable {
	return CueTable{
		Version: "v1",
		Cues: map[transcript.EventType][]string{
			transcript.EventEscalation: {
				"supervisor", "manager", "escalate", "complaint", "formal",
				"frustrated", "annoyed", "upset", "disappointed",
			},
			transcript.EventRefund: {
				"refund", "money back", "return", "cancel", "chargeback",
				"defective", "broken",
			},
			transcript.EventChurn: {
				"cancel", "close account", "switch", "leave", "terminate",
				"competitor", "unsubscribe",
			},
		},
		Triggers: map[transcript.EventType][]string{
			transcript.EventEscalation: {
				"not satisfied", "unhappy", "want to speak", "need manager",
				"file complaint", "not helping", "waste of time",
			},
			transcript.EventRefund: {
				"not working", "defective", "broken", "not as described",
				"want money back", "dissatisfied", "poor quality",
			},
			transcript.EventChurn: {
				"too expensive", "better option", "switching", "leaving",
				"not worth it", "found alternative", "better deal",
			},
		},
	}
}
