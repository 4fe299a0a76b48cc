package transcript

import "fmt"

// Validate checks a transcript's structural invariants: non-empty id,
// strictly increasing turn ids, non-negative and non-decreasing timestamps,
// and events that reference existing turns. Violations are InputErrors.
func Validate(t *Transcript) error {
	if t == nil {
		return NewInputError("transcript", "transcript is nil")
	}
	if t.ID == "" {
		return NewInputError("transcript_id", "transcript id is empty")
	}

	seen := make(map[int64]bool, len(t.Turns))
	var prevID int64
	var prevTS float64
	for i, turn := range t.Turns {
		if i > 0 && turn.TurnID <= prevID {
			return NewInputError("turn_id", fmt.Sprintf(
				"turn ids must be strictly increasing: turn %d follows %d", turn.TurnID, prevID))
		}
		if turn.Timestamp < 0 {
			return NewInputError("timestamp", fmt.Sprintf(
				"turn %d has negative timestamp %f", turn.TurnID, turn.Timestamp))
		}
		if i > 0 && turn.Timestamp < prevTS {
			return NewInputError("timestamp", fmt.Sprintf(
				"timestamps must be non-decreasing: turn %d at %f follows %f", turn.TurnID, turn.Timestamp, prevTS))
		}
		seen[turn.TurnID] = true
		prevID = turn.TurnID
		prevTS = turn.Timestamp
	}

	for _, e := range t.Events {
		if !seen[e.TurnID] {
			return NewInputError("event", fmt.Sprintf(
				"event %q references unknown turn %d", e.Type, e.TurnID))
		}
	}

	return nil
}
