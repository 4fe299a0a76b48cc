package transcript

import "testing"

func makeTranscript(id string, n int) *Transcript {
	t := &Transcript{ID: id}
	for i := 1; i <= n; i++ {
		t.Turns = append(t.Turns, Turn{
			TurnID:    int64(i),
			Speaker:   SpeakerCustomer,
			Text:      "turn",
			Timestamp: float64(i * 10),
		})
	}
	return t
}

func TestWindowsSlidingStride(t *testing.T) {
	tr := makeTranscript("t1", 7)
	spans := Windows(tr, 5)
	if len(spans) != 3 {
		t.Fatalf("got %d spans, want 3", len(spans))
	}
	if spans[0].ID != "t1:1" || spans[1].ID != "t1:2" || spans[2].ID != "t1:3" {
		t.Errorf("span ids = %s, %s, %s", spans[0].ID, spans[1].ID, spans[2].ID)
	}
	for _, s := range spans {
		if len(s.Turns) != 5 {
			t.Errorf("span %s has %d turns, want 5", s.ID, len(s.Turns))
		}
	}
}

func TestWindowsShortTranscript(t *testing.T) {
	tr := makeTranscript("t1", 3)
	spans := Windows(tr, 5)
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	if len(spans[0].Turns) != 3 {
		t.Errorf("short span has %d turns, want 3", len(spans[0].Turns))
	}
}

func TestWindowsEmptyTranscript(t *testing.T) {
	if spans := Windows(&Transcript{ID: "t1"}, 5); spans != nil {
		t.Errorf("empty transcript produced %d spans", len(spans))
	}
}

func TestWindowsAttachNearestEvent(t *testing.T) {
	tr := makeTranscript("t1", 6)
	// Two events inside the first window; turn 4 is nearer the window end.
	tr.Events = []Event{
		{Type: EventRefund, TurnID: 2},
		{Type: EventEscalation, TurnID: 4},
	}
	spans := Windows(tr, 5)
	if spans[0].Event == nil || spans[0].Event.TurnID != 4 {
		t.Fatalf("first span event = %+v, want turn 4", spans[0].Event)
	}
	// Second window covers turns 2..6; both events in range, 4 still nearer.
	if spans[1].Event == nil || spans[1].Event.TurnID != 4 {
		t.Fatalf("second span event = %+v, want turn 4", spans[1].Event)
	}
}

func TestCausalWindow(t *testing.T) {
	tr := makeTranscript("t1", 10)
	event := Event{Type: EventChurn, TurnID: 8}
	tr.Events = []Event{event}

	spans := CausalWindow(tr, event, 4, 0, 5)
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	if spans[0].StartTurnID() != 4 || spans[0].EndTurnID() != 8 {
		t.Errorf("span covers %d..%d, want 4..8", spans[0].StartTurnID(), spans[0].EndTurnID())
	}

	if spans := CausalWindow(tr, Event{TurnID: 99}, 4, 0, 5); spans != nil {
		t.Error("unknown event turn should yield nil")
	}
}

func TestEventWindows(t *testing.T) {
	tr := makeTranscript("t1", 10)
	tr.Events = []Event{
		{Type: EventEscalation, TurnID: 5},
		{Type: EventEscalation, TurnID: 9},
		{Type: EventRefund, TurnID: 3},
	}
	spans := EventWindows(tr, EventEscalation, 4, 5)
	if len(spans) != 2 {
		t.Fatalf("got %d spans, want 2", len(spans))
	}
}
