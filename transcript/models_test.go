package transcript

import (
	"reflect"
	"testing"
)

func TestParseEventType(t *testing.T) {
	tests := []struct {
		in     string
		want   EventType
		wantOK bool
	}{
		{"escalation", EventEscalation, true},
		{"Escalated", EventEscalation, true},
		{"refund", EventRefund, true},
		{"REFUND", EventRefund, true},
		{"churn", EventChurn, true},
		{"cancellation", EventChurn, true},
		{"", EventOther, false},
		{"greeting", EventOther, false},
	}
	for _, tt := range tests {
		got, ok := ParseEventType(tt.in)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("ParseEventType(%q) = (%v, %v), want (%v, %v)", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestNormalizeSpeaker(t *testing.T) {
	tests := []struct {
		in   string
		want Speaker
	}{
		{"agent", SpeakerAgent},
		{" Agent ", SpeakerAgent},
		{"customer", SpeakerCustomer},
		{"bot", SpeakerOther},
		{"", SpeakerOther},
	}
	for _, tt := range tests {
		if got := NormalizeSpeaker(tt.in); got != tt.want {
			t.Errorf("NormalizeSpeaker(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestSpanID(t *testing.T) {
	if got := SpanID("t1", 7); got != "t1:7" {
		t.Errorf("SpanID = %q, want t1:7", got)
	}
}

func TestSpanAccessors(t *testing.T) {
	span := Span{
		ID:           "t1:1",
		TranscriptID: "t1",
		Turns: []Turn{
			{TurnID: 1, Speaker: SpeakerCustomer, Text: "hello", Timestamp: 1.0},
			{TurnID: 2, Speaker: SpeakerAgent, Text: "hi there", Timestamp: 2.5},
		},
	}
	if span.StartTurnID() != 1 || span.EndTurnID() != 2 {
		t.Errorf("turn id bounds = (%d, %d), want (1, 2)", span.StartTurnID(), span.EndTurnID())
	}
	if span.EndTimestamp() != 2.5 {
		t.Errorf("EndTimestamp = %v, want 2.5", span.EndTimestamp())
	}
	if span.Text() != "hello hi there" {
		t.Errorf("Text = %q", span.Text())
	}
	if !reflect.DeepEqual(span.TurnIDs(), []int64{1, 2}) {
		t.Errorf("TurnIDs = %v", span.TurnIDs())
	}
	if !reflect.DeepEqual(span.Speakers(), []Speaker{SpeakerCustomer, SpeakerAgent}) {
		t.Errorf("Speakers = %v", span.Speakers())
	}

	empty := Span{}
	if empty.StartTurnID() != 0 || empty.EndTurnID() != 0 || empty.EndTimestamp() != 0 {
		t.Error("empty span accessors should all return zero")
	}
}

func TestEventsOfType(t *testing.T) {
	tr := Transcript{
		ID: "t1",
		Events: []Event{
			{Type: EventEscalation, TurnID: 3},
			{Type: EventRefund, TurnID: 5},
			{Type: EventEscalation, TurnID: 9},
		},
	}
	got := tr.EventsOfType(EventEscalation)
	if len(got) != 2 || got[0].TurnID != 3 || got[1].TurnID != 9 {
		t.Errorf("EventsOfType = %+v", got)
	}
	if len(tr.EventsOfType(EventChurn)) != 0 {
		t.Error("expected no churn events")
	}
}
