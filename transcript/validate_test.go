package transcript

import "testing"

func TestValidate(t *testing.T) {
	valid := &Transcript{
		ID: "t1",
		Turns: []Turn{
			{TurnID: 1, Timestamp: 1},
			{TurnID: 2, Timestamp: 2},
		},
		Events: []Event{{Type: EventRefund, TurnID: 2}},
	}
	if err := Validate(valid); err != nil {
		t.Fatalf("valid transcript rejected: %v", err)
	}

	tests := []struct {
		name string
		in   *Transcript
	}{
		{"nil", nil},
		{"empty id", &Transcript{Turns: []Turn{{TurnID: 1}}}},
		{"non-increasing turn ids", &Transcript{
			ID:    "t1",
			Turns: []Turn{{TurnID: 2}, {TurnID: 2}},
		}},
		{"decreasing turn ids", &Transcript{
			ID:    "t1",
			Turns: []Turn{{TurnID: 3}, {TurnID: 1}},
		}},
		{"negative timestamp", &Transcript{
			ID:    "t1",
			Turns: []Turn{{TurnID: 1, Timestamp: -5}},
		}},
		{"decreasing timestamps", &Transcript{
			ID:    "t1",
			Turns: []Turn{{TurnID: 1, Timestamp: 10}, {TurnID: 2, Timestamp: 4}},
		}},
		{"event on unknown turn", &Transcript{
			ID:     "t1",
			Turns:  []Turn{{TurnID: 1}},
			Events: []Event{{Type: EventChurn, TurnID: 9}},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.in)
			if err == nil {
				t.Fatal("expected error")
			}
			if !IsInputError(err) {
				t.Fatalf("expected InputError, got %T: %v", err, err)
			}
		})
	}
}
