package transcript

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadJSON(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "conv1.json", `{
  "transcript_id": "conv1",
  "turns": [
    {"turn_id": 1, "speaker": "Customer", "text": "my order is broken", "timestamp": 5},
    {"turn_id": 2, "speaker": "agent", "text": "let me check", "timestamp": 9}
  ],
  "events": [{"event_type": "refund", "turn_id": 2}]
}`)

	loader := NewLoader(zerolog.Nop())
	tr, err := loader.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if tr.ID != "conv1" || len(tr.Turns) != 2 {
		t.Fatalf("unexpected transcript: %+v", tr)
	}
	if tr.Turns[0].Speaker != SpeakerCustomer {
		t.Errorf("speaker not normalized: %v", tr.Turns[0].Speaker)
	}
	if len(tr.Events) != 1 || tr.Events[0].Type != EventRefund {
		t.Errorf("events = %+v", tr.Events)
	}
}

func TestLoadJSONDefaultsIDFromFilename(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "support_call.json", `{
  "turns": [{"turn_id": 1, "speaker": "customer", "text": "hi"}]
}`)

	tr, err := NewLoader(zerolog.Nop()).Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if tr.ID != "support_call" {
		t.Errorf("id = %q, want support_call", tr.ID)
	}
}

func TestLoadCSV(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "conv.csv",
		"transcript_id,turn_id,speaker,text,timestamp,event_type\n"+
			"c2,1,customer,this is too expensive,10,\n"+
			"c2,2,customer,I want to cancel,20,churn\n")

	tr, err := NewLoader(zerolog.Nop()).Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if tr.ID != "c2" || len(tr.Turns) != 2 {
		t.Fatalf("unexpected transcript: %+v", tr)
	}
	if len(tr.Events) != 1 || tr.Events[0].Type != EventChurn || tr.Events[0].TurnID != 2 {
		t.Errorf("events = %+v", tr.Events)
	}
}

func TestLoadCSVMissingColumn(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "bad.csv", "transcript_id,turn_id,text\nc1,1,hi\n")

	_, err := NewLoader(zerolog.Nop()).Load(path)
	if !IsInputError(err) {
		t.Fatalf("expected InputError, got %v", err)
	}
}

func TestLoadTXT(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "chat.txt",
		"Customer: my package never arrived\nAgent: I am sorry to hear that\n\nnot a turn line\n")

	tr, err := NewLoader(zerolog.Nop()).Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if tr.ID != "chat" || len(tr.Turns) != 2 {
		t.Fatalf("unexpected transcript: %+v", tr)
	}
	if tr.Turns[1].Speaker != SpeakerAgent {
		t.Errorf("speaker = %v", tr.Turns[1].Speaker)
	}
}

func TestLoadUnsupportedFormat(t *testing.T) {
	_, err := NewLoader(zerolog.Nop()).Load("notes.md")
	if !IsInputError(err) {
		t.Fatalf("expected InputError, got %v", err)
	}
}

func TestLoadBatchSkipsBadFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "good.json", `{"transcript_id": "g", "turns": [{"turn_id": 1, "speaker": "customer", "text": "hi"}]}`)
	writeFile(t, dir, "bad.json", `{{{`)

	ts, err := NewLoader(zerolog.Nop()).LoadBatch(dir, "*.json")
	if err != nil {
		t.Fatalf("LoadBatch: %v", err)
	}
	if len(ts) != 1 || ts[0].ID != "g" {
		t.Fatalf("got %d transcripts", len(ts))
	}
}
