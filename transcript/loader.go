package transcript

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

// Loader reads transcripts from disk. Supported formats:
//   - JSON: {"transcript_id": ..., "turns": [...], "events": [...]} or a list thereof
//   - CSV: columns transcript_id, turn_id, speaker, text [, timestamp, event_type, event_label]
//   - TXT: "Speaker: text" lines, one turn per line
type Loader struct {
	logger zerolog.Logger
}

// NewLoader creates a transcript loader.
func NewLoader(logger zerolog.Logger) *Loader {
	return &Loader{logger: logger.With().Str("component", "transcript-loader").Logger()}
}

// Load reads and validates a single transcript file. A JSON file holding a
// list yields the first transcript; use LoadBatch for whole batches.
func (l *Loader) Load(path string) (*Transcript, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		ts, err := l.loadJSON(path)
		if err != nil {
			return nil, err
		}
		if len(ts) == 0 {
			return nil, NewInputError("file", fmt.Sprintf("no transcripts in %s", path))
		}
		return ts[0], nil
	case ".csv":
		return l.loadCSV(path)
	case ".txt":
		return l.loadTXT(path)
	default:
		return nil, NewInputError("file", fmt.Sprintf("unsupported transcript format %q", filepath.Ext(path)))
	}
}

// LoadBatch reads every transcript matching pattern under dir. Files that
// fail to parse are logged and skipped rather than failing the batch.
func (l *Loader) LoadBatch(dir, pattern string) ([]*Transcript, error) {
	if pattern == "" {
		pattern = "*.json"
	}
	paths, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return nil, fmt.Errorf("glob %s: %w", pattern, err)
	}

	var out []*Transcript
	for _, path := range paths {
		var loaded []*Transcript
		if strings.EqualFold(filepath.Ext(path), ".json") {
			loaded, err = l.loadJSON(path)
		} else {
			var t *Transcript
			t, err = l.Load(path)
			if t != nil {
				loaded = []*Transcript{t}
			}
		}
		if err != nil {
			l.logger.Warn().Err(err).Str("path", path).Msg("Skipping unparseable transcript file")
			continue
		}
		out = append(out, loaded...)
	}
	l.logger.Info().Int("files", len(paths)).Int("transcripts", len(out)).Msg("Loaded transcript batch")
	return out, nil
}

func (l *Loader) loadJSON(path string) ([]*Transcript, error) {
	data, err := os.ReadFile(path) //#nosec 304 -- intentional file read for ingestion
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var many []*Transcript
	if err := json.Unmarshal(data, &many); err != nil {
		var one Transcript
		if err2 := json.Unmarshal(data, &one); err2 != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err2)
		}
		many = []*Transcript{&one}
	}

	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	for i, t := range many {
		if t.ID == "" {
			if len(many) == 1 {
				t.ID = stem
			} else {
				t.ID = fmt.Sprintf("%s_%d", stem, i)
			}
		}
		normalize(t)
		if err := Validate(t); err != nil {
			return nil, err
		}
	}
	return many, nil
}

func (l *Loader) loadCSV(path string) (*Transcript, error) {
	f, err := os.Open(path) //#nosec 304 -- intentional file read for ingestion
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck // read-only file

	r := csv.NewReader(f)
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(records) < 2 {
		return nil, NewInputError("file", fmt.Sprintf("no data rows in %s", path))
	}

	col := make(map[string]int, len(records[0]))
	for i, name := range records[0] {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"transcript_id", "turn_id", "speaker", "text"} {
		if _, ok := col[required]; !ok {
			return nil, NewInputError("file", fmt.Sprintf("csv missing required column %q", required))
		}
	}

	t := &Transcript{}
	for _, row := range records[1:] {
		if t.ID == "" {
			t.ID = row[col["transcript_id"]]
		}
		turnID, err := strconv.ParseInt(strings.TrimSpace(row[col["turn_id"]]), 10, 64)
		if err != nil {
			return nil, NewInputError("turn_id", fmt.Sprintf("bad turn id %q", row[col["turn_id"]]))
		}
		turn := Turn{
			TurnID:  turnID,
			Speaker: NormalizeSpeaker(row[col["speaker"]]),
			Text:    row[col["text"]],
		}
		if i, ok := col["timestamp"]; ok && strings.TrimSpace(row[i]) != "" {
			ts, err := strconv.ParseFloat(strings.TrimSpace(row[i]), 64)
			if err != nil {
				return nil, NewInputError("timestamp", fmt.Sprintf("bad timestamp %q", row[i]))
			}
			turn.Timestamp = ts
		}
		t.Turns = append(t.Turns, turn)

		if i, ok := col["event_type"]; ok && strings.TrimSpace(row[i]) != "" {
			et, _ := ParseEventType(row[i])
			event := Event{Type: et, TurnID: turnID}
			if j, ok := col["event_label"]; ok {
				event.Label = strings.TrimSpace(row[j])
			}
			t.Events = append(t.Events, event)
		}
	}

	if err := Validate(t); err != nil {
		return nil, err
	}
	return t, nil
}

func (l *Loader) loadTXT(path string) (*Transcript, error) {
	data, err := os.ReadFile(path) //#nosec 304 -- intentional file read for ingestion
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	t := &Transcript{ID: strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))}
	var turnID int64
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		speaker, text, ok := strings.Cut(line, ":")
		if !ok || strings.TrimSpace(text) == "" {
			continue
		}
		turnID++
		t.Turns = append(t.Turns, Turn{
			TurnID:  turnID,
			Speaker: NormalizeSpeaker(speaker),
			Text:    strings.TrimSpace(text),
		})
	}

	if err := Validate(t); err != nil {
		return nil, err
	}
	return t, nil
}

// normalize cleans up parsed fields so downstream validation sees canonical
// speakers and event types.
func normalize(t *Transcript) {
	for i := range t.Turns {
		t.Turns[i].Speaker = NormalizeSpeaker(string(t.Turns[i].Speaker))
	}
	for i := range t.Events {
		et, _ := ParseEventType(string(t.Events[i].Type))
		t.Events[i].Type = et
	}
}
