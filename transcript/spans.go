package transcript

// DefaultWindowSize is the default number of turns per span.
const DefaultWindowSize = 5

// Windows slices a transcript into overlapping spans of windowSize turns,
// advancing one turn at a time. A transcript shorter than windowSize yields
// a single shorter span covering all of its turns. Each span is annotated
// with the nearest event recorded inside its window, if any.
func Windows(t *Transcript, windowSize int) []Span {
	if windowSize <= 0 {
		windowSize = DefaultWindowSize
	}
	if len(t.Turns) == 0 {
		return nil
	}

	if len(t.Turns) < windowSize {
		return []Span{buildSpan(t, t.Turns)}
	}

	spans := make([]Span, 0, len(t.Turns)-windowSize+1)
	for i := 0; i+windowSize <= len(t.Turns); i++ {
		spans = append(spans, buildSpan(t, t.Turns[i:i+windowSize]))
	}
	return spans
}

// CausalWindow extracts the spans surrounding an event: windowBefore turns
// preceding the event turn and windowAfter turns following it, windowed with
// windowSize. Returns nil when the event's turn is not in the transcript.
func CausalWindow(t *Transcript, event Event, windowBefore, windowAfter, windowSize int) []Span {
	idx := -1
	for i, turn := range t.Turns {
		if turn.TurnID == event.TurnID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil
	}

	start := idx - windowBefore
	if start < 0 {
		start = 0
	}
	end := idx + windowAfter + 1
	if end > len(t.Turns) {
		end = len(t.Turns)
	}

	sub := &Transcript{
		ID:     t.ID,
		Turns:  t.Turns[start:end],
		Events: t.Events,
	}
	return Windows(sub, windowSize)
}

// EventWindows extracts causal windows for every event of the given type,
// looking windowBefore turns back from each event.
func EventWindows(t *Transcript, et EventType, windowBefore, windowSize int) []Span {
	var spans []Span
	for _, e := range t.EventsOfType(et) {
		spans = append(spans, CausalWindow(t, e, windowBefore, 0, windowSize)...)
	}
	return spans
}

// buildSpan constructs a span over the given turn slice and attaches the
// nearest in-window event. "Nearest" means closest to the span's last turn,
// preferring the later event on ties, since evidence windows trail events.
func buildSpan(t *Transcript, turns []Turn) Span {
	span := Span{
		ID:           SpanID(t.ID, turns[0].TurnID),
		TranscriptID: t.ID,
		Turns:        turns,
	}

	startID := turns[0].TurnID
	endID := turns[len(turns)-1].TurnID
	var best *Event
	var bestDist int64
	for i := range t.Events {
		e := t.Events[i]
		if e.TurnID < startID || e.TurnID > endID {
			continue
		}
		dist := endID - e.TurnID
		if best == nil || dist < bestDist || (dist == bestDist && e.TurnID > best.TurnID) {
			ev := e
			best = &ev
			bestDist = dist
		}
	}
	span.Event = best
	return span
}
