// Package corpus indexes transcript spans in sqlite for keyword, vector, and
// hybrid retrieval.
package corpus

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/rs/zerolog"

	"github.com/Ritesh-97/causal-rationale-extraction-system/transcript"
)

// IndexedSpan is a span as stored in the corpus, with its row id and optional
// embedding.
type IndexedSpan struct {
	RowID     int64
	Span      transcript.Span
	Embedding []float32
	CreatedAt time.Time
}

// Store persists spans and serves retrieval queries over them.
type Store struct {
	db       *sql.DB
	embedder Embedder
	logger   zerolog.Logger
}

// NewStore creates a span store. The embedder may be nil, in which case
// indexed spans carry no embedding and vector search degrades to no results.
func NewStore(db *sql.DB, embedder Embedder, logger zerolog.Logger) *Store {
	return &Store{
		db:       db,
		embedder: embedder,
		logger:   logger.With().Str("component", "corpus-store").Logger(),
	}
}

// IndexTranscript windows the transcript and indexes every span. Returns the
// number of spans written.
func (s *Store) IndexTranscript(ctx context.Context, t *transcript.Transcript, windowSize int) (int, error) {
	if err := transcript.Validate(t); err != nil {
		return 0, err
	}
	spans := transcript.Windows(t, windowSize)
	for i := range spans {
		if err := s.IndexSpan(ctx, &spans[i]); err != nil {
			return i, fmt.Errorf("index span %s: %w", spans[i].ID, err)
		}
	}
	s.logger.Info().
		Str("transcriptID", t.ID).
		Int("spans", len(spans)).
		Msg("Indexed transcript")
	return len(spans), nil
}

// IndexSpan writes one span and its FTS row. Re-indexing an existing span id
// replaces the stored copy.
func (s *Store) IndexSpan(ctx context.Context, span *transcript.Span) error {
	turnsJSON, err := json.Marshal(span.Turns)
	if err != nil {
		return fmt.Errorf("marshal turns: %w", err)
	}

	var emb []byte
	if s.embedder != nil {
		vec, err := s.embedder.Embed(ctx, span.Text())
		if err != nil {
			return fmt.Errorf("embed span text: %w", err)
		}
		emb = EncodeEmbedding(vec)
	}

	var eventType, eventLabel sql.NullString
	var eventTurn sql.NullInt64
	if span.Event != nil {
		eventType = sql.NullString{String: string(span.Event.Type), Valid: true}
		eventLabel = sql.NullString{String: span.Event.Label, Valid: true}
		eventTurn = sql.NullInt64{Int64: span.Event.TurnID, Valid: true}
	}

	// Replace any previous copy of the span before inserting.
	if err := s.deleteSpan(ctx, span.ID); err != nil {
		return err
	}

	query := sq.Insert("spans").
		Columns("span_id", "transcript_id", "start_turn_id", "end_turn_id",
			"turns", "event_type", "event_label", "event_turn_id", "embedding", "created_at").
		Values(span.ID, span.TranscriptID, span.StartTurnID(), span.EndTurnID(),
			string(turnsJSON), eventType, eventLabel, eventTurn, emb, time.Now().Unix())
	queryStr, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	res, err := s.db.ExecContext(ctx, queryStr, args...)
	if err != nil {
		return fmt.Errorf("insert span: %w", err)
	}
	rowID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, `
INSERT INTO spans_fts (docid, content) VALUES (?, ?)
`, rowID, span.Text()); err != nil {
		s.logger.Error().Err(err).Str("spanID", span.ID).Msg("Failed to insert spans_fts row")
		return fmt.Errorf("insert fts: %w", err)
	}
	return nil
}

func (s *Store) deleteSpan(ctx context.Context, spanID string) error {
	var rowID int64
	err := s.db.QueryRowContext(ctx, `SELECT id FROM spans WHERE span_id = ?`, spanID).Scan(&rowID)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return fmt.Errorf("lookup span: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM spans_fts WHERE docid = ?`, rowID); err != nil {
		return fmt.Errorf("delete fts row: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM spans WHERE id = ?`, rowID); err != nil {
		return fmt.Errorf("delete span: %w", err)
	}
	return nil
}

// GetSpans loads spans by their span ids. Unknown ids are silently skipped;
// the result order follows the input order.
func (s *Store) GetSpans(ctx context.Context, spanIDs []string) ([]IndexedSpan, error) {
	if len(spanIDs) == 0 {
		return nil, nil
	}
	query := sq.Select(spanColumns...).
		From("spans").
		Where(sq.Eq{"span_id": spanIDs})
	queryStr, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, queryStr, args...)
	if err != nil {
		return nil, fmt.Errorf("load spans: %w", err)
	}
	defer rows.Close() //nolint:errcheck // no remedy for rows close error

	byID := make(map[string]IndexedSpan, len(spanIDs))
	for rows.Next() {
		is, err := loadSpanFromRow(rows)
		if err != nil {
			return nil, err
		}
		byID[is.Span.ID] = *is
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]IndexedSpan, 0, len(byID))
	for _, id := range spanIDs {
		if is, ok := byID[id]; ok {
			out = append(out, is)
		}
	}
	return out, nil
}

// Count returns the number of indexed spans.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM spans`).Scan(&n)
	return n, err
}

var spanColumns = []string{
	"id", "span_id", "transcript_id", "turns",
	"event_type", "event_label", "event_turn_id", "embedding", "created_at",
}

func loadSpanFromRow(rows *sql.Rows) (*IndexedSpan, error) {
	var (
		rowID      int64
		spanID     string
		tID        string
		turnsJSON  string
		eventType  sql.NullString
		eventLabel sql.NullString
		eventTurn  sql.NullInt64
		embBlob    []byte
		createdAt  int64
	)
	if err := rows.Scan(&rowID, &spanID, &tID, &turnsJSON,
		&eventType, &eventLabel, &eventTurn, &embBlob, &createdAt); err != nil {
		return nil, err
	}

	var turns []transcript.Turn
	if err := json.Unmarshal([]byte(turnsJSON), &turns); err != nil {
		return nil, fmt.Errorf("unmarshal turns for %s: %w", spanID, err)
	}

	vec, err := DecodeEmbedding(embBlob)
	if err != nil {
		return nil, err
	}

	span := transcript.Span{
		ID:           spanID,
		TranscriptID: tID,
		Turns:        turns,
	}
	if eventType.Valid && eventType.String != "" {
		span.Event = &transcript.Event{
			Type:   transcript.EventType(eventType.String),
			Label:  eventLabel.String,
			TurnID: eventTurn.Int64,
		}
	}

	return &IndexedSpan{
		RowID:     rowID,
		Span:      span,
		Embedding: vec,
		CreatedAt: time.Unix(createdAt, 0),
	}, nil
}

// ftsQuote prepares user text for a full-text MATCH expression. Each term is
// double-quoted so punctuation in the query cannot break the match syntax.
func ftsQuote(text string) string {
	fields := strings.Fields(text)
	quoted := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.ReplaceAll(f, `"`, "")
		if f == "" {
			continue
		}
		quoted = append(quoted, `"`+f+`"`)
	}
	return strings.Join(quoted, " OR ")
}
