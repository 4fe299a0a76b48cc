// Package conversations persists per-conversation query history with bounded
// FIFO retention and inactivity-based expiry.
package conversations

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/rs/zerolog"

	"github.com/Ritesh-97/causal-rationale-extraction-system/causal"
	"github.com/Ritesh-97/causal-rationale-extraction-system/transcript"
)

const (
	// DefaultHistoryDepth bounds the entries retained per conversation.
	DefaultHistoryDepth = 10
	// DefaultTTL is the inactivity window after which a whole conversation
	// expires.
	DefaultTTL = time.Hour
)

// Entry is one recorded query in a conversation's history. Entries are
// append-only; they are never mutated after being written.
type Entry struct {
	Query          string               `json:"query"`
	EventType      transcript.EventType `json:"event_type"`
	Timestamp      time.Time            `json:"timestamp"`
	TopEvidenceIDs []string             `json:"top_evidence_ids"`
}

// State is the rolling history for one conversation, oldest entry first.
type State struct {
	ConversationID string  `json:"conversation_id"`
	Entries        []Entry `json:"entries"`
}

// Empty reports whether the conversation has no recorded history.
func (s *State) Empty() bool {
	return s == nil || len(s.Entries) == 0
}

// Latest returns the most recent entry, or nil for an empty state.
func (s *State) Latest() *Entry {
	if s.Empty() {
		return nil
	}
	return &s.Entries[len(s.Entries)-1]
}

// Store persists conversation history. All mutation of one conversation's
// state is serialized through a per-conversation lock; reads may run
// concurrently with other conversations' reads and writes.
type Store struct {
	db     *sql.DB
	depth  int
	ttl    time.Duration
	logger zerolog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewStore creates a conversation store. depth and ttl of zero select the
// defaults; negative values are configuration errors.
func NewStore(db *sql.DB, depth int, ttl time.Duration, logger zerolog.Logger) (*Store, error) {
	if depth == 0 {
		depth = DefaultHistoryDepth
	}
	if depth < 0 {
		return nil, &causal.ConfigurationError{Setting: "history_depth", Message: "must be positive"}
	}
	if ttl == 0 {
		ttl = DefaultTTL
	}
	if ttl < 0 {
		return nil, &causal.ConfigurationError{Setting: "ttl", Message: "must be positive"}
	}
	return &Store{
		db:     db,
		depth:  depth,
		ttl:    ttl,
		logger: logger.With().Str("component", "conversation-store").Logger(),
		locks:  make(map[string]*sync.Mutex),
	}, nil
}

// lockFor returns the mutex serializing mutations for one conversation id.
func (s *Store) lockFor(conversationID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.locks[conversationID]
	if !ok {
		m = &sync.Mutex{}
		s.locks[conversationID] = m
	}
	return m
}

// Append records an entry for the conversation and trims history to the
// configured depth, oldest entries first. The append is applied whole once
// the caller has a complete result; a partially computed request should never
// reach this method.
func (s *Store) Append(ctx context.Context, conversationID string, entry Entry) error {
	lock := s.lockFor(conversationID)
	lock.Lock()
	defer lock.Unlock()

	idsJSON, err := json.Marshal(entry.TopEvidenceIDs)
	if err != nil {
		return fmt.Errorf("marshal evidence ids: %w", err)
	}
	ts := entry.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	query := sq.Insert("conversation_entries").
		Columns("conversation_id", "query_text", "event_type", "evidence_ids", "created_at").
		Values(conversationID, entry.Query, string(entry.EventType), string(idsJSON), ts.Unix())
	queryStr, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	// Insert and FIFO trim commit together so readers never observe more than
	// depth entries.
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin append: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op once committed

	if _, err := tx.ExecContext(ctx, queryStr, args...); err != nil {
		return fmt.Errorf("insert entry: %w", err)
	}

	trim := `
DELETE FROM conversation_entries
WHERE conversation_id = ?
  AND id NOT IN (
    SELECT id FROM conversation_entries
    WHERE conversation_id = ?
    ORDER BY id DESC
    LIMIT ?
  )`
	if _, err := tx.ExecContext(ctx, trim, conversationID, conversationID, s.depth); err != nil {
		return fmt.Errorf("trim history: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit append: %w", err)
	}

	s.logger.Debug().
		Str("conversationID", conversationID).
		Str("eventType", string(entry.EventType)).
		Int("evidenceIDs", len(entry.TopEvidenceIDs)).
		Msg("Appended conversation entry")
	return nil
}

// Get returns the conversation's state, oldest entry first. An unknown
// conversation id yields an empty state, never an error.
func (s *Store) Get(ctx context.Context, conversationID string) (*State, error) {
	query := sq.Select("query_text", "event_type", "evidence_ids", "created_at").
		From("conversation_entries").
		Where(sq.Eq{"conversation_id": conversationID}).
		OrderBy("id ASC")
	queryStr, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, queryStr, args...)
	if err != nil {
		return nil, fmt.Errorf("load state: %w", err)
	}
	defer rows.Close() //nolint:errcheck // no remedy for rows close error

	state := &State{ConversationID: conversationID}
	for rows.Next() {
		var (
			queryText string
			eventType string
			idsJSON   string
			createdAt int64
		)
		if err := rows.Scan(&queryText, &eventType, &idsJSON, &createdAt); err != nil {
			return nil, err
		}
		var ids []string
		if idsJSON != "" {
			if err := json.Unmarshal([]byte(idsJSON), &ids); err != nil {
				ids = nil
			}
		}
		state.Entries = append(state.Entries, Entry{
			Query:          queryText,
			EventType:      transcript.EventType(eventType),
			Timestamp:      time.Unix(createdAt, 0),
			TopEvidenceIDs: ids,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return state, nil
}

// Reset explicitly clears a conversation's history.
func (s *Store) Reset(ctx context.Context, conversationID string) error {
	lock := s.lockFor(conversationID)
	lock.Lock()
	defer lock.Unlock()

	query := sq.Delete("conversation_entries").Where(sq.Eq{"conversation_id": conversationID})
	queryStr, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	_, err = s.db.ExecContext(ctx, queryStr, args...)
	return err
}

// EvictExpired deletes every conversation whose latest activity is older than
// the TTL. It returns the number of entries removed.
func (s *Store) EvictExpired(ctx context.Context) (int64, error) {
	cutoff := time.Now().Add(-s.ttl).Unix()
	query := `
DELETE FROM conversation_entries
WHERE conversation_id IN (
  SELECT conversation_id FROM conversation_entries
  GROUP BY conversation_id
  HAVING MAX(created_at) < ?
)`
	res, err := s.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("evict expired conversations: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Info().Int64("entries", n).Msg("Evicted expired conversations")
	}
	return n, nil
}
