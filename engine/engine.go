// Package engine orchestrates the full query path: parse, retrieve, analyze,
// explain, and record conversation history.
package engine

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Ritesh-97/causal-rationale-extraction-system/causal"
	"github.com/Ritesh-97/causal-rationale-extraction-system/conversations"
	"github.com/Ritesh-97/causal-rationale-extraction-system/explain"
	"github.com/Ritesh-97/causal-rationale-extraction-system/retrieval"
	"github.com/Ritesh-97/causal-rationale-extraction-system/transcript"
)

// QueryRequest is one question to the engine. EventType optionally forces the
// event type instead of detecting it from the query. ConversationID is empty
// for a fresh conversation; the engine mints one.
type QueryRequest struct {
	Query          string `json:"query"`
	EventType      string `json:"event_type,omitempty"`
	ConversationID string `json:"conversation_id,omitempty"`
}

// QueryResponse is the complete answer for one query.
type QueryResponse struct {
	ConversationID string                      `json:"conversation_id"`
	Query          string                      `json:"query"`
	EventType      transcript.EventType        `json:"event_type"`
	Evidence       []causal.EvidenceItem       `json:"evidence"`
	EvidenceCount  int                         `json:"evidence_count"`
	NoEvidence     bool                        `json:"no_evidence"`
	Explanation    *explain.Explanation        `json:"explanation,omitempty"`
	IsFollowup     bool                        `json:"is_followup"`
	MergeStrategy  conversations.MergeStrategy `json:"merge_strategy,omitempty"`
}

// Engine wires retrieval, analysis, explanation, and conversation state into
// one request path. It is safe for concurrent use.
type Engine struct {
	pipeline   *retrieval.Pipeline
	analyzer   *causal.Analyzer
	generator  *explain.Generator
	convs      *conversations.Store
	classifier conversations.Classifier
	logger     zerolog.Logger
}

// New creates an Engine. A nil classifier selects the default heuristic one.
func New(pipeline *retrieval.Pipeline, analyzer *causal.Analyzer, generator *explain.Generator,
	convs *conversations.Store, classifier conversations.Classifier, logger zerolog.Logger) *Engine {
	if classifier == nil {
		classifier = conversations.NewHeuristicClassifier()
	}
	return &Engine{
		pipeline:   pipeline,
		analyzer:   analyzer,
		generator:  generator,
		convs:      convs,
		classifier: classifier,
		logger:     logger.With().Str("component", "engine").Logger(),
	}
}

// ProcessQuery answers one question. When the request names an existing
// conversation, the query is classified; a follow-up merges the prior top
// evidence into the fresh retrieval pool before re-ranking. Conversation
// history is appended only after a complete result exists, so a failed
// request leaves the conversation state untouched.
func (e *Engine) ProcessQuery(ctx context.Context, req *QueryRequest) (*QueryResponse, error) {
	if strings.TrimSpace(req.Query) == "" {
		return nil, transcript.NewInputError("query", "must not be empty")
	}

	eventType, err := resolveEventType(req.EventType, req.Query)
	if err != nil {
		return nil, err
	}

	conversationID := req.ConversationID
	minted := conversationID == ""
	if minted {
		conversationID = uuid.NewString()
	}

	var cls conversations.Classification
	var priorIDs []string
	if !minted {
		state, err := e.convs.Get(ctx, conversationID)
		if err != nil {
			return nil, causal.NewCollaboratorError("conversations", err)
		}
		cls = e.classifier.Classify(req.Query, state)
		if cls.IsFollowup {
			if eventType == "" && cls.InheritedEventType != "" {
				eventType = cls.InheritedEventType
			}
			if cls.Strategy == conversations.MergeUnionRerank {
				if latest := state.Latest(); latest != nil {
					priorIDs = latest.TopEvidenceIDs
				}
			}
		}
	}

	resp, err := e.answer(ctx, req.Query, eventType, priorIDs)
	if err != nil {
		return nil, err
	}
	resp.ConversationID = conversationID
	resp.IsFollowup = cls.IsFollowup
	resp.MergeStrategy = cls.Strategy

	if err := e.record(ctx, conversationID, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// ProcessFollowup answers a question that explicitly continues a known
// conversation. Unlike ProcessQuery it requires the conversation id and
// always merges prior evidence when any exists.
func (e *Engine) ProcessFollowup(ctx context.Context, conversationID, query string) (*QueryResponse, error) {
	if strings.TrimSpace(query) == "" {
		return nil, transcript.NewInputError("query", "must not be empty")
	}
	if conversationID == "" {
		return nil, transcript.NewInputError("conversation_id", "required for followup")
	}

	state, err := e.convs.Get(ctx, conversationID)
	if err != nil {
		return nil, causal.NewCollaboratorError("conversations", err)
	}

	eventType, err := resolveEventType("", query)
	if err != nil {
		return nil, err
	}
	var priorIDs []string
	followup := !state.Empty()
	if followup {
		latest := state.Latest()
		if eventType == "" && latest.EventType != "" {
			eventType = latest.EventType
		}
		priorIDs = latest.TopEvidenceIDs
	}

	resp, err := e.answer(ctx, query, eventType, priorIDs)
	if err != nil {
		return nil, err
	}
	resp.ConversationID = conversationID
	resp.IsFollowup = followup
	if followup {
		resp.MergeStrategy = conversations.MergeUnionRerank
	} else {
		resp.MergeStrategy = conversations.MergeNone
	}

	if err := e.record(ctx, conversationID, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// ResetConversation clears a conversation's history.
func (e *Engine) ResetConversation(ctx context.Context, conversationID string) error {
	if conversationID == "" {
		return transcript.NewInputError("conversation_id", "must not be empty")
	}
	if err := e.convs.Reset(ctx, conversationID); err != nil {
		return causal.NewCollaboratorError("conversations", err)
	}
	return nil
}

// answer runs the stateless part of the request: retrieve, analyze, explain.
func (e *Engine) answer(ctx context.Context, query string, eventType transcript.EventType, priorIDs []string) (*QueryResponse, error) {
	candidates, err := e.pipeline.Retrieve(ctx, query, eventType, priorIDs)
	if err != nil {
		return nil, err
	}

	result := e.analyzer.Analyze(query, eventType, candidates)

	explanation, err := e.generator.Explain(ctx, query, result)
	if err != nil {
		return nil, err
	}

	return &QueryResponse{
		Query:         query,
		EventType:     result.EventType,
		Evidence:      result.Evidence,
		EvidenceCount: len(result.Evidence),
		NoEvidence:    result.NoEvidence,
		Explanation:   explanation,
	}, nil
}

// record appends the completed response to conversation history.
func (e *Engine) record(ctx context.Context, conversationID string, resp *QueryResponse) error {
	ids := make([]string, 0, len(resp.Evidence))
	for _, item := range resp.Evidence {
		ids = append(ids, item.Span.ID)
	}
	entry := conversations.Entry{
		Query:          resp.Query,
		EventType:      resp.EventType,
		TopEvidenceIDs: ids,
	}
	if err := e.convs.Append(ctx, conversationID, entry); err != nil {
		return causal.NewCollaboratorError("conversations", err)
	}
	return nil
}

// resolveEventType picks the event type: an explicit override wins and must
// be a known type; otherwise the query text is scanned.
func resolveEventType(override, query string) (transcript.EventType, error) {
	if override != "" {
		et, ok := transcript.ParseEventType(override)
		if !ok {
			return "", transcript.NewInputError("event_type", "unknown event type: "+override)
		}
		return et, nil
	}
	parsed := ParseQuery(query)
	return parsed.EventType, nil
}
