// Package server exposes the engine over a JSON HTTP API.
package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/Ritesh-97/causal-rationale-extraction-system/causal"
	"github.com/Ritesh-97/causal-rationale-extraction-system/corpus"
	"github.com/Ritesh-97/causal-rationale-extraction-system/engine"
	"github.com/Ritesh-97/causal-rationale-extraction-system/transcript"
)

// Server wires the engine and corpus store into HTTP handlers.
type Server struct {
	engine     *engine.Engine
	store      *corpus.Store
	windowSize int
	logger     zerolog.Logger
}

// NewServer creates a Server. windowSize controls span windowing for
// transcripts ingested over HTTP; zero selects the default.
func NewServer(eng *engine.Engine, store *corpus.Store, windowSize int, logger zerolog.Logger) *Server {
	if windowSize <= 0 {
		windowSize = transcript.DefaultWindowSize
	}
	return &Server{
		engine:     eng,
		store:      store,
		windowSize: windowSize,
		logger:     logger.With().Str("component", "http-server").Logger(),
	}
}

// Router builds the gin router with all routes registered.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	r.GET("/healthz", s.handleHealth)
	r.POST("/query", s.handleQuery)
	r.POST("/followup", s.handleFollowup)
	r.POST("/conversations/:id/reset", s.handleReset)
	r.POST("/transcripts", s.handleIngest)
	return r
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		s.logger.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Msg("Request handled")
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	n, err := s.store.Count(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "indexed_spans": n})
}

func (s *Server) handleQuery(c *gin.Context) {
	var req engine.QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	resp, err := s.engine.ProcessQuery(c.Request.Context(), &req)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

type followupRequest struct {
	ConversationID string `json:"conversation_id"`
	Query          string `json:"query"`
}

func (s *Server) handleFollowup(c *gin.Context) {
	var req followupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	resp, err := s.engine.ProcessFollowup(c.Request.Context(), req.ConversationID, req.Query)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleReset(c *gin.Context) {
	if err := s.engine.ResetConversation(c.Request.Context(), c.Param("id")); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "reset"})
}

type ingestRequest struct {
	Transcripts []transcript.Transcript `json:"transcripts"`
}

func (s *Server) handleIngest(c *gin.Context) {
	var req ingestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	total := 0
	for i := range req.Transcripts {
		n, err := s.store.IndexTranscript(c.Request.Context(), &req.Transcripts[i], s.windowSize)
		total += n
		if err != nil {
			s.writeError(c, err)
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"indexed_spans": total, "transcripts": len(req.Transcripts)})
}

// writeError maps the error taxonomy onto HTTP statuses: bad input is the
// caller's fault, collaborator failures are upstream faults, anything else is
// ours.
func (s *Server) writeError(c *gin.Context, err error) {
	switch {
	case transcript.IsInputError(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case causal.IsCollaboratorError(err):
		s.logger.Error().Err(err).Msg("Collaborator failure")
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	case causal.IsConfigurationError(err):
		s.logger.Error().Err(err).Msg("Configuration error surfaced at request time")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	default:
		s.logger.Error().Err(err).Msg("Unhandled error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
