package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tener/recruit-core/internal/http/response"
	"github.com/tener/recruit-core/internal/orchestrator"
	"github.com/tener/recruit-core/internal/platform/logger"
	"github.com/tener/recruit-core/internal/repos"
)

type PreResumeHandler struct {
	log      *logger.Logger
	orch     *orchestrator.Orchestrator
	sessions repos.PreResumeSessionRepo
	events   repos.PreResumeEventRepo
}

func NewPreResumeHandler(log *logger.Logger, orch *orchestrator.Orchestrator, sessions repos.PreResumeSessionRepo, events repos.PreResumeEventRepo) *PreResumeHandler {
	return &PreResumeHandler{
		log:      log.With("handler", "PreResumeHandler"),
		orch:     orch,
		sessions: sessions,
		events:   events,
	}
}

type startSessionRequest struct {
	ConversationID uuid.UUID `json:"conversation_id" binding:"required"`
	ScopeSummary   string    `json:"scope_summary"`
	Language       string    `json:"language"`
}

// POST /api/pre-resume/start
func (h *PreResumeHandler) Start(c *gin.Context) {
	var req startSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "validation_error", err)
		return
	}
	session, intro, err := h.orch.StartPreResumeSession(c.Request.Context(), req.ConversationID, req.ScopeSummary, req.Language)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"session": session, "intro": intro})
}

type sessionInboundRequest struct {
	Text string `json:"text" binding:"required"`
}

// POST /api/pre-resume/:id/inbound
func (h *PreResumeHandler) Inbound(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_session_id", err)
		return
	}
	var req sessionInboundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "validation_error", err)
		return
	}
	session, err := h.sessions.GetByID(c.Request.Context(), nil, sessionID)
	if err != nil {
		response.RespondError(c, http.StatusNotFound, "session_not_found", err)
		return
	}
	result, err := h.orch.ProcessInbound(c.Request.Context(), session.ConversationID, req.Text, nil)
	if err != nil {
		h.log.Error("pre-resume inbound failed", "session_id", sessionID, "error", err)
		response.RespondError(c, http.StatusInternalServerError, "inbound_failed", err)
		return
	}
	response.RespondOK(c, result)
}

// POST /api/pre-resume/:id/followup
func (h *PreResumeHandler) Followup(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_session_id", err)
		return
	}
	sent, reason, session, err := h.orch.ForceFollowup(c.Request.Context(), sessionID)
	if err != nil {
		h.log.Error("forced followup failed", "session_id", sessionID, "error", err)
		response.RespondError(c, http.StatusInternalServerError, "followup_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"sent": sent, "reason": reason, "session": session})
}

type unreachableRequest struct {
	Error string `json:"error"`
}

// POST /api/pre-resume/:id/unreachable
func (h *PreResumeHandler) Unreachable(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_session_id", err)
		return
	}
	var req unreachableRequest
	_ = c.ShouldBindJSON(&req)

	session, err := h.orch.MarkSessionUnreachable(c.Request.Context(), sessionID, req.Error)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"session": session})
}

// GET /api/pre-resume/:id
func (h *PreResumeHandler) Get(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_session_id", err)
		return
	}
	session, err := h.orch.GetPreResumeSession(c.Request.Context(), sessionID)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	events, err := h.events.ListBySession(c.Request.Context(), nil, session.ID)
	if err != nil {
		h.log.Warn("session events load failed", "error", err)
	}
	response.RespondOK(c, gin.H{"session": session, "events": events})
}
