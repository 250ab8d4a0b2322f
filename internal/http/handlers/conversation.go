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

type ConversationHandler struct {
	log      *logger.Logger
	orch     *orchestrator.Orchestrator
	messages repos.MessageRepo
}

func NewConversationHandler(log *logger.Logger, orch *orchestrator.Orchestrator, messages repos.MessageRepo) *ConversationHandler {
	return &ConversationHandler{
		log:      log.With("handler", "ConversationHandler"),
		orch:     orch,
		messages: messages,
	}
}

type inboundRequest struct {
	Text string `json:"text" binding:"required"`
}

// POST /api/conversations/:id/inbound
func (h *ConversationHandler) Inbound(c *gin.Context) {
	conversationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_conversation_id", err)
		return
	}
	var req inboundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "validation_error", err)
		return
	}

	result, err := h.orch.ProcessInbound(c.Request.Context(), conversationID, req.Text, nil)
	if err != nil {
		h.log.Error("inbound failed", "conversation_id", conversationID, "error", err)
		response.RespondError(c, http.StatusInternalServerError, "inbound_failed", err)
		return
	}
	response.RespondOK(c, result)
}

// GET /api/conversations/:id/messages
func (h *ConversationHandler) ListMessages(c *gin.Context) {
	conversationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_conversation_id", err)
		return
	}
	msgs, err := h.messages.ListByConversation(c.Request.Context(), nil, conversationID, 0)
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "list_messages_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"messages": msgs})
}
