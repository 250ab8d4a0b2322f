package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tener/recruit-core/internal/http/response"
	"github.com/tener/recruit-core/internal/orchestrator"
	"github.com/tener/recruit-core/internal/platform/logger"
)

type WorkflowHandler struct {
	log  *logger.Logger
	orch *orchestrator.Orchestrator
}

func NewWorkflowHandler(log *logger.Logger, orch *orchestrator.Orchestrator) *WorkflowHandler {
	return &WorkflowHandler{log: log.With("handler", "WorkflowHandler"), orch: orch}
}

type runStageRequest struct {
	JobID   uuid.UUID      `json:"job_id" binding:"required"`
	Payload map[string]any `json:"payload"`
}

// POST /api/workflow/:step
func (h *WorkflowHandler) RunStage(c *gin.Context) {
	step := c.Param("step")
	var req runStageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "validation_error", err)
		return
	}

	out, err := h.orch.RunStage(c.Request.Context(), step, req.JobID, req.Payload)
	if err != nil {
		h.log.Error("RunStage failed", "step", step, "job_id", req.JobID, "error", err)
		response.RespondError(c, http.StatusBadGateway, "stage_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"step": step, "job_id": req.JobID, "summary": out})
}

// POST /api/scheduler/followup-tick
func (h *WorkflowHandler) FollowupTick(c *gin.Context) {
	summary, err := h.orch.FollowupTick(c.Request.Context(), time.Now())
	if err != nil {
		h.log.Error("FollowupTick failed", "error", err)
		response.RespondError(c, http.StatusInternalServerError, "followup_tick_failed", err)
		return
	}
	response.RespondOK(c, summary)
}

// POST /api/scheduler/poll-inbound
func (h *WorkflowHandler) PollInbound(c *gin.Context) {
	summary, err := h.orch.PollInbound(c.Request.Context())
	if err != nil {
		h.log.Error("PollInbound failed", "error", err)
		response.RespondError(c, http.StatusBadGateway, "poll_inbound_failed", err)
		return
	}
	response.RespondOK(c, summary)
}
