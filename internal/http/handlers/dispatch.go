package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tener/recruit-core/internal/dispatch"
	"github.com/tener/recruit-core/internal/http/response"
	"github.com/tener/recruit-core/internal/platform/logger"
)

type DispatchHandler struct {
	log        *logger.Logger
	dispatcher *dispatch.Dispatcher
}

func NewDispatchHandler(log *logger.Logger, dispatcher *dispatch.Dispatcher) *DispatchHandler {
	return &DispatchHandler{log: log.With("handler", "DispatchHandler"), dispatcher: dispatcher}
}

type dispatchRequest struct {
	Limit int        `json:"limit"`
	JobID *uuid.UUID `json:"job_id"`
}

// POST /api/dispatch
func (h *DispatchHandler) Dispatch(c *gin.Context) {
	var req dispatchRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		response.RespondError(c, http.StatusBadRequest, "validation_error", err)
		return
	}
	summary, err := h.dispatcher.Dispatch(c.Request.Context(), req.Limit, req.JobID)
	if err != nil {
		h.log.Error("dispatch failed", "error", err)
		response.RespondError(c, http.StatusInternalServerError, "dispatch_failed", err)
		return
	}
	response.RespondOK(c, summary)
}
