package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tener/recruit-core/internal/http/response"
	"github.com/tener/recruit-core/internal/platform/logger"
	"github.com/tener/recruit-core/internal/profile"
)

type CandidateHandler struct {
	log     *logger.Logger
	builder func() *profile.Builder
}

// NewCandidateHandler takes the builder as a getter so the
// read-source switch can repoint it at runtime.
func NewCandidateHandler(log *logger.Logger, builder func() *profile.Builder) *CandidateHandler {
	return &CandidateHandler{log: log.With("handler", "CandidateHandler"), builder: builder}
}

// GET /api/candidates/:id/profile?job_id=&explain=&audit=
func (h *CandidateHandler) Profile(c *gin.Context) {
	candidateID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_candidate_id", err)
		return
	}
	var jobID *uuid.UUID
	if raw := strings.TrimSpace(c.Query("job_id")); raw != "" {
		parsed, err := uuid.Parse(raw)
		if err != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_job_id", err)
			return
		}
		jobID = &parsed
	}
	explain := boolQuery(c.Query("explain"))
	audit := boolQuery(c.Query("audit"))

	view, err := h.builder().Build(c.Request.Context(), candidateID, jobID, explain, audit)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, view)
}

func boolQuery(v string) bool {
	return strings.EqualFold(v, "true") || v == "1"
}
