package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tener/recruit-core/internal/http/response"
	"github.com/tener/recruit-core/internal/platform/logger"
	"github.com/tener/recruit-core/internal/signals"
)

type SignalHandler struct {
	log      *logger.Logger
	ingestor *signals.Ingestor
	viewer   func() *signals.Viewer
}

// NewSignalHandler takes the viewer as a getter so the read-source
// switch can repoint it at a different backend at runtime.
func NewSignalHandler(log *logger.Logger, ingestor *signals.Ingestor, viewer func() *signals.Viewer) *SignalHandler {
	return &SignalHandler{log: log.With("handler", "SignalHandler"), ingestor: ingestor, viewer: viewer}
}

// POST /api/jobs/:id/signals/ingest
func (h *SignalHandler) Ingest(c *gin.Context) {
	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_job_id", err)
		return
	}
	counts, err := h.ingestor.IngestJob(c.Request.Context(), jobID)
	if err != nil {
		h.log.Error("signal ingestion failed", "job_id", jobID, "error", err)
		response.RespondError(c, http.StatusInternalServerError, "ingest_failed", err)
		return
	}
	response.RespondOK(c, counts)
}

// GET /api/jobs/:id/signals/view
func (h *SignalHandler) View(c *gin.Context) {
	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_job_id", err)
		return
	}
	view, err := h.viewer().BuildJobView(c.Request.Context(), jobID, time.Now())
	if err != nil {
		h.log.Error("signal view failed", "job_id", jobID, "error", err)
		response.RespondError(c, http.StatusInternalServerError, "signals_view_failed", err)
		return
	}
	response.RespondOK(c, view)
}
