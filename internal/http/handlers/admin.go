package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tener/recruit-core/internal/backfill"
	"github.com/tener/recruit-core/internal/dualwrite"
	"github.com/tener/recruit-core/internal/http/response"
	"github.com/tener/recruit-core/internal/platform/logger"
)

// AdminController is the slice of app-level control the admin surface
// needs; the composition root provides it so handlers stay decoupled
// from app wiring.
type AdminController interface {
	ReadSource() string
	SwitchReadSource(name string) error
	DualWriteProxy() *dualwrite.Proxy
	BackfillRun(ctx context.Context, dsn string, opts backfill.Options) (map[string]backfill.TableStats, error)
	ParityReport(ctx context.Context, deep bool, sampleLimit int) (*backfill.ParityReport, error)
}

type AdminHandler struct {
	log  *logger.Logger
	ctrl AdminController
}

func NewAdminHandler(log *logger.Logger, ctrl AdminController) *AdminHandler {
	return &AdminHandler{log: log.With("handler", "AdminHandler"), ctrl: ctrl}
}

type switchReadSourceRequest struct {
	Backend string `json:"backend" binding:"required"`
}

// POST /api/admin/read-source
func (h *AdminHandler) SwitchReadSource(c *gin.Context) {
	var req switchReadSourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "validation_error", err)
		return
	}
	if err := h.ctrl.SwitchReadSource(strings.ToLower(req.Backend)); err != nil {
		response.RespondError(c, http.StatusUnprocessableEntity, "switch_read_source_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"read_source": h.ctrl.ReadSource()})
}

type dualWriteStrictRequest struct {
	Strict *bool `json:"strict" binding:"required"`
}

// POST /api/admin/dual-write-strict
func (h *AdminHandler) DualWriteStrict(c *gin.Context) {
	var req dualWriteStrictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "validation_error", err)
		return
	}
	proxy := h.ctrl.DualWriteProxy()
	if proxy == nil {
		response.RespondError(c, http.StatusUnprocessableEntity, "dual_write_disabled", nil)
		return
	}
	proxy.SetStrict(*req.Strict)
	response.RespondOK(c, proxy.Status())
}

// GET /api/admin/parity?deep=&sample_limit=
func (h *AdminHandler) Parity(c *gin.Context) {
	deep := strings.EqualFold(c.Query("deep"), "true") || c.Query("deep") == "1"
	sampleLimit, _ := strconv.Atoi(c.Query("sample_limit"))

	report, err := h.ctrl.ParityReport(c.Request.Context(), deep, sampleLimit)
	if err != nil {
		h.log.Error("parity report failed", "error", err)
		response.RespondError(c, http.StatusInternalServerError, "parity_failed", err)
		return
	}
	response.RespondOK(c, report)
}

type backfillRequest struct {
	DSN           string   `json:"dsn"`
	BatchSize     int      `json:"batch_size"`
	TruncateFirst bool     `json:"truncate_first"`
	Tables        []string `json:"tables"`
}

// POST /api/admin/backfill
func (h *AdminHandler) Backfill(c *gin.Context) {
	var req backfillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "validation_error", err)
		return
	}
	stats, err := h.ctrl.BackfillRun(c.Request.Context(), req.DSN, backfill.Options{
		BatchSize:     req.BatchSize,
		TruncateFirst: req.TruncateFirst,
		Tables:        req.Tables,
	})
	if err != nil {
		h.log.Error("backfill failed", "error", err)
		response.RespondError(c, http.StatusInternalServerError, "backfill_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"tables": stats})
}
