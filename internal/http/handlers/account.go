package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tener/recruit-core/internal/domain"
	"github.com/tener/recruit-core/internal/http/response"
	"github.com/tener/recruit-core/internal/platform/logger"
	"github.com/tener/recruit-core/internal/repos"
)

type AccountHandler struct {
	log         *logger.Logger
	accounts    repos.SenderAccountRepo
	assignments repos.JobAccountAssignmentRepo
}

func NewAccountHandler(log *logger.Logger, accounts repos.SenderAccountRepo, assignments repos.JobAccountAssignmentRepo) *AccountHandler {
	return &AccountHandler{
		log:         log.With("handler", "AccountHandler"),
		accounts:    accounts,
		assignments: assignments,
	}
}

type upsertAccountRequest struct {
	ProviderAccountID string `json:"provider_account_id" binding:"required"`
	Status            string `json:"status"`
	Label             string `json:"label"`
	ProviderUserID    string `json:"provider_user_id"`
}

// POST /api/accounts
func (h *AccountHandler) Upsert(c *gin.Context) {
	var req upsertAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "validation_error", err)
		return
	}
	status := domain.SenderAccountStatus(req.Status)
	if status == "" {
		status = domain.AccountPending
	}
	account := &domain.SenderAccount{
		ProviderAccountID: req.ProviderAccountID,
		Status:            status,
		Label:             req.Label,
		ProviderUserID:    req.ProviderUserID,
		CreatedAt:         time.Now(),
	}
	if status == domain.AccountConnected {
		now := time.Now()
		account.ConnectedAt = &now
	}
	stored, err := h.accounts.Upsert(c.Request.Context(), nil, account)
	if err != nil {
		h.log.Error("account upsert failed", "error", err)
		response.RespondError(c, http.StatusInternalServerError, "account_upsert_failed", err)
		return
	}
	response.RespondCreated(c, gin.H{"account": stored})
}

// GET /api/accounts
func (h *AccountHandler) List(c *gin.Context) {
	accounts, err := h.accounts.ListAll(c.Request.Context(), nil)
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "list_accounts_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"accounts": accounts})
}

type assignAccountRequest struct {
	AccountID uuid.UUID `json:"account_id" binding:"required"`
}

// POST /api/jobs/:id/accounts
func (h *AccountHandler) AssignToJob(c *gin.Context) {
	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_job_id", err)
		return
	}
	var req assignAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "validation_error", err)
		return
	}
	if err := h.assignments.Assign(c.Request.Context(), nil, jobID, req.AccountID); err != nil {
		h.log.Error("account assignment failed", "error", err)
		response.RespondError(c, http.StatusInternalServerError, "assign_account_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"job_id": jobID, "account_id": req.AccountID})
}
