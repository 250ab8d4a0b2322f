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
	"github.com/tener/recruit-core/internal/scoring"
)

type JobHandler struct {
	log         *logger.Logger
	scoringCfg  scoring.Config
	jobs        repos.JobRepo
	candidates  repos.CandidateRepo
	matches     repos.MatchRepo
	assessments repos.AgentAssessmentRepo
}

func NewJobHandler(log *logger.Logger, scoringCfg scoring.Config, jobs repos.JobRepo, candidates repos.CandidateRepo, matches repos.MatchRepo, assessments repos.AgentAssessmentRepo) *JobHandler {
	return &JobHandler{
		log:         log.With("handler", "JobHandler"),
		scoringCfg:  scoringCfg,
		jobs:        jobs,
		candidates:  candidates,
		matches:     matches,
		assessments: assessments,
	}
}

type createJobRequest struct {
	Title              string   `json:"title" binding:"required"`
	JDText             string   `json:"jd_text" binding:"required"`
	Location           string   `json:"location"`
	PreferredLanguages []string `json:"preferred_languages"`
	Seniority          string   `json:"seniority"`
	RoutingMode        string   `json:"routing_mode"`
}

// POST /api/jobs
func (h *JobHandler) CreateJob(c *gin.Context) {
	var req createJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "validation_error", err)
		return
	}
	mode := domain.RoutingAuto
	if req.RoutingMode == string(domain.RoutingManual) {
		mode = domain.RoutingManual
	}
	job := &domain.Job{
		Title:         req.Title,
		JDText:        req.JDText,
		Location:      req.Location,
		SeniorityBand: req.Seniority,
		RoutingMode:   mode,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}
	job.PreferredLanguages = encodeStrings(req.PreferredLanguages)

	created, err := h.jobs.Create(c.Request.Context(), nil, job)
	if err != nil {
		h.log.Error("CreateJob failed", "error", err)
		response.RespondError(c, http.StatusInternalServerError, "create_job_failed", err)
		return
	}
	response.RespondCreated(c, gin.H{"job_id": created.ID, "job": created})
}

// GET /api/jobs
func (h *JobHandler) ListJobs(c *gin.Context) {
	jobs, err := h.jobs.List(c.Request.Context(), nil, 200, 0)
	if err != nil {
		h.log.Error("ListJobs failed", "error", err)
		response.RespondError(c, http.StatusInternalServerError, "list_jobs_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"jobs": jobs})
}

// GET /api/jobs/:id
func (h *JobHandler) GetJob(c *gin.Context) {
	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_job_id", err)
		return
	}
	job, err := h.jobs.GetByID(c.Request.Context(), nil, jobID)
	if err != nil {
		response.RespondError(c, http.StatusNotFound, "job_not_found", err)
		return
	}
	response.RespondOK(c, gin.H{"job": job})
}

type candidateRow struct {
	CandidateID   uuid.UUID                          `json:"candidate_id"`
	FullName      string                             `json:"full_name"`
	Headline      string                             `json:"headline,omitempty"`
	MatchScore    float64                            `json:"match_score"`
	MatchStatus   domain.MatchStatus                 `json:"match_status"`
	Scorecard     map[domain.AgentKey]map[string]any `json:"scorecard"`
	OverallScore  *float64                           `json:"overall_score,omitempty"`
	OverallStatus scoring.OverallStatus              `json:"overall_status"`
}

// GET /api/jobs/:id/candidates
func (h *JobHandler) ListCandidates(c *gin.Context) {
	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_job_id", err)
		return
	}
	ctx := c.Request.Context()
	matches, err := h.matches.ListByJob(ctx, nil, jobID)
	if err != nil {
		h.log.Error("ListCandidates failed (matches)", "error", err, "job_id", jobID)
		response.RespondError(c, http.StatusInternalServerError, "list_candidates_failed", err)
		return
	}

	rows := make([]candidateRow, 0, len(matches))
	for _, m := range matches {
		cand, err := h.candidates.GetByID(ctx, nil, m.CandidateID)
		if err != nil {
			continue
		}
		latest, err := h.assessments.LatestByAgent(ctx, nil, jobID, m.CandidateID)
		if err != nil {
			h.log.Warn("scorecard load failed", "error", err, "candidate_id", m.CandidateID)
			latest = map[domain.AgentKey]*domain.AgentAssessment{}
		}

		scorecard := make(map[domain.AgentKey]map[string]any, len(latest))
		inputs := make(map[domain.AgentKey]scoring.AgentInput, len(latest))
		for k, a := range latest {
			scorecard[k] = map[string]any{"stage": a.StageKey, "score": a.Score, "status": a.Status}
			inputs[k] = scoring.AgentInput{Score: a.Score, Status: a.Status, Stage: a.StageKey}
		}
		hasCV := m.Status == domain.MatchResumeReceived || m.Status == domain.MatchInterviewing ||
			m.Status == domain.MatchInterviewDone || m.Status == domain.MatchHired
		result := scoring.Compute(h.scoringCfg, inputs, string(m.Status), hasCV)

		rows = append(rows, candidateRow{
			CandidateID:   cand.ID,
			FullName:      cand.FullName,
			Headline:      cand.Headline,
			MatchScore:    m.Score,
			MatchStatus:   m.Status,
			Scorecard:     scorecard,
			OverallScore:  result.OverallScore,
			OverallStatus: result.OverallStatus,
		})
	}
	response.RespondOK(c, gin.H{"candidates": rows})
}
