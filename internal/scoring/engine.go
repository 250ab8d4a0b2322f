package scoring

import "github.com/tener/recruit-core/internal/domain"

// AgentInput is the latest stage score/status for one agent key.
type AgentInput struct {
	Score  *float64
	Status string
	Stage  string
}

type OverallStatus string

const (
	StatusBlocked   OverallStatus = "blocked"
	StatusReview    OverallStatus = "review"
	StatusShortlist OverallStatus = "shortlist"
	StatusPipeline  OverallStatus = "pipeline"
)

type Result struct {
	OverallScore  *float64
	OverallStatus OverallStatus
	BlockReason   string
	CappedAt      *float64
}

// Compute composes the per-agent latest scores into an overall score
// and status. The communication input only counts when its latest
// stage is "dialogue". candidateStatus is the caller's current
// top-level status, checked against the blocked set alongside the
// communication agent's status. hasCV comes from the match row
// (resume_received), not from any assessment.
//
// The overall score is only reported when all three inputs are
// present; partial inputs yield status=review with the would-be
// capped score recorded in CappedAt for display.
func Compute(cfg Config, inputs map[domain.AgentKey]AgentInput, candidateStatus string, hasCV bool) Result {
	sourcing, hasSourcing := presentScore(inputs[domain.AgentSourcingVetting])
	interview, hasInterview := presentScore(inputs[domain.AgentInterviewEvaluation])

	commInput := inputs[domain.AgentCommunication]
	hasCommunication := commInput.Score != nil && commInput.Stage == "dialogue"
	var communication float64
	if hasCommunication {
		communication = *commInput.Score
	}

	if cfg.BlockedStatuses[candidateStatus] || cfg.BlockedStatuses[commInput.Status] {
		zero := 0.0
		reason := candidateStatus
		if cfg.BlockedStatuses[commInput.Status] {
			reason = commInput.Status
		}
		return Result{OverallScore: &zero, OverallStatus: StatusBlocked, BlockReason: reason}
	}

	weight := 0.0
	sum := 0.0
	if hasSourcing {
		sum += sourcing * cfg.SourcingVettingWeight
		weight += cfg.SourcingVettingWeight
	}
	if hasCommunication {
		sum += communication * cfg.CommunicationWeight
		weight += cfg.CommunicationWeight
	}
	if hasInterview {
		sum += interview * cfg.InterviewEvaluationWeight
		weight += cfg.InterviewEvaluationWeight
	}
	if weight == 0 {
		return Result{OverallStatus: StatusReview}
	}
	score := sum / weight

	allPresent := hasSourcing && hasCommunication && hasInterview
	if !allPresent {
		// Caps only bite while inputs are still missing.
		if !hasCV && score > cfg.CapWithoutCV {
			score = cfg.CapWithoutCV
		}
		if !hasInterview && score > cfg.CapWithoutInterview {
			score = cfg.CapWithoutInterview
		}
		return Result{OverallStatus: StatusReview, CappedAt: &score}
	}

	return Result{OverallScore: &score, OverallStatus: classify(cfg, score)}
}

func classify(cfg Config, score float64) OverallStatus {
	switch {
	case score >= cfg.ShortlistMin:
		return StatusShortlist
	case score >= cfg.PipelineMin:
		return StatusPipeline
	default:
		return StatusReview
	}
}

func presentScore(in AgentInput) (float64, bool) {
	if in.Score == nil {
		return 0, false
	}
	return *in.Score, true
}
