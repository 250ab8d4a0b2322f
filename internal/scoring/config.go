package scoring

import "github.com/tener/recruit-core/internal/platform/envutil"

// Config holds the weighted-composition and gating parameters of the
// scoring policy.
type Config struct {
	SourcingVettingWeight     float64
	CommunicationWeight       float64
	InterviewEvaluationWeight float64

	CapWithoutCV        float64
	CapWithoutInterview float64

	ShortlistMin float64
	PipelineMin  float64

	BlockedStatuses map[string]bool
}

func LoadConfig() Config {
	return Config{
		SourcingVettingWeight:     envutil.Float("SCORING_WEIGHT_SOURCING_VETTING", 0.45),
		CommunicationWeight:       envutil.Float("SCORING_WEIGHT_COMMUNICATION", 0.20),
		InterviewEvaluationWeight: envutil.Float("SCORING_WEIGHT_INTERVIEW_EVALUATION", 0.35),
		CapWithoutCV:              envutil.Float("SCORING_CAP_WITHOUT_CV", 70),
		CapWithoutInterview:       envutil.Float("SCORING_CAP_WITHOUT_INTERVIEW_SCORE", 80),
		ShortlistMin:              envutil.Float("SCORING_SHORTLIST_MIN", 80),
		PipelineMin:               envutil.Float("SCORING_PIPELINE_MIN", 65),
		BlockedStatuses: map[string]bool{
			"not_interested": true,
			"unreachable":    true,
		},
	}
}
