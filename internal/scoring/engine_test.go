package scoring

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tener/recruit-core/internal/domain"
	"github.com/tener/recruit-core/internal/pkg/pointers"
)

func testConfig() Config {
	return Config{
		SourcingVettingWeight:     0.45,
		CommunicationWeight:       0.20,
		InterviewEvaluationWeight: 0.35,
		CapWithoutCV:              70,
		CapWithoutInterview:       80,
		ShortlistMin:              80,
		PipelineMin:               65,
		BlockedStatuses:           map[string]bool{"not_interested": true, "unreachable": true},
	}
}

func TestCompute_AllPresentShortlist(t *testing.T) {
	inputs := map[domain.AgentKey]AgentInput{
		domain.AgentSourcingVetting:     {Score: pointers.Float64(90)},
		domain.AgentCommunication:       {Score: pointers.Float64(85), Stage: "dialogue"},
		domain.AgentInterviewEvaluation: {Score: pointers.Float64(88)},
	}
	res := Compute(testConfig(), inputs, "verified", true)
	require.Equal(t, StatusShortlist, res.OverallStatus)
	require.NotNil(t, res.OverallScore)
	require.InDelta(t, 88.3, *res.OverallScore, 0.1)
}

func TestCompute_MissingInterviewIsReviewAndCapped(t *testing.T) {
	inputs := map[domain.AgentKey]AgentInput{
		domain.AgentSourcingVetting: {Score: pointers.Float64(90)},
		domain.AgentCommunication:   {Score: pointers.Float64(85), Stage: "dialogue"},
	}
	res := Compute(testConfig(), inputs, "verified", true)
	require.Equal(t, StatusReview, res.OverallStatus)
	require.Nil(t, res.OverallScore, "score is only reported when all three inputs are present")
	require.NotNil(t, res.CappedAt)
	require.Equal(t, 80.0, *res.CappedAt)
}

func TestCompute_NoCVCapAppliesFirst(t *testing.T) {
	inputs := map[domain.AgentKey]AgentInput{
		domain.AgentSourcingVetting: {Score: pointers.Float64(95)},
	}
	res := Compute(testConfig(), inputs, "verified", false)
	require.Equal(t, StatusReview, res.OverallStatus)
	require.NotNil(t, res.CappedAt)
	require.Equal(t, 70.0, *res.CappedAt)
}

func TestCompute_CommunicationOutsideDialogueStageIgnored(t *testing.T) {
	inputs := map[domain.AgentKey]AgentInput{
		domain.AgentSourcingVetting: {Score: pointers.Float64(80)},
		domain.AgentCommunication:   {Score: pointers.Float64(20), Stage: "intro"},
	}
	res := Compute(testConfig(), inputs, "verified", true)
	require.Equal(t, StatusReview, res.OverallStatus)
	require.NotNil(t, res.CappedAt)
	require.Equal(t, 80.0, *res.CappedAt, "non-dialogue communication score must not drag the average")
}

func TestCompute_BlockedByCandidateStatus(t *testing.T) {
	inputs := map[domain.AgentKey]AgentInput{
		domain.AgentSourcingVetting:     {Score: pointers.Float64(90)},
		domain.AgentCommunication:       {Score: pointers.Float64(85), Stage: "dialogue"},
		domain.AgentInterviewEvaluation: {Score: pointers.Float64(88)},
	}
	res := Compute(testConfig(), inputs, "not_interested", true)
	require.Equal(t, StatusBlocked, res.OverallStatus)
	require.NotNil(t, res.OverallScore)
	require.Equal(t, 0.0, *res.OverallScore)
	require.Equal(t, "not_interested", res.BlockReason)
}

func TestCompute_BlockedByCommunicationStatus(t *testing.T) {
	inputs := map[domain.AgentKey]AgentInput{
		domain.AgentSourcingVetting: {Score: pointers.Float64(90)},
		domain.AgentCommunication:   {Status: "unreachable"},
	}
	res := Compute(testConfig(), inputs, "verified", true)
	require.Equal(t, StatusBlocked, res.OverallStatus)
	require.Equal(t, "unreachable", res.BlockReason)
}

func TestCompute_NoInputs(t *testing.T) {
	res := Compute(testConfig(), map[domain.AgentKey]AgentInput{}, "verified", false)
	require.Equal(t, StatusReview, res.OverallStatus)
	require.Nil(t, res.OverallScore)
}
