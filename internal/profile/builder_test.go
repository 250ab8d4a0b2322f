package profile

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tener/recruit-core/internal/domain"
	"github.com/tener/recruit-core/internal/pkg/pointers"
	"github.com/tener/recruit-core/internal/providers/llm"
	"github.com/tener/recruit-core/internal/repos"
	"github.com/tener/recruit-core/internal/repos/testutil"
	"github.com/tener/recruit-core/internal/scoring"
)

type countingResponder struct {
	calls int
	reply string
	err   error
}

func (r *countingResponder) GenerateCandidateReply(ctx context.Context, req llm.Request) (string, error) {
	r.calls++
	return r.reply, r.err
}

func scoringConfig() scoring.Config {
	return scoring.Config{
		SourcingVettingWeight: 0.45, CommunicationWeight: 0.20, InterviewEvaluationWeight: 0.35,
		CapWithoutCV: 70, CapWithoutInterview: 80, ShortlistMin: 80, PipelineMin: 65,
		BlockedStatuses: map[string]bool{"not_interested": true, "unreachable": true},
	}
}

func TestBuild_ScoringGateMissingInterview(t *testing.T) {
	ctx := context.Background()
	gdb := testutil.DB(t)
	log := testutil.Logger(t)

	job := testutil.SeedJob(t, ctx, gdb, "Sr Backend")
	cand := testutil.SeedCandidate(t, ctx, gdb, "p-1", "Alex")
	testutil.SeedMatch(t, ctx, gdb, job.ID, cand.ID, 0.85, domain.MatchResumeReceived)

	assessments := repos.NewAgentAssessmentRepo(gdb)
	_, err := assessments.Upsert(ctx, nil, &domain.AgentAssessment{
		JobID: job.ID, CandidateID: cand.ID,
		AgentKey: domain.AgentSourcingVetting, StageKey: "vetting",
		Score: pointers.Float64(90), Status: "scored",
	})
	require.NoError(t, err)
	_, err = assessments.Upsert(ctx, nil, &domain.AgentAssessment{
		JobID: job.ID, CandidateID: cand.ID,
		AgentKey: domain.AgentCommunication, StageKey: "dialogue",
		Score: pointers.Float64(85), Status: "scored",
	})
	require.NoError(t, err)

	b := NewBuilder(log, Config{ExplainTTL: time.Minute, TimelineCap: 1000},
		scoringConfig(), nil, NewMemoryCache(),
		repos.NewCandidateRepo(gdb), repos.NewJobRepo(gdb), repos.NewMatchRepo(gdb),
		assessments,
		repos.NewPreResumeSessionRepo(gdb), repos.NewPreResumeEventRepo(gdb),
		repos.NewConversationRepo(gdb), repos.NewCandidateSignalRepo(gdb),
		repos.NewOperationLogRepo(gdb))

	view, err := b.Build(ctx, cand.ID, &job.ID, false, false)
	require.NoError(t, err)
	require.Len(t, view.Jobs, 1)

	section := view.Jobs[0]
	require.Equal(t, scoring.StatusReview, section.OverallStatus, "missing interview input forces review")
	require.Nil(t, section.OverallScore, "score only reported with all three inputs")
	require.Len(t, section.Scorecard, 2)
	require.NotEmpty(t, section.Explanation)
	require.Contains(t, section.Explanation, "Alex")
	require.NotEmpty(t, view.Timeline)
}

func TestBuild_ExplainUsesCacheAndFallsBack(t *testing.T) {
	ctx := context.Background()
	gdb := testutil.DB(t)
	log := testutil.Logger(t)

	job := testutil.SeedJob(t, ctx, gdb, "Sr Backend")
	cand := testutil.SeedCandidate(t, ctx, gdb, "p-1", "Alex")
	testutil.SeedMatch(t, ctx, gdb, job.ID, cand.ID, 0.7, domain.MatchVerified)

	responder := &countingResponder{reply: "Great fit because reasons."}
	b := NewBuilder(log, Config{ExplainTTL: time.Minute, TimelineCap: 1000},
		scoringConfig(), responder, NewMemoryCache(),
		repos.NewCandidateRepo(gdb), repos.NewJobRepo(gdb), repos.NewMatchRepo(gdb),
		repos.NewAgentAssessmentRepo(gdb),
		repos.NewPreResumeSessionRepo(gdb), repos.NewPreResumeEventRepo(gdb),
		repos.NewConversationRepo(gdb), repos.NewCandidateSignalRepo(gdb),
		repos.NewOperationLogRepo(gdb))

	view, err := b.Build(ctx, cand.ID, &job.ID, true, false)
	require.NoError(t, err)
	require.Equal(t, "Great fit because reasons.", view.Jobs[0].Explanation)
	firstCalls := responder.calls

	// Second build hits the cache; the responder is not called again.
	view, err = b.Build(ctx, cand.ID, &job.ID, true, false)
	require.NoError(t, err)
	require.Equal(t, "Great fit because reasons.", view.Jobs[0].Explanation)
	require.Equal(t, firstCalls, responder.calls)
}

func TestBuild_ResponderErrorFallsBackDeterministically(t *testing.T) {
	ctx := context.Background()
	gdb := testutil.DB(t)
	log := testutil.Logger(t)

	job := testutil.SeedJob(t, ctx, gdb, "Sr Backend")
	cand := testutil.SeedCandidate(t, ctx, gdb, "p-1", "Alex")
	testutil.SeedMatch(t, ctx, gdb, job.ID, cand.ID, 0.7, domain.MatchVerified)

	responder := &countingResponder{err: errors.New("llm down")}
	b := NewBuilder(log, Config{ExplainTTL: time.Minute, TimelineCap: 1000},
		scoringConfig(), responder, NewMemoryCache(),
		repos.NewCandidateRepo(gdb), repos.NewJobRepo(gdb), repos.NewMatchRepo(gdb),
		repos.NewAgentAssessmentRepo(gdb),
		repos.NewPreResumeSessionRepo(gdb), repos.NewPreResumeEventRepo(gdb),
		repos.NewConversationRepo(gdb), repos.NewCandidateSignalRepo(gdb),
		repos.NewOperationLogRepo(gdb))

	view, err := b.Build(ctx, cand.ID, &job.ID, true, false)
	require.NoError(t, err)
	require.Contains(t, view.Jobs[0].Explanation, "Alex scored 70%")
}

func TestMemoryCacheTTL(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()
	c.Set(ctx, "k", "v", 10*time.Millisecond)
	v, ok := c.Get(ctx, "k")
	require.True(t, ok)
	require.Equal(t, "v", v)
	time.Sleep(20 * time.Millisecond)
	_, ok = c.Get(ctx, "k")
	require.False(t, ok)
}
