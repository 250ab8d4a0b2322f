package signals

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tener/recruit-core/internal/domain"
	"github.com/tener/recruit-core/internal/repos"
	"github.com/tener/recruit-core/internal/repos/testutil"
)

func TestBuildJobView_RoleFiltering(t *testing.T) {
	ctx := context.Background()
	gdb := testutil.DB(t)

	job := testutil.SeedJob(t, ctx, gdb, "Sr Backend")
	cand := testutil.SeedCandidate(t, ctx, gdb, "prov-1", "Alex")
	testutil.SeedMatch(t, ctx, gdb, job.ID, cand.ID, 0.80, domain.MatchVerified)

	sigRepo := repos.NewCandidateSignalRepo(gdb)
	now := time.Now()

	// One administrative signal with impact +2 (zero contribution) and
	// one evaluative signal with impact +1.5 at full weight.
	require.NoError(t, sigRepo.Upsert(ctx, nil, &domain.CandidateSignal{
		JobID: job.ID, CandidateID: cand.ID,
		SourceType: domain.SourceOperationLog, SourceID: "1",
		SignalType: "operation", Role: domain.RoleAdministrative, Category: "ops",
		ImpactScore: 2.0, Confidence: 0.55, ScoreWeight: 0,
		ObservedAt: now.Add(-time.Minute),
	}))
	require.NoError(t, sigRepo.Upsert(ctx, nil, &domain.CandidateSignal{
		JobID: job.ID, CandidateID: cand.ID,
		SourceType: domain.SourceAssessment, SourceID: "2",
		SignalType: "assessment_score", Role: domain.RoleEvaluative, Category: "sourcing_vetting",
		ImpactScore: 1.5, Confidence: 0.8, ScoreWeight: 1.0,
		ObservedAt: now,
	}))

	viewer := NewViewer(repos.NewMatchRepo(gdb), repos.NewCandidateRepo(gdb), sigRepo)
	view, err := viewer.BuildJobView(ctx, job.ID, now)
	require.NoError(t, err)

	require.Len(t, view.Rows, 1)
	row := view.Rows[0]
	require.Equal(t, 80.0, row.BaseScore)
	require.Equal(t, 86.0, row.LiveScore)
	require.Equal(t, 6.0, row.ImpactPoints)
	require.Equal(t, 2, row.SignalCount)
	require.Equal(t, 1, row.EvaluativeCount)
	require.Equal(t, 1, row.Rank)
	require.Len(t, view.Timeline, 2)
	require.Equal(t, "assessment_score", view.Timeline[0].SignalType, "timeline is newest-first")
}

func TestBuildJobView_ImpactClampedAndRankDelta(t *testing.T) {
	ctx := context.Background()
	gdb := testutil.DB(t)

	job := testutil.SeedJob(t, ctx, gdb, "Sr Backend")
	top := testutil.SeedCandidate(t, ctx, gdb, "prov-top", "Tess")
	mid := testutil.SeedCandidate(t, ctx, gdb, "prov-mid", "Mia")
	testutil.SeedMatch(t, ctx, gdb, job.ID, top.ID, 0.90, domain.MatchVerified)
	testutil.SeedMatch(t, ctx, gdb, job.ID, mid.ID, 0.70, domain.MatchVerified)

	sigRepo := repos.NewCandidateSignalRepo(gdb)
	now := time.Now()

	// A huge negative sum on the leader: clamped to -30 points.
	for i, impact := range []float64{-3, -3, -3, -3} {
		require.NoError(t, sigRepo.Upsert(ctx, nil, &domain.CandidateSignal{
			JobID: job.ID, CandidateID: top.ID,
			SourceType: domain.SourceAssessment, SourceID: string(rune('a' + i)),
			SignalType: "assessment_score", Role: domain.RoleEvaluative,
			ImpactScore: impact, Confidence: 0.8, ScoreWeight: 1.0,
			ObservedAt: now,
		}))
	}

	viewer := NewViewer(repos.NewMatchRepo(gdb), repos.NewCandidateRepo(gdb), sigRepo)
	view, err := viewer.BuildJobView(ctx, job.ID, now)
	require.NoError(t, err)
	require.Len(t, view.Rows, 2)

	// Mia overtakes: 70 beats the clamped 90-30=60.
	require.Equal(t, mid.ID, view.Rows[0].CandidateID)
	require.Equal(t, 70.0, view.Rows[0].LiveScore)
	require.Equal(t, 1, view.Rows[0].Rank)
	require.Equal(t, 2, view.Rows[0].PreviousRank)
	require.Equal(t, 1, view.Rows[0].RankDelta)

	require.Equal(t, top.ID, view.Rows[1].CandidateID)
	require.Equal(t, 60.0, view.Rows[1].LiveScore)
	require.Equal(t, -30.0, view.Rows[1].ImpactPoints)
	require.Equal(t, -1, view.Rows[1].RankDelta)
}

func TestIngestJob_Idempotent(t *testing.T) {
	ctx := context.Background()
	gdb := testutil.DB(t)
	log := testutil.Logger(t)

	job := testutil.SeedJob(t, ctx, gdb, "Sr Backend")
	cand := testutil.SeedCandidate(t, ctx, gdb, "prov-1", "Alex")
	testutil.SeedMatch(t, ctx, gdb, job.ID, cand.ID, 0.75, domain.MatchResumeReceived)

	score := 82.0
	assessRepo := repos.NewAgentAssessmentRepo(gdb)
	_, err := assessRepo.Upsert(ctx, nil, &domain.AgentAssessment{
		JobID: job.ID, CandidateID: cand.ID,
		AgentKey: domain.AgentSourcingVetting, StageKey: "vetting",
		Score: &score, Status: "scored",
	})
	require.NoError(t, err)

	rules := loadRules(t)
	ing := NewIngestor(log, gdb, rules,
		repos.NewMatchRepo(gdb), assessRepo,
		repos.NewPreResumeSessionRepo(gdb), repos.NewPreResumeEventRepo(gdb),
		repos.NewOperationLogRepo(gdb), repos.NewCandidateSignalRepo(gdb))

	counts, err := ing.IngestJob(ctx, job.ID)
	require.NoError(t, err)
	require.Equal(t, 1, counts.Assessments)
	require.Equal(t, 1, counts.MatchSnapshots)

	var total int64
	require.NoError(t, gdb.Model(&domain.CandidateSignal{}).Count(&total).Error)

	// Re-ingesting with no intervening writes must not add rows.
	_, err = ing.IngestJob(ctx, job.ID)
	require.NoError(t, err)
	var again int64
	require.NoError(t, gdb.Model(&domain.CandidateSignal{}).Count(&again).Error)
	require.Equal(t, total, again)

	// Assessment impact: (82-50)/25 = 1.28 at confidence 0.8.
	var sig domain.CandidateSignal
	require.NoError(t, gdb.Where("source_type = ?", domain.SourceAssessment).First(&sig).Error)
	require.InDelta(t, 1.28, sig.ImpactScore, 1e-9)
	require.Equal(t, 0.8, sig.Confidence)
	require.Equal(t, domain.RoleEvaluative, sig.Role)
}
