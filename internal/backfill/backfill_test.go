package backfill

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tener/recruit-core/internal/domain"
	"github.com/tener/recruit-core/internal/repos/testutil"
)

func TestBackfillAndParity(t *testing.T) {
	ctx := context.Background()
	source := testutil.DB(t)
	dest := testutil.DB(t)
	log := testutil.Logger(t)

	for _, title := range []string{"Backend", "Frontend", "Data"} {
		testutil.SeedJob(t, ctx, source, title)
	}
	testutil.SeedCandidate(t, ctx, source, "p-1", "Alex")
	testutil.SeedCandidate(t, ctx, source, "p-2", "Blake")

	r := NewRunner(log, source, dest)
	stats, err := r.Run(ctx, Options{BatchSize: 2})
	require.NoError(t, err)
	require.Equal(t, 3, stats["jobs"].Read)
	require.Equal(t, 3, stats["jobs"].Inserted)
	require.Equal(t, 2, stats["candidates"].Inserted)

	report, err := r.Parity(ctx, false, 100)
	require.NoError(t, err)
	require.Equal(t, "ok", report.Status)
	for table, tp := range report.Tables {
		require.True(t, tp.Match, "table %s", table)
	}

	// JSON-valued columns survive the copy intact.
	var cand domain.Candidate
	require.NoError(t, dest.First(&cand, "provider_id = ?", "p-1").Error)
	require.Equal(t, []string{"go", "postgresql"}, cand.SkillSet())
}

func TestBackfill_Idempotent(t *testing.T) {
	ctx := context.Background()
	source := testutil.DB(t)
	dest := testutil.DB(t)
	log := testutil.Logger(t)

	testutil.SeedJob(t, ctx, source, "Backend")

	r := NewRunner(log, source, dest)
	_, err := r.Run(ctx, Options{})
	require.NoError(t, err)

	// Re-running inserts nothing thanks to ON CONFLICT DO NOTHING.
	stats, err := r.Run(ctx, Options{})
	require.NoError(t, err)
	require.Equal(t, 1, stats["jobs"].Read)
	require.Equal(t, 0, stats["jobs"].Inserted)

	var n int64
	require.NoError(t, dest.Table("jobs").Count(&n).Error)
	require.Equal(t, int64(1), n)
}

func TestParity_DeepDetectsKeyDrift(t *testing.T) {
	ctx := context.Background()
	source := testutil.DB(t)
	dest := testutil.DB(t)
	log := testutil.Logger(t)

	testutil.SeedJob(t, ctx, source, "Backend")
	testutil.SeedJob(t, ctx, dest, "Other")

	r := NewRunner(log, source, dest)
	report, err := r.Parity(ctx, true, 100)
	require.NoError(t, err)
	require.Equal(t, "mismatch", report.Status)
	jobs := report.Tables["jobs"]
	require.False(t, jobs.Match)
	require.Len(t, jobs.MissingDest, 1)
	require.Len(t, jobs.ExtraDest, 1)
}

func TestBackfill_TableFilterRespectsOrder(t *testing.T) {
	out := filterOrder([]string{"candidates", "jobs"})
	require.Equal(t, []string{"jobs", "candidates"}, out)
}
