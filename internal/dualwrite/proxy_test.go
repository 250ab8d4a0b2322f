package dualwrite

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/tener/recruit-core/internal/domain"
	"github.com/tener/recruit-core/internal/repos"
	"github.com/tener/recruit-core/internal/repos/testutil"
)

func TestProxy_MirrorsCreatesAndUpdates(t *testing.T) {
	ctx := context.Background()
	primary := testutil.DB(t)
	mirror := testutil.DB(t)
	log := testutil.Logger(t)

	p := NewProxy(log, primary, mirror, false)
	require.NoError(t, p.Install())

	jobs := repos.NewJobRepo(primary)
	job, err := jobs.Create(ctx, nil, &domain.Job{
		Title: "Sr Backend", JDText: "Go and PostgreSQL", RoutingMode: domain.RoutingAuto,
		CreatedAt: time.Now(), UpdatedAt: time.Now(),
	})
	require.NoError(t, err)

	var mirrored domain.Job
	require.NoError(t, mirror.First(&mirrored, "id = ?", job.ID).Error)
	require.Equal(t, "Sr Backend", mirrored.Title)

	// A map-based update (no PK on the statement value) still mirrors
	// through the WHERE-clause read-back.
	require.NoError(t, jobs.UpdateFields(ctx, nil, job.ID, map[string]interface{}{"jd_text": "updated"}))
	require.NoError(t, mirror.First(&mirrored, "id = ?", job.ID).Error)
	require.Equal(t, "updated", mirrored.JDText)

	st := p.Status()
	require.True(t, st.Enabled)
	require.Equal(t, int64(0), st.MirrorErrors)
	require.GreaterOrEqual(t, st.MirrorSuccess, int64(2))
}

func TestProxy_BestEffortSwallowsMirrorFailure(t *testing.T) {
	ctx := context.Background()
	primary := testutil.DB(t)
	mirror := testutil.DB(t)
	log := testutil.Logger(t)

	// Break the mirror for this table.
	require.NoError(t, mirror.Migrator().DropTable("jobs"))

	p := NewProxy(log, primary, mirror, false)
	require.NoError(t, p.Install())

	jobs := repos.NewJobRepo(primary)
	_, err := jobs.Create(ctx, nil, &domain.Job{
		Title: "Sr Backend", JDText: "Go", RoutingMode: domain.RoutingAuto,
		CreatedAt: time.Now(), UpdatedAt: time.Now(),
	})
	require.NoError(t, err, "best-effort mode must not surface mirror failures")

	st := p.Status()
	require.Equal(t, int64(1), st.MirrorErrors)
	require.NotEmpty(t, st.LastError)
}

func TestProxy_StrictPropagatesMirrorFailure(t *testing.T) {
	ctx := context.Background()
	primary := testutil.DB(t)
	mirror := testutil.DB(t)
	log := testutil.Logger(t)

	require.NoError(t, mirror.Migrator().DropTable("jobs"))

	p := NewProxy(log, primary, mirror, true)
	require.NoError(t, p.Install())

	jobs := repos.NewJobRepo(primary)
	_, err := jobs.Create(ctx, nil, &domain.Job{
		Title: "Sr Backend", JDText: "Go", RoutingMode: domain.RoutingAuto,
		CreatedAt: time.Now(), UpdatedAt: time.Now(),
	})
	require.Error(t, err, "strict mode aborts the caller on mirror failure")
}

func TestProxy_StrictToggleAtRuntime(t *testing.T) {
	primary := testutil.DB(t)
	mirror := testutil.DB(t)
	log := testutil.Logger(t)

	p := NewProxy(log, primary, mirror, false)
	require.False(t, p.Strict())
	p.SetStrict(true)
	require.True(t, p.Strict())
}

func TestProxy_StrictCountsStayEqual(t *testing.T) {
	ctx := context.Background()
	primary := testutil.DB(t)
	mirror := testutil.DB(t)
	log := testutil.Logger(t)

	p := NewProxy(log, primary, mirror, true)
	require.NoError(t, p.Install())

	jobs := repos.NewJobRepo(primary)
	cands := repos.NewCandidateRepo(primary)
	for i := 0; i < 3; i++ {
		_, err := jobs.Create(ctx, nil, &domain.Job{
			Title: "Job", JDText: "Go", RoutingMode: domain.RoutingAuto,
			CreatedAt: time.Now(), UpdatedAt: time.Now(),
		})
		require.NoError(t, err)
	}
	_, err := cands.Upsert(ctx, nil, &domain.Candidate{
		ID: uuid.New(), ProviderID: "p-1", FullName: "Alex",
		CreatedAt: time.Now(), UpdatedAt: time.Now(),
	})
	require.NoError(t, err)

	for _, table := range []string{"jobs", "candidates"} {
		var np, nm int64
		require.NoError(t, primary.Table(table).Count(&np).Error)
		require.NoError(t, mirror.Table(table).Count(&nm).Error)
		require.Equal(t, np, nm, "table %s", table)
	}
}
