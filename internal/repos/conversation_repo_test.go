package repos_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tener/recruit-core/internal/domain"
	"github.com/tener/recruit-core/internal/repos"
	"github.com/tener/recruit-core/internal/repos/testutil"
)

func TestBindExternalChatID_CollisionTransfersOwnership(t *testing.T) {
	ctx := context.Background()
	gdb := testutil.DB(t)
	convRepo := repos.NewConversationRepo(gdb)

	job1 := testutil.SeedJob(t, ctx, gdb, "Backend")
	job2 := testutil.SeedJob(t, ctx, gdb, "Platform")
	cand := testutil.SeedCandidate(t, ctx, gdb, "p-1", "Alex")

	older := testutil.SeedConversation(t, ctx, gdb, job1.ID, cand.ID)
	newer := testutil.SeedConversation(t, ctx, gdb, job2.ID, cand.ID)

	require.NoError(t, convRepo.BindExternalChatID(ctx, nil, older.ID, "chat-42"))

	// The same provider chat surfaces on the newer conversation:
	// ownership transfers, the older row loses the id.
	require.NoError(t, convRepo.BindExternalChatID(ctx, nil, newer.ID, "chat-42"))

	got, err := convRepo.GetByExternalChatID(ctx, nil, "chat-42")
	require.NoError(t, err)
	require.Equal(t, newer.ID, got.ID)

	oldRow, err := convRepo.GetByID(ctx, nil, older.ID)
	require.NoError(t, err)
	require.Nil(t, oldRow.ExternalChatID)
}

func TestMessageIDsAscendInArrivalOrder(t *testing.T) {
	ctx := context.Background()
	gdb := testutil.DB(t)
	msgRepo := repos.NewMessageRepo(gdb)

	job := testutil.SeedJob(t, ctx, gdb, "Backend")
	cand := testutil.SeedCandidate(t, ctx, gdb, "p-1", "Alex")
	conv := testutil.SeedConversation(t, ctx, gdb, job.ID, cand.ID)

	for i, text := range []string{"first", "second", "third"} {
		_, err := msgRepo.Append(ctx, nil, &domain.Message{
			ConversationID: conv.ID,
			Direction:      domain.DirectionInbound,
			Content:        text,
			CreatedAt:      time.Now().Add(time.Duration(i) * time.Millisecond),
		})
		require.NoError(t, err)
	}

	msgs, err := msgRepo.ListByConversation(ctx, nil, conv.ID, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	for i := 1; i < len(msgs); i++ {
		require.Greater(t, msgs[i].ID, msgs[i-1].ID)
	}
	require.Equal(t, "third", msgs[2].Content)
}

func TestAccountCounterIncrementIsUpsert(t *testing.T) {
	ctx := context.Background()
	gdb := testutil.DB(t)
	counters := repos.NewAccountCounterRepo(gdb)
	acc := testutil.SeedAccount(t, ctx, gdb, "acc-1", domain.AccountConnected, time.Now())

	day := "2026-08-01"
	for i := 0; i < 5; i++ {
		require.NoError(t, counters.IncrementDay(ctx, nil, acc.ID, day))
	}
	c, err := counters.GetDay(ctx, nil, acc.ID, day)
	require.NoError(t, err)
	require.Equal(t, 5, c.NewThreadsSent)

	week := "2026-07-27"
	require.NoError(t, counters.IncrementWeek(ctx, nil, acc.ID, week))
	w, err := counters.GetWeek(ctx, nil, acc.ID, week)
	require.NoError(t, err)
	require.Equal(t, 1, w.ConnectSent)
}
