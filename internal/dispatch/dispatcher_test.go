package dispatch

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/tener/recruit-core/internal/domain"
	"github.com/tener/recruit-core/internal/providers/messaging"
	"github.com/tener/recruit-core/internal/repos"
	"github.com/tener/recruit-core/internal/repos/testutil"
)

// fakeProvider scripts the messaging provider per call.
type fakeProvider struct {
	sendResults    []messaging.SendResult
	sendErr        error
	connectResults []messaging.ConnectResult
	sentTo         []string
	connectsTo     []string
}

func (f *fakeProvider) SearchProfiles(ctx context.Context, query string, limit int) ([]messaging.Profile, error) {
	return nil, nil
}
func (f *fakeProvider) EnrichProfile(ctx context.Context, p messaging.Profile) (messaging.Profile, error) {
	return p, nil
}
func (f *fakeProvider) SendMessage(ctx context.Context, accountID string, p messaging.Profile, text string) (messaging.SendResult, error) {
	f.sentTo = append(f.sentTo, accountID)
	if f.sendErr != nil {
		return messaging.SendResult{}, f.sendErr
	}
	if len(f.sendResults) == 0 {
		return messaging.SendResult{Sent: true, ChatID: "chat-" + accountID}, nil
	}
	r := f.sendResults[0]
	f.sendResults = f.sendResults[1:]
	return r, nil
}
func (f *fakeProvider) SendConnectionRequest(ctx context.Context, accountID string, p messaging.Profile, note string) (messaging.ConnectResult, error) {
	f.connectsTo = append(f.connectsTo, accountID)
	if len(f.connectResults) == 0 {
		return messaging.ConnectResult{Sent: true, RequestID: "req-1"}, nil
	}
	r := f.connectResults[0]
	f.connectResults = f.connectResults[1:]
	return r, nil
}
func (f *fakeProvider) CheckConnectionStatus(ctx context.Context, accountID string, p messaging.Profile) (bool, error) {
	return true, nil
}
func (f *fakeProvider) FetchChatMessages(ctx context.Context, chatID string, limit int) ([]messaging.ChatMessage, error) {
	return nil, nil
}

type dispatchEnv struct {
	db       *gorm.DB
	provider *fakeProvider
	d        *Dispatcher
	counters repos.AccountCounterRepo
	actions  repos.OutboundActionRepo
}

func newEnv(t *testing.T, policy BudgetPolicy) *dispatchEnv {
	t.Helper()
	gdb := testutil.DB(t)
	log := testutil.Logger(t)
	provider := &fakeProvider{}
	counters := repos.NewAccountCounterRepo(gdb)
	actions := repos.NewOutboundActionRepo(gdb)
	d := NewDispatcher(log, gdb, policy, provider,
		actions,
		repos.NewJobRepo(gdb),
		repos.NewCandidateRepo(gdb),
		repos.NewConversationRepo(gdb),
		repos.NewSenderAccountRepo(gdb),
		repos.NewJobAccountAssignmentRepo(gdb),
		counters,
		repos.NewOperationLogRepo(gdb))
	return &dispatchEnv{db: gdb, provider: provider, d: d, counters: counters, actions: actions}
}

func enqueue(t *testing.T, env *dispatchEnv, jobID, candID, convID uuid.UUID, kind domain.OutboundKind) *domain.OutboundAction {
	t.Helper()
	a, err := env.actions.Create(context.Background(), nil, &domain.OutboundAction{
		JobID: jobID, CandidateID: candID, ConversationID: convID,
		Kind: kind, PayloadText: "hello", PayloadLanguage: "en",
		Status: domain.OutboundPending, CreatedAt: time.Now(), UpdatedAt: time.Now(),
	})
	require.NoError(t, err)
	return a
}

func defaultPolicy() BudgetPolicy {
	return BudgetPolicy{DailyMaxNewThreads: 25, WeeklyConnectCap: 100, WarmupDays: 0, WarmupConnectCap: 25}
}

func TestDispatch_PicksLeastLoadedAccount(t *testing.T) {
	ctx := context.Background()
	env := newEnv(t, defaultPolicy())

	job := testutil.SeedJob(t, ctx, env.db, "Sr Backend")
	cand := testutil.SeedCandidate(t, ctx, env.db, "prov-1", "Alex")
	conv := testutil.SeedConversation(t, ctx, env.db, job.ID, cand.ID)
	accA := testutil.SeedAccount(t, ctx, env.db, "acc-a", domain.AccountConnected, time.Now().AddDate(0, -2, 0))
	accB := testutil.SeedAccount(t, ctx, env.db, "acc-b", domain.AccountConnected, time.Now().AddDate(0, -2, 0))

	// A already sent 7 new threads today; B none.
	day := DayKey(time.Now())
	for i := 0; i < 7; i++ {
		require.NoError(t, env.counters.IncrementDay(ctx, nil, accA.ID, day))
	}

	enqueue(t, env, job.ID, cand.ID, conv.ID, domain.OutboundMessage)

	summary, err := env.d.Dispatch(ctx, 10, nil)
	require.NoError(t, err)
	require.Equal(t, 1, summary.Processed)
	require.Equal(t, 1, summary.Sent)
	require.Equal(t, []string{"acc-b"}, env.provider.sentTo)

	cA, err := env.counters.GetDay(ctx, nil, accA.ID, day)
	require.NoError(t, err)
	require.Equal(t, 7, cA.NewThreadsSent)
	cB, err := env.counters.GetDay(ctx, nil, accB.ID, day)
	require.NoError(t, err)
	require.Equal(t, 1, cB.NewThreadsSent)

	var conv2 domain.Conversation
	require.NoError(t, env.db.First(&conv2, "id = ?", conv.ID).Error)
	require.NotNil(t, conv2.ExternalChatID)
	require.Equal(t, "chat-acc-b", *conv2.ExternalChatID)
	require.Equal(t, accB.ID, *conv2.AssignedSenderAccountID)
}

func TestDispatch_ConnectInviteCap(t *testing.T) {
	ctx := context.Background()
	policy := defaultPolicy()
	policy.WeeklyConnectCap = 1
	env := newEnv(t, policy)

	job := testutil.SeedJob(t, ctx, env.db, "Sr Backend")
	testutil.SeedAccount(t, ctx, env.db, "acc-a", domain.AccountConnected, time.Now().AddDate(0, -2, 0))

	c1 := testutil.SeedCandidate(t, ctx, env.db, "prov-1", "Alex")
	conv1 := testutil.SeedConversation(t, ctx, env.db, job.ID, c1.ID)
	c2 := testutil.SeedCandidate(t, ctx, env.db, "prov-2", "Blake")
	conv2 := testutil.SeedConversation(t, ctx, env.db, job.ID, c2.ID)

	// Neither recipient is a first-degree connection.
	env.provider.sendResults = []messaging.SendResult{
		{Sent: false, Error: "no_connection_with_recipient"},
		{Sent: false, Error: "no_connection_with_recipient"},
	}

	a1 := enqueue(t, env, job.ID, c1.ID, conv1.ID, domain.OutboundMessage)
	a2 := enqueue(t, env, job.ID, c2.ID, conv2.ID, domain.OutboundMessage)

	summary, err := env.d.Dispatch(ctx, 10, nil)
	require.NoError(t, err)
	require.Equal(t, 2, summary.Processed)
	require.Equal(t, 1, summary.PendingConnection)
	require.Equal(t, 1, summary.Deferred)

	got1, err := env.actions.GetByID(ctx, nil, a1.ID)
	require.NoError(t, err)
	require.Equal(t, domain.OutboundPendingConnection, got1.Status)

	var convRow domain.Conversation
	require.NoError(t, env.db.First(&convRow, "id = ?", conv1.ID).Error)
	require.Equal(t, domain.ConversationWaitingConn, convRow.Status)

	got2, err := env.actions.GetByID(ctx, nil, a2.ID)
	require.NoError(t, err)
	require.Equal(t, domain.OutboundPending, got2.Status)
	require.Equal(t, ReasonConnectBudgetReached, got2.LastError)
}

func TestDispatch_NoConnectedAccountsDefers(t *testing.T) {
	ctx := context.Background()
	env := newEnv(t, defaultPolicy())

	job := testutil.SeedJob(t, ctx, env.db, "Sr Backend")
	cand := testutil.SeedCandidate(t, ctx, env.db, "prov-1", "Alex")
	conv := testutil.SeedConversation(t, ctx, env.db, job.ID, cand.ID)
	testutil.SeedAccount(t, ctx, env.db, "acc-a", domain.AccountDisconnected, time.Now())

	a := enqueue(t, env, job.ID, cand.ID, conv.ID, domain.OutboundMessage)

	summary, err := env.d.Dispatch(ctx, 10, nil)
	require.NoError(t, err)
	require.Equal(t, 1, summary.Deferred)

	got, err := env.actions.GetByID(ctx, nil, a.ID)
	require.NoError(t, err)
	require.Equal(t, domain.OutboundPending, got.Status)
	require.Equal(t, ReasonNoConnectedAccounts, got.LastError)
	require.Empty(t, env.provider.sentTo)
}

func TestDispatch_ManualRoutingRestrictsAccounts(t *testing.T) {
	ctx := context.Background()
	env := newEnv(t, defaultPolicy())

	job := testutil.SeedJob(t, ctx, env.db, "Sr Backend")
	require.NoError(t, env.db.Model(&domain.Job{}).Where("id = ?", job.ID).
		Update("routing_mode", domain.RoutingManual).Error)

	cand := testutil.SeedCandidate(t, ctx, env.db, "prov-1", "Alex")
	conv := testutil.SeedConversation(t, ctx, env.db, job.ID, cand.ID)
	testutil.SeedAccount(t, ctx, env.db, "acc-a", domain.AccountConnected, time.Now())
	assigned := testutil.SeedAccount(t, ctx, env.db, "acc-b", domain.AccountConnected, time.Now())

	assignments := repos.NewJobAccountAssignmentRepo(env.db)
	require.NoError(t, assignments.Assign(ctx, nil, job.ID, assigned.ID))

	enqueue(t, env, job.ID, cand.ID, conv.ID, domain.OutboundMessage)

	summary, err := env.d.Dispatch(ctx, 10, nil)
	require.NoError(t, err)
	require.Equal(t, 1, summary.Sent)
	require.Equal(t, []string{"acc-b"}, env.provider.sentTo)
}

func TestDispatch_ManualRoutingNoAssignmentsDefers(t *testing.T) {
	ctx := context.Background()
	env := newEnv(t, defaultPolicy())

	job := testutil.SeedJob(t, ctx, env.db, "Sr Backend")
	require.NoError(t, env.db.Model(&domain.Job{}).Where("id = ?", job.ID).
		Update("routing_mode", domain.RoutingManual).Error)
	cand := testutil.SeedCandidate(t, ctx, env.db, "prov-1", "Alex")
	conv := testutil.SeedConversation(t, ctx, env.db, job.ID, cand.ID)
	testutil.SeedAccount(t, ctx, env.db, "acc-a", domain.AccountConnected, time.Now())

	a := enqueue(t, env, job.ID, cand.ID, conv.ID, domain.OutboundMessage)

	summary, err := env.d.Dispatch(ctx, 10, nil)
	require.NoError(t, err)
	require.Equal(t, 1, summary.Deferred)

	got, err := env.actions.GetByID(ctx, nil, a.ID)
	require.NoError(t, err)
	require.Equal(t, ReasonManualNoAssignedAccounts, got.LastError)
}

func TestDispatch_DailyBudgetReachedDefers(t *testing.T) {
	ctx := context.Background()
	policy := defaultPolicy()
	policy.DailyMaxNewThreads = 2
	env := newEnv(t, policy)

	job := testutil.SeedJob(t, ctx, env.db, "Sr Backend")
	cand := testutil.SeedCandidate(t, ctx, env.db, "prov-1", "Alex")
	conv := testutil.SeedConversation(t, ctx, env.db, job.ID, cand.ID)
	acc := testutil.SeedAccount(t, ctx, env.db, "acc-a", domain.AccountConnected, time.Now())

	day := DayKey(time.Now())
	require.NoError(t, env.counters.IncrementDay(ctx, nil, acc.ID, day))
	require.NoError(t, env.counters.IncrementDay(ctx, nil, acc.ID, day))

	a := enqueue(t, env, job.ID, cand.ID, conv.ID, domain.OutboundMessage)

	summary, err := env.d.Dispatch(ctx, 10, nil)
	require.NoError(t, err)
	require.Equal(t, 1, summary.Deferred)

	got, err := env.actions.GetByID(ctx, nil, a.ID)
	require.NoError(t, err)
	require.Equal(t, ReasonDailyBudgetReached, got.LastError)
	require.Empty(t, env.provider.sentTo, "no send may happen past the daily cap")
}

func TestDispatch_TransientProviderErrorKeepsPending(t *testing.T) {
	ctx := context.Background()
	env := newEnv(t, defaultPolicy())
	env.provider.sendErr = context.DeadlineExceeded

	job := testutil.SeedJob(t, ctx, env.db, "Sr Backend")
	cand := testutil.SeedCandidate(t, ctx, env.db, "prov-1", "Alex")
	conv := testutil.SeedConversation(t, ctx, env.db, job.ID, cand.ID)
	acc := testutil.SeedAccount(t, ctx, env.db, "acc-a", domain.AccountConnected, time.Now())

	a := enqueue(t, env, job.ID, cand.ID, conv.ID, domain.OutboundMessage)

	summary, err := env.d.Dispatch(ctx, 10, nil)
	require.NoError(t, err)
	require.Equal(t, 1, summary.Failed)

	got, err := env.actions.GetByID(ctx, nil, a.ID)
	require.NoError(t, err)
	require.Equal(t, domain.OutboundPending, got.Status)
	require.Equal(t, 1, got.Attempts)
	require.NotEmpty(t, got.LastError)

	day := DayKey(time.Now())
	_, err = env.counters.GetDay(ctx, nil, acc.ID, day)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound, "failed sends must not spend budget")
}

func TestWarmupRampReducesConnectCap(t *testing.T) {
	policy := BudgetPolicy{DailyMaxNewThreads: 25, WeeklyConnectCap: 100, WarmupDays: 14, WarmupConnectCap: 25}
	now := time.Now()

	fresh := &domain.SenderAccount{ConnectedAt: timePtr(now.AddDate(0, 0, -3))}
	ramped := &domain.SenderAccount{ConnectedAt: timePtr(now.AddDate(0, 0, -30))}

	require.Equal(t, 25, policy.ConnectCapFor(fresh, now))
	require.Equal(t, 100, policy.ConnectCapFor(ramped, now))
}

func TestWeekKeyIsMonday(t *testing.T) {
	// 2026-07-29 is a Wednesday; its week starts Monday 2026-07-27.
	wed := time.Date(2026, 7, 29, 15, 0, 0, 0, time.UTC)
	require.Equal(t, "2026-07-27", WeekKey(wed))
	mon := time.Date(2026, 7, 27, 0, 0, 0, 0, time.UTC)
	require.Equal(t, "2026-07-27", WeekKey(mon))
	sun := time.Date(2026, 8, 2, 23, 0, 0, 0, time.UTC)
	require.Equal(t, "2026-07-27", WeekKey(sun))
}

func timePtr(t time.Time) *time.Time { return &t }
