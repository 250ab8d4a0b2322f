package orchestrator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/tener/recruit-core/internal/domain"
	"github.com/tener/recruit-core/internal/fsm"
	"github.com/tener/recruit-core/internal/fsm/templates"
	"github.com/tener/recruit-core/internal/matching"
	"github.com/tener/recruit-core/internal/providers/messaging"
	"github.com/tener/recruit-core/internal/repos"
	"github.com/tener/recruit-core/internal/repos/testutil"
)

type scriptedProvider struct {
	searchResults map[string][]messaging.Profile
	searchErr     error
	enrichErr     error
	chatMessages  []messaging.ChatMessage
	sent          []string
}

func (p *scriptedProvider) SearchProfiles(ctx context.Context, query string, limit int) ([]messaging.Profile, error) {
	if p.searchErr != nil {
		return nil, p.searchErr
	}
	return p.searchResults[query], nil
}
func (p *scriptedProvider) EnrichProfile(ctx context.Context, in messaging.Profile) (messaging.Profile, error) {
	if p.enrichErr != nil {
		return in, p.enrichErr
	}
	out := in
	out.Skills = append(out.Skills, "postgresql")
	return out, nil
}
func (p *scriptedProvider) SendMessage(ctx context.Context, accountID string, prof messaging.Profile, text string) (messaging.SendResult, error) {
	p.sent = append(p.sent, text)
	return messaging.SendResult{Sent: true, ChatID: "chat-1"}, nil
}
func (p *scriptedProvider) SendConnectionRequest(ctx context.Context, accountID string, prof messaging.Profile, note string) (messaging.ConnectResult, error) {
	return messaging.ConnectResult{Sent: true}, nil
}
func (p *scriptedProvider) CheckConnectionStatus(ctx context.Context, accountID string, prof messaging.Profile) (bool, error) {
	return true, nil
}
func (p *scriptedProvider) FetchChatMessages(ctx context.Context, chatID string, limit int) ([]messaging.ChatMessage, error) {
	return p.chatMessages, nil
}

type orchEnv struct {
	db       *gorm.DB
	provider *scriptedProvider
	o        *Orchestrator
	deps     Deps
}

func newOrchEnv(t *testing.T) *orchEnv {
	t.Helper()
	gdb := testutil.DB(t)
	log := testutil.Logger(t)

	tm, err := templates.NewManager("en")
	require.NoError(t, err)
	fsmEngine := fsm.NewEngine(fsm.Config{FollowupDelaysHours: []int{48, 72, 72}, FollowupCap: 3, DefaultLanguage: "en"}, tm)
	matcher := matching.NewEngine(matching.Config{
		SkillsWeight: 0.45, SeniorityWeight: 0.25, LocationWeight: 0.15, LanguageWeight: 0.15,
		VerifiedThreshold: 0.65, RulesVersion: "v1",
	})
	provider := &scriptedProvider{searchResults: map[string][]messaging.Profile{}}

	deps := Deps{
		DB:            gdb,
		Provider:      provider,
		Matcher:       matcher,
		FSM:           fsmEngine,
		Templates:     tm,
		Jobs:          repos.NewJobRepo(gdb),
		Candidates:    repos.NewCandidateRepo(gdb),
		Matches:       repos.NewMatchRepo(gdb),
		Conversations: repos.NewConversationRepo(gdb),
		Messages:      repos.NewMessageRepo(gdb),
		Sessions:      repos.NewPreResumeSessionRepo(gdb),
		Events:        repos.NewPreResumeEventRepo(gdb),
		Assessments:   repos.NewAgentAssessmentRepo(gdb),
		Accounts:      repos.NewSenderAccountRepo(gdb),
		Actions:       repos.NewOutboundActionRepo(gdb),
		Progress:      repos.NewJobStepProgressRepo(gdb),
		OpLogs:        repos.NewOperationLogRepo(gdb),
	}
	cfg := Config{
		SourceLimit: 50, PerQueryLimit: 10, PollFetchLimit: 20,
		FollowupBatchLimit: 100, Channel: "linkedin",
		RequireResumeBeforeFinalVerify: true,
	}
	return &orchEnv{db: gdb, provider: provider, o: New(log, cfg, deps), deps: deps}
}

func sampleProfile(id, name string) messaging.Profile {
	return messaging.Profile{
		ProviderID: id, FullName: name, Headline: "Backend Engineer",
		Location: "Berlin", Languages: []string{"en"},
		Skills: []string{"go", "postgresql"}, YearsExperience: 6,
	}
}

func TestSource_DedupAcrossQueries(t *testing.T) {
	ctx := context.Background()
	env := newOrchEnv(t)
	job := testutil.SeedJob(t, ctx, env.db, "Senior Go Engineer")

	alex := sampleProfile("p-1", "Alex")
	dupAlex := sampleProfile("p-1", "Alex A.")
	blake := sampleProfile("p-2", "Blake")
	env.provider.searchResults[job.Title] = []messaging.Profile{alex, dupAlex}
	env.provider.searchResults[job.Title+" go"] = []messaging.Profile{alex, blake}

	summary, err := env.o.Source(ctx, job, 10)
	require.NoError(t, err)
	require.Equal(t, 2, summary.Collected, "duplicates collapse on provider id")
}

func TestSource_AllQueriesFailedRaises(t *testing.T) {
	ctx := context.Background()
	env := newOrchEnv(t)
	job := testutil.SeedJob(t, ctx, env.db, "Senior Go Engineer")
	env.provider.searchErr = errors.New("provider down")

	_, err := env.o.Source(ctx, job, 10)
	require.Error(t, err)
}

func TestEnrich_FailureKeepsOriginal(t *testing.T) {
	ctx := context.Background()
	env := newOrchEnv(t)
	job := testutil.SeedJob(t, ctx, env.db, "Senior Go Engineer")
	env.provider.enrichErr = errors.New("rate limited")

	in := []messaging.Profile{sampleProfile("p-1", "Alex")}
	summary, err := env.o.Enrich(ctx, job, in)
	require.NoError(t, err)
	require.Equal(t, 1, summary.Failed)
	require.Equal(t, in[0].Skills, summary.Profiles[0].Skills)
}

func TestVerify_ExplanationMentionsScore(t *testing.T) {
	ctx := context.Background()
	env := newOrchEnv(t)
	job := testutil.SeedJob(t, ctx, env.db, "Senior Go Engineer")

	summary, err := env.o.Verify(ctx, job, []messaging.Profile{sampleProfile("p-1", "Alex")})
	require.NoError(t, err)
	require.Len(t, summary.Items, 1)
	require.Contains(t, summary.Items[0].Notes.Explanation, "score")
}

func TestAddAndOutreach_EnqueuesActionAndStartsSession(t *testing.T) {
	ctx := context.Background()
	env := newOrchEnv(t)
	job := testutil.SeedJob(t, ctx, env.db, "Senior Go Engineer")

	verify, err := env.o.Verify(ctx, job, []messaging.Profile{sampleProfile("p-1", "Alex")})
	require.NoError(t, err)
	require.Equal(t, 1, verify.Verified)

	added, err := env.o.Add(ctx, job, verify.Items)
	require.NoError(t, err)
	require.Len(t, added.Added, 1)
	require.Equal(t, string(domain.MatchNeedsResume), added.Added[0].Status)

	out, err := env.o.Outreach(ctx, job, []uuid.UUID{added.Added[0].CandidateID})
	require.NoError(t, err)
	require.Equal(t, 1, out.Enqueued)
	require.Equal(t, 1, out.Sessions)

	// The action is enqueued, not dispatched inline.
	require.Empty(t, env.provider.sent)
	action, err := env.deps.Actions.ClaimNextPending(ctx, nil, &job.ID, nil)
	require.NoError(t, err)
	require.Equal(t, domain.OutboundPending, action.Status)
	require.NotEmpty(t, action.PayloadText)

	conv, err := env.deps.Conversations.GetByJobAndCandidate(ctx, nil, job.ID, added.Added[0].CandidateID)
	require.NoError(t, err)
	session, err := env.deps.Sessions.GetByConversationID(ctx, nil, conv.ID)
	require.NoError(t, err)
	require.Equal(t, domain.PreResumeAwaitingReply, session.Status)
}

func TestProcessInbound_ResumeFlow(t *testing.T) {
	ctx := context.Background()
	env := newOrchEnv(t)

	job := testutil.SeedJob(t, ctx, env.db, "Sr Backend")
	cand := testutil.SeedCandidate(t, ctx, env.db, "p-1", "Alex")
	testutil.SeedMatch(t, ctx, env.db, job.ID, cand.ID, 0.8, domain.MatchNeedsResume)
	conv := testutil.SeedConversation(t, ctx, env.db, job.ID, cand.ID)
	_, _, err := env.o.StartPreResumeSession(ctx, conv.ID, "", "en")
	require.NoError(t, err)

	res, err := env.o.ProcessInbound(ctx, conv.ID, "Here is my resume https://example.com/alex.pdf", nil)
	require.NoError(t, err)
	require.Equal(t, "pre_resume", res.Mode)
	require.Equal(t, string(fsm.IntentResumeShared), res.Intent)
	require.Equal(t, domain.PreResumeResumeReceived, res.Session.Status)
	require.Equal(t, []string{"https://example.com/alex.pdf"}, res.Session.ResumeLinkList())
	require.Nil(t, res.Session.NextFollowupAt)

	m, err := env.deps.Matches.GetByJobAndCandidate(ctx, nil, job.ID, cand.ID)
	require.NoError(t, err)
	require.Equal(t, domain.MatchResumeReceived, m.Status)

	// Terminal session: further inbound routes to FAQ? No — session
	// exists but terminal, so FAQ handles it.
	res2, err := env.o.ProcessInbound(ctx, conv.ID, "what is the salary?", nil)
	require.NoError(t, err)
	require.Equal(t, "faq", res2.Mode)
	require.NotEmpty(t, res2.Reply)
}

func TestProcessInbound_NoSessionRoutesToFAQ(t *testing.T) {
	ctx := context.Background()
	env := newOrchEnv(t)
	job := testutil.SeedJob(t, ctx, env.db, "Sr Backend")
	cand := testutil.SeedCandidate(t, ctx, env.db, "p-1", "Alex")
	conv := testutil.SeedConversation(t, ctx, env.db, job.ID, cand.ID)

	res, err := env.o.ProcessInbound(ctx, conv.ID, "tell me more", nil)
	require.NoError(t, err)
	require.Equal(t, "faq", res.Mode)

	msgs, err := env.deps.Messages.ListByConversation(ctx, nil, conv.ID, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	require.Equal(t, domain.DirectionInbound, msgs[0].Direction)
	require.Equal(t, domain.DirectionOutbound, msgs[1].Direction)
	require.Greater(t, msgs[1].ID, msgs[0].ID)
}

func TestFollowupTick_SendsAndEventuallyStalls(t *testing.T) {
	ctx := context.Background()
	env := newOrchEnv(t)
	job := testutil.SeedJob(t, ctx, env.db, "Sr Backend")
	cand := testutil.SeedCandidate(t, ctx, env.db, "p-1", "Alex")
	conv := testutil.SeedConversation(t, ctx, env.db, job.ID, cand.ID)
	session, _, err := env.o.StartPreResumeSession(ctx, conv.ID, "", "en")
	require.NoError(t, err)

	now := time.Now()
	for i := 1; i <= 3; i++ {
		future := now.Add(time.Duration(i*80) * time.Hour * 24)
		summary, err := env.o.FollowupTick(ctx, future)
		require.NoError(t, err)
		require.Equal(t, 1, summary.Sent, "tick %d", i)
	}

	got, err := env.deps.Sessions.GetByID(ctx, nil, session.ID)
	require.NoError(t, err)
	require.Equal(t, domain.PreResumeStalled, got.Status)
	require.Equal(t, 3, got.FollowupsSent)
	require.Nil(t, got.NextFollowupAt)

	// A stalled session is never due again.
	summary, err := env.o.FollowupTick(ctx, now.Add(1000*time.Hour))
	require.NoError(t, err)
	require.Equal(t, 0, summary.Due)

	// Without an assigned sender account, deliveries queue for the
	// dispatcher.
	var actions int64
	require.NoError(t, env.db.Model(&domain.OutboundAction{}).Count(&actions).Error)
	require.Equal(t, int64(3), actions)
}

func TestPollInbound_DedupAndAttachmentSynthesis(t *testing.T) {
	ctx := context.Background()
	env := newOrchEnv(t)
	job := testutil.SeedJob(t, ctx, env.db, "Sr Backend")
	cand := testutil.SeedCandidate(t, ctx, env.db, "p-1", "Alex")
	testutil.SeedMatch(t, ctx, env.db, job.ID, cand.ID, 0.8, domain.MatchNeedsResume)
	conv := testutil.SeedConversation(t, ctx, env.db, job.ID, cand.ID)
	require.NoError(t, env.deps.Conversations.BindExternalChatID(ctx, nil, conv.ID, "chat-9"))
	_, _, err := env.o.StartPreResumeSession(ctx, conv.ID, "", "en")
	require.NoError(t, err)

	env.provider.chatMessages = []messaging.ChatMessage{
		{ProviderMessageID: "pm-1", Inbound: true, Text: "", Attachments: []messaging.Attachment{{URL: "https://files.example.com/alex_resume.pdf", Name: "alex_resume.pdf"}}},
		{ProviderMessageID: "pm-2", Inbound: false, Text: "our own outbound"},
	}

	summary, err := env.o.PollInbound(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, summary.NewInbound)

	session, err := env.deps.Sessions.GetByConversationID(ctx, nil, conv.ID)
	require.NoError(t, err)
	require.Equal(t, domain.PreResumeResumeReceived, session.Status, "attachment synthesized into resume_shared")

	// Second poll sees the same provider message and skips it.
	summary, err = env.o.PollInbound(ctx)
	require.NoError(t, err)
	require.Equal(t, 0, summary.NewInbound)
}

func TestRunStage_CheckpointsAndChains(t *testing.T) {
	ctx := context.Background()
	env := newOrchEnv(t)
	job := testutil.SeedJob(t, ctx, env.db, "Senior Go Engineer")
	env.provider.searchResults[job.Title] = []messaging.Profile{sampleProfile("p-1", "Alex")}

	_, err := env.o.RunStage(ctx, StageSource, job.ID, nil)
	require.NoError(t, err)

	prog, err := env.deps.Progress.Get(ctx, nil, job.ID, StageSource)
	require.NoError(t, err)
	require.Equal(t, "ok", prog.Status)

	// Later stages read their input from the previous checkpoint.
	_, err = env.o.RunStage(ctx, StageEnrich, job.ID, nil)
	require.NoError(t, err)
	_, err = env.o.RunStage(ctx, StageVerify, job.ID, nil)
	require.NoError(t, err)
	addOut, err := env.o.RunStage(ctx, StageAdd, job.ID, nil)
	require.NoError(t, err)
	require.Len(t, addOut.(*AddSummary).Added, 1)
	_, err = env.o.RunStage(ctx, StageOutreach, job.ID, nil)
	require.NoError(t, err)

	_, err = env.o.RunStage(ctx, "bogus", job.ID, nil)
	require.Error(t, err)
}

func TestStartPreResumeSession_DuplicateConflicts(t *testing.T) {
	ctx := context.Background()
	env := newOrchEnv(t)
	job := testutil.SeedJob(t, ctx, env.db, "Sr Backend")
	cand := testutil.SeedCandidate(t, ctx, env.db, "p-1", "Alex")
	conv := testutil.SeedConversation(t, ctx, env.db, job.ID, cand.ID)

	_, _, err := env.o.StartPreResumeSession(ctx, conv.ID, "", "en")
	require.NoError(t, err)
	_, _, err = env.o.StartPreResumeSession(ctx, conv.ID, "", "en")
	require.Error(t, err)
}
