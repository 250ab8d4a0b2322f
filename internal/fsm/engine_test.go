package fsm

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/tener/recruit-core/internal/domain"
	"github.com/tener/recruit-core/internal/fsm/templates"
)

func testEngine(t *testing.T) *Engine {
	t.Helper()
	tm, err := templates.NewManager("en")
	require.NoError(t, err)
	cfg := Config{FollowupDelaysHours: []int{48, 72, 72}, FollowupCap: 3, DefaultLanguage: "en"}
	return NewEngine(cfg, tm)
}

func TestStartSession(t *testing.T) {
	e := testEngine(t)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	session, intro := e.StartSession(uuid.New(), uuid.New(), uuid.New(), "Jane", "Backend Engineer", "scope", "profile", "", now)
	require.Equal(t, domain.PreResumeAwaitingReply, session.Status)
	require.Equal(t, "en", session.Language)
	require.NotNil(t, session.NextFollowupAt)
	require.Contains(t, intro, "Backend Engineer")
}

func TestHandleInbound_ResumeShared(t *testing.T) {
	e := testEngine(t)
	now := time.Now()
	session := &domain.PreResumeSession{Status: domain.PreResumeAwaitingReply, Language: "en"}
	event, intent, text, hasOutbound := e.HandleInbound(session, "Jane", "Backend Engineer", "profile", "here is my resume: https://drive.google.com/file/xyz.pdf", now)
	require.Equal(t, EventInboundProcessed, event)
	require.Equal(t, IntentResumeShared, intent)
	require.True(t, hasOutbound)
	require.NotEmpty(t, text)
	require.Equal(t, domain.PreResumeResumeReceived, session.Status)
	require.Nil(t, session.NextFollowupAt)
}

func TestHandleInbound_NotInterested(t *testing.T) {
	e := testEngine(t)
	now := time.Now()
	session := &domain.PreResumeSession{Status: domain.PreResumeAwaitingReply, Language: "en"}
	event, intent, _, _ := e.HandleInbound(session, "Jane", "Backend Engineer", "profile", "Not interested, please stop messaging me", now)
	require.Equal(t, EventInboundProcessed, event)
	require.Equal(t, IntentNotInterested, intent)
	require.Equal(t, domain.PreResumeNotInterested, session.Status)
	require.Nil(t, session.NextFollowupAt)
}

func TestHandleInbound_IgnoredWhenTerminal(t *testing.T) {
	e := testEngine(t)
	session := &domain.PreResumeSession{Status: domain.PreResumeNotInterested, Language: "en"}
	event, _, _, hasOutbound := e.HandleInbound(session, "Jane", "Backend Engineer", "profile", "hello again", time.Now())
	require.Equal(t, EventIgnoredTerminal, event)
	require.False(t, hasOutbound)
}

func TestBuildFollowup_CapReachedStalls(t *testing.T) {
	e := testEngine(t)
	now := time.Now()
	session := &domain.PreResumeSession{Status: domain.PreResumeAwaitingReply, Language: "en", FollowupsSent: 0}

	for i := 0; i < 2; i++ {
		sent, reason, text := e.BuildFollowup(session, "Jane", "Backend Engineer", "scope", "profile", now)
		require.True(t, sent, "attempt %d should send", i+1)
		require.Empty(t, reason)
		require.NotEmpty(t, text)
		require.False(t, session.Status.Terminal())
		require.NotNil(t, session.NextFollowupAt)
	}

	// The third send lands on the cap: it still goes out, but the
	// session stalls in the same call.
	sent, reason, text := e.BuildFollowup(session, "Jane", "Backend Engineer", "scope", "profile", now)
	require.True(t, sent)
	require.Empty(t, reason)
	require.NotEmpty(t, text)
	require.Equal(t, domain.PreResumeStalled, session.Status)
	require.Nil(t, session.NextFollowupAt)
	require.Equal(t, 3, session.FollowupsSent)

	sent, reason, text = e.BuildFollowup(session, "Jane", "Backend Engineer", "scope", "profile", now)
	require.False(t, sent)
	require.Equal(t, "max_followups_reached", reason)
	require.Empty(t, text)
	require.Equal(t, 3, session.FollowupsSent)
}

func TestBuildFollowup_TerminalIsNoOp(t *testing.T) {
	e := testEngine(t)
	session := &domain.PreResumeSession{Status: domain.PreResumeResumeReceived, FollowupsSent: 1}
	sent, reason, _ := e.BuildFollowup(session, "Jane", "Backend Engineer", "scope", "profile", time.Now())
	require.False(t, sent)
	require.Equal(t, "terminal", reason)
	require.Equal(t, 1, session.FollowupsSent)
}

func TestMarkUnreachable(t *testing.T) {
	e := testEngine(t)
	session := &domain.PreResumeSession{Status: domain.PreResumeAwaitingReply}
	e.MarkUnreachable(session, "delivery failed", time.Now())
	require.Equal(t, domain.PreResumeUnreachable, session.Status)
	require.Equal(t, "delivery failed", session.LastError)
	require.Nil(t, session.NextFollowupAt)
}

func TestDetectLanguage(t *testing.T) {
	require.Equal(t, "ru", DetectLanguage("Привет, как дела?"))
	require.Equal(t, "es", DetectLanguage("Hola, ¿cómo estás?"))
	require.Equal(t, "en", DetectLanguage("Hey, how's it going?"))
}

func TestClassifyIntent_Priority(t *testing.T) {
	require.Equal(t, IntentResumeShared, ClassifyIntent("attached resume, let me know"))
	require.Equal(t, IntentResumeShared, ClassifyIntent("here you go https://files.example.com/my-resume-file"))
	require.Equal(t, IntentResumeShared, ClassifyIntent("sure: https://short.link/alex-cv"))
	require.Equal(t, IntentNotInterested, ClassifyIntent("no thanks, not looking right now"))
	require.Equal(t, IntentWillSendLater, ClassifyIntent("will send tomorrow"))
	require.Equal(t, IntentSalary, ClassifyIntent("what is the salary range"))
	require.Equal(t, IntentDefault, ClassifyIntent("sounds interesting, tell me more"))
}
