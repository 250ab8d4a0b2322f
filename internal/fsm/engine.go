package fsm

import (
	"time"

	"github.com/google/uuid"

	"github.com/tener/recruit-core/internal/domain"
	"github.com/tener/recruit-core/internal/fsm/templates"
)

// Event names returned alongside a state mutation. These double as
// PreResumeEvent.EventType values except for the no-op case.
const (
	EventSessionStarted     = "session_started"
	EventInboundProcessed   = "inbound_processed"
	EventFollowupSent       = "followup_sent"
	EventSessionUnreachable = "session_unreachable"
	EventIgnoredTerminal    = "ignored_terminal"
)

// Engine is the pre-resume conversational state machine. It mutates
// the session it is given in place; callers own persistence and
// cache invalidation.
type Engine struct {
	cfg       Config
	templates *templates.Manager
}

func NewEngine(cfg Config, tm *templates.Manager) *Engine {
	return &Engine{cfg: cfg, templates: tm}
}

func renderVars(candidateName, jobTitle, scopeSummary, coreProfileSummary string) map[string]string {
	return map[string]string{
		"name":                 candidateName,
		"job_title":            jobTitle,
		"scope_summary":        scopeSummary,
		"core_profile_summary": coreProfileSummary,
	}
}

// StartSession builds the initial session row and intro message.
// Fails only at the persistence layer (unique constraint on
// conversation_id); this constructor assumes the caller has already
// confirmed no session exists for the conversation.
func (e *Engine) StartSession(conversationID, jobID, candidateID uuid.UUID, candidateName, jobTitle, scopeSummary, coreProfileSummary, language string, now time.Time) (*domain.PreResumeSession, string) {
	if language == "" {
		language = e.cfg.DefaultLanguage
	}
	next := now.Add(time.Duration(e.cfg.DelayForAttempt(0)) * time.Hour)
	session := &domain.PreResumeSession{
		ConversationID: conversationID,
		JobID:          jobID,
		CandidateID:    candidateID,
		Status:         domain.PreResumeAwaitingReply,
		Language:       language,
		FollowupsSent:  0,
		Turns:          0,
		NextFollowupAt: &next,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	intro, _ := renderOrFallback(e.templates.Current(), "intro", language,
		renderVars(candidateName, jobTitle, scopeSummary, coreProfileSummary),
		"Hi "+candidateName+", reaching out about "+jobTitle+".")
	return session, intro
}

// HandleInbound classifies the inbound text and advances the session.
// It is a no-op in terminal states.
func (e *Engine) HandleInbound(session *domain.PreResumeSession, candidateName, jobTitle, coreProfileSummary, text string, now time.Time) (event string, intent Intent, outboundText string, hasOutbound bool) {
	if session.Status.Terminal() {
		return EventIgnoredTerminal, IntentDefault, "", false
	}

	language := session.Language
	if language == "" {
		language = DetectLanguage(text)
		session.Language = language
	}

	intent = ClassifyIntent(text)
	session.Turns++
	session.LastIntent = string(intent)
	session.UpdatedAt = now

	vars := renderVars(candidateName, jobTitle, "", coreProfileSummary)
	bundle := e.templates.Current()

	switch intent {
	case IntentResumeShared:
		session.Status = domain.PreResumeResumeReceived
		session.NextFollowupAt = nil
		if url := resumeURLPattern.FindString(text); url != "" {
			links := append(session.ResumeLinkList(), url)
			session.SetResumeLinks(links)
		}
		outboundText, hasOutbound = renderOrFallback(bundle, "resume_ack", language, vars,
			"Thanks, got your resume — we'll follow up shortly.")
	case IntentNotInterested:
		session.Status = domain.PreResumeNotInterested
		session.NextFollowupAt = nil
		outboundText, hasOutbound = renderOrFallback(bundle, "opt_out_ack", language, vars,
			"Understood, we won't reach out again.")
	case IntentWillSendLater:
		session.Status = domain.PreResumeResumePromised
		e.scheduleNext(session, now)
		outboundText, hasOutbound = renderOrFallback(bundle, "promise_ack", language, vars,
			"No problem, looking forward to your resume.")
	default:
		session.Status = domain.PreResumeEngagedNoResume
		e.scheduleNext(session, now)
		outboundText, hasOutbound = renderOrFallback(bundle, "intent_answer", language, vars,
			"Happy to help — could you send your resume when you get a chance?")
	}

	return EventInboundProcessed, intent, outboundText, hasOutbound
}

// BuildFollowup increments followups_sent before testing the cap, so
// the attempt being composed counts against the budget. The send that
// lands exactly on the cap still goes out, but it stalls the session
// in the same call: no further follow-up is ever scheduled, and
// followups_sent never exceeds the cap.
func (e *Engine) BuildFollowup(session *domain.PreResumeSession, candidateName, jobTitle, scopeSummary, coreProfileSummary string, now time.Time) (sent bool, reason, outboundText string) {
	if session.Status.Terminal() {
		if session.Status == domain.PreResumeStalled {
			return false, "max_followups_reached", ""
		}
		return false, "terminal", ""
	}

	session.FollowupsSent++
	session.UpdatedAt = now

	vars := renderVars(candidateName, jobTitle, scopeSummary, coreProfileSummary)
	outboundText, _ = renderOrFallback(e.templates.Current(), "followup", session.Language, vars,
		"Just checking back — would still love to see your resume when you get a chance.")

	if session.FollowupsSent >= e.cfg.FollowupCap {
		session.Status = domain.PreResumeStalled
		session.NextFollowupAt = nil
	} else {
		e.scheduleNext(session, now)
	}
	return true, "", outboundText
}

// MarkUnreachable is a terminal transition recording delivery failure.
func (e *Engine) MarkUnreachable(session *domain.PreResumeSession, errorText string, now time.Time) {
	session.Status = domain.PreResumeUnreachable
	session.LastError = errorText
	session.NextFollowupAt = nil
	session.UpdatedAt = now
}

func (e *Engine) scheduleNext(session *domain.PreResumeSession, now time.Time) {
	next := now.Add(time.Duration(e.cfg.DelayForAttempt(session.FollowupsSent)) * time.Hour)
	session.NextFollowupAt = &next
}

func renderOrFallback(b *templates.Bundle, purpose, language string, vars map[string]string, fallback string) (string, bool) {
	if text, ok := b.Render(purpose, language, vars); ok {
		return text, true
	}
	return fallback, true
}
