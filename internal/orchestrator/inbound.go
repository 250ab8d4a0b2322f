package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tener/recruit-core/internal/domain"
	"github.com/tener/recruit-core/internal/fsm"
	"github.com/tener/recruit-core/internal/providers/llm"
)

// InboundResult is what the caller of ProcessInbound sees: the reply
// text, which path handled it, and the session state when the FSM
// did.
type InboundResult struct {
	Mode    string                   `json:"mode"` // "pre_resume" or "faq"
	Reply   string                   `json:"reply,omitempty"`
	Intent  string                   `json:"intent,omitempty"`
	Event   string                   `json:"event,omitempty"`
	Session *domain.PreResumeSession `json:"session,omitempty"`
}

// ProcessInbound persists the inbound message and routes it: to the
// pre-resume FSM when an active non-terminal session exists on the
// conversation, else to the FAQ responder. The FSM path is serialized
// per session. meta is stored on the inbound message row (the poll
// path uses it to carry the provider-message-id dedup key).
func (o *Orchestrator) ProcessInbound(ctx context.Context, conversationID uuid.UUID, text string, meta map[string]any) (*InboundResult, error) {
	conv, err := o.deps.Conversations.GetByID(ctx, nil, conversationID)
	if err != nil {
		return nil, fmt.Errorf("load conversation: %w", err)
	}
	job, err := o.deps.Jobs.GetByID(ctx, nil, conv.JobID)
	if err != nil {
		return nil, fmt.Errorf("load job: %w", err)
	}
	cand, err := o.deps.Candidates.GetByID(ctx, nil, conv.CandidateID)
	if err != nil {
		return nil, fmt.Errorf("load candidate: %w", err)
	}

	now := time.Now()
	inbound := &domain.Message{
		ConversationID: conv.ID,
		Direction:      domain.DirectionInbound,
		Content:        text,
		CreatedAt:      now,
	}
	if len(meta) > 0 {
		inbound.Metadata = mustJSON(meta)
	}
	if _, err := o.deps.Messages.Append(ctx, nil, inbound); err != nil {
		return nil, fmt.Errorf("persist inbound message: %w", err)
	}
	if err := o.touchConversation(ctx, conv.ID, now); err != nil {
		o.log.Warn("conversation touch failed", "error", err)
	}

	session, serr := o.deps.Sessions.GetByConversationID(ctx, nil, conv.ID)
	if serr == nil && !session.Status.Terminal() {
		return o.processInboundFSM(ctx, job, cand, conv, session, text, now)
	}
	if serr != nil && !errors.Is(serr, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("load pre-resume session: %w", serr)
	}
	return o.processInboundFAQ(ctx, job, cand, conv, text, now)
}

func (o *Orchestrator) processInboundFSM(ctx context.Context, job *domain.Job, cand *domain.Candidate, conv *domain.Conversation, session *domain.PreResumeSession, text string, now time.Time) (*InboundResult, error) {
	unlock := o.locks.acquire(session.ID)
	defer unlock()

	// Re-read under the lock: another writer may have advanced the
	// session between routing and here.
	session, err := o.deps.Sessions.GetByID(ctx, nil, session.ID)
	if err != nil {
		return nil, fmt.Errorf("reload pre-resume session: %w", err)
	}

	event, intent, outbound, hasOutbound := o.deps.FSM.HandleInbound(session, cand.FullName, job.Title, cand.Headline, text, now)
	if event == fsm.EventIgnoredTerminal {
		return &InboundResult{Mode: "pre_resume", Event: event, Session: session}, nil
	}

	if err := o.deps.Sessions.Save(ctx, nil, session); err != nil {
		return nil, fmt.Errorf("save pre-resume session: %w", err)
	}

	if session.Status == domain.PreResumeResumeReceived {
		if err := o.deps.Matches.UpdateStatus(ctx, nil, job.ID, cand.ID, domain.MatchResumeReceived); err != nil {
			o.log.Warn("match resume_received update failed", "error", err)
		}
	}

	reply := outbound
	if hasOutbound {
		reply = llm.ReplyOrFallback(ctx, o.deps.Responder, llm.Request{
			Mode:        "pre_resume",
			JobTitle:    job.Title,
			JDText:      job.JDText,
			Candidate:   cand.FullName,
			InboundText: text,
			Language:    session.Language,
			State:       map[string]any{"status": string(session.Status), "intent": string(intent)},
		}, outbound)
		if _, err := o.deps.Messages.Append(ctx, nil, &domain.Message{
			ConversationID: conv.ID,
			Direction:      domain.DirectionOutbound,
			Language:       session.Language,
			Content:        reply,
			Metadata:       mustJSON(map[string]any{"auto": true, "type": "pre_resume_reply"}),
			CreatedAt:      now,
		}); err != nil {
			return nil, fmt.Errorf("persist reply: %w", err)
		}
	}

	if err := o.deps.Events.Append(ctx, nil, &domain.PreResumeEvent{
		SessionID:       session.ID,
		EventType:       domain.EventInboundProcessed,
		Intent:          string(intent),
		InboundText:     text,
		OutboundText:    reply,
		ResultingStatus: string(session.Status),
		CreatedAt:       now,
	}); err != nil {
		o.log.Warn("pre-resume event append failed", "error", err)
	}

	return &InboundResult{
		Mode:    "pre_resume",
		Reply:   reply,
		Intent:  string(intent),
		Event:   event,
		Session: session,
	}, nil
}

func (o *Orchestrator) processInboundFAQ(ctx context.Context, job *domain.Job, cand *domain.Candidate, conv *domain.Conversation, text string, now time.Time) (*InboundResult, error) {
	fallback := "Thanks for reaching out — someone from the team will get back to you about the " + job.Title + " role shortly."
	reply := llm.ReplyOrFallback(ctx, o.deps.Responder, llm.Request{
		Mode:        "faq",
		JobTitle:    job.Title,
		JDText:      job.JDText,
		Candidate:   cand.FullName,
		InboundText: text,
	}, fallback)

	if _, err := o.deps.Messages.Append(ctx, nil, &domain.Message{
		ConversationID: conv.ID,
		Direction:      domain.DirectionOutbound,
		Content:        reply,
		Metadata:       mustJSON(map[string]any{"auto": true, "type": "faq_reply"}),
		CreatedAt:      now,
	}); err != nil {
		return nil, fmt.Errorf("persist faq reply: %w", err)
	}
	return &InboundResult{Mode: "faq", Reply: reply}, nil
}

func (o *Orchestrator) touchConversation(ctx context.Context, id uuid.UUID, now time.Time) error {
	return o.deps.DB.WithContext(ctx).Model(&domain.Conversation{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"last_message_at": now, "updated_at": now}).Error
}
