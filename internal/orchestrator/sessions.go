package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tener/recruit-core/internal/domain"
	"github.com/tener/recruit-core/internal/platform/apierr"
)

// StartPreResumeSession opens the FSM for a conversation and returns
// the session plus its intro text. Starting twice on the same
// conversation is a conflict.
func (o *Orchestrator) StartPreResumeSession(ctx context.Context, conversationID uuid.UUID, scopeSummary, language string) (*domain.PreResumeSession, string, error) {
	conv, err := o.deps.Conversations.GetByID(ctx, nil, conversationID)
	if err != nil {
		return nil, "", apierr.NotFound(fmt.Errorf("conversation %s: %w", conversationID, err))
	}
	if _, err := o.deps.Sessions.GetByConversationID(ctx, nil, conversationID); err == nil {
		return nil, "", apierr.Conflict(fmt.Errorf("session already exists for conversation %s", conversationID))
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, "", err
	}

	job, err := o.deps.Jobs.GetByID(ctx, nil, conv.JobID)
	if err != nil {
		return nil, "", fmt.Errorf("load job: %w", err)
	}
	cand, err := o.deps.Candidates.GetByID(ctx, nil, conv.CandidateID)
	if err != nil {
		return nil, "", fmt.Errorf("load candidate: %w", err)
	}

	now := time.Now()
	session, intro := o.deps.FSM.StartSession(conv.ID, job.ID, cand.ID, cand.FullName, job.Title, scopeSummary, cand.Headline, language, now)
	if _, err := o.deps.Sessions.Create(ctx, nil, session); err != nil {
		return nil, "", fmt.Errorf("create session: %w", err)
	}
	if err := o.deps.Events.Append(ctx, nil, &domain.PreResumeEvent{
		SessionID:       session.ID,
		EventType:       domain.EventSessionStarted,
		OutboundText:    intro,
		ResultingStatus: string(session.Status),
		CreatedAt:       now,
	}); err != nil {
		o.log.Warn("pre-resume event append failed", "error", err)
	}
	return session, intro, nil
}

// GetPreResumeSession returns the canonical persisted session row.
func (o *Orchestrator) GetPreResumeSession(ctx context.Context, sessionID uuid.UUID) (*domain.PreResumeSession, error) {
	s, err := o.deps.Sessions.GetByID(ctx, nil, sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.NotFound(fmt.Errorf("session %s", sessionID))
		}
		return nil, err
	}
	return s, nil
}

// MarkSessionUnreachable records a terminal delivery failure on a
// session.
func (o *Orchestrator) MarkSessionUnreachable(ctx context.Context, sessionID uuid.UUID, errorText string) (*domain.PreResumeSession, error) {
	unlock := o.locks.acquire(sessionID)
	defer unlock()

	session, err := o.deps.Sessions.GetByID(ctx, nil, sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.NotFound(fmt.Errorf("session %s", sessionID))
		}
		return nil, err
	}
	if session.Status.Terminal() {
		return session, nil
	}

	now := time.Now()
	o.deps.FSM.MarkUnreachable(session, errorText, now)
	if err := o.deps.Sessions.Save(ctx, nil, session); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	if err := o.deps.Events.Append(ctx, nil, &domain.PreResumeEvent{
		SessionID:       session.ID,
		EventType:       domain.EventSessionUnreachable,
		ResultingStatus: string(session.Status),
		CreatedAt:       now,
	}); err != nil {
		o.log.Warn("pre-resume event append failed", "error", err)
	}
	return session, nil
}
