package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tener/recruit-core/internal/domain"
)

type FollowupSummary struct {
	Due     int `json:"due"`
	Sent    int `json:"sent"`
	Stalled int `json:"stalled"`
	Failed  int `json:"failed"`
}

// FollowupTick scans sessions whose next follow-up is due and runs
// BuildFollowup on each under the per-session lock. Sent follow-ups
// are delivered through the provider when the conversation already
// has an assigned account; otherwise they are enqueued for the
// dispatcher.
func (o *Orchestrator) FollowupTick(ctx context.Context, now time.Time) (*FollowupSummary, error) {
	due, err := o.deps.Sessions.ListDueForFollowup(ctx, nil, now, o.cfg.FollowupBatchLimit)
	if err != nil {
		return nil, fmt.Errorf("list due sessions: %w", err)
	}

	summary := &FollowupSummary{Due: len(due)}
	for _, s := range due {
		if err := o.followupOne(ctx, s, now, summary); err != nil {
			summary.Failed++
			o.log.Warn("followup failed", "session_id", s.ID, "error", err)
		}
	}
	if summary.Due > 0 {
		o.logOp(ctx, "scheduler.followup_tick", "ok", "", nil, map[string]any{
			"due": summary.Due, "sent": summary.Sent, "stalled": summary.Stalled,
		})
	}
	return summary, nil
}

// ForceFollowup runs BuildFollowup for one session immediately,
// ignoring next_followup_at. Used by the pre-resume control surface.
func (o *Orchestrator) ForceFollowup(ctx context.Context, sessionID uuid.UUID) (bool, string, *domain.PreResumeSession, error) {
	unlock := o.locks.acquire(sessionID)
	defer unlock()

	session, err := o.deps.Sessions.GetByID(ctx, nil, sessionID)
	if err != nil {
		return false, "", nil, fmt.Errorf("load session: %w", err)
	}
	job, err := o.deps.Jobs.GetByID(ctx, nil, session.JobID)
	if err != nil {
		return false, "", nil, fmt.Errorf("load job: %w", err)
	}
	cand, err := o.deps.Candidates.GetByID(ctx, nil, session.CandidateID)
	if err != nil {
		return false, "", nil, fmt.Errorf("load candidate: %w", err)
	}

	now := time.Now()
	sent, reason, text := o.deps.FSM.BuildFollowup(session, cand.FullName, job.Title, "", cand.Headline, now)
	if err := o.deps.Sessions.Save(ctx, nil, session); err != nil {
		return false, "", nil, fmt.Errorf("save session: %w", err)
	}
	if !sent {
		return false, reason, session, nil
	}
	if err := o.deps.Events.Append(ctx, nil, &domain.PreResumeEvent{
		SessionID:       session.ID,
		EventType:       domain.EventFollowupSent,
		OutboundText:    text,
		ResultingStatus: string(session.Status),
		CreatedAt:       now,
	}); err != nil {
		o.log.Warn("pre-resume event append failed", "error", err)
	}
	if err := o.deliverFollowup(ctx, session, text, now); err != nil {
		return true, "", session, err
	}
	return true, "", session, nil
}

func (o *Orchestrator) followupOne(ctx context.Context, stale *domain.PreResumeSession, now time.Time, summary *FollowupSummary) error {
	unlock := o.locks.acquire(stale.ID)
	defer unlock()

	session, err := o.deps.Sessions.GetByID(ctx, nil, stale.ID)
	if err != nil {
		return fmt.Errorf("reload session: %w", err)
	}
	// An inbound may have landed between the scan and the lock.
	if session.Status.Terminal() || session.NextFollowupAt == nil || session.NextFollowupAt.After(now) {
		return nil
	}

	job, err := o.deps.Jobs.GetByID(ctx, nil, session.JobID)
	if err != nil {
		return fmt.Errorf("load job: %w", err)
	}
	cand, err := o.deps.Candidates.GetByID(ctx, nil, session.CandidateID)
	if err != nil {
		return fmt.Errorf("load candidate: %w", err)
	}

	sent, reason, text := o.deps.FSM.BuildFollowup(session, cand.FullName, job.Title, "", cand.Headline, now)
	if err := o.deps.Sessions.Save(ctx, nil, session); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	if !sent {
		o.logOp(ctx, "scheduler.followup", "skipped", "pre_resume_session", &session.ID, map[string]any{
			"reason": reason, "candidate_id": session.CandidateID.String(), "job_id": session.JobID.String(),
		})
		return nil
	}
	if session.Status == domain.PreResumeStalled {
		summary.Stalled++
	}

	if err := o.deps.Events.Append(ctx, nil, &domain.PreResumeEvent{
		SessionID:       session.ID,
		EventType:       domain.EventFollowupSent,
		OutboundText:    text,
		ResultingStatus: string(session.Status),
		CreatedAt:       now,
	}); err != nil {
		o.log.Warn("pre-resume event append failed", "error", err)
	}

	if err := o.deliverFollowup(ctx, session, text, now); err != nil {
		return err
	}
	summary.Sent++
	return nil
}

// deliverFollowup sends the follow-up through the provider on the
// conversation's assigned account, binding the returned chat id onto
// the conversation; without an assigned account (or on provider
// refusal) it enqueues an OutboundAction for the dispatcher instead.
func (o *Orchestrator) deliverFollowup(ctx context.Context, session *domain.PreResumeSession, text string, now time.Time) error {
	conv, err := o.deps.Conversations.GetByID(ctx, nil, session.ConversationID)
	if err != nil {
		return fmt.Errorf("load conversation: %w", err)
	}

	if _, err := o.deps.Messages.Append(ctx, nil, &domain.Message{
		ConversationID: conv.ID,
		Direction:      domain.DirectionOutbound,
		Language:       session.Language,
		Content:        text,
		Metadata:       mustJSON(map[string]any{"auto": true, "type": "followup", "delivery": "pending"}),
		CreatedAt:      now,
	}); err != nil {
		return fmt.Errorf("persist followup message: %w", err)
	}

	delivered := false
	if conv.AssignedSenderAccountID != nil && o.deps.Provider != nil {
		cand, cerr := o.deps.Candidates.GetByID(ctx, nil, session.CandidateID)
		acct, aerr := o.deps.Accounts.GetByID(ctx, nil, *conv.AssignedSenderAccountID)
		if cerr == nil && aerr == nil {
			result, serr := o.deps.Provider.SendMessage(ctx, acct.ProviderAccountID, profileForCandidate(cand), text)
			if serr == nil && result.Sent {
				delivered = true
				if result.ChatID != "" {
					if berr := o.deps.Conversations.BindExternalChatID(ctx, nil, conv.ID, result.ChatID); berr != nil {
						return fmt.Errorf("bind external chat id: %w", berr)
					}
				}
				o.logOp(ctx, "scheduler.followup", "sent", "pre_resume_session", &session.ID, map[string]any{
					"candidate_id": session.CandidateID.String(), "job_id": session.JobID.String(),
				})
			} else {
				o.log.Warn("followup delivery failed, enqueueing", "session_id", session.ID, "error", serr)
			}
		}
	}

	if !delivered {
		if _, err := o.deps.Actions.Create(ctx, nil, &domain.OutboundAction{
			JobID:           session.JobID,
			CandidateID:     session.CandidateID,
			ConversationID:  conv.ID,
			Kind:            domain.OutboundMessage,
			PayloadText:     text,
			PayloadLanguage: session.Language,
			Status:          domain.OutboundPending,
			CreatedAt:       now,
			UpdatedAt:       now,
		}); err != nil {
			return fmt.Errorf("enqueue followup action: %w", err)
		}
	}
	return nil
}
