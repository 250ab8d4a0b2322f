package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tener/recruit-core/internal/domain"
	"github.com/tener/recruit-core/internal/platform/ctxutil"
	"github.com/tener/recruit-core/internal/platform/logger"
	"github.com/tener/recruit-core/internal/providers/messaging"
	"github.com/tener/recruit-core/internal/repos"
)

// Deferral reasons recorded on an action's last_error. Deferred
// actions keep status=pending and are retried on the next drain.
const (
	ReasonNoConnectedAccounts      = "no_connected_accounts"
	ReasonManualNoAssignedAccounts = "manual_no_assigned_accounts"
	ReasonDailyBudgetReached       = "daily_budget_reached"
	ReasonConnectBudgetReached     = "connect_budget_reached"
)

// Summary is the per-drain outcome counter set reported to the
// dispatch caller. Budget exhaustion is a counter here, never an
// error.
type Summary struct {
	Processed         int `json:"processed"`
	Sent              int `json:"sent"`
	PendingConnection int `json:"pending_connection"`
	Deferred          int `json:"deferred"`
	Failed            int `json:"failed"`
}

// Dispatcher drains pending OutboundActions across sender accounts
// under the budget policy. All counter increments and status
// transitions for one action happen inside one transaction, so
// concurrent dispatchers can never double-spend a budget.
type Dispatcher struct {
	log           *logger.Logger
	db            *gorm.DB
	policy        BudgetPolicy
	provider      messaging.Provider
	actions       repos.OutboundActionRepo
	jobs          repos.JobRepo
	candidates    repos.CandidateRepo
	conversations repos.ConversationRepo
	accounts      repos.SenderAccountRepo
	assignments   repos.JobAccountAssignmentRepo
	counters      repos.AccountCounterRepo
	oplogs        repos.OperationLogRepo
}

func NewDispatcher(
	log *logger.Logger,
	db *gorm.DB,
	policy BudgetPolicy,
	provider messaging.Provider,
	actions repos.OutboundActionRepo,
	jobs repos.JobRepo,
	candidates repos.CandidateRepo,
	conversations repos.ConversationRepo,
	accounts repos.SenderAccountRepo,
	assignments repos.JobAccountAssignmentRepo,
	counters repos.AccountCounterRepo,
	oplogs repos.OperationLogRepo,
) *Dispatcher {
	return &Dispatcher{
		log:           log.With("service", "OutboundDispatcher"),
		db:            db,
		policy:        policy,
		provider:      provider,
		actions:       actions,
		jobs:          jobs,
		candidates:    candidates,
		conversations: conversations,
		accounts:      accounts,
		assignments:   assignments,
		counters:      counters,
		oplogs:        oplogs,
	}
}

// Dispatch drains up to limit pending actions, scoped to jobID when
// non-nil.
func (d *Dispatcher) Dispatch(ctx context.Context, limit int, jobID *uuid.UUID) (Summary, error) {
	if limit <= 0 {
		limit = 50
	}
	var summary Summary
	seen := make([]uuid.UUID, 0, limit)

	for summary.Processed < limit {
		var done bool
		err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			action, err := d.actions.ClaimNextPending(ctx, tx, jobID, seen)
			if errors.Is(err, gorm.ErrRecordNotFound) {
				done = true
				return nil
			}
			if err != nil {
				return err
			}
			seen = append(seen, action.ID)
			summary.Processed++
			return d.dispatchOne(ctx, tx, action, &summary, time.Now())
		})
		if err != nil {
			return summary, err
		}
		if done {
			break
		}
	}

	d.log.Info("dispatch drain complete", "processed", summary.Processed,
		"sent", summary.Sent, "pending_connection", summary.PendingConnection,
		"deferred", summary.Deferred, "failed", summary.Failed)
	return summary, nil
}

func (d *Dispatcher) dispatchOne(ctx context.Context, tx *gorm.DB, action *domain.OutboundAction, summary *Summary, now time.Time) error {
	job, err := d.jobs.GetByID(ctx, tx, action.JobID)
	if err != nil {
		return fmt.Errorf("load job: %w", err)
	}
	cand, err := d.candidates.GetByID(ctx, tx, action.CandidateID)
	if err != nil {
		return fmt.Errorf("load candidate: %w", err)
	}

	account, reason, err := d.selectAccount(ctx, tx, job, now)
	if err != nil {
		return err
	}
	if account == nil {
		summary.Deferred++
		return d.deferAction(ctx, tx, action, reason)
	}

	profile := profileFor(cand)

	if action.Kind == domain.OutboundConnectRequest {
		return d.sendConnect(ctx, tx, action, account, profile, summary, now)
	}

	result, err := d.provider.SendMessage(ctx, account.ProviderAccountID, profile, action.PayloadText)
	if err != nil {
		// Transport-level failure is transient: the action stays
		// pending for the next drain.
		summary.Failed++
		d.logOp(ctx, tx, "scheduler.dispatch", "error", action, map[string]any{"error": err.Error()})
		return d.actions.UpdateFields(ctx, tx, action.ID, map[string]interface{}{
			"last_error": err.Error(),
			"attempts":   action.Attempts + 1,
		})
	}

	if result.NoConnection() {
		return d.sendConnect(ctx, tx, action, account, profile, summary, now)
	}

	if !result.Sent {
		summary.Failed++
		d.logOp(ctx, tx, "scheduler.dispatch", "failed", action, map[string]any{"error": result.Error})
		return d.actions.UpdateFields(ctx, tx, action.ID, map[string]interface{}{
			"status":     domain.OutboundFailed,
			"last_error": result.Error,
			"attempts":   action.Attempts + 1,
		})
	}

	if err := d.counters.IncrementDay(ctx, tx, account.ID, DayKey(now)); err != nil {
		return fmt.Errorf("increment day counter: %w", err)
	}
	if result.ChatID != "" {
		if err := d.conversations.BindExternalChatID(ctx, tx, action.ConversationID, result.ChatID); err != nil {
			return fmt.Errorf("bind external chat id: %w", err)
		}
	}
	if err := tx.Model(&domain.Conversation{}).Where("id = ?", action.ConversationID).
		Updates(map[string]interface{}{
			"status":                     domain.ConversationActive,
			"assigned_sender_account_id": account.ID,
			"last_message_at":            now,
			"updated_at":                 now,
		}).Error; err != nil {
		return fmt.Errorf("update conversation: %w", err)
	}

	summary.Sent++
	d.logOp(ctx, tx, "scheduler.dispatch", "sent", action, map[string]any{"account_id": account.ID.String()})
	return d.actions.UpdateFields(ctx, tx, action.ID, map[string]interface{}{
		"status":              domain.OutboundCompleted,
		"assigned_account_id": account.ID,
		"last_error":          "",
		"attempts":            action.Attempts + 1,
	})
}

// sendConnect attempts a connection request under the weekly connect
// budget. The action is not completed: it stays pending_connection
// until the recipient accepts and the message can go out.
func (d *Dispatcher) sendConnect(ctx context.Context, tx *gorm.DB, action *domain.OutboundAction, account *domain.SenderAccount, profile messaging.Profile, summary *Summary, now time.Time) error {
	week := WeekKey(now)
	capLimit := d.policy.ConnectCapFor(account, now)

	sent := 0
	if c, err := d.counters.GetWeek(ctx, tx, account.ID, week); err == nil {
		sent = c.ConnectSent
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("read week counter: %w", err)
	}
	if sent >= capLimit {
		summary.Deferred++
		return d.deferAction(ctx, tx, action, ReasonConnectBudgetReached)
	}

	result, err := d.provider.SendConnectionRequest(ctx, account.ProviderAccountID, profile, "")
	if err != nil {
		summary.Failed++
		d.logOp(ctx, tx, "scheduler.connect", "error", action, map[string]any{"error": err.Error()})
		return d.actions.UpdateFields(ctx, tx, action.ID, map[string]interface{}{
			"last_error": err.Error(),
			"attempts":   action.Attempts + 1,
		})
	}
	if !result.Sent {
		summary.Failed++
		d.logOp(ctx, tx, "scheduler.connect", "failed", action, map[string]any{"error": result.Error})
		return d.actions.UpdateFields(ctx, tx, action.ID, map[string]interface{}{
			"status":     domain.OutboundFailed,
			"last_error": result.Error,
			"attempts":   action.Attempts + 1,
		})
	}

	if err := d.counters.IncrementWeek(ctx, tx, account.ID, week); err != nil {
		return fmt.Errorf("increment week counter: %w", err)
	}
	if err := d.conversations.UpdateStatus(ctx, tx, action.ConversationID, domain.ConversationWaitingConn); err != nil {
		return fmt.Errorf("update conversation: %w", err)
	}

	summary.PendingConnection++
	d.logOp(ctx, tx, "scheduler.connect", "sent", action, map[string]any{"account_id": account.ID.String()})
	return d.actions.UpdateFields(ctx, tx, action.ID, map[string]interface{}{
		"status":              domain.OutboundPendingConnection,
		"assigned_account_id": account.ID,
		"last_error":          "",
		"attempts":            action.Attempts + 1,
	})
}

// selectAccount applies the routing mode, then picks the eligible
// account with the smallest daily new-thread counter, tie-broken by
// smallest weekly connect counter, then account id. A nil account
// with a reason means the action must be deferred.
func (d *Dispatcher) selectAccount(ctx context.Context, tx *gorm.DB, job *domain.Job, now time.Time) (*domain.SenderAccount, string, error) {
	var (
		candidates     []*domain.SenderAccount
		err            error
		deferralReason = ReasonNoConnectedAccounts
	)
	if job.RoutingMode == domain.RoutingManual {
		deferralReason = ReasonManualNoAssignedAccounts
		ids, aerr := d.assignments.ListAccountIDsForJob(ctx, tx, job.ID)
		if aerr != nil {
			return nil, "", fmt.Errorf("list job account assignments: %w", aerr)
		}
		candidates, err = d.accounts.ListByIDs(ctx, tx, ids)
	} else {
		candidates, err = d.accounts.ListConnected(ctx, tx)
	}
	if err != nil {
		return nil, "", fmt.Errorf("list accounts: %w", err)
	}
	if len(candidates) == 0 {
		return nil, deferralReason, nil
	}

	day := DayKey(now)
	week := WeekKey(now)
	type scored struct {
		account *domain.SenderAccount
		daily   int
		weekly  int
	}
	eligible := make([]scored, 0, len(candidates))
	for _, a := range candidates {
		s := scored{account: a}
		if c, err := d.counters.GetDay(ctx, tx, a.ID, day); err == nil {
			s.daily = c.NewThreadsSent
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", fmt.Errorf("read day counter: %w", err)
		}
		if c, err := d.counters.GetWeek(ctx, tx, a.ID, week); err == nil {
			s.weekly = c.ConnectSent
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", fmt.Errorf("read week counter: %w", err)
		}
		eligible = append(eligible, s)
	}

	sort.Slice(eligible, func(i, j int) bool {
		if eligible[i].daily != eligible[j].daily {
			return eligible[i].daily < eligible[j].daily
		}
		if eligible[i].weekly != eligible[j].weekly {
			return eligible[i].weekly < eligible[j].weekly
		}
		return eligible[i].account.ID.String() < eligible[j].account.ID.String()
	})

	best := eligible[0]
	if best.daily >= d.policy.DailyMaxNewThreads {
		return nil, ReasonDailyBudgetReached, nil
	}
	return best.account, "", nil
}

func (d *Dispatcher) deferAction(ctx context.Context, tx *gorm.DB, action *domain.OutboundAction, reason string) error {
	d.logOp(ctx, tx, "scheduler.dispatch", "skipped", action, map[string]any{"reason": reason})
	return d.actions.UpdateFields(ctx, tx, action.ID, map[string]interface{}{
		"last_error": reason,
	})
}

func (d *Dispatcher) logOp(ctx context.Context, tx *gorm.DB, operation, status string, action *domain.OutboundAction, details map[string]any) {
	details["job_id"] = action.JobID.String()
	details["candidate_id"] = action.CandidateID.String()
	if traceID := ctxutil.TraceID(ctx); traceID != "" {
		details["trace_id"] = traceID
	}
	entry := &domain.OperationLog{
		Operation:  operation,
		Status:     status,
		EntityType: "outbound_action",
		Details:    mustJSON(details),
		CreatedAt:  time.Now(),
	}
	id := action.ID
	entry.EntityID = &id
	if err := d.oplogs.Append(ctx, tx, entry); err != nil {
		d.log.Warn("operation log append failed", "error", err, "operation", operation)
	}
}

func profileFor(c *domain.Candidate) messaging.Profile {
	return messaging.Profile{
		ProviderID:      c.ProviderID,
		FullName:        c.FullName,
		Headline:        c.Headline,
		Location:        c.Location,
		Languages:       c.LanguageList(),
		Skills:          c.SkillSet(),
		YearsExperience: c.YearsExperience,
	}
}
