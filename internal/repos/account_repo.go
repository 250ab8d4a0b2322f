package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	domain "github.com/tener/recruit-core/internal/domain"
)

type SenderAccountRepo interface {
	Upsert(ctx context.Context, tx *gorm.DB, a *domain.SenderAccount) (*domain.SenderAccount, error)
	ListAll(ctx context.Context, tx *gorm.DB) ([]*domain.SenderAccount, error)
	ListConnected(ctx context.Context, tx *gorm.DB) ([]*domain.SenderAccount, error)
	ListByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*domain.SenderAccount, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*domain.SenderAccount, error)
}

type senderAccountRepo struct{ db *gorm.DB }

func NewSenderAccountRepo(db *gorm.DB) SenderAccountRepo { return &senderAccountRepo{db: db} }

func (r *senderAccountRepo) tx(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

// Upsert registers or refreshes a sender account keyed by its
// provider account id.
func (r *senderAccountRepo) Upsert(ctx context.Context, tx *gorm.DB, a *domain.SenderAccount) (*domain.SenderAccount, error) {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	a.UpdatedAt = time.Now()
	err := r.tx(tx).WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "provider_account_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"status", "connected_at", "last_synced_at", "provider_user_id", "label", "updated_at"}),
		}).
		Create(a).Error
	if err != nil {
		return nil, err
	}
	var out domain.SenderAccount
	if err := r.tx(tx).WithContext(ctx).Where("provider_account_id = ?", a.ProviderAccountID).First(&out).Error; err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *senderAccountRepo) ListAll(ctx context.Context, tx *gorm.DB) ([]*domain.SenderAccount, error) {
	var out []*domain.SenderAccount
	err := r.tx(tx).WithContext(ctx).Order("created_at ASC").Find(&out).Error
	return out, err
}

func (r *senderAccountRepo) ListConnected(ctx context.Context, tx *gorm.DB) ([]*domain.SenderAccount, error) {
	var out []*domain.SenderAccount
	err := r.tx(tx).WithContext(ctx).Where("status = ?", domain.AccountConnected).Find(&out).Error
	return out, err
}

func (r *senderAccountRepo) ListByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*domain.SenderAccount, error) {
	var out []*domain.SenderAccount
	if len(ids) == 0 {
		return out, nil
	}
	err := r.tx(tx).WithContext(ctx).Where("id IN ? AND status = ?", ids, domain.AccountConnected).Find(&out).Error
	return out, err
}

func (r *senderAccountRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*domain.SenderAccount, error) {
	var a domain.SenderAccount
	if err := r.tx(tx).WithContext(ctx).Where("id = ?", id).First(&a).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

// JobAccountAssignmentRepo scopes manual-mode routing.
type JobAccountAssignmentRepo interface {
	ListAccountIDsForJob(ctx context.Context, tx *gorm.DB, jobID uuid.UUID) ([]uuid.UUID, error)
	Assign(ctx context.Context, tx *gorm.DB, jobID, accountID uuid.UUID) error
}

type jobAccountAssignmentRepo struct{ db *gorm.DB }

func NewJobAccountAssignmentRepo(db *gorm.DB) JobAccountAssignmentRepo {
	return &jobAccountAssignmentRepo{db: db}
}

func (r *jobAccountAssignmentRepo) tx(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *jobAccountAssignmentRepo) ListAccountIDsForJob(ctx context.Context, tx *gorm.DB, jobID uuid.UUID) ([]uuid.UUID, error) {
	var rows []domain.JobAccountAssignment
	if err := r.tx(tx).WithContext(ctx).Where("job_id = ?", jobID).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]uuid.UUID, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.AccountID)
	}
	return out, nil
}

func (r *jobAccountAssignmentRepo) Assign(ctx context.Context, tx *gorm.DB, jobID, accountID uuid.UUID) error {
	return r.tx(tx).WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&domain.JobAccountAssignment{ID: uuid.New(), JobID: jobID, AccountID: accountID}).Error
}

// AccountCounterRepo owns the (account, day) and (account, week)
// budget counters. IncrementDay/IncrementWeek are atomic upserts: the
// row either doesn't exist (created at 1) or is bumped with
// gorm.Expr so concurrent dispatchers never lose an increment.
type AccountCounterRepo interface {
	GetDay(ctx context.Context, tx *gorm.DB, accountID uuid.UUID, day string) (*domain.AccountDayCounter, error)
	GetWeek(ctx context.Context, tx *gorm.DB, accountID uuid.UUID, weekStart string) (*domain.AccountWeekCounter, error)
	IncrementDay(ctx context.Context, tx *gorm.DB, accountID uuid.UUID, day string) error
	IncrementWeek(ctx context.Context, tx *gorm.DB, accountID uuid.UUID, weekStart string) error
}

type accountCounterRepo struct{ db *gorm.DB }

func NewAccountCounterRepo(db *gorm.DB) AccountCounterRepo { return &accountCounterRepo{db: db} }

func (r *accountCounterRepo) tx(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *accountCounterRepo) GetDay(ctx context.Context, tx *gorm.DB, accountID uuid.UUID, day string) (*domain.AccountDayCounter, error) {
	var c domain.AccountDayCounter
	err := r.tx(tx).WithContext(ctx).Where("account_id = ? AND day = ?", accountID, day).First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *accountCounterRepo) GetWeek(ctx context.Context, tx *gorm.DB, accountID uuid.UUID, weekStart string) (*domain.AccountWeekCounter, error) {
	var c domain.AccountWeekCounter
	err := r.tx(tx).WithContext(ctx).Where("account_id = ? AND week_start = ?", accountID, weekStart).First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// IncrementDay is a single upsert statement (INSERT ... ON CONFLICT DO
// UPDATE new_threads_sent = new_threads_sent + 1) so the bump is
// atomic even when two dispatcher goroutines race on the same
// (account, day) row — no lost update window between a failed read
// and a follow-up insert.
func (r *accountCounterRepo) IncrementDay(ctx context.Context, tx *gorm.DB, accountID uuid.UUID, day string) error {
	return r.tx(tx).WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "account_id"}, {Name: "day"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"new_threads_sent": gorm.Expr("account_day_counters.new_threads_sent + 1"),
				"updated_at":       time.Now(),
			}),
		}).
		Create(&domain.AccountDayCounter{
			ID: uuid.New(), AccountID: accountID, Day: day, NewThreadsSent: 1, UpdatedAt: time.Now(),
		}).Error
}

func (r *accountCounterRepo) IncrementWeek(ctx context.Context, tx *gorm.DB, accountID uuid.UUID, weekStart string) error {
	return r.tx(tx).WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "account_id"}, {Name: "week_start"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"connect_sent": gorm.Expr("account_week_counters.connect_sent + 1"),
				"updated_at":   time.Now(),
			}),
		}).
		Create(&domain.AccountWeekCounter{
			ID: uuid.New(), AccountID: accountID, WeekStart: weekStart, ConnectSent: 1, UpdatedAt: time.Now(),
		}).Error
}
