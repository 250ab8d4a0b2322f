package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	domain "github.com/tener/recruit-core/internal/domain"
)

// OutboundActionRepo drains the pending-action queue. ClaimNextPending
// uses row-level locking (SELECT ... FOR UPDATE SKIP LOCKED) so
// concurrent dispatchers never double-dispatch the same action.
type OutboundActionRepo interface {
	Create(ctx context.Context, tx *gorm.DB, a *domain.OutboundAction) (*domain.OutboundAction, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*domain.OutboundAction, error)
	ClaimNextPending(ctx context.Context, tx *gorm.DB, jobID *uuid.UUID, excludeIDs []uuid.UUID) (*domain.OutboundAction, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error
}

type outboundActionRepo struct{ db *gorm.DB }

func NewOutboundActionRepo(db *gorm.DB) OutboundActionRepo { return &outboundActionRepo{db: db} }

func (r *outboundActionRepo) Create(ctx context.Context, tx *gorm.DB, a *domain.OutboundAction) (*domain.OutboundAction, error) {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	t := r.db
	if tx != nil {
		t = tx
	}
	if err := t.WithContext(ctx).Create(a).Error; err != nil {
		return nil, err
	}
	return a, nil
}

func (r *outboundActionRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*domain.OutboundAction, error) {
	t := r.db
	if tx != nil {
		t = tx
	}
	var a domain.OutboundAction
	if err := t.WithContext(ctx).Where("id = ?", id).First(&a).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

// ClaimNextPending locks and returns the oldest pending action, scoped
// to jobID when non-nil. excludeIDs skips actions the current drain
// pass already touched: a deferred action keeps status=pending, so
// without the exclusion the same loop would claim it again
// immediately. The lock is held for the duration of the
// caller-provided transaction.
func (r *outboundActionRepo) ClaimNextPending(ctx context.Context, tx *gorm.DB, jobID *uuid.UUID, excludeIDs []uuid.UUID) (*domain.OutboundAction, error) {
	t := r.db
	if tx != nil {
		t = tx
	}
	q := t.WithContext(ctx).Where("status = ?", domain.OutboundPending)
	// Row-level locking needs a server-side backend; the embedded
	// SQLite schema serializes writers at the database level instead.
	if t.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"})
	}
	if jobID != nil {
		q = q.Where("job_id = ?", *jobID)
	}
	if len(excludeIDs) > 0 {
		q = q.Where("id NOT IN ?", excludeIDs)
	}
	var a domain.OutboundAction
	err := q.Order("created_at ASC").First(&a).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *outboundActionRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
	t := r.db
	if tx != nil {
		t = tx
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now()
	}
	return t.WithContext(ctx).Model(&domain.OutboundAction{}).Where("id = ?", id).Updates(updates).Error
}
