package repos

import (
	"context"

	"gorm.io/gorm"

	domain "github.com/tener/recruit-core/internal/domain"
)

// OperationLogRepo is the append-only audit stream consumed by both
// operators and the signal engine.
type OperationLogRepo interface {
	Append(ctx context.Context, tx *gorm.DB, l *domain.OperationLog) error
	ListSince(ctx context.Context, tx *gorm.DB, sinceID int64, limit int) ([]*domain.OperationLog, error)
}

type operationLogRepo struct{ db *gorm.DB }

func NewOperationLogRepo(db *gorm.DB) OperationLogRepo { return &operationLogRepo{db: db} }

func (r *operationLogRepo) tx(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *operationLogRepo) Append(ctx context.Context, tx *gorm.DB, l *domain.OperationLog) error {
	return r.tx(tx).WithContext(ctx).Create(l).Error
}

func (r *operationLogRepo) ListSince(ctx context.Context, tx *gorm.DB, sinceID int64, limit int) ([]*domain.OperationLog, error) {
	var out []*domain.OperationLog
	q := r.tx(tx).WithContext(ctx).Where("id > ?", sinceID).Order("id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&out).Error
	return out, err
}
