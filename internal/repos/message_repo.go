package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	domain "github.com/tener/recruit-core/internal/domain"
)

// MessageRepo is append-only. ListByConversation returns ascending by
// id so the last entry is always the most recently appended.
type MessageRepo interface {
	Append(ctx context.Context, tx *gorm.DB, m *domain.Message) (*domain.Message, error)
	ListByConversation(ctx context.Context, tx *gorm.DB, conversationID uuid.UUID, limit int) ([]*domain.Message, error)
	CountByConversation(ctx context.Context, tx *gorm.DB, conversationID uuid.UUID) (int64, error)
}

type messageRepo struct{ db *gorm.DB }

func NewMessageRepo(db *gorm.DB) MessageRepo { return &messageRepo{db: db} }

func (r *messageRepo) tx(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *messageRepo) Append(ctx context.Context, tx *gorm.DB, m *domain.Message) (*domain.Message, error) {
	if err := r.tx(tx).WithContext(ctx).Create(m).Error; err != nil {
		return nil, err
	}
	return m, nil
}

func (r *messageRepo) ListByConversation(ctx context.Context, tx *gorm.DB, conversationID uuid.UUID, limit int) ([]*domain.Message, error) {
	var out []*domain.Message
	q := r.tx(tx).WithContext(ctx).Where("conversation_id = ?", conversationID).Order("id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *messageRepo) CountByConversation(ctx context.Context, tx *gorm.DB, conversationID uuid.UUID) (int64, error) {
	var n int64
	err := r.tx(tx).WithContext(ctx).Model(&domain.Message{}).Where("conversation_id = ?", conversationID).Count(&n).Error
	return n, err
}
