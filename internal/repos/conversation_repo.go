package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	domain "github.com/tener/recruit-core/internal/domain"
)

// ConversationRepo enforces the invariant that ExternalChatID is
// unique across all conversations: BindExternalChatID releases the id
// from any other row (even one belonging to the same candidate)
// before assigning it, so ownership transfers to the newer row.
type ConversationRepo interface {
	Create(ctx context.Context, tx *gorm.DB, c *domain.Conversation) (*domain.Conversation, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*domain.Conversation, error)
	GetByJobAndCandidate(ctx context.Context, tx *gorm.DB, jobID, candidateID uuid.UUID) (*domain.Conversation, error)
	GetByExternalChatID(ctx context.Context, tx *gorm.DB, externalChatID string) (*domain.Conversation, error)
	BindExternalChatID(ctx context.Context, tx *gorm.DB, conversationID uuid.UUID, externalChatID string) error
	UpdateStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, status domain.ConversationStatus) error
	ListActiveWithExternalChatID(ctx context.Context, tx *gorm.DB) ([]*domain.Conversation, error)
}

type conversationRepo struct{ db *gorm.DB }

func NewConversationRepo(db *gorm.DB) ConversationRepo { return &conversationRepo{db: db} }

func (r *conversationRepo) tx(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *conversationRepo) Create(ctx context.Context, tx *gorm.DB, c *domain.Conversation) (*domain.Conversation, error) {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if err := r.tx(tx).WithContext(ctx).Create(c).Error; err != nil {
		return nil, err
	}
	return c, nil
}

func (r *conversationRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*domain.Conversation, error) {
	var c domain.Conversation
	if err := r.tx(tx).WithContext(ctx).Where("id = ?", id).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *conversationRepo) GetByJobAndCandidate(ctx context.Context, tx *gorm.DB, jobID, candidateID uuid.UUID) (*domain.Conversation, error) {
	var c domain.Conversation
	err := r.tx(tx).WithContext(ctx).
		Where("job_id = ? AND candidate_id = ?", jobID, candidateID).
		Order("created_at DESC").
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *conversationRepo) GetByExternalChatID(ctx context.Context, tx *gorm.DB, externalChatID string) (*domain.Conversation, error) {
	var c domain.Conversation
	if err := r.tx(tx).WithContext(ctx).Where("external_chat_id = ?", externalChatID).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// BindExternalChatID assigns externalChatID to conversationID. Any
// other conversation currently holding that id (the collision case,
// typically an older conversation with the same candidate) loses it
// first so the unique index never blocks the newer conversation from
// claiming ownership.
func (r *conversationRepo) BindExternalChatID(ctx context.Context, tx *gorm.DB, conversationID uuid.UUID, externalChatID string) error {
	return r.tx(tx).WithContext(ctx).Transaction(func(txx *gorm.DB) error {
		if err := txx.Model(&domain.Conversation{}).
			Where("external_chat_id = ? AND id <> ?", externalChatID, conversationID).
			Updates(map[string]interface{}{"external_chat_id": nil, "updated_at": time.Now()}).Error; err != nil {
			return err
		}
		return txx.Model(&domain.Conversation{}).
			Where("id = ?", conversationID).
			Updates(map[string]interface{}{"external_chat_id": externalChatID, "updated_at": time.Now()}).Error
	})
}

func (r *conversationRepo) UpdateStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, status domain.ConversationStatus) error {
	return r.tx(tx).WithContext(ctx).Model(&domain.Conversation{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"status": status, "updated_at": time.Now()}).Error
}

func (r *conversationRepo) ListActiveWithExternalChatID(ctx context.Context, tx *gorm.DB) ([]*domain.Conversation, error) {
	var out []*domain.Conversation
	err := r.tx(tx).WithContext(ctx).
		Where("status <> ? AND external_chat_id IS NOT NULL", domain.ConversationClosed).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}
