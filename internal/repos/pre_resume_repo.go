package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	domain "github.com/tener/recruit-core/internal/domain"
)

// PreResumeSessionRepo persists the FSM row. The canonical state is
// always this row; any in-memory cache is a read-through convenience
// that must be invalidated on write.
type PreResumeSessionRepo interface {
	Create(ctx context.Context, tx *gorm.DB, s *domain.PreResumeSession) (*domain.PreResumeSession, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*domain.PreResumeSession, error)
	GetByConversationID(ctx context.Context, tx *gorm.DB, conversationID uuid.UUID) (*domain.PreResumeSession, error)
	Save(ctx context.Context, tx *gorm.DB, s *domain.PreResumeSession) error
	ListDueForFollowup(ctx context.Context, tx *gorm.DB, now time.Time, limit int) ([]*domain.PreResumeSession, error)
	ListByJobAndCandidate(ctx context.Context, tx *gorm.DB, jobID, candidateID uuid.UUID) ([]*domain.PreResumeSession, error)
}

type preResumeSessionRepo struct{ db *gorm.DB }

func NewPreResumeSessionRepo(db *gorm.DB) PreResumeSessionRepo { return &preResumeSessionRepo{db: db} }

func (r *preResumeSessionRepo) tx(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *preResumeSessionRepo) Create(ctx context.Context, tx *gorm.DB, s *domain.PreResumeSession) (*domain.PreResumeSession, error) {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if err := r.tx(tx).WithContext(ctx).Create(s).Error; err != nil {
		return nil, err
	}
	return s, nil
}

func (r *preResumeSessionRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*domain.PreResumeSession, error) {
	var s domain.PreResumeSession
	if err := r.tx(tx).WithContext(ctx).Where("id = ?", id).First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *preResumeSessionRepo) GetByConversationID(ctx context.Context, tx *gorm.DB, conversationID uuid.UUID) (*domain.PreResumeSession, error) {
	var s domain.PreResumeSession
	if err := r.tx(tx).WithContext(ctx).Where("conversation_id = ?", conversationID).First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// Save persists the full row, the way a serialized-on-every-transition
// FSM must so operators can restart the process between calls without
// losing state.
func (r *preResumeSessionRepo) Save(ctx context.Context, tx *gorm.DB, s *domain.PreResumeSession) error {
	s.UpdatedAt = time.Now()
	return r.tx(tx).WithContext(ctx).Save(s).Error
}

func (r *preResumeSessionRepo) ListDueForFollowup(ctx context.Context, tx *gorm.DB, now time.Time, limit int) ([]*domain.PreResumeSession, error) {
	var out []*domain.PreResumeSession
	q := r.tx(tx).WithContext(ctx).
		Where("next_followup_at IS NOT NULL AND next_followup_at <= ? AND status NOT IN ?", now, []domain.PreResumeStatus{
			domain.PreResumeResumeReceived, domain.PreResumeNotInterested, domain.PreResumeUnreachable, domain.PreResumeStalled,
		}).
		Order("next_followup_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *preResumeSessionRepo) ListByJobAndCandidate(ctx context.Context, tx *gorm.DB, jobID, candidateID uuid.UUID) ([]*domain.PreResumeSession, error) {
	var out []*domain.PreResumeSession
	err := r.tx(tx).WithContext(ctx).
		Where("job_id = ? AND candidate_id = ?", jobID, candidateID).
		Order("created_at ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

// PreResumeEventRepo is the append-only FSM audit log.
type PreResumeEventRepo interface {
	Append(ctx context.Context, tx *gorm.DB, e *domain.PreResumeEvent) error
	ListBySession(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID) ([]*domain.PreResumeEvent, error)
}

type preResumeEventRepo struct{ db *gorm.DB }

func NewPreResumeEventRepo(db *gorm.DB) PreResumeEventRepo { return &preResumeEventRepo{db: db} }

func (r *preResumeEventRepo) Append(ctx context.Context, tx *gorm.DB, e *domain.PreResumeEvent) error {
	t := r.db
	if tx != nil {
		t = tx
	}
	return t.WithContext(ctx).Create(e).Error
}

func (r *preResumeEventRepo) ListBySession(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID) ([]*domain.PreResumeEvent, error) {
	t := r.db
	if tx != nil {
		t = tx
	}
	var out []*domain.PreResumeEvent
	if err := t.WithContext(ctx).Where("session_id = ?", sessionID).Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
