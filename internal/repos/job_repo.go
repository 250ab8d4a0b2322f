package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	domain "github.com/tener/recruit-core/internal/domain"
)

// JobRepo persists Job rows. JD text is mutable; rows are never
// deleted.
type JobRepo interface {
	Create(ctx context.Context, tx *gorm.DB, job *domain.Job) (*domain.Job, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*domain.Job, error)
	List(ctx context.Context, tx *gorm.DB, limit, offset int) ([]*domain.Job, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error
}

type jobRepo struct {
	db *gorm.DB
}

func NewJobRepo(db *gorm.DB) JobRepo { return &jobRepo{db: db} }

func (r *jobRepo) tx(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *jobRepo) Create(ctx context.Context, tx *gorm.DB, job *domain.Job) (*domain.Job, error) {
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	if err := r.tx(tx).WithContext(ctx).Create(job).Error; err != nil {
		return nil, err
	}
	return job, nil
}

func (r *jobRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*domain.Job, error) {
	var job domain.Job
	if err := r.tx(tx).WithContext(ctx).Where("id = ?", id).First(&job).Error; err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *jobRepo) List(ctx context.Context, tx *gorm.DB, limit, offset int) ([]*domain.Job, error) {
	var out []*domain.Job
	q := r.tx(tx).WithContext(ctx).Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit).Offset(offset)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *jobRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}
	return r.tx(tx).WithContext(ctx).Model(&domain.Job{}).Where("id = ?", id).Updates(updates).Error
}
