package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	domain "github.com/tener/recruit-core/internal/domain"
)

// JobStepProgressRepo is the idempotent checkpoint of the last run of
// each workflow stage.
type JobStepProgressRepo interface {
	Get(ctx context.Context, tx *gorm.DB, jobID uuid.UUID, step string) (*domain.JobStepProgress, error)
	Upsert(ctx context.Context, tx *gorm.DB, jobID uuid.UUID, step, status string, output datatypes.JSON) (*domain.JobStepProgress, error)
}

type jobStepProgressRepo struct{ db *gorm.DB }

func NewJobStepProgressRepo(db *gorm.DB) JobStepProgressRepo { return &jobStepProgressRepo{db: db} }

func (r *jobStepProgressRepo) tx(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *jobStepProgressRepo) Get(ctx context.Context, tx *gorm.DB, jobID uuid.UUID, step string) (*domain.JobStepProgress, error) {
	var p domain.JobStepProgress
	err := r.tx(tx).WithContext(ctx).Where("job_id = ? AND step = ?", jobID, step).First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *jobStepProgressRepo) Upsert(ctx context.Context, tx *gorm.DB, jobID uuid.UUID, step, status string, output datatypes.JSON) (*domain.JobStepProgress, error) {
	now := time.Now()
	p := &domain.JobStepProgress{
		ID: uuid.New(), JobID: jobID, Step: step, Status: status, Output: output,
		CreatedAt: now, UpdatedAt: now,
	}
	err := r.tx(tx).WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "job_id"}, {Name: "step"}},
			DoUpdates: clause.AssignmentColumns([]string{"status", "output", "updated_at"}),
		}).
		Create(p).Error
	if err != nil {
		return nil, err
	}
	return r.Get(ctx, tx, jobID, step)
}

// IdempotencyRecordRepo backs HTTP-level idempotency keys.
type IdempotencyRecordRepo interface {
	Get(ctx context.Context, tx *gorm.DB, route, key string) (*domain.IdempotencyRecord, error)
	Create(ctx context.Context, tx *gorm.DB, rec *domain.IdempotencyRecord) error
}

type idempotencyRecordRepo struct{ db *gorm.DB }

func NewIdempotencyRecordRepo(db *gorm.DB) IdempotencyRecordRepo {
	return &idempotencyRecordRepo{db: db}
}

func (r *idempotencyRecordRepo) tx(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *idempotencyRecordRepo) Get(ctx context.Context, tx *gorm.DB, route, key string) (*domain.IdempotencyRecord, error) {
	var rec domain.IdempotencyRecord
	err := r.tx(tx).WithContext(ctx).Where("route = ? AND key = ?", route, key).First(&rec).Error
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *idempotencyRecordRepo) Create(ctx context.Context, tx *gorm.DB, rec *domain.IdempotencyRecord) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	return r.tx(tx).WithContext(ctx).Create(rec).Error
}
