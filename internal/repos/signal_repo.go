package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	domain "github.com/tener/recruit-core/internal/domain"
)

// CandidateSignalRepo upserts signals keyed by (job, candidate,
// source_type, source_id); re-ingesting the same source is naturally
// idempotent through the unique constraint.
type CandidateSignalRepo interface {
	Upsert(ctx context.Context, tx *gorm.DB, s *domain.CandidateSignal) error
	ListByJob(ctx context.Context, tx *gorm.DB, jobID uuid.UUID) ([]*domain.CandidateSignal, error)
	ListByJobAndCandidate(ctx context.Context, tx *gorm.DB, jobID, candidateID uuid.UUID) ([]*domain.CandidateSignal, error)
}

type candidateSignalRepo struct{ db *gorm.DB }

func NewCandidateSignalRepo(db *gorm.DB) CandidateSignalRepo { return &candidateSignalRepo{db: db} }

func (r *candidateSignalRepo) tx(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *candidateSignalRepo) Upsert(ctx context.Context, tx *gorm.DB, s *domain.CandidateSignal) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now()
	}
	return r.tx(tx).WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "job_id"}, {Name: "candidate_id"}, {Name: "source_type"}, {Name: "source_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"signal_type", "role", "category", "title", "detail",
				"impact_score", "confidence", "score_weight", "signal_meta", "observed_at",
			}),
		}).
		Create(s).Error
}

func (r *candidateSignalRepo) ListByJob(ctx context.Context, tx *gorm.DB, jobID uuid.UUID) ([]*domain.CandidateSignal, error) {
	var out []*domain.CandidateSignal
	err := r.tx(tx).WithContext(ctx).Where("job_id = ?", jobID).Order("observed_at DESC").Find(&out).Error
	return out, err
}

func (r *candidateSignalRepo) ListByJobAndCandidate(ctx context.Context, tx *gorm.DB, jobID, candidateID uuid.UUID) ([]*domain.CandidateSignal, error) {
	var out []*domain.CandidateSignal
	err := r.tx(tx).WithContext(ctx).
		Where("job_id = ? AND candidate_id = ?", jobID, candidateID).
		Order("observed_at DESC").
		Find(&out).Error
	return out, err
}
