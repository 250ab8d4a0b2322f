package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	domain "github.com/tener/recruit-core/internal/domain"
)

// CandidateRepo upserts by ProviderID; mutable fields are refreshed
// on every sourcing pass.
type CandidateRepo interface {
	Upsert(ctx context.Context, tx *gorm.DB, c *domain.Candidate) (*domain.Candidate, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*domain.Candidate, error)
	GetByProviderID(ctx context.Context, tx *gorm.DB, providerID string) (*domain.Candidate, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*domain.Candidate, error)
}

type candidateRepo struct{ db *gorm.DB }

func NewCandidateRepo(db *gorm.DB) CandidateRepo { return &candidateRepo{db: db} }

func (r *candidateRepo) tx(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

// Upsert inserts a new candidate or refreshes the mutable fields of an
// existing one, keyed by ProviderID.
func (r *candidateRepo) Upsert(ctx context.Context, tx *gorm.DB, c *domain.Candidate) (*domain.Candidate, error) {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	err := r.tx(tx).WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "provider_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"full_name", "headline", "location", "languages", "skills", "years_experience", "updated_at",
			}),
		}).
		Create(c).Error
	if err != nil {
		return nil, err
	}
	return r.GetByProviderID(ctx, tx, c.ProviderID)
}

func (r *candidateRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*domain.Candidate, error) {
	var c domain.Candidate
	if err := r.tx(tx).WithContext(ctx).Where("id = ?", id).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *candidateRepo) GetByProviderID(ctx context.Context, tx *gorm.DB, providerID string) (*domain.Candidate, error) {
	var c domain.Candidate
	if err := r.tx(tx).WithContext(ctx).Where("provider_id = ?", providerID).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *candidateRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*domain.Candidate, error) {
	var out []*domain.Candidate
	if len(ids) == 0 {
		return out, nil
	}
	if err := r.tx(tx).WithContext(ctx).Where("id IN ?", ids).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
