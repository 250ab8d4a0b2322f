package repos

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	domain "github.com/tener/recruit-core/internal/domain"
)

// MatchRepo owns the unique (job, candidate) screening verdict.
// Notes grow additively: UpsertVerification merges the new notes
// fragment into whatever is already stored rather than replacing it.
type MatchRepo interface {
	GetByJobAndCandidate(ctx context.Context, tx *gorm.DB, jobID, candidateID uuid.UUID) (*domain.Match, error)
	ListByJob(ctx context.Context, tx *gorm.DB, jobID uuid.UUID) ([]*domain.Match, error)
	ListByCandidate(ctx context.Context, tx *gorm.DB, candidateID uuid.UUID) ([]*domain.Match, error)
	UpsertVerification(ctx context.Context, tx *gorm.DB, jobID, candidateID uuid.UUID, score float64, status domain.MatchStatus, notesPatch map[string]any) (*domain.Match, error)
	UpdateStatus(ctx context.Context, tx *gorm.DB, jobID, candidateID uuid.UUID, status domain.MatchStatus) error
}

type matchRepo struct{ db *gorm.DB }

func NewMatchRepo(db *gorm.DB) MatchRepo { return &matchRepo{db: db} }

func (r *matchRepo) tx(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *matchRepo) GetByJobAndCandidate(ctx context.Context, tx *gorm.DB, jobID, candidateID uuid.UUID) (*domain.Match, error) {
	var m domain.Match
	err := r.tx(tx).WithContext(ctx).
		Where("job_id = ? AND candidate_id = ?", jobID, candidateID).
		First(&m).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *matchRepo) ListByJob(ctx context.Context, tx *gorm.DB, jobID uuid.UUID) ([]*domain.Match, error) {
	var out []*domain.Match
	if err := r.tx(tx).WithContext(ctx).Where("job_id = ?", jobID).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *matchRepo) ListByCandidate(ctx context.Context, tx *gorm.DB, candidateID uuid.UUID) ([]*domain.Match, error) {
	var out []*domain.Match
	if err := r.tx(tx).WithContext(ctx).Where("candidate_id = ?", candidateID).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *matchRepo) UpsertVerification(ctx context.Context, tx *gorm.DB, jobID, candidateID uuid.UUID, score float64, status domain.MatchStatus, notesPatch map[string]any) (*domain.Match, error) {
	var result *domain.Match
	err := r.tx(tx).WithContext(ctx).Transaction(func(txx *gorm.DB) error {
		var existing domain.Match
		err := txx.Where("job_id = ? AND candidate_id = ?", jobID, candidateID).First(&existing).Error
		now := time.Now()
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			merged, mErr := json.Marshal(notesPatch)
			if mErr != nil {
				return mErr
			}
			m := &domain.Match{
				ID:                uuid.New(),
				JobID:             jobID,
				CandidateID:       candidateID,
				Score:             score,
				Status:            status,
				VerificationNotes: merged,
				CreatedAt:         now,
				UpdatedAt:         now,
			}
			if cErr := txx.Create(m).Error; cErr != nil {
				return cErr
			}
			result = m
			return nil
		case err != nil:
			return err
		default:
			merged := mergeNotes(existing.VerificationNotes, notesPatch)
			updates := map[string]interface{}{
				"score":              score,
				"status":             status,
				"verification_notes": merged,
				"updated_at":         now,
			}
			if uErr := txx.Model(&domain.Match{}).Where("id = ?", existing.ID).Updates(updates).Error; uErr != nil {
				return uErr
			}
			existing.Score = score
			existing.Status = status
			existing.VerificationNotes = merged
			existing.UpdatedAt = now
			result = &existing
			return nil
		}
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (r *matchRepo) UpdateStatus(ctx context.Context, tx *gorm.DB, jobID, candidateID uuid.UUID, status domain.MatchStatus) error {
	return r.tx(tx).WithContext(ctx).Model(&domain.Match{}).
		Where("job_id = ? AND candidate_id = ?", jobID, candidateID).
		Updates(map[string]interface{}{"status": status, "updated_at": time.Now()}).Error
}

func mergeNotes(existing datatypes.JSON, patch map[string]any) datatypes.JSON {
	base := map[string]any{}
	if len(existing) > 0 {
		_ = json.Unmarshal(existing, &base)
	}
	for k, v := range patch {
		base[k] = v
	}
	out, err := json.Marshal(base)
	if err != nil {
		return existing
	}
	return datatypes.JSON(out)
}
