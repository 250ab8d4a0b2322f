package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	domain "github.com/tener/recruit-core/internal/domain"
)

// AgentAssessmentRepo upserts the latest per (job, candidate, agent,
// stage) assessment; latest wins.
type AgentAssessmentRepo interface {
	Upsert(ctx context.Context, tx *gorm.DB, a *domain.AgentAssessment) (*domain.AgentAssessment, error)
	ListByJobAndCandidate(ctx context.Context, tx *gorm.DB, jobID, candidateID uuid.UUID) ([]*domain.AgentAssessment, error)
	LatestByAgent(ctx context.Context, tx *gorm.DB, jobID, candidateID uuid.UUID) (map[domain.AgentKey]*domain.AgentAssessment, error)
}

type agentAssessmentRepo struct{ db *gorm.DB }

func NewAgentAssessmentRepo(db *gorm.DB) AgentAssessmentRepo { return &agentAssessmentRepo{db: db} }

func (r *agentAssessmentRepo) tx(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *agentAssessmentRepo) Upsert(ctx context.Context, tx *gorm.DB, a *domain.AgentAssessment) (*domain.AgentAssessment, error) {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	now := time.Now()
	a.UpdatedAt = now
	err := r.tx(tx).WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "job_id"}, {Name: "candidate_id"}, {Name: "agent_key"}, {Name: "stage_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"score", "status", "reason", "details", "updated_at"}),
		}).
		Create(a).Error
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (r *agentAssessmentRepo) ListByJobAndCandidate(ctx context.Context, tx *gorm.DB, jobID, candidateID uuid.UUID) ([]*domain.AgentAssessment, error) {
	var out []*domain.AgentAssessment
	err := r.tx(tx).WithContext(ctx).
		Where("job_id = ? AND candidate_id = ?", jobID, candidateID).
		Order("updated_at DESC").
		Find(&out).Error
	return out, err
}

// LatestByAgent returns the most-recently-updated assessment per agent
// key, which is what the scoring policy consumes.
func (r *agentAssessmentRepo) LatestByAgent(ctx context.Context, tx *gorm.DB, jobID, candidateID uuid.UUID) (map[domain.AgentKey]*domain.AgentAssessment, error) {
	all, err := r.ListByJobAndCandidate(ctx, tx, jobID, candidateID)
	if err != nil {
		return nil, err
	}
	out := map[domain.AgentKey]*domain.AgentAssessment{}
	for _, a := range all {
		if _, ok := out[a.AgentKey]; !ok {
			out[a.AgentKey] = a
		}
	}
	return out, nil
}
