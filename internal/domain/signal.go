package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type SignalSourceType string

const (
	SourceAssessment     SignalSourceType = "assessment"
	SourcePreResumeEvent SignalSourceType = "pre_resume_event"
	SourceOperationLog   SignalSourceType = "operation_log"
	SourceMatchSnapshot  SignalSourceType = "match_snapshot"
)

type SignalRole string

const (
	RoleEvaluative     SignalRole = "evaluative"
	RoleAdministrative SignalRole = "administrative"
	RoleGovernance     SignalRole = "governance"
)

// CandidateSignal is the uniform signal model, uniquely keyed by
// (job, candidate, source_type, source_id).
type CandidateSignal struct {
	ID          uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	JobID       uuid.UUID        `gorm:"type:uuid;column:job_id;not null;uniqueIndex:idx_signal_tuple" json:"job_id"`
	CandidateID uuid.UUID        `gorm:"type:uuid;column:candidate_id;not null;uniqueIndex:idx_signal_tuple" json:"candidate_id"`
	SourceType  SignalSourceType `gorm:"column:source_type;not null;uniqueIndex:idx_signal_tuple" json:"source_type"`
	SourceID    string           `gorm:"column:source_id;not null;uniqueIndex:idx_signal_tuple" json:"source_id"`
	SignalType  string           `gorm:"column:signal_type;not null" json:"signal_type"`
	Role        SignalRole       `gorm:"column:role;not null" json:"role"`
	Category    string           `gorm:"column:category" json:"category,omitempty"`
	Title       string           `gorm:"column:title" json:"title,omitempty"`
	Detail      string           `gorm:"column:detail" json:"detail,omitempty"`
	ImpactScore float64          `gorm:"column:impact_score;not null" json:"impact_score"`
	Confidence  float64          `gorm:"column:confidence;not null" json:"confidence"`
	ScoreWeight float64          `gorm:"column:score_weight;not null" json:"score_weight"`
	SignalMeta  datatypes.JSON   `gorm:"column:signal_meta;type:jsonb" json:"signal_meta"`
	ObservedAt  time.Time        `gorm:"column:observed_at;not null;index" json:"observed_at"`
	CreatedAt   time.Time        `gorm:"not null" json:"created_at"`
}

func (CandidateSignal) TableName() string { return "candidate_signals" }

// EffectiveImpact is the weighted contribution consumed by the live
// view: normalized impact times score_weight, zeroed for any role
// other than evaluative.
func (s *CandidateSignal) EffectiveImpact() float64 {
	if s.Role != RoleEvaluative {
		return 0
	}
	return s.ImpactScore * s.ScoreWeight
}

// OperationLog is the append-only audit stream of domain operations.
type OperationLog struct {
	ID         int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	Operation  string         `gorm:"column:operation;not null;index" json:"operation"`
	Status     string         `gorm:"column:status;not null" json:"status"`
	EntityType string         `gorm:"column:entity_type" json:"entity_type,omitempty"`
	EntityID   *uuid.UUID     `gorm:"type:uuid;column:entity_id" json:"entity_id,omitempty"`
	Details    datatypes.JSON `gorm:"column:details;type:jsonb" json:"details,omitempty"`
	CreatedAt  time.Time      `gorm:"not null;index" json:"created_at"`
}

func (OperationLog) TableName() string { return "operation_logs" }
