package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// AgentKey enumerates the producers of AgentAssessment rows.
type AgentKey string

const (
	AgentSourcingVetting     AgentKey = "sourcing_vetting"
	AgentCommunication       AgentKey = "communication"
	AgentInterviewEvaluation AgentKey = "interview_evaluation"
	AgentCultureAnalyst      AgentKey = "culture_analyst"
	AgentJobArchitect        AgentKey = "job_architect"
)

// AgentAssessment is the latest-per-(agent,stage) scoring input feeding
// the candidate scoring policy and the signal engine.
type AgentAssessment struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	JobID       uuid.UUID      `gorm:"type:uuid;column:job_id;not null;uniqueIndex:idx_assessment_tuple" json:"job_id"`
	CandidateID uuid.UUID      `gorm:"type:uuid;column:candidate_id;not null;uniqueIndex:idx_assessment_tuple" json:"candidate_id"`
	AgentKey    AgentKey       `gorm:"column:agent_key;not null;uniqueIndex:idx_assessment_tuple" json:"agent_key"`
	StageKey    string         `gorm:"column:stage_key;not null;uniqueIndex:idx_assessment_tuple" json:"stage_key"`
	Score       *float64       `gorm:"column:score" json:"score,omitempty"`
	Status      string         `gorm:"column:status" json:"status,omitempty"`
	Reason      string         `gorm:"column:reason" json:"reason,omitempty"`
	Details     datatypes.JSON `gorm:"column:details;type:jsonb" json:"details,omitempty"`
	CreatedAt   time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null;index" json:"updated_at"`
}

func (AgentAssessment) TableName() string { return "agent_assessments" }
