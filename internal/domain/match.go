package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type MatchStatus string

const (
	MatchVerified       MatchStatus = "verified"
	MatchNeedsResume    MatchStatus = "needs_resume"
	MatchResumeReceived MatchStatus = "resume_received"
	MatchRejected       MatchStatus = "rejected"
	MatchOutreached     MatchStatus = "outreached"
	MatchInterviewing   MatchStatus = "interview_in_progress"
	MatchInterviewDone  MatchStatus = "interview_completed"
	MatchHired          MatchStatus = "hired"
)

// Match is the unique (job, candidate) screening verdict. Notes grow
// additively across the candidate's lifecycle; the row itself is
// never replaced wholesale.
type Match struct {
	ID                uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	JobID             uuid.UUID      `gorm:"type:uuid;column:job_id;not null;uniqueIndex:idx_match_job_candidate" json:"job_id"`
	CandidateID       uuid.UUID      `gorm:"type:uuid;column:candidate_id;not null;uniqueIndex:idx_match_job_candidate" json:"candidate_id"`
	Score             float64        `gorm:"column:score;not null" json:"score"`
	Status            MatchStatus    `gorm:"column:status;not null;index" json:"status"`
	VerificationNotes datatypes.JSON `gorm:"column:verification_notes;type:jsonb" json:"verification_notes"`
	CreatedAt         time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt         time.Time      `gorm:"not null" json:"updated_at"`
}

func (Match) TableName() string { return "matches" }
