package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// JobStepProgress is the idempotent checkpoint of the last run of
// each workflow stage for a job.
type JobStepProgress struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	JobID     uuid.UUID      `gorm:"type:uuid;column:job_id;not null;uniqueIndex:idx_job_step" json:"job_id"`
	Step      string         `gorm:"column:step;not null;uniqueIndex:idx_job_step" json:"step"`
	Status    string         `gorm:"column:status;not null" json:"status"`
	Output    datatypes.JSON `gorm:"column:output;type:jsonb" json:"output"`
	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
}

func (JobStepProgress) TableName() string { return "job_step_progress" }

// IdempotencyRecord backs HTTP-level idempotency keys per (route, key).
type IdempotencyRecord struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Route       string         `gorm:"column:route;not null;uniqueIndex:idx_idem_route_key" json:"route"`
	Key         string         `gorm:"column:key;not null;uniqueIndex:idx_idem_route_key" json:"key"`
	PayloadHash string         `gorm:"column:payload_hash;not null" json:"payload_hash"`
	StatusCode  int            `gorm:"column:status_code;not null" json:"status_code"`
	Response    datatypes.JSON `gorm:"column:response;type:jsonb" json:"response"`
	CreatedAt   time.Time      `gorm:"not null" json:"created_at"`
}

func (IdempotencyRecord) TableName() string { return "idempotency_records" }
