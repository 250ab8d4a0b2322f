package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// RoutingMode controls which sender accounts the dispatcher may pick
// from for a job's outbound actions.
type RoutingMode string

const (
	RoutingAuto   RoutingMode = "auto"
	RoutingManual RoutingMode = "manual"
)

// Job is the hiring requisition being sourced against. JD text is
// mutable; the row itself is never deleted.
type Job struct {
	ID                 uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Title              string         `gorm:"column:title;not null" json:"title"`
	JDText             string         `gorm:"column:jd_text;not null" json:"jd_text"`
	Location           string         `gorm:"column:location" json:"location,omitempty"`
	PreferredLanguages datatypes.JSON `gorm:"column:preferred_languages;type:jsonb" json:"preferred_languages"`
	SeniorityBand      string         `gorm:"column:seniority_band" json:"seniority_band,omitempty"`
	RoutingMode        RoutingMode    `gorm:"column:routing_mode;not null;default:auto" json:"routing_mode"`
	CreatedAt          time.Time      `gorm:"not null;index" json:"created_at"`
	UpdatedAt          time.Time      `gorm:"not null" json:"updated_at"`
}

func (Job) TableName() string { return "jobs" }

// PreferredLanguageList decodes PreferredLanguages into a string slice.
func (j *Job) PreferredLanguageList() []string {
	return decodeStringSlice(j.PreferredLanguages)
}
