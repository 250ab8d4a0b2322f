package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Candidate is upserted by ProviderID on every sourcing pass; mutable
// fields are refreshed each time the candidate is re-seen.
type Candidate struct {
	ID              uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	ProviderID      string         `gorm:"column:provider_id;uniqueIndex;not null" json:"provider_id"`
	FullName        string         `gorm:"column:full_name;not null" json:"full_name"`
	Headline        string         `gorm:"column:headline" json:"headline,omitempty"`
	Location        string         `gorm:"column:location" json:"location,omitempty"`
	Languages       datatypes.JSON `gorm:"column:languages;type:jsonb" json:"languages"`
	Skills          datatypes.JSON `gorm:"column:skills;type:jsonb" json:"skills"`
	YearsExperience float64        `gorm:"column:years_experience" json:"years_experience"`
	CreatedAt       time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"not null" json:"updated_at"`
}

func (Candidate) TableName() string { return "candidates" }

func (c *Candidate) LanguageList() []string { return decodeStringSlice(c.Languages) }
func (c *Candidate) SkillSet() []string     { return decodeStringSlice(c.Skills) }

func (c *Candidate) SetLanguages(v []string) { c.Languages = encodeStringSlice(v) }
func (c *Candidate) SetSkills(v []string)    { c.Skills = encodeStringSlice(v) }

// ProviderProfile carries the identity fields a sourcing provider may
// surface for a candidate, in priority order: the first non-empty
// wins, normalized to a canonical key.
type ProviderProfile struct {
	LinkedInID         string
	UnipileProfileID   string
	AttendeeProviderID string
	ProviderID         string
	ID                 string
	FullName           string
	Headline           string
}

// CanonicalKey returns the first non-empty identity in the preferred
// chain, falling back to a lowercased "name|headline" composite.
func (p ProviderProfile) CanonicalKey() string {
	for _, v := range []string{p.LinkedInID, p.UnipileProfileID, p.AttendeeProviderID, p.ProviderID, p.ID} {
		if v != "" {
			return v
		}
	}
	return lowerJoin(p.FullName, p.Headline)
}

func lowerJoin(a, b string) string {
	return toLower(a) + "|" + toLower(b)
}
