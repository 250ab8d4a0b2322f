package matching

import (
	"fmt"
	"strings"
)

// Profile is the subset of a sourced/enriched candidate the matcher
// needs. It intentionally does not depend on domain.Candidate so the
// orchestrator can verify a profile before it has been upserted.
type Profile struct {
	ProviderID      string
	FullName        string
	Headline        string
	Location        string
	Languages       []string
	Skills          []string
	YearsExperience float64
}

// JobInput is the subset of a Job the matcher needs.
type JobInput struct {
	Title              string
	JDText             string
	Location           string
	PreferredLanguages []string
	SeniorityBand      string
}

type Status string

const (
	StatusVerified Status = "verified"
	StatusRejected Status = "rejected"
)

// Notes is the structured explanation attached to every verdict.
// Matches the shape persisted into Match.VerificationNotes.
type Notes struct {
	Reason         string             `json:"reason,omitempty"`
	Missing        []string           `json:"missing,omitempty"`
	RequiredSkills []string           `json:"required_skills,omitempty"`
	MatchedSkills  []string           `json:"matched_skills,omitempty"`
	Components     map[string]float64 `json:"components,omitempty"`
	RulesVersion   string             `json:"rules_version,omitempty"`
	Explanation    string             `json:"explanation,omitempty"`
}

// Engine is the deterministic, I/O-free fit computation of a job
// against a sourced profile.
type Engine struct {
	cfg  Config
	dict []string
}

func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg, dict: skillDictionary}
}

// WithDictionary returns a copy of the engine using an enriched skill
// dictionary (see EnrichDictionary), leaving the receiver untouched.
func (e *Engine) WithDictionary(dict []string) *Engine {
	return &Engine{cfg: e.cfg, dict: dict}
}

func missingMandatoryFields(p Profile) []string {
	var missing []string
	if p.ProviderID == "" {
		missing = append(missing, "provider_id")
	}
	if p.FullName == "" {
		missing = append(missing, "full_name")
	}
	return missing
}

// Verify is pure and deterministic: no I/O, no randomness, no clock.
func (e *Engine) Verify(job JobInput, p Profile) (float64, Status, Notes) {
	if missing := missingMandatoryFields(p); len(missing) > 0 {
		return 0, StatusRejected, Notes{
			Reason:  "missing_mandatory_fields",
			Missing: missing,
		}
	}

	required := RequiredSkills(e.dict, job.JDText)

	var skillsMatch float64
	var matched []string
	if len(required) == 0 {
		skillsMatch = 0.6
	} else {
		matched = matchedSkills(required, p.Skills)
		skillsMatch = float64(len(matched)) / float64(len(required))
	}

	band := ResolveSeniorityBand(job.SeniorityBand, job.JDText)
	seniorityMatch := SeniorityMatch(band, p.YearsExperience)

	locationMatch := LocationMatch(job.Location, p.Location)
	languageMatch := LanguageMatch(job.PreferredLanguages, p.Languages)

	score := e.cfg.SkillsWeight*skillsMatch +
		e.cfg.SeniorityWeight*seniorityMatch +
		e.cfg.LocationWeight*locationMatch +
		e.cfg.LanguageWeight*languageMatch

	status := StatusRejected
	if score >= e.cfg.VerifiedThreshold {
		status = StatusVerified
	}

	notes := Notes{
		RequiredSkills: required,
		MatchedSkills:  matched,
		Components: map[string]float64{
			"skills_match":    skillsMatch,
			"seniority_match": seniorityMatch,
			"location_match":  locationMatch,
			"language_match":  languageMatch,
		},
		RulesVersion: e.cfg.RulesVersion,
	}
	notes.Explanation = fmt.Sprintf(
		"score %.2f (skills %.2f, seniority %.2f, location %.2f, language %.2f) against threshold %.2f",
		score, skillsMatch, seniorityMatch, locationMatch, languageMatch, e.cfg.VerifiedThreshold,
	)
	return score, status, notes
}

func matchedSkills(required, candidateSkills []string) []string {
	set := make(map[string]bool, len(candidateSkills))
	for _, s := range candidateSkills {
		set[strings.ToLower(strings.TrimSpace(s))] = true
	}
	out := make([]string, 0, len(required))
	for _, r := range required {
		if set[strings.ToLower(strings.TrimSpace(r))] {
			out = append(out, r)
		}
	}
	return out
}
