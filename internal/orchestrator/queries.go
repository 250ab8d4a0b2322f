package orchestrator

import (
	"strings"

	"github.com/tener/recruit-core/internal/domain"
	"github.com/tener/recruit-core/internal/matching"
	"github.com/tener/recruit-core/internal/providers/messaging"
)

const maxQueryPhrases = 20

// buildQueries derives the sourcing query set for a job: the title,
// title+location, and title combined with each JD skill keyword,
// deduplicated and capped.
func buildQueries(job *domain.Job, dict []string) []string {
	title := strings.TrimSpace(job.Title)
	seen := map[string]bool{}
	out := make([]string, 0, maxQueryPhrases)

	add := func(q string) {
		q = strings.TrimSpace(q)
		key := strings.ToLower(q)
		if q == "" || seen[key] || len(out) >= maxQueryPhrases {
			return
		}
		seen[key] = true
		out = append(out, q)
	}

	add(title)
	if loc := strings.TrimSpace(job.Location); loc != "" {
		add(title + " " + loc)
	}
	for _, kw := range matching.RequiredSkills(dict, job.JDText) {
		add(title + " " + kw)
	}
	return out
}

// candidateKey is the dedup key for a sourced profile: the preferred
// identifier chain, falling back to lowercased name|headline.
func candidateKey(p messaging.Profile) string {
	return domain.ProviderProfile{
		LinkedInID:         p.LinkedInID,
		UnipileProfileID:   p.UnipileProfileID,
		AttendeeProviderID: p.AttendeeProviderID,
		ProviderID:         p.ProviderID,
		ID:                 p.ID,
		FullName:           p.FullName,
		Headline:           p.Headline,
	}.CanonicalKey()
}
