package profile

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/tener/recruit-core/internal/domain"
	"github.com/tener/recruit-core/internal/providers/llm"
)

type CultureFit struct {
	Values     []string `json:"values,omitempty"`
	Highlights []string `json:"highlights,omitempty"`
	Concerns   []string `json:"concerns,omitempty"`
	Summary    string   `json:"summary,omitempty"`
}

// cultureValueTokens are JD words treated as company-value hints when
// the verification notes carry no explicit values.
var cultureValueTokens = []string{
	"ownership", "autonomy", "collaboration", "transparency", "mentorship",
	"remote-first", "fast-paced", "customer-focused", "craftsmanship", "pragmatic",
}

// cultureFit combines the communication and interview scorecards into
// alignment highlights/concerns around the company's values. The LLM
// summary reuses the explanation cache discipline; its absence leaves
// the deterministic parts intact.
func (b *Builder) cultureFit(ctx context.Context, cand *domain.Candidate, job *domain.Job, m *domain.Match, scorecard map[domain.AgentKey]ScorecardEntry, explain bool) *CultureFit {
	fit := &CultureFit{Values: companyValues(m, job)}

	if comm, ok := scorecard[domain.AgentCommunication]; ok && comm.Score != nil {
		if *comm.Score >= 70 {
			fit.Highlights = append(fit.Highlights, "responsive, clear communicator in outreach dialogue")
		} else {
			fit.Concerns = append(fit.Concerns, "communication signals below bar in outreach dialogue")
		}
	}
	if iv, ok := scorecard[domain.AgentInterviewEvaluation]; ok && iv.Score != nil {
		if *iv.Score >= 70 {
			fit.Highlights = append(fit.Highlights, "strong interview evaluation")
		} else {
			fit.Concerns = append(fit.Concerns, "interview evaluation flagged gaps")
		}
	}
	if ca, ok := scorecard[domain.AgentCultureAnalyst]; ok && ca.Reason != "" {
		fit.Highlights = append(fit.Highlights, ca.Reason)
	}

	if explain && b.responder != nil && len(fit.Values) > 0 {
		key := "culture:" + explainCacheKey(cand, job, &JobSection{FitBreakdown: map[string]float64{}}, nil)
		if cached, ok := b.cache.Get(ctx, key); ok {
			fit.Summary = cached
			return fit
		}
		summary := llm.ReplyOrFallback(ctx, b.responder, llm.Request{
			Mode:      "culture_fit",
			JobTitle:  job.Title,
			Candidate: cand.FullName,
			State: map[string]any{
				"values":     fit.Values,
				"highlights": fit.Highlights,
				"concerns":   fit.Concerns,
			},
		}, "")
		if summary != "" {
			b.cache.Set(ctx, key, summary, b.cfg.ExplainTTL)
			fit.Summary = summary
		}
	}
	return fit
}

// companyValues reads explicit values from the match verification
// notes, else infers them from JD tokens.
func companyValues(m *domain.Match, job *domain.Job) []string {
	if len(m.VerificationNotes) > 0 {
		var parsed struct {
			CompanyValues []string `json:"company_values"`
		}
		if err := json.Unmarshal(m.VerificationNotes, &parsed); err == nil && len(parsed.CompanyValues) > 0 {
			return parsed.CompanyValues
		}
	}
	lower := strings.ToLower(job.JDText)
	var out []string
	for _, tok := range cultureValueTokens {
		if strings.Contains(lower, tok) {
			out = append(out, tok)
		}
	}
	return out
}
