package profile

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/tener/recruit-core/internal/domain"
	"github.com/tener/recruit-core/internal/providers/llm"
)

const explainSignalWindow = 20

// explanation returns the fit explanation for one job section. The
// deterministic text is always computable; the LLM path is gated on
// explain, cached by a SHA-1 of its inputs, and deduplicated across
// concurrent misses with singleflight. Responder absence or failure
// falls back to the deterministic text.
func (b *Builder) explanation(ctx context.Context, cand *domain.Candidate, job *domain.Job, m *domain.Match, section *JobSection, sigs []*domain.CandidateSignal, explain bool) string {
	deterministic := deterministicExplanation(cand, job, m, section)
	if !explain || b.responder == nil {
		return deterministic
	}

	key := explainCacheKey(cand, job, section, sigs)
	if cached, ok := b.cache.Get(ctx, key); ok {
		return cached
	}

	out, err, _ := b.sf.Do(key, func() (any, error) {
		if cached, ok := b.cache.Get(ctx, key); ok {
			return cached, nil
		}
		text := llm.ReplyOrFallback(ctx, b.responder, llm.Request{
			Mode:        "explain_fit",
			Instruction: "Explain this candidate's fit for the role in two sentences.",
			JobTitle:    job.Title,
			JDText:      job.JDText,
			Candidate:   cand.FullName,
			State: map[string]any{
				"match_score":   m.Score,
				"match_status":  string(m.Status),
				"fit_breakdown": section.FitBreakdown,
			},
		}, deterministic)
		b.cache.Set(ctx, key, text, b.cfg.ExplainTTL)
		return text, nil
	})
	if err != nil {
		return deterministic
	}
	return out.(string)
}

// deterministicExplanation is the always-available fallback built
// from the fit breakdown alone.
func deterministicExplanation(cand *domain.Candidate, job *domain.Job, m *domain.Match, section *JobSection) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s scored %.0f%% for %s (%s).", cand.FullName, m.Score*100, job.Title, m.Status)
	if len(section.FitBreakdown) > 0 {
		keys := make([]string, 0, len(section.FitBreakdown))
		for k := range section.FitBreakdown {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%s %.2f", strings.TrimSuffix(k, "_match"), section.FitBreakdown[k]))
		}
		fmt.Fprintf(&sb, " Components: %s.", strings.Join(parts, ", "))
	}
	if section.OverallScore != nil {
		fmt.Fprintf(&sb, " Overall score %.0f (%s).", *section.OverallScore, section.OverallStatus)
	} else {
		fmt.Fprintf(&sb, " Status: %s.", section.OverallStatus)
	}
	return sb.String()
}

// explainCacheKey hashes the inputs the explanation depends on:
// candidate, job, overall outcome, fit breakdown, and the most recent
// signals (bounded window).
func explainCacheKey(cand *domain.Candidate, job *domain.Job, section *JobSection, sigs []*domain.CandidateSignal) string {
	window := sigs
	if len(window) > explainSignalWindow {
		window = window[:explainSignalWindow]
	}
	sigKeys := make([]string, 0, len(window))
	for _, s := range window {
		sigKeys = append(sigKeys, fmt.Sprintf("%s/%s@%.2f", s.SourceType, s.SourceID, s.ImpactScore))
	}
	payload, _ := json.Marshal(map[string]any{
		"candidate_id":   cand.ID.String(),
		"job_id":         job.ID.String(),
		"overall_score":  section.OverallScore,
		"overall_status": section.OverallStatus,
		"fit_breakdown":  section.FitBreakdown,
		"signals":        sigKeys,
	})
	sum := sha1.Sum(payload)
	return "explain:" + hex.EncodeToString(sum[:])
}
