package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/tener/recruit-core/internal/domain"
	"github.com/tener/recruit-core/internal/matching"
	"github.com/tener/recruit-core/internal/providers/llm"
	"github.com/tener/recruit-core/internal/providers/messaging"
)

type SourceSummary struct {
	Queries   int                 `json:"queries"`
	Failed    int                 `json:"failed_queries"`
	Collected int                 `json:"collected"`
	Profiles  []messaging.Profile `json:"profiles"`
}

// Source builds the query set and runs two provider passes (broad,
// then widened), deduplicating by the preferred identifier chain. It
// fails only when every query failed and nothing was collected.
func (o *Orchestrator) Source(ctx context.Context, job *domain.Job, limit int) (*SourceSummary, error) {
	if limit <= 0 {
		limit = o.cfg.SourceLimit
	}
	queries := buildQueries(job, o.matcherDict(ctx, job))

	seen := map[string]bool{}
	collected := make([]messaging.Profile, 0, limit)
	failed := 0
	succeeded := map[string]bool{}

	runPass := func(perQuery int) {
		for _, q := range queries {
			if len(collected) >= limit {
				return
			}
			profiles, err := o.deps.Provider.SearchProfiles(ctx, q, perQuery)
			if err != nil {
				failed++
				o.log.Warn("search query failed", "query", q, "error", err)
				continue
			}
			succeeded[q] = true
			for _, p := range profiles {
				key := candidateKey(p)
				if key == "|" || seen[key] {
					continue
				}
				seen[key] = true
				collected = append(collected, p)
				if len(collected) >= limit {
					return
				}
			}
		}
	}

	runPass(o.cfg.PerQueryLimit)
	if len(collected) < limit {
		runPass(o.cfg.PerQueryLimit * 3)
	}

	if len(collected) == 0 && failed > 0 && len(succeeded) == 0 {
		return nil, fmt.Errorf("sourcing failed: all %d queries errored", failed)
	}
	return &SourceSummary{
		Queries:   len(queries),
		Failed:    failed,
		Collected: len(collected),
		Profiles:  collected,
	}, nil
}

// matcherDict returns the matcher's skill dictionary for query
// building, enriched by a job_architect assessment when one exists.
func (o *Orchestrator) matcherDict(ctx context.Context, job *domain.Job) []string {
	extra := o.jobArchitectSkills(ctx, job.ID)
	return matching.EnrichDictionary(extra)
}

// jobArchitectSkills pulls extra skill terms from the latest
// job_architect assessment details, when present. The deterministic
// dictionary is only ever extended, never replaced.
func (o *Orchestrator) jobArchitectSkills(ctx context.Context, jobID uuid.UUID) []string {
	var rows []*domain.AgentAssessment
	all, err := o.deps.Assessments.ListByJobAndCandidate(ctx, nil, jobID, uuid.Nil)
	if err == nil {
		rows = all
	}
	for _, a := range rows {
		if a.AgentKey != domain.AgentJobArchitect {
			continue
		}
		var details struct {
			Skills []string `json:"skills"`
		}
		if err := reencodeJSON(a.Details, &details); err == nil && len(details.Skills) > 0 {
			return details.Skills
		}
	}
	return nil
}

type EnrichSummary struct {
	Enriched int                 `json:"enriched"`
	Failed   int                 `json:"failed"`
	Profiles []messaging.Profile `json:"profiles"`
}

const enrichConcurrency = 4

// Enrich runs per-profile provider enrichment concurrently. A failed
// enrichment keeps the original profile and bumps the failed counter;
// the batch never aborts.
func (o *Orchestrator) Enrich(ctx context.Context, job *domain.Job, profiles []messaging.Profile) (*EnrichSummary, error) {
	out := make([]messaging.Profile, len(profiles))
	var mu sync.Mutex
	failed := 0

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(enrichConcurrency)
	for i, p := range profiles {
		g.Go(func() error {
			enriched, err := o.deps.Provider.EnrichProfile(gctx, p)
			if err != nil {
				mu.Lock()
				failed++
				mu.Unlock()
				out[i] = p
				return nil
			}
			out[i] = enriched
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &EnrichSummary{Enriched: len(profiles) - failed, Failed: failed, Profiles: out}, nil
}

type VerifiedItem struct {
	Profile messaging.Profile `json:"profile"`
	Score   float64           `json:"score"`
	Status  string            `json:"status"`
	Notes   matching.Notes    `json:"notes"`
}

type VerifySummary struct {
	Verified int            `json:"verified"`
	Rejected int            `json:"rejected"`
	Items    []VerifiedItem `json:"items"`
}

// Verify runs the deterministic matcher over every profile.
func (o *Orchestrator) Verify(ctx context.Context, job *domain.Job, profiles []messaging.Profile) (*VerifySummary, error) {
	input := matching.JobInput{
		Title:              job.Title,
		JDText:             job.JDText,
		Location:           job.Location,
		PreferredLanguages: job.PreferredLanguageList(),
		SeniorityBand:      job.SeniorityBand,
	}
	matcher := o.deps.Matcher
	if extra := o.jobArchitectSkills(ctx, job.ID); len(extra) > 0 {
		matcher = matcher.WithDictionary(matching.EnrichDictionary(extra))
	}

	summary := &VerifySummary{Items: make([]VerifiedItem, 0, len(profiles))}
	for _, p := range profiles {
		score, status, notes := matcher.Verify(input, matching.Profile{
			ProviderID:      p.ProviderID,
			FullName:        p.FullName,
			Headline:        p.Headline,
			Location:        p.Location,
			Languages:       p.Languages,
			Skills:          p.Skills,
			YearsExperience: p.YearsExperience,
		})
		summary.Items = append(summary.Items, VerifiedItem{
			Profile: p, Score: score, Status: string(status), Notes: notes,
		})
		if status == matching.StatusVerified {
			summary.Verified++
		} else {
			summary.Rejected++
		}
	}
	return summary, nil
}

type AddedCandidate struct {
	CandidateID uuid.UUID `json:"candidate_id"`
	ProviderID  string    `json:"provider_id"`
	Status      string    `json:"status"`
	Score       float64   `json:"score"`
}

type AddSummary struct {
	Added []AddedCandidate `json:"added"`
}

// Add upserts candidate + match rows for each verified item. Verified
// matches become needs_resume when the workflow requires a resume
// before final verification.
func (o *Orchestrator) Add(ctx context.Context, job *domain.Job, items []VerifiedItem) (*AddSummary, error) {
	summary := &AddSummary{Added: make([]AddedCandidate, 0, len(items))}
	for _, item := range items {
		p := item.Profile
		// Persist under the same canonical key the source stage dedupes
		// by, so re-sourcing never forks a second candidate row.
		cand := &domain.Candidate{
			ProviderID:      candidateKey(p),
			FullName:        p.FullName,
			Headline:        p.Headline,
			Location:        p.Location,
			YearsExperience: p.YearsExperience,
			CreatedAt:       time.Now(),
			UpdatedAt:       time.Now(),
		}
		cand.SetLanguages(p.Languages)
		cand.SetSkills(p.Skills)
		stored, err := o.deps.Candidates.Upsert(ctx, nil, cand)
		if err != nil {
			return nil, fmt.Errorf("upsert candidate %q: %w", cand.ProviderID, err)
		}

		status := domain.MatchStatus(item.Status)
		if status == domain.MatchVerified && o.cfg.RequireResumeBeforeFinalVerify {
			status = domain.MatchNeedsResume
		}
		notesPatch := map[string]any{}
		if err := reencode(item.Notes, &notesPatch); err != nil {
			return nil, fmt.Errorf("encode verification notes: %w", err)
		}
		if _, err := o.deps.Matches.UpsertVerification(ctx, nil, job.ID, stored.ID, item.Score, status, notesPatch); err != nil {
			return nil, fmt.Errorf("upsert match: %w", err)
		}
		summary.Added = append(summary.Added, AddedCandidate{
			CandidateID: stored.ID,
			ProviderID:  stored.ProviderID,
			Status:      string(status),
			Score:       item.Score,
		})
	}
	return summary, nil
}

type OutreachSummary struct {
	Enqueued int `json:"enqueued"`
	Sessions int `json:"sessions_started"`
	Failed   int `json:"failed"`
}

// Outreach resolves (or creates) a conversation per candidate,
// composes the intro or resume request, persists the outbound message
// optimistically with pending delivery meta, and enqueues an
// OutboundAction instead of dispatching inline. Provider-independent:
// actual sends happen in the dispatcher.
func (o *Orchestrator) Outreach(ctx context.Context, job *domain.Job, candidateIDs []uuid.UUID) (*OutreachSummary, error) {
	summary := &OutreachSummary{}
	now := time.Now()

	for _, candID := range candidateIDs {
		cand, err := o.deps.Candidates.GetByID(ctx, nil, candID)
		if err != nil {
			summary.Failed++
			o.log.Warn("outreach candidate missing", "candidate_id", candID, "error", err)
			continue
		}

		conv, err := o.deps.Conversations.GetByJobAndCandidate(ctx, nil, job.ID, candID)
		if err != nil {
			conv, err = o.deps.Conversations.Create(ctx, nil, &domain.Conversation{
				JobID:       job.ID,
				CandidateID: candID,
				Channel:     o.cfg.Channel,
				Status:      domain.ConversationActive,
				CreatedAt:   now,
				UpdatedAt:   now,
			})
			if err != nil {
				return nil, fmt.Errorf("create conversation: %w", err)
			}
		}

		language := o.candidateLanguage(cand)
		needsResume := false
		if m, merr := o.deps.Matches.GetByJobAndCandidate(ctx, nil, job.ID, candID); merr == nil {
			needsResume = m.Status == domain.MatchNeedsResume
		}

		text, err := o.composeOutreach(ctx, job, cand, conv, language, needsResume, now)
		if err != nil {
			summary.Failed++
			o.log.Warn("outreach compose failed", "candidate_id", candID, "error", err)
			continue
		}
		if needsResume {
			summary.Sessions++
		}

		if _, err := o.deps.Messages.Append(ctx, nil, &domain.Message{
			ConversationID: conv.ID,
			Direction:      domain.DirectionOutbound,
			Language:       language,
			Content:        text,
			Metadata:       mustJSON(map[string]any{"delivery": "pending", "type": outreachType(needsResume)}),
			CreatedAt:      now,
		}); err != nil {
			return nil, fmt.Errorf("persist outreach message: %w", err)
		}

		if _, err := o.deps.Actions.Create(ctx, nil, &domain.OutboundAction{
			JobID:           job.ID,
			CandidateID:     candID,
			ConversationID:  conv.ID,
			Kind:            domain.OutboundMessage,
			PayloadText:     text,
			PayloadLanguage: language,
			Status:          domain.OutboundPending,
			CreatedAt:       now,
			UpdatedAt:       now,
		}); err != nil {
			return nil, fmt.Errorf("enqueue outbound action: %w", err)
		}

		// needs_resume matches keep their status so a replayed outreach
		// still composes a resume request; the FSM advances them.
		if !needsResume {
			if err := o.deps.Matches.UpdateStatus(ctx, nil, job.ID, candID, domain.MatchOutreached); err != nil {
				o.log.Warn("match status update failed", "candidate_id", candID, "error", err)
			}
		}
		summary.Enqueued++
	}
	return summary, nil
}

// composeOutreach produces the first outbound text. For resume-needed
// matches it starts the pre-resume session so the FSM owns the rest
// of the conversation; otherwise a plain intro goes out. The LLM
// responder may rewrite the template text but its absence or failure
// never blocks outreach.
func (o *Orchestrator) composeOutreach(ctx context.Context, job *domain.Job, cand *domain.Candidate, conv *domain.Conversation, language string, needsResume bool, now time.Time) (string, error) {
	var fallback string
	if needsResume {
		if _, err := o.deps.Sessions.GetByConversationID(ctx, nil, conv.ID); err != nil {
			session, intro := o.deps.FSM.StartSession(conv.ID, job.ID, cand.ID, cand.FullName, job.Title, "", cand.Headline, language, now)
			if _, serr := o.deps.Sessions.Create(ctx, nil, session); serr != nil {
				return "", fmt.Errorf("start pre-resume session: %w", serr)
			}
			if aerr := o.deps.Events.Append(ctx, nil, &domain.PreResumeEvent{
				SessionID:       session.ID,
				EventType:       domain.EventSessionStarted,
				OutboundText:    intro,
				ResultingStatus: string(session.Status),
				CreatedAt:       now,
			}); aerr != nil {
				o.log.Warn("pre-resume event append failed", "error", aerr)
			}
			fallback = intro
		} else {
			fallback, _ = o.deps.Templates.Current().Render("resume_request", language, map[string]string{
				"name": cand.FullName, "job_title": job.Title, "core_profile_summary": cand.Headline,
			})
		}
	} else {
		fallback, _ = o.deps.Templates.Current().Render("intro", language, map[string]string{
			"name": cand.FullName, "job_title": job.Title, "scope_summary": "",
		})
	}
	if fallback == "" {
		fallback = "Hi " + cand.FullName + ", reaching out about " + job.Title + "."
	}

	return llm.ReplyOrFallback(ctx, o.deps.Responder, llm.Request{
		Mode:      "outreach",
		JobTitle:  job.Title,
		JDText:    job.JDText,
		Candidate: cand.FullName,
		Language:  language,
	}, fallback), nil
}

func (o *Orchestrator) candidateLanguage(cand *domain.Candidate) string {
	langs := cand.LanguageList()
	if len(langs) > 0 && langs[0] != "" {
		return langs[0]
	}
	return "en"
}

func outreachType(needsResume bool) string {
	if needsResume {
		return "resume_request"
	}
	return "intro"
}
