package profile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"

	"github.com/tener/recruit-core/internal/domain"
	"github.com/tener/recruit-core/internal/platform/apierr"
	"github.com/tener/recruit-core/internal/platform/envutil"
	"github.com/tener/recruit-core/internal/platform/logger"
	"github.com/tener/recruit-core/internal/providers/llm"
	"github.com/tener/recruit-core/internal/repos"
	"github.com/tener/recruit-core/internal/scoring"
)

type Config struct {
	ExplainTTL  time.Duration
	TimelineCap int
}

func LoadConfig() Config {
	return Config{
		ExplainTTL:  envutil.Duration("PROFILE_EXPLAIN_TTL", 900*time.Second),
		TimelineCap: envutil.Int("PROFILE_TIMELINE_CAP", 1000),
	}
}

// ScorecardEntry is the latest (stage, score, status) per agent key.
type ScorecardEntry struct {
	Stage  string   `json:"stage,omitempty"`
	Score  *float64 `json:"score,omitempty"`
	Status string   `json:"status,omitempty"`
	Reason string   `json:"reason,omitempty"`
}

type TimelineEntry struct {
	Kind   string    `json:"kind"`
	Title  string    `json:"title"`
	Detail string    `json:"detail,omitempty"`
	At     time.Time `json:"at"`
}

// JobSection is the per-job slice of a candidate profile.
type JobSection struct {
	JobID         uuid.UUID                          `json:"job_id"`
	JobTitle      string                             `json:"job_title"`
	MatchScore    float64                            `json:"match_score"`
	MatchStatus   domain.MatchStatus                 `json:"match_status"`
	FitBreakdown  map[string]float64                 `json:"fit_breakdown,omitempty"`
	Scorecard     map[domain.AgentKey]ScorecardEntry `json:"scorecard"`
	OverallScore  *float64                           `json:"overall_score,omitempty"`
	OverallStatus scoring.OverallStatus              `json:"overall_status"`
	BlockReason   string                             `json:"block_reason,omitempty"`
	Explanation   string                             `json:"explanation,omitempty"`
	CultureFit    *CultureFit                        `json:"culture_fit,omitempty"`
}

type View struct {
	CandidateID uuid.UUID       `json:"candidate_id"`
	FullName    string          `json:"full_name"`
	Headline    string          `json:"headline,omitempty"`
	Location    string          `json:"location,omitempty"`
	Languages   []string        `json:"languages,omitempty"`
	Skills      []string        `json:"skills,omitempty"`
	Jobs        []JobSection    `json:"jobs"`
	Timeline    []TimelineEntry `json:"timeline"`
	GeneratedAt time.Time       `json:"generated_at"`
}

// Builder produces the aggregated per-candidate read view.
type Builder struct {
	log        *logger.Logger
	cfg        Config
	scoringCfg scoring.Config
	responder  llm.Responder
	cache      Cache
	sf         singleflight.Group

	candidates    repos.CandidateRepo
	jobs          repos.JobRepo
	matches       repos.MatchRepo
	assessments   repos.AgentAssessmentRepo
	sessions      repos.PreResumeSessionRepo
	events        repos.PreResumeEventRepo
	conversations repos.ConversationRepo
	signals       repos.CandidateSignalRepo
	oplogs        repos.OperationLogRepo
}

func NewBuilder(
	log *logger.Logger,
	cfg Config,
	scoringCfg scoring.Config,
	responder llm.Responder,
	cache Cache,
	candidates repos.CandidateRepo,
	jobs repos.JobRepo,
	matches repos.MatchRepo,
	assessments repos.AgentAssessmentRepo,
	sessions repos.PreResumeSessionRepo,
	events repos.PreResumeEventRepo,
	conversations repos.ConversationRepo,
	signals repos.CandidateSignalRepo,
	oplogs repos.OperationLogRepo,
) *Builder {
	if cache == nil {
		cache = NewMemoryCache()
	}
	return &Builder{
		log:           log.With("service", "CandidateProfileBuilder"),
		cfg:           cfg,
		scoringCfg:    scoringCfg,
		responder:     responder,
		cache:         cache,
		candidates:    candidates,
		jobs:          jobs,
		matches:       matches,
		assessments:   assessments,
		sessions:      sessions,
		events:        events,
		conversations: conversations,
		signals:       signals,
		oplogs:        oplogs,
	}
}

// Build assembles the candidate view. jobID narrows to one job when
// non-nil; explain asks for the LLM explanation (the deterministic
// one is used when explain is off or the responder is absent or
// fails); audit folds the candidate's
// operation-log lines into the timeline.
func (b *Builder) Build(ctx context.Context, candidateID uuid.UUID, jobID *uuid.UUID, explain, audit bool) (*View, error) {
	cand, err := b.candidates.GetByID(ctx, nil, candidateID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.NotFound(fmt.Errorf("candidate %s", candidateID))
		}
		return nil, err
	}

	matches, err := b.matches.ListByCandidate(ctx, nil, candidateID)
	if err != nil {
		return nil, fmt.Errorf("list matches: %w", err)
	}

	view := &View{
		CandidateID: cand.ID,
		FullName:    cand.FullName,
		Headline:    cand.Headline,
		Location:    cand.Location,
		Languages:   cand.LanguageList(),
		Skills:      cand.SkillSet(),
		GeneratedAt: time.Now(),
	}

	var timeline []TimelineEntry
	for _, m := range matches {
		if jobID != nil && m.JobID != *jobID {
			continue
		}
		section, entries, err := b.buildJobSection(ctx, cand, m, explain)
		if err != nil {
			return nil, err
		}
		view.Jobs = append(view.Jobs, *section)
		timeline = append(timeline, entries...)
	}

	if audit {
		timeline = append(timeline, b.auditEntries(ctx, cand)...)
	}

	sort.SliceStable(timeline, func(i, j int) bool { return timeline[i].At.After(timeline[j].At) })
	if b.cfg.TimelineCap > 0 && len(timeline) > b.cfg.TimelineCap {
		timeline = timeline[:b.cfg.TimelineCap]
	}
	view.Timeline = timeline
	return view, nil
}

func (b *Builder) buildJobSection(ctx context.Context, cand *domain.Candidate, m *domain.Match, explain bool) (*JobSection, []TimelineEntry, error) {
	job, err := b.jobs.GetByID(ctx, nil, m.JobID)
	if err != nil {
		return nil, nil, fmt.Errorf("load job: %w", err)
	}

	assessments, err := b.assessments.ListByJobAndCandidate(ctx, nil, m.JobID, cand.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("list assessments: %w", err)
	}
	scorecard := map[domain.AgentKey]ScorecardEntry{}
	inputs := map[domain.AgentKey]scoring.AgentInput{}
	for _, a := range assessments {
		if _, ok := scorecard[a.AgentKey]; ok {
			continue // list is newest-first; first wins
		}
		scorecard[a.AgentKey] = ScorecardEntry{Stage: a.StageKey, Score: a.Score, Status: a.Status, Reason: a.Reason}
		inputs[a.AgentKey] = scoring.AgentInput{Score: a.Score, Status: a.Status, Stage: a.StageKey}
	}

	hasCV := m.Status == domain.MatchResumeReceived || m.Status == domain.MatchInterviewing ||
		m.Status == domain.MatchInterviewDone || m.Status == domain.MatchHired
	result := scoring.Compute(b.scoringCfg, inputs, candidateStatusFor(ctx, b, m, cand), hasCV)

	section := &JobSection{
		JobID:         m.JobID,
		JobTitle:      job.Title,
		MatchScore:    m.Score,
		MatchStatus:   m.Status,
		FitBreakdown:  fitBreakdown(m.VerificationNotes),
		Scorecard:     scorecard,
		OverallScore:  result.OverallScore,
		OverallStatus: result.OverallStatus,
		BlockReason:   result.BlockReason,
	}

	sigs, err := b.signals.ListByJobAndCandidate(ctx, nil, m.JobID, cand.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("list signals: %w", err)
	}
	section.Explanation = b.explanation(ctx, cand, job, m, section, sigs, explain)
	section.CultureFit = b.cultureFit(ctx, cand, job, m, scorecard, explain)

	entries := b.timelineEntries(ctx, cand, m, assessments, sigs)
	return section, entries, nil
}

// candidateStatusFor resolves the blocked-gate status: a terminal
// pre-resume outcome on any of the candidate's sessions for this job
// outranks the match status.
func candidateStatusFor(ctx context.Context, b *Builder, m *domain.Match, cand *domain.Candidate) string {
	sessions, err := b.sessions.ListByJobAndCandidate(ctx, nil, m.JobID, cand.ID)
	if err == nil {
		for _, s := range sessions {
			if s.Status == domain.PreResumeNotInterested || s.Status == domain.PreResumeUnreachable {
				return string(s.Status)
			}
		}
	}
	return string(m.Status)
}

const auditLogScanLimit = 2000

// auditEntries pulls the operation-log lines attributable to this
// candidate, by entity reference or by a candidate_id key in the
// details blob.
func (b *Builder) auditEntries(ctx context.Context, cand *domain.Candidate) []TimelineEntry {
	logs, err := b.oplogs.ListSince(ctx, nil, 0, auditLogScanLimit)
	if err != nil {
		b.log.Warn("audit log load failed", "error", err)
		return nil
	}
	var out []TimelineEntry
	for _, l := range logs {
		owned := l.EntityType == "candidate" && l.EntityID != nil && *l.EntityID == cand.ID
		if !owned && len(l.Details) > 0 {
			var details struct {
				CandidateID string `json:"candidate_id"`
			}
			if jErr := json.Unmarshal(l.Details, &details); jErr == nil && details.CandidateID == cand.ID.String() {
				owned = true
			}
		}
		if !owned {
			continue
		}
		out = append(out, TimelineEntry{
			Kind:  "operation",
			Title: l.Operation + " " + l.Status,
			At:    l.CreatedAt,
		})
	}
	return out
}

func fitBreakdown(notes []byte) map[string]float64 {
	if len(notes) == 0 {
		return nil
	}
	var parsed struct {
		Components map[string]float64 `json:"components"`
	}
	if err := json.Unmarshal(notes, &parsed); err != nil {
		return nil
	}
	return parsed.Components
}

func (b *Builder) timelineEntries(ctx context.Context, cand *domain.Candidate, m *domain.Match, assessments []*domain.AgentAssessment, sigs []*domain.CandidateSignal) []TimelineEntry {
	var out []TimelineEntry
	out = append(out, TimelineEntry{
		Kind:  "match",
		Title: "match " + string(m.Status),
		At:    m.UpdatedAt,
	})
	for _, a := range assessments {
		out = append(out, TimelineEntry{
			Kind:   "assessment",
			Title:  fmt.Sprintf("%s (%s)", a.AgentKey, a.StageKey),
			Detail: a.Reason,
			At:     a.UpdatedAt,
		})
	}
	sessions, err := b.sessions.ListByJobAndCandidate(ctx, nil, m.JobID, cand.ID)
	if err == nil {
		for _, s := range sessions {
			events, eerr := b.events.ListBySession(ctx, nil, s.ID)
			if eerr != nil {
				continue
			}
			for _, e := range events {
				out = append(out, TimelineEntry{
					Kind:   "conversation",
					Title:  string(e.EventType),
					Detail: e.Intent,
					At:     e.CreatedAt,
				})
			}
		}
	}
	for _, s := range sigs {
		out = append(out, TimelineEntry{
			Kind:   "signal",
			Title:  s.SignalType,
			Detail: s.Title,
			At:     s.ObservedAt,
		})
	}
	return out
}
