package signals

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/tener/recruit-core/internal/domain"
	"github.com/tener/recruit-core/internal/repos"
)

const (
	impactScale    = 4.0
	maxImpactSwing = 30.0
	timelineCap    = 1000
)

// ViewRow is one ranked candidate in the live view. BaseScore is the
// static match score on a 0-100 scale; LiveScore adds the clamped sum
// of evaluative signal impacts.
type ViewRow struct {
	CandidateID     uuid.UUID `json:"candidate_id"`
	FullName        string    `json:"full_name"`
	BaseScore       float64   `json:"base_score"`
	LiveScore       float64   `json:"live_score"`
	ImpactPoints    float64   `json:"impact_points"`
	Rank            int       `json:"rank"`
	PreviousRank    int       `json:"previous_rank"`
	RankDelta       int       `json:"rank_delta"`
	SignalCount     int       `json:"signal_count"`
	EvaluativeCount int       `json:"evaluative_count"`
}

type JobView struct {
	JobID          uuid.UUID                 `json:"job_id"`
	Rows           []ViewRow                 `json:"rows"`
	Timeline       []*domain.CandidateSignal `json:"timeline"`
	CategoryCounts map[string]int            `json:"category_counts"`
	RoleCounts     map[string]int            `json:"role_counts"`
	GeneratedAt    time.Time                 `json:"generated_at"`
}

// Viewer computes the live ranking for a job from its persisted
// signals and matches.
type Viewer struct {
	matches    repos.MatchRepo
	candidates repos.CandidateRepo
	signals    repos.CandidateSignalRepo
}

func NewViewer(matches repos.MatchRepo, candidates repos.CandidateRepo, signals repos.CandidateSignalRepo) *Viewer {
	return &Viewer{matches: matches, candidates: candidates, signals: signals}
}

func (v *Viewer) BuildJobView(ctx context.Context, jobID uuid.UUID, now time.Time) (*JobView, error) {
	matches, err := v.matches.ListByJob(ctx, nil, jobID)
	if err != nil {
		return nil, fmt.Errorf("list matches: %w", err)
	}
	sigs, err := v.signals.ListByJob(ctx, nil, jobID)
	if err != nil {
		return nil, fmt.Errorf("list signals: %w", err)
	}

	byCandidate := map[uuid.UUID][]*domain.CandidateSignal{}
	categoryCounts := map[string]int{}
	roleCounts := map[string]int{}
	for _, s := range sigs {
		byCandidate[s.CandidateID] = append(byCandidate[s.CandidateID], s)
		if s.Category != "" {
			categoryCounts[s.Category]++
		}
		roleCounts[string(s.Role)]++
	}

	candidateIDs := make([]uuid.UUID, 0, len(matches))
	for _, m := range matches {
		candidateIDs = append(candidateIDs, m.CandidateID)
	}
	cands, err := v.candidates.GetByIDs(ctx, nil, candidateIDs)
	if err != nil {
		return nil, fmt.Errorf("load candidates: %w", err)
	}
	names := map[uuid.UUID]string{}
	for _, c := range cands {
		names[c.ID] = c.FullName
	}

	rows := make([]ViewRow, 0, len(matches))
	for _, m := range matches {
		base := clamp(m.Score*100, 0, 100)
		sum := 0.0
		evaluative := 0
		for _, s := range byCandidate[m.CandidateID] {
			if s.Role == domain.RoleEvaluative {
				evaluative++
			}
			sum += s.EffectiveImpact()
		}
		points := clamp(sum*impactScale, -maxImpactSwing, maxImpactSwing)
		rows = append(rows, ViewRow{
			CandidateID:     m.CandidateID,
			FullName:        names[m.CandidateID],
			BaseScore:       base,
			LiveScore:       clamp(base+points, 0, 100),
			ImpactPoints:    points,
			SignalCount:     len(byCandidate[m.CandidateID]),
			EvaluativeCount: evaluative,
		})
	}

	// Previous rank reflects the static ordering by base score alone;
	// the delta shows how live signals moved each candidate.
	prev := make([]ViewRow, len(rows))
	copy(prev, rows)
	sort.SliceStable(prev, func(i, j int) bool {
		if prev[i].BaseScore != prev[j].BaseScore {
			return prev[i].BaseScore > prev[j].BaseScore
		}
		return prev[i].CandidateID.String() > prev[j].CandidateID.String()
	})
	prevRank := map[uuid.UUID]int{}
	for i, r := range prev {
		prevRank[r.CandidateID] = i + 1
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].LiveScore != rows[j].LiveScore {
			return rows[i].LiveScore > rows[j].LiveScore
		}
		if rows[i].BaseScore != rows[j].BaseScore {
			return rows[i].BaseScore > rows[j].BaseScore
		}
		return rows[i].CandidateID.String() > rows[j].CandidateID.String()
	})
	for i := range rows {
		rows[i].Rank = i + 1
		rows[i].PreviousRank = prevRank[rows[i].CandidateID]
		rows[i].RankDelta = rows[i].PreviousRank - rows[i].Rank
	}

	timeline := make([]*domain.CandidateSignal, len(sigs))
	copy(timeline, sigs)
	sort.SliceStable(timeline, func(i, j int) bool {
		if !timeline[i].ObservedAt.Equal(timeline[j].ObservedAt) {
			return timeline[i].ObservedAt.After(timeline[j].ObservedAt)
		}
		return timeline[i].CreatedAt.After(timeline[j].CreatedAt)
	})
	if len(timeline) > timelineCap {
		timeline = timeline[:timelineCap]
	}

	return &JobView{
		JobID:          jobID,
		Rows:           rows,
		Timeline:       timeline,
		CategoryCounts: categoryCounts,
		RoleCounts:     roleCounts,
		GeneratedAt:    now,
	}, nil
}
