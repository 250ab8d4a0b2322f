package signals

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tener/recruit-core/internal/domain"
	"github.com/tener/recruit-core/internal/platform/logger"
	"github.com/tener/recruit-core/internal/repos"
)

// Counts reports how many signals each source contributed to one
// ingestion pass.
type Counts struct {
	Assessments     int `json:"assessments"`
	PreResumeEvents int `json:"pre_resume_events"`
	OperationLogs   int `json:"operation_logs"`
	MatchSnapshots  int `json:"match_snapshots"`
}

func (c Counts) Total() int {
	return c.Assessments + c.PreResumeEvents + c.OperationLogs + c.MatchSnapshots
}

// Ingestor walks every candidate matched to a job and upserts signals
// from the four sources. Re-running with no intervening writes leaves
// the signal rows unchanged: the (job, candidate, source_type,
// source_id) unique key makes ingestion idempotent.
type Ingestor struct {
	log         *logger.Logger
	db          *gorm.DB
	rules       *RuleSet
	matches     repos.MatchRepo
	assessments repos.AgentAssessmentRepo
	sessions    repos.PreResumeSessionRepo
	events      repos.PreResumeEventRepo
	logs        repos.OperationLogRepo
	signals     repos.CandidateSignalRepo
}

const operationLogScanLimit = 5000

func NewIngestor(
	log *logger.Logger,
	db *gorm.DB,
	rules *RuleSet,
	matches repos.MatchRepo,
	assessments repos.AgentAssessmentRepo,
	sessions repos.PreResumeSessionRepo,
	events repos.PreResumeEventRepo,
	logs repos.OperationLogRepo,
	signals repos.CandidateSignalRepo,
) *Ingestor {
	return &Ingestor{
		log:         log.With("service", "SignalIngestor"),
		db:          db,
		rules:       rules,
		matches:     matches,
		assessments: assessments,
		sessions:    sessions,
		events:      events,
		logs:        logs,
		signals:     signals,
	}
}

func (in *Ingestor) IngestJob(ctx context.Context, jobID uuid.UUID) (Counts, error) {
	var counts Counts

	matches, err := in.matches.ListByJob(ctx, nil, jobID)
	if err != nil {
		return counts, fmt.Errorf("list matches: %w", err)
	}

	opLogs, err := in.logs.ListSince(ctx, nil, 0, operationLogScanLimit)
	if err != nil {
		return counts, fmt.Errorf("list operation logs: %w", err)
	}

	for _, m := range matches {
		candID := m.CandidateID

		n, err := in.ingestAssessments(ctx, jobID, candID)
		if err != nil {
			return counts, err
		}
		counts.Assessments += n

		n, err = in.ingestPreResumeEvents(ctx, jobID, candID)
		if err != nil {
			return counts, err
		}
		counts.PreResumeEvents += n

		n, err = in.ingestOperationLogs(ctx, jobID, candID, opLogs)
		if err != nil {
			return counts, err
		}
		counts.OperationLogs += n

		if err := in.ingestMatchSnapshot(ctx, m); err != nil {
			return counts, err
		}
		counts.MatchSnapshots++
	}

	in.log.Info("signal ingestion complete", "job_id", jobID,
		"assessments", counts.Assessments, "events", counts.PreResumeEvents,
		"logs", counts.OperationLogs, "matches", counts.MatchSnapshots)
	return counts, nil
}

func (in *Ingestor) ingestAssessments(ctx context.Context, jobID, candID uuid.UUID) (int, error) {
	rows, err := in.assessments.ListByJobAndCandidate(ctx, nil, jobID, candID)
	if err != nil {
		return 0, fmt.Errorf("list assessments: %w", err)
	}
	for _, a := range rows {
		raw := assessmentSignal(a)
		if err := in.classifyAndUpsert(ctx, raw); err != nil {
			return 0, err
		}
	}
	return len(rows), nil
}

func assessmentSignal(a *domain.AgentAssessment) *RawSignal {
	var (
		impact     float64
		confidence float64
		signalType string
	)
	if a.Score != nil {
		impact = (*a.Score - 50) / 25
		confidence = 0.8
		signalType = "assessment_score"
	} else {
		confidence = 0.6
		signalType = "assessment_status"
		switch strings.ToLower(a.Status) {
		case "qualified", "verified", "scored", "resume_received":
			impact = 1.0
		case "rejected", "failed", "not_interested":
			impact = -1.5
		default:
			impact = 0
		}
	}
	return &RawSignal{
		JobID:       a.JobID,
		CandidateID: a.CandidateID,
		SourceType:  domain.SourceAssessment,
		SourceID:    a.ID.String(),
		SignalType:  signalType,
		Category:    string(a.AgentKey),
		Title:       fmt.Sprintf("%s assessment (%s)", a.AgentKey, a.StageKey),
		Detail:      a.Reason,
		Impact:      impact,
		Confidence:  confidence,
		Meta: map[string]any{
			"agent_key": string(a.AgentKey),
			"stage_key": a.StageKey,
			"status":    a.Status,
		},
		ObservedAt: a.UpdatedAt,
	}
}

func (in *Ingestor) ingestPreResumeEvents(ctx context.Context, jobID, candID uuid.UUID) (int, error) {
	sessions, err := in.sessions.ListByJobAndCandidate(ctx, nil, jobID, candID)
	if err != nil {
		return 0, fmt.Errorf("list pre-resume sessions: %w", err)
	}
	total := 0
	for _, s := range sessions {
		events, err := in.events.ListBySession(ctx, nil, s.ID)
		if err != nil {
			return 0, fmt.Errorf("list pre-resume events: %w", err)
		}
		for _, e := range events {
			raw := preResumeEventSignal(jobID, candID, e)
			if err := in.classifyAndUpsert(ctx, raw); err != nil {
				return 0, err
			}
		}
		total += len(events)
	}
	return total, nil
}

func preResumeEventSignal(jobID, candID uuid.UUID, e *domain.PreResumeEvent) *RawSignal {
	var (
		impact     float64
		signalType string
	)
	switch {
	case e.Intent == "resume_shared" || e.ResultingStatus == string(domain.PreResumeResumeReceived):
		impact, signalType = 2.0, "resume_shared"
	case e.Intent == "not_interested" || e.ResultingStatus == string(domain.PreResumeNotInterested):
		impact, signalType = -2.0, "not_interested"
	case e.EventType == domain.EventSessionUnreachable:
		impact, signalType = -1.8, "unreachable"
	case e.EventType == domain.EventFollowupSent:
		impact, signalType = -0.4, "followup_sent"
	case e.EventType == domain.EventSessionStarted:
		impact, signalType = 0.4, "session_started"
	default:
		impact, signalType = 0, string(e.EventType)
	}
	return &RawSignal{
		JobID:       jobID,
		CandidateID: candID,
		SourceType:  domain.SourcePreResumeEvent,
		SourceID:    strconv.FormatInt(e.ID, 10),
		SignalType:  signalType,
		Category:    "conversation",
		Title:       "pre-resume " + string(e.EventType),
		Detail:      e.InboundText,
		Impact:      impact,
		Confidence:  0.75,
		Meta: map[string]any{
			"event_type":       string(e.EventType),
			"intent":           e.Intent,
			"resulting_status": e.ResultingStatus,
		},
		ObservedAt: e.CreatedAt,
	}
}

var operationPrefixes = []string{"agent.", "scheduler.", "poll.", "interview."}

func (in *Ingestor) ingestOperationLogs(ctx context.Context, jobID, candID uuid.UUID, all []*domain.OperationLog) (int, error) {
	n := 0
	for _, l := range all {
		if !operationTracked(l.Operation) || !logBelongsTo(l, jobID, candID) {
			continue
		}
		raw := operationLogSignal(jobID, candID, l)
		if err := in.classifyAndUpsert(ctx, raw); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

func operationTracked(op string) bool {
	for _, p := range operationPrefixes {
		if strings.HasPrefix(op, p) {
			return true
		}
	}
	return false
}

// logBelongsTo attributes an operation log line to a (job, candidate)
// pair either through the entity reference or through candidate_id /
// job_id keys in the details blob.
func logBelongsTo(l *domain.OperationLog, jobID, candID uuid.UUID) bool {
	details := decodeJSONMap(l.Details)
	if j, ok := details["job_id"].(string); ok && j != "" && j != jobID.String() {
		return false
	}
	if l.EntityType == "candidate" && l.EntityID != nil && *l.EntityID == candID {
		return true
	}
	if c, ok := details["candidate_id"].(string); ok && c == candID.String() {
		return true
	}
	return false
}

func operationLogSignal(jobID, candID uuid.UUID, l *domain.OperationLog) *RawSignal {
	var impact float64
	switch strings.ToLower(l.Status) {
	case "error", "failed":
		impact = -1.2
	case "warning", "partial":
		impact = -0.5
	case "ok", "sent", "connected", "created":
		impact = 0.6
	case "skipped":
		impact = -0.2
	default:
		impact = 0
	}
	return &RawSignal{
		JobID:       jobID,
		CandidateID: candID,
		SourceType:  domain.SourceOperationLog,
		SourceID:    strconv.FormatInt(l.ID, 10),
		SignalType:  "operation",
		Category:    l.Operation,
		Title:       l.Operation + " " + l.Status,
		Impact:      impact,
		Confidence:  0.55,
		Meta: map[string]any{
			"operation": l.Operation,
			"status":    l.Status,
		},
		ObservedAt: l.CreatedAt,
	}
}

func (in *Ingestor) ingestMatchSnapshot(ctx context.Context, m *domain.Match) error {
	return in.classifyAndUpsert(ctx, matchSnapshotSignal(m))
}

var matchStatusImpact = map[domain.MatchStatus]float64{
	domain.MatchVerified:       0.5,
	domain.MatchNeedsResume:    0.0,
	domain.MatchResumeReceived: 1.2,
	domain.MatchOutreached:     0.2,
	domain.MatchInterviewing:   0.8,
	domain.MatchInterviewDone:  1.5,
	domain.MatchHired:          2.5,
	domain.MatchRejected:       -2.0,
}

func matchSnapshotSignal(m *domain.Match) *RawSignal {
	impact := matchStatusImpact[m.Status] + (m.Score*100-50)/35

	notes := decodeJSONMap(m.VerificationNotes)
	interviewStatus, _ := notes["interview_status"].(string)
	switch strings.ToLower(interviewStatus) {
	case "scored", "completed":
		impact += 0.8
	case "failed", "expired", "canceled":
		impact -= 0.8
	}

	return &RawSignal{
		JobID:       m.JobID,
		CandidateID: m.CandidateID,
		SourceType:  domain.SourceMatchSnapshot,
		SourceID:    "match:" + m.ID.String(),
		SignalType:  "match_" + string(m.Status),
		Category:    "screening",
		Title:       "match " + string(m.Status),
		Impact:      impact,
		Confidence:  0.65,
		Meta: map[string]any{
			"match_status":     string(m.Status),
			"match_score":      m.Score,
			"interview_status": interviewStatus,
		},
		ObservedAt: m.UpdatedAt,
	}
}

func (in *Ingestor) classifyAndUpsert(ctx context.Context, raw *RawSignal) error {
	sig := in.rules.Classify(raw)
	if err := in.signals.Upsert(ctx, nil, sig); err != nil {
		return fmt.Errorf("upsert signal (%s/%s): %w", raw.SourceType, raw.SourceID, err)
	}
	return nil
}
