package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/tener/recruit-core/internal/domain"
	"github.com/tener/recruit-core/internal/fsm"
	"github.com/tener/recruit-core/internal/fsm/templates"
	"github.com/tener/recruit-core/internal/matching"
	"github.com/tener/recruit-core/internal/platform/ctxutil"
	"github.com/tener/recruit-core/internal/platform/envutil"
	"github.com/tener/recruit-core/internal/platform/logger"
	"github.com/tener/recruit-core/internal/providers/llm"
	"github.com/tener/recruit-core/internal/providers/messaging"
	"github.com/tener/recruit-core/internal/repos"
)

// Stage names, also the JobStepProgress step keys.
const (
	StageSource   = "source"
	StageEnrich   = "enrich"
	StageVerify   = "verify"
	StageAdd      = "add"
	StageOutreach = "outreach"
)

type Config struct {
	SourceLimit                    int
	PerQueryLimit                  int
	PollFetchLimit                 int
	FollowupBatchLimit             int
	Channel                        string
	RequireResumeBeforeFinalVerify bool
}

func LoadConfig() Config {
	return Config{
		SourceLimit:                    envutil.Int("WORKFLOW_SOURCE_LIMIT", 50),
		PerQueryLimit:                  envutil.Int("WORKFLOW_PER_QUERY_LIMIT", 10),
		PollFetchLimit:                 envutil.Int("WORKFLOW_POLL_FETCH_LIMIT", 20),
		FollowupBatchLimit:             envutil.Int("WORKFLOW_FOLLOWUP_BATCH_LIMIT", 100),
		Channel:                        envutil.String("WORKFLOW_CHANNEL", "linkedin"),
		RequireResumeBeforeFinalVerify: envutil.Bool("WORKFLOW_REQUIRE_RESUME", true),
	}
}

// Deps is everything the orchestrator is wired with at the
// composition root.
type Deps struct {
	DB        *gorm.DB
	Provider  messaging.Provider
	Responder llm.Responder
	Matcher   *matching.Engine
	FSM       *fsm.Engine
	Templates *templates.Manager

	Jobs          repos.JobRepo
	Candidates    repos.CandidateRepo
	Matches       repos.MatchRepo
	Conversations repos.ConversationRepo
	Messages      repos.MessageRepo
	Sessions      repos.PreResumeSessionRepo
	Events        repos.PreResumeEventRepo
	Assessments   repos.AgentAssessmentRepo
	Accounts      repos.SenderAccountRepo
	Actions       repos.OutboundActionRepo
	Progress      repos.JobStepProgressRepo
	OpLogs        repos.OperationLogRepo
}

// Orchestrator drives the multi-stage workflow pipeline and the
// conversational loops around it. Every stage is idempotent against
// the repository: its summary is checkpointed into JobStepProgress and
// later stages read their input from the previous stage's checkpoint
// when the caller does not supply one.
type Orchestrator struct {
	log   *logger.Logger
	cfg   Config
	deps  Deps
	locks *sessionLocks
}

func New(log *logger.Logger, cfg Config, deps Deps) *Orchestrator {
	return &Orchestrator{
		log:   log.With("service", "WorkflowOrchestrator"),
		cfg:   cfg,
		deps:  deps,
		locks: newSessionLocks(),
	}
}

// RunStage executes one named pipeline stage for a job and
// checkpoints its summary. The returned value is the stage summary,
// already JSON-shaped.
func (o *Orchestrator) RunStage(ctx context.Context, step string, jobID uuid.UUID, payload map[string]any) (any, error) {
	job, err := o.deps.Jobs.GetByID(ctx, nil, jobID)
	if err != nil {
		return nil, fmt.Errorf("load job: %w", err)
	}

	var out any
	switch step {
	case StageSource:
		out, err = o.Source(ctx, job, intFromPayload(payload, "limit", o.cfg.SourceLimit))
	case StageEnrich:
		var profiles []messaging.Profile
		profiles, err = o.stageProfiles(ctx, jobID, payload, StageSource)
		if err == nil {
			out, err = o.Enrich(ctx, job, profiles)
		}
	case StageVerify:
		var profiles []messaging.Profile
		profiles, err = o.stageProfiles(ctx, jobID, payload, StageEnrich)
		if err == nil {
			out, err = o.Verify(ctx, job, profiles)
		}
	case StageAdd:
		var items []VerifiedItem
		items, err = o.stageVerifiedItems(ctx, jobID, payload)
		if err == nil {
			out, err = o.Add(ctx, job, items)
		}
	case StageOutreach:
		var ids []uuid.UUID
		ids, err = o.stageCandidateIDs(ctx, jobID, payload)
		if err == nil {
			out, err = o.Outreach(ctx, job, ids)
		}
	default:
		return nil, fmt.Errorf("unknown stage %q", step)
	}

	if err != nil {
		o.logOp(ctx, "agent."+step, "error", "job", &jobID, map[string]any{"error": err.Error()})
		if _, perr := o.deps.Progress.Upsert(ctx, nil, jobID, step, "error", mustJSON(map[string]any{"error": err.Error()})); perr != nil {
			o.log.Warn("step progress write failed", "error", perr, "step", step)
		}
		return nil, err
	}

	raw, merr := json.Marshal(out)
	if merr != nil {
		return nil, fmt.Errorf("encode %s summary: %w", step, merr)
	}
	if _, perr := o.deps.Progress.Upsert(ctx, nil, jobID, step, "ok", datatypes.JSON(raw)); perr != nil {
		return nil, fmt.Errorf("checkpoint %s: %w", step, perr)
	}
	o.logOp(ctx, "agent."+step, "ok", "job", &jobID, map[string]any{"job_id": jobID.String()})
	return out, nil
}

// stageProfiles resolves the profile batch for enrich/verify: the
// caller's payload wins, else the checkpoint of the preceding stage.
func (o *Orchestrator) stageProfiles(ctx context.Context, jobID uuid.UUID, payload map[string]any, fromStep string) ([]messaging.Profile, error) {
	if raw, ok := payload["profiles"]; ok {
		var out []messaging.Profile
		if err := reencode(raw, &out); err != nil {
			return nil, fmt.Errorf("decode profiles payload: %w", err)
		}
		return out, nil
	}
	prog, err := o.deps.Progress.Get(ctx, nil, jobID, fromStep)
	if err != nil {
		return nil, fmt.Errorf("no profiles supplied and no %s checkpoint: %w", fromStep, err)
	}
	var summary struct {
		Profiles []messaging.Profile `json:"profiles"`
	}
	if err := json.Unmarshal(prog.Output, &summary); err != nil {
		return nil, fmt.Errorf("decode %s checkpoint: %w", fromStep, err)
	}
	return summary.Profiles, nil
}

func (o *Orchestrator) stageVerifiedItems(ctx context.Context, jobID uuid.UUID, payload map[string]any) ([]VerifiedItem, error) {
	if raw, ok := payload["items"]; ok {
		var out []VerifiedItem
		if err := reencode(raw, &out); err != nil {
			return nil, fmt.Errorf("decode items payload: %w", err)
		}
		return out, nil
	}
	prog, err := o.deps.Progress.Get(ctx, nil, jobID, StageVerify)
	if err != nil {
		return nil, fmt.Errorf("no items supplied and no verify checkpoint: %w", err)
	}
	var summary VerifySummary
	if err := json.Unmarshal(prog.Output, &summary); err != nil {
		return nil, fmt.Errorf("decode verify checkpoint: %w", err)
	}
	return summary.Items, nil
}

func (o *Orchestrator) stageCandidateIDs(ctx context.Context, jobID uuid.UUID, payload map[string]any) ([]uuid.UUID, error) {
	if raw, ok := payload["candidate_ids"]; ok {
		var out []uuid.UUID
		if err := reencode(raw, &out); err != nil {
			return nil, fmt.Errorf("decode candidate_ids payload: %w", err)
		}
		return out, nil
	}
	prog, err := o.deps.Progress.Get(ctx, nil, jobID, StageAdd)
	if err != nil {
		return nil, fmt.Errorf("no candidate_ids supplied and no add checkpoint: %w", err)
	}
	var summary AddSummary
	if err := json.Unmarshal(prog.Output, &summary); err != nil {
		return nil, fmt.Errorf("decode add checkpoint: %w", err)
	}
	ids := make([]uuid.UUID, 0, len(summary.Added))
	for _, a := range summary.Added {
		ids = append(ids, a.CandidateID)
	}
	return ids, nil
}

func (o *Orchestrator) logOp(ctx context.Context, operation, status, entityType string, entityID *uuid.UUID, details map[string]any) {
	if traceID := ctxutil.TraceID(ctx); traceID != "" {
		details["trace_id"] = traceID
	}
	entry := &domain.OperationLog{
		Operation:  operation,
		Status:     status,
		EntityType: entityType,
		EntityID:   entityID,
		Details:    mustJSON(details),
		CreatedAt:  time.Now(),
	}
	if err := o.deps.OpLogs.Append(ctx, nil, entry); err != nil {
		o.log.Warn("operation log append failed", "error", err, "operation", operation)
	}
}

func intFromPayload(payload map[string]any, key string, def int) int {
	if payload == nil {
		return def
	}
	switch v := payload[key].(type) {
	case float64:
		if v > 0 {
			return int(v)
		}
	case int:
		if v > 0 {
			return v
		}
	}
	return def
}

// reencode round-trips an any-shaped payload fragment into a typed
// destination through JSON, preserving the on-wire shape.
func reencode(in any, out any) error {
	raw, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

func reencodeJSON(raw datatypes.JSON, out any) error {
	if len(raw) == 0 {
		return fmt.Errorf("empty json blob")
	}
	return json.Unmarshal(raw, out)
}

func mustJSON(v map[string]any) datatypes.JSON {
	b, err := json.Marshal(v)
	if err != nil {
		return datatypes.JSON([]byte("{}"))
	}
	return datatypes.JSON(b)
}
