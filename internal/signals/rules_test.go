package signals

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/tener/recruit-core/internal/domain"
)

func loadRules(t *testing.T) *RuleSet {
	t.Helper()
	rs, err := LoadRuleSet()
	require.NoError(t, err)
	return rs
}

func rawSignal(source domain.SignalSourceType, signalType, category string) *RawSignal {
	return &RawSignal{
		JobID:       uuid.New(),
		CandidateID: uuid.New(),
		SourceType:  source,
		SourceID:    "src-1",
		SignalType:  signalType,
		Category:    category,
		Impact:      1.0,
		Confidence:  0.7,
		Meta:        map[string]any{},
		ObservedAt:  time.Now(),
	}
}

func TestClassify_AssessmentIsEvaluative(t *testing.T) {
	rs := loadRules(t)
	sig := rs.Classify(rawSignal(domain.SourceAssessment, "assessment_score", "sourcing_vetting"))
	require.Equal(t, domain.RoleEvaluative, sig.Role)
	require.Equal(t, 1.0, sig.ScoreWeight)
}

func TestClassify_TerminalPreResumeEventIsEvaluative(t *testing.T) {
	rs := loadRules(t)
	sig := rs.Classify(rawSignal(domain.SourcePreResumeEvent, "resume_shared", "conversation"))
	require.Equal(t, domain.RoleEvaluative, sig.Role)
	require.Equal(t, 0.9, sig.ScoreWeight)
}

func TestClassify_RoutinePreResumeEventIsAdministrative(t *testing.T) {
	rs := loadRules(t)
	sig := rs.Classify(rawSignal(domain.SourcePreResumeEvent, "followup_sent", "conversation"))
	require.Equal(t, domain.RoleAdministrative, sig.Role)
	require.Equal(t, 0.0, sig.ScoreWeight)
	require.Equal(t, 0.0, sig.EffectiveImpact())
}

func TestClassify_OperationLogWildcard(t *testing.T) {
	rs := loadRules(t)

	// interview.* operations are the only evaluative log signals.
	sig := rs.Classify(rawSignal(domain.SourceOperationLog, "operation", "interview.schedule"))
	require.Equal(t, domain.RoleEvaluative, sig.Role)
	require.Equal(t, 0.5, sig.ScoreWeight)

	sig = rs.Classify(rawSignal(domain.SourceOperationLog, "operation", "agent.outreach"))
	require.Equal(t, domain.RoleAdministrative, sig.Role)
	require.Equal(t, 0.0, sig.ScoreWeight)
}

func TestClassify_ImpactAndConfidenceClamped(t *testing.T) {
	rs := loadRules(t)
	raw := rawSignal(domain.SourceAssessment, "assessment_score", "sourcing_vetting")
	raw.Impact = 9.5
	raw.Confidence = 0.1
	sig := rs.Classify(raw)
	require.Equal(t, 2.0, sig.ImpactScore)
	require.Equal(t, 0.3, sig.Confidence)
}

func TestClassify_UnmatchedDefaultsToAdministrative(t *testing.T) {
	rs := &RuleSet{Version: 1}
	rs.applyDefaultDefaults()
	raw := rawSignal(domain.SourceAssessment, "anything", "anything")
	sig := rs.Classify(raw)
	require.Equal(t, domain.RoleAdministrative, sig.Role)
	require.Equal(t, 0.0, sig.ScoreWeight)
}

func TestClassify_WhenListAndMetaPath(t *testing.T) {
	weight := 0.7
	rs := &RuleSet{
		Version: 2,
		Rules: []Rule{
			{
				When: map[string]any{
					"signal_type":    []any{"alpha", "beta"},
					"meta.agent_key": "sourcing_*",
				},
				Then: RuleEffect{Role: string(domain.RoleGovernance), ScoreWeight: &weight},
			},
		},
	}
	rs.applyDefaultDefaults()

	raw := rawSignal(domain.SourceAssessment, "beta", "x")
	raw.Meta["agent_key"] = "sourcing_vetting"
	sig := rs.Classify(raw)
	require.Equal(t, domain.RoleGovernance, sig.Role)
	require.Equal(t, 0.7, sig.ScoreWeight)
	require.Equal(t, 0.0, sig.EffectiveImpact(), "governance signals carry no score contribution")

	raw.Meta["agent_key"] = "culture_analyst"
	sig = rs.Classify(raw)
	require.Equal(t, domain.RoleAdministrative, sig.Role)
}
