package signals

import (
	"embed"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/tener/recruit-core/internal/domain"
)

const rulesPathEnv = "SIGNAL_RULES_YAML"

//go:embed rules.yaml
var defaultRulesFS embed.FS

// RawSignal is a signal before classification: the per-source impact
// rules produce it, the rules engine stamps role/weight/clamps onto
// it, and only then is it persisted.
type RawSignal struct {
	JobID       uuid.UUID
	CandidateID uuid.UUID
	SourceType  domain.SignalSourceType
	SourceID    string
	SignalType  string
	Category    string
	Title       string
	Detail      string
	Impact      float64
	Confidence  float64
	Meta        map[string]any
	ObservedAt  time.Time
}

// RuleEffect is the "then" side of a rule. Nil/empty fields fall back
// to the ruleset defaults.
type RuleEffect struct {
	Role            string    `yaml:"role"`
	Detector        string    `yaml:"detector"`
	SignalKey       string    `yaml:"signal_key"`
	ScoreWeight     *float64  `yaml:"score_weight"`
	ImpactRange     []float64 `yaml:"impact_range"`
	ConfidenceRange []float64 `yaml:"confidence_range"`
}

// Rule matches on signal fields. "when" keys address top-level signal
// fields (source_type, signal_type, category, title) or meta.* paths;
// values are a scalar or a list, strings compared case-insensitively
// with trailing-* wildcard support. First matching rule wins.
type Rule struct {
	When map[string]any `yaml:"when"`
	Then RuleEffect     `yaml:"then"`
}

type RuleSet struct {
	Version  int        `yaml:"version"`
	Defaults RuleEffect `yaml:"defaults"`
	Rules    []Rule     `yaml:"rules"`
}

// LoadRuleSet reads SIGNAL_RULES_YAML when set and readable, else the
// embedded default ruleset.
func LoadRuleSet() (*RuleSet, error) {
	data, err := readRules()
	if err != nil {
		return nil, err
	}
	var rs RuleSet
	if err := yaml.Unmarshal(data, &rs); err != nil {
		return nil, fmt.Errorf("signals: parse ruleset: %w", err)
	}
	rs.applyDefaultDefaults()
	return &rs, nil
}

func readRules() ([]byte, error) {
	if path := strings.TrimSpace(os.Getenv(rulesPathEnv)); path != "" {
		if data, err := os.ReadFile(path); err == nil {
			return data, nil
		}
	}
	return defaultRulesFS.ReadFile("rules.yaml")
}

// Unmatched signals are never evaluative: the hard default is
// administrative with zero weight so an ungated source cannot
// silently influence score.
func (rs *RuleSet) applyDefaultDefaults() {
	if rs.Defaults.Role == "" {
		rs.Defaults.Role = string(domain.RoleAdministrative)
	}
	if rs.Defaults.ScoreWeight == nil {
		zero := 0.0
		rs.Defaults.ScoreWeight = &zero
	}
	if len(rs.Defaults.ImpactRange) != 2 {
		rs.Defaults.ImpactRange = []float64{-3, 3}
	}
	if len(rs.Defaults.ConfidenceRange) != 2 {
		rs.Defaults.ConfidenceRange = []float64{0, 1}
	}
	if rs.Defaults.Detector == "" {
		rs.Defaults.Detector = "default"
	}
}

// Classify resolves the first matching rule, merges it over the
// defaults, clamps impact/confidence, and returns the persistable
// signal row.
func (rs *RuleSet) Classify(raw *RawSignal) *domain.CandidateSignal {
	effect := rs.Defaults
	for i := range rs.Rules {
		if rs.Rules[i].matches(raw) {
			effect = mergeEffect(rs.Defaults, rs.Rules[i].Then)
			break
		}
	}

	impact := clamp(raw.Impact, effect.ImpactRange[0], effect.ImpactRange[1])
	confidence := clamp(raw.Confidence, effect.ConfidenceRange[0], effect.ConfidenceRange[1])
	weight := clamp(*effect.ScoreWeight, 0, 1)

	meta := map[string]any{}
	for k, v := range raw.Meta {
		meta[k] = v
	}
	meta["role"] = effect.Role
	meta["detector"] = effect.Detector
	meta["weight"] = weight
	meta["rules_version"] = rs.Version
	if effect.SignalKey != "" {
		meta["signal_key"] = effect.SignalKey
	}

	return &domain.CandidateSignal{
		JobID:       raw.JobID,
		CandidateID: raw.CandidateID,
		SourceType:  raw.SourceType,
		SourceID:    raw.SourceID,
		SignalType:  raw.SignalType,
		Role:        domain.SignalRole(effect.Role),
		Category:    raw.Category,
		Title:       raw.Title,
		Detail:      raw.Detail,
		ImpactScore: impact,
		Confidence:  confidence,
		ScoreWeight: weight,
		SignalMeta:  mustJSON(meta),
		ObservedAt:  raw.ObservedAt,
	}
}

func mergeEffect(base, over RuleEffect) RuleEffect {
	out := base
	if over.Role != "" {
		out.Role = over.Role
	}
	if over.Detector != "" {
		out.Detector = over.Detector
	}
	if over.SignalKey != "" {
		out.SignalKey = over.SignalKey
	}
	if over.ScoreWeight != nil {
		out.ScoreWeight = over.ScoreWeight
	}
	if len(over.ImpactRange) == 2 {
		out.ImpactRange = over.ImpactRange
	}
	if len(over.ConfidenceRange) == 2 {
		out.ConfidenceRange = over.ConfidenceRange
	}
	return out
}

func (r *Rule) matches(raw *RawSignal) bool {
	for path, want := range r.When {
		got, ok := lookupPath(raw, path)
		if !ok || !valueMatches(got, want) {
			return false
		}
	}
	return true
}

func lookupPath(raw *RawSignal, path string) (any, bool) {
	if rest, ok := strings.CutPrefix(path, "meta."); ok {
		v, found := raw.Meta[rest]
		return v, found
	}
	switch path {
	case "source_type":
		return string(raw.SourceType), true
	case "signal_type":
		return raw.SignalType, true
	case "category":
		return raw.Category, true
	case "title":
		return raw.Title, true
	default:
		return nil, false
	}
}

func valueMatches(got any, want any) bool {
	if list, ok := want.([]any); ok {
		for _, w := range list {
			if valueMatches(got, w) {
				return true
			}
		}
		return false
	}
	ws, wok := want.(string)
	gs, gok := got.(string)
	if wok && gok {
		ws = strings.ToLower(ws)
		gs = strings.ToLower(gs)
		if strings.HasSuffix(ws, "*") {
			return strings.HasPrefix(gs, strings.TrimSuffix(ws, "*"))
		}
		return gs == ws
	}
	return fmt.Sprintf("%v", got) == fmt.Sprintf("%v", want)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
