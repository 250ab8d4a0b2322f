package matching

import "github.com/tener/recruit-core/internal/platform/envutil"

// Config holds the tunable weights and thresholds of the matching
// engine. Every value has an env-driven default so operators can
// retune scoring without a redeploy.
type Config struct {
	SkillsWeight      float64
	SeniorityWeight   float64
	LocationWeight    float64
	LanguageWeight    float64
	VerifiedThreshold float64
	RulesVersion      string
}

func LoadConfig() Config {
	return Config{
		SkillsWeight:      envutil.Float("MATCH_WEIGHT_SKILLS", 0.45),
		SeniorityWeight:   envutil.Float("MATCH_WEIGHT_SENIORITY", 0.25),
		LocationWeight:    envutil.Float("MATCH_WEIGHT_LOCATION", 0.15),
		LanguageWeight:    envutil.Float("MATCH_WEIGHT_LANGUAGE", 0.15),
		VerifiedThreshold: envutil.Float("MATCH_VERIFIED_THRESHOLD", 0.65),
		RulesVersion:      envutil.String("MATCH_RULES_VERSION", "v1"),
	}
}
