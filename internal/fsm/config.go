package fsm

import (
	"strconv"
	"strings"

	"github.com/tener/recruit-core/internal/platform/envutil"
)

// Config holds the follow-up cadence and language defaults.
type Config struct {
	// FollowupDelaysHours is consulted by index min(followups_sent, len-1).
	FollowupDelaysHours []int
	FollowupCap         int
	DefaultLanguage     string
}

func LoadConfig() Config {
	return Config{
		FollowupDelaysHours: parseIntList(envutil.String("PRE_RESUME_FOLLOWUP_DELAYS_HOURS", "48,72,72")),
		FollowupCap:         envutil.Int("PRE_RESUME_FOLLOWUP_CAP", 3),
		DefaultLanguage:     envutil.String("PRE_RESUME_DEFAULT_LANGUAGE", "en"),
	}
}

func parseIntList(raw string) []int {
	parts := strings.Split(raw, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		n, err := strconv.Atoi(p)
		if err != nil {
			continue
		}
		out = append(out, n)
	}
	if len(out) == 0 {
		return []int{48, 72, 72}
	}
	return out
}

// DelayForAttempt returns the hours to wait before the given
// followups_sent count, clamped to the last configured delay.
func (c Config) DelayForAttempt(followupsSent int) int {
	idx := followupsSent
	if idx >= len(c.FollowupDelaysHours) {
		idx = len(c.FollowupDelaysHours) - 1
	}
	if idx < 0 {
		idx = 0
	}
	return c.FollowupDelaysHours[idx]
}
