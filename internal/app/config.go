package app

import (
	"time"

	"github.com/tener/recruit-core/internal/platform/envutil"
)

type Config struct {
	Port         string
	JWTSecretKey string
	AuthRequired bool

	// DBBackend is the primary store: "sqlite" or "postgres".
	DBBackend string
	// MirrorBackend enables dual-write when set to the other backend.
	MirrorBackend   string
	DualWriteStrict bool

	DispatchInterval time.Duration
	FollowupInterval time.Duration
	PollInterval     time.Duration

	MessagingSentinelID string
}

func LoadConfig() Config {
	return Config{
		Port:                envutil.String("PORT", "8080"),
		JWTSecretKey:        envutil.String("JWT_SECRET_KEY", ""),
		AuthRequired:        envutil.Bool("AUTH_REQUIRED", false),
		DBBackend:           envutil.String("DB_BACKEND", "sqlite"),
		MirrorBackend:       envutil.String("DUAL_WRITE_MIRROR", ""),
		DualWriteStrict:     envutil.Bool("DUAL_WRITE_STRICT", false),
		DispatchInterval:    envutil.Duration("DISPATCH_INTERVAL", 30*time.Second),
		FollowupInterval:    envutil.Duration("FOLLOWUP_INTERVAL", time.Minute),
		PollInterval:        envutil.Duration("POLL_INTERVAL", time.Minute),
		MessagingSentinelID: envutil.String("MESSAGING_SEARCH_SENTINEL_ID", ""),
	}
}
