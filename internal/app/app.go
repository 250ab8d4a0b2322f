package app

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/tener/recruit-core/internal/auth"
	"github.com/tener/recruit-core/internal/backfill"
	"github.com/tener/recruit-core/internal/db"
	"github.com/tener/recruit-core/internal/dualwrite"
	"github.com/tener/recruit-core/internal/observability"
	"github.com/tener/recruit-core/internal/platform/logger"
	"github.com/tener/recruit-core/internal/profile"
	"github.com/tener/recruit-core/internal/providers/llm"
	"github.com/tener/recruit-core/internal/providers/messaging"
	"github.com/tener/recruit-core/internal/signals"
)

// App is the composition root: everything is built once at process
// start and passed through explicit dependency injection — no mutable
// globals after init.
type App struct {
	Log      *logger.Logger
	Cfg      Config
	Router   *gin.Engine
	Repos    Repos
	Services Services

	stores map[string]*gorm.DB

	mu         sync.RWMutex
	readSource string
	readViewer *signals.Viewer
	readProf   *profile.Builder

	proxy        *dualwrite.Proxy
	cancel       context.CancelFunc
	otelShutdown func(context.Context) error
}

// Option overrides a pluggable boundary; used by adapters and tests.
type Option func(*options)

type options struct {
	provider  messaging.Provider
	responder llm.Responder
}

func WithMessagingProvider(p messaging.Provider) Option {
	return func(o *options) { o.provider = p }
}

func WithResponder(r llm.Responder) Option {
	return func(o *options) { o.responder = r }
}

func New(opts ...Option) (*App, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("loading configuration")
	cfg := LoadConfig()

	otelShutdown := observability.Init(context.Background(), log, observability.Config{
		ServiceName: "recruit-core",
		Environment: logMode,
	})

	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.provider == nil {
		o.provider = messaging.NewDisconnected()
	}
	o.provider = messaging.NewPlaceholderFilter(o.provider, cfg.MessagingSentinelID)

	stores, primaryName, err := openStores(log, cfg)
	if err != nil {
		log.Sync()
		return nil, err
	}
	primary := stores[primaryName]

	// Dual-write: mirror every tracked primary write into the other
	// backend when configured.
	var proxy *dualwrite.Proxy
	if cfg.MirrorBackend != "" && cfg.MirrorBackend != primaryName {
		mirror, ok := stores[cfg.MirrorBackend]
		if !ok {
			log.Sync()
			return nil, fmt.Errorf("mirror backend %q not available", cfg.MirrorBackend)
		}
		proxy = dualwrite.NewProxy(log, primary, mirror, cfg.DualWriteStrict)
		if err := proxy.Install(); err != nil {
			log.Sync()
			return nil, fmt.Errorf("install dual-write proxy: %w", err)
		}
	}

	reposet := wireRepos(primary)
	serviceset, err := wireServices(primary, log, reposet, o.provider, o.responder)
	if err != nil {
		log.Sync()
		return nil, err
	}

	a := &App{
		Log:          log,
		Cfg:          cfg,
		Repos:        reposet,
		Services:     serviceset,
		stores:       stores,
		readSource:   primaryName,
		readViewer:   serviceset.Viewer,
		readProf:     serviceset.Profile,
		proxy:        proxy,
		otelShutdown: otelShutdown,
	}

	var decider auth.Decider
	if cfg.AuthRequired && cfg.JWTSecretKey != "" {
		decider = auth.NewJWTDecider(cfg.JWTSecretKey)
	}
	handlerset := wireHandlers(log, a, reposet, serviceset, decider)
	a.Router = wireRouter(handlerset)
	return a, nil
}

// openStores opens the configured backends. Postgres opens when it is
// the primary or the mirror; the embedded SQLite store opens when it is
// the primary or the mirror, or when Postgres is neither.
func openStores(log *logger.Logger, cfg Config) (map[string]*gorm.DB, string, error) {
	stores := map[string]*gorm.DB{}

	needPostgres := cfg.DBBackend == "postgres" || cfg.MirrorBackend == "postgres"
	needSQLite := cfg.DBBackend == "sqlite" || cfg.MirrorBackend == "sqlite" || !needPostgres

	if needSQLite {
		s, err := db.NewSQLiteService(log)
		if err != nil {
			return nil, "", fmt.Errorf("init sqlite: %w", err)
		}
		if err := s.AutoMigrateAll(); err != nil {
			return nil, "", fmt.Errorf("sqlite automigrate: %w", err)
		}
		stores["sqlite"] = s.DB()
	}
	if needPostgres {
		s, err := db.NewPostgresService(log)
		if err != nil {
			return nil, "", fmt.Errorf("init postgres: %w", err)
		}
		if err := s.AutoMigrateAll(); err != nil {
			return nil, "", fmt.Errorf("postgres automigrate: %w", err)
		}
		stores["postgres"] = s.DB()
	}

	primary := cfg.DBBackend
	if _, ok := stores[primary]; !ok {
		return nil, "", fmt.Errorf("unknown DB_BACKEND %q", primary)
	}
	return stores, primary, nil
}

// ReadSource reports which backend currently serves the read views.
func (a *App) ReadSource() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.readSource
}

// SwitchReadSource repoints the read views (signals view, candidate
// profile) at another backend. Writes always go to the primary.
func (a *App) SwitchReadSource(name string) error {
	target, ok := a.stores[name]
	if !ok {
		return fmt.Errorf("backend %q is not configured", name)
	}

	r := wireRepos(target)

	a.mu.Lock()
	defer a.mu.Unlock()
	a.readSource = name
	a.readViewer = signals.NewViewer(r.Matches, r.Candidates, r.Signals)
	a.readProf = profile.NewBuilder(a.Log, profile.LoadConfig(), a.Services.ScoringCfg, nil, profile.NewCacheFromEnv(a.Log),
		r.Candidates, r.Jobs, r.Matches, r.Assessments, r.Sessions, r.Events, r.Conversations, r.Signals, r.OpLogs)
	a.Log.Info("read source switched", "backend", name)
	return nil
}

func (a *App) viewer() *signals.Viewer {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.readViewer
}

func (a *App) profileBuilder() *profile.Builder {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.readProf
}

func (a *App) DualWriteProxy() *dualwrite.Proxy { return a.proxy }

// BackfillRun copies the embedded store into a Postgres destination.
// With an empty DSN the configured postgres store is the destination.
func (a *App) BackfillRun(ctx context.Context, dsn string, opts backfill.Options) (map[string]backfill.TableStats, error) {
	source, ok := a.stores["sqlite"]
	if !ok {
		return nil, fmt.Errorf("sqlite store not configured")
	}
	dest, err := a.backfillDest(dsn)
	if err != nil {
		return nil, err
	}
	return backfill.NewRunner(a.Log, source, dest).Run(ctx, opts)
}

func (a *App) ParityReport(ctx context.Context, deep bool, sampleLimit int) (*backfill.ParityReport, error) {
	source, ok := a.stores["sqlite"]
	if !ok {
		return nil, fmt.Errorf("sqlite store not configured")
	}
	dest, ok := a.stores["postgres"]
	if !ok {
		return nil, fmt.Errorf("postgres store not configured")
	}
	return backfill.NewRunner(a.Log, source, dest).Parity(ctx, deep, sampleLimit)
}

func (a *App) backfillDest(dsn string) (*gorm.DB, error) {
	if dsn == "" {
		dest, ok := a.stores["postgres"]
		if !ok {
			return nil, fmt.Errorf("no DSN given and postgres store not configured")
		}
		return dest, nil
	}
	dest, err := db.OpenPostgresDSN(a.Log, dsn)
	if err != nil {
		return nil, fmt.Errorf("open backfill destination: %w", err)
	}
	return dest, nil
}

// Start launches the background loops: the outbound dispatcher, the
// follow-up ticker, and the inbound poller.
func (a *App) Start(runWorker bool) {
	if a == nil || a.cancel != nil || !runWorker {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	go a.loop(ctx, a.Cfg.DispatchInterval, "dispatcher", func(ctx context.Context) error {
		_, err := a.Services.Dispatcher.Dispatch(ctx, 0, nil)
		return err
	})
	go a.loop(ctx, a.Cfg.FollowupInterval, "followup", func(ctx context.Context) error {
		_, err := a.Services.Orchestrator.FollowupTick(ctx, time.Now())
		return err
	})
	go a.loop(ctx, a.Cfg.PollInterval, "poll", func(ctx context.Context) error {
		_, err := a.Services.Orchestrator.PollInbound(ctx)
		return err
	})
}

func (a *App) loop(ctx context.Context, interval time.Duration, name string, fn func(context.Context) error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			tickCtx, cancel := context.WithTimeout(ctx, interval)
			if err := fn(tickCtx); err != nil {
				a.Log.Warn("background loop error", "loop", name, "error", err)
			}
			cancel()
		}
	}
}

func (a *App) Run(addr string) error {
	if a == nil || a.Router == nil {
		return fmt.Errorf("app not initialized")
	}
	return a.Router.Run(addr)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	if a.otelShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := a.otelShutdown(ctx); err != nil {
			a.Log.Warn("otel shutdown failed", "error", err)
		}
		cancel()
		a.otelShutdown = nil
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
