package app

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/tener/recruit-core/internal/dispatch"
	"github.com/tener/recruit-core/internal/fsm"
	"github.com/tener/recruit-core/internal/fsm/templates"
	"github.com/tener/recruit-core/internal/matching"
	"github.com/tener/recruit-core/internal/orchestrator"
	"github.com/tener/recruit-core/internal/platform/logger"
	"github.com/tener/recruit-core/internal/profile"
	"github.com/tener/recruit-core/internal/providers/llm"
	"github.com/tener/recruit-core/internal/providers/messaging"
	"github.com/tener/recruit-core/internal/scoring"
	"github.com/tener/recruit-core/internal/signals"
)

type Services struct {
	Templates    *templates.Manager
	FSM          *fsm.Engine
	Matcher      *matching.Engine
	ScoringCfg   scoring.Config
	Orchestrator *orchestrator.Orchestrator
	Dispatcher   *dispatch.Dispatcher
	Ingestor     *signals.Ingestor
	Viewer       *signals.Viewer
	Profile      *profile.Builder
}

func wireServices(db *gorm.DB, log *logger.Logger, r Repos, provider messaging.Provider, responder llm.Responder) (Services, error) {
	log.Info("wiring services")

	fsmCfg := fsm.LoadConfig()
	tm, err := templates.NewManager(fsmCfg.DefaultLanguage)
	if err != nil {
		return Services{}, fmt.Errorf("init templates: %w", err)
	}
	fsmEngine := fsm.NewEngine(fsmCfg, tm)
	matcher := matching.NewEngine(matching.LoadConfig())
	scoringCfg := scoring.LoadConfig()

	orch := orchestrator.New(log, orchestrator.LoadConfig(), orchestrator.Deps{
		DB:            db,
		Provider:      provider,
		Responder:     responder,
		Matcher:       matcher,
		FSM:           fsmEngine,
		Templates:     tm,
		Jobs:          r.Jobs,
		Candidates:    r.Candidates,
		Matches:       r.Matches,
		Conversations: r.Conversations,
		Messages:      r.Messages,
		Sessions:      r.Sessions,
		Events:        r.Events,
		Assessments:   r.Assessments,
		Accounts:      r.Accounts,
		Actions:       r.Actions,
		Progress:      r.Progress,
		OpLogs:        r.OpLogs,
	})

	dispatcher := dispatch.NewDispatcher(log, db, dispatch.LoadPolicy(), provider,
		r.Actions, r.Jobs, r.Candidates, r.Conversations, r.Accounts, r.Assignments, r.Counters, r.OpLogs)

	rules, err := signals.LoadRuleSet()
	if err != nil {
		return Services{}, fmt.Errorf("load signal rules: %w", err)
	}
	ingestor := signals.NewIngestor(log, db, rules,
		r.Matches, r.Assessments, r.Sessions, r.Events, r.OpLogs, r.Signals)
	viewer := signals.NewViewer(r.Matches, r.Candidates, r.Signals)

	builder := profile.NewBuilder(log, profile.LoadConfig(), scoringCfg, responder, profile.NewCacheFromEnv(log),
		r.Candidates, r.Jobs, r.Matches, r.Assessments, r.Sessions, r.Events, r.Conversations, r.Signals, r.OpLogs)

	return Services{
		Templates:    tm,
		FSM:          fsmEngine,
		Matcher:      matcher,
		ScoringCfg:   scoringCfg,
		Orchestrator: orch,
		Dispatcher:   dispatcher,
		Ingestor:     ingestor,
		Viewer:       viewer,
		Profile:      builder,
	}, nil
}
