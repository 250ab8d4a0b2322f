package app

import (
	"github.com/gin-gonic/gin"

	"github.com/tener/recruit-core/internal/auth"
	"github.com/tener/recruit-core/internal/http/handlers"
	"github.com/tener/recruit-core/internal/http/middleware"
	"github.com/tener/recruit-core/internal/platform/logger"
	"github.com/tener/recruit-core/internal/server"
)

type Handlers struct {
	Auth        *middleware.AuthMiddleware
	Idempotency *middleware.IdempotencyMiddleware

	Job          *handlers.JobHandler
	Workflow     *handlers.WorkflowHandler
	Conversation *handlers.ConversationHandler
	PreResume    *handlers.PreResumeHandler
	Dispatch     *handlers.DispatchHandler
	Signal       *handlers.SignalHandler
	Candidate    *handlers.CandidateHandler
	Account      *handlers.AccountHandler
	Admin        *handlers.AdminHandler
}

func wireHandlers(log *logger.Logger, a *App, r Repos, s Services, decider auth.Decider) Handlers {
	return Handlers{
		Auth:         middleware.NewAuthMiddleware(log, decider),
		Idempotency:  middleware.NewIdempotencyMiddleware(log, r.Idempotency),
		Job:          handlers.NewJobHandler(log, s.ScoringCfg, r.Jobs, r.Candidates, r.Matches, r.Assessments),
		Workflow:     handlers.NewWorkflowHandler(log, s.Orchestrator),
		Conversation: handlers.NewConversationHandler(log, s.Orchestrator, r.Messages),
		PreResume:    handlers.NewPreResumeHandler(log, s.Orchestrator, r.Sessions, r.Events),
		Dispatch:     handlers.NewDispatchHandler(log, s.Dispatcher),
		Signal:       handlers.NewSignalHandler(log, s.Ingestor, a.viewer),
		Candidate:    handlers.NewCandidateHandler(log, a.profileBuilder),
		Account:      handlers.NewAccountHandler(log, r.Accounts, r.Assignments),
		Admin:        handlers.NewAdminHandler(log, a),
	}
}

func wireRouter(h Handlers) *gin.Engine {
	return server.NewRouter(server.RouterConfig{
		AuthMiddleware:        h.Auth,
		IdempotencyMiddleware: h.Idempotency,
		JobHandler:            h.Job,
		WorkflowHandler:       h.Workflow,
		ConversationHandler:   h.Conversation,
		PreResumeHandler:      h.PreResume,
		DispatchHandler:       h.Dispatch,
		SignalHandler:         h.Signal,
		CandidateHandler:      h.Candidate,
		AccountHandler:        h.Account,
		AdminHandler:          h.Admin,
	})
}
