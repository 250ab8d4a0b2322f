package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/tener/recruit-core/internal/http/handlers"
	"github.com/tener/recruit-core/internal/http/middleware"
)

type RouterConfig struct {
	AuthMiddleware        *middleware.AuthMiddleware
	IdempotencyMiddleware *middleware.IdempotencyMiddleware

	JobHandler          *handlers.JobHandler
	WorkflowHandler     *handlers.WorkflowHandler
	ConversationHandler *handlers.ConversationHandler
	PreResumeHandler    *handlers.PreResumeHandler
	DispatchHandler     *handlers.DispatchHandler
	SignalHandler       *handlers.SignalHandler
	CandidateHandler    *handlers.CandidateHandler
	AccountHandler      *handlers.AccountHandler
	AdminHandler        *handlers.AdminHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	// otelgin no-ops against the noop tracer when OTEL_ENABLED is off.
	router.Use(otelgin.Middleware("recruit-core"))
	router.Use(middleware.AttachRequestContext())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000", "http://localhost:5173"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "Idempotency-Key", "X-Trace-Id"},
		AllowCredentials: true,
	}))

	router.GET("/healthcheck", handlers.HealthCheck)

	api := router.Group("/api")

	read := api.Group("/")
	read.Use(cfg.AuthMiddleware.RequireScopes("recruit:read"))
	read.GET("/jobs", cfg.JobHandler.ListJobs)
	read.GET("/jobs/:id", cfg.JobHandler.GetJob)
	read.GET("/jobs/:id/candidates", cfg.JobHandler.ListCandidates)
	read.GET("/jobs/:id/signals/view", cfg.SignalHandler.View)
	read.GET("/candidates/:id/profile", cfg.CandidateHandler.Profile)
	read.GET("/conversations/:id/messages", cfg.ConversationHandler.ListMessages)
	read.GET("/pre-resume/sessions/:id", cfg.PreResumeHandler.Get)
	read.GET("/accounts", cfg.AccountHandler.List)

	write := api.Group("/")
	write.Use(cfg.AuthMiddleware.RequireScopes("recruit:write"))
	write.POST("/jobs", cfg.JobHandler.CreateJob)
	write.POST("/workflow/:step", cfg.IdempotencyMiddleware.Handle(), cfg.WorkflowHandler.RunStage)
	write.POST("/scheduler/followup-tick", cfg.WorkflowHandler.FollowupTick)
	write.POST("/scheduler/poll-inbound", cfg.WorkflowHandler.PollInbound)
	write.POST("/conversations/:id/inbound", cfg.ConversationHandler.Inbound)
	write.POST("/pre-resume/start", cfg.PreResumeHandler.Start)
	write.POST("/pre-resume/sessions/:id/inbound", cfg.PreResumeHandler.Inbound)
	write.POST("/pre-resume/sessions/:id/followup", cfg.PreResumeHandler.Followup)
	write.POST("/pre-resume/sessions/:id/unreachable", cfg.PreResumeHandler.Unreachable)
	write.POST("/dispatch", cfg.DispatchHandler.Dispatch)
	write.POST("/jobs/:id/signals/ingest", cfg.SignalHandler.Ingest)
	write.POST("/accounts", cfg.AccountHandler.Upsert)
	write.POST("/jobs/:id/accounts", cfg.AccountHandler.AssignToJob)

	admin := api.Group("/admin")
	admin.Use(cfg.AuthMiddleware.RequireAdmin())
	admin.POST("/read-source", cfg.AdminHandler.SwitchReadSource)
	admin.POST("/dual-write-strict", cfg.AdminHandler.DualWriteStrict)
	admin.GET("/parity", cfg.AdminHandler.Parity)
	admin.POST("/backfill", cfg.AdminHandler.Backfill)

	return router
}
