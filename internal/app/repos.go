package app

import (
	"gorm.io/gorm"

	"github.com/tener/recruit-core/internal/repos"
)

type Repos struct {
	Jobs          repos.JobRepo
	Candidates    repos.CandidateRepo
	Matches       repos.MatchRepo
	Conversations repos.ConversationRepo
	Messages      repos.MessageRepo
	Sessions      repos.PreResumeSessionRepo
	Events        repos.PreResumeEventRepo
	Assessments   repos.AgentAssessmentRepo
	Accounts      repos.SenderAccountRepo
	Assignments   repos.JobAccountAssignmentRepo
	Counters      repos.AccountCounterRepo
	Actions       repos.OutboundActionRepo
	Progress      repos.JobStepProgressRepo
	Idempotency   repos.IdempotencyRecordRepo
	OpLogs        repos.OperationLogRepo
	Signals       repos.CandidateSignalRepo
}

func wireRepos(db *gorm.DB) Repos {
	return Repos{
		Jobs:          repos.NewJobRepo(db),
		Candidates:    repos.NewCandidateRepo(db),
		Matches:       repos.NewMatchRepo(db),
		Conversations: repos.NewConversationRepo(db),
		Messages:      repos.NewMessageRepo(db),
		Sessions:      repos.NewPreResumeSessionRepo(db),
		Events:        repos.NewPreResumeEventRepo(db),
		Assessments:   repos.NewAgentAssessmentRepo(db),
		Accounts:      repos.NewSenderAccountRepo(db),
		Assignments:   repos.NewJobAccountAssignmentRepo(db),
		Counters:      repos.NewAccountCounterRepo(db),
		Actions:       repos.NewOutboundActionRepo(db),
		Progress:      repos.NewJobStepProgressRepo(db),
		Idempotency:   repos.NewIdempotencyRecordRepo(db),
		OpLogs:        repos.NewOperationLogRepo(db),
		Signals:       repos.NewCandidateSignalRepo(db),
	}
}
