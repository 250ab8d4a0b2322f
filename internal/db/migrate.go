package db

import (
	"gorm.io/gorm"

	domain "github.com/tener/recruit-core/internal/domain"
)

// AutoMigrateAll applies the schema shared by both reference
// backends. Both PostgresService and SQLiteService call this so the
// two stores carry identical semantics.
func AutoMigrateAll(gdb *gorm.DB) error {
	return gdb.AutoMigrate(
		&domain.Job{},
		&domain.Candidate{},
		&domain.Match{},
		&domain.Conversation{},
		&domain.Message{},
		&domain.PreResumeSession{},
		&domain.PreResumeEvent{},
		&domain.AgentAssessment{},
		&domain.SenderAccount{},
		&domain.OutboundAction{},
		&domain.AccountDayCounter{},
		&domain.AccountWeekCounter{},
		&domain.JobAccountAssignment{},
		&domain.OperationLog{},
		&domain.CandidateSignal{},
		&domain.JobStepProgress{},
		&domain.IdempotencyRecord{},
	)
}
