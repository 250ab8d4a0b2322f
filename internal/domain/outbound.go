package domain

import (
	"time"

	"github.com/google/uuid"
)

type OutboundKind string

const (
	OutboundMessage        OutboundKind = "message"
	OutboundConnectRequest OutboundKind = "connect_request"
)

type OutboundStatus string

const (
	OutboundPending           OutboundStatus = "pending"
	OutboundPendingConnection OutboundStatus = "pending_connection"
	OutboundCompleted         OutboundStatus = "completed"
	OutboundDeferred          OutboundStatus = "deferred"
	OutboundFailed            OutboundStatus = "failed"
)

// OutboundAction is a queued intent to send a message or connection
// request, drained by the dispatcher under per-account budgets.
type OutboundAction struct {
	ID              uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	JobID           uuid.UUID      `gorm:"type:uuid;column:job_id;not null;index" json:"job_id"`
	CandidateID     uuid.UUID      `gorm:"type:uuid;column:candidate_id;not null;index" json:"candidate_id"`
	ConversationID  uuid.UUID      `gorm:"type:uuid;column:conversation_id;not null;index" json:"conversation_id"`
	Kind            OutboundKind   `gorm:"column:kind;not null" json:"kind"`
	PayloadText     string         `gorm:"column:payload_text;not null" json:"payload_text"`
	PayloadLanguage string         `gorm:"column:payload_language" json:"payload_language,omitempty"`
	Status          OutboundStatus `gorm:"column:status;not null;default:pending;index" json:"status"`
	LastError       string         `gorm:"column:last_error" json:"last_error,omitempty"`
	AssignedAccount *uuid.UUID     `gorm:"type:uuid;column:assigned_account_id" json:"assigned_account_id,omitempty"`
	Attempts        int            `gorm:"column:attempts;not null;default:0" json:"attempts"`
	CreatedAt       time.Time      `gorm:"not null;index" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"not null" json:"updated_at"`
}

func (OutboundAction) TableName() string { return "outbound_actions" }

type SenderAccountStatus string

const (
	AccountConnected    SenderAccountStatus = "connected"
	AccountPending      SenderAccountStatus = "pending"
	AccountError        SenderAccountStatus = "error"
	AccountDisconnected SenderAccountStatus = "disconnected"
)

// SenderAccount is a credential-bearing identity on the messaging
// provider. Outbound traffic is partitioned across these.
type SenderAccount struct {
	ID                uuid.UUID           `gorm:"type:uuid;primaryKey" json:"id"`
	ProviderAccountID string              `gorm:"column:provider_account_id;uniqueIndex;not null" json:"provider_account_id"`
	Status            SenderAccountStatus `gorm:"column:status;not null;index" json:"status"`
	ConnectedAt       *time.Time          `gorm:"column:connected_at" json:"connected_at,omitempty"`
	LastSyncedAt      *time.Time          `gorm:"column:last_synced_at" json:"last_synced_at,omitempty"`
	ProviderUserID    string              `gorm:"column:provider_user_id" json:"provider_user_id,omitempty"`
	Label             string              `gorm:"column:label" json:"label,omitempty"`
	CreatedAt         time.Time           `gorm:"not null" json:"created_at"`
	UpdatedAt         time.Time           `gorm:"not null" json:"updated_at"`
}

func (SenderAccount) TableName() string { return "sender_accounts" }

// AccountDayCounter tracks new_threads_sent per (account, UTC day).
type AccountDayCounter struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	AccountID      uuid.UUID `gorm:"type:uuid;column:account_id;not null;uniqueIndex:idx_day_counter" json:"account_id"`
	Day            string    `gorm:"column:day;not null;uniqueIndex:idx_day_counter" json:"day"` // YYYY-MM-DD UTC
	NewThreadsSent int       `gorm:"column:new_threads_sent;not null;default:0" json:"new_threads_sent"`
	UpdatedAt      time.Time `gorm:"not null" json:"updated_at"`
}

func (AccountDayCounter) TableName() string { return "account_day_counters" }

// AccountWeekCounter tracks connect_sent per (account, ISO week start).
type AccountWeekCounter struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	AccountID   uuid.UUID `gorm:"type:uuid;column:account_id;not null;uniqueIndex:idx_week_counter" json:"account_id"`
	WeekStart   string    `gorm:"column:week_start;not null;uniqueIndex:idx_week_counter" json:"week_start"` // YYYY-MM-DD, Monday
	ConnectSent int       `gorm:"column:connect_sent;not null;default:0" json:"connect_sent"`
	UpdatedAt   time.Time `gorm:"not null" json:"updated_at"`
}

func (AccountWeekCounter) TableName() string { return "account_week_counters" }

// JobAccountAssignment scopes manual-mode routing to specific accounts.
type JobAccountAssignment struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	JobID     uuid.UUID `gorm:"type:uuid;column:job_id;not null;uniqueIndex:idx_job_account" json:"job_id"`
	AccountID uuid.UUID `gorm:"type:uuid;column:account_id;not null;uniqueIndex:idx_job_account" json:"account_id"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (JobAccountAssignment) TableName() string { return "job_account_assignments" }
