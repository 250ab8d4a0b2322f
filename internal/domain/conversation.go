package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type ConversationStatus string

const (
	ConversationActive      ConversationStatus = "active"
	ConversationWaitingConn ConversationStatus = "waiting_connection"
	ConversationClosed      ConversationStatus = "closed"
)

// Conversation is the outbound thread for a (job, candidate) pair.
// ExternalChatID is unique across all conversations; on a
// collision with the same candidate, ownership transfers to the
// newer conversation and the older row's ExternalChatID is cleared.
type Conversation struct {
	ID                      uuid.UUID          `gorm:"type:uuid;primaryKey" json:"id"`
	JobID                   uuid.UUID          `gorm:"type:uuid;column:job_id;not null;index" json:"job_id"`
	CandidateID             uuid.UUID          `gorm:"type:uuid;column:candidate_id;not null;index" json:"candidate_id"`
	Channel                 string             `gorm:"column:channel;not null" json:"channel"`
	Status                  ConversationStatus `gorm:"column:status;not null;default:active" json:"status"`
	ExternalChatID          *string            `gorm:"column:external_chat_id;uniqueIndex" json:"external_chat_id,omitempty"`
	AssignedSenderAccountID *uuid.UUID         `gorm:"type:uuid;column:assigned_sender_account_id" json:"assigned_sender_account_id,omitempty"`
	LastMessageAt           *time.Time         `gorm:"column:last_message_at" json:"last_message_at,omitempty"`
	CreatedAt               time.Time          `gorm:"not null" json:"created_at"`
	UpdatedAt               time.Time          `gorm:"not null" json:"updated_at"`
}

func (Conversation) TableName() string { return "conversations" }

type MessageDirection string

const (
	DirectionInbound  MessageDirection = "inbound"
	DirectionOutbound MessageDirection = "outbound"
)

// Message is append-only; within a conversation, ids are assigned in
// arrival order.
type Message struct {
	ID             int64            `gorm:"primaryKey;autoIncrement" json:"id"`
	ConversationID uuid.UUID        `gorm:"type:uuid;column:conversation_id;not null;index" json:"conversation_id"`
	Direction      MessageDirection `gorm:"column:direction;not null" json:"direction"`
	Language       string           `gorm:"column:language" json:"language,omitempty"`
	Content        string           `gorm:"column:content;not null" json:"content"`
	Metadata       datatypes.JSON   `gorm:"column:metadata;type:jsonb" json:"metadata,omitempty"`
	CreatedAt      time.Time        `gorm:"not null;index" json:"created_at"`
}

func (Message) TableName() string { return "messages" }
