package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type PreResumeStatus string

const (
	PreResumeAwaitingReply   PreResumeStatus = "awaiting_reply"
	PreResumeEngagedNoResume PreResumeStatus = "engaged_no_resume"
	PreResumeResumePromised  PreResumeStatus = "resume_promised"
	PreResumeResumeReceived  PreResumeStatus = "resume_received"
	PreResumeNotInterested   PreResumeStatus = "not_interested"
	PreResumeUnreachable     PreResumeStatus = "unreachable"
	PreResumeStalled         PreResumeStatus = "stalled"
)

// Terminal reports whether status is one of the FSM's terminal states.
// Terminal sessions never mutate again except for audit.
func (s PreResumeStatus) Terminal() bool {
	switch s {
	case PreResumeResumeReceived, PreResumeNotInterested, PreResumeUnreachable, PreResumeStalled:
		return true
	default:
		return false
	}
}

// PreResumeSession is the per-candidate FSM row. ConversationID is
// unique: at most one pre-resume session per conversation.
type PreResumeSession struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	ConversationID uuid.UUID       `gorm:"type:uuid;column:conversation_id;uniqueIndex;not null" json:"conversation_id"`
	JobID          uuid.UUID       `gorm:"type:uuid;column:job_id;not null;index" json:"job_id"`
	CandidateID    uuid.UUID       `gorm:"type:uuid;column:candidate_id;not null;index" json:"candidate_id"`
	Status         PreResumeStatus `gorm:"column:status;not null;index" json:"status"`
	Language       string          `gorm:"column:language;not null" json:"language"`
	FollowupsSent  int             `gorm:"column:followups_sent;not null;default:0" json:"followups_sent"`
	Turns          int             `gorm:"column:turns;not null;default:0" json:"turns"`
	LastIntent     string          `gorm:"column:last_intent" json:"last_intent,omitempty"`
	ResumeLinks    datatypes.JSON  `gorm:"column:resume_links;type:jsonb" json:"resume_links"`
	NextFollowupAt *time.Time      `gorm:"column:next_followup_at;index" json:"next_followup_at,omitempty"`
	LastError      string          `gorm:"column:last_error" json:"last_error,omitempty"`
	State          datatypes.JSON  `gorm:"column:state;type:jsonb" json:"state"`
	CreatedAt      time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"not null" json:"updated_at"`
}

func (PreResumeSession) TableName() string { return "pre_resume_sessions" }

func (s *PreResumeSession) ResumeLinkList() []string  { return decodeStringSlice(s.ResumeLinks) }
func (s *PreResumeSession) SetResumeLinks(v []string) { s.ResumeLinks = encodeStringSlice(v) }

type PreResumeEventType string

const (
	EventSessionStarted     PreResumeEventType = "session_started"
	EventInboundProcessed   PreResumeEventType = "inbound_processed"
	EventFollowupSent       PreResumeEventType = "followup_sent"
	EventSessionUnreachable PreResumeEventType = "session_unreachable"
)

// PreResumeEvent is the append-only FSM audit log.
type PreResumeEvent struct {
	ID              int64              `gorm:"primaryKey;autoIncrement" json:"id"`
	SessionID       uuid.UUID          `gorm:"type:uuid;column:session_id;not null;index" json:"session_id"`
	EventType       PreResumeEventType `gorm:"column:event_type;not null" json:"event_type"`
	Intent          string             `gorm:"column:intent" json:"intent,omitempty"`
	InboundText     string             `gorm:"column:inbound_text" json:"inbound_text,omitempty"`
	OutboundText    string             `gorm:"column:outbound_text" json:"outbound_text,omitempty"`
	ResultingStatus string             `gorm:"column:resulting_status" json:"resulting_status,omitempty"`
	CreatedAt       time.Time          `gorm:"not null;index" json:"created_at"`
}

func (PreResumeEvent) TableName() string { return "pre_resume_events" }
