package messaging

import (
	"context"
	"strings"
	"time"
)

// Profile is the provider-shaped candidate record. Identity fields
// are ordered extractors: CanonicalKey-style resolution lives on the
// domain side, this struct just carries whatever the provider
// surfaced.
type Profile struct {
	LinkedInID         string   `json:"linkedin_id,omitempty"`
	UnipileProfileID   string   `json:"unipile_profile_id,omitempty"`
	AttendeeProviderID string   `json:"attendee_provider_id,omitempty"`
	ProviderID         string   `json:"provider_id,omitempty"`
	ID                 string   `json:"id,omitempty"`
	FullName           string   `json:"full_name"`
	Headline           string   `json:"headline,omitempty"`
	Location           string   `json:"location,omitempty"`
	Languages          []string `json:"languages,omitempty"`
	Skills             []string `json:"skills,omitempty"`
	YearsExperience    float64  `json:"years_experience,omitempty"`
}

// SendResult is the provider's answer to a message send. A non-empty
// Error with Sent=false is a provider-level refusal, not a transport
// failure.
type SendResult struct {
	Sent   bool   `json:"sent"`
	ChatID string `json:"chat_id,omitempty"`
	Error  string `json:"error,omitempty"`
}

// NoConnection reports whether the provider refused the send because
// there is no first-degree connection with the recipient. The
// provider signals this only through its error text.
func (r SendResult) NoConnection() bool {
	return !r.Sent && strings.Contains(strings.ToLower(r.Error), "no_connection_with_recipient")
}

type ConnectResult struct {
	Sent      bool   `json:"sent"`
	RequestID string `json:"request_id,omitempty"`
	Error     string `json:"error,omitempty"`
}

type Attachment struct {
	URL  string `json:"url"`
	Name string `json:"name,omitempty"`
}

// ChatMessage is one entry of a provider chat transcript.
// ProviderMessageID is the dedup key for inbound polling.
type ChatMessage struct {
	ProviderMessageID string       `json:"provider_message_id"`
	Text              string       `json:"text,omitempty"`
	SenderID          string       `json:"sender_id,omitempty"`
	Inbound           bool         `json:"inbound"`
	Attachments       []Attachment `json:"attachments,omitempty"`
	SentAt            time.Time    `json:"sent_at"`
}

// Provider is the outbound messaging channel. accountID is the
// provider-account-id of the sender identity the call is made as.
type Provider interface {
	SearchProfiles(ctx context.Context, query string, limit int) ([]Profile, error)
	EnrichProfile(ctx context.Context, p Profile) (Profile, error)
	SendMessage(ctx context.Context, accountID string, p Profile, text string) (SendResult, error)
	SendConnectionRequest(ctx context.Context, accountID string, p Profile, note string) (ConnectResult, error)
	CheckConnectionStatus(ctx context.Context, accountID string, p Profile) (bool, error)
	FetchChatMessages(ctx context.Context, chatID string, limit int) ([]ChatMessage, error)
}
