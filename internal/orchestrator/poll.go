package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tener/recruit-core/internal/domain"
	"github.com/tener/recruit-core/internal/fsm"
	"github.com/tener/recruit-core/internal/providers/messaging"
)

type PollSummary struct {
	Conversations int `json:"conversations"`
	NewInbound    int `json:"new_inbound"`
	Failed        int `json:"failed"`
}

// PollInbound fetches the tail of every active provider chat,
// deduplicates by provider-message-id, and routes each new inbound
// through ProcessInbound. Attachment-only messages that look like a
// resume are synthesized into text so intent classification still
// yields resume_shared.
func (o *Orchestrator) PollInbound(ctx context.Context) (*PollSummary, error) {
	convs, err := o.deps.Conversations.ListActiveWithExternalChatID(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("list active conversations: %w", err)
	}

	summary := &PollSummary{Conversations: len(convs)}
	for _, conv := range convs {
		n, err := o.pollConversation(ctx, conv)
		if err != nil {
			summary.Failed++
			o.logOp(ctx, "poll.inbound", "error", "conversation", &conv.ID, map[string]any{"error": err.Error()})
			continue
		}
		summary.NewInbound += n
	}
	return summary, nil
}

func (o *Orchestrator) pollConversation(ctx context.Context, conv *domain.Conversation) (int, error) {
	chatMessages, err := o.deps.Provider.FetchChatMessages(ctx, *conv.ExternalChatID, o.cfg.PollFetchLimit)
	if err != nil {
		return 0, fmt.Errorf("fetch chat messages: %w", err)
	}

	seen, err := o.knownProviderMessageIDs(ctx, conv)
	if err != nil {
		return 0, err
	}

	processed := 0
	for _, m := range chatMessages {
		if !m.Inbound || m.ProviderMessageID == "" || seen[m.ProviderMessageID] {
			continue
		}
		text := m.Text
		if text == "" {
			if url := resumeAttachmentURL(m.Attachments); url != "" {
				text = fsm.ResumeLikeFromAttachment(url)
			}
		}
		if text == "" {
			continue
		}
		if _, err := o.ProcessInbound(ctx, conv.ID, text, map[string]any{"provider_message_id": m.ProviderMessageID}); err != nil {
			return processed, fmt.Errorf("process inbound: %w", err)
		}
		processed++
	}
	return processed, nil
}

// knownProviderMessageIDs collects the provider-message-ids already
// persisted on this conversation's messages.
func (o *Orchestrator) knownProviderMessageIDs(ctx context.Context, conv *domain.Conversation) (map[string]bool, error) {
	msgs, err := o.deps.Messages.ListByConversation(ctx, nil, conv.ID, 0)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	out := make(map[string]bool, len(msgs))
	for _, m := range msgs {
		if len(m.Metadata) == 0 {
			continue
		}
		var meta struct {
			ProviderMessageID string `json:"provider_message_id"`
		}
		if err := json.Unmarshal(m.Metadata, &meta); err == nil && meta.ProviderMessageID != "" {
			out[meta.ProviderMessageID] = true
		}
	}
	return out, nil
}

func resumeAttachmentURL(attachments []messaging.Attachment) string {
	for _, a := range attachments {
		if fsm.LooksLikeResumeURL(a.URL) || fsm.LooksLikeResumeURL(a.Name) {
			return a.URL
		}
	}
	return ""
}

func profileForCandidate(c *domain.Candidate) messaging.Profile {
	return messaging.Profile{
		ProviderID:      c.ProviderID,
		FullName:        c.FullName,
		Headline:        c.Headline,
		Location:        c.Location,
		Languages:       c.LanguageList(),
		Skills:          c.SkillSet(),
		YearsExperience: c.YearsExperience,
	}
}
