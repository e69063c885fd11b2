package notification

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"chat-core/contract"
	"chat-core/domain"
	"chat-core/domain/event"
)

var _ contract.EventSink = (*Bridge)(nil)

// Bridge translates lifecycle and message events into agent notifications.
// It owns the mapping from "something happened on a session" to "which agent
// hears about it"; the dispatcher owns priorities and channels.
type Bridge struct {
	notifier        contract.Notifier
	escalationAgent uuid.UUID
	log             *slog.Logger
}

func NewBridge(notifier contract.Notifier, escalationAgent uuid.UUID, log *slog.Logger) *Bridge {
	return &Bridge{notifier: notifier, escalationAgent: escalationAgent, log: log}
}

func (b *Bridge) Consume(ctx context.Context, e event.DomainEvent) error {
	switch ev := e.(type) {
	case event.SessionCreated:
		// Nobody is assigned yet; the escalation agent triages new sessions.
		return b.notify(ctx, ev.TenantID, ev.ProjectID, b.escalationAgent,
			ev.SessionID, domain.NotifSessionStarted,
			"New chat session",
			fmt.Sprintf("A visitor started session %s", ev.SessionID))
	case event.AssignmentChanged:
		if ev.NewAgentID == nil {
			return nil
		}
		return b.notify(ctx, ev.TenantID, ev.ProjectID, *ev.NewAgentID,
			ev.SessionID, domain.NotifSessionAssigned,
			"Session assigned to you",
			fmt.Sprintf("You are now handling session %s", ev.SessionID))
	case event.SessionTransferred:
		return b.notify(ctx, ev.TenantID, ev.ProjectID, ev.TargetAgentID,
			ev.SessionID, domain.NotifSessionTransferred,
			"Session transferred to you",
			fmt.Sprintf("Session %s was handed over to you", ev.SessionID))
	case event.SessionEnded:
		if ev.AssignedAgentID == nil {
			return nil
		}
		return b.notify(ctx, ev.TenantID, ev.ProjectID, *ev.AssignedAgentID,
			ev.SessionID, domain.NotifSessionEnded,
			"Session ended",
			fmt.Sprintf("Session %s has ended", ev.SessionID))
	case event.MessageAppended:
		if ev.AuthorType != domain.AuthorVisitor || ev.IsPrivate || ev.AssignedAgentID == nil {
			return nil
		}
		return b.notify(ctx, ev.TenantID, ev.ProjectID, *ev.AssignedAgentID,
			ev.SessionID, domain.NotifMessageReceived,
			fmt.Sprintf("New message from %s", ev.AuthorName),
			preview(ev.Content))
	default:
		return nil
	}
}

func (b *Bridge) notify(ctx context.Context, tenantID, projectID, agentID, sessionID uuid.UUID,
	t domain.NotificationType, title, message string) error {
	actionURL := fmt.Sprintf("/chat/session/%s", sessionID)
	_, err := b.notifier.Notify(ctx, contract.NotifyInput{
		TenantID:  tenantID,
		ProjectID: &projectID,
		AgentID:   agentID,
		Type:      t,
		Title:     title,
		Message:   message,
		ActionURL: &actionURL,
		Metadata:  map[string]string{"session_id": sessionID.String()},
	})
	if err != nil {
		b.log.Error("bridge notification failed",
			"type", t, "session_id", sessionID, "error", err)
	}
	return err
}

const previewLimit = 140

func preview(content string) string {
	runes := []rune(content)
	if len(runes) <= previewLimit {
		return content
	}
	return string(runes[:previewLimit]) + "…"
}
