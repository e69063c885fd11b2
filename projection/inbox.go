// Package projection builds in-memory read models from observed events.
// Projections never emit events and can always be rebuilt from the stream.
package projection

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"chat-core/contract"
	"chat-core/domain"
	"chat-core/domain/event"
)

const recentLimit = 20

// InboxEntry is one recent notification as the dashboard badge shows it.
type InboxEntry struct {
	NotificationID uuid.UUID
	Type           domain.NotificationType
	Priority       domain.Priority
}

type agentInbox struct {
	unread uint64
	urgent uint64
	recent []InboxEntry
}

// Inbox tracks per-agent unread counters and the most recent notifications.
// It answers badge queries without touching badger; the repository remains
// the source of truth for the full feed.
type Inbox struct {
	mu     sync.RWMutex
	agents map[uuid.UUID]*agentInbox
}

var _ contract.EventSink = (*Inbox)(nil)

func NewInbox() *Inbox {
	return &Inbox{agents: make(map[uuid.UUID]*agentInbox)}
}

func (i *Inbox) Consume(_ context.Context, e event.DomainEvent) error {
	switch ev := e.(type) {
	case event.NotificationCreated:
		i.record(ev)
	case event.NotificationRead:
		i.Acknowledge(ev.AgentID, ev.Priority, 1)
	}
	return nil
}

func (i *Inbox) record(created event.NotificationCreated) {
	i.mu.Lock()
	defer i.mu.Unlock()

	inbox, ok := i.agents[created.AgentID]
	if !ok {
		inbox = &agentInbox{}
		i.agents[created.AgentID] = inbox
	}
	inbox.unread++
	if created.Priority == domain.PriorityUrgent {
		inbox.urgent++
	}
	inbox.recent = append([]InboxEntry{{
		NotificationID: created.NotificationID,
		Type:           created.Type,
		Priority:       created.Priority,
	}}, inbox.recent...)
	if len(inbox.recent) > recentLimit {
		inbox.recent = inbox.recent[:recentLimit]
	}
}

// Acknowledge decrements the unread counters after a read. Fed by
// NotificationRead events; the projection tolerates acknowledgements for
// notifications it never saw.
func (i *Inbox) Acknowledge(agentID uuid.UUID, priority domain.Priority, count uint64) {
	i.mu.Lock()
	defer i.mu.Unlock()

	inbox, ok := i.agents[agentID]
	if !ok {
		return
	}
	if count > inbox.unread {
		count = inbox.unread
	}
	inbox.unread -= count
	if priority == domain.PriorityUrgent {
		if count > inbox.urgent {
			count = inbox.urgent
		}
		inbox.urgent -= count
	}
}

// Unread returns the agent's unread and urgent-unread counts.
func (i *Inbox) Unread(agentID uuid.UUID) (unread, urgent uint64) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	inbox, ok := i.agents[agentID]
	if !ok {
		return 0, 0
	}
	return inbox.unread, inbox.urgent
}

// Recent returns the agent's newest entries, newest first.
func (i *Inbox) Recent(agentID uuid.UUID) []InboxEntry {
	i.mu.RLock()
	defer i.mu.RUnlock()

	inbox, ok := i.agents[agentID]
	if !ok {
		return nil
	}
	out := make([]InboxEntry, len(inbox.recent))
	copy(out, inbox.recent)
	return out
}
