// Package observability aggregates runtime counters for logs and the debug
// endpoint. Counters are atomics updated from the event stream; readers get
// a consistent snapshot without locking writers.
package observability

import (
	"context"
	"sync/atomic"

	"chat-core/contract"
	"chat-core/domain"
	"chat-core/domain/event"
)

type Stats struct {
	sessionsCreated      atomic.Uint64
	sessionsEnded        atomic.Uint64
	transfers            atomic.Uint64
	assignments          atomic.Uint64
	releases             atomic.Uint64
	messagesAppended     atomic.Uint64
	visitorMessages      atomic.Uint64
	agentMessages        atomic.Uint64
	notificationsCreated atomic.Uint64
	urgentNotifications  atomic.Uint64
}

// Snapshot is a point-in-time copy of every counter.
type Snapshot struct {
	SessionsCreated      uint64 `json:"sessions_created"`
	SessionsEnded        uint64 `json:"sessions_ended"`
	Transfers            uint64 `json:"transfers"`
	Assignments          uint64 `json:"assignments"`
	Releases             uint64 `json:"releases"`
	MessagesAppended     uint64 `json:"messages_appended"`
	VisitorMessages      uint64 `json:"visitor_messages"`
	AgentMessages        uint64 `json:"agent_messages"`
	NotificationsCreated uint64 `json:"notifications_created"`
	UrgentNotifications  uint64 `json:"urgent_notifications"`
}

func NewStats() *Stats {
	return &Stats{}
}

func (s *Stats) Snapshot() Snapshot {
	return Snapshot{
		SessionsCreated:      s.sessionsCreated.Load(),
		SessionsEnded:        s.sessionsEnded.Load(),
		Transfers:            s.transfers.Load(),
		Assignments:          s.assignments.Load(),
		Releases:             s.releases.Load(),
		MessagesAppended:     s.messagesAppended.Load(),
		VisitorMessages:      s.visitorMessages.Load(),
		AgentMessages:        s.agentMessages.Load(),
		NotificationsCreated: s.notificationsCreated.Load(),
		UrgentNotifications:  s.urgentNotifications.Load(),
	}
}

// StatsSink feeds the counters from the event stream.
type StatsSink struct {
	stats *Stats
}

var _ contract.EventSink = (*StatsSink)(nil)

func NewStatsSink(stats *Stats) *StatsSink {
	return &StatsSink{stats: stats}
}

func (s *StatsSink) Consume(_ context.Context, e event.DomainEvent) error {
	switch ev := e.(type) {
	case event.SessionCreated:
		s.stats.sessionsCreated.Add(1)
	case event.SessionEnded:
		s.stats.sessionsEnded.Add(1)
	case event.SessionTransferred:
		s.stats.transfers.Add(1)
	case event.AssignmentChanged:
		if ev.NewAgentID != nil {
			s.stats.assignments.Add(1)
		} else {
			s.stats.releases.Add(1)
		}
	case event.MessageAppended:
		s.stats.messagesAppended.Add(1)
		switch ev.AuthorType {
		case domain.AuthorVisitor:
			s.stats.visitorMessages.Add(1)
		case domain.AuthorAgent:
			s.stats.agentMessages.Add(1)
		}
	case event.NotificationCreated:
		s.stats.notificationsCreated.Add(1)
		if ev.Priority == domain.PriorityUrgent {
			s.stats.urgentNotifications.Add(1)
		}
	}
	return nil
}
