//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"
	"time"

	"github.com/google/uuid"

	"chat-core/domain"
	"chat-core/domain/event"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

type WorkerName string

// Worker doesn't protect itself. The supervisor owns restarts and panic
// recovery; a worker only has to run its loop until the context ends.
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker,
// avoiding manual naming in the Worker interface. Used for logging and
// supervision.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// EventSink consumes domain events after the owning record is durably
// created. Sinks must tolerate events they don't handle.
type EventSink interface {
	Consume(ctx context.Context, e event.DomainEvent) error
}

// EventPublisher is the write side of the event bus. Publishing happens
// outside any per-session critical section.
type EventPublisher interface {
	Publish(ctx context.Context, e event.DomainEvent) error
}

type IRegistry interface {
	GetSinksForSession(sessionID uuid.UUID) []EventSink
	Subscribe(participantID string, sessionID uuid.UUID, sink EventSink)
	Unsubscribe(participantID string, sessionID uuid.UUID)
}

// SessionState is the per-session single-writer discipline shared by the
// session manager, the assignment coordinator, and the message store. Update
// runs fn inside the session's exclusive critical section; nextSeq is the
// message sequence counter linearized by the same lock. Operations on
// different sessions never contend.
type SessionState interface {
	Create(ctx context.Context, s domain.Session) error
	Update(ctx context.Context, id uuid.UUID, fn func(s *domain.Session, nextSeq *uint64) error) (domain.Session, error)
	View(ctx context.Context, id uuid.UUID) (domain.Session, error)
}

type SessionRepository interface {
	Save(s domain.Session) error
	Get(id uuid.UUID) (domain.Session, error)
	List(tenantID uuid.UUID, filter SessionFilter) ([]domain.Session, error)
}

type SessionFilter struct {
	Status          domain.SessionStatus
	AssignedAgentID *uuid.UUID
	WidgetID        *uuid.UUID
	Limit           int
}

type MessageRepository interface {
	Store(m domain.Message) error
	ListBySession(sessionID uuid.UUID, includePrivate bool) ([]domain.Message, error)
	// Page returns messages newest-first for dashboard views. The returned
	// cursor resumes the scan on the next call.
	Page(sessionID uuid.UUID, cursor *string) ([]domain.Message, *string, error)
	// NextSeq recovers the sequence counter after a restart.
	NextSeq(sessionID uuid.UUID) (uint64, error)
}

type NotificationRepository interface {
	Save(n domain.Notification) error
	Get(id uuid.UUID) (domain.Notification, error)
	ListByAgent(tenantID, agentID uuid.UUID, filter NotificationFilter) ([]domain.Notification, error)
	// SweepExpired removes every record past its expiry and reports how
	// many were removed.
	SweepExpired(now time.Time) (int, error)
}

type NotificationFilter struct {
	UnreadOnly  bool
	MinPriority domain.Priority
	Limit       int
}

type SettingsRepository interface {
	SaveSettings(s domain.NotificationSettings) error
	// GetSettings returns the defaults when the agent never saved any.
	GetSettings(agentID uuid.UUID) (domain.NotificationSettings, error)
}

// Notifier converts a domain event into a recorded notification. Implemented
// by the notification dispatcher; consumed by the SLA monitor and the event
// bridge.
type Notifier interface {
	Notify(ctx context.Context, input NotifyInput) (domain.Notification, error)
}

type NotifyInput struct {
	TenantID  uuid.UUID
	ProjectID *uuid.UUID
	AgentID   uuid.UUID
	Type      domain.NotificationType
	Title     string
	Message   string
	ActionURL *string
	Metadata  map[string]string
}

// Gateway performs the actual per-channel delivery. Implementations live
// outside the core (email, slack, sms, push, realtime transports).
type Gateway interface {
	Deliver(ctx context.Context, channel domain.Channel, n domain.Notification) error
}
