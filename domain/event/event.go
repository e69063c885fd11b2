// Package event defines the domain events the core emits for external
// consumers and internal sinks. Events carry entity ids and scope, never
// entity internals.
package event

import (
	"time"

	"github.com/google/uuid"

	"chat-core/domain"
)

type DomainEvent interface {
	Name() string
	At() time.Time
}

// SessionEvent is implemented by events scoped to one session; the fanout
// registry uses it to route events to that session's live subscribers.
type SessionEvent interface {
	DomainEvent
	Session() uuid.UUID
}

type SessionCreated struct {
	SessionID uuid.UUID
	TenantID  uuid.UUID
	ProjectID uuid.UUID
	WidgetID  uuid.UUID
	Time      time.Time
}

func (e SessionCreated) Name() string       { return "SessionCreated" }
func (e SessionCreated) At() time.Time      { return e.Time }
func (e SessionCreated) Session() uuid.UUID { return e.SessionID }

type SessionEnded struct {
	SessionID       uuid.UUID
	TenantID        uuid.UUID
	ProjectID       uuid.UUID
	AssignedAgentID *uuid.UUID
	Time            time.Time
}

func (e SessionEnded) Name() string       { return "SessionEnded" }
func (e SessionEnded) At() time.Time      { return e.Time }
func (e SessionEnded) Session() uuid.UUID { return e.SessionID }

// SessionTransferred re-opens arbitration on the same session record.
// TargetAgentID is a hint for the next claim, not a reservation.
type SessionTransferred struct {
	SessionID       uuid.UUID
	TenantID        uuid.UUID
	ProjectID       uuid.UUID
	PreviousAgentID uuid.UUID
	TargetAgentID   uuid.UUID
	Time            time.Time
}

func (e SessionTransferred) Name() string       { return "SessionTransferred" }
func (e SessionTransferred) At() time.Time      { return e.Time }
func (e SessionTransferred) Session() uuid.UUID { return e.SessionID }

// AssignmentChanged fires on every claim win and release. A nil NewAgentID
// means the session returned to the unassigned pool.
type AssignmentChanged struct {
	SessionID       uuid.UUID
	TenantID        uuid.UUID
	ProjectID       uuid.UUID
	PreviousAgentID *uuid.UUID
	NewAgentID      *uuid.UUID
	Time            time.Time
}

func (e AssignmentChanged) Name() string       { return "AssignmentChanged" }
func (e AssignmentChanged) At() time.Time      { return e.Time }
func (e AssignmentChanged) Session() uuid.UUID { return e.SessionID }

type MessageAppended struct {
	MessageID       uuid.UUID
	SessionID       uuid.UUID
	TenantID        uuid.UUID
	ProjectID       uuid.UUID
	Seq             uint64
	AuthorType      domain.AuthorType
	AuthorName      string
	Content         string
	IsPrivate       bool
	AssignedAgentID *uuid.UUID
	Time            time.Time
}

func (e MessageAppended) Name() string       { return "MessageAppended" }
func (e MessageAppended) At() time.Time      { return e.Time }
func (e MessageAppended) Session() uuid.UUID { return e.SessionID }

type NotificationCreated struct {
	NotificationID uuid.UUID
	TenantID       uuid.UUID
	AgentID        uuid.UUID
	Type           domain.NotificationType
	Priority       domain.Priority
	Time           time.Time
}

func (e NotificationCreated) Name() string  { return "NotificationCreated" }
func (e NotificationCreated) At() time.Time { return e.Time }

// NotificationRead fires once per newly acknowledged notification so read
// models can keep their unread counters in step with the repository.
type NotificationRead struct {
	NotificationID uuid.UUID
	TenantID       uuid.UUID
	AgentID        uuid.UUID
	Priority       domain.Priority
	Time           time.Time
}

func (e NotificationRead) Name() string  { return "NotificationRead" }
func (e NotificationRead) At() time.Time { return e.Time }
