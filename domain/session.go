// Package domain holds the entities of the live-chat core and their closed
// enumerations. It carries no persistence or transport concerns.
package domain

import (
	"time"

	"github.com/google/uuid"
)

type SessionStatus string

const (
	SessionActive      SessionStatus = "active"
	SessionEnded       SessionStatus = "ended"
	SessionTransferred SessionStatus = "transferred"
)

// CanTransitionTo encodes the legal lifecycle graph:
// active -> ended, active -> transferred, transferred -> active,
// transferred -> ended. Ended is terminal.
func (s SessionStatus) CanTransitionTo(next SessionStatus) bool {
	switch s {
	case SessionActive:
		return next == SessionEnded || next == SessionTransferred
	case SessionTransferred:
		return next == SessionActive || next == SessionEnded
	default:
		return false
	}
}

// Session is one visitor conversation, from first contact to termination.
// Mutated only through the session registry's per-session critical section.
type Session struct {
	ID       uuid.UUID
	TenantID uuid.UUID

	ProjectID uuid.UUID
	WidgetID  uuid.UUID

	Token      string
	CustomerID *uuid.UUID
	TicketID   *uuid.UUID

	Status      SessionStatus
	VisitorInfo map[string]string

	AssignedAgentID *uuid.UUID
	AssignedAt      *time.Time

	StartedAt      time.Time
	LastActivityAt time.Time
	EndedAt        *time.Time
}

func (s Session) Assigned() bool {
	return s.AssignedAgentID != nil
}

func (s Session) Terminal() bool {
	return s.Status == SessionEnded
}
