// Package errors holds the typed outcome taxonomy of the core. Every value
// here is a routine, synchronous result returned to the caller; none is fatal
// to the process. Infrastructure failures are wrapped with %w and propagated
// unchanged, never mapped onto these.
package errors

import (
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrWorkerPanic = fmt.Errorf("worker panic")

	// ErrEmptyWords rejects building a moderation masker with no word list.
	ErrEmptyWords = fmt.Errorf("no words have been found")

	// ErrConfigInactive rejects session creation on a disabled widget.
	ErrConfigInactive = fmt.Errorf("widget configuration is inactive")

	// ErrInvalidTransition rejects a session status change outside the
	// legal lifecycle graph. State is left untouched.
	ErrInvalidTransition = fmt.Errorf("invalid session transition")

	// ErrSessionClosed rejects operations on an ended session.
	ErrSessionClosed = fmt.Errorf("session is closed")

	// ErrNotOwner rejects a release by an agent that does not hold the
	// assignment.
	ErrNotOwner = fmt.Errorf("agent is not the current assignee")

	// ErrNotFound covers any unknown id reference.
	ErrNotFound = fmt.Errorf("not found")

	// ErrChannelPolicy rejects a notification whose priority requires a
	// non-web channel but whose channel set has none.
	ErrChannelPolicy = fmt.Errorf("priority requires a non-web channel")

	// ErrUnknownNotificationType rejects a type missing from the closed
	// enumeration.
	ErrUnknownNotificationType = fmt.Errorf("unknown notification type")
)

// AlreadyAssignedError is the losing side of claim arbitration. It is an
// expected outcome, not a fault: the caller decides whether to offer the
// session elsewhere. It carries the winner so the caller can display it.
type AlreadyAssignedError struct {
	SessionID uuid.UUID
	Winner    uuid.UUID
}

func (e AlreadyAssignedError) Error() string {
	return fmt.Sprintf("session %s already assigned to agent %s", e.SessionID, e.Winner)
}
