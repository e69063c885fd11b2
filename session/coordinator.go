package session

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"chat-core/contract"
	"chat-core/domain"
	"chat-core/domain/event"
	"chat-core/errors"
)

// Coordinator arbitrates agent claims on a session. The decision is a single
// compare-and-set inside the session's critical section: the assignment slot
// must be empty and the session claimable. No read-then-write window exists,
// so no two agents can both believe they own a session.
type Coordinator struct {
	state *Registry
	bus   contract.EventPublisher
	log   *slog.Logger
}

func NewCoordinator(state *Registry, bus contract.EventPublisher, log *slog.Logger) *Coordinator {
	return &Coordinator{state: state, bus: bus, log: log}
}

// Claim attempts to make agentID the exclusive assignee. Losers receive
// AlreadyAssignedError carrying the winner; that outcome is routine and is
// never retried here, the caller decides what to do with the rejection.
// A claim on a transferred session re-activates it.
func (c *Coordinator) Claim(ctx context.Context, sessionID, agentID uuid.UUID) (domain.Session, error) {
	var prev *uuid.UUID
	sess, err := c.state.Update(ctx, sessionID, func(s *domain.Session, _ *uint64) error {
		if s.Terminal() {
			return fmt.Errorf("claim session: %w", errors.ErrSessionClosed)
		}
		if s.Assigned() {
			return errors.AlreadyAssignedError{SessionID: s.ID, Winner: *s.AssignedAgentID}
		}
		now := time.Now().UTC()
		prev = nil
		s.AssignedAgentID = &agentID
		s.AssignedAt = &now
		s.Status = domain.SessionActive
		s.LastActivityAt = now
		return nil
	})
	if err != nil {
		return sess, err
	}

	c.publish(ctx, event.AssignmentChanged{
		SessionID:       sess.ID,
		TenantID:        sess.TenantID,
		ProjectID:       sess.ProjectID,
		PreviousAgentID: prev,
		NewAgentID:      &agentID,
		Time:            *sess.AssignedAt,
	})
	c.log.Info("session claimed", "session_id", sessionID, "agent_id", agentID)
	return sess, nil
}

// Release clears the assignment, but only for the current assignee; anyone
// else gets NotOwner. The session stays active and returns to the
// unassigned pool.
func (c *Coordinator) Release(ctx context.Context, sessionID, agentID uuid.UUID) (domain.Session, error) {
	sess, err := c.state.Update(ctx, sessionID, func(s *domain.Session, _ *uint64) error {
		if s.Terminal() {
			return fmt.Errorf("release session: %w", errors.ErrSessionClosed)
		}
		if !s.Assigned() || *s.AssignedAgentID != agentID {
			return fmt.Errorf("release by agent %s: %w", agentID, errors.ErrNotOwner)
		}
		s.AssignedAgentID = nil
		s.AssignedAt = nil
		s.LastActivityAt = time.Now().UTC()
		return nil
	})
	if err != nil {
		return sess, err
	}

	c.publish(ctx, event.AssignmentChanged{
		SessionID:       sess.ID,
		TenantID:        sess.TenantID,
		ProjectID:       sess.ProjectID,
		PreviousAgentID: &agentID,
		NewAgentID:      nil,
		Time:            sess.LastActivityAt,
	})
	c.log.Info("session released", "session_id", sessionID, "agent_id", agentID)
	return sess, nil
}

func (c *Coordinator) publish(ctx context.Context, e event.DomainEvent) {
	if err := c.bus.Publish(ctx, e); err != nil {
		c.log.Warn("event publication failed", "event", e.Name(), "error", err)
	}
}
