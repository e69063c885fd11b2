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

// TokenIssuer mints the opaque credential a visitor presents to resume a
// session. Implemented by the auth package.
type TokenIssuer interface {
	IssueSessionToken(sessionID, tenantID uuid.UUID) (string, error)
}

// ConfigSource resolves a widget key to its current configuration snapshot.
type ConfigSource interface {
	Resolve(ctx context.Context, key domain.WidgetKey) (domain.WidgetConfig, error)
}

// Manager owns the session lifecycle: create, end, transfer, activity.
// Assignment is the Coordinator's job; both share the same registry so every
// mutation of one session is linearized by one lock.
type Manager struct {
	state   *Registry
	configs ConfigSource
	tokens  TokenIssuer
	bus     contract.EventPublisher
	log     *slog.Logger
}

func NewManager(state *Registry, configs ConfigSource, tokens TokenIssuer,
	bus contract.EventPublisher, log *slog.Logger) *Manager {
	return &Manager{state: state, configs: configs, tokens: tokens, bus: bus, log: log}
}

// Create opens a session on first visitor contact. The widget must be
// active; the configuration snapshot is resolved once and never re-read for
// the session's lifetime.
func (m *Manager) Create(ctx context.Context, key domain.WidgetKey, visitorInfo map[string]string) (domain.Session, error) {
	cfg, err := m.configs.Resolve(ctx, key)
	if err != nil {
		return domain.Session{}, err
	}
	if !cfg.IsActive {
		return domain.Session{}, fmt.Errorf("widget %q: %w", key, errors.ErrConfigInactive)
	}

	now := time.Now().UTC()
	sess := domain.Session{
		ID:             uuid.New(),
		TenantID:       cfg.TenantID,
		ProjectID:      cfg.ProjectID,
		WidgetID:       cfg.ID,
		Status:         domain.SessionActive,
		VisitorInfo:    visitorInfo,
		StartedAt:      now,
		LastActivityAt: now,
	}
	token, err := m.tokens.IssueSessionToken(sess.ID, sess.TenantID)
	if err != nil {
		return domain.Session{}, fmt.Errorf("issue session token: %w", err)
	}
	sess.Token = token

	if err := m.state.Create(ctx, sess); err != nil {
		return domain.Session{}, err
	}

	m.publish(ctx, event.SessionCreated{
		SessionID: sess.ID,
		TenantID:  sess.TenantID,
		ProjectID: sess.ProjectID,
		WidgetID:  sess.WidgetID,
		Time:      now,
	})
	m.log.Info("session created", "session_id", sess.ID, "widget_id", sess.WidgetID)
	return sess, nil
}

// End terminates a session. Legal from active and transferred only; ended is
// terminal and re-ending yields InvalidTransition with state unchanged.
func (m *Manager) End(ctx context.Context, sessionID uuid.UUID) (domain.Session, error) {
	var prevAgent *uuid.UUID
	sess, err := m.state.Update(ctx, sessionID, func(s *domain.Session, _ *uint64) error {
		if !s.Status.CanTransitionTo(domain.SessionEnded) {
			return fmt.Errorf("end session in status %q: %w", s.Status, errors.ErrInvalidTransition)
		}
		prevAgent = s.AssignedAgentID
		now := time.Now().UTC()
		s.Status = domain.SessionEnded
		s.EndedAt = &now
		s.LastActivityAt = now
		return nil
	})
	if err != nil {
		return sess, err
	}
	m.state.evict(sessionID)

	m.publish(ctx, event.SessionEnded{
		SessionID:       sess.ID,
		TenantID:        sess.TenantID,
		ProjectID:       sess.ProjectID,
		AssignedAgentID: prevAgent,
		Time:            *sess.EndedAt,
	})
	m.log.Info("session ended", "session_id", sess.ID)
	return sess, nil
}

// Transfer hands an assigned session back to arbitration with a target
// agent hint. Legal only from active with an assignee; the assignment is
// cleared and the next successful claim returns the session to active.
func (m *Manager) Transfer(ctx context.Context, sessionID, targetAgentID uuid.UUID) (domain.Session, error) {
	var prevAgent uuid.UUID
	sess, err := m.state.Update(ctx, sessionID, func(s *domain.Session, _ *uint64) error {
		if s.Status != domain.SessionActive || !s.Assigned() {
			return fmt.Errorf("transfer session in status %q (assigned=%t): %w",
				s.Status, s.Assigned(), errors.ErrInvalidTransition)
		}
		prevAgent = *s.AssignedAgentID
		s.Status = domain.SessionTransferred
		s.AssignedAgentID = nil
		s.AssignedAt = nil
		s.LastActivityAt = time.Now().UTC()
		return nil
	})
	if err != nil {
		return sess, err
	}

	m.publish(ctx, event.SessionTransferred{
		SessionID:       sess.ID,
		TenantID:        sess.TenantID,
		ProjectID:       sess.ProjectID,
		PreviousAgentID: prevAgent,
		TargetAgentID:   targetAgentID,
		Time:            sess.LastActivityAt,
	})
	m.log.Info("session transferred", "session_id", sess.ID,
		"previous_agent", prevAgent, "target_agent", targetAgentID)
	return sess, nil
}

// Touch bumps last_activity_at. Idle-timeout policy belongs to an external
// caller; the core only exposes the timestamp.
func (m *Manager) Touch(ctx context.Context, sessionID uuid.UUID) error {
	_, err := m.state.Update(ctx, sessionID, func(s *domain.Session, _ *uint64) error {
		if s.Terminal() {
			return fmt.Errorf("touch session: %w", errors.ErrSessionClosed)
		}
		s.LastActivityAt = time.Now().UTC()
		return nil
	})
	return err
}

// Get returns the current state of one session.
func (m *Manager) Get(ctx context.Context, sessionID uuid.UUID) (domain.Session, error) {
	return m.state.View(ctx, sessionID)
}

func (m *Manager) publish(ctx context.Context, e event.DomainEvent) {
	if err := m.bus.Publish(ctx, e); err != nil {
		m.log.Warn("event publication failed", "event", e.Name(), "error", err)
	}
}
