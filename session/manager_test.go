package session

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"chat-core/domain"
	"chat-core/domain/event"
	"chat-core/errors"
)

func TestManager_CreateSession(t *testing.T) {
	req := require.New(t)
	cfg := activeWidget()
	manager, _, bus := newTestManager(cfg)

	sess, err := manager.Create(context.Background(), cfg.Key, map[string]string{"name": "Dana"})
	req.NoError(err)
	req.Equal(domain.SessionActive, sess.Status)
	req.Equal(cfg.TenantID, sess.TenantID)
	req.Equal(cfg.ID, sess.WidgetID)
	req.NotEmpty(sess.Token)
	req.Nil(sess.AssignedAgentID)
	req.WithinDuration(time.Now().UTC(), sess.StartedAt, time.Second)

	req.Len(bus.byName("SessionCreated"), 1)
}

func TestManager_CreateRejectsInactiveWidget(t *testing.T) {
	req := require.New(t)
	cfg := activeWidget()
	cfg.IsActive = false
	manager, _, bus := newTestManager(cfg)

	_, err := manager.Create(context.Background(), cfg.Key, nil)
	req.ErrorIs(err, errors.ErrConfigInactive)
	req.Empty(bus.byName("SessionCreated"))
}

func TestManager_CreateRejectsUnknownKey(t *testing.T) {
	req := require.New(t)
	manager, _, _ := newTestManager(activeWidget())

	_, err := manager.Create(context.Background(), "wk_missing", nil)
	req.ErrorIs(err, errors.ErrNotFound)
}

func TestManager_EndIsTerminal(t *testing.T) {
	req := require.New(t)
	cfg := activeWidget()
	manager, _, bus := newTestManager(cfg)
	ctx := context.Background()

	sess, err := manager.Create(ctx, cfg.Key, nil)
	req.NoError(err)

	ended, err := manager.End(ctx, sess.ID)
	req.NoError(err)
	req.Equal(domain.SessionEnded, ended.Status)
	req.NotNil(ended.EndedAt)

	// Re-ending must fail and leave the record untouched.
	_, err = manager.End(ctx, sess.ID)
	req.ErrorIs(err, errors.ErrInvalidTransition)

	again, err := manager.Get(ctx, sess.ID)
	req.NoError(err)
	req.Equal(*ended.EndedAt, *again.EndedAt)
	req.Len(bus.byName("SessionEnded"), 1)
}

func TestManager_TransferRequiresAssignment(t *testing.T) {
	req := require.New(t)
	cfg := activeWidget()
	manager, state, bus := newTestManager(cfg)
	ctx := context.Background()

	sess, err := manager.Create(ctx, cfg.Key, nil)
	req.NoError(err)

	// Unassigned sessions cannot be transferred.
	_, err = manager.Transfer(ctx, sess.ID, uuid.New())
	req.ErrorIs(err, errors.ErrInvalidTransition)

	coordinator := NewCoordinator(state, bus, slog.Default())
	agent := uuid.New()
	_, err = coordinator.Claim(ctx, sess.ID, agent)
	req.NoError(err)

	target := uuid.New()
	transferred, err := manager.Transfer(ctx, sess.ID, target)
	req.NoError(err)
	req.Equal(domain.SessionTransferred, transferred.Status)
	req.Nil(transferred.AssignedAgentID)

	events := bus.byName("SessionTransferred")
	req.Len(events, 1)
	evt := events[0].(event.SessionTransferred)
	req.Equal(agent, evt.PreviousAgentID)
	req.Equal(target, evt.TargetAgentID)
}

func TestManager_TouchRejectsClosedSession(t *testing.T) {
	req := require.New(t)
	cfg := activeWidget()
	manager, _, _ := newTestManager(cfg)
	ctx := context.Background()

	sess, err := manager.Create(ctx, cfg.Key, nil)
	req.NoError(err)

	before, err := manager.Get(ctx, sess.ID)
	req.NoError(err)
	time.Sleep(5 * time.Millisecond)
	req.NoError(manager.Touch(ctx, sess.ID))
	after, err := manager.Get(ctx, sess.ID)
	req.NoError(err)
	req.True(after.LastActivityAt.After(before.LastActivityAt))

	_, err = manager.End(ctx, sess.ID)
	req.NoError(err)
	req.ErrorIs(manager.Touch(ctx, sess.ID), errors.ErrSessionClosed)
}
