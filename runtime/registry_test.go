package runtime

import (
	"context"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"chat-core/domain/event"
)

type nopSink struct{}

func (nopSink) Consume(context.Context, event.DomainEvent) error { return nil }

func TestRegistry_SubscribeAndResolve(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	sessionID := uuid.New()

	registry.Subscribe("visitor-tab", sessionID, nopSink{})
	registry.Subscribe("agent-dashboard", sessionID, nopSink{})

	req.Len(registry.GetSinksForSession(sessionID), 2)
	req.Nil(registry.GetSinksForSession(uuid.New()))
}

func TestRegistry_UnsubscribeCleansEmptySessions(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	sessionID := uuid.New()

	registry.Subscribe("visitor-tab", sessionID, nopSink{})
	registry.Unsubscribe("visitor-tab", sessionID)

	req.Nil(registry.GetSinksForSession(sessionID))
	req.Empty(registry.sessionMembers)
	req.Empty(registry.subscribers)
}

func TestBus_PublishAndDrain(t *testing.T) {
	req := require.New(t)
	bus := NewBus(2, slog.Default())

	ctx := context.Background()
	req.NoError(bus.Publish(ctx, event.SessionCreated{SessionID: uuid.New()}))
	req.NoError(bus.Publish(ctx, event.SessionCreated{SessionID: uuid.New()}))
	req.Len(bus.Events(), 2)
}

func TestBus_PublishHonorsCancellation(t *testing.T) {
	req := require.New(t)
	bus := NewBus(1, slog.Default())

	ctx, cancel := context.WithCancel(context.Background())
	req.NoError(bus.Publish(ctx, event.SessionCreated{SessionID: uuid.New()}))

	// Buffer is full; a canceled context must unblock the publisher.
	cancel()
	err := bus.Publish(ctx, event.SessionCreated{SessionID: uuid.New()})
	req.ErrorIs(err, context.Canceled)
}
