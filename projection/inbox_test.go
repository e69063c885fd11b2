package projection

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"chat-core/domain"
	"chat-core/domain/event"
)

func created(agentID uuid.UUID, priority domain.Priority) event.NotificationCreated {
	return event.NotificationCreated{
		NotificationID: uuid.New(),
		TenantID:       uuid.New(),
		AgentID:        agentID,
		Type:           domain.NotifSessionAssigned,
		Priority:       priority,
		Time:           time.Now().UTC(),
	}
}

func TestInbox_CountsPerAgent(t *testing.T) {
	req := require.New(t)
	inbox := NewInbox()
	ctx := context.Background()
	alice := uuid.New()
	bob := uuid.New()

	req.NoError(inbox.Consume(ctx, created(alice, domain.PriorityNormal)))
	req.NoError(inbox.Consume(ctx, created(alice, domain.PriorityUrgent)))
	req.NoError(inbox.Consume(ctx, created(bob, domain.PriorityLow)))

	unread, urgent := inbox.Unread(alice)
	req.Equal(uint64(2), unread)
	req.Equal(uint64(1), urgent)

	unread, urgent = inbox.Unread(bob)
	req.Equal(uint64(1), unread)
	req.Zero(urgent)

	unread, urgent = inbox.Unread(uuid.New())
	req.Zero(unread)
	req.Zero(urgent)
}

func TestInbox_IgnoresOtherEvents(t *testing.T) {
	req := require.New(t)
	inbox := NewInbox()

	req.NoError(inbox.Consume(context.Background(), event.SessionCreated{
		SessionID: uuid.New(),
		Time:      time.Now().UTC(),
	}))
	req.Empty(inbox.agents)
}

func TestInbox_RecentNewestFirstAndCapped(t *testing.T) {
	req := require.New(t)
	inbox := NewInbox()
	ctx := context.Background()
	agent := uuid.New()

	var last uuid.UUID
	for i := 0; i < recentLimit+5; i++ {
		e := created(agent, domain.PriorityNormal)
		last = e.NotificationID
		req.NoError(inbox.Consume(ctx, e))
	}

	recent := inbox.Recent(agent)
	req.Len(recent, recentLimit)
	req.Equal(last, recent[0].NotificationID)
	req.Nil(inbox.Recent(uuid.New()))
}

func TestInbox_ReadEventsDrainBadge(t *testing.T) {
	req := require.New(t)
	inbox := NewInbox()
	ctx := context.Background()
	agent := uuid.New()

	normal := created(agent, domain.PriorityNormal)
	urgent := created(agent, domain.PriorityUrgent)
	req.NoError(inbox.Consume(ctx, normal))
	req.NoError(inbox.Consume(ctx, urgent))

	unread, urgentCount := inbox.Unread(agent)
	req.Equal(uint64(2), unread)
	req.Equal(uint64(1), urgentCount)

	// The badge must follow the repository: each acknowledged record
	// arrives as a read event and leaves the counters.
	req.NoError(inbox.Consume(ctx, event.NotificationRead{
		NotificationID: urgent.NotificationID,
		TenantID:       urgent.TenantID,
		AgentID:        agent,
		Priority:       domain.PriorityUrgent,
		Time:           time.Now().UTC(),
	}))
	req.NoError(inbox.Consume(ctx, event.NotificationRead{
		NotificationID: normal.NotificationID,
		TenantID:       normal.TenantID,
		AgentID:        agent,
		Priority:       domain.PriorityNormal,
		Time:           time.Now().UTC(),
	}))

	unread, urgentCount = inbox.Unread(agent)
	req.Zero(unread, "the badge must not grow without bound once records are read")
	req.Zero(urgentCount)

	// Reads for an agent the projection never saw are tolerated.
	req.NoError(inbox.Consume(ctx, event.NotificationRead{
		NotificationID: uuid.New(),
		AgentID:        uuid.New(),
		Priority:       domain.PriorityNormal,
		Time:           time.Now().UTC(),
	}))
}

func TestInbox_AcknowledgeClampsToZero(t *testing.T) {
	req := require.New(t)
	inbox := NewInbox()
	ctx := context.Background()
	agent := uuid.New()

	req.NoError(inbox.Consume(ctx, created(agent, domain.PriorityUrgent)))
	req.NoError(inbox.Consume(ctx, created(agent, domain.PriorityNormal)))

	inbox.Acknowledge(agent, domain.PriorityUrgent, 1)
	unread, urgent := inbox.Unread(agent)
	req.Equal(uint64(1), unread)
	req.Zero(urgent)

	// Over-acknowledging never drives counters negative.
	inbox.Acknowledge(agent, domain.PriorityNormal, 100)
	unread, urgent = inbox.Unread(agent)
	req.Zero(unread)
	req.Zero(urgent)

	// Unknown agents are tolerated.
	inbox.Acknowledge(uuid.New(), domain.PriorityNormal, 1)
}
