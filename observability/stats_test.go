package observability

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"chat-core/domain"
	"chat-core/domain/event"
)

func TestStatsSink_CountsByEvent(t *testing.T) {
	req := require.New(t)
	stats := NewStats()
	sink := NewStatsSink(stats)
	ctx := context.Background()
	now := time.Now().UTC()
	agent := uuid.New()

	req.NoError(sink.Consume(ctx, event.SessionCreated{SessionID: uuid.New(), Time: now}))
	req.NoError(sink.Consume(ctx, event.SessionCreated{SessionID: uuid.New(), Time: now}))
	req.NoError(sink.Consume(ctx, event.SessionEnded{SessionID: uuid.New(), Time: now}))
	req.NoError(sink.Consume(ctx, event.SessionTransferred{SessionID: uuid.New(), Time: now}))

	// Claim then release.
	req.NoError(sink.Consume(ctx, event.AssignmentChanged{NewAgentID: &agent, Time: now}))
	req.NoError(sink.Consume(ctx, event.AssignmentChanged{PreviousAgentID: &agent, Time: now}))

	req.NoError(sink.Consume(ctx, event.MessageAppended{AuthorType: domain.AuthorVisitor, Time: now}))
	req.NoError(sink.Consume(ctx, event.MessageAppended{AuthorType: domain.AuthorAgent, Time: now}))
	req.NoError(sink.Consume(ctx, event.MessageAppended{AuthorType: domain.AuthorSystem, Time: now}))

	req.NoError(sink.Consume(ctx, event.NotificationCreated{Priority: domain.PriorityUrgent, Time: now}))
	req.NoError(sink.Consume(ctx, event.NotificationCreated{Priority: domain.PriorityNormal, Time: now}))

	snap := stats.Snapshot()
	req.Equal(uint64(2), snap.SessionsCreated)
	req.Equal(uint64(1), snap.SessionsEnded)
	req.Equal(uint64(1), snap.Transfers)
	req.Equal(uint64(1), snap.Assignments)
	req.Equal(uint64(1), snap.Releases)
	req.Equal(uint64(3), snap.MessagesAppended)
	req.Equal(uint64(1), snap.VisitorMessages)
	req.Equal(uint64(1), snap.AgentMessages)
	req.Equal(uint64(2), snap.NotificationsCreated)
	req.Equal(uint64(1), snap.UrgentNotifications)
}
