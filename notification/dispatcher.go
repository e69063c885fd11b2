// Package notification converts domain events into typed notifications and
// fans them out across delivery channels. Records are created synchronously;
// channel delivery is decoupled behind per-channel queues so a slow gateway
// can never stall message ingestion or assignment.
package notification

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

type Dispatcher struct {
	repo     contract.NotificationRepository
	settings contract.SettingsRepository
	bus      contract.EventPublisher
	log      *slog.Logger

	// One queue per channel. A single delivery worker drains each queue,
	// which preserves creation order per channel; channels are independent
	// of one another.
	queues map[domain.Channel]chan domain.Notification
}

var _ contract.Notifier = (*Dispatcher)(nil)

func NewDispatcher(repo contract.NotificationRepository, settings contract.SettingsRepository,
	bus contract.EventPublisher, queueSize int, log *slog.Logger) *Dispatcher {
	queues := make(map[domain.Channel]chan domain.Notification, len(domain.Channels))
	for _, c := range domain.Channels {
		queues[c] = make(chan domain.Notification, queueSize)
	}
	return &Dispatcher{repo: repo, settings: settings, bus: bus, log: log, queues: queues}
}

// Notify records a notification for the event described by input and
// enqueues delivery on every channel the agent's settings allow. A disabled
// type is still recorded for audit; only delivery is suppressed. The record
// is durable before any delivery is attempted.
func (d *Dispatcher) Notify(ctx context.Context, input contract.NotifyInput) (domain.Notification, error) {
	route, err := routeFor(input.Type)
	if err != nil {
		return domain.Notification{}, err
	}

	now := time.Now().UTC()
	n := domain.Notification{
		ID:        uuid.New(),
		TenantID:  input.TenantID,
		ProjectID: input.ProjectID,
		AgentID:   input.AgentID,
		Type:      input.Type,
		Title:     input.Title,
		Message:   input.Message,
		Priority:  route.Priority,
		Channels:  route.Channels,
		ActionURL: input.ActionURL,
		Metadata:  input.Metadata,
		CreatedAt: now,
	}
	if route.TTL > 0 {
		expires := now.Add(route.TTL)
		n.ExpiresAt = &expires
	}

	// High and urgent notifications must be able to reach the agent
	// outside the dashboard. Reject before creation.
	if n.Priority.AtLeast(domain.PriorityHigh) && !domain.HasNonWeb(n.Channels) {
		return domain.Notification{}, fmt.Errorf("notification %q: %w", n.Type, errors.ErrChannelPolicy)
	}

	settings, err := d.settings.GetSettings(n.AgentID)
	if err != nil {
		return domain.Notification{}, fmt.Errorf("load settings for agent %s: %w", n.AgentID, err)
	}

	if err := d.repo.Save(n); err != nil {
		return domain.Notification{}, fmt.Errorf("persist notification %s: %w", n.ID, err)
	}

	if err := d.bus.Publish(ctx, event.NotificationCreated{
		NotificationID: n.ID,
		TenantID:       n.TenantID,
		AgentID:        n.AgentID,
		Type:           n.Type,
		Priority:       n.Priority,
		Time:           now,
	}); err != nil {
		d.log.Warn("event publication failed", "event", "NotificationCreated", "error", err)
	}

	for _, c := range settings.DeliveryChannels(n) {
		select {
		case d.queues[c] <- n:
		default:
			d.log.Warn("delivery queue full, notification dropped from channel",
				"channel", c, "notification_id", n.ID)
		}
	}
	return n, nil
}

// Queue exposes one channel's delivery queue to its worker.
func (d *Dispatcher) Queue(c domain.Channel) <-chan domain.Notification {
	return d.queues[c]
}

// MarkRead acknowledges one notification. Idempotent: re-reading changes
// nothing, keeps the original read timestamp and emits no second event.
func (d *Dispatcher) MarkRead(ctx context.Context, id uuid.UUID) error {
	n, err := d.repo.Get(id)
	if err != nil {
		return err
	}
	if n.IsRead {
		return nil
	}
	now := time.Now().UTC()
	n.IsRead = true
	n.ReadAt = &now
	if err := d.repo.Save(n); err != nil {
		return err
	}
	d.publishRead(ctx, n, now)
	return nil
}

// MarkAllRead acknowledges every unread notification of the agent.
func (d *Dispatcher) MarkAllRead(ctx context.Context, tenantID, agentID uuid.UUID) (int, error) {
	unread, err := d.repo.ListByAgent(tenantID, agentID, contract.NotificationFilter{UnreadOnly: true})
	if err != nil {
		return 0, err
	}
	now := time.Now().UTC()
	for i := range unread {
		unread[i].IsRead = true
		unread[i].ReadAt = &now
		if err := d.repo.Save(unread[i]); err != nil {
			return i, err
		}
		d.publishRead(ctx, unread[i], now)
	}
	return len(unread), nil
}

// publishRead tells the read models a notification left the unread set.
func (d *Dispatcher) publishRead(ctx context.Context, n domain.Notification, at time.Time) {
	if err := d.bus.Publish(ctx, event.NotificationRead{
		NotificationID: n.ID,
		TenantID:       n.TenantID,
		AgentID:        n.AgentID,
		Priority:       n.Priority,
		Time:           at,
	}); err != nil {
		d.log.Warn("event publication failed", "event", "NotificationRead", "error", err)
	}
}

// List returns the agent's feed, newest first, expired records hidden.
func (d *Dispatcher) List(_ context.Context, tenantID, agentID uuid.UUID, filter contract.NotificationFilter) ([]domain.Notification, error) {
	return d.repo.ListByAgent(tenantID, agentID, filter)
}

// SweepExpired removes notifications past their expiry. A record is never
// removed before its expiry, read or not; past it, it is never resurrected.
func (d *Dispatcher) SweepExpired(_ context.Context) (int, error) {
	return d.repo.SweepExpired(time.Now().UTC())
}

// UpdateSettings replaces the agent's delivery preferences.
func (d *Dispatcher) UpdateSettings(_ context.Context, settings domain.NotificationSettings) error {
	if settings.AgentID == uuid.Nil {
		return fmt.Errorf("settings update: %w", errors.ErrNotFound)
	}
	return d.settings.SaveSettings(settings)
}
