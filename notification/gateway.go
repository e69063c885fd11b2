package notification

import (
	"context"
	"log/slog"

	"chat-core/contract"
	"chat-core/domain"
)

var _ contract.Gateway = (*LogGateway)(nil)

// LogGateway is the default delivery backend: it logs what would have been
// sent. Real email, push, slack or sms gateways implement contract.Gateway
// outside the core and replace it at wiring time.
type LogGateway struct {
	log *slog.Logger
}

func NewLogGateway(log *slog.Logger) *LogGateway {
	return &LogGateway{log: log}
}

func (g *LogGateway) Deliver(_ context.Context, channel domain.Channel, n domain.Notification) error {
	g.log.Info("notification delivered",
		"channel", channel,
		"notification_id", n.ID,
		"agent_id", n.AgentID,
		"type", n.Type,
		"priority", n.Priority,
		"title", n.Title,
	)
	return nil
}
