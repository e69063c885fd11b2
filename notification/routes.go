package notification

import (
	"fmt"
	"time"

	"chat-core/domain"
	"chat-core/errors"
)

// Route fixes the default priority and channel set of one notification
// type. The table must stay exhaustive over domain.NotificationTypes; a
// test enforces it so a new type cannot silently fall through to a default
// policy. TTL of zero means the record never expires.
type Route struct {
	Priority domain.Priority
	Channels []domain.Channel
	TTL      time.Duration
}

var routes = map[domain.NotificationType]Route{
	domain.NotifSessionStarted: {
		Priority: domain.PriorityNormal,
		Channels: []domain.Channel{domain.ChannelWeb, domain.ChannelPush},
	},
	domain.NotifSessionAssigned: {
		Priority: domain.PriorityNormal,
		Channels: []domain.Channel{domain.ChannelWeb, domain.ChannelPush},
	},
	domain.NotifSessionTransferred: {
		Priority: domain.PriorityHigh,
		Channels: []domain.Channel{domain.ChannelWeb, domain.ChannelPush},
	},
	domain.NotifSessionEnded: {
		Priority: domain.PriorityLow,
		Channels: []domain.Channel{domain.ChannelWeb},
	},
	domain.NotifMessageReceived: {
		Priority: domain.PriorityNormal,
		Channels: []domain.Channel{domain.ChannelWeb, domain.ChannelPush},
	},
	domain.NotifTicketCreated: {
		Priority: domain.PriorityNormal,
		Channels: []domain.Channel{domain.ChannelWeb, domain.ChannelEmail},
	},
	domain.NotifTicketUpdated: {
		Priority: domain.PriorityLow,
		Channels: []domain.Channel{domain.ChannelWeb},
	},
	domain.NotifSLAWarning: {
		Priority: domain.PriorityHigh,
		Channels: []domain.Channel{domain.ChannelWeb, domain.ChannelPush, domain.ChannelEmail},
		TTL:      24 * time.Hour,
	},
	domain.NotifSLABreach: {
		Priority: domain.PriorityUrgent,
		Channels: []domain.Channel{domain.ChannelWeb, domain.ChannelPush, domain.ChannelEmail, domain.ChannelSMS},
		TTL:      24 * time.Hour,
	},
	domain.NotifSystemAnnouncement: {
		Priority: domain.PriorityNormal,
		Channels: []domain.Channel{domain.ChannelWeb, domain.ChannelEmail},
		TTL:      7 * 24 * time.Hour,
	},
}

func routeFor(t domain.NotificationType) (Route, error) {
	route, ok := routes[t]
	if !ok {
		return Route{}, fmt.Errorf("%q: %w", t, errors.ErrUnknownNotificationType)
	}
	return route, nil
}
