package domain

import (
	"time"

	"github.com/google/uuid"
)

type NotificationType string

const (
	NotifSessionStarted     NotificationType = "session_started"
	NotifSessionAssigned    NotificationType = "session_assigned"
	NotifSessionTransferred NotificationType = "session_transferred"
	NotifSessionEnded       NotificationType = "session_ended"
	NotifMessageReceived    NotificationType = "message_received"
	NotifTicketCreated      NotificationType = "ticket_created"
	NotifTicketUpdated      NotificationType = "ticket_updated"
	NotifSLAWarning         NotificationType = "sla_warning"
	NotifSLABreach          NotificationType = "sla_breach"
	NotifSystemAnnouncement NotificationType = "system_announcement"
)

// NotificationTypes lists every member of the closed enumeration.
// The dispatcher's routing table is checked against this list so a new type
// cannot silently fall through to a default policy.
var NotificationTypes = []NotificationType{
	NotifSessionStarted,
	NotifSessionAssigned,
	NotifSessionTransferred,
	NotifSessionEnded,
	NotifMessageReceived,
	NotifTicketCreated,
	NotifTicketUpdated,
	NotifSLAWarning,
	NotifSLABreach,
	NotifSystemAnnouncement,
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

var priorityRank = map[Priority]int{
	PriorityLow:    0,
	PriorityNormal: 1,
	PriorityHigh:   2,
	PriorityUrgent: 3,
}

func (p Priority) AtLeast(other Priority) bool {
	return priorityRank[p] >= priorityRank[other]
}

type Channel string

const (
	ChannelWeb   Channel = "web"
	ChannelEmail Channel = "email"
	ChannelSlack Channel = "slack"
	ChannelSMS   Channel = "sms"
	ChannelPush  Channel = "push"
)

var Channels = []Channel{ChannelWeb, ChannelEmail, ChannelSlack, ChannelSMS, ChannelPush}

// HasNonWeb reports whether the set contains at least one channel besides web.
// Priorities high and urgent require it.
func HasNonWeb(channels []Channel) bool {
	for _, c := range channels {
		if c != ChannelWeb {
			return true
		}
	}
	return false
}

func ContainsChannel(channels []Channel, c Channel) bool {
	for _, ch := range channels {
		if ch == c {
			return true
		}
	}
	return false
}

type Notification struct {
	ID       uuid.UUID
	TenantID uuid.UUID

	ProjectID *uuid.UUID
	AgentID   uuid.UUID

	Type     NotificationType
	Title    string
	Message  string
	Priority Priority
	Channels []Channel

	ActionURL *string
	Metadata  map[string]string

	IsRead bool
	ReadAt *time.Time

	ExpiresAt *time.Time
	CreatedAt time.Time
}

// Expired reports whether the notification is past its expiry at the given
// instant. Records without an expiry never expire.
func (n Notification) Expired(now time.Time) bool {
	return n.ExpiresAt != nil && now.After(*n.ExpiresAt)
}

// NotificationSettings filters delivery per agent. A disabled type still
// records the notification for audit; only delivery is suppressed.
// The web channel is never filtered: it is the audit listing itself.
type NotificationSettings struct {
	AgentID uuid.UUID

	Disabled map[NotificationType]bool

	EmailEnabled bool
	SlackEnabled bool
	SMSEnabled   bool
	PushEnabled  bool
}

func DefaultNotificationSettings(agentID uuid.UUID) NotificationSettings {
	return NotificationSettings{
		AgentID:      agentID,
		Disabled:     map[NotificationType]bool{},
		EmailEnabled: true,
		SlackEnabled: true,
		SMSEnabled:   true,
		PushEnabled:  true,
	}
}

// DeliveryChannels returns the subset of the notification's channels that
// the settings allow delivery on. An empty result means record-only.
func (s NotificationSettings) DeliveryChannels(n Notification) []Channel {
	if s.Disabled[n.Type] {
		return nil
	}
	var out []Channel
	for _, c := range n.Channels {
		switch c {
		case ChannelWeb:
			out = append(out, c)
		case ChannelEmail:
			if s.EmailEnabled {
				out = append(out, c)
			}
		case ChannelSlack:
			if s.SlackEnabled {
				out = append(out, c)
			}
		case ChannelSMS:
			if s.SMSEnabled {
				out = append(out, c)
			}
		case ChannelPush:
			if s.PushEnabled {
				out = append(out, c)
			}
		}
	}
	return out
}
