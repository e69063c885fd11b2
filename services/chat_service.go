// Package services exposes the core as one facade. Transports (HTTP,
// websocket, gRPC) live outside this module and talk to IChatService;
// nothing here knows about wire formats.
package services

import (
	"context"
	"log/slog"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"chat-core/contract"
	"chat-core/domain"
	"chat-core/message"
	"chat-core/projection"
	"chat-core/runtime"
	"chat-core/search"
	"chat-core/session"
)

var validate = validator.New()

type IChatService interface {
	CreateSession(ctx context.Context, req CreateSessionRequest) (domain.Session, error)
	GetSession(ctx context.Context, sessionID uuid.UUID) (domain.Session, error)
	EndSession(ctx context.Context, sessionID uuid.UUID) (domain.Session, error)
	TransferSession(ctx context.Context, sessionID, targetAgentID uuid.UUID) (domain.Session, error)
	TouchSession(ctx context.Context, sessionID uuid.UUID) error

	ClaimSession(ctx context.Context, sessionID, agentID uuid.UUID) (domain.Session, error)
	ReleaseSession(ctx context.Context, sessionID, agentID uuid.UUID) (domain.Session, error)

	SubmitMessage(ctx context.Context, req SubmitMessageRequest) (domain.Message, error)
	MarkMessagesRead(ctx context.Context, sessionID uuid.UUID, party domain.Party, upToSeq uint64) (int, error)
	GetTranscript(ctx context.Context, sessionID uuid.UUID, caller message.Caller) ([]domain.Message, error)
	PageTranscript(ctx context.Context, sessionID uuid.UUID, caller message.Caller, cursor *string) ([]domain.Message, *string, error)
	SearchTranscripts(ctx context.Context, tenantID uuid.UUID, sessionID *uuid.UUID, text string, limit int) ([]search.Hit, error)

	ListNotifications(ctx context.Context, tenantID, agentID uuid.UUID, filter contract.NotificationFilter) ([]domain.Notification, error)
	MarkNotificationRead(ctx context.Context, id uuid.UUID) error
	MarkAllNotificationsRead(ctx context.Context, tenantID, agentID uuid.UUID) (int, error)
	UpdateNotificationSettings(ctx context.Context, settings domain.NotificationSettings) error
	UnreadCounts(agentID uuid.UUID) (unread, urgent uint64)

	Join(participantID string, sessionID uuid.UUID, sink contract.EventSink)
	Leave(participantID string, sessionID uuid.UUID)
}

// NotificationReader is the read/acknowledge surface of the dispatcher.
type NotificationReader interface {
	List(ctx context.Context, tenantID, agentID uuid.UUID, filter contract.NotificationFilter) ([]domain.Notification, error)
	MarkRead(ctx context.Context, id uuid.UUID) error
	MarkAllRead(ctx context.Context, tenantID, agentID uuid.UUID) (int, error)
	UpdateSettings(ctx context.Context, settings domain.NotificationSettings) error
}

type CreateSessionRequest struct {
	WidgetKey   string            `validate:"required,max=128"`
	VisitorInfo map[string]string `validate:"max=32,dive,keys,max=64,endkeys,max=512"`
}

type SubmitMessageRequest struct {
	SessionID  uuid.UUID          `validate:"required"`
	Type       domain.MessageType `validate:"required,oneof=text file image system"`
	Content    string             `validate:"required_without=Payload,max=8192"`
	AuthorType domain.AuthorType  `validate:"required,oneof=visitor agent system"`
	AuthorID   *uuid.UUID
	AuthorName string `validate:"required,max=128"`
	IsPrivate  bool
	Metadata   map[string]string `validate:"max=16,dive,keys,max=64,endkeys,max=512"`
	Payload    []byte
}

type ChatService struct {
	manager       *session.Manager
	coordinator   *session.Coordinator
	messages      *message.Store
	notifications NotificationReader
	inbox         *projection.Inbox
	index         *search.TranscriptIndex
	orchestrator  *runtime.Orchestrator
	log           *slog.Logger
}

var _ IChatService = (*ChatService)(nil)

func NewChatService(manager *session.Manager, coordinator *session.Coordinator,
	messages *message.Store, notifications NotificationReader, inbox *projection.Inbox,
	index *search.TranscriptIndex, orchestrator *runtime.Orchestrator, log *slog.Logger) *ChatService {
	return &ChatService{
		manager:       manager,
		coordinator:   coordinator,
		messages:      messages,
		notifications: notifications,
		inbox:         inbox,
		index:         index,
		orchestrator:  orchestrator,
		log:           log,
	}
}

func (s *ChatService) CreateSession(ctx context.Context, req CreateSessionRequest) (domain.Session, error) {
	if err := validate.Struct(req); err != nil {
		return domain.Session{}, err
	}
	return s.manager.Create(ctx, domain.WidgetKey(req.WidgetKey), req.VisitorInfo)
}

func (s *ChatService) GetSession(ctx context.Context, sessionID uuid.UUID) (domain.Session, error) {
	return s.manager.Get(ctx, sessionID)
}

func (s *ChatService) EndSession(ctx context.Context, sessionID uuid.UUID) (domain.Session, error) {
	return s.manager.End(ctx, sessionID)
}

func (s *ChatService) TransferSession(ctx context.Context, sessionID, targetAgentID uuid.UUID) (domain.Session, error) {
	return s.manager.Transfer(ctx, sessionID, targetAgentID)
}

func (s *ChatService) TouchSession(ctx context.Context, sessionID uuid.UUID) error {
	return s.manager.Touch(ctx, sessionID)
}

func (s *ChatService) ClaimSession(ctx context.Context, sessionID, agentID uuid.UUID) (domain.Session, error) {
	return s.coordinator.Claim(ctx, sessionID, agentID)
}

func (s *ChatService) ReleaseSession(ctx context.Context, sessionID, agentID uuid.UUID) (domain.Session, error) {
	return s.coordinator.Release(ctx, sessionID, agentID)
}

func (s *ChatService) SubmitMessage(ctx context.Context, req SubmitMessageRequest) (domain.Message, error) {
	if err := validate.Struct(req); err != nil {
		return domain.Message{}, err
	}
	return s.messages.Append(ctx, message.AppendRequest{
		SessionID:  req.SessionID,
		Type:       req.Type,
		Content:    req.Content,
		AuthorType: req.AuthorType,
		AuthorID:   req.AuthorID,
		AuthorName: req.AuthorName,
		IsPrivate:  req.IsPrivate,
		Metadata:   req.Metadata,
		Payload:    req.Payload,
	})
}

func (s *ChatService) MarkMessagesRead(ctx context.Context, sessionID uuid.UUID, party domain.Party, upToSeq uint64) (int, error) {
	return s.messages.MarkRead(ctx, sessionID, party, upToSeq)
}

func (s *ChatService) GetTranscript(ctx context.Context, sessionID uuid.UUID, caller message.Caller) ([]domain.Message, error) {
	return s.messages.List(ctx, sessionID, caller)
}

func (s *ChatService) PageTranscript(ctx context.Context, sessionID uuid.UUID, caller message.Caller, cursor *string) ([]domain.Message, *string, error) {
	return s.messages.Page(ctx, sessionID, caller, cursor)
}

func (s *ChatService) SearchTranscripts(ctx context.Context, tenantID uuid.UUID, sessionID *uuid.UUID, text string, limit int) ([]search.Hit, error) {
	return s.index.Search(ctx, tenantID, sessionID, text, limit)
}

func (s *ChatService) ListNotifications(ctx context.Context, tenantID, agentID uuid.UUID, filter contract.NotificationFilter) ([]domain.Notification, error) {
	return s.notifications.List(ctx, tenantID, agentID, filter)
}

func (s *ChatService) MarkNotificationRead(ctx context.Context, id uuid.UUID) error {
	return s.notifications.MarkRead(ctx, id)
}

func (s *ChatService) MarkAllNotificationsRead(ctx context.Context, tenantID, agentID uuid.UUID) (int, error) {
	return s.notifications.MarkAllRead(ctx, tenantID, agentID)
}

func (s *ChatService) UpdateNotificationSettings(ctx context.Context, settings domain.NotificationSettings) error {
	return s.notifications.UpdateSettings(ctx, settings)
}

func (s *ChatService) UnreadCounts(agentID uuid.UUID) (unread, urgent uint64) {
	return s.inbox.Unread(agentID)
}

func (s *ChatService) Join(participantID string, sessionID uuid.UUID, sink contract.EventSink) {
	s.orchestrator.RegisterParticipant(participantID, sessionID, sink)
}

func (s *ChatService) Leave(participantID string, sessionID uuid.UUID) {
	s.orchestrator.UnregisterParticipant(participantID, sessionID)
}
