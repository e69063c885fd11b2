// Package e2e runs full-stack scenarios against an in-process daemon: real
// badger, real bluge, real workers. No network, no mocks.
package e2e

import (
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/blugelabs/bluge"
	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/gookit/color"
	"github.com/mama165/sdk-go/logs"

	"chat-core/auth"
	"chat-core/domain"
	"chat-core/message"
	"chat-core/moderation"
	"chat-core/notification"
	"chat-core/observability"
	"chat-core/projection"
	"chat-core/repositories"
	"chat-core/runtime"
	"chat-core/runtime/workers"
	"chat-core/search"
	"chat-core/services"
	"chat-core/session"
	"chat-core/widget"
)

const (
	sinkTimeout  = 2 * time.Second
	busBuffer    = 256
	deliverySize = 64
)

// Stack is one fully wired in-process deployment.
type Stack struct {
	Service         services.IChatService
	Widgets         *widget.Resolver
	Dispatcher      *notification.Dispatcher
	Inbox           *projection.Inbox
	Stats           *observability.Stats
	Index           *search.TranscriptIndex
	EscalationAgent uuid.UUID
	Log             *slog.Logger

	colours      bool
	orchestrator *runtime.Orchestrator
	cancel       context.CancelFunc
	done         chan struct{}
}

// Step logs a scenario milestone, colorized when E2E_COLOURS is on.
func (s *Stack) Step(t *testing.T, format string, args ...any) {
	t.Helper()
	msg := fmt.Sprintf(format, args...)
	if s.colours {
		color.Cyan.Printf(">> %s\n", msg)
		return
	}
	t.Logf(">> %s", msg)
}

// StartStack boots the whole daemon on temporary storage. Cleanup stops the
// workers and closes both stores.
func StartStack(t *testing.T, cfg Config) *Stack {
	t.Helper()
	log := logs.GetLoggerFromLevel(slog.LevelDebug)

	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLogger(nil))
	if err != nil {
		t.Fatalf("badger open: %v", err)
	}
	blugeWriter, err := bluge.OpenWriter(bluge.DefaultConfig(t.TempDir()))
	if err != nil {
		t.Fatalf("bluge open: %v", err)
	}

	sessionRepo := repositories.NewSessionRepository(db, log)
	messageRepo := repositories.NewMessageRepository(db, log, nil)
	notifRepo := repositories.NewNotificationRepository(db, log)
	settingsRepo := repositories.NewSettingsRepository(db, log)

	masker, err := moderation.NewMasker([]string{"damn", "viagra"}, '*')
	if err != nil {
		t.Fatalf("masker: %v", err)
	}

	bus := runtime.NewBus(busBuffer, log)
	state := session.NewRegistry(sessionRepo, messageRepo.NextSeq, log)
	resolver := widget.NewResolver(log)
	tokens, err := auth.NewTokenService([]byte("e2e-secret-key"), 24*time.Hour)
	if err != nil {
		t.Fatalf("token service: %v", err)
	}
	manager := session.NewManager(state, resolver, tokens, bus, log)
	coordinator := session.NewCoordinator(state, bus, log)
	store := message.NewStore(state, messageRepo, masker, bus, log)
	dispatcher := notification.NewDispatcher(notifRepo, settingsRepo, bus, deliverySize, log)

	escalationAgent := uuid.New()
	slaMonitor, err := notification.NewSLAMonitor(dispatcher, cfg.SLAWarning, cfg.SLABreach,
		escalationAgent, busBuffer, log)
	if err != nil {
		t.Fatalf("sla monitor: %v", err)
	}
	inbox := projection.NewInbox()
	stats := observability.NewStats()
	index := search.NewTranscriptIndex(blugeWriter, log)

	sup := workers.NewSupervisor(log)
	registry := runtime.NewRegistry()
	orchestrator := runtime.NewOrchestrator(log, sup, registry, bus, sinkTimeout)
	orchestrator.Add(
		notification.NewBridge(dispatcher, escalationAgent, log),
		slaMonitor,
		inbox,
		observability.NewStatsSink(stats),
		search.NewIndexSink(index, log),
	)
	gateway := notification.NewLogGateway(log)
	for _, channel := range domain.Channels {
		orchestrator.AddWorkers(notification.NewDeliveryWorker(channel, dispatcher.Queue(channel), gateway, log))
	}
	orchestrator.AddWorkers(slaMonitor)

	service := services.NewChatService(manager, coordinator, store, dispatcher,
		inbox, index, orchestrator, log)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = orchestrator.Start(ctx)
	}()

	stack := &Stack{
		Service:         service,
		Widgets:         resolver,
		Dispatcher:      dispatcher,
		Inbox:           inbox,
		Stats:           stats,
		Index:           index,
		EscalationAgent: escalationAgent,
		Log:             log,
		colours:         cfg.Colours,
		orchestrator:    orchestrator,
		cancel:          cancel,
		done:            done,
	}
	t.Cleanup(func() {
		stack.cancel()
		<-stack.done
		_ = blugeWriter.Close()
		_ = db.Close()
	})
	return stack
}

// SeedWidget publishes an active widget configuration and returns it.
func (s *Stack) SeedWidget(t *testing.T, key domain.WidgetKey) domain.WidgetConfig {
	t.Helper()
	cfg := domain.WidgetConfig{
		ID:        uuid.New(),
		TenantID:  uuid.New(),
		ProjectID: uuid.New(),
		DomainID:  uuid.New(),
		Key:       key,
		Name:      "Support widget",
		IsActive:  true,
		Appearance: domain.Appearance{
			PrimaryColor: "#1a73e8",
			Position:     "bottom-right",
			Shape:        "rounded",
			BubbleStyle:  "modern",
		},
		Messaging: domain.Messaging{
			Welcome: "Hi! How can we help?",
			Offline: "Leave a message and we'll get back to you.",
		},
		Behavior: domain.Behavior{AutoOpenDelay: 5, AllowFileUploads: true},
	}
	if err := s.Widgets.Upsert(context.Background(), cfg); err != nil {
		t.Fatalf("seed widget: %v", err)
	}
	return cfg
}
