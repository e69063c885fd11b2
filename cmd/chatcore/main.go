package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/Netflix/go-env"
	"github.com/blugelabs/bluge"
	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"

	"chat-core/auth"
	"chat-core/domain"
	"chat-core/internal"
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

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run initializes all components, manages the daemon lifecycle, and
// centralizes error reporting so every defer executes before exit.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	if err := config.Validate(); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	replacement, err := internal.CharacterRune(config.CharReplacement)
	if err != nil {
		return err
	}
	escalationAgent, err := uuid.Parse(config.EscalationAgentID)
	if err != nil {
		return fmt.Errorf("ESCALATION_AGENT_ID: %w", err)
	}

	// 2. Storage (BadgerDB + Bluge)
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.WARNING))
	if err != nil {
		return fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	blugeWriter, err := bluge.OpenWriter(bluge.DefaultConfig(config.BlugeFilepath))
	if err != nil {
		return fmt.Errorf("failed to open bluge writer: %w", err)
	}
	defer func() {
		log.Info("Closing transcript index...")
		_ = blugeWriter.Close()
	}()

	sessionRepo := repositories.NewSessionRepository(db, log)
	messageRepo := repositories.NewMessageRepository(db, log, nil)
	notifRepo := repositories.NewNotificationRepository(db, log)
	settingsRepo := repositories.NewSettingsRepository(db, log)

	// 3. Moderation
	blocklist, err := moderation.DefaultLoader().LoadAll("blocked")
	if err != nil {
		return err
	}
	log.Info(fmt.Sprintf("%d blocklist files loaded [%s]",
		len(blocklist.Languages), strings.Join(blocklist.Languages, ",")))
	masker, err := moderation.NewMasker(blocklist.Words, replacement)
	if err != nil {
		return err
	}

	// 4. Core components
	bus := runtime.NewBus(config.BufferSize, log)
	state := session.NewRegistry(sessionRepo, messageRepo.NextSeq, log)
	resolver := widget.NewResolver(log)
	tokens, err := auth.NewTokenService([]byte(config.SessionTokenSecret), config.SessionTokenDuration)
	if err != nil {
		return err
	}
	manager := session.NewManager(state, resolver, tokens, bus, log)
	coordinator := session.NewCoordinator(state, bus, log)
	store := message.NewStore(state, messageRepo, masker, bus, log)
	dispatcher := notification.NewDispatcher(notifRepo, settingsRepo, bus, config.DeliveryBufferSize, log)
	slaMonitor, err := notification.NewSLAMonitor(dispatcher,
		config.SLAWarningThreshold, config.SLABreachThreshold,
		escalationAgent, config.BufferSize, log)
	if err != nil {
		return err
	}
	inbox := projection.NewInbox()
	stats := observability.NewStats()
	index := search.NewTranscriptIndex(blugeWriter, log)

	// 5. Supervision & Orchestration
	sup := workers.NewSupervisor(log)
	registry := runtime.NewRegistry()
	orchestrator := runtime.NewOrchestrator(log, sup, registry, bus, config.SinkTimeout)
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
	orchestrator.AddWorkers(
		slaMonitor,
		notification.NewSweepWorker(dispatcher, config.SweepInterval, log),
		observability.NewHealthWorker(stats, config.MetricInterval, log),
	)

	if config.DebugPort != nil {
		internal.StartDebugServer(db, *config.DebugPort, nil, func() map[string]any {
			snap := stats.Snapshot()
			return map[string]any{
				"sessions_created":      snap.SessionsCreated,
				"sessions_ended":        snap.SessionsEnded,
				"messages_appended":     snap.MessagesAppended,
				"assignments":           snap.Assignments,
				"notifications_created": snap.NotificationsCreated,
			}
		})
		log.Info("Debug server started", "port", *config.DebugPort)
	}

	// 6. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 7. Start the engine
	errChan := make(chan error, 1)
	go func() {
		errChan <- orchestrator.Start(ctx)
	}()

	// 8. HTTP surface over the facade
	service := services.NewChatService(manager, coordinator, store, dispatcher,
		inbox, index, orchestrator, log)
	server := &http.Server{
		Addr:    config.ListenAddr,
		Handler: newAPI(service, resolver, log),
	}
	go func() {
		log.Info("Starting HTTP server", "addr", config.ListenAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("http server error: %w", err)
		}
	}()

	// 9. Wait for stop or error
	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case err := <-errChan:
		return err
	}

	// 10. Final cleanup
	_ = server.Shutdown(context.Background())
	orchestrator.Stop()
	log.Info("Program stopped cleanly")

	return nil
}
