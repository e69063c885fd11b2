// Package runtime handles event propagation and worker supervision. It
// orchestrates the system without containing business logic or domain rules.
package runtime

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"chat-core/contract"
	"chat-core/runtime/workers"
)

type Orchestrator struct {
	mu             sync.Mutex
	log            *slog.Logger
	supervisor     contract.ISupervisor
	registry       contract.IRegistry
	bus            *Bus
	permanentSinks []contract.EventSink
	workers        []contract.Worker
	sinkTimeout    time.Duration
}

func NewOrchestrator(log *slog.Logger, supervisor *workers.Supervisor,
	registry *Registry, bus *Bus, sinkTimeout time.Duration) *Orchestrator {
	return &Orchestrator{
		log:         log,
		supervisor:  supervisor,
		registry:    registry,
		bus:         bus,
		sinkTimeout: sinkTimeout,
	}
}

// Add registers permanent sinks. They receive every event the bus carries.
func (o *Orchestrator) Add(sinks ...contract.EventSink) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.permanentSinks = append(o.permanentSinks, sinks...)
}

// AddWorkers registers workers to run under supervision alongside the
// fanout: delivery drains, the SLA monitor, the sweeper, metrics.
func (o *Orchestrator) AddWorkers(w ...contract.Worker) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.workers = append(o.workers, w...)
}

// RegisterParticipant attaches a live subscriber to one session's events.
func (o *Orchestrator) RegisterParticipant(pID string, sessionID uuid.UUID, sink contract.EventSink) {
	o.registry.Subscribe(pID, sessionID, sink)
}

// UnregisterParticipant disconnects a subscriber.
func (o *Orchestrator) UnregisterParticipant(pID string, sessionID uuid.UUID) {
	o.registry.Unsubscribe(pID, sessionID)
}

// Start prepares the pipeline and then runs the supervisor. Preparation
// happens before the lock so the critical section only covers supervisor
// registration; Run blocks until Stop or parent cancellation.
func (o *Orchestrator) Start(ctx context.Context) error {
	fanoutWorker := workers.NewEventFanout(o.log, o.bus.Events(), o.registry, o.sinkTimeout)

	o.mu.Lock()
	fanoutWorker.Add(o.permanentSinks...)
	o.supervisor.Add(fanoutWorker)
	for _, w := range o.workers {
		o.supervisor.Add(w)
	}
	o.mu.Unlock()

	o.log.Info("Starting orchestrator and all supervised workers")
	o.supervisor.Run(ctx)
	return nil
}

// Stop initiates a graceful shutdown. Cancels the supervision context so
// workers stop blocking; Start returns once every goroutine has finished.
func (o *Orchestrator) Stop() {
	o.log.Info("Requesting orchestrator shutdown")
	o.supervisor.Stop()
}
