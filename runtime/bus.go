package runtime

import (
	"context"
	"log/slog"

	"chat-core/contract"
	"chat-core/domain/event"
)

// Bus is the in-process event pipe between producers (manager, coordinator,
// message store, dispatcher) and the fanout worker. Publish blocks when the
// buffer is full rather than dropping: producers publish outside their
// critical sections, so backpressure slows callers without holding any
// session lock.
type Bus struct {
	events chan event.DomainEvent
	log    *slog.Logger
}

var _ contract.EventPublisher = (*Bus)(nil)

func NewBus(bufferSize int, log *slog.Logger) *Bus {
	return &Bus{events: make(chan event.DomainEvent, bufferSize), log: log}
}

func (b *Bus) Publish(ctx context.Context, e event.DomainEvent) error {
	select {
	case b.events <- e:
		return nil
	case <-ctx.Done():
		b.log.Warn("Event dropped, context canceled during publish", "event", e.Name())
		return ctx.Err()
	}
}

// Events exposes the read side to the fanout worker.
func (b *Bus) Events() <-chan event.DomainEvent {
	return b.events
}
