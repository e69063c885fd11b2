package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"chat-core/contract"
	"chat-core/domain"
	"chat-core/domain/event"
	"chat-core/errors"
)

// memSessionRepo keeps sessions in a map. Mirrors the persistence contract
// without disk so lifecycle tests stay fast.
type memSessionRepo struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]domain.Session
}

func newMemSessionRepo() *memSessionRepo {
	return &memSessionRepo{sessions: make(map[uuid.UUID]domain.Session)}
}

func (r *memSessionRepo) Save(s domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.ID] = s
	return nil
}

func (r *memSessionRepo) Get(id uuid.UUID) (domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return domain.Session{}, fmt.Errorf("session %s: %w", id, errors.ErrNotFound)
	}
	return s, nil
}

func (r *memSessionRepo) List(tenantID uuid.UUID, filter contract.SessionFilter) ([]domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Session
	for _, s := range r.sessions {
		if s.TenantID == tenantID {
			out = append(out, s)
		}
	}
	return out, nil
}

func seqAlwaysOne(uuid.UUID) (uint64, error) { return 1, nil }

// captureBus records published events in order.
type captureBus struct {
	mu     sync.Mutex
	events []event.DomainEvent
}

func (b *captureBus) Publish(_ context.Context, e event.DomainEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, e)
	return nil
}

func (b *captureBus) byName(name string) []event.DomainEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []event.DomainEvent
	for _, e := range b.events {
		if e.Name() == name {
			out = append(out, e)
		}
	}
	return out
}

// staticConfigs resolves every key to the same configuration.
type staticConfigs struct {
	cfg domain.WidgetConfig
}

func (c staticConfigs) Resolve(_ context.Context, key domain.WidgetKey) (domain.WidgetConfig, error) {
	if key != c.cfg.Key {
		return domain.WidgetConfig{}, fmt.Errorf("widget %q: %w", key, errors.ErrNotFound)
	}
	return c.cfg, nil
}

type staticTokens struct{}

func (staticTokens) IssueSessionToken(sessionID, tenantID uuid.UUID) (string, error) {
	return "token-" + sessionID.String()[:8], nil
}

func activeWidget() domain.WidgetConfig {
	return domain.WidgetConfig{
		ID:        uuid.New(),
		TenantID:  uuid.New(),
		ProjectID: uuid.New(),
		Key:       "wk_test",
		Name:      "Test widget",
		IsActive:  true,
	}
}

func newTestManager(cfg domain.WidgetConfig) (*Manager, *Registry, *captureBus) {
	log := slog.Default()
	state := NewRegistry(newMemSessionRepo(), seqAlwaysOne, log)
	bus := &captureBus{}
	manager := NewManager(state, staticConfigs{cfg: cfg}, staticTokens{}, bus, log)
	return manager, state, bus
}
