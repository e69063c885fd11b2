// Package widget resolves a public widget key to an immutable configuration
// snapshot. Snapshots are shared read-only across every session of the
// widget; administrative updates publish a fresh snapshot with an atomic
// swap so in-flight sessions never observe a half-updated configuration.
package widget

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"chat-core/domain"
	"chat-core/errors"
)

type snapshot struct {
	byKey map[domain.WidgetKey]domain.WidgetConfig
	byID  map[uuid.UUID]domain.WidgetConfig
}

type Resolver struct {
	log  *slog.Logger
	snap atomic.Pointer[snapshot]
}

func NewResolver(log *slog.Logger) *Resolver {
	r := &Resolver{log: log}
	r.snap.Store(&snapshot{
		byKey: map[domain.WidgetKey]domain.WidgetConfig{},
		byID:  map[uuid.UUID]domain.WidgetConfig{},
	})
	return r
}

// Resolve returns the current snapshot for the key. The returned value is a
// copy; callers can hold it for the lifetime of a session without locking.
func (r *Resolver) Resolve(_ context.Context, key domain.WidgetKey) (domain.WidgetConfig, error) {
	cfg, ok := r.snap.Load().byKey[key]
	if !ok {
		return domain.WidgetConfig{}, fmt.Errorf("widget %q: %w", key, errors.ErrNotFound)
	}
	return cfg, nil
}

// Get resolves by widget id, for administrative callers.
func (r *Resolver) Get(_ context.Context, id uuid.UUID) (domain.WidgetConfig, error) {
	cfg, ok := r.snap.Load().byID[id]
	if !ok {
		return domain.WidgetConfig{}, fmt.Errorf("widget %s: %w", id, errors.ErrNotFound)
	}
	return cfg, nil
}

// Upsert validates the configuration and publishes a new snapshot containing
// it. The previous snapshot stays intact for readers that already loaded it.
func (r *Resolver) Upsert(_ context.Context, cfg domain.WidgetConfig) error {
	if err := validateConfig(cfg); err != nil {
		return err
	}
	cfg.UpdatedAt = time.Now().UTC()
	r.swap(func(next *snapshot) {
		next.byKey[cfg.Key] = cfg
		next.byID[cfg.ID] = cfg
	})
	r.log.Info("widget configuration published", "widget_id", cfg.ID, "key", cfg.Key, "active", cfg.IsActive)
	return nil
}

// SetActive flips the is_active flag through a full snapshot swap.
func (r *Resolver) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	cfg, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	cfg.IsActive = active
	return r.Upsert(ctx, cfg)
}

// swap copies the current snapshot, applies fn to the copy, and publishes it.
// Copy-on-write keeps Resolve lock-free.
func (r *Resolver) swap(fn func(next *snapshot)) {
	for {
		cur := r.snap.Load()
		next := &snapshot{
			byKey: make(map[domain.WidgetKey]domain.WidgetConfig, len(cur.byKey)+1),
			byID:  make(map[uuid.UUID]domain.WidgetConfig, len(cur.byID)+1),
		}
		for k, v := range cur.byKey {
			next.byKey[k] = v
		}
		for k, v := range cur.byID {
			next.byID[k] = v
		}
		fn(next)
		if r.snap.CompareAndSwap(cur, next) {
			return
		}
	}
}
