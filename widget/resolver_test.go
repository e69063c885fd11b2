package widget

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"chat-core/domain"
	"chat-core/errors"
)

func validConfig(key domain.WidgetKey) domain.WidgetConfig {
	return domain.WidgetConfig{
		ID:       uuid.New(),
		TenantID: uuid.New(),
		Key:      key,
		Name:     "Support widget",
		IsActive: true,
		Appearance: domain.Appearance{
			PrimaryColor: "#1a73e8",
			Position:     "bottom-right",
			Shape:        "rounded",
			BubbleStyle:  "modern",
		},
		Behavior: domain.Behavior{AutoOpenDelay: 5},
	}
}

func TestResolver_UpsertAndResolve(t *testing.T) {
	req := require.New(t)
	resolver := NewResolver(slog.Default())
	ctx := context.Background()

	cfg := validConfig("wk_alpha")
	req.NoError(resolver.Upsert(ctx, cfg))

	resolved, err := resolver.Resolve(ctx, "wk_alpha")
	req.NoError(err)
	req.Equal(cfg.ID, resolved.ID)
	req.False(resolved.UpdatedAt.IsZero())

	byID, err := resolver.Get(ctx, cfg.ID)
	req.NoError(err)
	req.Equal(cfg.Key, byID.Key)

	_, err = resolver.Resolve(ctx, "wk_missing")
	req.ErrorIs(err, errors.ErrNotFound)
}

func TestResolver_InactiveWidgetStaysResolvable(t *testing.T) {
	req := require.New(t)
	resolver := NewResolver(slog.Default())
	ctx := context.Background()

	cfg := validConfig("wk_paused")
	cfg.IsActive = false
	req.NoError(resolver.Upsert(ctx, cfg))

	// Resolution is a lookup, not an admission check; session creation
	// rejects inactive widgets, the resolver does not.
	resolved, err := resolver.Resolve(ctx, "wk_paused")
	req.NoError(err)
	req.False(resolved.IsActive)
}

func TestResolver_SetActive(t *testing.T) {
	req := require.New(t)
	resolver := NewResolver(slog.Default())
	ctx := context.Background()

	cfg := validConfig("wk_toggle")
	req.NoError(resolver.Upsert(ctx, cfg))

	req.NoError(resolver.SetActive(ctx, cfg.ID, false))
	resolved, err := resolver.Resolve(ctx, "wk_toggle")
	req.NoError(err)
	req.False(resolved.IsActive)

	req.ErrorIs(resolver.SetActive(ctx, uuid.New(), true), errors.ErrNotFound)
}

func TestResolver_ValidationRejectsBadConfig(t *testing.T) {
	req := require.New(t)
	resolver := NewResolver(slog.Default())
	ctx := context.Background()

	bad := validConfig("wk_bad")
	bad.Appearance.PrimaryColor = "blue"
	req.Error(resolver.Upsert(ctx, bad))

	bad = validConfig("wk_bad")
	bad.Appearance.Position = "top-center"
	req.Error(resolver.Upsert(ctx, bad))

	bad = validConfig("wk_bad")
	bad.Name = ""
	req.Error(resolver.Upsert(ctx, bad))

	bad = validConfig("wk_bad")
	bad.Behavior.AutoOpenDelay = 600
	req.Error(resolver.Upsert(ctx, bad))

	// Nothing was published.
	_, err := resolver.Resolve(ctx, "wk_bad")
	req.ErrorIs(err, errors.ErrNotFound)
}

func TestResolver_ConcurrentUpsertsAllLand(t *testing.T) {
	req := require.New(t)
	resolver := NewResolver(slog.Default())
	ctx := context.Background()

	const writers = 32
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			cfg := validConfig(domain.WidgetKey(fmt.Sprintf("wk_%02d", n)))
			if err := resolver.Upsert(ctx, cfg); err != nil {
				t.Errorf("upsert: %v", err)
			}
		}(i)
	}
	wg.Wait()

	// Copy-on-write must not lose concurrent publications.
	for i := 0; i < writers; i++ {
		_, err := resolver.Resolve(ctx, domain.WidgetKey(fmt.Sprintf("wk_%02d", i)))
		req.NoError(err)
	}
}
