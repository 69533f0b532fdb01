package payments

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// EventStore is the Redis surface the webhook guard needs: namespaced
// webhook keys plus atomic claim and release.
type EventStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	WebhookEventKey(provider, eventID string) string
}

// IdempotencyGuard drops duplicate webhook deliveries before the
// handler runs. First delivery of an event ID claims a Redis key with
// SETNX; replays within the TTL see the key and are skipped.
type IdempotencyGuard struct {
	store    EventStore
	ttl      time.Duration
	provider string
}

func NewIdempotencyGuard(store EventStore, ttl time.Duration, provider string) (*IdempotencyGuard, error) {
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	if ttl < 0 {
		return nil, errors.New("ttl must be non-negative")
	}
	if provider == "" {
		return nil, errors.New("provider is required")
	}
	return &IdempotencyGuard{
		store:    store,
		ttl:      ttl,
		provider: provider,
	}, nil
}

// CheckAndMark claims the event ID. It reports true when the event was
// already processed.
func (g *IdempotencyGuard) CheckAndMark(ctx context.Context, eventID string) (bool, error) {
	if eventID == "" {
		return false, errors.New("event id is required")
	}
	key := g.store.WebhookEventKey(g.provider, eventID)
	set, err := g.store.SetNX(ctx, key, "1", g.ttl)
	if err != nil {
		return false, fmt.Errorf("set webhook event key: %w", err)
	}
	return !set, nil
}

// Release frees the event ID so a failed delivery can be retried.
func (g *IdempotencyGuard) Release(ctx context.Context, eventID string) error {
	if eventID == "" {
		return errors.New("event id is required")
	}
	key := g.store.WebhookEventKey(g.provider, eventID)
	return g.store.Del(ctx, key)
}
