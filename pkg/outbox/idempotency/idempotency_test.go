package idempotency

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

type stubStore struct {
	data   map[string]string
	setErr error
}

func newStubStore() *stubStore {
	return &stubStore{data: make(map[string]string)}
}

func (s *stubStore) Get(_ context.Context, key string) (string, error) {
	v, ok := s.data[key]
	if !ok {
		return "", errors.New("not found")
	}
	return v, nil
}

func (s *stubStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if s.setErr != nil {
		return false, s.setErr
	}
	if _, exists := s.data[key]; exists {
		return false, nil
	}
	s.data[key] = "1"
	return true, nil
}

func (s *stubStore) IdempotencyKey(scope, id string) string {
	return "fl:idempotency:" + scope + ":" + id
}

func (s *stubStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(s.data, key)
	}
	return nil
}

func TestCheckAndMarkProcessed(t *testing.T) {
	ctx := context.Background()
	store := newStubStore()
	mgr, err := NewManager(store, time.Hour)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	eventID := uuid.New()
	seen, err := mgr.CheckAndMarkProcessed(ctx, "order-events", eventID)
	if err != nil {
		t.Fatalf("first check failed: %v", err)
	}
	if seen {
		t.Fatal("first delivery should not be marked processed")
	}

	seen, err = mgr.CheckAndMarkProcessed(ctx, "order-events", eventID)
	if err != nil {
		t.Fatalf("second check failed: %v", err)
	}
	if !seen {
		t.Fatal("redelivery should be detected as processed")
	}

	// A different consumer keeps its own marker space.
	seen, err = mgr.CheckAndMarkProcessed(ctx, "notifications", eventID)
	if err != nil {
		t.Fatalf("cross-consumer check failed: %v", err)
	}
	if seen {
		t.Fatal("markers must be scoped per consumer")
	}
}

func TestDeleteAllowsRetry(t *testing.T) {
	ctx := context.Background()
	store := newStubStore()
	mgr, err := NewManager(store, time.Hour)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	eventID := uuid.New()
	if _, err := mgr.CheckAndMarkProcessed(ctx, "order-events", eventID); err != nil {
		t.Fatalf("mark failed: %v", err)
	}
	if err := mgr.Delete(ctx, "order-events", eventID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	seen, err := mgr.CheckAndMarkProcessed(ctx, "order-events", eventID)
	if err != nil {
		t.Fatalf("recheck failed: %v", err)
	}
	if seen {
		t.Fatal("deleted marker should allow reprocessing")
	}
}

func TestProcessedKeyValidation(t *testing.T) {
	store := newStubStore()
	mgr, err := NewManager(store, time.Hour)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	if _, err := mgr.CheckAndMarkProcessed(context.Background(), "", uuid.New()); err == nil || !strings.Contains(err.Error(), "consumer") {
		t.Fatalf("expected consumer validation error, got %v", err)
	}
	if _, err := mgr.CheckAndMarkProcessed(context.Background(), "order-events", uuid.Nil); err == nil || !strings.Contains(err.Error(), "event id") {
		t.Fatalf("expected event id validation error, got %v", err)
	}
}

func TestNewManagerValidation(t *testing.T) {
	if _, err := NewManager(nil, time.Hour); err == nil {
		t.Fatal("expected error for nil store")
	}
	if _, err := NewManager(newStubStore(), -time.Second); err == nil {
		t.Fatal("expected error for negative ttl")
	}
}
