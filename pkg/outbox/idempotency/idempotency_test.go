package idempotency

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
)

type stubStore struct {
	setNXResults []bool
	setNXCalls   int
	deletedKeys  []string
}

func (s *stubStore) Get(context.Context, string) (string, error) { return "", nil }

func (s *stubStore) Set(context.Context, string, any, time.Duration) error { return nil }

func (s *stubStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	result := false
	if s.setNXCalls < len(s.setNXResults) {
		result = s.setNXResults[s.setNXCalls]
	}
	s.setNXCalls++
	return result, nil
}

func (s *stubStore) IdempotencyKey(scope, id string) string {
	return "fixit:idempotency:" + scope + ":" + id
}

func (s *stubStore) Del(ctx context.Context, keys ...string) error {
	s.deletedKeys = append(s.deletedKeys, keys...)
	return nil
}

func TestCheckAndMarkProcessed(t *testing.T) {
	store := &stubStore{setNXResults: []bool{true, false}}
	manager, err := NewManager(store, time.Hour)
	if err != nil {
		t.Fatalf("NewManager returned error: %v", err)
	}

	eventID := uuid.New()
	already, err := manager.CheckAndMarkProcessed(context.Background(), "worker", eventID)
	if err != nil {
		t.Fatalf("first check returned error: %v", err)
	}
	if already {
		t.Fatalf("first check should not report processed")
	}

	already, err = manager.CheckAndMarkProcessed(context.Background(), "worker", eventID)
	if err != nil {
		t.Fatalf("second check returned error: %v", err)
	}
	if !already {
		t.Fatalf("second check should report processed")
	}
}

func TestCheckRequiresConsumerAndEvent(t *testing.T) {
	manager, err := NewManager(&stubStore{}, time.Hour)
	if err != nil {
		t.Fatalf("NewManager returned error: %v", err)
	}
	if _, err := manager.CheckAndMarkProcessed(context.Background(), "", uuid.New()); err == nil {
		t.Fatalf("expected error for empty consumer")
	}
	if _, err := manager.CheckAndMarkProcessed(context.Background(), "worker", uuid.Nil); err == nil {
		t.Fatalf("expected error for nil event id")
	}
}

func TestDeleteClearsMarker(t *testing.T) {
	store := &stubStore{}
	manager, err := NewManager(store, time.Hour)
	if err != nil {
		t.Fatalf("NewManager returned error: %v", err)
	}
	eventID := uuid.New()
	if err := manager.Delete(context.Background(), "worker", eventID); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if len(store.deletedKeys) != 1 {
		t.Fatalf("expected one deleted key, got %d", len(store.deletedKeys))
	}
}
