package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/freshlane/freshlane-backend/pkg/config"
	"github.com/freshlane/freshlane-backend/pkg/db/models"
	"github.com/freshlane/freshlane-backend/pkg/enums"
	"github.com/freshlane/freshlane-backend/pkg/logger"
	"github.com/freshlane/freshlane-backend/pkg/outbox"
)

func TestProcessBatchPublishesEvent(t *testing.T) {
	event := testEvent(t, enums.EventOrderCreated)
	repo := &fakeRepo{events: []models.OutboxEvent{event}}
	pub := &fakePublisher{}
	service := newTestService(t, repo, pub, nil)

	processed, err := service.processBatch(context.Background())
	if err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if !processed {
		t.Fatalf("expected batch to report processed")
	}
	if len(repo.published) != 1 || repo.published[0] != event.ID {
		t.Fatalf("published rows mismatch: %v", repo.published)
	}
	if len(pub.messages) != 1 {
		t.Fatalf("expected one publish, got %d", len(pub.messages))
	}

	msg := pub.messages[0]
	if string(msg.Data) != string(event.Payload) {
		t.Fatalf("payload mismatch: %s", msg.Data)
	}
	if msg.Attributes["event_id"] != event.ID.String() {
		t.Fatalf("event_id attribute mismatch: %s", msg.Attributes["event_id"])
	}
	if msg.Attributes["event_type"] != string(enums.EventOrderCreated) {
		t.Fatalf("event_type attribute mismatch: %s", msg.Attributes["event_type"])
	}
	if msg.Attributes["aggregate_id"] != event.AggregateID.String() {
		t.Fatalf("aggregate_id attribute mismatch: %s", msg.Attributes["aggregate_id"])
	}
}

func TestProcessBatchContinuesAfterFailure(t *testing.T) {
	first := testEvent(t, enums.EventOrderCreated)
	second := testEvent(t, enums.EventOrderCreated)
	repo := &fakeRepo{events: []models.OutboxEvent{first, second}}
	pub := &fakePublisher{
		failFor: map[string]error{
			first.ID.String(): errors.New("broker unavailable"),
		},
	}
	service := newTestService(t, repo, pub, nil)
	service.retryBase = time.Millisecond

	processed, err := service.processBatch(context.Background())
	if err == nil {
		t.Fatalf("expected combined error for the failed event")
	}
	if !processed {
		t.Fatalf("expected batch to report processed")
	}
	if len(repo.failed) != 1 || repo.failed[0] != first.ID {
		t.Fatalf("failed rows mismatch: %v", repo.failed)
	}
	if len(repo.published) != 1 || repo.published[0] != second.ID {
		t.Fatalf("published rows mismatch: %v", repo.published)
	}
}

func TestProcessBatchReportsIdleWhenEmpty(t *testing.T) {
	repo := &fakeRepo{}
	service := newTestService(t, repo, &fakePublisher{}, nil)

	processed, err := service.processBatch(context.Background())
	if err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if processed {
		t.Fatalf("expected idle batch")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	repo := &fakeRepo{}
	service := newTestService(t, repo, &fakePublisher{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := service.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestNewServiceRequiresRepository(t *testing.T) {
	cfg := &config.Config{}
	logg := logger.New(logger.Options{ServiceName: "outbox-publisher-test", Output: io.Discard})
	_, err := NewService(ServiceParams{
		Config:    cfg,
		Logger:    logg,
		DB:        &fakeDB{},
		PubSub:    &fakeDB{},
		Publisher: &fakePublisher{},
	})
	if err == nil {
		t.Fatalf("expected constructor error without repository")
	}
}

func newTestService(t *testing.T, repo outboxRepository, pub publisher, outboxCfg *config.OutboxConfig) *Service {
	t.Helper()
	cfg := &config.Config{
		Outbox: config.OutboxConfig{
			BatchSize:      10,
			PollIntervalMS: 50,
			MaxAttempts:    5,
		},
	}
	if outboxCfg != nil {
		cfg.Outbox = *outboxCfg
	}
	logg := logger.New(logger.Options{
		ServiceName: "outbox-publisher-test",
		Output:      io.Discard,
	})
	service, err := NewService(ServiceParams{
		Config:     cfg,
		Logger:     logg,
		DB:         &fakeDB{},
		PubSub:     &fakeDB{},
		Repository: repo,
		Publisher:  pub,
	})
	if err != nil {
		t.Fatalf("failed to construct service: %v", err)
	}
	return service
}

func testEvent(t *testing.T, eventType enums.OutboxEventType) models.OutboxEvent {
	t.Helper()
	env := outbox.PayloadEnvelope{
		Version:    1,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now().UTC(),
		Data:       json.RawMessage(`{}`),
	}
	payload, err := json.Marshal(env)
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	return models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     eventType,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Payload:       payload,
		CreatedAt:     time.Now().UTC(),
	}
}

type fakeRepo struct {
	events    []models.OutboxEvent
	published []uuid.UUID
	failed    []uuid.UUID
}

func (f *fakeRepo) FetchUnpublished(limit, maxAttempts int) ([]models.OutboxEvent, error) {
	return f.events, nil
}

func (f *fakeRepo) MarkPublished(id uuid.UUID) error {
	f.published = append(f.published, id)
	return nil
}

func (f *fakeRepo) MarkFailed(id uuid.UUID, err error) error {
	f.failed = append(f.failed, id)
	return nil
}

type fakeDB struct{}

func (f *fakeDB) Ping(context.Context) error {
	return nil
}

type fakePublisher struct {
	failFor  map[string]error
	messages []*gcppubsub.Message
}

func (f *fakePublisher) Publish(_ context.Context, msg *gcppubsub.Message) publishResult {
	f.messages = append(f.messages, msg)
	return fakePublishResult{err: f.failFor[msg.Attributes["event_id"]]}
}

type fakePublishResult struct {
	err error
}

func (f fakePublishResult) Get(context.Context) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "msg-id", nil
}
