package events

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/shoplane/identity-service/internal/ports"
)

type fakeOutboxRepo struct {
	mu           sync.Mutex
	records      []ports.OutboxRecord
	published    []uuid.UUID
	failed       []uuid.UUID
	deadLettered []uuid.UUID
	claimTokens  map[uuid.UUID]string
	claimErr     error
}

func newFakeOutboxRepo(records ...ports.OutboxRecord) *fakeOutboxRepo {
	return &fakeOutboxRepo{records: records, claimTokens: map[uuid.UUID]string{}}
}

func (r *fakeOutboxRepo) ClaimUnpublished(_ context.Context, limit int, claimToken string, _ time.Time) ([]ports.OutboxRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.claimErr != nil {
		return nil, r.claimErr
	}
	out := r.records
	if len(out) > limit {
		out = out[:limit]
	}
	for _, rec := range out {
		r.claimTokens[rec.EventID] = claimToken
	}
	return out, nil
}

func (r *fakeOutboxRepo) MarkPublished(_ context.Context, eventID uuid.UUID, claimToken string, _ time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.claimTokens[eventID] != claimToken {
		return errors.New("claim token mismatch")
	}
	r.published = append(r.published, eventID)
	return nil
}

func (r *fakeOutboxRepo) MarkFailed(_ context.Context, eventID uuid.UUID, claimToken, _ string, _ time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.claimTokens[eventID] != claimToken {
		return errors.New("claim token mismatch")
	}
	r.failed = append(r.failed, eventID)
	return nil
}

func (r *fakeOutboxRepo) MarkDeadLettered(_ context.Context, eventID uuid.UUID, claimToken, _ string, _ time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.claimTokens[eventID] != claimToken {
		return errors.New("claim token mismatch")
	}
	r.deadLettered = append(r.deadLettered, eventID)
	return nil
}

type capturingPublisher struct {
	mu     sync.Mutex
	topics []string
	keys   []string
	byKey  map[string][]byte
	err    error
}

func newCapturingPublisher() *capturingPublisher {
	return &capturingPublisher{byKey: map[string][]byte{}}
}

func (p *capturingPublisher) Publish(_ context.Context, topic, partitionKey string, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.topics = append(p.topics, topic)
	p.keys = append(p.keys, partitionKey)
	p.byKey[partitionKey] = payload
	return nil
}

func testWorker(outbox ports.OutboxRepository, publisher ports.EventPublisher, maxRetries int) *OutboxWorker {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewOutboxWorker(logger, outbox, publisher, time.Second, 100, 30*time.Second, maxRetries)
}

func record(topic string, retryCount int) ports.OutboxRecord {
	return ports.OutboxRecord{
		EventID:      uuid.New(),
		EventType:    "identity.session.created",
		Topic:        topic,
		PartitionKey: uuid.NewString(),
		Payload:      []byte(`{"sessionId":"sess_1"}`),
		RetryCount:   retryCount,
	}
}

func TestOutboxWorkerPublishesBatch(t *testing.T) {
	t.Parallel()

	recs := []ports.OutboxRecord{
		record("identity.session.events", 0),
		record("identity.mfa.events", 0),
	}
	outbox := newFakeOutboxRepo(recs...)
	publisher := newCapturingPublisher()
	worker := testWorker(outbox, publisher, 5)

	if err := worker.ProcessOnce(context.Background()); err != nil {
		t.Fatalf("ProcessOnce: %v", err)
	}
	if len(outbox.published) != 2 {
		t.Fatalf("published = %d, want 2", len(outbox.published))
	}
	if len(publisher.topics) != 2 || publisher.topics[0] != "identity.session.events" {
		t.Errorf("topics = %v", publisher.topics)
	}
	for _, rec := range recs {
		if string(publisher.byKey[rec.PartitionKey]) != string(rec.Payload) {
			t.Errorf("payload for %s not delivered intact", rec.EventID)
		}
	}
}

func TestOutboxWorkerRetriesOnPublishFailure(t *testing.T) {
	t.Parallel()

	rec := record("identity.session.events", 0)
	outbox := newFakeOutboxRepo(rec)
	publisher := newCapturingPublisher()
	publisher.err = errors.New("broker unavailable")
	worker := testWorker(outbox, publisher, 5)

	if err := worker.ProcessOnce(context.Background()); err != nil {
		t.Fatalf("ProcessOnce: %v", err)
	}
	if len(outbox.failed) != 1 || outbox.failed[0] != rec.EventID {
		t.Fatalf("failed = %v, want the one record", outbox.failed)
	}
	if len(outbox.published) != 0 || len(outbox.deadLettered) != 0 {
		t.Error("record must neither publish nor dead-letter on first failure")
	}
}

func TestOutboxWorkerDeadLettersAtRetryLimit(t *testing.T) {
	t.Parallel()

	// One more failure reaches the limit.
	rec := record("identity.session.events", 4)
	outbox := newFakeOutboxRepo(rec)
	publisher := newCapturingPublisher()
	publisher.err = errors.New("broker unavailable")
	worker := testWorker(outbox, publisher, 5)

	if err := worker.ProcessOnce(context.Background()); err != nil {
		t.Fatalf("ProcessOnce: %v", err)
	}
	if len(outbox.deadLettered) != 1 || outbox.deadLettered[0] != rec.EventID {
		t.Fatalf("deadLettered = %v, want the exhausted record", outbox.deadLettered)
	}
	if len(outbox.failed) != 0 {
		t.Error("no further retry may be scheduled at the limit")
	}
}

func TestOutboxWorkerDeadLettersAlreadyExhausted(t *testing.T) {
	t.Parallel()

	rec := record("identity.session.events", 5)
	outbox := newFakeOutboxRepo(rec)
	publisher := newCapturingPublisher()
	worker := testWorker(outbox, publisher, 5)

	if err := worker.ProcessOnce(context.Background()); err != nil {
		t.Fatalf("ProcessOnce: %v", err)
	}
	if len(outbox.deadLettered) != 1 {
		t.Fatalf("deadLettered = %d, want 1", len(outbox.deadLettered))
	}
	if len(publisher.topics) != 0 {
		t.Error("exhausted record must not be published")
	}
}

func TestOutboxWorkerPropagatesClaimError(t *testing.T) {
	t.Parallel()

	outbox := newFakeOutboxRepo()
	outbox.claimErr = errors.New("db down")
	worker := testWorker(outbox, newCapturingPublisher(), 5)

	if err := worker.ProcessOnce(context.Background()); err == nil {
		t.Fatal("expected claim error to propagate")
	}
}

func TestOutboxWorkerRunStopsOnCancel(t *testing.T) {
	t.Parallel()

	outbox := newFakeOutboxRepo(record("identity.session.events", 0))
	publisher := newCapturingPublisher()
	worker := testWorker(outbox, publisher, 5)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- worker.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Run returned %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancellation")
	}

	// The loop processes once before waiting on the ticker.
	if len(outbox.published) != 1 {
		t.Errorf("published = %d, want 1 from the initial iteration", len(outbox.published))
	}
}
