package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/renubu/renubu/internal/db/dbtest"
	"github.com/renubu/renubu/internal/kafka"
	"github.com/renubu/renubu/internal/model"
	"github.com/renubu/renubu/internal/repository"
	"github.com/renubu/renubu/internal/service/accounts"
	"github.com/renubu/renubu/internal/service/founder"
)

type fakePub struct {
	mu   sync.Mutex
	recs []kafka.Record
	err  error
}

func (p *fakePub) Publish(_ context.Context, recs ...kafka.Record) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.recs = append(p.recs, recs...)
	return nil
}

func seedOutbox(t *testing.T, repo *repository.OutboxRepositoryImpl, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		if _, err := repo.Insert(context.Background(), nil, "task", "t1", "renubu.tasks", []byte(`{"id":"x"}`)); err != nil {
			t.Fatalf("insert outbox: %v", err)
		}
	}
}

func TestRelayPublishesAndMarks(t *testing.T) {
	dbx := dbtest.Open(t)
	outbox := repository.NewOutboxRepository(dbx)
	seedOutbox(t, outbox, 3)

	pub := &fakePub{}
	r := NewRelay(outbox, pub, 2, time.Second)
	ctx := context.Background()

	n, err := r.Tick(ctx)
	if err != nil || n != 2 {
		t.Fatalf("first tick = %d, %v", n, err)
	}
	n, err = r.Tick(ctx)
	if err != nil || n != 1 {
		t.Fatalf("second tick = %d, %v", n, err)
	}
	n, err = r.Tick(ctx)
	if err != nil || n != 0 {
		t.Fatalf("empty tick = %d, %v", n, err)
	}

	if len(pub.recs) != 3 {
		t.Fatalf("published %d records", len(pub.recs))
	}
	for _, rec := range pub.recs {
		if rec.Topic != "renubu.tasks" || rec.Key != "t1" {
			t.Errorf("record = %+v", rec)
		}
	}
}

func TestRelayFailureKeepsRowsAndBumpsAttempts(t *testing.T) {
	dbx := dbtest.Open(t)
	outbox := repository.NewOutboxRepository(dbx)
	seedOutbox(t, outbox, 2)

	pub := &fakePub{err: errors.New("broker down")}
	r := NewRelay(outbox, pub, 10, time.Second)
	ctx := context.Background()

	if _, err := r.Tick(ctx); err == nil {
		t.Fatal("expected publish error")
	}
	rows, err := outbox.ListUnpublished(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("unpublished = %d", len(rows))
	}
	for _, row := range rows {
		if row.Attempts != 1 {
			t.Errorf("attempts = %d", row.Attempts)
		}
	}

	pub.err = nil
	if n, err := r.Tick(ctx); err != nil || n != 2 {
		t.Fatalf("retry = %d, %v", n, err)
	}
}

type fakeFetcher struct {
	mu        sync.Mutex
	committed []int64
}

func (f *fakeFetcher) Fetch(ctx context.Context) (kafka.Message, error) {
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (f *fakeFetcher) Commit(_ context.Context, m kafka.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.committed = append(f.committed, m.Offset)
	return nil
}

type fakeRescorer struct {
	ids []string
	err error
}

func (r *fakeRescorer) Rescore(_ context.Context, id string) (*accounts.RescoreResult, error) {
	r.ids = append(r.ids, id)
	if r.err != nil {
		return nil, r.err
	}
	return &accounts.RescoreResult{}, nil
}

func envelope(t *testing.T, typ, aggregateID string) []byte {
	t.Helper()
	b, err := json.Marshal(model.Envelope{ID: "01J", Type: typ, AggregateID: aggregateID})
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func TestScorerProcess(t *testing.T) {
	f := &fakeFetcher{}
	acc := &fakeRescorer{}
	s := NewScorer(f, acc, 1)
	ctx := context.Background()

	s.process(ctx, kafka.Message{Offset: 1, Value: envelope(t, SignalRecorded, "c1")})
	s.process(ctx, kafka.Message{Offset: 2, Value: []byte("not json")})
	s.process(ctx, kafka.Message{Offset: 3, Value: envelope(t, "customer.created", "c2")})

	acc.err = accounts.ErrNotFound
	s.process(ctx, kafka.Message{Offset: 4, Value: envelope(t, SignalRecorded, "gone")})

	if len(acc.ids) != 2 || acc.ids[0] != "c1" || acc.ids[1] != "gone" {
		t.Errorf("rescored = %v", acc.ids)
	}
	if len(f.committed) != 4 {
		t.Errorf("committed = %v, want every message", f.committed)
	}
}

func TestScorerRunStopsOnCancel(t *testing.T) {
	s := NewScorer(&fakeFetcher{}, &fakeRescorer{}, 2)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("run = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("scorer did not stop")
	}
}

type fakeTasks struct{ woke, forced int }

func (f fakeTasks) WakeDue(context.Context) (int, error)          { return f.woke, nil }
func (f fakeTasks) EnforceDeadlines(context.Context) (int, error) { return f.forced, errors.New("db locked") }

type fakeEscalator struct{ n int }

func (f fakeEscalator) EscalationCheck(context.Context) (*founder.EscalationReport, error) {
	return &founder.EscalationReport{Escalated: f.n}, nil
}

func TestSweeperTickContinuesPastErrors(t *testing.T) {
	s := NewSweeper(fakeTasks{woke: 2}, fakeEscalator{n: 1}, time.Minute)
	res := s.Tick(context.Background())
	if res.Woken != 2 || res.Forced != 0 || res.Escalated != 1 {
		t.Errorf("result = %+v", res)
	}
}
