package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/quizhub-backend/internal/model"
	"github.com/stemsi/quizhub-backend/internal/queue"
	"github.com/stemsi/quizhub-backend/internal/service"
)

type countingSweeper struct{ calls atomic.Int32 }

func (s *countingSweeper) SweepExpired(context.Context) (int, error) {
	s.calls.Add(1)
	return 0, nil
}

func TestPeriodicRunsImmediatelyAndStops(t *testing.T) {
	s := &countingSweeper{}
	w := NewExpiryWorker(s, 10*time.Millisecond, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for s.calls.Load() < 3 {
		select {
		case <-deadline:
			t.Fatalf("calls = %d after 2s", s.calls.Load())
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop after cancel")
	}
}

type failingCleaner struct{ calls atomic.Int32 }

func (c *failingCleaner) Cleanup(context.Context, time.Duration) (int64, error) {
	c.calls.Add(1)
	return 0, errors.New("db down")
}

func TestPeriodicKeepsRunningAfterError(t *testing.T) {
	c := &failingCleaner{}
	w := NewNotificationJanitor(c, time.Hour, 5*time.Millisecond, zerolog.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	w.Start(ctx)

	if c.calls.Load() < 2 {
		t.Fatalf("calls = %d, want the worker to keep ticking after errors", c.calls.Load())
	}
}

type recordingReminder struct {
	mu      sync.Mutex
	windows []time.Duration
}

func (r *recordingReminder) RemindDueSoon(_ context.Context, window time.Duration) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.windows = append(r.windows, window)
	return 0, nil
}

func TestDeadlineWorkerPassesWindow(t *testing.T) {
	r := &recordingReminder{}
	w := NewDeadlineWorker(r, 6*time.Hour, time.Hour, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	w.Start(ctx)

	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.windows) != 1 || r.windows[0] != 6*time.Hour {
		t.Fatalf("windows = %v, want one immediate run with 6h", r.windows)
	}
}

type flakyDeliverer struct {
	mu       sync.Mutex
	failures int
	got      []model.NotificationJob
}

func (d *flakyDeliverer) Deliver(_ context.Context, job model.NotificationJob) (*model.Notification, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failures > 0 {
		d.failures--
		return nil, errors.New("transient")
	}
	d.got = append(d.got, job)
	return &model.Notification{ID: uuid.New(), UserID: job.UserID, Type: job.Type}, nil
}

func (d *flakyDeliverer) delivered() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.got)
}

func TestNotificationWorkerRetriesThenDelivers(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	q := queue.NewRedisQueue(rdb, "notifications", "notifications_dead", zerolog.Nop())
	d := service.NewQueueDispatcher(q)
	user := uuid.New()
	if err := d.Dispatch(context.Background(), model.NotificationJob{
		Type:   model.NotificationQuizAssigned,
		UserID: user,
	}); err != nil {
		t.Fatal(err)
	}

	deliverer := &flakyDeliverer{failures: 1}
	w := NewNotificationWorker(q, deliverer, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- w.Start(ctx) }()

	deadline := time.After(5 * time.Second)
	for deliverer.delivered() == 0 {
		select {
		case <-deadline:
			cancel()
			t.Fatal("job was not delivered")
		case <-time.After(10 * time.Millisecond):
		}
	}
	cancel()
	if err := <-errCh; err != nil {
		t.Fatalf("Start: %v", err)
	}

	if deliverer.got[0].UserID != user {
		t.Fatalf("delivered = %+v", deliverer.got)
	}
	if mr.Exists("notifications_dead") {
		t.Fatal("a job that succeeded on retry must not be dead-lettered")
	}
}

func TestNotificationWorkerRejectsUnknownJobType(t *testing.T) {
	w := NewNotificationWorker(nil, &flakyDeliverer{}, zerolog.Nop())
	job, _ := queue.NewJob("mystery", map[string]int{"n": 1})
	if err := w.Handle(context.Background(), job); err == nil {
		t.Fatal("unknown job type must fail")
	}
}
