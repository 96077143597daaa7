// File: internal/infra/worker/chat_job_processor_test.go
package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"whatsapp-ai-cs/internal/domain"
	"whatsapp-ai-cs/internal/domain/model"
)

func testLog() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

// trackQueue records terminal bookkeeping calls.
type trackQueue struct {
	mu       sync.Mutex
	acked    []string
	failed   []string
	requeue  bool
	extended int
}

func (q *trackQueue) Enqueue(ctx context.Context, job *model.ChatJob, policy model.RetryPolicy) error {
	return nil
}
func (q *trackQueue) Dequeue(ctx context.Context) (*model.ChatJob, error) { return nil, nil }
func (q *trackQueue) ExtendLease(ctx context.Context, jobID string, d time.Duration) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.extended++
	return nil
}
func (q *trackQueue) Ack(ctx context.Context, jobID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.acked = append(q.acked, jobID)
	return nil
}
func (q *trackQueue) Fail(ctx context.Context, jobID string, reason string) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.failed = append(q.failed, jobID+": "+reason)
	return q.requeue, nil
}
func (q *trackQueue) ReclaimExpired(ctx context.Context, now time.Time, limit int64) (int, error) {
	return 0, nil
}
func (q *trackQueue) PromoteScheduled(ctx context.Context, now time.Time, limit int64) (int, error) {
	return 0, nil
}
func (q *trackQueue) DeadLetters(ctx context.Context, limit int64) ([]string, error) {
	return nil, nil
}
func (q *trackQueue) Depth(ctx context.Context) (int64, error) { return 0, nil }

type stubConv struct {
	reply string
	err   error
	calls int
}

func (s *stubConv) Respond(ctx context.Context, job *model.ChatJob) (string, error) {
	s.calls++
	return s.reply, s.err
}

type stubMessenger struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (s *stubMessenger) SendText(ctx context.Context, phone, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, phone+": "+text)
	return nil
}

type stubLocker struct {
	busy     bool
	unlocked int
}

func (l *stubLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if l.busy {
		return "", domain.ErrContactBusy
	}
	return "token", nil
}

func (l *stubLocker) Unlock(ctx context.Context, key, token string) error {
	l.unlocked++
	return nil
}

func workerTestJob() *model.ChatJob {
	return &model.ChatJob{ID: "j1", Phone: "628123", Message: "halo", Attempts: 1}
}

func TestProcess_SuccessDeliversAndAcks(t *testing.T) {
	q := &trackQueue{}
	conv := &stubConv{reply: "Halo Kak!"}
	msg := &stubMessenger{}
	p := NewChatJobProcessor(q, conv, msg, nil, time.Second, time.Millisecond, testLog())

	p.process(context.Background(), workerTestJob())

	if len(msg.sent) != 1 || msg.sent[0] != "628123: Halo Kak!" {
		t.Errorf("sent = %v", msg.sent)
	}
	if len(q.acked) != 1 || q.acked[0] != "j1" {
		t.Errorf("acked = %v", q.acked)
	}
	if len(q.failed) != 0 {
		t.Errorf("failed = %v", q.failed)
	}
}

func TestProcess_NoResponseAcksWithoutDelivery(t *testing.T) {
	q := &trackQueue{}
	msg := &stubMessenger{}
	p := NewChatJobProcessor(q, &stubConv{err: domain.ErrNoResponse}, msg, nil, time.Second, time.Millisecond, testLog())

	p.process(context.Background(), workerTestJob())

	if len(msg.sent) != 0 {
		t.Errorf("nothing should be sent, got %v", msg.sent)
	}
	if len(q.acked) != 1 {
		t.Errorf("acked = %v", q.acked)
	}
}

func TestProcess_TransientErrorFails(t *testing.T) {
	q := &trackQueue{requeue: true}
	p := NewChatJobProcessor(q, &stubConv{err: errors.New("model timeout")}, &stubMessenger{}, nil, time.Second, time.Millisecond, testLog())

	p.process(context.Background(), workerTestJob())

	if len(q.acked) != 0 {
		t.Errorf("acked = %v", q.acked)
	}
	if len(q.failed) != 1 {
		t.Fatalf("failed = %v", q.failed)
	}
}

func TestProcess_InvalidJobDroppedWithoutModelCall(t *testing.T) {
	q := &trackQueue{}
	conv := &stubConv{reply: "x"}
	p := NewChatJobProcessor(q, conv, &stubMessenger{}, nil, time.Second, time.Millisecond, testLog())

	p.process(context.Background(), &model.ChatJob{ID: "bad", Phone: ""})

	if conv.calls != 0 {
		t.Errorf("conversation ran for invalid job")
	}
	if len(q.acked) != 1 || q.acked[0] != "bad" {
		t.Errorf("acked = %v", q.acked)
	}
}

func TestProcess_DeliveryFailureRetries(t *testing.T) {
	q := &trackQueue{requeue: true}
	msg := &stubMessenger{err: errors.New("gateway down")}
	p := NewChatJobProcessor(q, &stubConv{reply: "Halo"}, msg, nil, time.Second, time.Millisecond, testLog())

	p.process(context.Background(), workerTestJob())

	if len(q.acked) != 0 {
		t.Errorf("acked = %v", q.acked)
	}
	if len(q.failed) != 1 {
		t.Fatalf("failed = %v", q.failed)
	}
}

func TestProcess_BusyContactGoesBackToQueue(t *testing.T) {
	q := &trackQueue{requeue: true}
	conv := &stubConv{reply: "x"}
	p := NewChatJobProcessor(q, conv, &stubMessenger{}, &stubLocker{busy: true}, time.Second, time.Millisecond, testLog())

	p.process(context.Background(), workerTestJob())

	if conv.calls != 0 {
		t.Errorf("conversation ran while contact was locked")
	}
	if len(q.failed) != 1 {
		t.Fatalf("failed = %v", q.failed)
	}
}

func TestProcess_UnlocksContactAfterRun(t *testing.T) {
	q := &trackQueue{}
	locker := &stubLocker{}
	p := NewChatJobProcessor(q, &stubConv{reply: "Halo"}, &stubMessenger{}, locker, time.Second, time.Millisecond, testLog())

	p.process(context.Background(), workerTestJob())

	if locker.unlocked != 1 {
		t.Errorf("unlock calls = %d", locker.unlocked)
	}
}

func TestProcess_RenewsLeaseDuringLongRun(t *testing.T) {
	q := &trackQueue{}
	slow := &slowConv{d: 80 * time.Millisecond}
	p := NewChatJobProcessor(q, slow, &stubMessenger{}, nil, 40*time.Millisecond, time.Millisecond, testLog())

	p.process(context.Background(), workerTestJob())

	q.mu.Lock()
	extended := q.extended
	q.mu.Unlock()
	if extended == 0 {
		t.Error("lease never renewed during a long handler")
	}
}

type slowConv struct{ d time.Duration }

func (s *slowConv) Respond(ctx context.Context, job *model.ChatJob) (string, error) {
	time.Sleep(s.d)
	return "done", nil
}

func TestPool_RunsSubmittedTasks(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool := NewPool(2, testLog())
	pool.Start(ctx)

	var mu sync.Mutex
	ran := 0
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		if err := pool.Submit(ctx, func(ctx context.Context) error {
			defer wg.Done()
			mu.Lock()
			ran++
			mu.Unlock()
			return nil
		}); err != nil {
			t.Fatalf("Submit: %v", err)
		}
	}
	wg.Wait()
	pool.Stop()

	if ran != 10 {
		t.Errorf("ran = %d, want 10", ran)
	}
}
