package repository

import (
	"context"
	"time"

	"whatsapp-ai-cs/internal/domain/model"
)

// JobQueue is the durable queue port: at-least-once delivery with leases,
// bounded retries with a fixed backoff, and a dead-letter terminal state.
type JobQueue interface {
	// Enqueue stores the job payload and makes it available for delivery.
	Enqueue(ctx context.Context, job *model.ChatJob, policy model.RetryPolicy) error

	// Dequeue leases the next ready job for the configured lease duration
	// and counts the delivery attempt. Returns (nil, nil) when the queue
	// is empty.
	Dequeue(ctx context.Context) (*model.ChatJob, error)

	// ExtendLease pushes a leased job's expiry forward.
	ExtendLease(ctx context.Context, jobID string, d time.Duration) error

	// Ack removes a successfully processed job; it is never redelivered.
	Ack(ctx context.Context, jobID string) error

	// Fail records a failed delivery. The job is scheduled for redelivery
	// after its backoff, or dead-lettered once MaxAttempts deliveries are
	// spent. Returns true when the job will be retried.
	Fail(ctx context.Context, jobID string, reason string) (requeued bool, err error)

	// ReclaimExpired returns jobs whose lease lapsed to the ready queue.
	ReclaimExpired(ctx context.Context, now time.Time, limit int64) (int, error)

	// PromoteScheduled moves due retries into the ready queue.
	PromoteScheduled(ctx context.Context, now time.Time, limit int64) (int, error)

	// DeadLetters lists the most recent dead-lettered job IDs.
	DeadLetters(ctx context.Context, limit int64) ([]string, error)

	// Depth reports how many jobs are ready for delivery.
	Depth(ctx context.Context) (int64, error)
}
