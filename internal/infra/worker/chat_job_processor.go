package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"whatsapp-ai-cs/internal/domain"
	"whatsapp-ai-cs/internal/domain/model"
	"whatsapp-ai-cs/internal/domain/ports/adapter"
	"whatsapp-ai-cs/internal/domain/ports/repository"
	"whatsapp-ai-cs/internal/infra/metrics"
)

// ContactLocker matches redis.Locker without importing that package.
type ContactLocker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (string, error)
	Unlock(ctx context.Context, key, token string) error
}

// ChatJobProcessor drives the queue: it reclaims lapsed leases, promotes due
// retries, dequeues jobs and hands each one to the pool. One instance per
// worker process.
type ChatJobProcessor struct {
	queue     repository.JobQueue
	conv      ConversationRunner
	messenger adapter.MessengerAdapter
	locker    ContactLocker // nil unless per-contact serialization is on
	lease     time.Duration
	poll      time.Duration
	log       *zerolog.Logger
}

// ConversationRunner is the slice of the conversation use case the processor
// needs. Tests substitute it with a stub.
type ConversationRunner interface {
	Respond(ctx context.Context, job *model.ChatJob) (string, error)
}

func NewChatJobProcessor(
	queue repository.JobQueue,
	conv ConversationRunner,
	messenger adapter.MessengerAdapter,
	locker ContactLocker,
	lease time.Duration,
	poll time.Duration,
	log *zerolog.Logger,
) *ChatJobProcessor {
	if lease <= 0 {
		lease = 30 * time.Second
	}
	if poll <= 0 {
		poll = 500 * time.Millisecond
	}
	return &ChatJobProcessor{
		queue:     queue,
		conv:      conv,
		messenger: messenger,
		locker:    locker,
		lease:     lease,
		poll:      poll,
		log:       log,
	}
}

// Run blocks until ctx is cancelled. Maintenance (reclaim, promote, depth
// gauge) piggybacks on the poll ticker so an idle worker still keeps the
// queue healthy.
func (p *ChatJobProcessor) Run(ctx context.Context, pool *Pool) error {
	ticker := time.NewTicker(p.poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		p.maintain(ctx)

		for {
			job, err := p.queue.Dequeue(ctx)
			if err != nil {
				p.log.Error().Err(err).Msg("dequeue failed")
				break
			}
			if job == nil {
				break
			}
			j := job
			if err := pool.Submit(ctx, func(ctx context.Context) error {
				p.process(ctx, j)
				return nil
			}); err != nil {
				// Submit only fails on shutdown; the lease will lapse and
				// the job will be reclaimed.
				return err
			}
		}
	}
}

func (p *ChatJobProcessor) maintain(ctx context.Context) {
	now := time.Now()
	if n, err := p.queue.ReclaimExpired(ctx, now, 100); err != nil {
		p.log.Error().Err(err).Msg("lease reclaim failed")
	} else if n > 0 {
		p.log.Warn().Int("count", n).Msg("reclaimed expired leases")
	}
	if _, err := p.queue.PromoteScheduled(ctx, now, 100); err != nil {
		p.log.Error().Err(err).Msg("retry promotion failed")
	}
	if depth, err := p.queue.Depth(ctx); err == nil {
		metrics.SetQueueDepth(depth)
	}
}

// process handles one leased job to a terminal state: ack, retry or dead
// letter. It never returns the job error upward; the queue bookkeeping is
// the whole point.
func (p *ChatJobProcessor) process(ctx context.Context, job *model.ChatJob) {
	log := p.log.With().Str("job_id", job.ID).Str("phone", job.Phone).Logger()
	log.Info().Int("attempt", job.Attempts).Msg("job started")

	metrics.JobStarted()
	start := time.Now()
	defer func() {
		metrics.JobFinished()
		metrics.ObserveJobDuration(int(time.Since(start).Milliseconds()))
	}()

	if !job.Valid() {
		log.Warn().Msg("invalid job payload; dropping")
		p.ack(ctx, job, "dropped")
		return
	}

	if p.locker != nil {
		token, err := p.locker.TryLock(ctx, "chat_lock:"+job.Phone, p.lease)
		if err != nil {
			// Another worker is mid-conversation with this contact; let the
			// retry schedule space us out.
			p.fail(ctx, job, &log, fmt.Errorf("contact busy: %w", err))
			return
		}
		defer func() {
			if uerr := p.locker.Unlock(ctx, "chat_lock:"+job.Phone, token); uerr != nil {
				log.Error().Err(uerr).Msg("contact unlock failed")
			}
		}()
	}

	stopRenewal := p.renewLease(ctx, job.ID, &log)
	reply, err := p.conv.Respond(ctx, job)
	stopRenewal()

	switch {
	case errors.Is(err, domain.ErrInvalidJob):
		log.Warn().Msg("job rejected by conversation; dropping")
		p.ack(ctx, job, "dropped")
	case errors.Is(err, domain.ErrNoResponse):
		log.Info().Msg("no deliverable reply; job done")
		p.ack(ctx, job, "no_reply")
	case err != nil:
		p.fail(ctx, job, &log, err)
	default:
		p.deliver(ctx, job, reply, &log)
	}
}

func (p *ChatJobProcessor) deliver(ctx context.Context, job *model.ChatJob, reply string, log *zerolog.Logger) {
	if err := p.messenger.SendText(ctx, job.Phone, reply); err != nil {
		metrics.IncDelivery("failed")
		p.fail(ctx, job, log, fmt.Errorf("delivery: %w", err))
		return
	}
	metrics.IncDelivery("sent")
	log.Info().Int("reply_len", len(reply)).Msg("reply delivered")
	p.ack(ctx, job, "completed")
}

func (p *ChatJobProcessor) ack(ctx context.Context, job *model.ChatJob, status string) {
	if err := p.queue.Ack(ctx, job.ID); err != nil {
		p.log.Error().Err(err).Str("job_id", job.ID).Msg("ack failed")
		return
	}
	metrics.IncJob(status)
}

func (p *ChatJobProcessor) fail(ctx context.Context, job *model.ChatJob, log *zerolog.Logger, cause error) {
	requeued, err := p.queue.Fail(ctx, job.ID, cause.Error())
	if err != nil {
		log.Error().Err(err).Msg("failure bookkeeping failed")
		return
	}
	if requeued {
		metrics.IncJob("retried")
		log.Warn().Err(cause).Int("attempt", job.Attempts).Msg("job failed; scheduled for retry")
		return
	}
	metrics.IncJob("dead_letter")
	log.Error().Err(cause).Int("attempt", job.Attempts).Msg("job dead-lettered")
}

// renewLease extends the job's lease at half-lease intervals while the
// handler runs. The returned func stops the renewal goroutine.
func (p *ChatJobProcessor) renewLease(ctx context.Context, jobID string, log *zerolog.Logger) func() {
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(p.lease / 2)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := p.queue.ExtendLease(ctx, jobID, p.lease); err != nil {
					log.Error().Err(err).Msg("lease renewal failed")
				}
			}
		}
	}()
	return func() { close(done) }
}
