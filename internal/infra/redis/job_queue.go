package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"

	"whatsapp-ai-cs/internal/domain/model"
	"whatsapp-ai-cs/internal/domain/ports/repository"
)

var _ repository.JobQueue = (*JobQueue)(nil)

// JobQueue is the durable chat queue: a ready list, an in-flight ZSET scored
// by lease deadline, a scheduled ZSET for backoff retries, and a dead-letter
// list. The payload and retry bookkeeping live in a per-job hash; the payload
// bytes are written once at enqueue and never touched again.
type JobQueue struct {
	client *Client
	lease  time.Duration

	readyKey     string
	inflightKey  string
	scheduledKey string
	dlqKey       string
	metaPrefix   string
}

func NewJobQueue(client *Client, lease time.Duration) *JobQueue {
	if lease <= 0 {
		lease = 30 * time.Second
	}
	return &JobQueue{
		client:       client,
		lease:        lease,
		readyKey:     "chat:ready",
		inflightKey:  "chat:inflight",
		scheduledKey: "chat:scheduled",
		dlqKey:       "chat:dlq",
		metaPrefix:   "chat:job:",
	}
}

func (q *JobQueue) metaKey(jobID string) string { return q.metaPrefix + jobID }

// deadMetaTTL keeps dead-lettered payloads around long enough for an
// operator to inspect them.
const deadMetaTTL = 7 * 24 * time.Hour

func (q *JobQueue) Enqueue(ctx context.Context, job *model.ChatJob, policy model.RetryPolicy) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = 3
	}
	if policy.Backoff <= 0 {
		policy.Backoff = 5 * time.Second
	}
	pipe := q.client.cli.TxPipeline()
	pipe.HSet(ctx, q.metaKey(job.ID),
		"payload", string(payload),
		"attempts", 0,
		"max_attempts", policy.MaxAttempts,
		"backoff_ms", policy.Backoff.Milliseconds(),
	)
	pipe.RPush(ctx, q.readyKey, job.ID)
	_, err = pipe.Exec(ctx)
	return err
}

// dequeueScript atomically pops a ready job, moves it in-flight with its
// lease deadline, and counts the delivery attempt.
var dequeueScript = redis.NewScript(`
local id = redis.call('LPOP', KEYS[1])
if not id then
  return false
end
redis.call('ZADD', KEYS[2], ARGV[1], id)
local attempts = redis.call('HINCRBY', ARGV[2] .. id, 'attempts', 1)
return {id, attempts}
`)

func (q *JobQueue) Dequeue(ctx context.Context) (*model.ChatJob, error) {
	deadline := time.Now().Add(q.lease).UnixMilli()
	res, err := dequeueScript.Run(ctx, q.client.cli,
		[]string{q.readyKey, q.inflightKey},
		deadline, q.metaPrefix,
	).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	vals, ok := res.([]interface{})
	if !ok || len(vals) != 2 {
		return nil, fmt.Errorf("unexpected dequeue script reply: %T", res)
	}
	jobID, _ := vals[0].(string)
	attempts, _ := vals[1].(int64)

	raw, err := q.client.cli.HGet(ctx, q.metaKey(jobID), "payload").Result()
	if err == redis.Nil {
		// Meta vanished (manual cleanup); drop the lease.
		_ = q.Ack(ctx, jobID)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var job model.ChatJob
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		_ = q.Ack(ctx, jobID)
		return nil, fmt.Errorf("unmarshal job %s: %w", jobID, err)
	}
	job.Attempts = int(attempts)
	return &job, nil
}

func (q *JobQueue) ExtendLease(ctx context.Context, jobID string, d time.Duration) error {
	return q.client.cli.ZAdd(ctx, q.inflightKey, &redis.Z{
		Score:  float64(time.Now().Add(d).UnixMilli()),
		Member: jobID,
	}).Err()
}

func (q *JobQueue) Ack(ctx context.Context, jobID string) error {
	pipe := q.client.cli.TxPipeline()
	pipe.ZRem(ctx, q.inflightKey, jobID)
	pipe.Del(ctx, q.metaKey(jobID))
	_, err := pipe.Exec(ctx)
	return err
}

func (q *JobQueue) Fail(ctx context.Context, jobID string, reason string) (bool, error) {
	meta, err := q.client.cli.HMGet(ctx, q.metaKey(jobID), "attempts", "max_attempts", "backoff_ms").Result()
	if err != nil {
		return false, err
	}
	attempts := metaInt(meta[0])
	maxAttempts := metaInt(meta[1])
	backoff := time.Duration(metaInt(meta[2])) * time.Millisecond
	if maxAttempts <= 0 {
		maxAttempts = 3
	}

	pipe := q.client.cli.TxPipeline()
	pipe.ZRem(ctx, q.inflightKey, jobID)
	pipe.HSet(ctx, q.metaKey(jobID), "last_error", reason)

	if attempts >= maxAttempts {
		pipe.RPush(ctx, q.dlqKey, jobID)
		pipe.Expire(ctx, q.metaKey(jobID), deadMetaTTL)
		_, err = pipe.Exec(ctx)
		return false, err
	}

	runAt := time.Now().Add(backoff)
	pipe.ZAdd(ctx, q.scheduledKey, &redis.Z{
		Score:  float64(runAt.UnixMilli()),
		Member: jobID,
	})
	_, err = pipe.Exec(ctx)
	return true, err
}

func (q *JobQueue) PromoteScheduled(ctx context.Context, now time.Time, limit int64) (int, error) {
	return q.moveDue(ctx, q.scheduledKey, now, limit)
}

func (q *JobQueue) ReclaimExpired(ctx context.Context, now time.Time, limit int64) (int, error) {
	return q.moveDue(ctx, q.inflightKey, now, limit)
}

func (q *JobQueue) moveDue(ctx context.Context, from string, now time.Time, limit int64) (int, error) {
	ids, err := q.client.cli.ZRangeByScore(ctx, from, &redis.ZRangeBy{
		Min:    "-inf",
		Max:    strconv.FormatInt(now.UnixMilli(), 10),
		Offset: 0,
		Count:  limit,
	}).Result()
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}
	pipe := q.client.cli.TxPipeline()
	for _, id := range ids {
		pipe.ZRem(ctx, from, id)
		pipe.RPush(ctx, q.readyKey, id)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return len(ids), nil
}

func (q *JobQueue) DeadLetters(ctx context.Context, limit int64) ([]string, error) {
	return q.client.cli.LRange(ctx, q.dlqKey, -limit, -1).Result()
}

func (q *JobQueue) Depth(ctx context.Context) (int64, error) {
	return q.client.cli.LLen(ctx, q.readyKey).Result()
}

func metaInt(v interface{}) int64 {
	s, ok := v.(string)
	if !ok {
		return 0
	}
	n, _ := strconv.ParseInt(s, 10, 64)
	return n
}
