// Package redisq implements the durable task queue on Redis with peek-lock
// semantics.
//
// Layout per queue name:
//
//	<name>:ready     zset  message id → visible-at (ms)
//	<name>:inflight  zset  message id → lock expiry (ms)
//	<name>:msg:<id>  hash  body, deliveries, enqueued_at, lock_token
//
// A received message moves from ready to inflight under a fresh lock token
// and an expiry; expired locks are swept back to ready on the next receive,
// which is what makes delivery at-least-once rather than at-most-once.
package redisq

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/ahwatch/auction-data/internal/taskqueue"
)

// ErrLockLost is returned by Ack and Unlock when the message's lock expired
// and another consumer holds it now.
var ErrLockLost = errors.New("message lock lost")

// Config holds queue settings.
type Config struct {
	Name         string        // key prefix (default: "auction-tasks")
	LockDuration time.Duration // peek-lock visibility timeout (default: 5m)
	PollInterval time.Duration // receive poll granularity (default: 250ms)
}

func (c *Config) applyDefaults() {
	if c.Name == "" {
		c.Name = "auction-tasks"
	}
	if c.LockDuration == 0 {
		c.LockDuration = 5 * time.Minute
	}
	if c.PollInterval == 0 {
		c.PollInterval = 250 * time.Millisecond
	}
}

// Queue is a Redis-backed taskqueue.Queue and taskqueue.Enqueuer.
type Queue struct {
	cfg Config
	rdb redis.UniversalClient
	now func() time.Time
}

var _ taskqueue.Queue = (*Queue)(nil)
var _ taskqueue.Enqueuer = (*Queue)(nil)

// New creates a Queue on an existing Redis client.
func New(cfg Config, rdb redis.UniversalClient) *Queue {
	cfg.applyDefaults()
	return &Queue{
		cfg: cfg,
		rdb: rdb,
		now: time.Now,
	}
}

func (q *Queue) readyKey() string    { return q.cfg.Name + ":ready" }
func (q *Queue) inflightKey() string { return q.cfg.Name + ":inflight" }
func (q *Queue) msgKey(id string) string {
	return q.cfg.Name + ":msg:" + id
}

// Enqueue adds a message, immediately visible.
func (q *Queue) Enqueue(ctx context.Context, body []byte) error {
	id := uuid.NewString()
	now := q.now().UnixMilli()

	pipe := q.rdb.TxPipeline()
	pipe.HSet(ctx, q.msgKey(id), map[string]any{
		"body":        body,
		"deliveries":  0,
		"enqueued_at": now,
	})
	pipe.ZAdd(ctx, q.readyKey(), redis.Z{Score: float64(now), Member: id})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("enqueue: %w", err)
	}
	return nil
}

// Receive long-polls for one message up to timeout, returning
// taskqueue.ErrEmpty when nothing becomes available.
func (q *Queue) Receive(ctx context.Context, timeout time.Duration) (taskqueue.Message, error) {
	deadline := q.now().Add(timeout)

	for {
		if err := q.reapExpired(ctx); err != nil {
			return taskqueue.Message{}, err
		}

		msg, ok, err := q.tryReceive(ctx)
		if err != nil {
			return taskqueue.Message{}, err
		}
		if ok {
			return msg, nil
		}

		remaining := deadline.Sub(q.now())
		if remaining <= 0 {
			return taskqueue.Message{}, taskqueue.ErrEmpty
		}
		wait := q.cfg.PollInterval
		if wait > remaining {
			wait = remaining
		}
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return taskqueue.Message{}, ctx.Err()
		}
	}
}

// reapExpired moves messages with expired locks back to ready.
func (q *Queue) reapExpired(ctx context.Context) error {
	now := q.now().UnixMilli()
	ids, err := q.rdb.ZRangeByScore(ctx, q.inflightKey(), &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(now, 10),
	}).Result()
	if err != nil {
		return fmt.Errorf("scan expired locks: %w", err)
	}

	for _, id := range ids {
		// ZRem is the claim: only one consumer wins the move.
		removed, err := q.rdb.ZRem(ctx, q.inflightKey(), id).Result()
		if err != nil {
			return fmt.Errorf("reap %s: %w", id, err)
		}
		if removed == 0 {
			continue
		}
		if err := q.rdb.ZAdd(ctx, q.readyKey(), redis.Z{Score: float64(now), Member: id}).Err(); err != nil {
			return fmt.Errorf("requeue %s: %w", id, err)
		}
	}
	return nil
}

// tryReceive claims one visible message, if any.
func (q *Queue) tryReceive(ctx context.Context) (taskqueue.Message, bool, error) {
	now := q.now().UnixMilli()

	ids, err := q.rdb.ZRangeByScore(ctx, q.readyKey(), &redis.ZRangeBy{
		Min:    "-inf",
		Max:    strconv.FormatInt(now, 10),
		Offset: 0,
		Count:  1,
	}).Result()
	if err != nil {
		return taskqueue.Message{}, false, fmt.Errorf("scan ready: %w", err)
	}
	if len(ids) == 0 {
		return taskqueue.Message{}, false, nil
	}
	id := ids[0]

	// ZRem is the claim: losing the race just means retrying.
	removed, err := q.rdb.ZRem(ctx, q.readyKey(), id).Result()
	if err != nil {
		return taskqueue.Message{}, false, fmt.Errorf("claim %s: %w", id, err)
	}
	if removed == 0 {
		return taskqueue.Message{}, false, nil
	}

	token := uuid.NewString()
	expiry := float64(q.now().Add(q.cfg.LockDuration).UnixMilli())

	pipe := q.rdb.TxPipeline()
	deliveries := pipe.HIncrBy(ctx, q.msgKey(id), "deliveries", 1)
	pipe.HSet(ctx, q.msgKey(id), "lock_token", token)
	pipe.ZAdd(ctx, q.inflightKey(), redis.Z{Score: expiry, Member: id})
	body := pipe.HGet(ctx, q.msgKey(id), "body")
	enqueuedAt := pipe.HGet(ctx, q.msgKey(id), "enqueued_at")
	if _, err := pipe.Exec(ctx); err != nil {
		return taskqueue.Message{}, false, fmt.Errorf("lock %s: %w", id, err)
	}

	enqueuedMs, _ := strconv.ParseInt(enqueuedAt.Val(), 10, 64)
	return taskqueue.Message{
		ID:            id,
		Body:          []byte(body.Val()),
		DeliveryCount: int(deliveries.Val()),
		EnqueuedAt:    time.UnixMilli(enqueuedMs),
		LockToken:     token,
	}, true, nil
}

// Ack deletes the message permanently, provided the lock is still held.
func (q *Queue) Ack(ctx context.Context, msg taskqueue.Message) error {
	if err := q.checkLock(ctx, msg); err != nil {
		return err
	}
	pipe := q.rdb.TxPipeline()
	pipe.ZRem(ctx, q.inflightKey(), msg.ID)
	pipe.Del(ctx, q.msgKey(msg.ID))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("ack %s: %w", msg.ID, err)
	}
	return nil
}

// Unlock releases the peek lock, making the message immediately eligible for
// redelivery.
func (q *Queue) Unlock(ctx context.Context, msg taskqueue.Message) error {
	if err := q.checkLock(ctx, msg); err != nil {
		return err
	}
	pipe := q.rdb.TxPipeline()
	pipe.ZRem(ctx, q.inflightKey(), msg.ID)
	pipe.ZAdd(ctx, q.readyKey(), redis.Z{Score: float64(q.now().UnixMilli()), Member: msg.ID})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("unlock %s: %w", msg.ID, err)
	}
	return nil
}

func (q *Queue) checkLock(ctx context.Context, msg taskqueue.Message) error {
	token, err := q.rdb.HGet(ctx, q.msgKey(msg.ID), "lock_token").Result()
	if errors.Is(err, redis.Nil) {
		return fmt.Errorf("%w: message %s gone", ErrLockLost, msg.ID)
	}
	if err != nil {
		return fmt.Errorf("check lock %s: %w", msg.ID, err)
	}
	if token != msg.LockToken {
		return fmt.Errorf("%w: message %s", ErrLockLost, msg.ID)
	}
	return nil
}
