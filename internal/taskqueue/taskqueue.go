package taskqueue

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/ahwatch/auction-data/internal/executor"
)

// Config holds worker loop configuration.
type Config struct {
	ReceiveTimeout  time.Duration // Long-poll timeout (default: 24h)
	PoisonThreshold int           // Deliveries before quarantine (default: 5)
	BackoffBase     time.Duration // First loop-level backoff (default: 1s)
	BackoffMax      time.Duration // Backoff ceiling (default: 60s)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		ReceiveTimeout:  24 * time.Hour,
		PoisonThreshold: 5,
		BackoffBase:     time.Second,
		BackoffMax:      60 * time.Second,
	}
}

func (c *Config) applyDefaults() {
	if c.ReceiveTimeout == 0 {
		c.ReceiveTimeout = 24 * time.Hour
	}
	if c.PoisonThreshold == 0 {
		c.PoisonThreshold = 5
	}
	if c.BackoffBase == 0 {
		c.BackoffBase = time.Second
	}
	if c.BackoffMax == 0 {
		c.BackoffMax = 60 * time.Second
	}
}

// Metrics counts worker loop outcomes.
type Metrics struct {
	Received  int64
	Acked     int64
	Retried   int64
	Poisoned  int64
	LoopError int64
}

// Worker is the queue worker loop. One Worker runs one receive loop and fans
// messages out to at most the executor's capacity concurrent handlers.
type Worker struct {
	cfg     Config
	queue   Queue
	exec    *executor.Executor
	handler Handler
	logger  *slog.Logger

	mu      sync.Mutex
	metrics Metrics
}

// NewWorker creates a queue worker loop.
func NewWorker(cfg Config, queue Queue, exec *executor.Executor, handler Handler, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	cfg.applyDefaults()
	return &Worker{
		cfg:     cfg,
		queue:   queue,
		exec:    exec,
		handler: handler,
		logger:  logger,
	}
}

// Stats returns current metrics.
func (w *Worker) Stats() Metrics {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.metrics
}

// Run executes the worker loop until ctx is done. The loop never terminates
// on its own: queue errors back off and retry, handler errors are handled per
// message.
func (w *Worker) Run(ctx context.Context) error {
	var backoff time.Duration

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := w.iterate(ctx)
		if err == nil {
			backoff = 0
			continue
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		backoff = nextBackoff(backoff, w.cfg.BackoffBase, w.cfg.BackoffMax)
		w.count(func(m *Metrics) { m.LoopError++ })
		w.logger.Error("task queue error", "err", err, "backoff", backoff)

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// iterate performs one loop step: wait for a predicted slot, receive one
// message, and dispatch it without waiting for the handler to finish.
func (w *Worker) iterate(ctx context.Context) error {
	if err := w.exec.Wait(ctx); err != nil {
		return err
	}

	msg, err := w.queue.Receive(ctx, w.cfg.ReceiveTimeout)
	if errors.Is(err, ErrEmpty) {
		return nil
	}
	if err != nil {
		return err
	}

	w.count(func(m *Metrics) { m.Received++ })

	_, err = w.exec.Execute(func() error {
		w.processOne(ctx, msg)
		return nil
	})
	if err != nil {
		// Lost the slot race after Wait. Release the message for another
		// consumer and let the loop back off.
		if uerr := w.queue.Unlock(ctx, msg); uerr != nil {
			w.logger.Warn("could not unlock message", "err", uerr, "message_id", msg.ID)
		}
		return err
	}

	return nil
}

// processOne runs the handler for a single message and settles it: ack on
// success, unlock for redelivery on failure, delete once the delivery count
// reaches the poison threshold. Settlement failures are logged and swallowed;
// lock expiry is the backstop.
func (w *Worker) processOne(ctx context.Context, msg Message) {
	start := time.Now()
	w.logger.Debug("incoming message",
		"message_id", msg.ID,
		"tries", msg.DeliveryCount,
		"queue_delay", time.Since(msg.EnqueuedAt),
	)

	err := w.handler.Handle(ctx, msg.Body)
	if err == nil {
		if aerr := w.queue.Ack(ctx, msg); aerr != nil {
			w.logger.Warn("could not delete message", "err", aerr, "message_id", msg.ID)
		}
		w.count(func(m *Metrics) { m.Acked++ })
		w.logger.Debug("message processed", "message_id", msg.ID, "duration", time.Since(start))
		return
	}

	w.logger.Error("error executing message handler",
		"err", err,
		"message_id", msg.ID,
		"tries", msg.DeliveryCount,
		"transient", IsTransient(err),
	)

	if msg.DeliveryCount >= w.cfg.PoisonThreshold {
		w.logger.Error("removing poison message", "message_id", msg.ID, "tries", msg.DeliveryCount)
		if aerr := w.queue.Ack(ctx, msg); aerr != nil {
			w.logger.Warn("could not delete message", "err", aerr, "message_id", msg.ID)
		}
		w.count(func(m *Metrics) { m.Poisoned++ })
		return
	}

	if uerr := w.queue.Unlock(ctx, msg); uerr != nil {
		w.logger.Warn("could not unlock message", "err", uerr, "message_id", msg.ID)
	}
	w.count(func(m *Metrics) { m.Retried++ })
}

func (w *Worker) count(f func(*Metrics)) {
	w.mu.Lock()
	f(&w.metrics)
	w.mu.Unlock()
}

// nextBackoff doubles the backoff within [base, max].
func nextBackoff(current, base, max time.Duration) time.Duration {
	next := current * 2
	if next < base {
		next = base
	}
	if next > max {
		next = max
	}
	return next
}
