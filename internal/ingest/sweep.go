package ingest

import (
	"context"
	"fmt"

	"github.com/ahwatch/auction-data/internal/realm"
	"github.com/ahwatch/auction-data/internal/taskqueue"
)

// handleSweep enqueues one process message per configured realm.
func (r *Router) handleSweep(ctx context.Context) error {
	for _, p := range r.realms.All() {
		body, err := encodeEnvelope(Envelope{
			Type:   TypeProcess,
			Region: p.Region,
			Realm:  p.Realm,
		})
		if err != nil {
			return err
		}
		if err := r.enqueuer.Enqueue(ctx, body); err != nil {
			return taskqueue.Transient(fmt.Errorf("enqueue process %s: %w", p.Key(), err))
		}
	}

	r.count(func(m *Metrics) { m.Swept++ })
	r.logger.Info("sweep fanned out", "realms", r.realms.Len())
	return nil
}

// EnqueueSweep queues a single sweep message. Schedulers call this on a
// timer or cron tick.
func EnqueueSweep(ctx context.Context, enq taskqueue.Enqueuer) error {
	body, err := encodeEnvelope(Envelope{Type: TypeSweep})
	if err != nil {
		return err
	}
	if err := enq.Enqueue(ctx, body); err != nil {
		return fmt.Errorf("enqueue sweep: %w", err)
	}
	return nil
}

// EnqueueProcess queues a process message for one realm.
func EnqueueProcess(ctx context.Context, enq taskqueue.Enqueuer, p realm.Partition) error {
	body, err := encodeEnvelope(Envelope{
		Type:   TypeProcess,
		Region: p.Region,
		Realm:  p.Realm,
	})
	if err != nil {
		return err
	}
	if err := enq.Enqueue(ctx, body); err != nil {
		return fmt.Errorf("enqueue process %s: %w", p.Key(), err)
	}
	return nil
}
