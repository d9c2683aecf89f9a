package ingest

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/ahwatch/auction-data/internal/diff"
	"github.com/ahwatch/auction-data/internal/feed"
	"github.com/ahwatch/auction-data/internal/notify"
	"github.com/ahwatch/auction-data/internal/realm"
	"github.com/ahwatch/auction-data/internal/snapshot"
	"github.com/ahwatch/auction-data/internal/store"
	"github.com/ahwatch/auction-data/internal/taskqueue"
)

// FeedClient fetches dump descriptors and dump payloads.
type FeedClient interface {
	Descriptor(ctx context.Context, p realm.Partition) (feed.Dump, error)
	Fetch(ctx context.Context, dump feed.Dump) ([]byte, error)
}

// FeedGuard skips dumps that were already handled.
type FeedGuard interface {
	Ensure(ctx context.Context, p realm.Partition, lastModified time.Time) error
	Commit(ctx context.Context, p realm.Partition, lastModified time.Time) error
}

// Persister stores processed snapshots and progress markers.
type Persister interface {
	Marker(ctx context.Context, p realm.Partition) (store.Marker, error)
	LoadProcessed(ctx context.Context, p realm.Partition) (*snapshot.Snapshot, error)
	SaveProcessed(ctx context.Context, p realm.Partition, snap *snapshot.Snapshot, result *diff.Result, expectedETag string) (string, error)
}

// Publisher accepts auction events for delivery.
type Publisher interface {
	Publish(ev notify.Event) bool
}

// Router dispatches queue messages by envelope type. It implements
// taskqueue.Handler.
type Router struct {
	realms    *realm.Registry
	feed      FeedClient
	guard     FeedGuard
	persister Persister
	enqueuer  taskqueue.Enqueuer
	publisher Publisher
	logger    *slog.Logger

	mu      sync.Mutex
	metrics Metrics
}

// Metrics counts routed messages.
type Metrics struct {
	Received    int64
	Swept       int64
	Processed   int64
	Skipped     int64
	Notified    int64
	ParseErrors int64
	Unknown     int64
}

// NewRouter creates a Router. A nil logger defaults to slog.Default().
func NewRouter(
	realms *realm.Registry,
	feedClient FeedClient,
	guard FeedGuard,
	persister Persister,
	enqueuer taskqueue.Enqueuer,
	publisher Publisher,
	logger *slog.Logger,
) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		realms:    realms,
		feed:      feedClient,
		guard:     guard,
		persister: persister,
		enqueuer:  enqueuer,
		publisher: publisher,
		logger:    logger,
	}
}

// Handle parses the envelope and dispatches to the matching handler.
func (r *Router) Handle(ctx context.Context, body []byte) error {
	r.count(func(m *Metrics) { m.Received++ })

	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		r.count(func(m *Metrics) { m.ParseErrors++ })
		r.logger.Error("unparseable message dropped", "error", err)
		return nil
	}

	switch env.Type {
	case TypeSweep:
		return r.handleSweep(ctx)
	case TypeProcess:
		return r.handleProcess(ctx, env)
	case TypeNotify:
		return r.handleNotify(env)
	default:
		r.count(func(m *Metrics) { m.Unknown++ })
		r.logger.Warn("unknown message type dropped", "type", env.Type)
		return nil
	}
}

// Stats returns a copy of the router's counters.
func (r *Router) Stats() Metrics {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.metrics
}

func (r *Router) count(f func(*Metrics)) {
	r.mu.Lock()
	f(&r.metrics)
	r.mu.Unlock()
}
