package ingest

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/ahwatch/auction-data/internal/diff"
	"github.com/ahwatch/auction-data/internal/feed"
	"github.com/ahwatch/auction-data/internal/notify"
	"github.com/ahwatch/auction-data/internal/realm"
	"github.com/ahwatch/auction-data/internal/snapshot"
	"github.com/ahwatch/auction-data/internal/store"
	"github.com/ahwatch/auction-data/internal/taskqueue"
)

// handleProcess fetches the realm's latest dump, reconciles it against the
// last processed snapshot, persists the result and fans out notifications.
//
// Everything before SaveProcessed is read-only, and SaveProcessed writes to
// deterministic keys before its conditional marker update, so a redelivered
// message either skips cleanly or rewrites identical state.
func (r *Router) handleProcess(ctx context.Context, env Envelope) error {
	key := env.Region + "-" + env.Realm
	p, ok := r.realms.Get(key)
	if !ok {
		r.logger.Warn("process for unconfigured realm dropped", "realm", key)
		return nil
	}

	dump, err := r.feed.Descriptor(ctx, p)
	if err != nil {
		return taskqueue.Transient(err)
	}

	if err := r.guard.Ensure(ctx, p, dump.LastModified); err != nil {
		if errors.Is(err, feed.ErrNoUpdates) {
			r.count(func(m *Metrics) { m.Skipped++ })
			r.logger.Debug("dump unchanged", "realm", key, "last_modified", dump.LastModified)
			return nil
		}
		return taskqueue.Transient(err)
	}

	marker, err := r.persister.Marker(ctx, p)
	expectedETag := ""
	switch {
	case errors.Is(err, store.ErrNotFound):
		// first run for this realm
	case err != nil:
		return taskqueue.Transient(err)
	default:
		expectedETag = marker.ETag
		if marker.LastProcessed >= dump.LastModified.UnixMilli() {
			r.count(func(m *Metrics) { m.Skipped++ })
			if err := r.guard.Commit(ctx, p, dump.LastModified); err != nil {
				r.logger.Error("commit last modified failed", "realm", key, "error", err)
			}
			return nil
		}
	}

	raw, err := r.feed.Fetch(ctx, dump)
	if err != nil {
		return taskqueue.Transient(err)
	}

	current, err := snapshot.FromRaw(raw, dump.LastModified.UnixMilli())
	if err != nil {
		return fmt.Errorf("parse dump for %s: %w", key, err)
	}

	var previous *snapshot.Snapshot
	if expectedETag != "" {
		previous, err = r.persister.LoadProcessed(ctx, p)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return taskqueue.Transient(err)
		}
	}

	result := diff.Diff(previous, current)

	if _, err := r.persister.SaveProcessed(ctx, p, current, result, expectedETag); err != nil {
		if errors.Is(err, store.ErrMarkerConflict) {
			// another worker processed this dump between our marker read
			// and the save
			r.count(func(m *Metrics) { m.Skipped++ })
			r.logger.Warn("marker conflict, snapshot already processed", "realm", key)
			return nil
		}
		return taskqueue.Transient(err)
	}

	if err := r.guard.Commit(ctx, p, dump.LastModified); err != nil {
		r.logger.Error("commit last modified failed", "realm", key, "error", err)
	}

	r.fanOutEvents(ctx, p, current, result)

	r.count(func(m *Metrics) { m.Processed++ })
	return nil
}

// fanOutEvents enqueues one notify message per owner with activity. The
// snapshot is already durable at this point, so delivery failures are logged
// and dropped rather than retried through the whole pipeline.
func (r *Router) fanOutEvents(ctx context.Context, p realm.Partition, current *snapshot.Snapshot, result *diff.Result) {
	for _, owner := range sortedEventOwners(result) {
		events := ownerEvents(p, owner, current, result)
		if len(events) == 0 {
			continue
		}
		body, err := encodeEnvelope(Envelope{Type: TypeNotify, Events: events})
		if err != nil {
			r.logger.Error("encode notify failed", "owner", owner, "error", err)
			continue
		}
		if err := r.enqueuer.Enqueue(ctx, body); err != nil {
			r.logger.Error("enqueue notify failed", "owner", owner, "error", err)
		}
	}
}

// handleNotify publishes the envelope's events to the notifier.
func (r *Router) handleNotify(env Envelope) error {
	for _, ev := range env.Events {
		r.publisher.Publish(ev)
	}
	r.count(func(m *Metrics) { m.Notified++ })
	return nil
}

func sortedEventOwners(result *diff.Result) []string {
	owners := make([]string, 0, len(result.Owners))
	for owner := range result.Owners {
		owners = append(owners, owner)
	}
	sort.Strings(owners)
	return owners
}

// ownerEvents builds the sale and relist events for one owner, in
// deterministic order. Relist events read the new price and quantity off the
// current snapshot's listing.
func ownerEvents(p realm.Partition, owner string, current *snapshot.Snapshot, result *diff.Result) []notify.Event {
	var events []notify.Event

	for _, itemID := range result.Owners[owner] {
		for _, s := range result.Sold[itemID] {
			if s.Owner != owner {
				continue
			}
			events = append(events, notify.Event{
				RealmKey:  p.Key(),
				Owner:     owner,
				ItemID:    itemID,
				Kind:      notify.KindSold,
				Quantity:  s.Quantity,
				UnitPrice: s.BuyoutPerUnit,
			})
		}

		relists := result.Relisted[itemID]
		ids := make([]int64, 0, len(relists))
		for id := range relists {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		for _, id := range ids {
			listing, err := current.Listing(id)
			if err != nil || listing.Owner != owner {
				continue
			}
			events = append(events, notify.Event{
				RealmKey:      p.Key(),
				Owner:         owner,
				ItemID:        itemID,
				Kind:          notify.KindRelisted,
				Quantity:      listing.Quantity,
				UnitPrice:     listing.BuyoutPerUnit,
				PrevUnitPrice: relists[id].PreviousBuyoutPerUnit,
			})
		}
	}

	return events
}
