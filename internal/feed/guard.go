package feed

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ahwatch/auction-data/internal/realm"
)

// ErrNoUpdates indicates the upstream dump has not changed since the last
// committed fetch.
var ErrNoUpdates = errors.New("feed: no updates since last fetch")

// Guard tracks the last-modified timestamp handled per realm so workers skip
// dumps they have already processed.
type Guard struct {
	rdb redis.UniversalClient
}

// NewGuard creates a Guard on an existing Redis client.
func NewGuard(rdb redis.UniversalClient) *Guard {
	return &Guard{rdb: rdb}
}

func guardKey(p realm.Partition) string {
	return "realms:" + p.Key() + ":auc:lastModified"
}

// Ensure returns ErrNoUpdates when lastModified is not newer than the
// committed timestamp for the realm.
func (g *Guard) Ensure(ctx context.Context, p realm.Partition, lastModified time.Time) error {
	val, err := g.rdb.Get(ctx, guardKey(p)).Result()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read last modified for %s: %w", p.Key(), err)
	}

	ms, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return fmt.Errorf("parse last modified for %s: %w", p.Key(), err)
	}
	if !lastModified.After(time.UnixMilli(ms)) {
		return ErrNoUpdates
	}
	return nil
}

// Commit records lastModified as handled for the realm.
func (g *Guard) Commit(ctx context.Context, p realm.Partition, lastModified time.Time) error {
	err := g.rdb.Set(ctx, guardKey(p), strconv.FormatInt(lastModified.UnixMilli(), 10), 0).Err()
	if err != nil {
		return fmt.Errorf("commit last modified for %s: %w", p.Key(), err)
	}
	return nil
}
