package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/ahwatch/auction-data/internal/model"
)

// ErrNotFound is returned when a listing id is not present in the snapshot.
// A rebuilt index should never produce such an id, so callers treat this as
// an invariant violation, not a retryable condition.
var ErrNotFound = errors.New("listing not found")

// rawFeed mirrors the marketplace dump format.
type rawFeed struct {
	Auctions []rawListing `json:"auctions"`
}

type rawListing struct {
	Auc        int64  `json:"auc"`
	Item       int64  `json:"item"`
	Owner      string `json:"owner"`
	OwnerRealm string `json:"ownerRealm"`
	Quantity   int    `json:"quantity"`
	Buyout     int64  `json:"buyout"`
	TimeLeft   string `json:"timeLeft"`
}

// Snapshot is an immutable set of listings observed at one logical time.
type Snapshot struct {
	lastModified int64 // ms since epoch
	listings     map[int64]*model.Listing
	seq          map[int64]int // feed order, used for index tie-breaks

	once sync.Once
	idx  *Index
}

// FromRaw parses a raw feed payload. Bid-only listings (zero buyout) are
// dropped. Every parsed listing starts with TimeLeftSince = observedAt; the
// diff engine carries the older value forward when the bucket is unchanged.
func FromRaw(data []byte, observedAt int64) (*Snapshot, error) {
	var feed rawFeed
	if err := json.Unmarshal(data, &feed); err != nil {
		return nil, fmt.Errorf("parse feed payload: %w", err)
	}

	s := &Snapshot{
		lastModified: observedAt,
		listings:     make(map[int64]*model.Listing, len(feed.Auctions)),
		seq:          make(map[int64]int, len(feed.Auctions)),
	}

	n := 0
	for _, a := range feed.Auctions {
		if a.Buyout == 0 {
			continue // bid-only, out of scope
		}
		if a.Quantity <= 0 {
			continue
		}
		s.listings[a.Auc] = &model.Listing{
			ID:            a.Auc,
			ItemID:        a.Item,
			Owner:         a.Owner + "-" + a.OwnerRealm,
			Quantity:      a.Quantity,
			BuyoutPerUnit: float64(a.Buyout) / float64(a.Quantity),
			TimeLeft:      model.ParseTimeLeft(a.TimeLeft),
			TimeLeftSince: observedAt,
		}
		s.seq[a.Auc] = n
		n++
	}

	return s, nil
}

// FromStored restores a snapshot from its persisted reduced form, a JSON
// object of listing id to listing.
func FromStored(data []byte, lastModified int64) (*Snapshot, error) {
	var listings map[int64]*model.Listing
	if err := json.Unmarshal(data, &listings); err != nil {
		return nil, fmt.Errorf("parse stored snapshot: %w", err)
	}
	return FromListings(listings, lastModified), nil
}

// FromListings builds a snapshot directly from a listing map. Feed order is
// not recoverable, so index tie-breaks fall back to ascending listing id.
func FromListings(listings map[int64]*model.Listing, lastModified int64) *Snapshot {
	s := &Snapshot{
		lastModified: lastModified,
		listings:     listings,
		seq:          make(map[int64]int, len(listings)),
	}
	ids := make([]int64, 0, len(listings))
	for id := range listings {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for n, id := range ids {
		s.seq[id] = n
	}
	return s
}

// LastModified returns the snapshot's logical timestamp in ms since epoch.
func (s *Snapshot) LastModified() int64 {
	return s.lastModified
}

// Len returns the number of listings.
func (s *Snapshot) Len() int {
	return len(s.listings)
}

// Listing returns the listing with the given id, or ErrNotFound.
func (s *Snapshot) Listing(id int64) (*model.Listing, error) {
	l, ok := s.listings[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	return l, nil
}

// Has reports whether the listing id is present.
func (s *Snapshot) Has(id int64) bool {
	_, ok := s.listings[id]
	return ok
}

// Listings exposes the underlying listing map for diffing and persistence.
// Callers must not mutate it.
func (s *Snapshot) Listings() map[int64]*model.Listing {
	return s.listings
}

// IDs returns all listing ids in ascending order.
func (s *Snapshot) IDs() []int64 {
	ids := make([]int64, 0, len(s.listings))
	for id := range s.listings {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Index returns the full by-item and by-owner index, building it on first
// use.
func (s *Snapshot) Index() *Index {
	s.once.Do(func() {
		s.idx = s.BuildIndex(nil)
	})
	return s.idx
}

// ItemListingIDs returns listing ids for an item, cheapest first. Absent
// items return an empty slice.
func (s *Snapshot) ItemListingIDs(itemID int64) []int64 {
	return s.Index().Items[itemID]
}

// OwnerItems returns itemID to listing ids for one owner. Absent owners
// return nil.
func (s *Snapshot) OwnerItems(owner string) map[int64][]int64 {
	return s.Index().Owners[owner]
}

// OwnerItemIDs returns the item ids for which the owner has an active
// listing, in ascending order.
func (s *Snapshot) OwnerItemIDs(owner string) []int64 {
	items := s.Index().Owners[owner]
	ids := make([]int64, 0, len(items))
	for id := range items {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Cheapest returns the lowest per-unit listing for an item, or false when
// the item has no listings.
func (s *Snapshot) Cheapest(itemID int64) (*model.Listing, bool) {
	ids := s.Index().Items[itemID]
	if len(ids) == 0 {
		return nil, false
	}
	l, err := s.Listing(ids[0])
	if err != nil {
		return nil, false
	}
	return l, true
}

// Marshal serializes the snapshot's reduced form for persistence.
func (s *Snapshot) Marshal() ([]byte, error) {
	return json.Marshal(s.listings)
}
